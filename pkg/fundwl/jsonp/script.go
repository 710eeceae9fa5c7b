package jsonp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrLoad is returned when a script cannot be fetched.
	ErrLoad = errors.New("jsonp: script load failed")
	// ErrNotCalled is returned when a script ran without invoking a callback.
	ErrNotCalled = errors.New("jsonp: callback not invoked")
	// ErrUndefined is wrapped together with ErrNotCalled when a script only
	// calls names that have no occupant.
	ErrUndefined = errors.New("jsonp: callback not defined")
)

// CacheBustParam is the query parameter carrying the load timestamp.
const CacheBustParam = "_"

// callStart matches the `name(` that opens a call.
var callStart = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)

// Script is a fetched callback script attached to a Loader.
type Script struct {
	Src  string
	body []byte
}

// Body returns the raw script text.
func (s *Script) Body() []byte { return s.body }

// Exec runs every call to an occupied name in the script against slots, in
// order, and returns the number of callbacks invoked. Calls to other names
// are skipped. The argument is passed verbatim up to its matching `)`.
func (s *Script) Exec(slots *Slots) (int, error) {
	calls := 0
	var undefined string
	for pos := 0; pos < len(s.body); {
		loc := callStart.FindSubmatchIndex(s.body[pos:])
		if loc == nil {
			break
		}
		name := string(s.body[pos+loc[2] : pos+loc[3]])
		argStart := pos + loc[1]
		argEnd := closingParen(s.body, argStart)
		if argEnd < 0 {
			break
		}
		cb, ok := slots.Lookup(name)
		if !ok {
			if undefined == "" {
				undefined = name
			}
			pos = argEnd + 1
			continue
		}
		cb(s.body[argStart:argEnd])
		calls++
		pos = argEnd + 1
	}
	if calls == 0 {
		if undefined != "" {
			return 0, fmt.Errorf("%w: %w: %s", ErrNotCalled, ErrUndefined, undefined)
		}
		return 0, fmt.Errorf("%w: %s", ErrNotCalled, s.Src)
	}
	return calls, nil
}

// closingParen returns the index of the `)` closing the call whose
// argument starts at from, skipping parentheses inside string literals.
// It returns -1 when the call is never closed.
func closingParen(b []byte, from int) int {
	depth := 1
	var quote byte
	for i := from; i < len(b); i++ {
		c := b[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Loader fetches scripts and keeps track of the ones still attached.
type Loader struct {
	client *resty.Client
	now    func() time.Time

	mu       sync.Mutex
	attached map[*Script]struct{}
}

// NewLoader returns a loader fetching through client.
func NewLoader(client *resty.Client) *Loader {
	return &Loader{client: client, now: time.Now, attached: make(map[*Script]struct{})}
}

// SetClock replaces the clock used for the cache-busting timestamp.
func (l *Loader) SetClock(now func() time.Time) { l.now = now }

// Inject fetches src with a cache-busting timestamp and attaches the
// script. A failed load detaches it again and returns an error wrapping
// ErrLoad. Callers must Remove a successfully injected script once it ran.
func (l *Loader) Inject(ctx context.Context, src string) (*Script, error) {
	s := &Script{Src: src}
	l.mu.Lock()
	l.attached[s] = struct{}{}
	l.mu.Unlock()

	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParam(CacheBustParam, strconv.FormatInt(l.now().UnixMilli(), 10)).
		Get(src)
	if err != nil {
		l.Remove(s)
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, src, err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		l.Remove(s)
		return nil, fmt.Errorf("%w: %s: %s", ErrLoad, src, resp.Status())
	}
	s.body = resp.Body()
	return s, nil
}

// Remove detaches s. Removing a script twice is a no-op.
func (l *Loader) Remove(s *Script) {
	l.mu.Lock()
	delete(l.attached, s)
	l.mu.Unlock()
}

// Attached returns the number of scripts not yet removed.
func (l *Loader) Attached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attached)
}
