package eastmoney

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/komsit37/fundwl/pkg/fundwl/jsonp"
)

// fakeVendor serves canned bodies per path and records every request.
type fakeVendor struct {
	t      *testing.T
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	reqs   []*http.Request
}

func newFakeVendor(t *testing.T) (*fakeVendor, *httptest.Server) {
	fv := &fakeVendor{t: t, bodies: map[string]string{}, status: map[string]int{}}
	srv := httptest.NewServer(fv)
	t.Cleanup(srv.Close)
	return fv, srv
}

func (fv *fakeVendor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fv.mu.Lock()
	fv.reqs = append(fv.reqs, r.Clone(r.Context()))
	body, ok := fv.bodies[r.URL.Path]
	status := fv.status[r.URL.Path]
	fv.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte(body))
}

func (fv *fakeVendor) requests(path string) []url.Values {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	var out []url.Values
	for _, r := range fv.reqs {
		if r.URL.Path == path {
			out = append(out, r.URL.Query())
		}
	}
	return out
}

func (fv *fakeVendor) headers(path string) []http.Header {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	var out []http.Header
	for _, r := range fv.reqs {
		if r.URL.Path == path {
			out = append(out, r.Header)
		}
	}
	return out
}

func newTestClient(srv *httptest.Server, slots *jsonp.Slots) *Client {
	c := New(Config{
		Push2Base:  srv.URL,
		FundmobURL: srv.URL,
		FundgzBase: srv.URL,
		Timeout:    2 * time.Second,
		Slots:      slots,
	})
	c.SetClock(func() time.Time { return time.UnixMilli(1700000000000) })
	return c
}

func TestRESTRequestsCarryAcceptAndTimestamp(t *testing.T) {
	fv, srv := newFakeVendor(t)
	fv.bodies[ulistPath] = `{"data":{"diff":[]}}`
	c := newTestClient(srv, nil)

	if _, err := c.GetMarket(testContext(t)); err != nil {
		t.Fatal(err)
	}
	hs := fv.headers(ulistPath)
	if len(hs) != 1 {
		t.Fatalf("requests = %d, want 1", len(hs))
	}
	if got := hs[0].Get("Accept"); got != acceptHeader {
		t.Errorf("Accept = %q", got)
	}
	if got := fv.requests(ulistPath)[0].Get("_"); got != "1700000000000" {
		t.Errorf("_ = %q", got)
	}
}

func TestStatusErrorPropagates(t *testing.T) {
	fv, srv := newFakeVendor(t)
	fv.status[ulistPath] = http.StatusBadGateway
	c := newTestClient(srv, nil)

	_, err := c.GetMarket(testContext(t))
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("GetMarket() error = %v, want 502", err)
	}
}
