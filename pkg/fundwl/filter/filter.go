package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// Filter matches a single key of a fund.
type Filter interface {
	Match(key string) bool
}

// Parse builds a filter from an expression:
// - Comma-separated exact keys: "400015,018125"
// - Glob: "0181*"
// - Regex: "/^01/"
// - Anything else: case-insensitive substring
func Parse(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Always(true), nil
	}
	if strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/") && len(expr) > 2 {
		re, err := regexp.Compile(expr[1 : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", expr, err)
		}
		return Regex{re: re}, nil
	}
	if strings.Contains(expr, ",") {
		set := map[string]struct{}{}
		for _, p := range strings.Split(expr, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			set[p] = struct{}{}
		}
		return ExactSet{set: set}, nil
	}
	if strings.ContainsAny(expr, "*?") {
		return Glob{pattern: expr}, nil
	}
	return SubstrCI{needle: expr}, nil
}

// MatchFund reports whether any key of f matches.
func MatchFund(flt Filter, f types.Fund) bool {
	return matchAny(flt, Keys(f))
}

// MatchView is MatchFund extended with the name the vendor reported for f,
// so funds listed without a name can still be found by name.
func MatchView(flt Filter, f types.Fund, v types.FundView) bool {
	if MatchFund(flt, f) {
		return true
	}
	if v.Name == "" || v.Name == f.Name || v.Name == f.Code {
		return false
	}
	return matchAny(flt, NameKeys(v.Name))
}

// Selects reports whether flt can drop anything.
func Selects(flt Filter) bool {
	if flt == nil {
		return false
	}
	all, ok := flt.(Always)
	return !ok || !bool(all)
}

func matchAny(flt Filter, keys []string) bool {
	for _, k := range keys {
		if flt.Match(k) {
			return true
		}
	}
	return false
}

var pinyinArgs = pinyin.NewArgs()

func init() {
	pinyinArgs.Fallback = func(r rune, a pinyin.Args) []string {
		return []string{string(r)}
	}
}

// Keys returns the strings a filter is tried against: the code followed by
// the NameKeys of the registry name.
func Keys(f types.Fund) []string {
	return append([]string{f.Code}, NameKeys(f.Name)...)
}

// NameKeys returns the name and, for Chinese names, its full pinyin and
// pinyin initials.
func NameKeys(name string) []string {
	if name == "" {
		return nil
	}
	keys := []string{name}
	if !hasHan(name) {
		return keys
	}
	var full, initials strings.Builder
	for _, c := range pinyin.LazyPinyin(name, pinyinArgs) {
		if c == "" {
			continue
		}
		full.WriteString(c)
		initials.WriteByte(c[0])
	}
	return append(keys, full.String(), initials.String())
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

type Always bool

func (a Always) Match(string) bool { return bool(a) }

type ExactSet struct{ set map[string]struct{} }

func (e ExactSet) Match(key string) bool {
	_, ok := e.set[key]
	return ok
}

type Glob struct{ pattern string }

func (g Glob) Match(key string) bool {
	ok, _ := filepath.Match(g.pattern, key)
	return ok
}

func (g Glob) String() string { return fmt.Sprintf("glob:%s", g.pattern) }

type Regex struct{ re *regexp.Regexp }

func (r Regex) Match(key string) bool { return r.re.MatchString(key) }

// SubstrCI matches if key contains needle, case-insensitively.
type SubstrCI struct{ needle string }

func (s SubstrCI) Match(key string) bool {
	if s.needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(key), strings.ToLower(s.needle))
}

func (s SubstrCI) String() string { return fmt.Sprintf("substr-ci:%s", s.needle) }
