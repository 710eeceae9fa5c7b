package eastmoney

import "regexp"

// Market prefixes of the composite secid. The table and the rule order below
// are the vendor's convention and must not be merged or reordered.
const (
	PrefixShanghai = "1."
	PrefixShenzhen = "0."
	PrefixHongKong = "116."
)

var (
	reShanghai = regexp.MustCompile(`^6\d{5}$`)
	reShenzhen = regexp.MustCompile(`^[03]\d{5}$`)
	reBoard8   = regexp.MustCompile(`^8\d{5}$`)
	reHongKong = regexp.MustCompile(`^\d{5}$`)
)

// ToSecid maps a bare stock code to the composite identifier used by the
// quote endpoint. The first matching rule wins. An empty result means the
// code cannot be quoted and must be left out of the batch.
func ToSecid(code string) string {
	switch {
	case reShanghai.MatchString(code):
		return PrefixShanghai + code
	case reShenzhen.MatchString(code):
		return PrefixShenzhen + code
	case reBoard8.MatchString(code):
		// 8xxxxx board codes share the Shenzhen prefix but are matched on
		// their own; the vendor may split them off again.
		return PrefixShenzhen + code
	case reHongKong.MatchString(code):
		return PrefixHongKong + code
	default:
		return ""
	}
}

// ToSecids translates codes and drops the ones that cannot be quoted.
func ToSecids(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if id := ToSecid(c); id != "" {
			out = append(out, id)
		}
	}
	return out
}
