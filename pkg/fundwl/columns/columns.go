package columns

import (
	"sort"
	"strings"

	"github.com/komsit37/fundwl/pkg/fundwl/enrich"
	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// Resolver converts a fund view into the display value of one column.
type Resolver func(v types.FundView) string

// Def describes a list-view column.
type Def struct {
	Resolve Resolver
	// Numeric columns are right aligned.
	Numeric bool
	// Sign, when set, returns the value whose sign colors the cell.
	Sign func(v types.FundView) float64
	// Need is the fetched section the column reads from.
	Need enrich.NeedMask
	// Section is checked for a fetch error; failed cells show the placeholder.
	Section types.Section
}

// Registry maps column keys to their definitions.
var Registry = map[string]Def{}

func estPct(v types.FundView) float64 { return v.EstChangePct }

// estimated reports whether v carries any estimate at all.
func estimated(v types.FundView) bool { return v.EstSource != "" }

func init() {
	Registry["code"] = Def{Resolve: func(v types.FundView) string { return v.Code }}
	// name: vendor name, else base-info name, else registry name, else code
	Registry["name"] = Def{
		Need:    enrich.NeedBaseInfo,
		Resolve: func(v types.FundView) string { return v.Name },
	}
	Registry["amount"] = Def{
		Numeric: true,
		Resolve: func(v types.FundView) string { return numfmt.FormatNumber(v.HoldingAmount) },
	}
	Registry["profit"] = Def{
		Numeric: true,
		Sign:    func(v types.FundView) float64 { return v.HoldingProfit },
		Resolve: func(v types.FundView) string { return numfmt.FormatSigned(v.HoldingProfit) },
	}
	Registry["nav"] = Def{
		Numeric: true, Need: enrich.NeedValuation, Section: types.SectionValuation,
		Resolve: func(v types.FundView) string {
			if v.Valuation == nil {
				return numfmt.Placeholder
			}
			return numfmt.FormatNumber(v.LatestNav, 4)
		},
	}
	Registry["nav_date"] = Def{
		Need: enrich.NeedValuation, Section: types.SectionValuation,
		Resolve: func(v types.FundView) string { return orPlaceholder(v.LatestNavDate) },
	}
	Registry["est_nav"] = Def{
		Numeric: true, Need: enrich.NeedValuation, Section: types.SectionValuation,
		Resolve: func(v types.FundView) string {
			if v.Valuation == nil {
				return numfmt.Placeholder
			}
			return numfmt.FormatNumber(v.EstNav, 4)
		},
	}
	// est%: the vendor estimate, or the holdings-implied one when it is missing
	Registry["est%"] = Def{
		Numeric: true, Need: enrich.NeedValuation, Sign: estPct,
		Resolve: func(v types.FundView) string {
			if !estimated(v) {
				return numfmt.Placeholder
			}
			return numfmt.FormatPercent(v.EstChangePct)
		},
	}
	Registry["est_gain"] = Def{
		Numeric: true, Need: enrich.NeedValuation, Sign: estPct,
		Resolve: func(v types.FundView) string {
			if !estimated(v) {
				return numfmt.Placeholder
			}
			return numfmt.FormatSigned(v.EstGain)
		},
	}
	Registry["est_time"] = Def{
		Need: enrich.NeedValuation, Section: types.SectionValuation,
		Resolve: func(v types.FundView) string { return orPlaceholder(v.EstNavTime) },
	}
	Registry["coverage"] = Def{
		Numeric: true, Need: enrich.NeedHoldings, Section: types.SectionHoldings,
		Resolve: func(v types.FundView) string {
			if len(v.Holdings) == 0 {
				return numfmt.Placeholder
			}
			return numfmt.FormatNumber(v.Coverage) + "%"
		},
	}
	Registry["source"] = Def{
		Resolve: func(v types.FundView) string { return orPlaceholder(v.EstSource) },
	}
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return numfmt.Placeholder
	}
	return s
}

// Compute determines the final column order: explicit columns deduplicated
// in order, else the default set.
func Compute(explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		explicit = Sets[DefaultSet]
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(explicit))
	for _, k := range explicit {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := Registry[k]; !ok {
			return nil, &UnknownColumnError{Name: k, Available: Available()}
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// NeedForColumns computes the sections the given columns read from.
func NeedForColumns(cols []string) enrich.NeedMask {
	var mask enrich.NeedMask
	for _, c := range cols {
		mask |= Registry[c].Need
	}
	return mask
}

// RenderValue resolves one cell. A column whose section failed renders
// the placeholder.
func RenderValue(col string, v types.FundView) string {
	def, ok := Registry[col]
	if !ok {
		return ""
	}
	if def.Section != "" && v.Failed(def.Section) {
		return numfmt.Placeholder
	}
	return def.Resolve(v)
}

// Header is the table header of a column.
func Header(col string) string { return strings.ToUpper(col) }

// Available lists every registered column key, sorted.
func Available() []string {
	keys := make([]string, 0, len(Registry))
	for k := range Registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnknownColumnError reports a column key that is not registered.
type UnknownColumnError struct {
	Name      string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return "unknown column: " + e.Name + "; available: " + strings.Join(e.Available, ", ")
}
