package enrich

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// Derive fills the computed fields of v from its fetched sections.
// fallbackName is used when the vendor sent no name.
func Derive(v *types.FundView, fallbackName string) {
	v.Name = v.Code
	if fallbackName != "" {
		v.Name = fallbackName
	}

	if gz := v.Valuation; gz != nil {
		if gz.Name != "" {
			v.Name = gz.Name
		}
		v.LatestNav = numfmt.Coerce(gz.Dwjz)
		v.LatestNavDate = gz.Jzrq
		v.EstNav = numfmt.Coerce(gz.Gsz)
		v.EstNavTime = gz.Gztime
	}

	var implied float64
	if len(v.Holdings) > 0 {
		weights := make([]float64, len(v.Holdings))
		changes := make([]float64, len(v.Holdings))
		for i := range v.Holdings {
			h := &v.Holdings[i]
			h.ContributionPct = h.Weight * h.ChangePct / 100
			weights[i] = h.Weight
			changes[i] = h.ChangePct
		}
		v.Coverage = floats.Sum(weights)
		implied = floats.Dot(weights, changes) / 100
	}

	switch {
	case v.Valuation != nil:
		v.EstChangePct = numfmt.Coerce(v.Valuation.Gszzl)
		v.EstSource = types.EstFromValuation
	case len(v.Holdings) > 0:
		v.EstChangePct = implied
		v.EstSource = types.EstFromHoldings
	default:
		v.EstChangePct = 0
		v.EstSource = ""
	}

	v.EstGain = Gain(v.HoldingAmount, v.EstChangePct)
}

// Gain is amount × pct / 100 rounded to cents.
func Gain(amount, pct float64) float64 {
	g := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2)
	return g.InexactFloat64()
}

// Totals sums amount and estimated gain over every fund of d.
func Totals(d *types.Dashboard) {
	amount, gain := decimal.Zero, decimal.Zero
	for _, f := range d.Funds {
		amount = amount.Add(decimal.NewFromFloat(f.HoldingAmount))
		gain = gain.Add(decimal.NewFromFloat(f.EstGain))
	}
	d.TotalAmount = amount.InexactFloat64()
	d.TotalEstGain = gain.InexactFloat64()
	d.TotalEstChangePct = 0
	if !amount.IsZero() {
		d.TotalEstChangePct = gain.Div(amount).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}
}
