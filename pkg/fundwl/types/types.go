package types

import "time"

// Portfolio is a named group of tracked funds, usually one per registry file.
type Portfolio struct {
	Name  string
	Funds []Fund
}

// Fund is one tracked position from the registry.
// Name is only a fallback; the vendor name wins when a valuation is available.
type Fund struct {
	Code          string  `json:"code" yaml:"code"`
	HoldingAmount float64 `json:"holdingAmount" yaml:"amount"`
	HoldingProfit float64 `json:"holdingProfit,omitempty" yaml:"profit,omitempty"`
	Name          string  `json:"name,omitempty" yaml:"name,omitempty"`
}

// FundValuation is the real-time estimate as published by fundgz.
// Every field is kept as the vendor string.
type FundValuation struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	Jzrq     string `json:"jzrq"`   // last settled NAV date
	Dwjz     string `json:"dwjz"`   // last settled NAV
	Gsz      string `json:"gsz"`    // estimated NAV
	Gszzl    string `json:"gszzl"`  // estimated change percent
	Gztime   string `json:"gztime"` // estimate timestamp
}

// MarketIndex is one reference index level.
type MarketIndex struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"changePct"`
	Change    float64 `json:"change"`
}

// HoldingStock is a disclosed constituent enriched with its live quote.
type HoldingStock struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Weight          float64 `json:"weight"`
	Price           float64 `json:"price"`
	ChangePct       float64 `json:"changePct"`
	ContributionPct float64 `json:"contributionPct"`
}

// HoldingsDisclosure is a fund's latest disclosed portfolio.
// Quarter is the vendor's report date label, empty when not sent.
type HoldingsDisclosure struct {
	Stocks  []HoldingStock `json:"stocks"`
	Quarter string         `json:"quarter"`
}

// Quote is the live price of a single security.
type Quote struct {
	Price     float64 `json:"price"`
	ChangePct float64 `json:"changePct"`
}

// QuoteMap is keyed by the bare vendor code, not the secid used to request it.
type QuoteMap map[string]Quote

// Section names a part of a fund view that is fetched independently.
type Section string

const (
	SectionValuation Section = "valuation"
	SectionHoldings  Section = "holdings"
	SectionMarket    Section = "market"
	SectionBaseInfo  Section = "baseinfo"
)

// Estimate sources for FundView.EstSource.
const (
	EstFromValuation = "valuation"
	EstFromHoldings  = "holdings"
)

// FundView is the merged view-model of one fund.
type FundView struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	HoldingAmount float64 `json:"holdingAmount"`
	HoldingProfit float64 `json:"holdingProfit"`

	Valuation *FundValuation `json:"valuation,omitempty"`
	Holdings  []HoldingStock `json:"holdings,omitempty"`

	// HoldingsQuarter is the report date of Holdings.
	HoldingsQuarter string `json:"holdingsQuarter,omitempty"`

	LatestNav     float64 `json:"latestNav"`
	LatestNavDate string  `json:"latestNavDate"`
	EstNav        float64 `json:"estNav"`
	EstNavTime    string  `json:"estNavTime"`
	EstChangePct  float64 `json:"estimatedChangePct"`
	EstSource     string  `json:"estimateSource,omitempty"`
	EstGain       float64 `json:"estimatedChangeAmount"`
	Coverage      float64 `json:"holdingsCoverage"`

	Errors map[Section]string `json:"errors,omitempty"`
}

// Failed reports whether the given section could not be fetched.
func (v FundView) Failed(s Section) bool {
	_, ok := v.Errors[s]
	return ok
}

// Dashboard is the combined list view of every tracked fund.
type Dashboard struct {
	UpdatedAt   time.Time     `json:"updatedAt"`
	Market      []MarketIndex `json:"market"`
	MarketError string        `json:"marketError,omitempty"`
	Funds       []FundView    `json:"funds"`

	TotalAmount       float64 `json:"totalAmount"`
	TotalEstGain      float64 `json:"totalEstimatedChangeAmount"`
	TotalEstChangePct float64 `json:"totalEstimatedChangePct"`
}
