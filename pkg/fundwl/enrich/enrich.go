// Package enrich merges the independently fetched sections of every tracked
// fund into the dashboard view-model.
package enrich

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// NeedMask declares which sections a fetch requires.
type NeedMask uint8

const (
	NeedNone      NeedMask = 0
	NeedValuation NeedMask = 1 << (iota - 1)
	NeedHoldings
	NeedMarket
	// NeedBaseInfo looks the name up in the fund's base information when
	// the valuation does not carry one.
	NeedBaseInfo

	NeedList   = NeedValuation | NeedMarket | NeedBaseInfo
	NeedDetail = NeedValuation | NeedHoldings | NeedBaseInfo
	NeedAll    = NeedValuation | NeedHoldings | NeedMarket | NeedBaseInfo
)

// Has reports whether every bit of n is set in m.
func (m NeedMask) Has(n NeedMask) bool { return m&n == n }

// Fetcher fetches the upstream sections. *eastmoney.Client implements it.
type Fetcher interface {
	GetFundGz(ctx context.Context, code string) (types.FundValuation, error)
	GetFundDisclosure(ctx context.Context, code string) (types.HoldingsDisclosure, error)
	GetFundName(ctx context.Context, code string) (string, error)
	GetMarket(ctx context.Context) ([]types.MarketIndex, error)
}

// Aggregator fans fetches out over funds and sections.
type Aggregator struct {
	src   Fetcher
	limit int
	log   zerolog.Logger
	now   func() time.Time
}

// NewAggregator returns an aggregator running at most limit fetches at once
// (no limit when limit <= 0).
func NewAggregator(src Fetcher, limit int, log zerolog.Logger) *Aggregator {
	return &Aggregator{src: src, limit: limit, log: log, now: time.Now}
}

// SetClock replaces the clock stamping Dashboard.UpdatedAt.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

// job holds one fund's results while its sections are in flight.
// Each goroutine writes only its own fields.
type job struct {
	code     string
	gz       *types.FundValuation
	gzErr    error
	holdings []types.HoldingStock
	quarter  string
	holdErr  error
	baseName string
}

// Dashboard fetches the requested sections for every fund. A failed
// section is recorded on its view and never stops the others.
func (a *Aggregator) Dashboard(ctx context.Context, funds []types.Fund, need NeedMask) types.Dashboard {
	d := types.Dashboard{UpdatedAt: a.now()}

	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	if need.Has(NeedMarket) {
		g.Go(func() error {
			start := time.Now()
			m, err := a.src.GetMarket(ctx)
			a.logFetch("", types.SectionMarket, start, err)
			if err != nil {
				d.MarketError = err.Error()
				return nil
			}
			d.Market = m
			return nil
		})
	}
	jobs := make([]job, len(funds))
	for i, f := range funds {
		jobs[i].code = f.Code
		a.schedule(ctx, &g, &jobs[i], need)
	}
	_ = g.Wait()

	d.Funds = make([]types.FundView, len(funds))
	for i, f := range funds {
		d.Funds[i] = build(f, &jobs[i])
	}
	Totals(&d)
	return d
}

// Fund fetches the requested sections of a single fund. NeedMarket is ignored.
func (a *Aggregator) Fund(ctx context.Context, f types.Fund, need NeedMask) types.FundView {
	var g errgroup.Group
	j := job{code: f.Code}
	a.schedule(ctx, &g, &j, need)
	_ = g.Wait()
	return build(f, &j)
}

// Market fetches the reference indices only.
func (a *Aggregator) Market(ctx context.Context) ([]types.MarketIndex, error) {
	start := time.Now()
	m, err := a.src.GetMarket(ctx)
	a.logFetch("", types.SectionMarket, start, err)
	return m, err
}

func (a *Aggregator) schedule(ctx context.Context, g *errgroup.Group, j *job, need NeedMask) {
	if need.Has(NeedValuation) {
		g.Go(func() error {
			start := time.Now()
			gz, err := a.src.GetFundGz(ctx, j.code)
			a.logFetch(j.code, types.SectionValuation, start, err)
			if err != nil {
				j.gzErr = err
			} else {
				j.gz = &gz
			}
			if need.Has(NeedBaseInfo) && (j.gz == nil || j.gz.Name == "") {
				a.lookupName(ctx, j)
			}
			return nil
		})
	} else if need.Has(NeedBaseInfo) {
		g.Go(func() error {
			a.lookupName(ctx, j)
			return nil
		})
	}
	if need.Has(NeedHoldings) {
		g.Go(func() error {
			start := time.Now()
			d, err := a.src.GetFundDisclosure(ctx, j.code)
			a.logFetch(j.code, types.SectionHoldings, start, err)
			j.holdings, j.quarter, j.holdErr = d.Stocks, d.Quarter, err
			return nil
		})
	}
}

// lookupName fills j.baseName. A failure only costs the name, so it is
// logged and not recorded on the view.
func (a *Aggregator) lookupName(ctx context.Context, j *job) {
	start := time.Now()
	name, err := a.src.GetFundName(ctx, j.code)
	a.logFetch(j.code, types.SectionBaseInfo, start, err)
	if err == nil {
		j.baseName = name
	}
}

func (a *Aggregator) logFetch(code string, s types.Section, start time.Time, err error) {
	if err != nil {
		a.log.Warn().Err(err).Str("code", code).Str("section", string(s)).Msg("fetch failed")
		return
	}
	a.log.Debug().Str("code", code).Str("section", string(s)).Dur("took", time.Since(start)).Msg("fetched")
}

func build(f types.Fund, j *job) types.FundView {
	v := types.FundView{
		Code:            f.Code,
		HoldingAmount:   f.HoldingAmount,
		HoldingProfit:   f.HoldingProfit,
		Valuation:       j.gz,
		Holdings:        j.holdings,
		HoldingsQuarter: j.quarter,
	}
	if j.gzErr != nil {
		setErr(&v, types.SectionValuation, j.gzErr)
	}
	if j.holdErr != nil {
		v.Holdings, v.HoldingsQuarter = nil, ""
		setErr(&v, types.SectionHoldings, j.holdErr)
	}
	fallback := j.baseName
	if fallback == "" {
		fallback = f.Name
	}
	Derive(&v, fallback)
	return v
}

func setErr(v *types.FundView, s types.Section, err error) {
	if v.Errors == nil {
		v.Errors = map[types.Section]string{}
	}
	v.Errors[s] = err.Error()
}
