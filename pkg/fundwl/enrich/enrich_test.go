package enrich

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

type fakeFetcher struct {
	gz       map[string]types.FundValuation
	gzErr    map[string]error
	holdings map[string][]types.HoldingStock
	holdErr  map[string]error
	quarter  map[string]string
	names    map[string]string
	nameErr  error
	market   []types.MarketIndex
	mktErr   error

	mu    sync.Mutex
	calls map[string]int

	inflight, peak atomic.Int32
	delay          time.Duration
}

func (f *fakeFetcher) track(key string) func() {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[key]++
	f.mu.Unlock()

	n := f.inflight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	return func() { f.inflight.Add(-1) }
}

func (f *fakeFetcher) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeFetcher) GetFundGz(_ context.Context, code string) (types.FundValuation, error) {
	defer f.track("gz:" + code)()
	if err := f.gzErr[code]; err != nil {
		return types.FundValuation{}, err
	}
	return f.gz[code], nil
}

func (f *fakeFetcher) GetFundDisclosure(_ context.Context, code string) (types.HoldingsDisclosure, error) {
	defer f.track("holdings:" + code)()
	if err := f.holdErr[code]; err != nil {
		return types.HoldingsDisclosure{Quarter: "stale"}, err
	}
	return types.HoldingsDisclosure{Stocks: f.holdings[code], Quarter: f.quarter[code]}, nil
}

func (f *fakeFetcher) GetFundName(_ context.Context, code string) (string, error) {
	defer f.track("name:" + code)()
	return f.names[code], f.nameErr
}

func (f *fakeFetcher) GetMarket(context.Context) ([]types.MarketIndex, error) {
	defer f.track("market")()
	return f.market, f.mktErr
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

var (
	fund400015 = types.Fund{Code: "400015", HoldingAmount: 50000, Name: "新能源"}
	fund018125 = types.Fund{Code: "018125", HoldingAmount: 20000}
)

func TestDashboardPartialFailure(t *testing.T) {
	src := &fakeFetcher{
		gzErr: map[string]error{"400015": errors.New("boom")},
		holdings: map[string][]types.HoldingStock{
			"400015": {
				{Code: "600519", Weight: 10, ChangePct: 2},
				{Code: "000002", Weight: 5, ChangePct: -4},
			},
		},
		gz: map[string]types.FundValuation{
			"018125": {FundCode: "018125", Name: "永赢先进制造", Dwjz: "1.5000", Gsz: "1.5150", Gszzl: "1.00", Jzrq: "2024-05-20", Gztime: "2024-05-21 15:00"},
		},
		market: []types.MarketIndex{{Code: "000001", Name: "上证指数", Price: 3000}},
	}
	a := NewAggregator(src, 2, zerolog.Nop())
	at := time.Date(2024, 5, 21, 15, 0, 0, 0, time.UTC)
	a.SetClock(func() time.Time { return at })

	d := a.Dashboard(testContext(t), []types.Fund{fund400015, fund018125}, NeedAll)

	if !d.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v", d.UpdatedAt)
	}
	if len(d.Market) != 1 || d.MarketError != "" {
		t.Errorf("market = %v (%q)", d.Market, d.MarketError)
	}
	if len(d.Funds) != 2 {
		t.Fatalf("funds = %d", len(d.Funds))
	}

	f := d.Funds[0]
	if !f.Failed(types.SectionValuation) || f.Failed(types.SectionHoldings) {
		t.Errorf("errors = %v", f.Errors)
	}
	if f.Name != "新能源" {
		t.Errorf("name = %q, want config fallback", f.Name)
	}
	// 10×2/100 + 5×(-4)/100 = 0
	if f.EstSource != types.EstFromHoldings || !approx(f.EstChangePct, 0) {
		t.Errorf("estimate = %v (%s)", f.EstChangePct, f.EstSource)
	}
	if !approx(f.Coverage, 15) {
		t.Errorf("coverage = %v", f.Coverage)
	}
	if !approx(f.Holdings[0].ContributionPct, 0.2) || !approx(f.Holdings[1].ContributionPct, -0.2) {
		t.Errorf("contributions = %+v", f.Holdings)
	}

	g := d.Funds[1]
	if g.Name != "永赢先进制造" || g.EstSource != types.EstFromValuation {
		t.Errorf("fund 018125 = %+v", g)
	}
	if g.LatestNav != 1.5 || g.EstNav != 1.515 || g.LatestNavDate != "2024-05-20" || g.EstNavTime != "2024-05-21 15:00" {
		t.Errorf("nav fields = %+v", g)
	}
	if g.EstGain != 200 {
		t.Errorf("gain = %v, want 200", g.EstGain)
	}

	if d.TotalAmount != 70000 || d.TotalEstGain != 200 {
		t.Errorf("totals = %v / %v", d.TotalAmount, d.TotalEstGain)
	}
	if !approx(d.TotalEstChangePct, 0.2857) {
		t.Errorf("total pct = %v", d.TotalEstChangePct)
	}
}

func TestDashboardMarketFailure(t *testing.T) {
	src := &fakeFetcher{
		mktErr: errors.New("ulist down"),
		gz:     map[string]types.FundValuation{"018125": {Gszzl: "-1.5"}},
	}
	d := NewAggregator(src, 0, zerolog.Nop()).Dashboard(testContext(t), []types.Fund{fund018125}, NeedList)

	if d.MarketError != "ulist down" || d.Market != nil {
		t.Errorf("market = %v (%q)", d.Market, d.MarketError)
	}
	if d.Funds[0].EstGain != -300 {
		t.Errorf("gain = %v, want -300", d.Funds[0].EstGain)
	}
	if src.count("holdings:018125") != 0 {
		t.Error("holdings fetched without NeedHoldings")
	}
}

func TestDashboardConcurrencyLimit(t *testing.T) {
	src := &fakeFetcher{delay: 20 * time.Millisecond}
	funds := []types.Fund{{Code: "000001"}, {Code: "000002"}, {Code: "000003"}, {Code: "000004"}, {Code: "000005"}}

	d := NewAggregator(src, 2, zerolog.Nop()).Dashboard(testContext(t), funds, NeedAll)

	if got := src.peak.Load(); got > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", got)
	}
	if src.count("market") != 1 {
		t.Errorf("market calls = %d, want 1", src.count("market"))
	}
	for _, f := range funds {
		if src.count("gz:"+f.Code) != 1 || src.count("holdings:"+f.Code) != 1 {
			t.Errorf("%s fetched %d/%d times", f.Code, src.count("gz:"+f.Code), src.count("holdings:"+f.Code))
		}
	}
	for i, v := range d.Funds {
		if v.Code != funds[i].Code {
			t.Errorf("order: funds[%d] = %s", i, v.Code)
		}
		if v.Name != v.Code {
			t.Errorf("name = %q, want code fallback", v.Name)
		}
	}
}

func TestFund(t *testing.T) {
	src := &fakeFetcher{
		gz:      map[string]types.FundValuation{"400015": {Name: "东方新能源汽车混合", Gszzl: "2.00"}},
		holdErr: map[string]error{"400015": errors.New("fundmob 500")},
	}
	v := NewAggregator(src, 4, zerolog.Nop()).Fund(testContext(t), fund400015, NeedAll)

	if src.count("market") != 0 {
		t.Error("Fund fetched the market")
	}
	if v.Errors[types.SectionHoldings] != "fundmob 500" {
		t.Errorf("errors = %v", v.Errors)
	}
	if v.Holdings != nil || v.Coverage != 0 || v.HoldingsQuarter != "" {
		t.Errorf("holdings = %v coverage = %v", v.Holdings, v.Coverage)
	}
	if v.EstGain != 1000 || v.Name != "东方新能源汽车混合" {
		t.Errorf("view = %+v", v)
	}
}

func TestNameFallbackOrder(t *testing.T) {
	src := &fakeFetcher{
		gz: map[string]types.FundValuation{
			"400015": {Name: "东方新能源汽车混合", Gszzl: "1.00"},
			"014143": {Gszzl: "0.50"},
		},
		gzErr: map[string]error{"018125": errors.New("no estimate")},
		names: map[string]string{"018125": "永赢先进制造", "014143": "银河创新成长"},
	}
	funds := []types.Fund{fund400015, fund018125, {Code: "014143", Name: "银河"}}
	d := NewAggregator(src, 0, zerolog.Nop()).Dashboard(testContext(t), funds, NeedList)

	for i, want := range []string{"东方新能源汽车混合", "永赢先进制造", "银河创新成长"} {
		if d.Funds[i].Name != want {
			t.Errorf("funds[%d].Name = %q, want %q", i, d.Funds[i].Name, want)
		}
	}
	if n := src.count("name:400015"); n != 0 {
		t.Errorf("base info fetched %d times for a named valuation", n)
	}
	if d.Funds[1].Failed(types.SectionBaseInfo) {
		t.Error("base info recorded as a failed section")
	}
}

func TestNameFallbackFailure(t *testing.T) {
	src := &fakeFetcher{nameErr: errors.New("fundmob down")}
	v := NewAggregator(src, 0, zerolog.Nop()).Fund(testContext(t), fund400015, NeedBaseInfo)
	if v.Name != "新能源" || len(v.Errors) != 0 {
		t.Errorf("view = %+v", v)
	}
	if src.count("gz:400015") != 0 || src.count("name:400015") != 1 {
		t.Error("base info alone must not fetch the valuation")
	}

	v = NewAggregator(&fakeFetcher{}, 0, zerolog.Nop()).Fund(testContext(t), fund018125, NeedValuation)
	if v.Name != "018125" {
		t.Errorf("name = %q, want code", v.Name)
	}
}

func TestHoldingsQuarter(t *testing.T) {
	src := &fakeFetcher{
		holdings: map[string][]types.HoldingStock{"400015": {{Code: "600519", Weight: 9.87}}},
		quarter:  map[string]string{"400015": "2024-03-31"},
	}
	v := NewAggregator(src, 0, zerolog.Nop()).Fund(testContext(t), fund400015, NeedHoldings)
	if v.HoldingsQuarter != "2024-03-31" || len(v.Holdings) != 1 {
		t.Errorf("view = %+v", v)
	}
}

func TestDeriveNoData(t *testing.T) {
	v := types.FundView{Code: "014143", HoldingAmount: 100}
	Derive(&v, "")
	if v.Name != "014143" || v.EstSource != "" || v.EstChangePct != 0 || v.EstGain != 0 {
		t.Errorf("view = %+v", v)
	}
}

func TestGain(t *testing.T) {
	tests := []struct {
		amount, pct, want float64
	}{
		{50000, 1.06, 530},
		{12345.67, -0.87, -107.41},
		{0, 3, 0},
		{1000, 0, 0},
		{0.1, 0.2, 0},
	}
	for _, tt := range tests {
		if got := Gain(tt.amount, tt.pct); got != tt.want {
			t.Errorf("Gain(%v, %v) = %v, want %v", tt.amount, tt.pct, got, tt.want)
		}
	}
}

func TestTotalsZeroAmount(t *testing.T) {
	d := types.Dashboard{Funds: []types.FundView{{EstGain: 0}}}
	Totals(&d)
	if d.TotalEstChangePct != 0 {
		t.Errorf("pct = %v, want 0", d.TotalEstChangePct)
	}
}

func TestNeedMask(t *testing.T) {
	if !NeedAll.Has(NeedDetail) || NeedList.Has(NeedHoldings) || !NeedList.Has(NeedNone) {
		t.Error("mask arithmetic broken")
	}
}
