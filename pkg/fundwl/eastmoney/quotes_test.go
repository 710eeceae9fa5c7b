package eastmoney

import (
	"testing"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

func TestGetStockQuotesSingleBatch(t *testing.T) {
	fv, srv := newFakeVendor(t)
	fv.bodies[ulistPath] = `{"rc":0,"data":{"total":1,"diff":[
		{"f1":2,"f2":1688.5,"f3":"1.23%","f4":20.5,"f12":"600519","f13":1,"f14":"贵州茅台"},
		{"f2":"-","f3":"-","f12":"000002","f13":0,"f14":"万科A"},
		{"f2":1,"f3":1}
	]}}`
	c := newTestClient(srv, nil)

	got, err := c.GetStockQuotes(testContext(t), []string{"600519", "zzz"})
	if err != nil {
		t.Fatal(err)
	}

	reqs := fv.requests(ulistPath)
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	q := reqs[0]
	if q.Get("secids") != "1.600519" {
		t.Errorf("secids = %q, want 1.600519", q.Get("secids"))
	}
	for k, want := range map[string]string{
		"fields": quoteFields, "fltt": "2", "deviceid": "Wap", "plat": "Wap",
		"product": "EFund", "version": "2.0.0",
	} {
		if q.Get(k) != want {
			t.Errorf("%s = %q, want %q", k, q.Get(k), want)
		}
	}
	if _, ok := q["Uid"]; !ok {
		t.Error("Uid parameter missing")
	}

	want := types.QuoteMap{
		"600519": {Price: 1688.5, ChangePct: 1.23},
		"000002": {Price: 0, ChangePct: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("quotes = %v, want %v", got, want)
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("quotes[%s] = %v, want %v", k, got[k], w)
		}
	}
}

func TestGetStockQuotesNoRequestWhenUntranslatable(t *testing.T) {
	fv, srv := newFakeVendor(t)
	c := newTestClient(srv, nil)

	for _, codes := range [][]string{nil, {}, {"abc", "1234", "430047"}} {
		got, err := c.GetStockQuotes(testContext(t), codes)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("GetStockQuotes(%v) = %v, want empty map", codes, got)
		}
	}
	if n := len(fv.requests(ulistPath)); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestGetStockQuotesNullData(t *testing.T) {
	fv, srv := newFakeVendor(t)
	fv.bodies[ulistPath] = `{"rc":0,"data":null}`
	c := newTestClient(srv, nil)

	got, err := c.GetStockQuotes(testContext(t), []string{"600519", "00700"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("quotes = %v, want empty", got)
	}
	if s := fv.requests(ulistPath)[0].Get("secids"); s != "1.600519,116.00700" {
		t.Errorf("secids = %q", s)
	}
}
