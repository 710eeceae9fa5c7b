package eastmoney

import (
	"errors"
	"net/http"
	"testing"
)

func TestGetFundName(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"full name", `{"Datas":{"FCODE":"018125","FUNDNAME":"永赢先进制造智选混合发起A","SHORTNAME":"永赢先进制造"},"Success":true}`, "永赢先进制造智选混合发起A"},
		{"short name", `{"Datas":{"FUNDNAME":" ","SHORTNAME":"永赢先进制造"}}`, "永赢先进制造"},
		{"top level", `{"SHORTNAME":"东方新能源汽车"}`, "东方新能源汽车"},
		{"no name", `{"Datas":{"FCODE":"018125"}}`, ""},
		{"null datas", `{"Datas":null}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv, srv := newFakeVendor(t)
			fv.bodies[baseInfoPath] = tt.body
			c := newTestClient(srv, nil)

			got, err := c.GetFundName(testContext(t), "018125")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("GetFundName() = %q, want %q", got, tt.want)
			}
			q := fv.requests(baseInfoPath)[0]
			if q.Get("FCODE") != "018125" || q.Get("deviceid") != "Wap" {
				t.Errorf("query = %v", q)
			}
		})
	}
}

func TestGetFundNameErrors(t *testing.T) {
	fv, srv := newFakeVendor(t)
	fv.bodies[baseInfoPath] = `<html>`
	c := newTestClient(srv, nil)
	if _, err := c.GetFundName(testContext(t), "018125"); !errors.Is(err, ErrBadPayload) {
		t.Errorf("error = %v, want ErrBadPayload", err)
	}

	fv.mu.Lock()
	fv.status[baseInfoPath] = http.StatusBadGateway
	fv.mu.Unlock()
	if _, err := c.GetFundName(testContext(t), "018125"); err == nil {
		t.Error("GetFundName() succeeded on a 502")
	}
}
