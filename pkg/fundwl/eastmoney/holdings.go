package eastmoney

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// ErrBadPayload is returned for responses that are not valid JSON.
var ErrBadPayload = errors.New("eastmoney: invalid payload")

// fundStock is one disclosed constituent.
type fundStock struct {
	GPDM any `json:"GPDM"` // stock code
	GPJC any `json:"GPJC"` // stock short name
	JZBL any `json:"JZBL"` // weight, percent of NAV
}

// GetFundHoldings returns the disclosed constituents of a fund, in vendor
// order, each with its live quote. Constituents missing from the quote
// response keep a zero price and change.
func (c *Client) GetFundHoldings(ctx context.Context, code string) ([]types.HoldingStock, error) {
	d, err := c.GetFundDisclosure(ctx, code)
	if err != nil {
		return nil, err
	}
	return d.Stocks, nil
}

// GetFundDisclosure is GetFundHoldings plus the report date the vendor
// attaches to the disclosure.
func (c *Client) GetFundDisclosure(ctx context.Context, code string) (types.HoldingsDisclosure, error) {
	var d types.HoldingsDisclosure
	params := map[string]string{"FCODE": code}
	for k, v := range deviceParams {
		params[k] = v
	}
	body, err := c.getJSON(ctx, c.cfg.FundmobURL+holdingsPath, params)
	if err != nil {
		return d, fmt.Errorf("holdings %s: %w", code, err)
	}
	stocks, err := decodeFundStocks(body)
	if err != nil {
		return d, fmt.Errorf("holdings %s: %w", code, err)
	}
	d.Quarter = decodeQuarter(body)

	codes := make([]string, 0, len(stocks))
	for _, s := range stocks {
		codes = append(codes, numfmt.Text(s.GPDM))
	}
	quotes, err := c.GetStockQuotes(ctx, codes)
	if err != nil {
		return d, fmt.Errorf("holdings %s: quotes: %w", code, err)
	}

	d.Stocks = make([]types.HoldingStock, 0, len(stocks))
	for i, s := range stocks {
		q := quotes[codes[i]]
		d.Stocks = append(d.Stocks, types.HoldingStock{
			Code:      codes[i],
			Name:      numfmt.Text(s.GPJC),
			Weight:    numfmt.Coerce(s.JZBL),
			Price:     q.Price,
			ChangePct: q.ChangePct,
		})
	}
	return d, nil
}

// quarterPaths are the places the report date has been seen in.
var quarterPaths = [][]any{
	{"Expansion"}, {"expansion"},
	{"data", "Expansion"}, {"data", "expansion"},
}

// decodeQuarter finds the disclosure report date. Expansion is either the
// date itself or an object carrying it under ENDDATE or DATE.
func decodeQuarter(body []byte) string {
	for _, path := range quarterPaths {
		v, ok := getAny(body, path...)
		if !ok {
			continue
		}
		if obj, isObj := v.(map[string]any); isObj {
			for _, k := range []string{"ENDDATE", "DATE", "date"} {
				if s := numfmt.Text(obj[k]); s != "" {
					return s
				}
			}
			continue
		}
		if s := numfmt.Text(v); s != "" {
			return s
		}
	}
	return ""
}

// getAny decodes the value at path into a generic Go value.
func getAny(body []byte, path ...any) (any, bool) {
	node, err := sonic.Get(body, path...)
	if err != nil {
		return nil, false
	}
	raw, err := node.Raw()
	if err != nil {
		return nil, false
	}
	var v any
	if err := sonic.UnmarshalString(raw, &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// decodeFundStocks extracts Datas.fundStocks. A missing or null list is an
// empty disclosure, not an error.
func decodeFundStocks(body []byte) ([]fundStock, error) {
	if !json.Valid(body) {
		return nil, ErrBadPayload
	}
	node, err := sonic.Get(body, "Datas", "fundStocks")
	if err != nil {
		return nil, nil
	}
	raw, err := node.Raw()
	if err != nil {
		return nil, nil
	}
	var stocks []fundStock
	if err := sonic.UnmarshalString(raw, &stocks); err != nil {
		return nil, fmt.Errorf("decode fundStocks: %w", err)
	}
	return stocks, nil
}
