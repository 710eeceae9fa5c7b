package eastmoney

import (
	"context"
	"strings"

	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

const quoteFields = "f1,f2,f3,f4,f12,f13,f14,f292"

// GetStockQuotes returns live price and change for codes in one batched
// request. Codes without a secid are dropped; when none is left no request
// is made. The result is keyed by the bare code the vendor echoes back.
func (c *Client) GetStockQuotes(ctx context.Context, codes []string) (types.QuoteMap, error) {
	quotes := types.QuoteMap{}
	secids := ToSecids(codes)
	if len(secids) == 0 {
		return quotes, nil
	}

	params := map[string]string{
		"fields": quoteFields,
		"fltt":   "2",
		"secids": strings.Join(secids, ","),
	}
	for k, v := range deviceParams {
		params[k] = v
	}
	rows, err := c.ulist(ctx, params)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		code := numfmt.Text(row.F12)
		if code == "" {
			continue
		}
		quotes[code] = types.Quote{
			Price:     numfmt.Coerce(row.F2),
			ChangePct: numfmt.Coerce(row.F3),
		}
	}
	return quotes, nil
}
