package eastmoney

import (
	"context"
	"fmt"

	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// IndexSecids are the reference indices: SSE Composite and ChiNext.
const IndexSecids = "1.000001,0.399006"

const indexFields = "f2,f3,f4,f12,f13,f14"

// GetMarket returns the current level of the reference indices.
// There is no partial result: any failure fails the call.
func (c *Client) GetMarket(ctx context.Context) ([]types.MarketIndex, error) {
	rows, err := c.ulist(ctx, map[string]string{
		"fltt":   "2",
		"fields": indexFields,
		"secids": IndexSecids,
	})
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}
	out := make([]types.MarketIndex, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.MarketIndex{
			Code:      numfmt.Text(row.F12),
			Name:      numfmt.Text(row.F14),
			Price:     numfmt.Coerce(row.F2),
			ChangePct: numfmt.Coerce(row.F3),
			Change:    numfmt.Coerce(row.F4),
		})
	}
	return out, nil
}
