package eastmoney

import (
	"context"
	"fmt"

	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
)

// baseNameKeys are tried in order; the mobile API has used all of them.
var baseNameKeys = []string{"FUNDNAME", "SHORTNAME", "Name", "fundname"}

// GetFundName looks the fund's name up in its base information. It is the
// fallback for funds that have no live valuation. An empty name with a nil
// error means the vendor knows the fund but sent no name.
func (c *Client) GetFundName(ctx context.Context, code string) (string, error) {
	params := map[string]string{"FCODE": code}
	for k, v := range deviceParams {
		params[k] = v
	}
	body, err := c.getJSON(ctx, c.cfg.FundmobURL+baseInfoPath, params)
	if err != nil {
		return "", fmt.Errorf("base info %s: %w", code, err)
	}
	if !json.Valid(body) {
		return "", fmt.Errorf("base info %s: %w", code, ErrBadPayload)
	}
	for _, root := range [][]any{{"Datas"}, {}} {
		v, ok := getAny(body, root...)
		if !ok {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range baseNameKeys {
			if s, ok := obj[k].(string); ok && numfmt.Text(s) != "" {
				return numfmt.Text(s), nil
			}
		}
	}
	return "", nil
}
