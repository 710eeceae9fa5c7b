package eastmoney

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// CallbackName is the global callback the fundgz script invokes.
const CallbackName = "jsonpgz"

// ErrNoEstimate is returned when fundgz has no estimate for the fund
// (the script calls the callback without an argument).
var ErrNoEstimate = errors.New("eastmoney: no valuation estimate")

// GetFundGz returns the real-time valuation estimate of a fund.
//
// The endpoint only serves a callback script. The script is fetched, then
// run while this call holds the CallbackName slot; any previous occupant of
// the slot is restored afterwards. Load failures are returned, never
// swallowed.
func (c *Client) GetFundGz(ctx context.Context, code string) (types.FundValuation, error) {
	src := fmt.Sprintf("%s/js/%s.js", c.cfg.FundgzBase, code)
	script, err := c.scripts.Inject(ctx, src)
	if err != nil {
		return types.FundValuation{}, fmt.Errorf("valuation %s: %w", code, err)
	}
	defer c.scripts.Remove(script)

	var (
		payload []byte
		called  bool
	)
	release, err := c.slots.Acquire(ctx, CallbackName, func(arg []byte) {
		if !called {
			payload = bytes.TrimSpace(arg)
			called = true
		}
	})
	if err != nil {
		return types.FundValuation{}, fmt.Errorf("valuation %s: %w", code, err)
	}
	_, err = script.Exec(c.slots)
	release()
	if err != nil {
		return types.FundValuation{}, fmt.Errorf("valuation %s: %w", code, err)
	}
	if len(payload) == 0 {
		return types.FundValuation{}, fmt.Errorf("valuation %s: %w", code, ErrNoEstimate)
	}

	// Fields are read one by one so a number where a string is expected
	// does not fail the whole estimate.
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return types.FundValuation{}, fmt.Errorf("valuation %s: decode: %w", code, err)
	}
	return types.FundValuation{
		FundCode: numfmt.Text(raw["fundcode"]),
		Name:     numfmt.Text(raw["name"]),
		Jzrq:     numfmt.Text(raw["jzrq"]),
		Dwjz:     numfmt.Text(raw["dwjz"]),
		Gsz:      numfmt.Text(raw["gsz"]),
		Gszzl:    numfmt.Text(raw["gszzl"]),
		Gztime:   numfmt.Text(raw["gztime"]),
	}, nil
}
