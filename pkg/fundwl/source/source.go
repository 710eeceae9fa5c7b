package source

import (
	"context"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// Source loads portfolios from a specification (e.g., filepath).
type Source interface {
	Load(ctx context.Context, spec any) ([]types.Portfolio, error)
}

// Flatten lists the funds of every portfolio in order. The first occurrence
// of a code wins.
func Flatten(portfolios []types.Portfolio) []types.Fund {
	seen := map[string]struct{}{}
	var out []types.Fund
	for _, p := range portfolios {
		for _, f := range p.Funds {
			if _, ok := seen[f.Code]; ok {
				continue
			}
			seen[f.Code] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// Find returns the fund with the given code.
func Find(portfolios []types.Portfolio, code string) (types.Fund, bool) {
	for _, p := range portfolios {
		for _, f := range p.Funds {
			if f.Code == code {
				return f, true
			}
		}
	}
	return types.Fund{}, false
}
