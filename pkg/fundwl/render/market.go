package render

import (
	"io"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// MarketRenderer prints only the index line.
type MarketRenderer struct{}

func NewMarketRenderer() *MarketRenderer { return &MarketRenderer{} }

func (MarketRenderer) Render(w io.Writer, d types.Dashboard, opts RenderOptions) error {
	return writeMarket(w, d, opts.Color)
}
