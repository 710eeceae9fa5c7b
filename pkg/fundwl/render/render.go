package render

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// Renderer renders a dashboard to an output writer.
type Renderer interface {
	Render(w io.Writer, d types.Dashboard, opts RenderOptions) error
}

type RenderOptions struct {
	Columns     []string
	Color       bool
	PrettyJSON  bool
	MaxColWidth int
}

const defaultMaxColWidth = 40

func (o RenderOptions) maxWidth() int {
	if o.MaxColWidth <= 0 {
		return defaultMaxColWidth
	}
	return o.MaxColWidth
}

// paint colors s by the sign of v: red for gains, green for losses.
func paint(color bool, v float64, s string) string {
	if !color || v == 0 {
		return s
	}
	if v > 0 {
		return text.Colors{text.FgRed}.Sprint(s)
	}
	return text.Colors{text.FgGreen}.Sprint(s)
}
