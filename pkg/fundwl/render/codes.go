package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// codesRenderer prints all fund codes in a single comma-separated line.
type codesRenderer struct{}

func NewCodesRenderer() Renderer {
	return codesRenderer{}
}

func (codesRenderer) Render(w io.Writer, d types.Dashboard, _ RenderOptions) error {
	codes := make([]string, 0, len(d.Funds))
	for _, v := range d.Funds {
		if c := strings.TrimSpace(v.Code); c != "" {
			codes = append(codes, c)
		}
	}
	_, err := fmt.Fprintln(w, strings.Join(codes, ","))
	return err
}

// ByFormat returns the list renderer for a --format value.
func ByFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		return NewTableRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	case "codes":
		return NewCodesRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want table, json or codes)", format)
	}
}
