package render

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonModel is the output shape for JSONRenderer.
type jsonModel struct {
	Columns []string `json:"columns,omitempty"`
	types.Dashboard
}

type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

func (r *JSONRenderer) Render(w io.Writer, d types.Dashboard, opts RenderOptions) error {
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(jsonModel{Columns: opts.Columns, Dashboard: d})
}
