package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/fundwl/pkg/fundwl/columns"
	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// TableRenderer prints the market line and the fund list.
type TableRenderer struct{}

func NewTableRenderer() *TableRenderer { return &TableRenderer{} }

func (r *TableRenderer) Render(w io.Writer, d types.Dashboard, opts RenderOptions) error {
	if len(d.Market) > 0 || d.MarketError != "" {
		if err := writeMarket(w, d, opts.Color); err != nil {
			return err
		}
	}

	cols := opts.Columns
	if len(cols) == 0 {
		cols = columns.Sets[columns.DefaultSet]
	}

	tw := newTable(w)
	hdr := make(table.Row, len(cols))
	for i, c := range cols {
		hdr[i] = columns.Header(c)
	}
	tw.AppendHeader(hdr)

	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for i, c := range cols {
		cfg := table.ColumnConfig{Number: i + 1, WidthMax: opts.maxWidth()}
		if columns.Registry[c].Numeric {
			cfg.Align = text.AlignRight
			cfg.AlignHeader = text.AlignRight
			cfg.AlignFooter = text.AlignRight
		}
		cfgs = append(cfgs, cfg)
	}
	tw.SetColumnConfigs(cfgs)

	for _, v := range d.Funds {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			s := columns.RenderValue(c, v)
			if sign := columns.Registry[c].Sign; sign != nil && s != numfmt.Placeholder {
				s = paint(opts.Color, sign(v), s)
			}
			row[i] = s
		}
		tw.AppendRow(row)
	}
	if len(d.Funds) > 0 {
		tw.AppendFooter(footer(cols, d, opts.Color))
	}
	tw.Render()

	return writeErrors(w, d.Funds)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleColoredDark)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	return tw
}

// footer carries the totals under the columns that sum.
func footer(cols []string, d types.Dashboard, color bool) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		switch c {
		case "amount":
			row[i] = numfmt.FormatNumber(d.TotalAmount)
		case "est_gain":
			row[i] = paint(color, d.TotalEstGain, numfmt.FormatSigned(d.TotalEstGain))
		case "est%":
			row[i] = paint(color, d.TotalEstChangePct, numfmt.FormatPercent(d.TotalEstChangePct))
		default:
			row[i] = ""
		}
	}
	if len(cols) > 0 && row[0] == "" {
		row[0] = "TOTAL"
	}
	return row
}

// writeMarket prints one line with every index: name, level, change, change%.
func writeMarket(w io.Writer, d types.Dashboard, color bool) error {
	if d.MarketError != "" {
		_, err := fmt.Fprintf(w, "market unavailable: %s\n", d.MarketError)
		return err
	}
	parts := make([]string, 0, len(d.Market))
	for _, m := range d.Market {
		chg := numfmt.FormatSigned(m.Change) + " " + numfmt.FormatPercent(m.ChangePct)
		parts = append(parts, fmt.Sprintf("%s %s %s",
			text.Bold.Sprint(m.Name), numfmt.FormatNumber(m.Price), paint(color, m.ChangePct, chg)))
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, "   "))
	return err
}

// writeErrors lists the sections that could not be fetched, one line each.
func writeErrors(w io.Writer, funds []types.FundView) error {
	for _, v := range funds {
		if len(v.Errors) == 0 {
			continue
		}
		sections := make([]string, 0, len(v.Errors))
		for s := range v.Errors {
			sections = append(sections, string(s))
		}
		sort.Strings(sections)
		for _, s := range sections {
			if _, err := fmt.Fprintf(w, "! %s %s: %s\n", v.Code, s, v.Errors[types.Section(s)]); err != nil {
				return err
			}
		}
	}
	return nil
}
