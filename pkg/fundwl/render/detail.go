package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/fundwl/pkg/fundwl/numfmt"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// DetailRenderer prints every fund with its disclosed holdings.
type DetailRenderer struct{}

func NewDetailRenderer() *DetailRenderer { return &DetailRenderer{} }

func (r *DetailRenderer) Render(w io.Writer, d types.Dashboard, opts RenderOptions) error {
	for i, v := range d.Funds {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := r.renderFund(w, v, opts); err != nil {
			return err
		}
	}
	return nil
}

func (r *DetailRenderer) renderFund(w io.Writer, v types.FundView, opts RenderOptions) error {
	fmt.Fprintf(w, "%s  %s\n", text.Bold.Sprint(v.Name), v.Code)

	est := numfmt.Placeholder
	gain := numfmt.Placeholder
	if v.EstSource != "" {
		est = paint(opts.Color, v.EstChangePct, numfmt.FormatPercent(v.EstChangePct))
		gain = paint(opts.Color, v.EstGain, numfmt.FormatSigned(v.EstGain))
	}
	nav, estNav := numfmt.Placeholder, numfmt.Placeholder
	if v.Valuation != nil {
		nav = numfmt.FormatNumber(v.LatestNav, 4) + " (" + v.LatestNavDate + ")"
		estNav = numfmt.FormatNumber(v.EstNav, 4)
	}
	lines := [][2]string{
		{"amount", numfmt.FormatMoney(v.HoldingAmount)},
		{"nav", nav},
		{"est nav", estNav},
		{"est", est + "  " + gain},
		{"time", orDash(v.EstNavTime)},
		{"source", orDash(v.EstSource)},
	}
	if len(v.Holdings) > 0 {
		lines = append(lines, [2]string{"coverage", numfmt.FormatNumber(v.Coverage) + "%"})
	}
	if v.HoldingsQuarter != "" {
		lines = append(lines, [2]string{"disclosed", v.HoldingsQuarter})
	}
	for _, l := range lines {
		fmt.Fprintf(w, "  %-9s %s\n", l[0], l[1])
	}

	if msg, ok := v.Errors[types.SectionValuation]; ok {
		fmt.Fprintf(w, "! valuation: %s\n", msg)
	}
	if msg, ok := v.Errors[types.SectionHoldings]; ok {
		_, err := fmt.Fprintf(w, "! holdings: %s\n", msg)
		return err
	}
	if len(v.Holdings) == 0 {
		_, err := fmt.Fprintln(w, "  no disclosed holdings")
		return err
	}

	tw := newTable(w)
	tw.AppendHeader(table.Row{"CODE", "NAME", "WEIGHT%", "PRICE", "CHG%", "CONTRIB%"})
	right := func(n int) table.ColumnConfig {
		return table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignRight}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: opts.maxWidth()},
		right(3), right(4), right(5), right(6),
	})
	for _, h := range v.Holdings {
		tw.AppendRow(table.Row{
			h.Code,
			h.Name,
			numfmt.FormatNumber(h.Weight),
			numfmt.FormatNumber(h.Price),
			paint(opts.Color, h.ChangePct, numfmt.FormatPercent(h.ChangePct)),
			paint(opts.Color, h.ContributionPct, numfmt.FormatSigned(h.ContributionPct, 3)),
		})
	}
	tw.Render()
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return numfmt.Placeholder
	}
	return s
}
