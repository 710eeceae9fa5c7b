package pipeline

import (
	"context"
	"io"

	"github.com/komsit37/fundwl/pkg/fundwl/columns"
	"github.com/komsit37/fundwl/pkg/fundwl/enrich"
	"github.com/komsit37/fundwl/pkg/fundwl/filter"
	"github.com/komsit37/fundwl/pkg/fundwl/render"
	"github.com/komsit37/fundwl/pkg/fundwl/source"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// Dashboarder builds a dashboard for a set of funds. *enrich.Aggregator
// implements it.
type Dashboarder interface {
	Dashboard(ctx context.Context, funds []types.Fund, need enrich.NeedMask) types.Dashboard
}

type Runner struct {
	Source     source.Source
	Aggregator Dashboarder
	Renderer   render.Renderer
	Writer     io.Writer
}

type ExecuteOptions struct {
	Columns     []string
	Filter      filter.Filter
	// Need is added to what the columns require.
	Need        enrich.NeedMask
	Color       bool
	PrettyJSON  bool
	MaxColWidth int
}

// Load reads the registry and returns the flattened funds.
func (r *Runner) Load(ctx context.Context, spec any) ([]types.Fund, error) {
	portfolios, err := r.Source.Load(ctx, spec)
	if err != nil {
		return nil, err
	}
	return source.Flatten(portfolios), nil
}

// Dashboard loads the registry, aggregates it and keeps the funds matching
// flt. Filtering happens after aggregation so vendor names can match, which
// means a selective filter also fetches the names of every fund.
func (r *Runner) Dashboard(ctx context.Context, spec any, flt filter.Filter, need enrich.NeedMask) (types.Dashboard, error) {
	funds, err := r.Load(ctx, spec)
	if err != nil {
		return types.Dashboard{}, err
	}
	if !filter.Selects(flt) {
		return r.Aggregator.Dashboard(ctx, funds, need), nil
	}
	d := r.Aggregator.Dashboard(ctx, funds, need|enrich.NeedValuation|enrich.NeedBaseInfo)
	Select(&d, funds, flt)
	return d, nil
}

// Select drops the views of d whose fund does not match flt and recomputes
// the totals. d.Funds must be in the order of funds.
func Select(d *types.Dashboard, funds []types.Fund, flt filter.Filter) {
	kept := d.Funds[:0]
	for i, v := range d.Funds {
		if filter.MatchView(flt, funds[i], v) {
			kept = append(kept, v)
		}
	}
	d.Funds = kept
	enrich.Totals(d)
}

func (r *Runner) Execute(ctx context.Context, spec any, opts ExecuteOptions) error {
	cols, err := columns.Compute(opts.Columns)
	if err != nil {
		return err
	}
	d, err := r.Dashboard(ctx, spec, opts.Filter, opts.Need|columns.NeedForColumns(cols))
	if err != nil {
		return err
	}
	return r.Renderer.Render(r.Writer, d, render.RenderOptions{
		Columns:     cols,
		Color:       opts.Color,
		PrettyJSON:  opts.PrettyJSON,
		MaxColWidth: opts.MaxColWidth,
	})
}
