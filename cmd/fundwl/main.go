package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/komsit37/fundwl/pkg/fundwl/columns"
	"github.com/komsit37/fundwl/pkg/fundwl/config"
	"github.com/komsit37/fundwl/pkg/fundwl/eastmoney"
	"github.com/komsit37/fundwl/pkg/fundwl/enrich"
	"github.com/komsit37/fundwl/pkg/fundwl/filter"
	"github.com/komsit37/fundwl/pkg/fundwl/pipeline"
	"github.com/komsit37/fundwl/pkg/fundwl/render"
	"github.com/komsit37/fundwl/pkg/fundwl/server"
	"github.com/komsit37/fundwl/pkg/fundwl/snapshot"
	"github.com/komsit37/fundwl/pkg/fundwl/source"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.New(), os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app is what every command needs once flags and config are resolved.
type app struct {
	cfg config.Config
	log zerolog.Logger
	agg *enrich.Aggregator
	out io.Writer
}

func newApp(v *viper.Viper, out io.Writer) (*app, error) {
	if err := config.ReadFile(v); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
	client := eastmoney.New(cfg.Client(log))
	return &app{
		cfg: cfg,
		log: log,
		agg: enrich.NewAggregator(client, cfg.Concurrency, log),
		out: out,
	}, nil
}

// columns resolves --columns and --sets into the final column list.
func (a *app) columns() ([]string, error) {
	cols := append([]string(nil), a.cfg.Columns...)
	if len(a.cfg.Sets) > 0 {
		fromSets, err := columns.ExpandSets(a.cfg.Sets)
		if err != nil {
			return nil, err
		}
		cols = append(cols, fromSets...)
	}
	return columns.Compute(cols)
}

// maxColWidth is the configured width, or a quarter of the terminal when the
// flag was left alone.
func (a *app) maxColWidth(flags *pflag.FlagSet) int {
	if f := flags.Lookup("max-col-width"); f != nil && !f.Changed {
		if w := detectTerminalWidth(); w > 0 {
			return max(w/4, 12)
		}
	}
	return a.cfg.MaxColWidth
}

func (a *app) registry(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Funds
}

func (a *app) list(ctx context.Context, spec string, flags *pflag.FlagSet) error {
	cols, err := a.columns()
	if err != nil {
		return err
	}
	flt, err := filter.Parse(a.cfg.Filter)
	if err != nil {
		return err
	}
	rdr, err := render.ByFormat(a.cfg.Format)
	if err != nil {
		return err
	}
	r := &pipeline.Runner{
		Source:     source.YAMLSource{},
		Aggregator: a.agg,
		Renderer:   rdr,
		Writer:     a.out,
	}
	return r.Execute(ctx, spec, pipeline.ExecuteOptions{
		Columns:     cols,
		Filter:      flt,
		Need:        enrich.NeedList,
		Color:       a.cfg.Color,
		PrettyJSON:  a.cfg.Pretty,
		MaxColWidth: a.maxColWidth(flags),
	})
}

func newRootCmd(v *viper.Viper, out io.Writer) *cobra.Command {
	var a *app
	root := &cobra.Command{
		Use:          "fundwl [registry]",
		Short:        "Live estimated valuation of a fund portfolio",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(v, out)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd.Context(), a.registry(args), cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.String("funds", "", "fund registry: a YAML file or a directory of them")
	pf.String("filter", "", "select funds by code or name: a,b | glob* | /regex/ | substring; names include the vendor's and their pinyin initials")
	pf.StringSlice("columns", nil, "columns to show: "+strings.Join(columns.Available(), ","))
	pf.StringSlice("sets", nil, "column sets to add: default,nav,holdings")
	pf.String("format", "", "output format: table, json or codes")
	pf.Bool("pretty", false, "indent JSON output")
	pf.Bool("color", true, "color gains red and losses green")
	pf.Duration("timeout", 0, "per-request timeout")
	pf.Int("concurrency", 0, "maximum concurrent upstream requests")
	pf.Duration("refresh", 0, "refresh interval for watch and serve")
	pf.String("listen", "", "listen address for serve")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Int("max-col-width", 0, "wrap table cells wider than this")
	for key, flag := range map[string]string{
		config.KeyFunds:       "funds",
		config.KeyFilter:      "filter",
		config.KeyColumns:     "columns",
		config.KeySets:        "sets",
		config.KeyFormat:      "format",
		config.KeyPretty:      "pretty",
		config.KeyColor:       "color",
		config.KeyTimeout:     "timeout",
		config.KeyConcurrency: "concurrency",
		config.KeyRefresh:     "refresh",
		config.KeyListen:      "listen",
		config.KeyLogLevel:    "log-level",
		config.KeyMaxColWidth: "max-col-width",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newDetailCmd(&a),
		newMarketCmd(&a),
		newWatchCmd(&a),
		newServeCmd(&a),
		newSnapshotCmd(&a),
	)
	return root
}

func newDetailCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <code>...",
		Short: "Show funds with their disclosed holdings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := *a
			ps, err := source.YAMLSource{}.Load(cmd.Context(), cli.cfg.Funds)
			if err != nil {
				// Codes can still be looked up without a registry.
				cli.log.Debug().Err(err).Msg("registry not loaded")
				ps = nil
			}
			funds := make([]types.Fund, 0, len(args))
			for _, code := range args {
				f, ok := source.Find(ps, code)
				if !ok {
					f = types.Fund{Code: code}
				}
				funds = append(funds, f)
			}
			d := cli.agg.Dashboard(cmd.Context(), funds, enrich.NeedDetail)

			var rdr render.Renderer = render.NewDetailRenderer()
			if cli.cfg.Format != "" && cli.cfg.Format != "table" {
				if rdr, err = render.ByFormat(cli.cfg.Format); err != nil {
					return err
				}
			}
			return rdr.Render(cli.out, d, render.RenderOptions{
				Color:       cli.cfg.Color,
				PrettyJSON:  cli.cfg.Pretty,
				MaxColWidth: cli.maxColWidth(cmd.Flags()),
			})
		},
	}
}

func newMarketCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show the reference indices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := *a
			d := types.Dashboard{UpdatedAt: time.Now()}
			m, err := cli.agg.Market(cmd.Context())
			if err != nil {
				d.MarketError = err.Error()
			}
			d.Market = m

			var rdr render.Renderer = render.NewMarketRenderer()
			if cli.cfg.Format == "json" {
				rdr = render.NewJSONRenderer()
			}
			if err := rdr.Render(cli.out, d, render.RenderOptions{Color: cli.cfg.Color, PrettyJSON: cli.cfg.Pretty}); err != nil {
				return err
			}
			if d.MarketError != "" {
				return fmt.Errorf("market: %s", d.MarketError)
			}
			return nil
		},
	}
}

func newWatchCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [registry]",
		Short: "Redraw the list every refresh interval",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := *a
			ctx := cmd.Context()
			tick := time.NewTicker(cli.cfg.Refresh)
			defer tick.Stop()
			for {
				fmt.Fprint(cli.out, "\x1b[H\x1b[2J")
				if err := cli.list(ctx, cli.registry(args), cmd.Flags()); err != nil {
					return err
				}
				fmt.Fprintf(cli.out, "\nupdated %s, every %s (ctrl-c to quit)\n", time.Now().Format("15:04:05"), cli.cfg.Refresh)
				select {
				case <-ctx.Done():
					return nil
				case <-tick.C:
				}
			}
		},
	}
}

func newServeCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [registry]",
		Short: "Serve the dashboard as JSON and over a websocket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := *a
			s := server.New(source.YAMLSource{}, cli.agg, server.Options{
				Spec:    cli.registry(args),
				Refresh: cli.cfg.Refresh,
				Logger:  cli.log,
			})
			return s.Run(cmd.Context(), cli.cfg.Listen)
		},
	}
}

func newSnapshotCmd(a **app) *cobra.Command {
	var (
		out string
		gz  bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot [registry]",
		Short: "Write funds.json and holdings/<code>.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := *a
			r := &pipeline.Runner{Source: source.YAMLSource{}, Aggregator: cli.agg}
			flt, err := filter.Parse(cli.cfg.Filter)
			if err != nil {
				return err
			}
			d, err := r.Dashboard(cmd.Context(), cli.registry(args), flt, enrich.NeedAll)
			if err != nil {
				return err
			}
			paths, err := snapshot.Write(out, d, snapshot.Options{Gzip: gz})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cli.out, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "data", "output directory")
	cmd.Flags().BoolVar(&gz, "gzip", false, "write gzip-compressed .json.gz files")
	return cmd
}
