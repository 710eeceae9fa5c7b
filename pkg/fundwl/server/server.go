// Package server exposes the dashboard over HTTP and pushes it to websocket
// clients on every refresh.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"

	"github.com/komsit37/fundwl/pkg/fundwl/enrich"
	"github.com/komsit37/fundwl/pkg/fundwl/filter"
	"github.com/komsit37/fundwl/pkg/fundwl/pipeline"
	"github.com/komsit37/fundwl/pkg/fundwl/source"
	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

// Backend builds the view-models served by the API. *enrich.Aggregator
// implements it.
type Backend interface {
	Dashboard(ctx context.Context, funds []types.Fund, need enrich.NeedMask) types.Dashboard
	Fund(ctx context.Context, f types.Fund, need enrich.NeedMask) types.FundView
	Market(ctx context.Context) ([]types.MarketIndex, error)
}

// ErrUnknownFund is returned for codes missing from the registry.
var ErrUnknownFund = errors.New("fund not in registry")

type Options struct {
	// Spec is passed to Source.Load on every request, so registry edits
	// show up without a restart.
	Spec    any
	Refresh time.Duration
	Ping    time.Duration
	Logger  zerolog.Logger
}

type Server struct {
	src     source.Source
	backend Backend
	runner  *pipeline.Runner
	opts    Options
	log     zerolog.Logger
	engine  *gin.Engine
}

func New(src source.Source, backend Backend, opts Options) *Server {
	if opts.Refresh <= 0 {
		opts.Refresh = 30 * time.Second
	}
	if opts.Ping <= 0 {
		opts.Ping = 10 * time.Second
	}
	s := &Server{
		src:     src,
		backend: backend,
		runner:  &pipeline.Runner{Source: src, Aggregator: backend},
		opts:    opts,
		log:     opts.Logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	api := r.Group("/api")
	api.GET("/dashboard", s.dashboard)
	api.GET("/funds/:code", s.fund)
	api.GET("/market", s.market)

	r.GET("/ws/dashboard", s.watch)

	s.engine = r
	return s
}

// Handler returns the HTTP handler. API responses are gzip-compressed when
// the client accepts it; websocket upgrades bypass compression.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws/", s.engine)
	mux.Handle("/", gzhttp.GzipHandler(s.engine))
	return mux
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("took", time.Since(start)).
		Msg("request")
}

func (s *Server) dashboard(c *gin.Context) {
	flt, err := filter.Parse(c.Query("filter"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	d, err := s.runner.Dashboard(c.Request.Context(), s.opts.Spec, flt, enrich.NeedList)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	success(c, d)
}

func (s *Server) fund(c *gin.Context) {
	code := c.Param("code")
	ps, err := s.src.Load(c.Request.Context(), s.opts.Spec)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	f, ok := source.Find(ps, code)
	if !ok {
		fail(c, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownFund, code))
		return
	}
	success(c, s.backend.Fund(c.Request.Context(), f, enrich.NeedDetail))
}

func (s *Server) market(c *gin.Context) {
	m, err := s.backend.Market(c.Request.Context())
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	success(c, m)
}

// watch sends a dashboard right away and again every refresh interval
// until the client goes away.
func (s *Server) watch(c *gin.Context) {
	flt, err := filter.Parse(c.Query("filter"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	cn := &conn{ws: ws}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	done := make(chan struct{})
	go cn.drain(done)
	// A departed peer aborts the fetch in flight.
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	push := func() error {
		d, err := s.runner.Dashboard(ctx, s.opts.Spec, flt, enrich.NeedList)
		if err != nil {
			return cn.writeJSON(Envelope{Status: false, Msg: err.Error()})
		}
		return cn.writeJSON(Envelope{Status: true, Data: d})
	}

	refresh := time.NewTicker(s.opts.Refresh)
	defer refresh.Stop()
	ping := time.NewTicker(s.opts.Ping)
	defer ping.Stop()

	if err := push(); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-refresh.C:
			if err := push(); err != nil {
				s.log.Debug().Err(err).Msg("websocket push")
				return
			}
		case <-ping.C:
			if err := cn.ping(); err != nil {
				return
			}
		}
	}
}
