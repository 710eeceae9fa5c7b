// Package snapshot writes the dashboard as static JSON files: an index of
// every fund and one detail file per fund.
package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
	"github.com/shopspring/decimal"

	"github.com/komsit37/fundwl/pkg/fundwl/types"
)

const (
	IndexName   = "funds.json"
	HoldingsDir = "holdings"
	gzipSuffix  = ".gz"
)

var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Summary is one fund in the index file.
type Summary struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	HoldingAmount    float64 `json:"holdingAmount"`
	HoldingProfit    float64 `json:"holdingProfit"`
	EstChangePct     float64 `json:"estimatedChangePct"`
	EstChangeAmount  float64 `json:"estimatedChangeAmount"`
	EstSource        string  `json:"estimateSource,omitempty"`
	HoldingsCoverage float64 `json:"holdingsCoverage"`
	HoldingsQuarter  string  `json:"holdingsQuarter"`
	LatestNav        float64 `json:"latestNav"`
	LatestNavDate    string  `json:"latestNavDate"`
	EstNav           float64 `json:"estNav"`
	EstNavTime       string  `json:"estNavTime"`
	LastUpdate       string  `json:"lastUpdate"`

	Errors map[types.Section]string `json:"errors,omitempty"`
}

// Detail is the per-fund file, the summary plus its holdings.
type Detail struct {
	Summary
	Holdings []types.HoldingStock `json:"holdings"`
}

// Index is the content of funds.json.
type Index struct {
	UpdatedAt string              `json:"updatedAt"`
	Funds     []Summary           `json:"funds"`
	Market    []types.MarketIndex `json:"market"`
}

type Options struct {
	// Gzip writes .json.gz files instead of plain JSON.
	Gzip bool
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func summarize(v types.FundView, at string) Summary {
	return Summary{
		Code:             v.Code,
		Name:             v.Name,
		HoldingAmount:    v.HoldingAmount,
		HoldingProfit:    v.HoldingProfit,
		EstChangePct:     round(v.EstChangePct, 3),
		EstChangeAmount:  v.EstGain,
		EstSource:        v.EstSource,
		HoldingsCoverage: round(v.Coverage, 2),
		HoldingsQuarter:  v.HoldingsQuarter,
		LatestNav:        v.LatestNav,
		LatestNavDate:    v.LatestNavDate,
		EstNav:           v.EstNav,
		EstNavTime:       v.EstNavTime,
		LastUpdate:       at,
		Errors:           v.Errors,
	}
}

// Build converts a dashboard into the index and the per-fund details.
func Build(d types.Dashboard) (Index, []Detail) {
	at := d.UpdatedAt.Format(time.RFC3339)
	idx := Index{UpdatedAt: at, Funds: make([]Summary, 0, len(d.Funds)), Market: d.Market}
	if idx.Market == nil {
		idx.Market = []types.MarketIndex{}
	}
	details := make([]Detail, 0, len(d.Funds))
	for _, v := range d.Funds {
		s := summarize(v, at)
		idx.Funds = append(idx.Funds, s)
		holdings := v.Holdings
		if holdings == nil {
			holdings = []types.HoldingStock{}
		}
		details = append(details, Detail{Summary: s, Holdings: holdings})
	}
	return idx, details
}

// Write stores d under dir and returns the paths written, index first.
func Write(dir string, d types.Dashboard, opts Options) ([]string, error) {
	if err := os.MkdirAll(filepath.Join(dir, HoldingsDir), 0o755); err != nil {
		return nil, err
	}
	idx, details := Build(d)

	paths := make([]string, 0, len(details)+1)
	for _, det := range details {
		p := filepath.Join(dir, HoldingsDir, det.Code+".json")
		if err := writeJSON(p, det, opts); err != nil {
			return paths, err
		}
		paths = append(paths, name(p, opts))
	}
	p := filepath.Join(dir, IndexName)
	if err := writeJSON(p, idx, opts); err != nil {
		return paths, err
	}
	return append([]string{name(p, opts)}, paths...), nil
}

func name(path string, opts Options) string {
	if opts.Gzip {
		return path + gzipSuffix
	}
	return path
}

// writeJSON encodes v into a temp file next to path and renames it into
// place, so readers never see a partial file.
func writeJSON(path string, v any, opts Options) error {
	path = name(path, opts)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var zw *gzip.Writer
	if opts.Gzip {
		zw = gzip.NewWriter(tmp)
		w = zw
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read decodes a snapshot file, gzip or plain by its suffix.
func Read(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, gzipSuffix) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
