// Package eastmoney talks to the eastmoney / 1234567 market-data endpoints:
// the fundgz valuation script, the push2 quote list and the fundmob holdings
// disclosure.
package eastmoney

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/komsit37/fundwl/pkg/fundwl/jsonp"
)

// Default upstream base URLs.
const (
	DefaultPush2Base  = "https://push2.eastmoney.com"
	DefaultFundmobURL = "https://fundmobapi.eastmoney.com"
	DefaultFundgzBase = "https://fundgz.1234567.com.cn"
)

const (
	ulistPath    = "/api/qt/ulist.np/get"
	holdingsPath = "/FundMNewApi/FundMNInverstPosition"
	baseInfoPath = "/FundMApi/FundBaseTypeInformation.ashx"

	acceptHeader = "application/json, text/plain, */*"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// deviceParams are the fixed app identifiers the mobile endpoints expect.
var deviceParams = map[string]string{
	"deviceid": "Wap",
	"plat":     "Wap",
	"product":  "EFund",
	"version":  "2.0.0",
	"Uid":      "",
}

// Config configures a Client. Zero fields take their defaults.
type Config struct {
	Push2Base  string
	FundmobURL string
	FundgzBase string
	Timeout    time.Duration

	// Slots holds the named callbacks used by the valuation script.
	// Clients sharing a Slots share its callback names.
	Slots  *jsonp.Slots
	Logger zerolog.Logger
}

// Client fetches valuations, quotes, indices and holdings.
// It keeps no state between calls besides its callback slots.
type Client struct {
	http    *resty.Client
	scripts *jsonp.Loader
	slots   *jsonp.Slots
	cfg     Config
	log     zerolog.Logger
	now     func() time.Time
}

// New returns a client for cfg.
func New(cfg Config) *Client {
	if cfg.Push2Base == "" {
		cfg.Push2Base = DefaultPush2Base
	}
	if cfg.FundmobURL == "" {
		cfg.FundmobURL = DefaultFundmobURL
	}
	if cfg.FundgzBase == "" {
		cfg.FundgzBase = DefaultFundgzBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Slots == nil {
		cfg.Slots = &jsonp.Slots{}
	}
	hc := resty.New().SetTimeout(cfg.Timeout)
	return &Client{
		http:    hc,
		scripts: jsonp.NewLoader(hc),
		slots:   cfg.Slots,
		cfg:     cfg,
		log:     cfg.Logger,
		now:     time.Now,
	}
}

// SetClock replaces the clock used for cache-busting timestamps.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
	c.scripts.SetClock(now)
}

// Scripts exposes the script loader, mainly to inspect attached scripts.
func (c *Client) Scripts() *jsonp.Loader { return c.scripts }

func (c *Client) timestamp() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}

// getJSON performs a REST GET and returns the body of a 2xx response.
func (c *Client) getJSON(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHeader).
		SetQueryParams(params).
		SetQueryParam("_", c.timestamp()).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	c.log.Debug().Str("url", url).Int("status", resp.StatusCode()).Dur("took", time.Since(start)).Msg("fetched")
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status())
	}
	return resp.Body(), nil
}

// ulistRow is one row of the push2 ulist response. With fltt=2 numbers come
// as JSON numbers, but suspended securities report "-".
type ulistRow struct {
	F2  any `json:"f2"`  // price
	F3  any `json:"f3"`  // change percent
	F4  any `json:"f4"`  // change
	F12 any `json:"f12"` // code
	F13 any `json:"f13"` // market
	F14 any `json:"f14"` // name
}

type ulistResponse struct {
	Data *struct {
		Diff []ulistRow `json:"diff"`
	} `json:"data"`
}

func (c *Client) ulist(ctx context.Context, params map[string]string) ([]ulistRow, error) {
	body, err := c.getJSON(ctx, c.cfg.Push2Base+ulistPath, params)
	if err != nil {
		return nil, err
	}
	var res ulistResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode ulist: %w", err)
	}
	if res.Data == nil {
		return nil, nil
	}
	return res.Data.Diff, nil
}
