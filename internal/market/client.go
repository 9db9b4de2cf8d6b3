// Package market fetches crypto market data from a CoinGecko-compatible API
// and keeps the latest prices for portfolio valuation.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/log"
)

const (
	DefaultBaseURL  = "https://api.coingecko.com/api/v3"
	DefaultCurrency = "usd"
	defaultPerPage  = 50
	maxPerPage      = 250
	maxParallel     = 4
)

// Coin is one entry of the /coins/markets response.
type Coin struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Image          string          `json:"image"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	MarketCap      decimal.Decimal `json:"market_cap"`
	MarketCapRank  int             `json:"market_cap_rank"`
	PriceChange24h float64         `json:"price_change_percentage_24h"`
	Sparkline      Sparkline       `json:"sparkline_in_7d"`
}

type Sparkline struct {
	Price []float64 `json:"price"`
}

type Query struct {
	VsCurrency string
	Page       int
	PerPage    int
	IDs        []string
}

func (q Query) normalized() Query {
	if q.VsCurrency == "" {
		q.VsCurrency = DefaultCurrency
	}
	q.VsCurrency = strings.ToLower(q.VsCurrency)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	q.PerPage = min(q.PerPage, maxPerPage)
	ids := slices.Clone(q.IDs)
	slices.Sort(ids)
	q.IDs = slices.Compact(ids)
	return q
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("vs_currency", q.VsCurrency)
	v.Set("order", "market_cap_desc")
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	v.Set("sparkline", "true")
	v.Set("price_change_percentage", "24h")
	if len(q.IDs) > 0 {
		v.Set("ids", strings.Join(q.IDs, ","))
	}
	return v
}

var errDecode = errors.New("decode market response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("market api: status %d: %s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxRetries int
	// RetryBase is the first retry delay; later delays double up to RetryMax.
	RetryBase time.Duration
	RetryMax  time.Duration
	// PageSize bounds the pages TopN requests.
	PageSize int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    10 * time.Second,
		CacheTTL:   time.Minute,
		MaxRetries: 3,
		RetryBase:  500 * time.Millisecond,
		RetryMax:   8 * time.Second,
		PageSize:   maxPerPage,
	}
}

// Client is safe for concurrent use. Identical in-flight requests share one
// upstream call and successful responses are cached for CacheTTL.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  *gocache.Cache
	group  singleflight.Group
	logger *log.Logger
}

func NewClient(cfg Config, logger *log.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = def.RetryMax
	}
	if cfg.PageSize < 1 || cfg.PageSize > maxPerPage {
		cfg.PageSize = def.PageSize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger: logger.WithComponent(log.ComponentMarket),
	}
}

// Markets returns one page of coins ordered by market cap.
func (c *Client) Markets(ctx context.Context, q Query) ([]Coin, error) {
	q = q.normalized()
	key := q.values().Encode()

	if cached, ok := c.cache.Get(key); ok {
		return slices.Clone(cached.([]Coin)), nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// detached so one cancelled caller does not fail the others
		coins, err := c.fetchWithRetry(context.WithoutCancel(ctx), q)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, coins, gocache.DefaultExpiration)
		return coins, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Coin)), nil
	}
}

// TopN fetches the n largest coins, requesting pages in parallel.
func (c *Client) TopN(ctx context.Context, vsCurrency string, n int) ([]Coin, error) {
	if n < 1 {
		return nil, nil
	}
	perPage := min(n, c.cfg.PageSize)
	pages := (n + perPage - 1) / perPage
	results := make([][]Coin, pages)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i := range pages {
		g.Go(func() error {
			coins, err := c.Markets(ctx, Query{VsCurrency: vsCurrency, Page: i + 1, PerPage: perPage})
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			results[i] = coins
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Coin, 0, n)
	for _, page := range results {
		out = append(out, page...)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, q Query) ([]Coin, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryDelay(attempt - 1)
			c.logger.WarnContext(ctx, "Retrying market request",
				"attempt", attempt,
				"retry_in", wait.String(),
				log.FieldError, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		coins, err := c.fetch(ctx, q)
		if err == nil {
			c.logger.DebugContext(ctx, "Fetched market page", "page", q.Page, "count", len(coins))
			return coins, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) retryDelay(attempt int) time.Duration {
	d := c.cfg.RetryBase << attempt
	if d <= 0 || d > c.cfg.RetryMax {
		return c.cfg.RetryMax
	}
	return d
}

func (c *Client) fetch(ctx context.Context, q Query) ([]Coin, error) {
	endpoint := c.cfg.BaseURL + "/coins/markets?" + q.values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var coins []Coin
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, fmt.Errorf("%w: %v", errDecode, err)
	}
	return coins, nil
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return !errors.Is(err, errDecode)
}
