// Package coingecko implements the HTTP client for the CoinGecko market-data
// API. The free tier throttles aggressively, so the client classifies 429
// responses and timeouts as distinct error kinds: the refresh pipeline picks
// its fallback strategy based on which one it gets.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"cryptodash/internal/infra"
)

var (
	// ErrRateLimited signals an upstream 429; callers fall back to cached data.
	ErrRateLimited = errors.New("coingecko: rate limited")
	// ErrTimeout signals the bounded request timeout elapsed.
	ErrTimeout = errors.New("coingecko: request timeout")
)

const transportRetries = 2

// Client talks to the CoinGecko REST API. A single instance is shared by the
// whole process so connection reuse works.
type Client struct {
	baseURL    string
	perPage    int
	httpClient *http.Client
}

// NewClient creates a client with a bounded per-request timeout.
func NewClient(baseURL string, timeout time.Duration, perPage int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		perPage: perPage,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchMarketBatch returns the top assets by market cap quoted in the given
// currency.
func (c *Client) FetchMarketBatch(ctx context.Context, quoteCurrency string) ([]MarketEntry, error) {
	q := url.Values{}
	q.Set("vs_currency", quoteCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")

	var entries []MarketEntry
	if err := c.getJSON(ctx, "/coins/markets?"+q.Encode(), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchDetail returns the extended view of a single asset.
func (c *Client) FetchDetail(ctx context.Context, id string) (*DetailEntry, error) {
	path := fmt.Sprintf("/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false",
		url.PathEscape(id))

	var entry DetailEntry
	if err := c.getJSON(ctx, path, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FetchMarketChart returns the historical price series for an asset.
func (c *Client) FetchMarketChart(ctx context.Context, id string, days int) (*ChartEntry, error) {
	path := fmt.Sprintf("/coins/%s/market_chart?vs_currency=usd&days=%d", url.PathEscape(id), days)

	var entry ChartEntry
	if err := c.getJSON(ctx, path, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FetchSimplePrice returns spot rates for the given asset ids in the given
// quote currencies.
func (c *Client) FetchSimplePrice(ctx context.Context, ids []string, vsCurrencies ...string) (map[string]map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", strings.Join(vsCurrencies, ","))

	rates := make(map[string]map[string]decimal.Decimal)
	if err := c.getJSON(ctx, "/simple/price?"+q.Encode(), &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// getJSON performs a GET and decodes the response. Transport-level failures
// are retried with exponential backoff; 429 and timeout are not, since
// repeating those only digs the hole deeper.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= transportRetries; attempt++ {
		if attempt > 0 {
			delay := infra.Backoff(attempt - 1)
			slog.Debug("Retrying upstream call",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.doGetJSON(ctx, path, out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errTransient) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// errTransient marks connection-level failures worth one more try. Rate
// limits, timeouts, bad statuses and decode failures are not in this class.
var errTransient = errors.New("coingecko: transient transport error")

func (c *Client) doGetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("coingecko: unexpected status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("coingecko: read body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("coingecko: decode response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
