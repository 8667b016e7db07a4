// Package service implements the market refresh pipeline and the read paths
// the web layer consumes. The pipeline is the only writer of the market cache
// tiers; every upstream failure is absorbed here and degraded to stale or
// empty data, never surfaced as an error to callers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"cryptodash/internal/cache"
	"cryptodash/internal/domain"
	"cryptodash/internal/favorites"
	"cryptodash/internal/infra"
	"cryptodash/internal/infra/coingecko"
	"cryptodash/internal/instrumentation"
)

const marketCacheKey = "market:top"

// errBreakerOpen short-circuits a cycle when the upstream breaker is open;
// the pipeline treats it like any other fetch failure.
var errBreakerOpen = errors.New("upstream circuit breaker open")

// Upstream is the slice of the CoinGecko client the service depends on.
type Upstream interface {
	FetchMarketBatch(ctx context.Context, quoteCurrency string) ([]coingecko.MarketEntry, error)
	FetchDetail(ctx context.Context, id string) (*coingecko.DetailEntry, error)
	FetchMarketChart(ctx context.Context, id string, days int) (*coingecko.ChartEntry, error)
	FetchSimplePrice(ctx context.Context, ids []string, vsCurrencies ...string) (map[string]map[string]decimal.Decimal, error)
}

// Config is the per-instance snapshot of refresh tuning. The service never
// reads live-mutable settings mid-cycle.
type Config struct {
	QuoteCurrency     string
	SecondaryCurrency string
	InterCallDelay    time.Duration
	PrimaryTTL        time.Duration
	BackupTTL         time.Duration
	ChartTTL          time.Duration
	ChartBackupTTL    time.Duration
}

// Market owns the refresh pipeline and the cached market view.
type Market struct {
	cfg       Config
	upstream  Upstream
	gate      *infra.RateGate
	breaker   *infra.Breaker
	favorites *favorites.Store
	metrics   *instrumentation.Metrics

	marketCache *cache.Tiered[[]domain.Crypto]
	chartCache  *cache.Tiered[domain.PriceChart]

	refreshing  atomic.Bool
	lastSuccess atomic.Int64 // unix seconds of the last successful refresh

	sleep func(context.Context, time.Duration) error
}

// NewMarket wires the pipeline. metrics may be nil.
func NewMarket(cfg Config, upstream Upstream, gate *infra.RateGate, breaker *infra.Breaker, favs *favorites.Store, metrics *instrumentation.Metrics) *Market {
	return &Market{
		cfg:         cfg,
		upstream:    upstream,
		gate:        gate,
		breaker:     breaker,
		favorites:   favs,
		metrics:     metrics,
		marketCache: cache.NewTiered[[]domain.Crypto](),
		chartCache:  cache.NewTiered[domain.PriceChart](),
		sleep:       sleepCtx,
	}
}

// Refresh produces the current market batch. On success both cache tiers are
// rewritten; on any upstream failure the batch falls back to the backup tier,
// then to empty. Refresh never returns an error: an empty batch means
// "no data yet".
func (m *Market) Refresh(ctx context.Context) []domain.Crypto {
	// A refresh younger than the primary TTL would fetch identical data;
	// serve it straight from the cache.
	if batch, ok := m.marketCache.GetFresh(marketCacheKey); ok {
		return m.annotate(batch)
	}

	m.refreshing.Store(true)
	defer m.refreshing.Store(false)

	batch, err := m.fetchAndStore(ctx)
	if err != nil {
		return m.fallback(err)
	}

	m.metrics.RecordRefresh("fresh")
	m.metrics.RecordBatch(len(batch), 0)
	m.lastSuccess.Store(time.Now().Unix())
	return batch
}

// GetCurrentBatch serves the read path: cached data when any tier is live,
// otherwise one refresh attempt — unless a refresh is already in flight, in
// which case the caller gets an empty batch now rather than blocking behind
// the gate.
func (m *Market) GetCurrentBatch(ctx context.Context, f Filters) []domain.Crypto {
	if batch, ok := m.marketCache.Get(marketCacheKey); ok {
		return ApplyFilters(m.annotate(batch), f)
	}

	if m.refreshing.Load() {
		return []domain.Crypto{}
	}

	return ApplyFilters(m.Refresh(ctx), f)
}

// Favorites returns the favorite-flagged records of the current batch.
func (m *Market) Favorites(ctx context.Context) []domain.Crypto {
	batch := m.GetCurrentBatch(ctx, Filters{})
	out := make([]domain.Crypto, 0, len(batch))
	for _, c := range batch {
		if c.IsFavorite {
			out = append(out, c)
		}
	}
	return out
}

// AddFavorite marks an asset id as favorite.
func (m *Market) AddFavorite(id string) bool { return m.favorites.Add(id) }

// RemoveFavorite unmarks an asset id.
func (m *Market) RemoveFavorite(id string) bool { return m.favorites.Remove(id) }

// FavoriteIDs returns the starred asset ids, sorted.
func (m *Market) FavoriteIDs() []string { return m.favorites.Snapshot() }

// UpstreamIdle reports how long ago the upstream was last called.
func (m *Market) UpstreamIdle() time.Duration { return m.gate.SinceLastCall() }

// PruneCaches drops cache entries whose backup slot has expired. Chart keys
// accumulate per (asset, range) pair, so this runs once per scheduled cycle.
func (m *Market) PruneCaches() {
	if n := m.chartCache.Purge() + m.marketCache.Purge(); n > 0 {
		slog.Debug("Pruned expired cache entries", slog.Int("removed", n))
	}
}

func (m *Market) fetchAndStore(ctx context.Context) ([]domain.Crypto, error) {
	if !m.breaker.Allow() {
		return nil, errBreakerOpen
	}

	if err := m.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer m.gate.Release()

	// Another caller may have finished a refresh while we waited on the gate.
	if batch, ok := m.marketCache.GetFresh(marketCacheKey); ok {
		return m.annotate(batch), nil
	}

	primary, err := m.upstream.FetchMarketBatch(ctx, m.cfg.QuoteCurrency)
	if err != nil {
		m.breaker.RecordFailure()
		m.metrics.RecordUpstreamCall("markets", callResult(err))
		return nil, err
	}
	m.metrics.RecordUpstreamCall("markets", "ok")

	// Space out the second currency view; this is on top of the gate spacing,
	// not a replacement for it.
	if err := m.sleep(ctx, m.cfg.InterCallDelay); err != nil {
		return nil, err
	}

	secondary, err := m.upstream.FetchMarketBatch(ctx, m.cfg.SecondaryCurrency)
	if err != nil {
		m.breaker.RecordFailure()
		m.metrics.RecordUpstreamCall("markets", callResult(err))
		return nil, err
	}
	m.metrics.RecordUpstreamCall("markets", "ok")
	m.breaker.RecordSuccess()

	batch := m.merge(primary, secondary)
	m.marketCache.SetPair(marketCacheKey, batch, m.cfg.PrimaryTTL, m.cfg.BackupTTL)

	slog.Info("✅ Market batch refreshed",
		slog.Int("records", len(batch)),
		slog.String("quote", m.cfg.QuoteCurrency),
		slog.String("secondary", m.cfg.SecondaryCurrency))
	return batch, nil
}

// merge joins the two currency views by asset id. A record missing from the
// secondary view keeps a zero secondary price instead of dropping out.
func (m *Market) merge(primary, secondary []coingecko.MarketEntry) []domain.Crypto {
	secondaryByID := make(map[string]coingecko.MarketEntry, len(secondary))
	for _, e := range secondary {
		secondaryByID[e.ID] = e
	}

	batch := make([]domain.Crypto, 0, len(primary))
	for _, e := range primary {
		if e.ID == "" {
			continue
		}

		c := domain.Crypto{
			ID:           e.ID,
			Name:         e.Name,
			Symbol:       strings.ToUpper(e.Symbol),
			ImageURL:     e.Image,
			PriceUSD:     deref(e.CurrentPrice),
			MarketCap:    deref(e.MarketCap),
			Volume24h:    deref(e.TotalVolume),
			Variation24h: deref(e.PriceChangePercentage24h),
			LastUpdated:  time.Now().UTC(),
			IsFavorite:   m.favorites.Contains(e.ID),
		}
		if e.LastUpdated != nil {
			c.LastUpdated = e.LastUpdated.UTC()
		}
		if sec, ok := secondaryByID[e.ID]; ok {
			c.PriceBRL = deref(sec.CurrentPrice)
		}
		batch = append(batch, c)
	}
	return batch
}

// annotate re-applies the favorite flag so reads reflect toggles made after
// the batch was built. The cached batch itself stays immutable.
func (m *Market) annotate(batch []domain.Crypto) []domain.Crypto {
	out := make([]domain.Crypto, len(batch))
	copy(out, batch)
	for i := range out {
		out[i].IsFavorite = m.favorites.Contains(out[i].ID)
	}
	return out
}

func (m *Market) fallback(cause error) []domain.Crypto {
	if batch, ok := m.marketCache.GetBackup(marketCacheKey); ok {
		slog.Warn("⚠️ Refresh failed, serving backup cache",
			slog.Int("records", len(batch)),
			slog.Any("error", cause))
		m.metrics.RecordRefresh("backup")
		m.metrics.RecordBatch(len(batch), float64(time.Now().Unix()-m.lastSuccess.Load()))
		return m.annotate(batch)
	}

	slog.Warn("⚠️ Refresh failed and no backup cache available", slog.Any("error", cause))
	m.metrics.RecordRefresh("empty")
	return []domain.Crypto{}
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func callResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, coingecko.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, coingecko.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
