package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cryptodash/internal/domain"
)

// GetDetail fetches the extended view of one asset straight from upstream.
// Detail lookups are user-driven and rare, so they bypass the batch cache but
// still surface upstream errors to the caller.
func (m *Market) GetDetail(ctx context.Context, id string) (*domain.CryptoDetail, error) {
	entry, err := m.upstream.FetchDetail(ctx, id)
	if err != nil {
		m.metrics.RecordUpstreamCall("detail", callResult(err))
		return nil, fmt.Errorf("detail %s: %w", id, err)
	}
	m.metrics.RecordUpstreamCall("detail", "ok")

	detail := &domain.CryptoDetail{
		ID:       entry.ID,
		Name:     entry.Name,
		Symbol:   entry.Symbol,
		ImageURL: entry.Image.Large,
	}
	if entry.MarketData != nil {
		detail.CurrentPrice = entry.MarketData.CurrentPrice["usd"]
		detail.MarketCap = entry.MarketData.MarketCap["usd"]
		if entry.MarketData.CirculatingSupply != nil {
			detail.CirculatingSupply = *entry.MarketData.CirculatingSupply
		}
	}
	if entry.LastUpdated != nil {
		detail.LastUpdated = entry.LastUpdated.UTC()
	}
	return detail, nil
}

// GetPriceChart returns the price series for (id, days), cached in its own
// tier pair. Chart fetches go through the same rate gate as the batch refresh
// and degrade to the backup tier on upstream failure.
func (m *Market) GetPriceChart(ctx context.Context, id string, days int) domain.PriceChart {
	key := fmt.Sprintf("chart:%s:%d", id, days)

	if chart, ok := m.chartCache.GetFresh(key); ok {
		return chart
	}

	chart, err := m.fetchChart(ctx, id, days)
	if err != nil {
		if backup, ok := m.chartCache.GetBackup(key); ok {
			slog.Warn("⚠️ Chart fetch failed, serving backup",
				slog.String("id", id),
				slog.Any("error", err))
			return backup
		}
		slog.Warn("⚠️ Chart fetch failed, no backup available",
			slog.String("id", id),
			slog.Any("error", err))
		return domain.PriceChart{ID: id, Days: days}
	}
	return chart
}

func (m *Market) fetchChart(ctx context.Context, id string, days int) (domain.PriceChart, error) {
	if err := m.gate.Acquire(ctx); err != nil {
		return domain.PriceChart{}, err
	}
	defer m.gate.Release()

	key := fmt.Sprintf("chart:%s:%d", id, days)
	if chart, ok := m.chartCache.GetFresh(key); ok {
		return chart, nil
	}

	entry, err := m.upstream.FetchMarketChart(ctx, id, days)
	if err != nil {
		m.metrics.RecordUpstreamCall("chart", callResult(err))
		return domain.PriceChart{}, err
	}
	m.metrics.RecordUpstreamCall("chart", "ok")

	chart := domain.PriceChart{
		ID:     id,
		Days:   days,
		Points: make([]domain.PricePoint, 0, len(entry.Prices)),
	}
	for _, p := range entry.Prices {
		chart.Points = append(chart.Points, domain.PricePoint{
			Timestamp: time.UnixMilli(p[0].IntPart()).UTC(),
			Price:     p[1],
		})
	}

	m.chartCache.SetPair(key, chart, m.cfg.ChartTTL, m.cfg.ChartBackupTTL)
	return chart, nil
}

// GetExchangeRates returns spot rates for the given asset ids in base.
// Empty input yields an empty result rather than an upstream call.
func (m *Market) GetExchangeRates(ctx context.Context, base string, ids ...string) (domain.ExchangeRates, error) {
	if base == "" || len(ids) == 0 {
		return domain.ExchangeRates{}, nil
	}

	rates, err := m.upstream.FetchSimplePrice(ctx, ids, base)
	if err != nil {
		m.metrics.RecordUpstreamCall("simple_price", callResult(err))
		return nil, fmt.Errorf("exchange rates: %w", err)
	}
	m.metrics.RecordUpstreamCall("simple_price", "ok")
	return domain.ExchangeRates(rates), nil
}
