package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptodash/internal/alert"
	"cryptodash/internal/domain"
	"cryptodash/internal/favorites"
	"cryptodash/internal/infra"
	"cryptodash/internal/infra/coingecko"
	"cryptodash/internal/service"
	"cryptodash/internal/settings"
)

type stubUpstream struct {
	batches map[string][]coingecko.MarketEntry
	err     error
}

func (s *stubUpstream) FetchMarketBatch(ctx context.Context, quote string) ([]coingecko.MarketEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.batches[quote], nil
}

func (s *stubUpstream) FetchDetail(ctx context.Context, id string) (*coingecko.DetailEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &coingecko.DetailEntry{ID: id, Name: "Bitcoin", Symbol: "btc"}, nil
}

func (s *stubUpstream) FetchMarketChart(ctx context.Context, id string, days int) (*coingecko.ChartEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &coingecko.ChartEntry{
		Prices: [][2]decimal.Decimal{{decimal.NewFromInt(1717243200000), decimal.NewFromInt(70000)}},
	}, nil
}

func (s *stubUpstream) FetchSimplePrice(ctx context.Context, ids []string, vs ...string) (map[string]map[string]decimal.Decimal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]map[string]decimal.Decimal{
		"bitcoin": {"usd": decimal.NewFromInt(70000)},
	}, nil
}

func entries() map[string][]coingecko.MarketEntry {
	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	return map[string][]coingecko.MarketEntry{
		"usd": {
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: price("70000"), MarketCap: price("1380000000000")},
			{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: price("3500"), MarketCap: price("420000000000")},
		},
		"brl": {
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: price("385000")},
		},
	}
}

func newTestServer(t *testing.T, up service.Upstream) *Server {
	t.Helper()

	cfg := service.Config{
		QuoteCurrency:     "usd",
		SecondaryCurrency: "brl",
		PrimaryTTL:        time.Hour,
		BackupTTL:         time.Hour,
		ChartTTL:          time.Hour,
		ChartBackupTTL:    time.Hour,
	}
	breaker := infra.NewBreaker(infra.BreakerConfig{
		Name:             "test",
		FailureThreshold: 100,
		SuccessThreshold: 1,
		Cooldown:         time.Hour,
	})
	market := service.NewMarket(cfg, up, infra.NewRateGate(0), breaker, favorites.NewStore(), nil)

	store := settings.NewStore(settings.Settings{
		UpdateIntervalSec: 300,
		DefaultCurrency:   "usd",
		CacheTTLMin:       2,
		BackupCacheTTLMin: 30,
	})

	return NewServer(0, market, alert.NewEngine(), store, nil)
}

func doRequest(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandleListCryptos(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/cryptos", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var batch []domain.Crypto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch, 2)
	assert.Equal(t, "bitcoin", batch[0].ID)
}

func TestHandleListCryptos_SearchFilter(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/cryptos?search=eth", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var batch []domain.Crypto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch, 1)
	assert.Equal(t, "ethereum", batch[0].ID)
}

func TestHandlePriceChart_RejectsBadDays(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/cryptos/bitcoin/chart?days=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/cryptos/bitcoin/chart?days=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/cryptos/bitcoin/chart?days=30", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFavoritesEndpoints(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodPost, "/api/favorites/bitcoin", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/favorites/bitcoin", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "double add is rejected")

	rec = doRequest(t, s, http.MethodGet, "/api/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var favs []domain.Crypto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	require.Len(t, favs, 1)
	assert.True(t, favs[0].IsFavorite)

	rec = doRequest(t, s, http.MethodGet, "/api/favorites/ids", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Equal(t, []string{"bitcoin"}, ids)

	rec = doRequest(t, s, http.MethodDelete, "/api/favorites/bitcoin", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/favorites/bitcoin", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertEndpoints(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodPost, "/api/alerts",
		`{"crypto_id":"bitcoin","target_price":"65000","direction":"max"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "bitcoin", created.CryptoID)

	rec = doRequest(t, s, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var active []domain.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.Len(t, active, 1)

	rec = doRequest(t, s, http.MethodDelete, "/api/alerts/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/alerts/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertEndpoints_Validation(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	cases := []string{
		`{"crypto_id":"","target_price":"65000","direction":"max"}`,
		`{"crypto_id":"bitcoin","target_price":"0","direction":"max"}`,
		`{"crypto_id":"bitcoin","target_price":"65000","direction":"sideways"}`,
		`{"crypto_id":"bitcoin","target_price":"65000"}`,
		`not json at all`,
	}
	for _, body := range cases {
		rec := doRequest(t, s, http.MethodPost, "/api/alerts", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}

	rec := doRequest(t, s, http.MethodDelete, "/api/alerts/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertHistoryEmpty(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/alerts/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPut, "/api/settings",
		`{"update_interval_sec":600,"default_currency":"brl","cache_ttl_min":5,"backup_cache_ttl_min":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var applied settings.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.Equal(t, 600, applied.UpdateIntervalSec)
	assert.Equal(t, "BRL", applied.DefaultCurrency)

	rec = doRequest(t, s, http.MethodPut, "/api/settings",
		`{"update_interval_sec":5,"default_currency":"usd","cache_ttl_min":5,"backup_cache_ttl_min":60}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/settings/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.Equal(t, 300, applied.UpdateIntervalSec)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/export/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename=cryptos_")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3, "header plus two records")
	assert.True(t, strings.HasPrefix(lines[0], "id,name,symbol"))
	assert.True(t, strings.HasPrefix(lines[1], "bitcoin,Bitcoin,BTC,70000"))
}

func TestExportJSON(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/export/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".json")

	var batch []domain.Crypto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Len(t, batch, 2)
}

func TestExportAlertsCSV_EmptyHistory(t *testing.T) {
	s := newTestServer(t, &stubUpstream{batches: entries()})

	rec := doRequest(t, s, http.MethodGet, "/api/export/alerts/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename=alerts_")
	assert.Equal(t, "crypto_id,crypto_name,direction,target_price,triggered_price,triggered_at",
		strings.TrimSpace(rec.Body.String()), "empty history exports only the header")
}

func TestHandleDetail_UpstreamError(t *testing.T) {
	s := newTestServer(t, &stubUpstream{err: coingecko.ErrRateLimited})

	rec := doRequest(t, s, http.MethodGet, "/api/cryptos/bitcoin", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
