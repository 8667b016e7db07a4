package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"cryptodash/internal/domain"
	"cryptodash/internal/service"
)

var csvHeader = []string{
	"id", "name", "symbol", "price_usd", "price_brl",
	"variation_24h", "market_cap", "volume_24h", "favorite", "last_updated",
}

// handleExportCSV streams the current batch as a CSV download. Field values
// have commas replaced so a naive spreadsheet import stays aligned.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	batch := s.market.GetCurrentBatch(r.Context(), service.Filters{})

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", exportFilename("cryptos", "csv"))

	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	b.WriteByte('\n')
	for _, c := range batch {
		row := []string{
			sanitizeCSV(c.ID),
			sanitizeCSV(c.Name),
			sanitizeCSV(c.Symbol),
			c.PriceUSD.String(),
			c.PriceBRL.String(),
			c.Variation24h.String(),
			c.MarketCap.String(),
			c.Volume24h.String(),
			fmt.Sprintf("%t", c.IsFavorite),
			c.LastUpdated.UTC().Format(time.RFC3339),
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	_, _ = w.Write([]byte(b.String()))
}

// handleExportJSON serves the current batch as a JSON file download.
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	batch := s.market.GetCurrentBatch(r.Context(), service.Filters{})
	if batch == nil {
		batch = []domain.Crypto{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", exportFilename("cryptos", "json"))
	_ = json.NewEncoder(w).Encode(batch)
}

var alertCSVHeader = []string{
	"crypto_id", "crypto_name", "direction", "target_price", "triggered_price", "triggered_at",
}

// handleExportAlertsCSV streams the alert trigger history as a CSV download.
func (s *Server) handleExportAlertsCSV(w http.ResponseWriter, r *http.Request) {
	history := s.alerts.History()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", exportFilename("alerts", "csv"))

	var b strings.Builder
	b.WriteString(strings.Join(alertCSVHeader, ","))
	b.WriteByte('\n')
	for _, h := range history {
		row := []string{
			sanitizeCSV(h.CryptoID),
			sanitizeCSV(h.CryptoName),
			h.Direction.String(),
			h.TargetPrice.String(),
			h.TriggeredPrice.String(),
			h.TriggeredAt.UTC().Format(time.RFC3339),
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	_, _ = w.Write([]byte(b.String()))
}

func sanitizeCSV(v string) string {
	return strings.ReplaceAll(v, ",", " ")
}

func exportFilename(prefix, ext string) string {
	return fmt.Sprintf("attachment; filename=%s_%s.%s",
		prefix, time.Now().UTC().Format("20060102_150405"), ext)
}
