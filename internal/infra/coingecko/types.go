package coingecko

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketEntry is one row of the /coins/markets response. Numeric fields are
// pointers because the API serves null for assets with no data in the
// requested quote currency.
type MarketEntry struct {
	ID                       string           `json:"id"`
	Symbol                   string           `json:"symbol"`
	Name                     string           `json:"name"`
	Image                    string           `json:"image"`
	CurrentPrice             *decimal.Decimal `json:"current_price"`
	MarketCap                *decimal.Decimal `json:"market_cap"`
	TotalVolume              *decimal.Decimal `json:"total_volume"`
	PriceChangePercentage24h *decimal.Decimal `json:"price_change_percentage_24h"`
	LastUpdated              *time.Time       `json:"last_updated"`
}

// DetailEntry is the /coins/{id} response, trimmed to the fields we map.
type DetailEntry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  struct {
		Large string `json:"large"`
	} `json:"image"`
	MarketData *struct {
		CurrentPrice      map[string]decimal.Decimal `json:"current_price"`
		MarketCap         map[string]decimal.Decimal `json:"market_cap"`
		CirculatingSupply *decimal.Decimal           `json:"circulating_supply"`
	} `json:"market_data"`
	LastUpdated *time.Time `json:"last_updated"`
}

// ChartEntry is the /coins/{id}/market_chart response. Each price sample is a
// [unix_ms, price] pair.
type ChartEntry struct {
	Prices [][2]decimal.Decimal `json:"prices"`
}
