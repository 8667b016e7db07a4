package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Crypto is one asset's snapshot as produced by a refresh cycle.
// Batches are immutable: a refresh builds a fresh slice and swaps it in,
// records are never mutated in place.
type Crypto struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	ImageURL     string          `json:"image_url"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	PriceBRL     decimal.Decimal `json:"price_brl"`
	Variation24h decimal.Decimal `json:"variation_24h"`
	MarketCap    decimal.Decimal `json:"market_cap"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	LastUpdated  time.Time       `json:"last_updated"`
	IsFavorite   bool            `json:"is_favorite"`
}

// CryptoDetail holds the extended view for a single asset.
type CryptoDetail struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Symbol            string          `json:"symbol"`
	ImageURL          string          `json:"image_url"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	MarketCap         decimal.Decimal `json:"market_cap"`
	CirculatingSupply decimal.Decimal `json:"circulating_supply"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// PricePoint is one sample of a historical price chart.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// PriceChart is the historical price series for one asset.
type PriceChart struct {
	ID     string       `json:"id"`
	Days   int          `json:"days"`
	Points []PricePoint `json:"points"`
}

// ExchangeRates maps asset id -> quote currency -> rate.
type ExchangeRates map[string]map[string]decimal.Decimal
