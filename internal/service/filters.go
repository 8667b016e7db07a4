package service

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"cryptodash/internal/domain"
)

// Filters narrows and orders a batch on the read path. The zero value keeps
// every record and applies the default ordering (market cap, descending).
type Filters struct {
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Variation string // "positive", "negative" or empty
	OrderBy   string // marketcap, price, volume, variation, name
	Direction string // "asc" or "desc" (default)
}

// ApplyFilters returns a new slice; the input batch is never reordered in
// place since callers may share it.
func ApplyFilters(batch []domain.Crypto, f Filters) []domain.Crypto {
	out := make([]domain.Crypto, 0, len(batch))

	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, c := range batch {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Symbol), search) {
			continue
		}
		if f.MinPrice != nil && c.PriceUSD.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && c.PriceUSD.GreaterThan(*f.MaxPrice) {
			continue
		}
		switch strings.ToLower(f.Variation) {
		case "positive":
			if !c.Variation24h.IsPositive() {
				continue
			}
		case "negative":
			if !c.Variation24h.IsNegative() {
				continue
			}
		}
		out = append(out, c)
	}

	asc := strings.EqualFold(f.Direction, "asc")
	less := orderFunc(strings.ToLower(f.OrderBy))
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})

	return out
}

func orderFunc(orderBy string) func(a, b domain.Crypto) bool {
	switch orderBy {
	case "price":
		return func(a, b domain.Crypto) bool { return a.PriceUSD.LessThan(b.PriceUSD) }
	case "volume":
		return func(a, b domain.Crypto) bool { return a.Volume24h.LessThan(b.Volume24h) }
	case "variation":
		return func(a, b domain.Crypto) bool { return a.Variation24h.LessThan(b.Variation24h) }
	case "name":
		return func(a, b domain.Crypto) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default: // marketcap
		return func(a, b domain.Crypto) bool { return a.MarketCap.LessThan(b.MarketCap) }
	}
}
