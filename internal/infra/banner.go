package infra

import (
	"fmt"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with the effective tuning.
func PrintBanner(cfg *Config) {
	color := ColorCyan
	if cfg.Scheduler.UpdateIntervalSec <= minUpdateInterval {
		// Running at the floor means someone asked for more than the
		// upstream free tier allows.
		color = ColorYellow
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#               📊 CryptoDash Market Monitor              #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   VERSION:  %-35s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   QUOTES:   %-35s #%s\n", color, cfg.Market.QuoteCurrency+" / "+cfg.Market.SecondaryCurrency, ColorReset)
	fmt.Printf("%s#   INTERVAL: %-35s #%s\n", color, cfg.UpdateInterval().String(), ColorReset)
	fmt.Printf("%s#   PORT:     %-35d #%s\n", color, cfg.HTTP.Port, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
