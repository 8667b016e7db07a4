package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertDirection is the side of the threshold an alert watches.
// Modeled as a closed two-variant type so there is no casing to get wrong.
type AlertDirection int

const (
	// DirectionMax triggers when the current price is >= the target.
	DirectionMax AlertDirection = iota
	// DirectionMin triggers when the current price is <= the target.
	DirectionMin
)

func (d AlertDirection) String() string {
	switch d {
	case DirectionMax:
		return "max"
	case DirectionMin:
		return "min"
	default:
		return "unknown"
	}
}

// ParseAlertDirection converts the wire form ("max"/"min") to an AlertDirection.
func ParseAlertDirection(s string) (AlertDirection, error) {
	switch s {
	case "max":
		return DirectionMax, nil
	case "min":
		return DirectionMin, nil
	default:
		return 0, fmt.Errorf("invalid alert direction %q (want \"max\" or \"min\")", s)
	}
}

// MarshalJSON encodes the direction as its wire form.
func (d AlertDirection) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes "max" / "min", rejecting anything else.
func (d *AlertDirection) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid alert direction %s", data)
	}
	parsed, err := ParseAlertDirection(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Alert is one active price-threshold alert.
type Alert struct {
	ID          uuid.UUID       `json:"id"`
	CryptoID    string          `json:"crypto_id"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Direction   AlertDirection  `json:"direction"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Matches reports whether price satisfies the alert's threshold condition.
func (a Alert) Matches(price decimal.Decimal) bool {
	switch a.Direction {
	case DirectionMax:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case DirectionMin:
		return price.LessThanOrEqual(a.TargetPrice)
	default:
		return false
	}
}

// AlertHistory is the immutable record of one triggered alert.
type AlertHistory struct {
	CryptoID       string          `json:"crypto_id"`
	CryptoName     string          `json:"crypto_name"`
	Direction      AlertDirection  `json:"direction"`
	TargetPrice    decimal.Decimal `json:"target_price"`
	TriggeredPrice decimal.Decimal `json:"triggered_price"`
	TriggeredAt    time.Time       `json:"triggered_at"`
}
