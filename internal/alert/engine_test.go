package alert

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptodash/internal/domain"
)

func batchWith(id string, price int64) []domain.Crypto {
	return []domain.Crypto{{
		ID:       id,
		Name:     "Bitcoin",
		PriceUSD: decimal.NewFromInt(price),
	}}
}

func TestEngine_Add_Validation(t *testing.T) {
	e := NewEngine()

	t.Run("rejects non-positive target", func(t *testing.T) {
		_, err := e.Add(domain.Alert{CryptoID: "bitcoin", TargetPrice: decimal.Zero, Direction: domain.DirectionMax})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = e.Add(domain.Alert{CryptoID: "bitcoin", TargetPrice: decimal.NewFromInt(-5), Direction: domain.DirectionMax})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, e.Active())
	})

	t.Run("rejects empty crypto id", func(t *testing.T) {
		_, err := e.Add(domain.Alert{TargetPrice: decimal.NewFromInt(100), Direction: domain.DirectionMin})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("assigns id and timestamp", func(t *testing.T) {
		a, err := e.Add(domain.Alert{CryptoID: "bitcoin", TargetPrice: decimal.NewFromInt(100), Direction: domain.DirectionMax})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, a.ID)
		assert.False(t, a.CreatedAt.IsZero())
	})
}

func TestEngine_Evaluate_TriggersMaxOnce(t *testing.T) {
	e := NewEngine()
	a, err := e.Add(domain.Alert{
		CryptoID:    "bitcoin",
		TargetPrice: decimal.NewFromInt(65000),
		Direction:   domain.DirectionMax,
	})
	require.NoError(t, err)

	batch := batchWith("bitcoin", 70000)

	triggered := e.Evaluate(batch)
	require.Len(t, triggered, 1)
	assert.Equal(t, "bitcoin", triggered[0].CryptoID)
	assert.Equal(t, "Bitcoin", triggered[0].CryptoName)
	assert.True(t, triggered[0].TriggeredPrice.Equal(decimal.NewFromInt(70000)))
	assert.True(t, triggered[0].TargetPrice.Equal(decimal.NewFromInt(65000)))
	assert.Equal(t, domain.DirectionMax, triggered[0].Direction)

	// The alert is gone from the active set and exactly one history record exists.
	assert.Empty(t, e.Active())
	require.Len(t, e.History(), 1)
	assert.False(t, e.Remove(a.ID), "triggered alert should already be removed")

	// Re-running with the same batch is a no-op.
	assert.Empty(t, e.Evaluate(batch))
	assert.Len(t, e.History(), 1)
}

func TestEngine_Evaluate_MinDirection(t *testing.T) {
	e := NewEngine()
	_, err := e.Add(domain.Alert{
		CryptoID:    "bitcoin",
		TargetPrice: decimal.NewFromInt(65000),
		Direction:   domain.DirectionMin,
	})
	require.NoError(t, err)

	// 70000 > 65000: a min alert must NOT fire.
	assert.Empty(t, e.Evaluate(batchWith("bitcoin", 70000)))
	assert.Len(t, e.Active(), 1)

	// At 60000 it fires.
	triggered := e.Evaluate(batchWith("bitcoin", 60000))
	require.Len(t, triggered, 1)
	assert.True(t, triggered[0].TriggeredPrice.Equal(decimal.NewFromInt(60000)))
}

func TestEngine_Evaluate_ExactTargetTriggers(t *testing.T) {
	e := NewEngine()
	_, err := e.Add(domain.Alert{
		CryptoID:    "bitcoin",
		TargetPrice: decimal.NewFromInt(65000),
		Direction:   domain.DirectionMax,
	})
	require.NoError(t, err)

	assert.Len(t, e.Evaluate(batchWith("bitcoin", 65000)), 1)
}

func TestEngine_Evaluate_MissingAssetSkipped(t *testing.T) {
	e := NewEngine()
	_, err := e.Add(domain.Alert{
		CryptoID:    "dogecoin",
		TargetPrice: decimal.NewFromInt(1),
		Direction:   domain.DirectionMax,
	})
	require.NoError(t, err)

	// Batch lacks dogecoin: no trigger, no removal.
	assert.Empty(t, e.Evaluate(batchWith("bitcoin", 70000)))
	assert.Len(t, e.Active(), 1)
	assert.Empty(t, e.History())
}

func TestEngine_Evaluate_EmptyBatch(t *testing.T) {
	e := NewEngine()
	_, err := e.Add(domain.Alert{
		CryptoID:    "bitcoin",
		TargetPrice: decimal.NewFromInt(1),
		Direction:   domain.DirectionMax,
	})
	require.NoError(t, err)

	assert.Empty(t, e.Evaluate(nil))
	assert.Len(t, e.Active(), 1)
}

func TestEngine_Remove(t *testing.T) {
	e := NewEngine()
	a, err := e.Add(domain.Alert{
		CryptoID:    "bitcoin",
		TargetPrice: decimal.NewFromInt(100),
		Direction:   domain.DirectionMin,
	})
	require.NoError(t, err)

	assert.True(t, e.Remove(a.ID))
	assert.False(t, e.Remove(a.ID))
	// Explicit removal leaves no history entry.
	assert.Empty(t, e.History())
}
