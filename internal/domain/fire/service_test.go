package fire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceInterval(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()

	t.Run("valid inputs", func(t *testing.T) {
		t.Parallel()
		days, err := svc.Interval(80, 100, nil)
		require.NoError(t, err)
		assert.Equal(t, 21, days) // 14 base * 1.5
	})

	t.Run("rejects mastery out of range", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Interval(101, 50, nil)
		assert.ErrorIs(t, err, ErrInvalidMastery)

		_, err = svc.Interval(-1, 50, nil)
		assert.ErrorIs(t, err, ErrInvalidMastery)
	})

	t.Run("rejects accuracy out of range", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Interval(50, 101, nil)
		assert.ErrorIs(t, err, ErrInvalidAccuracy)
	})

	t.Run("rejects non-positive previous interval", func(t *testing.T) {
		t.Parallel()
		zero := 0
		_, err := svc.Interval(50, 80, &zero)
		assert.ErrorIs(t, err, ErrInvalidPrevious)
	})
}

func TestServiceNextReviewAt(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	nextReview, days, err := svc.NextReviewAt(50, 80, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 5, days)
	assert.Equal(t, now.AddDate(0, 0, 5), nextReview)
}

func TestServiceShouldPropagate(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()

	assert.True(t, svc.ShouldPropagate(75))
	assert.True(t, svc.ShouldPropagate(100))
	assert.False(t, svc.ShouldPropagate(74))
	assert.False(t, svc.ShouldPropagate(0))
}

func TestNewParamsOverrides(t *testing.T) {
	t.Parallel()

	params := NewParams(ParamsConfig{
		MinIntervalDays: 2,
		MaxIntervalDays: 30,
	})

	assert.Equal(t, 2, params.MinIntervalDays)
	assert.Equal(t, 30, params.MaxIntervalDays)
	// Untouched fields keep their defaults.
	assert.Equal(t, 90, params.ExcellentAccuracy)
	assert.Equal(t, 75, params.DoublingAccuracy)
}
