package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMasteryRecord(t *testing.T) {
	t.Parallel()

	learner := NewSessionLearner("sess-1")
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("sets last practiced and leaves review unscheduled", func(t *testing.T) {
		t.Parallel()
		rec, err := NewMasteryRecord(learner, "fractions", 55, now)
		require.NoError(t, err)
		require.NotNil(t, rec.LastPracticed)
		assert.Equal(t, now, *rec.LastPracticed)
		assert.Nil(t, rec.NextReview)
		assert.Equal(t, 55, rec.MasteryLevel)
	})

	t.Run("clamps out-of-range levels", func(t *testing.T) {
		t.Parallel()
		rec, err := NewMasteryRecord(learner, "fractions", 150, now)
		require.NoError(t, err)
		assert.Equal(t, MaxMasteryLevel, rec.MasteryLevel)

		rec, err = NewMasteryRecord(learner, "fractions", -10, now)
		require.NoError(t, err)
		assert.Equal(t, MinMasteryLevel, rec.MasteryLevel)
	})

	t.Run("rejects empty topic", func(t *testing.T) {
		t.Parallel()
		_, err := NewMasteryRecord(learner, "", 50, now)
		assert.ErrorIs(t, err, ErrEmptyMasteryTopicID)
	})
}

func TestMasteryRecordCurrentInterval(t *testing.T) {
	t.Parallel()

	practiced := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	review := practiced.AddDate(0, 0, 10)

	t.Run("derives whole days between timestamps", func(t *testing.T) {
		t.Parallel()
		rec := &MasteryRecord{LastPracticed: &practiced, NextReview: &review}
		days, ok := rec.CurrentInterval()
		assert.True(t, ok)
		assert.Equal(t, 10, days)
	})

	t.Run("no interval without both timestamps", func(t *testing.T) {
		t.Parallel()
		rec := &MasteryRecord{LastPracticed: &practiced}
		_, ok := rec.CurrentInterval()
		assert.False(t, ok)

		rec = &MasteryRecord{NextReview: &review}
		_, ok = rec.CurrentInterval()
		assert.False(t, ok)
	})
}

func TestMasteryRecordIsDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	assert.True(t, (&MasteryRecord{NextReview: &past}).IsDue(now))
	assert.True(t, (&MasteryRecord{NextReview: &now}).IsDue(now))
	assert.False(t, (&MasteryRecord{NextReview: &future}).IsDue(now))
	assert.False(t, (&MasteryRecord{}).IsDue(now))
}

func TestAnswerKind(t *testing.T) {
	t.Parallel()

	t.Run("tentative mastery per answer", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 55, AnswerCorrect.TentativeMastery())
		assert.Equal(t, 30, AnswerIncorrect.TentativeMastery())
		assert.Equal(t, 0, AnswerIDontKnow.TentativeMastery())
	})

	t.Run("accuracy per answer", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 100, AnswerCorrect.Accuracy())
		assert.Equal(t, 50, AnswerIncorrect.Accuracy())
		assert.Equal(t, 0, AnswerIDontKnow.Accuracy())
	})

	t.Run("validity", func(t *testing.T) {
		t.Parallel()
		assert.True(t, AnswerCorrect.Valid())
		assert.True(t, AnswerIncorrect.Valid())
		assert.True(t, AnswerIDontKnow.Valid())
		assert.False(t, AnswerKind("maybe").Valid())
		assert.False(t, AnswerKind("").Valid())
	})
}
