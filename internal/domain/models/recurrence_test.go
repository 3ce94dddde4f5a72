// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestRecurrencePattern_Validate(t *testing.T) {
	start := time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)
	before := start.Add(-24 * time.Hour)

	tests := []struct {
		name        string
		pattern     *RecurrencePattern
		expectedErr error
	}{
		{name: "nil pattern", pattern: nil},
		{name: "daily", pattern: &RecurrencePattern{Frequency: FrequencyDaily, Interval: 1}},
		{name: "weekly with days", pattern: &RecurrencePattern{Frequency: FrequencyWeekly, Interval: 1, DaysOfWeek: []int{0, 6}}},
		{name: "unsupported frequency", pattern: &RecurrencePattern{Frequency: "yearly", Interval: 1}, expectedErr: ErrUnsupportedFrequency},
		{name: "zero interval", pattern: &RecurrencePattern{Frequency: FrequencyDaily}, expectedErr: ErrInvalidInterval},
		{name: "negative interval", pattern: &RecurrencePattern{Frequency: FrequencyDaily, Interval: -2}, expectedErr: ErrInvalidInterval},
		{name: "zero count", pattern: &RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, Count: intPtr(0)}, expectedErr: ErrInvalidCount},
		{name: "weekday out of range", pattern: &RecurrencePattern{Frequency: FrequencyWeekly, Interval: 1, DaysOfWeek: []int{7}}, expectedErr: ErrInvalidWeekday},
		{name: "end before start", pattern: &RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, EndDate: &before}, expectedErr: ErrEndBeforeStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pattern.Validate(start)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRecurrencePattern_SeriesLimit(t *testing.T) {
	assert.Equal(t, DefaultOccurrenceCeiling, (&RecurrencePattern{}).SeriesLimit())
	assert.Equal(t, 4, (&RecurrencePattern{Count: intPtr(4)}).SeriesLimit())
}

func TestRecurrencePattern_RRule(t *testing.T) {
	start := time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)

	t.Run("weekly with count", func(t *testing.T) {
		p := &RecurrencePattern{Frequency: FrequencyWeekly, Interval: 1, Count: intPtr(3)}
		r, err := p.RRule(start)
		require.NoError(t, err)

		assert.Equal(t, []time.Time{
			start,
			time.Date(2024, 1, 13, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC),
		}, r.All())
		assert.Contains(t, r.String(), "FREQ=WEEKLY")
		assert.Contains(t, r.String(), "COUNT=3")
	})

	t.Run("unbounded pattern gets the default ceiling", func(t *testing.T) {
		p := &RecurrencePattern{Frequency: FrequencyDaily, Interval: 2}
		r, err := p.RRule(start)
		require.NoError(t, err)
		assert.Len(t, r.All(), DefaultOccurrenceCeiling)
	})

	t.Run("end date becomes UNTIL", func(t *testing.T) {
		end := time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC)
		p := &RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, EndDate: &end}
		r, err := p.RRule(start)
		require.NoError(t, err)
		assert.Len(t, r.All(), 4)
	})

	t.Run("far end date is still capped", func(t *testing.T) {
		end := time.Date(2024, 2, 6, 9, 0, 0, 0, time.UTC)
		p := &RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, EndDate: &end}
		r, err := p.RRule(start)
		require.NoError(t, err)
		assert.Len(t, r.All(), DefaultOccurrenceCeiling)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		p := &RecurrencePattern{Frequency: FrequencyDaily}
		_, err := p.RRule(start)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})
}
