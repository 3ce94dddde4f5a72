// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// OccurrenceService expands recurring meetings into concrete occurrence slots.
type OccurrenceService struct{}

// NewOccurrenceService creates a new OccurrenceService.
func NewOccurrenceService() *OccurrenceService {
	return &OccurrenceService{}
}

// ExpandOccurrences returns the slots that follow the meeting's own start.
//
// The walk happens in the meeting's time zone so that wall-clock times survive
// DST changes. The parent counts toward the series limit, so a pattern with
// count N yields N-1 slots, and a pattern with neither count nor end date is
// capped at models.DefaultOccurrenceCeiling records including the parent.
func (s *OccurrenceService) ExpandOccurrences(meeting *models.Meeting) ([]models.OccurrenceSlot, error) {
	if meeting == nil || !meeting.IsRecurring || meeting.RecurringPattern == nil {
		return []models.OccurrenceSlot{}, nil
	}

	pattern := meeting.RecurringPattern
	if err := pattern.Validate(meeting.StartDate); err != nil {
		return nil, domain.NewValidationError("invalid recurring pattern", err)
	}

	loc := meeting.TimeLocation()
	duration := meeting.Duration()
	limit := pattern.SeriesLimit()

	slots := make([]models.OccurrenceSlot, 0, limit-1)
	cursor := meeting.StartDate.In(loc)
	for generated := 1; generated < limit; generated++ {
		cursor = nextOccurrence(cursor, pattern)
		if pattern.EndDate != nil && cursor.After(*pattern.EndDate) {
			break
		}

		slot := models.OccurrenceSlot{Start: cursor}
		if meeting.EndDate != nil {
			end := cursor.Add(duration)
			slot.End = &end
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// nextOccurrence advances the cursor by one step of the pattern.
func nextOccurrence(cursor time.Time, pattern *models.RecurrencePattern) time.Time {
	switch pattern.Frequency {
	case models.FrequencyDaily:
		return cursor.AddDate(0, 0, pattern.Interval)
	case models.FrequencyWeekly:
		if len(pattern.DaysOfWeek) > 0 {
			// Next selected weekday within the coming week. The interval only
			// applies when no listed day is hit.
			for i := 1; i <= 7; i++ {
				next := cursor.AddDate(0, 0, i)
				if pattern.HasWeekday(next.Weekday()) {
					return next
				}
			}
		}
		return cursor.AddDate(0, 0, 7*pattern.Interval)
	case models.FrequencyMonthly:
		// AddDate normalizes overflow, so Jan 31 + 1 month lands on Mar 2 (or Mar 3).
		return cursor.AddDate(0, pattern.Interval, 0)
	}
	return cursor.AddDate(0, 0, pattern.Interval)
}
