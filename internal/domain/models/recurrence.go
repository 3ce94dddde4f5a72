// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// RecurrenceFrequency is the unit a recurrence pattern advances by.
type RecurrenceFrequency string

const (
	FrequencyDaily   RecurrenceFrequency = "daily"
	FrequencyWeekly  RecurrenceFrequency = "weekly"
	FrequencyMonthly RecurrenceFrequency = "monthly"
)

// DefaultOccurrenceCeiling bounds a series that has neither a count nor an end date.
// The ceiling counts the parent meeting, matching RRULE COUNT semantics.
const DefaultOccurrenceCeiling = 10

// Recurrence validation errors.
var (
	ErrUnsupportedFrequency = errors.New("unsupported recurrence frequency")
	ErrInvalidInterval      = errors.New("recurrence interval must be positive")
	ErrInvalidCount         = errors.New("recurrence count must be positive")
	ErrInvalidWeekday       = errors.New("recurrence weekday must be between 0 and 6")
	ErrEndBeforeStart       = errors.New("recurrence end date is before the start date")
)

// RecurrencePattern describes how a meeting repeats.
type RecurrencePattern struct {
	Frequency  RecurrenceFrequency `json:"frequency" msgpack:"frequency"`
	Interval   int                 `json:"interval" msgpack:"interval"`
	DaysOfWeek []int               `json:"days_of_week,omitempty" msgpack:"days_of_week,omitempty"`
	EndDate    *time.Time          `json:"end_date,omitempty" msgpack:"end_date,omitempty"`
	Count      *int                `json:"count,omitempty" msgpack:"count,omitempty"`
}

// Validate checks the pattern against the series start.
func (p *RecurrencePattern) Validate(start time.Time) error {
	if p == nil {
		return nil
	}
	switch p.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFrequency, p.Frequency)
	}
	if p.Interval <= 0 {
		return ErrInvalidInterval
	}
	if p.Count != nil && *p.Count <= 0 {
		return ErrInvalidCount
	}
	for _, d := range p.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
	}
	if p.EndDate != nil && p.EndDate.Before(start) {
		return ErrEndBeforeStart
	}
	return nil
}

// SeriesLimit returns the maximum number of records in the series, parent included.
func (p *RecurrencePattern) SeriesLimit() int {
	if p != nil && p.Count != nil {
		return *p.Count
	}
	return DefaultOccurrenceCeiling
}

// HasWeekday reports whether the weekday is part of the explicit day set.
func (p *RecurrencePattern) HasWeekday(day time.Weekday) bool {
	for _, d := range p.DaysOfWeek {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// RRule converts the pattern into an RFC 5545 rule anchored at start.
// The series limit always applies, so an end date never yields more dates
// than the materialized series holds.
func (p *RecurrencePattern) RRule(start time.Time) (*rrule.RRule, error) {
	if err := p.Validate(start); err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Dtstart:  start,
		Interval: p.Interval,
	}
	switch p.Frequency {
	case FrequencyDaily:
		opt.Freq = rrule.DAILY
	case FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range p.DaysOfWeek {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
	}

	opt.Count = p.SeriesLimit()
	if p.EndDate != nil {
		opt.Until = *p.EndDate
	}

	return rrule.NewRRule(opt)
}
