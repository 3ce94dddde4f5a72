// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "scheduled"
	MeetingStatusInProgress MeetingStatus = "in-progress"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

// meetingTransitions lists the states reachable from each non-terminal state.
var meetingTransitions = map[MeetingStatus][]MeetingStatus{
	MeetingStatusScheduled:  {MeetingStatusInProgress, MeetingStatusCancelled},
	MeetingStatusInProgress: {MeetingStatusCompleted, MeetingStatusCancelled},
}

// IsValid reports whether the status is one of the known values.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusInProgress, MeetingStatusCompleted, MeetingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave the status.
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingStatusCompleted || s == MeetingStatusCancelled
}

// CanTransitionTo reports whether a meeting in status s may move to next.
// Staying in the same state is always allowed.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range meetingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
