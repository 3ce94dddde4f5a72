// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// OccurrenceService defines the interface for expanding a recurring meeting
// into its concrete occurrences.
type OccurrenceService interface {
	// ExpandOccurrences returns the occurrences that follow the meeting's own
	// start, in order. The meeting itself is not part of the result.
	ExpandOccurrences(meeting *models.Meeting) ([]models.OccurrenceSlot, error)
}
