// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Series write tuning
const (
	// SeriesRepairMinAge is how old a series journal entry must be before the
	// startup repair treats it as abandoned.
	SeriesRepairMinAge = 5 * time.Minute

	// DefaultOccurrenceWriteWorkers bounds concurrent occurrence writes.
	DefaultOccurrenceWriteWorkers = 4
)
