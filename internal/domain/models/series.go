// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// SeriesJournal records the keys a series write is about to create so that a
// crashed or failed write can be rolled back.
type SeriesJournal struct {
	ParentUID      string    `msgpack:"parent_uid"`
	OccurrenceUIDs []string  `msgpack:"occurrence_uids"`
	OrganizationID string    `msgpack:"organization_id"`
	StartedAt      time.Time `msgpack:"started_at"`
}

// UIDs returns every record uid covered by the journal, parent first.
func (j *SeriesJournal) UIDs() []string {
	uids := make([]string, 0, len(j.OccurrenceUIDs)+1)
	uids = append(uids, j.ParentUID)
	return append(uids, j.OccurrenceUIDs...)
}

// MarshalJournal encodes the journal with msgpack.
func MarshalJournal(j *SeriesJournal) ([]byte, error) {
	return msgpack.Marshal(j)
}

// UnmarshalJournal decodes a msgpack journal entry.
func UnmarshalJournal(data []byte) (*SeriesJournal, error) {
	var j SeriesJournal
	if err := msgpack.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// MeetingSeries is the result of materializing a meeting: the parent plus
// its independent occurrence records.
type MeetingSeries struct {
	Parent      *Meeting   `json:"parent"`
	Occurrences []*Meeting `json:"occurrences"`
}

// All returns the parent followed by its occurrences.
func (s *MeetingSeries) All() []*Meeting {
	all := make([]*Meeting, 0, len(s.Occurrences)+1)
	all = append(all, s.Parent)
	return append(all, s.Occurrences...)
}

// OccurrenceUIDs returns the uids of the materialized occurrences.
func (s *MeetingSeries) OccurrenceUIDs() []string {
	uids := make([]string, 0, len(s.Occurrences))
	for _, o := range s.Occurrences {
		uids = append(uids, o.UID)
	}
	return uids
}

// OccurrenceSlot is one computed occurrence of a recurring meeting.
// End is nil when the template meeting had no end date.
type OccurrenceSlot struct {
	Start time.Time
	End   *time.Time
}
