// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/concurrent"
	"github.com/tasknest/tasknest-meeting-service/pkg/metrics"
)

const defaultWriteWorkers = 4

// NatsMeetingRepository is the NATS KV store repository for meetings.
//
// A series write is guarded by a journal entry in a separate bucket. The
// journal lists every key the write is about to create and is removed once
// all records exist; its removal is the commit point. Any journal still
// present afterwards marks a write that must be rolled back.
type NatsMeetingRepository struct {
	meetings     *NatsBaseRepository[models.Meeting]
	journal      *NatsBaseRepository[models.SeriesJournal]
	keys         *KeyBuilder
	writeWorkers int
	now          func() time.Time
}

// NewNatsMeetingRepository creates a new NATS KV store repository for meetings.
func NewNatsMeetingRepository(meetings, journal INatsKeyValue, writeWorkers int) *NatsMeetingRepository {
	if writeWorkers <= 0 {
		writeWorkers = defaultWriteWorkers
	}
	return &NatsMeetingRepository{
		meetings:     NewNatsBaseRepository[models.Meeting](meetings, "meeting", domain.ErrMeetingNotFound),
		journal:      NewNatsBaseRepository[models.SeriesJournal](journal, "series journal", nil).WithCodec(MsgpackCodec{}),
		keys:         NewKeyBuilder(""),
		writeWorkers: writeWorkers,
		now:          time.Now,
	}
}

// IsReady checks if both buckets are bound.
func (s *NatsMeetingRepository) IsReady(ctx context.Context) bool {
	return s.meetings.IsReady() && s.journal.IsReady()
}

func (s *NatsMeetingRepository) meetingKey(uid string) string {
	return s.keys.EntityKey(KeyPrefixMeeting, uid)
}

func (s *NatsMeetingRepository) journalKey(parentUID string) string {
	return s.keys.EntityKey(KeyPrefixSeries, parentUID)
}

// CreateSeries stores the parent and every occurrence, or none of them.
func (s *NatsMeetingRepository) CreateSeries(ctx context.Context, series *models.MeetingSeries) error {
	if series == nil || series.Parent == nil || series.Parent.UID == "" {
		return domain.NewValidationError("series has no parent meeting")
	}
	if !s.IsReady(ctx) {
		return domain.NewUnavailableError("meeting repository is not available")
	}

	parent := series.Parent
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", parent.UID))

	journal := &models.SeriesJournal{
		ParentUID:      parent.UID,
		OccurrenceUIDs: series.OccurrenceUIDs(),
		OrganizationID: parent.OrganizationID,
		StartedAt:      s.now().UTC(),
	}
	journalKey := s.journalKey(parent.UID)
	if _, err := s.journal.Create(ctx, journalKey, journal); err != nil {
		slog.ErrorContext(ctx, "error writing series journal", logging.ErrKey, err)
		return err
	}

	var (
		mu      sync.Mutex
		written []string
	)
	records := series.All()
	writes := make([]func() error, 0, len(records))
	for _, meeting := range records {
		writes = append(writes, func() error {
			key := s.meetingKey(meeting.UID)
			if _, err := s.meetings.Create(ctx, key, meeting); err != nil {
				return err
			}
			mu.Lock()
			written = append(written, key)
			mu.Unlock()
			return nil
		})
	}

	err := concurrent.NewWorkerPool(s.writeWorkers).Run(ctx, writes...)
	if err == nil {
		err = s.journal.DeleteWithoutRevision(ctx, journalKey)
		if err == nil {
			slog.DebugContext(ctx, "series stored", "records", len(records))
			return nil
		}
		slog.ErrorContext(ctx, "error committing series journal", logging.ErrKey, err)
	} else {
		slog.ErrorContext(ctx, "error writing series records", logging.ErrKey, err,
			"written", len(written), "records", len(records))
	}

	// Compensation runs even if the caller's context is already done.
	cleanupCtx := context.WithoutCancel(ctx)
	if s.removeRecords(cleanupCtx, written) {
		if delErr := s.journal.DeleteWithoutRevision(cleanupCtx, journalKey); delErr != nil &&
			domain.GetErrorType(delErr) != domain.ErrorTypeNotFound {
			slog.WarnContext(cleanupCtx, "series journal left for repair", logging.ErrKey, delErr)
		}
	}

	if domain.GetErrorType(err) == domain.ErrorTypeConflict {
		return err
	}
	return domain.NewInternalError("failed to store meeting series", err)
}

// removeRecords deletes the given meeting keys. Missing keys count as removed.
// It reports whether every key is gone.
func (s *NatsMeetingRepository) removeRecords(ctx context.Context, keys []string) bool {
	deletes := make([]func() error, 0, len(keys))
	for _, key := range keys {
		deletes = append(deletes, func() error {
			err := s.meetings.DeleteWithoutRevision(ctx, key)
			if err != nil && domain.GetErrorType(err) != domain.ErrorTypeNotFound {
				return err
			}
			return nil
		})
	}

	errs := concurrent.NewWorkerPool(s.writeWorkers).RunAll(ctx, deletes...)
	for _, err := range errs {
		slog.ErrorContext(ctx, "error removing series record", logging.ErrKey, err)
	}
	return len(errs) == 0
}

// RepairSeries rolls back every series whose journal is older than minAge.
// Younger journals may belong to writes still in flight on another instance.
// It returns the number of series rolled back.
func (s *NatsMeetingRepository) RepairSeries(ctx context.Context, minAge time.Duration) (int, error) {
	if !s.IsReady(ctx) {
		return 0, domain.NewUnavailableError("meeting repository is not available")
	}

	keys, err := s.journal.ListKeys(ctx, s.keys.EntityPrefix(KeyPrefixSeries))
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-minAge)
	repaired := 0
	for _, key := range keys {
		parentUID, ok := s.keys.UIDFromKey(KeyPrefixSeries, key)
		if !ok {
			continue
		}
		journal, err := s.journal.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable series journal",
				"meeting_uid", parentUID, logging.ErrKey, err)
			continue
		}
		if journal.StartedAt.After(cutoff) {
			continue
		}

		uids := journal.UIDs()
		recordKeys := make([]string, 0, len(uids))
		for _, uid := range uids {
			recordKeys = append(recordKeys, s.meetingKey(uid))
		}
		if !s.removeRecords(ctx, recordKeys) {
			continue
		}
		if err := s.journal.DeleteWithoutRevision(ctx, key); err != nil &&
			domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "error removing repaired series journal", "key", key, logging.ErrKey, err)
			continue
		}

		repaired++
		metrics.SeriesRepaired.Inc()
		slog.InfoContext(ctx, "rolled back incomplete meeting series",
			"meeting_uid", parentUID, "records", len(uids))
	}
	return repaired, nil
}

// GetMeeting retrieves a single meeting.
func (s *NatsMeetingRepository) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	return s.meetings.Get(ctx, s.meetingKey(meetingUID))
}

// GetMeetingWithRevision retrieves a meeting with the revision needed to update it.
func (s *NatsMeetingRepository) GetMeetingWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	return s.meetings.GetWithRevision(ctx, s.meetingKey(meetingUID))
}

// UpdateMeeting writes the meeting if it is still at revision.
func (s *NatsMeetingRepository) UpdateMeeting(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	if meeting == nil || meeting.UID == "" {
		return domain.NewValidationError("meeting uid is required")
	}
	return s.meetings.Update(ctx, s.meetingKey(meeting.UID), meeting, revision)
}

// DeleteMeeting removes one meeting record if it is still at revision.
func (s *NatsMeetingRepository) DeleteMeeting(ctx context.Context, meetingUID string, revision uint64) error {
	return s.meetings.Delete(ctx, s.meetingKey(meetingUID), revision)
}

// ListMeetings returns the meetings matching the filter ordered by start date.
func (s *NatsMeetingRepository) ListMeetings(ctx context.Context, filter models.MeetingFilter) ([]*models.Meeting, error) {
	all, err := s.meetings.ListEntities(ctx, s.keys.EntityPrefix(KeyPrefixMeeting))
	if err != nil {
		return nil, err
	}

	meetings := make([]*models.Meeting, 0, len(all))
	for _, m := range all {
		if filter.Matches(m) {
			meetings = append(meetings, m)
		}
	}
	sort.SliceStable(meetings, func(i, j int) bool {
		if meetings[i].StartDate.Equal(meetings[j].StartDate) {
			return meetings[i].UID < meetings[j].UID
		}
		return meetings[i].StartDate.Before(meetings[j].StartDate)
	})
	return meetings, nil
}
