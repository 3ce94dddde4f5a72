// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/concurrent"
	"github.com/tasknest/tasknest-meeting-service/pkg/metrics"
)

// MeetingService creates meeting series and drives their lifecycle.
type MeetingService struct {
	MeetingRepository domain.MeetingRepository
	MessageBuilder    domain.MessageBuilder
	OccurrenceService domain.OccurrenceService
	Config            ServiceConfig
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(
	meetingRepository domain.MeetingRepository,
	messageBuilder domain.MessageBuilder,
	occurrenceService domain.OccurrenceService,
	config ServiceConfig,
) *MeetingService {
	return &MeetingService{
		MeetingRepository: meetingRepository,
		MessageBuilder:    messageBuilder,
		OccurrenceService: occurrenceService,
		Config:            config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *MeetingService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.MessageBuilder != nil &&
		s.OccurrenceService != nil
}

func (s *MeetingService) prepareMeeting(auth *models.AuthorizationContext, meeting *models.Meeting) {
	if meeting.Status == "" {
		meeting.Status = models.MeetingStatusScheduled
	}
	if meeting.Type == "" {
		meeting.Type = models.MeetingTypeCustom
	}
	meeting.CreatedBy = auth.UserID
	if meeting.Participants == nil {
		meeting.Participants = []models.Participant{}
	}
	if meeting.Agenda == nil {
		meeting.Agenda = []models.AgendaItem{}
	}
	if meeting.Decisions == nil {
		meeting.Decisions = []models.Decision{}
	}
	if meeting.Tasks == nil {
		meeting.Tasks = []models.LinkedTask{}
	}
	for i := range meeting.Agenda {
		if meeting.Agenda[i].ID == "" {
			meeting.Agenda[i].ID = models.NewSubRecordID()
		}
		if meeting.Agenda[i].Status == "" {
			meeting.Agenda[i].Status = models.AgendaItemPending
		}
	}
	// A parent can only be created, never materialized.
	meeting.ParentUID = ""
}

// CreateMeeting validates the meeting, materializes its occurrences and stores
// the parent with every occurrence as one series.
func (s *MeetingService) CreateMeeting(ctx context.Context, auth *models.AuthorizationContext, meeting *models.Meeting) (*models.MeetingSeries, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if meeting == nil {
		return nil, domain.NewValidationError("meeting is required")
	}
	if auth == nil {
		return nil, domain.NewPermissionDeniedError("caller is not authenticated")
	}

	s.prepareMeeting(auth, meeting)
	if err := meeting.Validate(); err != nil {
		slog.WarnContext(ctx, "invalid meeting payload", logging.ErrKey, err)
		return nil, domain.NewValidationError("invalid meeting", err)
	}

	if !canAccessOrganization(auth, meeting.OrganizationID) {
		slog.WarnContext(ctx, "caller is not a member of the organization",
			"organization_id", meeting.OrganizationID,
			"user_id", auth.UserID,
		)
		return nil, domain.NewPermissionDeniedError("caller is not a member of the organization", domain.ErrPermissionDenied)
	}

	slots, err := s.OccurrenceService.ExpandOccurrences(meeting)
	if err != nil {
		slog.WarnContext(ctx, "invalid recurrence", logging.ErrKey, err)
		return nil, err
	}

	now := s.Config.now()
	meeting.UID = uuid.New().String()
	meeting.CreatedAt = &now
	meeting.UpdatedAt = &now
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meeting.UID))

	series := &models.MeetingSeries{
		Parent:      meeting,
		Occurrences: make([]*models.Meeting, 0, len(slots)),
	}
	for _, slot := range slots {
		occurrence := meeting.OccurrenceAt(slot.Start, slot.End)
		occurrence.UID = uuid.New().String()
		series.Occurrences = append(series.Occurrences, occurrence)
	}

	if err := s.MeetingRepository.CreateSeries(ctx, series); err != nil {
		slog.ErrorContext(ctx, "error creating meeting series", logging.ErrKey, err)
		return nil, err
	}
	metrics.OccurrencesMaterialized.Add(float64(len(series.Occurrences)))

	slog.InfoContext(ctx, "created meeting series", "occurrences", len(series.Occurrences))

	s.publishMeetingEvents(ctx, models.MeetingCreatedSubject, models.ActionCreated, auth.UserID, series.All()...)

	return series, nil
}

// GetMeeting returns a meeting and its current revision.
func (s *MeetingService) GetMeeting(ctx context.Context, auth *models.AuthorizationContext, uid string) (*models.Meeting, string, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, "", domain.ErrServiceUnavailable
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	meeting, revision, err := s.MeetingRepository.GetMeetingWithRevision(ctx, uid)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "meeting not found", logging.ErrKey, err)
		} else {
			slog.ErrorContext(ctx, "error getting meeting from store", logging.ErrKey, err)
		}
		return nil, "", err
	}

	if !canAccessOrganization(auth, meeting.OrganizationID) {
		return nil, "", domain.NewPermissionDeniedError("caller is not a member of the organization", domain.ErrPermissionDenied)
	}

	return meeting, strconv.FormatUint(revision, 10), nil
}

// GetMeetingTitle returns the title of a meeting. It is used by internal
// callers on the message bus, which are trusted.
func (s *MeetingService) GetMeetingTitle(ctx context.Context, uid string) (string, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return "", domain.ErrServiceUnavailable
	}

	meeting, err := s.MeetingRepository.GetMeeting(ctx, uid)
	if err != nil {
		return "", err
	}
	return meeting.Title, nil
}

// ListMeetings lists the meetings matching the filter, scoped to the caller's organization.
func (s *MeetingService) ListMeetings(ctx context.Context, auth *models.AuthorizationContext, filter models.MeetingFilter) ([]*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if auth == nil {
		return nil, domain.NewPermissionDeniedError("caller is not authenticated")
	}
	if !auth.IsSystem() {
		if filter.OrganizationID == "" {
			filter.OrganizationID = auth.OrganizationID
		}
		if !auth.InOrganization(filter.OrganizationID) {
			return nil, domain.NewPermissionDeniedError("caller is not a member of the organization", domain.ErrPermissionDenied)
		}
	}

	meetings, err := s.MeetingRepository.ListMeetings(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "error listing meetings", logging.ErrKey, err)
		return nil, err
	}

	slog.DebugContext(ctx, "returning meetings", "count", len(meetings))
	return meetings, nil
}

// mutateMeeting loads the meeting, applies fn and writes it back under the
// loaded revision. A non-zero revision pins the write to the caller's view of
// the record unless etag validation is skipped.
func (s *MeetingService) mutateMeeting(
	ctx context.Context,
	auth *models.AuthorizationContext,
	uid string,
	revision uint64,
	fn func(meeting *models.Meeting) error,
) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	meeting, current, err := s.MeetingRepository.GetMeetingWithRevision(ctx, uid)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "meeting not found", logging.ErrKey, err)
		} else {
			slog.ErrorContext(ctx, "error getting meeting from store", logging.ErrKey, err)
		}
		return nil, err
	}

	if !canAccessOrganization(auth, meeting.OrganizationID) {
		return nil, domain.NewPermissionDeniedError("caller is not a member of the organization", domain.ErrPermissionDenied)
	}

	if revision != 0 && !s.Config.SkipEtagValidation && revision != current {
		slog.WarnContext(ctx, "If-Match header is stale",
			"expected", revision,
			"current", current,
		)
		return nil, domain.NewConflictError("meeting was modified concurrently", domain.ErrRevisionMismatch)
	}
	ctx = logging.AppendCtx(ctx, slog.String("etag", strconv.FormatUint(current, 10)))

	if err := fn(meeting); err != nil {
		return nil, err
	}

	if err := meeting.Validate(); err != nil {
		slog.WarnContext(ctx, "meeting update is invalid", logging.ErrKey, err)
		return nil, domain.NewValidationError("invalid meeting", err)
	}

	now := s.Config.now()
	meeting.UpdatedAt = &now

	if err := s.MeetingRepository.UpdateMeeting(ctx, meeting, current); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.WarnContext(ctx, "meeting was modified concurrently", logging.ErrKey, err)
		} else {
			slog.ErrorContext(ctx, "error updating meeting in store", logging.ErrKey, err)
		}
		return nil, err
	}

	s.publishMeetingEvents(ctx, models.MeetingUpdatedSubject, models.ActionUpdated, actorID(auth), meeting)

	return meeting, nil
}

// UpdateMeeting merges the patch into the meeting. Status changes go through
// the meeting status state machine.
func (s *MeetingService) UpdateMeeting(
	ctx context.Context,
	auth *models.AuthorizationContext,
	uid string,
	patch models.MeetingPatch,
	revision uint64,
) (*models.Meeting, error) {
	return s.mutateMeeting(ctx, auth, uid, revision, func(meeting *models.Meeting) error {
		if patch.Status != nil {
			if err := checkTransition(meeting.Status, *patch.Status); err != nil {
				slog.WarnContext(ctx, "illegal meeting status transition", logging.ErrKey, err)
				return err
			}
		}
		patch.Apply(meeting)
		return nil
	})
}

// UpdateMeetingStatus moves the meeting to a new status.
func (s *MeetingService) UpdateMeetingStatus(
	ctx context.Context,
	auth *models.AuthorizationContext,
	uid string,
	status models.MeetingStatus,
	revision uint64,
) (*models.Meeting, error) {
	return s.UpdateMeeting(ctx, auth, uid, models.MeetingPatch{Status: &status}, revision)
}

func checkTransition(from, to models.MeetingStatus) error {
	if from == "" {
		from = models.MeetingStatusScheduled
	}
	if !to.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("unknown meeting status %q", to), models.ErrInvalidMeetingStatus)
	}
	if !from.CanTransitionTo(to) {
		return domain.NewValidationError(fmt.Sprintf("cannot move meeting from %s to %s", from, to), domain.ErrInvalidTransition)
	}
	return nil
}

// DeleteMeeting removes a single meeting record. Siblings and the parent of an
// occurrence are left untouched.
func (s *MeetingService) DeleteMeeting(ctx context.Context, auth *models.AuthorizationContext, uid string, revision uint64) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.ErrServiceUnavailable
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	meeting, current, err := s.MeetingRepository.GetMeetingWithRevision(ctx, uid)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "meeting not found", logging.ErrKey, err)
		} else {
			slog.ErrorContext(ctx, "error getting meeting from store", logging.ErrKey, err)
		}
		return err
	}

	if !canAccessOrganization(auth, meeting.OrganizationID) {
		return domain.NewPermissionDeniedError("caller is not a member of the organization", domain.ErrPermissionDenied)
	}

	if revision != 0 && !s.Config.SkipEtagValidation && revision != current {
		slog.WarnContext(ctx, "If-Match header is stale", "expected", revision, "current", current)
		return domain.NewConflictError("meeting was modified concurrently", domain.ErrRevisionMismatch)
	}

	if err := s.MeetingRepository.DeleteMeeting(ctx, uid, current); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeInternal {
			slog.ErrorContext(ctx, "error deleting meeting from store", logging.ErrKey, err)
		} else {
			slog.WarnContext(ctx, "meeting could not be deleted", logging.ErrKey, err)
		}
		return err
	}

	s.publishMeetingEvents(ctx, models.MeetingDeletedSubject, models.ActionDeleted, actorID(auth), meeting)

	slog.DebugContext(ctx, "deleted meeting")
	return nil
}

// publishMeetingEvents sends one event per meeting. Publishing is best-effort:
// failures are logged and never undo the stored change.
func (s *MeetingService) publishMeetingEvents(
	ctx context.Context,
	subject string,
	action models.MessageAction,
	actor string,
	meetings ...*models.Meeting,
) {
	pool := concurrent.NewWorkerPool(s.Config.eventWorkers())

	messages := make([]func() error, 0, len(meetings))
	for _, m := range meetings {
		event := models.NewMeetingEventMessage(action, m, actor)
		messages = append(messages, func() error {
			return s.MessageBuilder.SendMeetingEvent(ctx, subject, event)
		})
	}

	if errs := pool.RunAll(ctx, messages...); len(errs) > 0 {
		slog.ErrorContext(ctx, "failed to send meeting events",
			"subject", subject,
			"failed", len(errs),
			logging.ErrKey, errors.Join(errs...),
		)
	}
}

func actorID(auth *models.AuthorizationContext) string {
	if auth == nil {
		return ""
	}
	return auth.UserID
}
