// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// UpdateParticipantAttendance records the attendance of a single participant.
// Every other participant is written back unchanged.
func (s *MeetingService) UpdateParticipantAttendance(
	ctx context.Context,
	auth *models.AuthorizationContext,
	meetingUID string,
	userID string,
	update models.AttendanceUpdate,
	revision uint64,
) (*models.Meeting, error) {
	if !update.Status.IsValid() {
		return nil, domain.NewValidationError("invalid attendance status: " + string(update.Status))
	}

	return s.mutateMeeting(ctx, auth, meetingUID, revision, func(meeting *models.Meeting) error {
		idx := meeting.FindParticipant(userID)
		if idx < 0 {
			slog.WarnContext(ctx, "participant not found", "user_id", userID)
			return domain.NewNotFoundError("participant "+userID+" not found", domain.ErrParticipantNotFound)
		}
		update.Apply(&meeting.Participants[idx])
		return nil
	})
}

// AddAgendaItem appends an agenda item with a fresh id.
func (s *MeetingService) AddAgendaItem(
	ctx context.Context,
	auth *models.AuthorizationContext,
	meetingUID string,
	item models.AgendaItem,
	revision uint64,
) (*models.Meeting, error) {
	if strings.TrimSpace(item.Title) == "" {
		return nil, domain.NewValidationError("agenda item title is required")
	}
	if item.Status == "" {
		item.Status = models.AgendaItemPending
	}
	if !item.Status.IsValid() {
		return nil, domain.NewValidationError("invalid agenda item status: " + string(item.Status))
	}
	item.ID = models.NewSubRecordID()

	return s.mutateMeeting(ctx, auth, meetingUID, revision, func(meeting *models.Meeting) error {
		meeting.Agenda = append(meeting.Agenda, item)
		return nil
	})
}

// UpdateAgendaItem patches the agenda item with the given id.
func (s *MeetingService) UpdateAgendaItem(
	ctx context.Context,
	auth *models.AuthorizationContext,
	meetingUID string,
	itemID string,
	patch models.AgendaItemPatch,
	revision uint64,
) (*models.Meeting, error) {
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, domain.NewValidationError("invalid agenda item status: " + string(*patch.Status))
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, domain.NewValidationError("agenda item title is required")
	}

	return s.mutateMeeting(ctx, auth, meetingUID, revision, func(meeting *models.Meeting) error {
		idx := meeting.FindAgendaItem(itemID)
		if idx < 0 {
			slog.WarnContext(ctx, "agenda item not found", "item_id", itemID)
			return domain.NewNotFoundError("agenda item "+itemID+" not found", domain.ErrAgendaItemNotFound)
		}
		patch.Apply(&meeting.Agenda[idx])
		return nil
	})
}

// AddMeetingDecision appends a decision with a fresh id.
func (s *MeetingService) AddMeetingDecision(
	ctx context.Context,
	auth *models.AuthorizationContext,
	meetingUID string,
	decision models.Decision,
	revision uint64,
) (*models.Meeting, error) {
	if strings.TrimSpace(decision.Description) == "" {
		return nil, domain.NewValidationError("decision description is required")
	}
	decision.ID = models.NewSubRecordID()

	return s.mutateMeeting(ctx, auth, meetingUID, revision, func(meeting *models.Meeting) error {
		if decision.RelatedAgendaItemID != "" && meeting.FindAgendaItem(decision.RelatedAgendaItemID) < 0 {
			return domain.NewValidationError("related agenda item does not exist", domain.ErrAgendaItemNotFound)
		}
		meeting.Decisions = append(meeting.Decisions, decision)
		return nil
	})
}

// AddMeetingTask appends a follow-up task with a fresh id.
func (s *MeetingService) AddMeetingTask(
	ctx context.Context,
	auth *models.AuthorizationContext,
	meetingUID string,
	task models.LinkedTask,
	revision uint64,
) (*models.Meeting, error) {
	if strings.TrimSpace(task.Description) == "" {
		return nil, domain.NewValidationError("task description is required")
	}
	task.ID = models.NewSubRecordID()

	return s.mutateMeeting(ctx, auth, meetingUID, revision, func(meeting *models.Meeting) error {
		if task.RelatedAgendaItemID != "" && meeting.FindAgendaItem(task.RelatedAgendaItemID) < 0 {
			return domain.NewValidationError("related agenda item does not exist", domain.ErrAgendaItemNotFound)
		}
		meeting.Tasks = append(meeting.Tasks, task)
		return nil
	})
}
