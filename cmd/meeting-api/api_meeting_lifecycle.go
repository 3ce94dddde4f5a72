// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"net/http"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// meetingMutation runs one revision-checked change against a meeting record
// and writes the updated meeting.
func (s *MeetingsAPI) meetingMutation(
	w http.ResponseWriter,
	r *http.Request,
	body any,
	apply func(ctx context.Context, auth *models.AuthorizationContext, uid string, revision uint64) (*models.Meeting, error),
) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	revision, err := parseIfMatch(r)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	if err := decodeBody(r, body); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	meeting, err := apply(ctx, auth, s.pathParam(r, "uid"), revision)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusOK, meeting)
}

// UpdateParticipantAttendance records the attendance of one participant.
func (s *MeetingsAPI) UpdateParticipantAttendance(w http.ResponseWriter, r *http.Request) {
	var update models.AttendanceUpdate
	s.meetingMutation(w, r, &update, func(ctx context.Context, auth *models.AuthorizationContext, uid string, revision uint64) (*models.Meeting, error) {
		return s.meetingService.UpdateParticipantAttendance(ctx, auth, uid, s.pathParam(r, "user_id"), update, revision)
	})
}

// AddAgendaItem appends an agenda item.
func (s *MeetingsAPI) AddAgendaItem(w http.ResponseWriter, r *http.Request) {
	var item models.AgendaItem
	s.meetingMutation(w, r, &item, func(ctx context.Context, auth *models.AuthorizationContext, uid string, revision uint64) (*models.Meeting, error) {
		return s.meetingService.AddAgendaItem(ctx, auth, uid, item, revision)
	})
}

// UpdateAgendaItem merges the body into one agenda item.
func (s *MeetingsAPI) UpdateAgendaItem(w http.ResponseWriter, r *http.Request) {
	var patch models.AgendaItemPatch
	s.meetingMutation(w, r, &patch, func(ctx context.Context, auth *models.AuthorizationContext, uid string, revision uint64) (*models.Meeting, error) {
		return s.meetingService.UpdateAgendaItem(ctx, auth, uid, s.pathParam(r, "item_id"), patch, revision)
	})
}

// AddMeetingDecision records a decision.
func (s *MeetingsAPI) AddMeetingDecision(w http.ResponseWriter, r *http.Request) {
	var decision models.Decision
	s.meetingMutation(w, r, &decision, func(ctx context.Context, auth *models.AuthorizationContext, uid string, revision uint64) (*models.Meeting, error) {
		return s.meetingService.AddMeetingDecision(ctx, auth, uid, decision, revision)
	})
}

// AddMeetingTask records a follow-up task.
func (s *MeetingsAPI) AddMeetingTask(w http.ResponseWriter, r *http.Request) {
	var task models.LinkedTask
	s.meetingMutation(w, r, &task, func(ctx context.Context, auth *models.AuthorizationContext, uid string, revision uint64) (*models.Meeting, error) {
		return s.meetingService.AddMeetingTask(ctx, auth, uid, task, revision)
	})
}
