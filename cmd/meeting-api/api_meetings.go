// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// UpdateMeetingStatusRequest is the body of PUT /meetings/{uid}/status.
type UpdateMeetingStatusRequest struct {
	Status models.MeetingStatus `json:"status"`
}

// ListMeetingsResponse is the body of GET /meetings.
type ListMeetingsResponse struct {
	Meetings []*models.Meeting `json:"meetings"`
}

// CreateMeeting stores a meeting and, for a recurring one, every occurrence.
func (s *MeetingsAPI) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	var meeting models.Meeting
	if err := decodeBody(r, &meeting); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	series, err := s.meetingService.CreateMeeting(ctx, auth, &meeting)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusCreated, series)
}

// GetMeeting returns one meeting record with its revision as ETag.
func (s *MeetingsAPI) GetMeeting(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	meeting, revision, err := s.meetingService.GetMeeting(ctx, auth, s.pathParam(r, "uid"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(withETag(ctx, revision), w, http.StatusOK, meeting)
}

// ListMeetings returns the meetings matching the query filters.
func (s *MeetingsAPI) ListMeetings(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	filter, err := meetingFilterFromQuery(r.URL.Query())
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}

	meetings, err := s.meetingService.ListMeetings(ctx, auth, filter)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	if meetings == nil {
		meetings = []*models.Meeting{}
	}
	s.writeJSON(ctx, w, http.StatusOK, ListMeetingsResponse{Meetings: meetings})
}

// UpdateMeeting merges the request body into one meeting record.
func (s *MeetingsAPI) UpdateMeeting(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	revision, err := parseIfMatch(r)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	var patch models.MeetingPatch
	if err := decodeBody(r, &patch); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	meeting, err := s.meetingService.UpdateMeeting(ctx, auth, s.pathParam(r, "uid"), patch, revision)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusOK, meeting)
}

// UpdateMeetingStatus moves one meeting record to a new status.
func (s *MeetingsAPI) UpdateMeetingStatus(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	revision, err := parseIfMatch(r)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	var req UpdateMeetingStatusRequest
	if err := decodeBody(r, &req); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	meeting, err := s.meetingService.UpdateMeetingStatus(ctx, auth, s.pathParam(r, "uid"), req.Status, revision)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusOK, meeting)
}

// DeleteMeeting removes one meeting record.
func (s *MeetingsAPI) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	revision, err := parseIfMatch(r)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}

	if err := s.meetingService.DeleteMeeting(ctx, auth, s.pathParam(r, "uid"), revision); err != nil {
		s.handleError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportMeetingICS renders one meeting record as an iCalendar document. The
// revision doubles as the ICS sequence so calendar clients pick up updates.
func (s *MeetingsAPI) ExportMeetingICS(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	meeting, revision, err := s.meetingService.GetMeeting(ctx, auth, s.pathParam(r, "uid"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}

	sequence := 0
	if rev, err := strconv.Atoi(revision); err == nil && rev > 0 {
		sequence = rev - 1
	}
	var occurrences []*models.Meeting
	if meeting.IsRecurring && meeting.ParentUID == "" {
		occurrences, err = s.meetingService.ListMeetings(ctx, auth, models.MeetingFilter{
			OrganizationID: meeting.OrganizationID,
			ParentUID:      meeting.UID,
		})
		if err != nil {
			s.handleError(ctx, w, err)
			return
		}
	}

	ics, err := s.icsGenerator.GenerateMeetingICS(meeting, occurrences, sequence)
	if err != nil {
		s.handleError(ctx, w, domain.NewInternalError("failed to render calendar", err))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+meeting.UID+`.ics"`)
	w.Header().Set("ETag", revision)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}

// meetingFilterFromQuery reads organization_id, department_id, parent,
// status, from and to.
func meetingFilterFromQuery(q url.Values) (models.MeetingFilter, error) {
	filter := models.MeetingFilter{
		OrganizationID: q.Get("organization_id"),
		DepartmentID:   q.Get("department_id"),
		ParentUID:      q.Get("parent"),
		Status:         models.MeetingStatus(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, domain.NewValidationError("unknown meeting status "+string(filter.Status), domain.ErrValidationFailed)
	}

	for _, bound := range []struct {
		key    string
		target **time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := q.Get(bound.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, domain.NewValidationError(bound.key+" must be an RFC 3339 timestamp", err)
		}
		*bound.target = &t
	}
	return filter, nil
}
