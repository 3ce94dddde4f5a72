// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"errors"
	"strings"
	"time"
)

// MeetingType is the cadence label a meeting was created with.
type MeetingType string

const (
	MeetingTypeDaily   MeetingType = "daily"
	MeetingTypeWeekly  MeetingType = "weekly"
	MeetingTypeMonthly MeetingType = "monthly"
	MeetingTypeCustom  MeetingType = "custom"
)

// IsValid reports whether the meeting type is one of the known values.
func (t MeetingType) IsValid() bool {
	switch t {
	case MeetingTypeDaily, MeetingTypeWeekly, MeetingTypeMonthly, MeetingTypeCustom:
		return true
	}
	return false
}

// AttendanceStatus is the attendance outcome recorded for a participant.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// IsValid reports whether the attendance status is one of the known values.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// AgendaItemStatus tracks progress through a single agenda item.
type AgendaItemStatus string

const (
	AgendaItemPending    AgendaItemStatus = "pending"
	AgendaItemInProgress AgendaItemStatus = "in-progress"
	AgendaItemCompleted  AgendaItemStatus = "completed"
	AgendaItemSkipped    AgendaItemStatus = "skipped"
)

// IsValid reports whether the agenda item status is one of the known values.
func (s AgendaItemStatus) IsValid() bool {
	switch s {
	case AgendaItemPending, AgendaItemInProgress, AgendaItemCompleted, AgendaItemSkipped:
		return true
	}
	return false
}

// Meeting is the stored representation of a meeting. Occurrences of a recurring
// meeting are stored as independent Meeting records that point back to their
// parent through ParentUID.
type Meeting struct {
	UID              string             `json:"uid"`
	ParentUID        string             `json:"parent_uid,omitempty"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Type             MeetingType        `json:"type"`
	Status           MeetingStatus      `json:"status"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          *time.Time         `json:"end_date,omitempty"`
	Timezone         string             `json:"timezone,omitempty"`
	Location         string             `json:"location,omitempty"`
	IsOnline         bool               `json:"is_online"`
	MeetingLink      string             `json:"meeting_link,omitempty"`
	OrganizationID   string             `json:"organization_id"`
	DepartmentID     string             `json:"department_id,omitempty"`
	CreatedBy        string             `json:"created_by"`
	Participants     []Participant      `json:"participants"`
	Agenda           []AgendaItem       `json:"agenda"`
	Decisions        []Decision         `json:"decisions"`
	Tasks            []LinkedTask       `json:"tasks"`
	Notes            string             `json:"notes"`
	Summary          string             `json:"summary"`
	IsRecurring      bool               `json:"is_recurring"`
	RecurringPattern *RecurrencePattern `json:"recurring_pattern,omitempty"`
	CreatedAt        *time.Time         `json:"created_at,omitempty"`
	UpdatedAt        *time.Time         `json:"updated_at,omitempty"`
}

// Participant is a roster entry embedded in a meeting.
type Participant struct {
	UserID           string           `json:"user_id"`
	Name             string           `json:"name"`
	Email            string           `json:"email,omitempty"`
	Role             string           `json:"role,omitempty"`
	AttendanceStatus AttendanceStatus `json:"attendance_status,omitempty"`
	JoinedAt         *time.Time       `json:"joined_at,omitempty"`
	LeftAt           *time.Time       `json:"left_at,omitempty"`
}

// AttendanceUpdate carries the attendance outcome of one participant.
type AttendanceUpdate struct {
	Status   AttendanceStatus `json:"attendance_status"`
	JoinedAt *time.Time       `json:"joined_at,omitempty"`
	LeftAt   *time.Time       `json:"left_at,omitempty"`
}

// Apply writes the update into the participant. Unset timestamps are left as they are.
func (u AttendanceUpdate) Apply(p *Participant) {
	p.AttendanceStatus = u.Status
	if u.JoinedAt != nil {
		p.JoinedAt = u.JoinedAt
	}
	if u.LeftAt != nil {
		p.LeftAt = u.LeftAt
	}
}

// AgendaItem is a single agenda entry embedded in a meeting.
type AgendaItem struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Duration    int              `json:"duration,omitempty"`
	Presenter   string           `json:"presenter,omitempty"`
	Status      AgendaItemStatus `json:"status"`
	Notes       string           `json:"notes,omitempty"`
}

// AgendaItemPatch carries the fields of an agenda item update. Nil fields are left as they are.
type AgendaItemPatch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Duration    *int              `json:"duration,omitempty"`
	Presenter   *string           `json:"presenter,omitempty"`
	Status      *AgendaItemStatus `json:"status,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
}

// Apply merges the patch into the agenda item.
func (p AgendaItemPatch) Apply(item *AgendaItem) {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Duration != nil {
		item.Duration = *p.Duration
	}
	if p.Presenter != nil {
		item.Presenter = *p.Presenter
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
}

// Decision is an outcome recorded during a meeting.
type Decision struct {
	ID                  string     `json:"id"`
	Description         string     `json:"description"`
	DueDate             *time.Time `json:"due_date,omitempty"`
	ResponsibleUserID   string     `json:"responsible_user_id,omitempty"`
	ResponsibleUserName string     `json:"responsible_user_name,omitempty"`
	Status              string     `json:"status,omitempty"`
	RelatedAgendaItemID string     `json:"related_agenda_item_id,omitempty"`
}

// LinkedTask is a follow-up task captured during a meeting.
type LinkedTask struct {
	ID                  string     `json:"id"`
	Description         string     `json:"description"`
	DueDate             *time.Time `json:"due_date,omitempty"`
	AssignedToUserID    string     `json:"assigned_to_user_id,omitempty"`
	AssignedToUserName  string     `json:"assigned_to_user_name,omitempty"`
	Status              string     `json:"status,omitempty"`
	RelatedAgendaItemID string     `json:"related_agenda_item_id,omitempty"`
	RelatedDecisionID   string     `json:"related_decision_id,omitempty"`
}

// MeetingPatch carries the top-level fields of a generic meeting update.
// Nil fields are left untouched.
type MeetingPatch struct {
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Type         *MeetingType   `json:"type,omitempty"`
	Status       *MeetingStatus `json:"status,omitempty"`
	StartDate    *time.Time     `json:"start_date,omitempty"`
	EndDate      *time.Time     `json:"end_date,omitempty"`
	Timezone     *string        `json:"timezone,omitempty"`
	Location     *string        `json:"location,omitempty"`
	IsOnline     *bool          `json:"is_online,omitempty"`
	MeetingLink  *string        `json:"meeting_link,omitempty"`
	DepartmentID *string        `json:"department_id,omitempty"`
	Participants []Participant  `json:"participants,omitempty"`
	Notes        *string        `json:"notes,omitempty"`
	Summary      *string        `json:"summary,omitempty"`
}

// Apply merges the patch into the meeting. Status is copied as given; callers
// check the transition first.
func (p MeetingPatch) Apply(m *Meeting) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.StartDate != nil {
		m.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		m.EndDate = p.EndDate
	}
	if p.Timezone != nil {
		m.Timezone = *p.Timezone
	}
	if p.Location != nil {
		m.Location = *p.Location
	}
	if p.IsOnline != nil {
		m.IsOnline = *p.IsOnline
	}
	if p.MeetingLink != nil {
		m.MeetingLink = *p.MeetingLink
	}
	if p.DepartmentID != nil {
		m.DepartmentID = *p.DepartmentID
	}
	if p.Participants != nil {
		m.Participants = p.Participants
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
	if p.Summary != nil {
		m.Summary = *p.Summary
	}
}

// MeetingFilter narrows a meeting listing. Empty fields do not filter.
type MeetingFilter struct {
	OrganizationID string
	DepartmentID   string
	ParentUID      string
	Status         MeetingStatus
	From           *time.Time
	To             *time.Time
}

// Matches reports whether the meeting satisfies every set field of the filter.
func (f MeetingFilter) Matches(m *Meeting) bool {
	if m == nil {
		return false
	}
	if f.OrganizationID != "" && m.OrganizationID != f.OrganizationID {
		return false
	}
	if f.DepartmentID != "" && m.DepartmentID != f.DepartmentID {
		return false
	}
	if f.ParentUID != "" && m.ParentUID != f.ParentUID && m.UID != f.ParentUID {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.From != nil && m.StartDate.Before(*f.From) {
		return false
	}
	if f.To != nil && m.StartDate.After(*f.To) {
		return false
	}
	return true
}

// TimeLocation resolves the meeting's time zone, falling back to UTC when the
// zone is empty or unknown.
func (m *Meeting) TimeLocation() *time.Location {
	if m == nil || strings.TrimSpace(m.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Duration returns the meeting length, defaulting to one hour when no end date is set.
func (m *Meeting) Duration() time.Duration {
	if m == nil || m.EndDate == nil {
		return DefaultMeetingDuration
	}
	return m.EndDate.Sub(m.StartDate)
}

// FindParticipant returns the index of the participant with the given user id, or -1.
func (m *Meeting) FindParticipant(userID string) int {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return i
		}
	}
	return -1
}

// FindAgendaItem returns the index of the agenda item with the given id, or -1.
func (m *Meeting) FindAgendaItem(itemID string) int {
	for i := range m.Agenda {
		if m.Agenda[i].ID == itemID {
			return i
		}
	}
	return -1
}

// DefaultMeetingDuration is used when a meeting has no explicit end date.
const DefaultMeetingDuration = time.Hour

// Meeting validation errors.
var (
	ErrTitleRequired            = errors.New("title is required")
	ErrOrganizationRequired     = errors.New("organization_id is required")
	ErrStartDateRequired        = errors.New("start_date is required")
	ErrMeetingEndBeforeStart    = errors.New("end_date must not be before start_date")
	ErrPatternWithoutRecurrence = errors.New("recurring_pattern requires is_recurring")
	ErrRecurrenceWithoutPattern = errors.New("is_recurring requires a recurring_pattern")
	ErrInvalidMeetingType       = errors.New("invalid meeting type")
	ErrInvalidMeetingStatus     = errors.New("invalid meeting status")
	ErrInvalidTimezone          = errors.New("invalid timezone")
)

// Validate checks the record-level invariants of a meeting.
func (m *Meeting) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(m.OrganizationID) == "" {
		return ErrOrganizationRequired
	}
	if m.StartDate.IsZero() {
		return ErrStartDateRequired
	}
	if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
		return ErrMeetingEndBeforeStart
	}
	if m.Type != "" && !m.Type.IsValid() {
		return ErrInvalidMeetingType
	}
	if m.Status != "" && !m.Status.IsValid() {
		return ErrInvalidMeetingStatus
	}
	if m.Timezone != "" {
		if _, err := time.LoadLocation(m.Timezone); err != nil {
			return errors.Join(ErrInvalidTimezone, err)
		}
	}
	if m.IsRecurring && m.RecurringPattern == nil {
		return ErrRecurrenceWithoutPattern
	}
	if !m.IsRecurring && m.RecurringPattern != nil {
		return ErrPatternWithoutRecurrence
	}
	return m.RecurringPattern.Validate(m.StartDate)
}

// OccurrenceAt returns a copy of the meeting materialized at the given start.
// Attendance, decisions, tasks, notes and summary are reset, the status is
// scheduled and the copy does not itself recur.
func (m *Meeting) OccurrenceAt(start time.Time, end *time.Time) *Meeting {
	occ := *m
	occ.UID = ""
	occ.ParentUID = m.UID
	occ.StartDate = start
	occ.EndDate = end
	occ.Status = MeetingStatusScheduled
	occ.IsRecurring = false
	occ.RecurringPattern = nil
	occ.Notes = ""
	occ.Summary = ""
	occ.Decisions = []Decision{}
	occ.Tasks = []LinkedTask{}

	occ.Participants = make([]Participant, len(m.Participants))
	for i, p := range m.Participants {
		occ.Participants[i] = Participant{
			UserID: p.UserID,
			Name:   p.Name,
			Email:  p.Email,
			Role:   p.Role,
		}
	}
	occ.Agenda = append([]AgendaItem{}, m.Agenda...)
	return &occ
}
