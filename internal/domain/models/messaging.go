// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the meeting service publishes events on.
const (
	// MeetingCreatedSubject is published once per stored meeting record,
	// including every materialized occurrence.
	// The subject is of the form: tasknest.meeting.created
	MeetingCreatedSubject = "tasknest.meeting.created"

	// MeetingUpdatedSubject is published after any lifecycle mutation.
	// The subject is of the form: tasknest.meeting.updated
	MeetingUpdatedSubject = "tasknest.meeting.updated"

	// MeetingDeletedSubject is published after a single meeting record is removed.
	// The subject is of the form: tasknest.meeting.deleted
	MeetingDeletedSubject = "tasknest.meeting.deleted"

	// TaskApprovalRequestedSubject is published when a task enters the approval queue.
	// The subject is of the form: tasknest.task.approval_requested
	TaskApprovalRequestedSubject = "tasknest.task.approval_requested"

	// TaskApprovalResolvedSubject is published when an approver approves or rejects a task.
	// The subject is of the form: tasknest.task.approval_resolved
	TaskApprovalResolvedSubject = "tasknest.task.approval_resolved"
)

// NATS wildcard subjects that the meeting service handles messages about.
const (
	// MeetingsAPIQueue is the queue group shared by all service instances.
	// The subject is of the form: tasknest.meetings-api.queue
	MeetingsAPIQueue = "tasknest.meetings-api.queue"
)

// NATS request/reply subjects served by the meeting service.
const (
	// MeetingGetTitleSubject returns the title of a meeting given its uid.
	// The subject is of the form: tasknest.meeting.get_title
	MeetingGetTitleSubject = "tasknest.meeting.get_title"

	// TaskResolveApprovalSubject resolves a pending task approval.
	// The subject is of the form: tasknest.task.resolve_approval
	TaskResolveApprovalSubject = "tasknest.task.resolve_approval"

	// ApprovalsListPendingSubject lists the tasks awaiting approval in a scope.
	// The subject is of the form: tasknest.approvals.list_pending
	ApprovalsListPendingSubject = "tasknest.approvals.list_pending"
)

// MessageAction is a type for the action of a meeting event.
type MessageAction string

// MessageAction constants for the action of a meeting event.
const (
	ActionCreated MessageAction = "created"
	ActionUpdated MessageAction = "updated"
	ActionDeleted MessageAction = "deleted"
)

// ApprovalAction is the action of a task approval event.
type ApprovalAction string

// ApprovalAction constants.
const (
	ApprovalActionRequested ApprovalAction = "requested"
	ApprovalActionApproved  ApprovalAction = "approved"
	ApprovalActionRejected  ApprovalAction = "rejected"
)

// EventEnvelope wraps every published event.
type EventEnvelope struct {
	Action      string            `json:"action"`
	Headers     map[string]string `json:"headers,omitempty"`
	Data        any               `json:"data"`
	Tags        []string          `json:"tags,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

// MeetingEventMessage is the payload of the meeting lifecycle events.
type MeetingEventMessage struct {
	Action         MessageAction `json:"action"`
	MeetingUID     string        `json:"meeting_uid"`
	ParentUID      string        `json:"parent_uid,omitempty"`
	OrganizationID string        `json:"organization_id"`
	DepartmentID   string        `json:"department_id,omitempty"`
	Title          string        `json:"title,omitempty"`
	StartDate      *time.Time    `json:"start_date,omitempty"`
	Status         MeetingStatus `json:"status,omitempty"`
	ActorID        string        `json:"actor_id,omitempty"`
}

// NewMeetingEventMessage builds an event payload describing the meeting.
func NewMeetingEventMessage(action MessageAction, m *Meeting, actorID string) MeetingEventMessage {
	start := m.StartDate
	return MeetingEventMessage{
		Action:         action,
		MeetingUID:     m.UID,
		ParentUID:      m.ParentUID,
		OrganizationID: m.OrganizationID,
		DepartmentID:   m.DepartmentID,
		Title:          m.Title,
		StartDate:      &start,
		Status:         m.Status,
		ActorID:        actorID,
	}
}

// TaskApprovalMessage is the payload of the approval events.
type TaskApprovalMessage struct {
	TaskUID         string        `json:"task_uid"`
	OrganizationID  string        `json:"organization_id"`
	DepartmentID    string        `json:"department_id,omitempty"`
	Level           ApprovalLevel `json:"approval_level"`
	Description     string        `json:"description"`
	SubmittedBy     string        `json:"submitted_by"`
	SubmittedByName string        `json:"submitted_by_name,omitempty"`
	Approved        *bool         `json:"approved,omitempty"`
	ResolvedBy      string        `json:"resolved_by,omitempty"`
	ResolvedByName  string        `json:"resolved_by_name,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	Approvers       []string      `json:"approvers,omitempty"`
}

// Tags returns the routing tags of a meeting event.
func (m MeetingEventMessage) Tags() []string {
	tags := []string{
		"meeting_uid:" + m.MeetingUID,
		"organization_id:" + m.OrganizationID,
	}
	if m.ParentUID != "" {
		tags = append(tags, "parent_uid:"+m.ParentUID)
	}
	if m.DepartmentID != "" {
		tags = append(tags, "department_id:"+m.DepartmentID)
	}
	return tags
}

// Action reports what happened to the task approval.
func (m TaskApprovalMessage) Action() ApprovalAction {
	switch {
	case m.Approved == nil:
		return ApprovalActionRequested
	case *m.Approved:
		return ApprovalActionApproved
	}
	return ApprovalActionRejected
}

// Tags returns the routing tags of an approval event.
func (m TaskApprovalMessage) Tags() []string {
	tags := []string{
		"task_uid:" + m.TaskUID,
		"organization_id:" + m.OrganizationID,
		"approval_level:" + string(m.Level),
	}
	if m.DepartmentID != "" {
		tags = append(tags, "department_id:"+m.DepartmentID)
	}
	return tags
}

// NewTaskApprovalMessage builds an approval event payload from the task.
func NewTaskApprovalMessage(t *Task) TaskApprovalMessage {
	msg := TaskApprovalMessage{
		TaskUID:         t.UID,
		OrganizationID:  t.OrganizationID,
		DepartmentID:    t.DepartmentID,
		Level:           t.ApprovalLevel,
		Description:     t.Description,
		SubmittedBy:     t.SubmittedBy,
		SubmittedByName: t.SubmittedByName,
		Approved:        t.Approved,
		RejectionReason: t.RejectionReason,
	}
	if t.Approved != nil {
		if *t.Approved {
			msg.ResolvedBy, msg.ResolvedByName = t.ApprovedBy, t.ApprovedByName
		} else {
			msg.ResolvedBy, msg.ResolvedByName = t.RejectedBy, t.RejectedByName
		}
	}
	return msg
}

// ResolveApprovalRequest is the request body of the resolve approval subject.
// Token is the approver's bearer token.
type ResolveApprovalRequest struct {
	TaskUID string `json:"task_uid"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
	Token   string `json:"token"`
}

// ListPendingApprovalsRequest is the request body of the list pending subject.
// Token is the caller's bearer token.
type ListPendingApprovalsRequest struct {
	OrganizationID string        `json:"organization_id"`
	DepartmentID   string        `json:"department_id,omitempty"`
	Level          ApprovalLevel `json:"approval_level,omitempty"`
	Token          string        `json:"token"`
}
