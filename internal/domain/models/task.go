// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"errors"
	"strings"
	"time"
)

// TaskStatus is the work state of a task.
type TaskStatus string

const (
	TaskStatusPending         TaskStatus = "pending"
	TaskStatusInProgress      TaskStatus = "in-progress"
	TaskStatusHold            TaskStatus = "hold"
	TaskStatusBlocked         TaskStatus = "blocked"
	TaskStatusCompleted       TaskStatus = "completed"
	TaskStatusCancelled       TaskStatus = "cancelled"
	TaskStatusPendingApproval TaskStatus = "pending-approval"
)

// IsValid reports whether the task status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusHold, TaskStatusBlocked,
		TaskStatusCompleted, TaskStatusCancelled, TaskStatusPendingApproval:
		return true
	}
	return false
}

// TaskContext scopes a task to a user, a department or a whole organization.
type TaskContext string

const (
	TaskContextIndividual   TaskContext = "individual"
	TaskContextDepartment   TaskContext = "department"
	TaskContextOrganization TaskContext = "organization"
)

// ApprovalLevel is the scope at which a pending task must be approved.
type ApprovalLevel string

const (
	ApprovalLevelDepartment   ApprovalLevel = "department"
	ApprovalLevelOrganization ApprovalLevel = "organization"
)

// IsValid reports whether the approval level is one of the known values.
func (l ApprovalLevel) IsValid() bool {
	return l == ApprovalLevelDepartment || l == ApprovalLevelOrganization
}

// DefaultRejectionReason is recorded when an approver rejects without a reason.
const DefaultRejectionReason = "Rejected without a stated reason"

// Task validation errors.
var (
	ErrTaskDescriptionRequired = errors.New("description is required")
	ErrInvalidTaskStatus       = errors.New("invalid task status")
	ErrInvalidTaskContext      = errors.New("invalid task context")
	ErrInvalidApprovalLevel    = errors.New("invalid approval level")
	ErrInvalidPriority         = errors.New("priority must be between 1 and 5")
	ErrTaskScopeRequired       = errors.New("organization_id is required for department and organization tasks")
	ErrTaskDepartmentRequired  = errors.New("department_id is required for department tasks")
)

// Task is the stored representation of a task, including its approval state.
type Task struct {
	UID              string      `json:"uid"`
	Description      string      `json:"description"`
	Details          string      `json:"details,omitempty"`
	Status           TaskStatus  `json:"status"`
	Priority         int         `json:"priority,omitempty"`
	TaskContext      TaskContext `json:"task_context"`
	OrganizationID   string      `json:"organization_id,omitempty"`
	DepartmentID     string      `json:"department_id,omitempty"`
	AssignedToUserID string      `json:"assigned_to_user_id,omitempty"`
	CreatedBy        string      `json:"created_by"`
	DueDate          *time.Time  `json:"due_date,omitempty"`

	RequiresApproval bool          `json:"requires_approval"`
	ApprovalLevel    ApprovalLevel `json:"approval_level,omitempty"`
	SubmittedBy      string        `json:"submitted_by,omitempty"`
	SubmittedByName  string        `json:"submitted_by_name,omitempty"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
	Approved         *bool         `json:"approved,omitempty"`
	ApprovedBy       string        `json:"approved_by,omitempty"`
	ApprovedByName   string        `json:"approved_by_name,omitempty"`
	ApprovedAt       *time.Time    `json:"approved_at,omitempty"`
	RejectedBy       string        `json:"rejected_by,omitempty"`
	RejectedByName   string        `json:"rejected_by_name,omitempty"`
	RejectedAt       *time.Time    `json:"rejected_at,omitempty"`
	RejectionReason  string        `json:"rejection_reason,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Validate checks the record-level invariants of a task.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrTaskDescriptionRequired
	}
	if t.Status != "" && !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if t.Priority != 0 && (t.Priority < 1 || t.Priority > 5) {
		return ErrInvalidPriority
	}
	switch t.TaskContext {
	case TaskContextIndividual:
	case TaskContextDepartment:
		if t.OrganizationID == "" {
			return ErrTaskScopeRequired
		}
		if t.DepartmentID == "" {
			return ErrTaskDepartmentRequired
		}
	case TaskContextOrganization:
		if t.OrganizationID == "" {
			return ErrTaskScopeRequired
		}
	default:
		return ErrInvalidTaskContext
	}
	if t.ApprovalLevel != "" && !t.ApprovalLevel.IsValid() {
		return ErrInvalidApprovalLevel
	}
	return nil
}

// AwaitingDecision reports whether the task is in the approval queue and has
// not been resolved yet.
func (t *Task) AwaitingDecision() bool {
	return t.Status == TaskStatusPendingApproval && t.Approved == nil
}

// IsResolved reports whether an approver has already approved or rejected the task.
func (t *Task) IsResolved() bool {
	return t.Approved != nil
}

// ApprovalLevelFor maps a task context to the level its approval runs at.
func ApprovalLevelFor(c TaskContext) ApprovalLevel {
	if c == TaskContextDepartment {
		return ApprovalLevelDepartment
	}
	return ApprovalLevelOrganization
}

// PendingApprovalFilter scopes a pending-approval listing.
type PendingApprovalFilter struct {
	OrganizationID string
	DepartmentID   string
	Level          ApprovalLevel
}

// Matches reports whether the task is pending approval within the filter scope.
func (f PendingApprovalFilter) Matches(t *Task) bool {
	if t == nil || t.Status != TaskStatusPendingApproval || !t.RequiresApproval {
		return false
	}
	if f.OrganizationID != "" && t.OrganizationID != f.OrganizationID {
		return false
	}
	if f.DepartmentID != "" && t.DepartmentID != f.DepartmentID {
		return false
	}
	if f.Level != "" && t.ApprovalLevel != f.Level {
		return false
	}
	return true
}
