// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// SubmitForApprovalRequest is the optional body of POST /tasks/{uid}/submit.
type SubmitForApprovalRequest struct {
	ApprovalLevel models.ApprovalLevel `json:"approval_level,omitempty"`
}

// ResolveApprovalBody is the body of POST /tasks/{uid}/resolve.
type ResolveApprovalBody struct {
	Approve *bool  `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// ListPendingApprovalsResponse is the body of GET /approvals/pending.
type ListPendingApprovalsResponse struct {
	Tasks []*models.Task `json:"tasks"`
}

// CreateTask stores a task, submitting it for approval when required.
func (s *MeetingsAPI) CreateTask(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	var task models.Task
	if err := decodeBody(r, &task); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	created, err := s.approvalService.CreateTask(ctx, auth, &task)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusCreated, created)
}

// GetTask returns one task with its revision as ETag.
func (s *MeetingsAPI) GetTask(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	task, revision, err := s.approvalService.GetTask(ctx, auth, s.pathParam(r, "uid"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(withETag(ctx, revision), w, http.StatusOK, task)
}

// SubmitForApproval queues a task for approval. The body is optional.
func (s *MeetingsAPI) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	var req SubmitForApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		s.handleError(ctx, w, domain.NewValidationError("invalid request body", domain.ErrUnmarshal, err))
		return
	}

	task, err := s.approvalService.SubmitForApproval(ctx, auth, s.pathParam(r, "uid"), req.ApprovalLevel)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusOK, task)
}

// ResolveApproval approves or rejects a task awaiting approval.
func (s *MeetingsAPI) ResolveApproval(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	var body ResolveApprovalBody
	if err := decodeBody(r, &body); err != nil {
		s.handleError(ctx, w, err)
		return
	}
	if body.Approve == nil {
		s.handleError(ctx, w, domain.NewValidationError("approve is required", domain.ErrValidationFailed))
		return
	}

	task, err := s.approvalService.ResolveApproval(ctx, auth, s.pathParam(r, "uid"), *body.Approve, body.Reason)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.writeJSON(ctx, w, http.StatusOK, task)
}

// ListPendingApprovals returns the tasks awaiting the caller's decision.
func (s *MeetingsAPI) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	auth, ctx := s.authorize(w, r)
	if auth == nil {
		return
	}

	q := r.URL.Query()
	filter := models.PendingApprovalFilter{
		OrganizationID: q.Get("organization_id"),
		DepartmentID:   q.Get("department_id"),
		Level:          models.ApprovalLevel(q.Get("level")),
	}
	if filter.Level != "" && !filter.Level.IsValid() {
		s.handleError(ctx, w, domain.NewValidationError("invalid approval level", models.ErrInvalidApprovalLevel))
		return
	}

	tasks, err := s.approvalService.ListPendingApprovals(ctx, auth, filter)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	s.writeJSON(ctx, w, http.StatusOK, ListPendingApprovalsResponse{Tasks: tasks})
}
