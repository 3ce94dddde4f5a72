// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/internal/service"
)

// MeetingHandler handles the request/reply subjects served over NATS.
type MeetingHandler struct {
	meetingService  *service.MeetingService
	approvalService *service.ApprovalService
	authService     *service.AuthService
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(
	meetingService *service.MeetingService,
	approvalService *service.ApprovalService,
	authService *service.AuthService,
) *MeetingHandler {
	return &MeetingHandler{
		meetingService:  meetingService,
		approvalService: approvalService,
		authService:     authService,
	}
}

// HandlerReady reports whether every backing service is ready.
func (s *MeetingHandler) HandlerReady() bool {
	return s.meetingService != nil && s.meetingService.ServiceReady() &&
		s.approvalService != nil && s.approvalService.ServiceReady() &&
		s.authService != nil && s.authService.ServiceReady()
}

// Subjects lists the subjects this handler answers.
func (s *MeetingHandler) Subjects() []string {
	return []string{
		models.MeetingGetTitleSubject,
		models.TaskResolveApprovalSubject,
		models.ApprovalsListPendingSubject,
	}
}

// errorReply is the body sent back when a request fails.
type errorReply struct {
	Error string `json:"error"`
}

// ListPendingApprovalsReply is the body of a successful list pending reply.
type ListPendingApprovalsReply struct {
	Tasks []*models.Task `json:"tasks"`
}

// HandleMessage implements domain.MessageHandler interface
func (s *MeetingHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.MeetingGetTitleSubject:      s.HandleMeetingGetTitle,
		models.TaskResolveApprovalSubject:  s.HandleResolveApproval,
		models.ApprovalsListPendingSubject: s.HandleListPendingApprovals,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		s.respond(ctx, msg, encodeError(domain.NewNotFoundError("unknown subject "+subject)))
		return
	}

	response, err := handler(ctx, msg)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeInternal {
			slog.ErrorContext(ctx, "error handling message", logging.ErrKey, err)
		} else {
			slog.WarnContext(ctx, "message rejected", logging.ErrKey, err)
		}
		s.respond(ctx, msg, encodeError(err))
		return
	}

	s.respond(ctx, msg, response)
}

func (s *MeetingHandler) respond(ctx context.Context, msg domain.Message, response []byte) {
	if !msg.HasReply() {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
		return
	}
	if err := msg.Respond(response); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
		return
	}
	slog.DebugContext(ctx, "responded to NATS message", "response_size", len(response))
}

func encodeError(err error) []byte {
	body, marshalErr := json.Marshal(errorReply{Error: err.Error()})
	if marshalErr != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return body
}

// HandleMeetingGetTitle replies with the plain title of the meeting whose uid
// is the message body.
func (s *MeetingHandler) HandleMeetingGetTitle(ctx context.Context, msg domain.Message) ([]byte, error) {
	meetingUID := strings.TrimSpace(string(msg.Data()))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	if _, err := uuid.Parse(meetingUID); err != nil {
		return nil, domain.NewValidationError("meeting uid must be a UUID", err)
	}

	title, err := s.meetingService.GetMeetingTitle(ctx, meetingUID)
	if err != nil {
		return nil, err
	}
	return []byte(title), nil
}

// authorize resolves the caller from the bearer token carried in a request.
func (s *MeetingHandler) authorize(ctx context.Context, token string) (*models.AuthorizationContext, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.NewPermissionDeniedError("token is required", domain.ErrPermissionDenied)
	}
	if s.authService == nil {
		return nil, domain.ErrServiceUnavailable
	}

	auth, err := s.authService.ParseAuthorization(ctx, token, slog.Default())
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeUnavailable {
			return nil, err
		}
		return nil, domain.NewPermissionDeniedError("invalid token", domain.ErrPermissionDenied, err)
	}
	if auth == nil || auth.UserID == "" {
		return nil, domain.NewPermissionDeniedError("token has no principal", domain.ErrPermissionDenied)
	}
	return auth, nil
}

// HandleResolveApproval approves or rejects a task on behalf of the holder of
// the request token.
func (s *MeetingHandler) HandleResolveApproval(ctx context.Context, msg domain.Message) ([]byte, error) {
	var req models.ResolveApprovalRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		return nil, domain.NewValidationError("invalid resolve approval request", domain.ErrUnmarshal, err)
	}
	if req.TaskUID == "" {
		return nil, domain.NewValidationError("task_uid is required")
	}
	approver, err := s.authorize(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("user_id", approver.UserID))

	task, err := s.approvalService.ResolveApproval(ctx, approver, req.TaskUID, req.Approve, req.Reason)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(task)
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal task", err)
	}
	return body, nil
}

// HandleListPendingApprovals replies with the tasks awaiting approval that the
// caller may see.
func (s *MeetingHandler) HandleListPendingApprovals(ctx context.Context, msg domain.Message) ([]byte, error) {
	var req models.ListPendingApprovalsRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		return nil, domain.NewValidationError("invalid list pending approvals request", domain.ErrUnmarshal, err)
	}
	caller, err := s.authorize(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	tasks, err := s.approvalService.ListPendingApprovals(ctx, caller, models.PendingApprovalFilter{
		OrganizationID: req.OrganizationID,
		DepartmentID:   req.DepartmentID,
		Level:          req.Level,
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	body, err := json.Marshal(ListPendingApprovalsReply{Tasks: tasks})
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal tasks", err)
	}
	return body, nil
}
