// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/metrics"
)

// ApprovalService stores tasks and runs the task approval workflow.
type ApprovalService struct {
	TaskRepository domain.TaskRepository
	MessageBuilder domain.MessageBuilder
	// Directory is optional. When set, approval requests name the members
	// allowed to resolve them.
	Directory domain.MemberDirectory
	Config    ServiceConfig
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	taskRepository domain.TaskRepository,
	messageBuilder domain.MessageBuilder,
	directory domain.MemberDirectory,
	config ServiceConfig,
) *ApprovalService {
	return &ApprovalService{
		TaskRepository: taskRepository,
		MessageBuilder: messageBuilder,
		Directory:      directory,
		Config:         config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *ApprovalService) ServiceReady() bool {
	return s.TaskRepository != nil && s.MessageBuilder != nil
}

func canAccessTask(auth *models.AuthorizationContext, task *models.Task) bool {
	if auth == nil {
		return false
	}
	if task.CreatedBy == auth.UserID || task.AssignedToUserID == auth.UserID {
		return true
	}
	return canAccessOrganization(auth, task.OrganizationID)
}

func clearApproval(task *models.Task) {
	task.RequiresApproval = false
	task.ApprovalLevel = ""
	task.SubmittedBy, task.SubmittedByName, task.SubmittedAt = "", "", nil
	task.Approved = nil
	task.ApprovedBy, task.ApprovedByName, task.ApprovedAt = "", "", nil
	task.RejectedBy, task.RejectedByName, task.RejectedAt = "", "", nil
	task.RejectionReason = ""
}

func (s *ApprovalService) markSubmitted(task *models.Task, auth *models.AuthorizationContext, level models.ApprovalLevel) {
	now := s.Config.now()
	task.Status = models.TaskStatusPendingApproval
	task.RequiresApproval = true
	task.ApprovalLevel = level
	task.SubmittedBy = auth.UserID
	task.SubmittedByName = auth.DisplayName()
	task.SubmittedAt = &now
	task.UpdatedAt = &now
}

// CreateTask stores a new task. A caller that may create the task but not
// write it directly gets it queued for approval instead.
func (s *ApprovalService) CreateTask(ctx context.Context, auth *models.AuthorizationContext, task *models.Task) (*models.Task, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if task == nil {
		return nil, domain.NewValidationError("task is required")
	}
	if auth == nil {
		return nil, domain.NewPermissionDeniedError("caller is not authenticated")
	}

	if task.TaskContext == "" {
		task.TaskContext = models.TaskContextIndividual
	}
	if task.Status == "" || task.Status == models.TaskStatusPendingApproval {
		task.Status = models.TaskStatusPending
	}
	task.CreatedBy = auth.UserID
	clearApproval(task)

	if err := task.Validate(); err != nil {
		slog.WarnContext(ctx, "invalid task payload", logging.ErrKey, err)
		return nil, domain.NewValidationError("invalid task", err)
	}

	if !canCreateTask(auth, task) {
		slog.WarnContext(ctx, "caller may not create task",
			"task_context", task.TaskContext,
			"organization_id", task.OrganizationID,
			"user_id", auth.UserID,
		)
		return nil, domain.NewPermissionDeniedError("caller may not create "+string(task.TaskContext)+" tasks", domain.ErrPermissionDenied)
	}

	now := s.Config.now()
	task.UID = uuid.New().String()
	task.CreatedAt = &now
	task.UpdatedAt = &now

	queued := !canWriteTaskDirectly(auth, task)
	if queued {
		s.markSubmitted(task, auth, models.ApprovalLevelFor(task.TaskContext))
	}

	ctx = logging.AppendCtx(ctx, slog.String("task_uid", task.UID))

	if err := s.TaskRepository.CreateTask(ctx, task); err != nil {
		slog.ErrorContext(ctx, "error creating task", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "created task", "queued_for_approval", queued)

	if queued {
		s.publishApprovalEvent(ctx, models.TaskApprovalRequestedSubject, task, true)
	}

	return task, nil
}

// GetTask returns a task and its current revision.
func (s *ApprovalService) GetTask(ctx context.Context, auth *models.AuthorizationContext, uid string) (*models.Task, string, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, "", domain.ErrServiceUnavailable
	}

	task, revision, err := s.TaskRepository.GetTaskWithRevision(ctx, uid)
	if err != nil {
		return nil, "", err
	}
	if !canAccessTask(auth, task) {
		return nil, "", domain.NewPermissionDeniedError("caller may not read this task", domain.ErrPermissionDenied)
	}
	return task, strconv.FormatUint(revision, 10), nil
}

// SubmitForApproval queues an existing task for approval at the given level.
// An empty level is derived from the task context.
func (s *ApprovalService) SubmitForApproval(
	ctx context.Context,
	auth *models.AuthorizationContext,
	uid string,
	level models.ApprovalLevel,
) (*models.Task, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	ctx = logging.AppendCtx(ctx, slog.String("task_uid", uid))

	task, revision, err := s.TaskRepository.GetTaskWithRevision(ctx, uid)
	if err != nil {
		slog.WarnContext(ctx, "error getting task", logging.ErrKey, err)
		return nil, err
	}

	if !canAccessTask(auth, task) {
		return nil, domain.NewPermissionDeniedError("caller may not submit this task", domain.ErrPermissionDenied)
	}
	if task.IsResolved() {
		return nil, domain.NewConflictError("task approval was already resolved", domain.ErrAlreadyResolved)
	}
	if task.AwaitingDecision() {
		return nil, domain.NewConflictError("task is already awaiting approval")
	}
	if task.OrganizationID == "" {
		return nil, domain.NewValidationError("task has no organization to approve it")
	}

	if level == "" {
		level = models.ApprovalLevelFor(task.TaskContext)
	}
	if !level.IsValid() {
		return nil, domain.NewValidationError("invalid approval level", models.ErrInvalidApprovalLevel)
	}
	if level == models.ApprovalLevelDepartment && task.DepartmentID == "" {
		return nil, domain.NewValidationError("department approval requires a department task", models.ErrTaskDepartmentRequired)
	}

	s.markSubmitted(task, auth, level)

	if err := s.TaskRepository.UpdateTask(ctx, task, revision); err != nil {
		slog.WarnContext(ctx, "error submitting task for approval", logging.ErrKey, err)
		return nil, err
	}

	s.publishApprovalEvent(ctx, models.TaskApprovalRequestedSubject, task, true)

	return task, nil
}

// ResolveApproval approves or rejects a task awaiting a decision. The outcome
// and the resulting status are stored in one revision-checked write, so a
// second resolution always fails with a conflict.
func (s *ApprovalService) ResolveApproval(
	ctx context.Context,
	auth *models.AuthorizationContext,
	uid string,
	approve bool,
	reason string,
) (*models.Task, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	ctx = logging.AppendCtx(ctx, slog.String("task_uid", uid))

	task, revision, err := s.TaskRepository.GetTaskWithRevision(ctx, uid)
	if err != nil {
		slog.WarnContext(ctx, "error getting task", logging.ErrKey, err)
		return nil, err
	}

	if !canResolveApproval(auth, task) {
		slog.WarnContext(ctx, "caller may not resolve approval",
			"approval_level", task.ApprovalLevel,
			"user_id", actorID(auth),
		)
		return nil, domain.NewPermissionDeniedError("caller may not resolve this approval", domain.ErrPermissionDenied)
	}

	if task.IsResolved() {
		slog.WarnContext(ctx, "task approval already resolved")
		return nil, domain.NewConflictError("task approval was already resolved", domain.ErrAlreadyResolved)
	}
	if !task.AwaitingDecision() {
		return nil, domain.NewConflictError("task is not awaiting approval", domain.ErrNotAwaitingApproval)
	}

	now := s.Config.now()
	outcome := approve
	task.Approved = &outcome
	task.UpdatedAt = &now
	if approve {
		task.Status = models.TaskStatusPending
		task.ApprovedBy = auth.UserID
		task.ApprovedByName = auth.DisplayName()
		task.ApprovedAt = &now
	} else {
		if strings.TrimSpace(reason) == "" {
			reason = models.DefaultRejectionReason
		}
		task.Status = models.TaskStatusCancelled
		task.RejectedBy = auth.UserID
		task.RejectedByName = auth.DisplayName()
		task.RejectedAt = &now
		task.RejectionReason = reason
	}

	if err := s.TaskRepository.UpdateTask(ctx, task, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.WarnContext(ctx, "task approval was resolved concurrently", logging.ErrKey, err)
			return nil, domain.NewConflictError("task approval was already resolved", domain.ErrAlreadyResolved, err)
		}
		slog.ErrorContext(ctx, "error storing approval resolution", logging.ErrKey, err)
		return nil, err
	}

	if approve {
		metrics.ApprovalResolutions.WithLabelValues("approved").Inc()
	} else {
		metrics.ApprovalResolutions.WithLabelValues("rejected").Inc()
	}
	slog.InfoContext(ctx, "resolved task approval", "approved", approve)

	s.publishApprovalEvent(ctx, models.TaskApprovalResolvedSubject, task, false)

	return task, nil
}

// ListPendingApprovals returns the tasks awaiting approval that the caller may resolve or oversee.
func (s *ApprovalService) ListPendingApprovals(
	ctx context.Context,
	auth *models.AuthorizationContext,
	filter models.PendingApprovalFilter,
) ([]*models.Task, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	if filter.Level != "" && !filter.Level.IsValid() {
		return nil, domain.NewValidationError("invalid approval level", models.ErrInvalidApprovalLevel)
	}

	scoped, ok := pendingApprovalScope(auth, filter)
	if !ok {
		return nil, domain.NewPermissionDeniedError("caller may not list pending approvals", domain.ErrPermissionDenied)
	}

	tasks, err := s.TaskRepository.ListPendingApprovals(ctx, scoped)
	if err != nil {
		slog.ErrorContext(ctx, "error listing pending approvals", logging.ErrKey, err)
		return nil, err
	}
	return tasks, nil
}

// publishApprovalEvent sends an approval event. Failures are logged only.
func (s *ApprovalService) publishApprovalEvent(ctx context.Context, subject string, task *models.Task, withApprovers bool) {
	event := models.NewTaskApprovalMessage(task)
	if withApprovers {
		event.Approvers = s.lookupApprovers(ctx, task)
	}
	if err := s.MessageBuilder.SendApprovalEvent(ctx, subject, event); err != nil {
		slog.ErrorContext(ctx, "failed to send approval event", "subject", subject, logging.ErrKey, err)
	}
}

// lookupApprovers returns the members that could resolve the task.
func (s *ApprovalService) lookupApprovers(ctx context.Context, task *models.Task) []string {
	if s.Directory == nil || task.OrganizationID == "" {
		return nil
	}

	members, err := s.Directory.ListMembers(ctx, task.OrganizationID)
	if err != nil {
		slog.WarnContext(ctx, "could not look up approvers", logging.ErrKey, err)
		return nil
	}

	var approvers []string
	for _, m := range members {
		if m.UserID == "" || m.UserID == task.SubmittedBy {
			continue
		}
		candidate := models.NewAuthorizationContext(m.UserID, task.OrganizationID, m.DepartmentID, m.Role)
		if canResolveApproval(candidate, task) {
			approvers = append(approvers, m.UserID)
		}
	}
	return approvers
}
