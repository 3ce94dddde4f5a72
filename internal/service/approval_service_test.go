// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/mocks"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

func setupApprovalService() (*ApprovalService, *mocks.MockTaskRepository, *mocks.MockMessageBuilder) {
	repo := &mocks.MockTaskRepository{}
	builder := &mocks.MockMessageBuilder{}
	service := NewApprovalService(repo, builder, nil, ServiceConfig{
		Now: func() time.Time { return fixedNow },
	})
	return service, repo, builder
}

func pendingTask() *models.Task {
	submitted := fixedNow.Add(-time.Hour)
	return &models.Task{
		UID:              "task-1",
		Description:      "Replace pump seal",
		Status:           models.TaskStatusPendingApproval,
		TaskContext:      models.TaskContextDepartment,
		OrganizationID:   "org-1",
		DepartmentID:     "dept-1",
		CreatedBy:        "tech-1",
		RequiresApproval: true,
		ApprovalLevel:    models.ApprovalLevelDepartment,
		SubmittedBy:      "tech-1",
		SubmittedAt:      &submitted,
	}
}

func TestApprovalService_CreateTask(t *testing.T) {
	tests := []struct {
		name         string
		auth         *models.AuthorizationContext
		task         models.Task
		expectQueued bool
		expectedType *domain.ErrorType
	}{
		{
			name:         "supervisor writes department task directly",
			auth:         models.NewAuthorizationContext("sup", "org-1", "dept-1", models.RoleOrgSupervisor),
			task:         models.Task{Description: "x", TaskContext: models.TaskContextDepartment, OrganizationID: "org-1", DepartmentID: "dept-1"},
			expectQueued: false,
		},
		{
			name:         "technician department task is queued",
			auth:         models.NewAuthorizationContext("tech", "org-1", "dept-1", models.RoleOrgTechnician),
			task:         models.Task{Description: "x", TaskContext: models.TaskContextDepartment, OrganizationID: "org-1", DepartmentID: "dept-1"},
			expectQueued: true,
		},
		{
			name:         "supervisor organization task is queued",
			auth:         models.NewAuthorizationContext("sup", "org-1", "dept-1", models.RoleOrgSupervisor),
			task:         models.Task{Description: "x", TaskContext: models.TaskContextOrganization, OrganizationID: "org-1"},
			expectQueued: true,
		},
		{
			name:         "admin writes organization task directly",
			auth:         models.NewAuthorizationContext("adm", "org-1", "", models.RoleOrgAdmin),
			task:         models.Task{Description: "x", TaskContext: models.TaskContextOrganization, OrganizationID: "org-1"},
			expectQueued: false,
		},
		{
			name:         "individual task is never queued",
			auth:         models.NewAuthorizationContext("solo", "", "", models.RoleIndependent),
			task:         models.Task{Description: "x"},
			expectQueued: false,
		},
		{
			name:         "technician cannot create organization tasks",
			auth:         models.NewAuthorizationContext("tech", "org-1", "dept-1", models.RoleOrgTechnician),
			task:         models.Task{Description: "x", TaskContext: models.TaskContextOrganization, OrganizationID: "org-1"},
			expectedType: errType(domain.ErrorTypePermissionDenied),
		},
		{
			name:         "assistant cannot create department tasks",
			auth:         models.NewAuthorizationContext("asst", "org-1", "dept-1", models.RoleOrgAssistant),
			task:         models.Task{Description: "x", TaskContext: models.TaskContextDepartment, OrganizationID: "org-1", DepartmentID: "dept-1"},
			expectedType: errType(domain.ErrorTypePermissionDenied),
		},
		{
			name:         "other organization",
			auth:         models.NewAuthorizationContext("adm", "org-2", "", models.RoleOrgAdmin),
			task:         models.Task{Description: "x", TaskContext: models.TaskContextOrganization, OrganizationID: "org-1"},
			expectedType: errType(domain.ErrorTypePermissionDenied),
		},
		{
			name:         "missing description",
			auth:         models.NewAuthorizationContext("adm", "org-1", "", models.RoleOrgAdmin),
			task:         models.Task{TaskContext: models.TaskContextOrganization, OrganizationID: "org-1"},
			expectedType: errType(domain.ErrorTypeValidation),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo, builder := setupApprovalService()
			repo.On("CreateTask", mock.Anything, mock.Anything).Return(nil)
			builder.On("SendApprovalEvent", mock.Anything, models.TaskApprovalRequestedSubject, mock.Anything).Return(nil)

			task := tt.task
			created, err := service.CreateTask(context.Background(), tt.auth, &task)

			if tt.expectedType != nil {
				require.Error(t, err)
				assert.Equal(t, *tt.expectedType, domain.GetErrorType(err))
				repo.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, created.UID)
			assert.Equal(t, tt.auth.UserID, created.CreatedBy)
			if tt.expectQueued {
				assert.Equal(t, models.TaskStatusPendingApproval, created.Status)
				assert.True(t, created.RequiresApproval)
				assert.Equal(t, models.ApprovalLevelFor(created.TaskContext), created.ApprovalLevel)
				assert.Equal(t, tt.auth.UserID, created.SubmittedBy)
				assert.True(t, created.AwaitingDecision())
				builder.AssertNumberOfCalls(t, "SendApprovalEvent", 1)
			} else {
				assert.Equal(t, models.TaskStatusPending, created.Status)
				assert.False(t, created.RequiresApproval)
				builder.AssertNotCalled(t, "SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestApprovalService_CreateTask_ClientCannotPreResolve(t *testing.T) {
	service, repo, builder := setupApprovalService()
	repo.On("CreateTask", mock.Anything, mock.Anything).Return(nil)
	builder.On("SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	approved := true
	task := &models.Task{
		Description:    "x",
		TaskContext:    models.TaskContextDepartment,
		OrganizationID: "org-1",
		DepartmentID:   "dept-1",
		Approved:       &approved,
		ApprovedBy:     "self",
		CreatedBy:      "someone-else",
	}
	auth := models.NewAuthorizationContext("tech", "org-1", "dept-1", models.RoleOrgTechnician)

	created, err := service.CreateTask(context.Background(), auth, task)

	require.NoError(t, err)
	assert.Equal(t, "tech", created.CreatedBy)
	assert.Nil(t, created.Approved)
	assert.Empty(t, created.ApprovedBy)
	assert.True(t, created.AwaitingDecision())
}

func TestApprovalService_ResolveApproval_Approve(t *testing.T) {
	service, repo, builder := setupApprovalService()
	repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(pendingTask(), uint64(3), nil)
	repo.On("UpdateTask", mock.Anything, mock.Anything, uint64(3)).Return(nil)
	builder.On("SendApprovalEvent", mock.Anything, models.TaskApprovalResolvedSubject, mock.MatchedBy(func(msg models.TaskApprovalMessage) bool {
		return msg.TaskUID == "task-1" && msg.Approved != nil && *msg.Approved && msg.ResolvedBy == "sup"
	})).Return(nil)

	approver := models.NewAuthorizationContext("sup", "org-1", "dept-1", models.RoleOrgSupervisor)
	approver.Name = "Sam Supervisor"

	task, err := service.ResolveApproval(context.Background(), approver, "task-1", true, "")

	require.NoError(t, err)
	require.NotNil(t, task.Approved)
	assert.True(t, *task.Approved)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, "sup", task.ApprovedBy)
	assert.Equal(t, "Sam Supervisor", task.ApprovedByName)
	assert.Equal(t, &fixedNow, task.ApprovedAt)
	assert.Empty(t, task.RejectedBy)
	builder.AssertExpectations(t)
}

func TestApprovalService_ResolveApproval_RejectWithDefaultReason(t *testing.T) {
	service, repo, builder := setupApprovalService()
	repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(pendingTask(), uint64(3), nil)
	repo.On("UpdateTask", mock.Anything, mock.Anything, uint64(3)).Return(nil)
	builder.On("SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	approver := models.NewAuthorizationContext("adm", "org-1", "", models.RoleOrgAdmin)
	task, err := service.ResolveApproval(context.Background(), approver, "task-1", false, "  ")

	require.NoError(t, err)
	require.NotNil(t, task.Approved)
	assert.False(t, *task.Approved)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
	assert.Equal(t, "adm", task.RejectedBy)
	assert.Equal(t, models.DefaultRejectionReason, task.RejectionReason)
	assert.Empty(t, task.ApprovedBy)
}

func TestApprovalService_ResolveApproval_SecondResolutionConflicts(t *testing.T) {
	service, repo, builder := setupApprovalService()
	approver := models.NewAuthorizationContext("sup", "org-1", "dept-1", models.RoleOrgSupervisor)

	// The first call stores the resolution; the second reads it back.
	var stored *models.Task
	repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(pendingTask(), uint64(3), nil).Once()
	repo.On("UpdateTask", mock.Anything, mock.Anything, uint64(3)).
		Run(func(args mock.Arguments) {
			copied := *args.Get(1).(*models.Task)
			stored = &copied
		}).
		Return(nil).Once()
	builder.On("SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	first, err := service.ResolveApproval(context.Background(), approver, "task-1", true, "")
	require.NoError(t, err)
	require.NotNil(t, stored)

	repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(stored, uint64(4), nil).Once()

	second, err := service.ResolveApproval(context.Background(), approver, "task-1", false, "changed my mind")

	require.Error(t, err)
	assert.Nil(t, second)
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	assert.True(t, *first.Approved)
	assert.True(t, *stored.Approved)
	repo.AssertNumberOfCalls(t, "UpdateTask", 1)
	builder.AssertNumberOfCalls(t, "SendApprovalEvent", 1)
}

func TestApprovalService_ResolveApproval_ConcurrentResolutionConflicts(t *testing.T) {
	service, repo, builder := setupApprovalService()
	repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(pendingTask(), uint64(3), nil)
	repo.On("UpdateTask", mock.Anything, mock.Anything, uint64(3)).
		Return(domain.NewConflictError("wrong last sequence", domain.ErrRevisionMismatch))

	approver := models.NewAuthorizationContext("adm", "org-1", "", models.RoleOrgAdmin)
	_, err := service.ResolveApproval(context.Background(), approver, "task-1", true, "")

	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	builder.AssertNotCalled(t, "SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprovalService_ResolveApproval_Permissions(t *testing.T) {
	orgTask := pendingTask()
	orgTask.TaskContext = models.TaskContextOrganization
	orgTask.ApprovalLevel = models.ApprovalLevelOrganization

	tests := []struct {
		name    string
		auth    *models.AuthorizationContext
		task    *models.Task
		allowed bool
	}{
		{"department supervisor", models.NewAuthorizationContext("s", "org-1", "dept-1", models.RoleOrgSupervisor), pendingTask(), true},
		{"supervisor of another department", models.NewAuthorizationContext("s", "org-1", "dept-2", models.RoleOrgSupervisor), pendingTask(), false},
		{"organization owner on department task", models.NewAuthorizationContext("o", "org-1", "", models.RoleOrganizationOwner), pendingTask(), true},
		{"engineer", models.NewAuthorizationContext("e", "org-1", "dept-1", models.RoleOrgEngineer), pendingTask(), false},
		{"supervisor on organization task", models.NewAuthorizationContext("s", "org-1", "dept-1", models.RoleOrgSupervisor), orgTask, false},
		{"admin on organization task", models.NewAuthorizationContext("a", "org-1", "", models.RoleOrgAdmin), orgTask, true},
		{"admin of another organization", models.NewAuthorizationContext("a", "org-2", "", models.RoleOrgAdmin), orgTask, false},
		{"system admin", models.NewAuthorizationContext("root", "", "", models.RoleSystemAdmin), orgTask, true},
		{"no caller", nil, orgTask, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo, builder := setupApprovalService()
			task := *tt.task
			repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(&task, uint64(1), nil)
			repo.On("UpdateTask", mock.Anything, mock.Anything, uint64(1)).Return(nil)
			builder.On("SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			_, err := service.ResolveApproval(context.Background(), tt.auth, "task-1", true, "")

			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, domain.ErrorTypePermissionDenied, domain.GetErrorType(err))
			repo.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestApprovalService_ResolveApproval_NotSubmitted(t *testing.T) {
	service, repo, _ := setupApprovalService()
	task := pendingTask()
	task.Status = models.TaskStatusInProgress
	repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(task, uint64(1), nil)

	approver := models.NewAuthorizationContext("adm", "org-1", "", models.RoleOrgAdmin)
	_, err := service.ResolveApproval(context.Background(), approver, "task-1", true, "")

	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	assert.ErrorIs(t, err, domain.ErrNotAwaitingApproval)
}

func TestApprovalService_SubmitForApproval(t *testing.T) {
	draft := func() *models.Task {
		return &models.Task{
			UID:            "task-1",
			Description:    "Order parts",
			Status:         models.TaskStatusPending,
			TaskContext:    models.TaskContextDepartment,
			OrganizationID: "org-1",
			DepartmentID:   "dept-1",
			CreatedBy:      "eng",
		}
	}
	engineer := models.NewAuthorizationContext("eng", "org-1", "dept-1", models.RoleOrgEngineer)

	t.Run("queues the task and names approvers", func(t *testing.T) {
		service, repo, builder := setupApprovalService()
		directory := &mocks.MockMemberDirectory{}
		service.Directory = directory

		repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(draft(), uint64(2), nil)
		repo.On("UpdateTask", mock.Anything, mock.Anything, uint64(2)).Return(nil)
		directory.On("ListMembers", mock.Anything, "org-1").Return([]models.Member{
			{UserID: "eng", Role: models.RoleOrgEngineer, DepartmentID: "dept-1"},
			{UserID: "sup", Role: models.RoleOrgSupervisor, DepartmentID: "dept-1"},
			{UserID: "sup2", Role: models.RoleOrgSupervisor, DepartmentID: "dept-2"},
			{UserID: "boss", Role: models.RoleOrganizationOwner},
		}, nil)
		builder.On("SendApprovalEvent", mock.Anything, models.TaskApprovalRequestedSubject, mock.MatchedBy(func(msg models.TaskApprovalMessage) bool {
			return assert.ObjectsAreEqual([]string{"sup", "boss"}, msg.Approvers)
		})).Return(nil)

		task, err := service.SubmitForApproval(context.Background(), engineer, "task-1", "")

		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusPendingApproval, task.Status)
		assert.True(t, task.RequiresApproval)
		assert.Equal(t, models.ApprovalLevelDepartment, task.ApprovalLevel)
		assert.Equal(t, "eng", task.SubmittedBy)
		assert.Equal(t, &fixedNow, task.SubmittedAt)
		builder.AssertExpectations(t)
	})

	t.Run("directory failure does not block submission", func(t *testing.T) {
		service, repo, builder := setupApprovalService()
		directory := &mocks.MockMemberDirectory{}
		service.Directory = directory

		repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(draft(), uint64(2), nil)
		repo.On("UpdateTask", mock.Anything, mock.Anything, uint64(2)).Return(nil)
		directory.On("ListMembers", mock.Anything, "org-1").Return(nil, errors.New("callable down"))
		builder.On("SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := service.SubmitForApproval(context.Background(), engineer, "task-1", models.ApprovalLevelOrganization)

		require.NoError(t, err)
	})

	t.Run("already awaiting", func(t *testing.T) {
		service, repo, _ := setupApprovalService()
		repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(pendingTask(), uint64(2), nil)

		auth := models.NewAuthorizationContext("tech-1", "org-1", "dept-1", models.RoleOrgTechnician)
		_, err := service.SubmitForApproval(context.Background(), auth, "task-1", "")

		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	})

	t.Run("already resolved", func(t *testing.T) {
		service, repo, _ := setupApprovalService()
		resolved := pendingTask()
		approved := true
		resolved.Approved = &approved
		resolved.Status = models.TaskStatusPending
		repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(resolved, uint64(2), nil)

		auth := models.NewAuthorizationContext("tech-1", "org-1", "dept-1", models.RoleOrgTechnician)
		_, err := service.SubmitForApproval(context.Background(), auth, "task-1", "")

		assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	})

	t.Run("invalid level", func(t *testing.T) {
		service, repo, _ := setupApprovalService()
		repo.On("GetTaskWithRevision", mock.Anything, "task-1").Return(draft(), uint64(2), nil)

		_, err := service.SubmitForApproval(context.Background(), engineer, "task-1", "team")

		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}

func TestApprovalService_ListPendingApprovals(t *testing.T) {
	tests := []struct {
		name           string
		auth           *models.AuthorizationContext
		filter         models.PendingApprovalFilter
		expectedFilter *models.PendingApprovalFilter
	}{
		{
			name:           "admin sees all organization tasks",
			auth:           models.NewAuthorizationContext("a", "org-1", "", models.RoleOrgAdmin),
			filter:         models.PendingApprovalFilter{},
			expectedFilter: &models.PendingApprovalFilter{OrganizationID: "org-1"},
		},
		{
			name:   "supervisor is scoped to own department",
			auth:   models.NewAuthorizationContext("s", "org-1", "dept-1", models.RoleOrgSupervisor),
			filter: models.PendingApprovalFilter{OrganizationID: "org-1"},
			expectedFilter: &models.PendingApprovalFilter{
				OrganizationID: "org-1",
				DepartmentID:   "dept-1",
				Level:          models.ApprovalLevelDepartment,
			},
		},
		{
			name:   "supervisor asking for another department",
			auth:   models.NewAuthorizationContext("s", "org-1", "dept-1", models.RoleOrgSupervisor),
			filter: models.PendingApprovalFilter{DepartmentID: "dept-2"},
		},
		{
			name:   "supervisor asking for organization level",
			auth:   models.NewAuthorizationContext("s", "org-1", "dept-1", models.RoleOrgSupervisor),
			filter: models.PendingApprovalFilter{Level: models.ApprovalLevelOrganization},
		},
		{
			name:   "engineer",
			auth:   models.NewAuthorizationContext("e", "org-1", "dept-1", models.RoleOrgEngineer),
			filter: models.PendingApprovalFilter{},
		},
		{
			name:   "admin of another organization",
			auth:   models.NewAuthorizationContext("a", "org-2", "", models.RoleOrgAdmin),
			filter: models.PendingApprovalFilter{OrganizationID: "org-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo, _ := setupApprovalService()
			repo.On("ListPendingApprovals", mock.Anything, mock.Anything).Return([]*models.Task{pendingTask()}, nil)

			tasks, err := service.ListPendingApprovals(context.Background(), tt.auth, tt.filter)

			if tt.expectedFilter == nil {
				assert.Equal(t, domain.ErrorTypePermissionDenied, domain.GetErrorType(err))
				repo.AssertNotCalled(t, "ListPendingApprovals", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tasks, 1)
			repo.AssertCalled(t, "ListPendingApprovals", mock.Anything, *tt.expectedFilter)
		})
	}
}
