// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/mocks"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/infrastructure/auth"
	"github.com/tasknest/tasknest-meeting-service/internal/service"
)

const testMeetingUID = "5f0c8c1e-2c1f-4e0b-9a43-6f6f1b1f2a10"

var handlerNow = time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)

type handlerMocks struct {
	meetings *mocks.MockMeetingRepository
	tasks    *mocks.MockTaskRepository
	builder  *mocks.MockMessageBuilder
	jwt      *auth.MockJWTAuth
}

// setupHandlerForTesting creates a MeetingHandler with all mock dependencies for testing
func setupHandlerForTesting() (*MeetingHandler, handlerMocks) {
	m := handlerMocks{
		meetings: new(mocks.MockMeetingRepository),
		tasks:    new(mocks.MockTaskRepository),
		builder:  new(mocks.MockMessageBuilder),
		jwt:      new(auth.MockJWTAuth),
	}
	config := service.ServiceConfig{Now: func() time.Time { return handlerNow }}

	meetingService := service.NewMeetingService(m.meetings, m.builder, service.NewOccurrenceService(), config)
	approvalService := service.NewApprovalService(m.tasks, m.builder, nil, config)

	authService := service.NewAuthService(m.jwt)

	return NewMeetingHandler(meetingService, approvalService, authService), m
}

// tokenFor makes the mocked JWT validator resolve token to ac.
func (m handlerMocks) tokenFor(token string, ac *models.AuthorizationContext) {
	m.jwt.On("ParseAuthorization", mock.Anything, token, mock.Anything).Return(ac, nil)
}

func pendingTask() *models.Task {
	submitted := handlerNow.Add(-time.Hour)
	return &models.Task{
		UID:              "task-1",
		Description:      "Replace pump seal",
		Status:           models.TaskStatusPendingApproval,
		TaskContext:      models.TaskContextDepartment,
		OrganizationID:   "org-1",
		DepartmentID:     "dept-1",
		RequiresApproval: true,
		ApprovalLevel:    models.ApprovalLevelDepartment,
		SubmittedBy:      "tech-1",
		SubmittedAt:      &submitted,
	}
}

func replyingMessage(data []byte, subject string) *mocks.MockMessage {
	msg := mocks.NewMockMessage(data, subject)
	msg.On("HasReply").Return(true)
	msg.On("Respond", mock.Anything).Return(nil)
	return msg
}

func replyError(t *testing.T, msg *mocks.MockMessage) string {
	t.Helper()
	var reply errorReply
	require.NoError(t, json.Unmarshal(msg.Response, &reply))
	return reply.Error
}

func TestMeetingHandler_HandlerReady(t *testing.T) {
	handler, _ := setupHandlerForTesting()
	assert.True(t, handler.HandlerReady())

	assert.False(t, NewMeetingHandler(nil, nil, nil).HandlerReady())
	assert.ElementsMatch(t, []string{
		models.MeetingGetTitleSubject,
		models.TaskResolveApprovalSubject,
		models.ApprovalsListPendingSubject,
	}, handler.Subjects())
}

func TestMeetingHandler_GetTitle(t *testing.T) {
	tests := []struct {
		name          string
		data          string
		setupMocks    func(m handlerMocks)
		expectedReply string
		expectedError string
	}{
		{
			name: "returns the title",
			data: testMeetingUID,
			setupMocks: func(m handlerMocks) {
				m.meetings.On("GetMeeting", mock.Anything, testMeetingUID).
					Return(&models.Meeting{UID: testMeetingUID, Title: "Weekly sync"}, nil)
			},
			expectedReply: "Weekly sync",
		},
		{
			name:          "rejects a non uuid",
			data:          "not-a-uuid",
			setupMocks:    func(m handlerMocks) {},
			expectedError: "meeting uid must be a UUID",
		},
		{
			name: "meeting not found",
			data: testMeetingUID,
			setupMocks: func(m handlerMocks) {
				m.meetings.On("GetMeeting", mock.Anything, testMeetingUID).
					Return(nil, domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound))
			},
			expectedError: "meeting not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, m := setupHandlerForTesting()
			tt.setupMocks(m)
			msg := replyingMessage([]byte(tt.data), models.MeetingGetTitleSubject)

			handler.HandleMessage(context.Background(), msg)

			if tt.expectedError != "" {
				assert.Contains(t, replyError(t, msg), tt.expectedError)
			} else {
				assert.Equal(t, tt.expectedReply, string(msg.Response))
			}
			msg.AssertCalled(t, "Respond", mock.Anything)
			m.meetings.AssertExpectations(t)
		})
	}
}

func TestMeetingHandler_ResolveApproval(t *testing.T) {
	handler, m := setupHandlerForTesting()
	m.tasks.On("GetTaskWithRevision", mock.Anything, "task-1").Return(pendingTask(), uint64(3), nil)
	m.tasks.On("UpdateTask", mock.Anything, mock.MatchedBy(func(task *models.Task) bool {
		return task.Approved != nil && *task.Approved && task.Status == models.TaskStatusPending
	}), uint64(3)).Return(nil)
	m.builder.On("SendApprovalEvent", mock.Anything, models.TaskApprovalResolvedSubject, mock.Anything).Return(nil)
	m.tokenFor("sup-token", models.NewAuthorizationContext("sup-1", "org-1", "dept-1", models.RoleOrgSupervisor))

	body, err := json.Marshal(models.ResolveApprovalRequest{
		TaskUID: "task-1",
		Approve: true,
		Token:   "sup-token",
	})
	require.NoError(t, err)
	msg := replyingMessage(body, models.TaskResolveApprovalSubject)

	handler.HandleMessage(context.Background(), msg)

	var task models.Task
	require.NoError(t, json.Unmarshal(msg.Response, &task))
	assert.Equal(t, "task-1", task.UID)
	require.NotNil(t, task.Approved)
	assert.True(t, *task.Approved)
	assert.Equal(t, "sup-1", task.ApprovedBy)
	assert.Equal(t, models.TaskStatusPending, task.Status)

	m.tasks.AssertExpectations(t)
	m.builder.AssertExpectations(t)
}

func TestMeetingHandler_ResolveApproval_Rejected(t *testing.T) {
	approved := true
	resolved := pendingTask()
	resolved.Approved = &approved
	resolved.Status = models.TaskStatusPending

	tests := []struct {
		name          string
		data          []byte
		setupMocks    func(m handlerMocks)
		expectedError string
	}{
		{
			name:          "malformed body",
			data:          []byte("{"),
			setupMocks:    func(m handlerMocks) {},
			expectedError: "invalid resolve approval request",
		},
		{
			name:          "missing token",
			data:          []byte(`{"task_uid":"task-1","approve":true}`),
			setupMocks:    func(m handlerMocks) {},
			expectedError: "token is required",
		},
		{
			name:          "roles asserted in the body are ignored",
			data:          []byte(`{"task_uid":"task-1","approve":true,"approver":{"user_id":"intruder","roles":{"system_owner":true}}}`),
			setupMocks:    func(m handlerMocks) {},
			expectedError: "token is required",
		},
		{
			name: "invalid token",
			data: []byte(`{"task_uid":"task-1","approve":true,"token":"forged"}`),
			setupMocks: func(m handlerMocks) {
				m.jwt.On("ParseAuthorization", mock.Anything, "forged", mock.Anything).
					Return(nil, domain.NewPermissionDeniedError("invalid bearer token"))
			},
			expectedError: "invalid token",
		},
		{
			name: "token of a technician",
			data: []byte(`{"task_uid":"task-1","approve":true,"token":"tech-token","approver":{"user_id":"tech-1","roles":{"system_owner":true}}}`),
			setupMocks: func(m handlerMocks) {
				m.tokenFor("tech-token", models.NewAuthorizationContext("tech-1", "org-1", "dept-1", models.RoleOrgTechnician))
				m.tasks.On("GetTaskWithRevision", mock.Anything, "task-1").Return(pendingTask(), uint64(3), nil)
			},
			expectedError: "permission denied",
		},
		{
			name: "already resolved",
			data: []byte(`{"task_uid":"task-1","approve":false,"token":"owner-token"}`),
			setupMocks: func(m handlerMocks) {
				m.tokenFor("owner-token", models.NewAuthorizationContext("own", "org-1", "", models.RoleOrganizationOwner))
				m.tasks.On("GetTaskWithRevision", mock.Anything, "task-1").Return(resolved, uint64(4), nil)
			},
			expectedError: "already resolved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, m := setupHandlerForTesting()
			tt.setupMocks(m)
			msg := replyingMessage(tt.data, models.TaskResolveApprovalSubject)

			handler.HandleMessage(context.Background(), msg)

			assert.Contains(t, replyError(t, msg), tt.expectedError)
			m.tasks.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
			m.builder.AssertNotCalled(t, "SendApprovalEvent", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestMeetingHandler_ListPendingApprovals(t *testing.T) {
	handler, m := setupHandlerForTesting()
	m.tasks.On("ListPendingApprovals", mock.Anything, models.PendingApprovalFilter{
		OrganizationID: "org-1",
		DepartmentID:   "dept-1",
		Level:          models.ApprovalLevelDepartment,
	}).Return([]*models.Task{pendingTask()}, nil)
	m.tokenFor("sup-token", models.NewAuthorizationContext("sup-1", "org-1", "dept-1", models.RoleOrgSupervisor))

	body, err := json.Marshal(models.ListPendingApprovalsRequest{
		OrganizationID: "org-1",
		Token:          "sup-token",
	})
	require.NoError(t, err)
	msg := replyingMessage(body, models.ApprovalsListPendingSubject)

	handler.HandleMessage(context.Background(), msg)

	var reply ListPendingApprovalsReply
	require.NoError(t, json.Unmarshal(msg.Response, &reply))
	require.Len(t, reply.Tasks, 1)
	assert.Equal(t, "task-1", reply.Tasks[0].UID)
	m.tasks.AssertExpectations(t)
}

func TestMeetingHandler_ListPendingApprovals_Denied(t *testing.T) {
	handler, m := setupHandlerForTesting()
	m.tokenFor("tech-token", models.NewAuthorizationContext("tech-1", "org-1", "dept-1", models.RoleOrgTechnician))

	body, err := json.Marshal(models.ListPendingApprovalsRequest{
		OrganizationID: "org-1",
		Token:          "tech-token",
	})
	require.NoError(t, err)
	msg := replyingMessage(body, models.ApprovalsListPendingSubject)

	handler.HandleMessage(context.Background(), msg)

	assert.Contains(t, replyError(t, msg), "may not list pending approvals")
	m.tasks.AssertNotCalled(t, "ListPendingApprovals", mock.Anything, mock.Anything)
}

func TestMeetingHandler_UnknownSubject(t *testing.T) {
	handler, _ := setupHandlerForTesting()
	msg := replyingMessage(nil, "tasknest.meeting.unknown")

	handler.HandleMessage(context.Background(), msg)

	assert.Contains(t, replyError(t, msg), "unknown subject")
}

func TestMeetingHandler_NoReply(t *testing.T) {
	handler, m := setupHandlerForTesting()
	m.meetings.On("GetMeeting", mock.Anything, testMeetingUID).
		Return(&models.Meeting{UID: testMeetingUID, Title: "Weekly sync"}, nil)

	msg := mocks.NewMockMessage([]byte(testMeetingUID), models.MeetingGetTitleSubject)
	msg.On("HasReply").Return(false)

	handler.HandleMessage(context.Background(), msg)

	msg.AssertNotCalled(t, "Respond", mock.Anything)
	m.meetings.AssertExpectations(t)
}
