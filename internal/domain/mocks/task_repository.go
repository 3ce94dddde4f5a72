// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// MockTaskRepository implements TaskRepository for testing
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTask(ctx context.Context, taskUID string) (*models.Task, error) {
	args := m.Called(ctx, taskUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskRepository) GetTaskWithRevision(ctx context.Context, taskUID string) (*models.Task, uint64, error) {
	args := m.Called(ctx, taskUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.Task), args.Get(1).(uint64), args.Error(2)
}

func (m *MockTaskRepository) UpdateTask(ctx context.Context, task *models.Task, revision uint64) error {
	args := m.Called(ctx, task, revision)
	return args.Error(0)
}

func (m *MockTaskRepository) ListPendingApprovals(ctx context.Context, filter models.PendingApprovalFilter) ([]*models.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

func (m *MockTaskRepository) IsReady(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
