// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// NatsTaskRepository is the NATS KV store repository for tasks.
type NatsTaskRepository struct {
	tasks *NatsBaseRepository[models.Task]
	keys  *KeyBuilder
}

// NewNatsTaskRepository creates a new NATS KV store repository for tasks.
func NewNatsTaskRepository(tasks INatsKeyValue) *NatsTaskRepository {
	return &NatsTaskRepository{
		tasks: NewNatsBaseRepository[models.Task](tasks, "task", domain.ErrTaskNotFound),
		keys:  NewKeyBuilder(""),
	}
}

// IsReady checks if the tasks bucket is bound.
func (s *NatsTaskRepository) IsReady(ctx context.Context) bool {
	return s.tasks.IsReady()
}

func (s *NatsTaskRepository) taskKey(uid string) string {
	return s.keys.EntityKey(KeyPrefixTask, uid)
}

// CreateTask stores a new task.
func (s *NatsTaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	if task == nil || task.UID == "" {
		return domain.NewValidationError("task uid is required")
	}
	_, err := s.tasks.Create(ctx, s.taskKey(task.UID), task)
	return err
}

// GetTask retrieves a single task.
func (s *NatsTaskRepository) GetTask(ctx context.Context, taskUID string) (*models.Task, error) {
	return s.tasks.Get(ctx, s.taskKey(taskUID))
}

// GetTaskWithRevision retrieves a task with the revision needed to update it.
func (s *NatsTaskRepository) GetTaskWithRevision(ctx context.Context, taskUID string) (*models.Task, uint64, error) {
	return s.tasks.GetWithRevision(ctx, s.taskKey(taskUID))
}

// UpdateTask writes the task if it is still at revision.
func (s *NatsTaskRepository) UpdateTask(ctx context.Context, task *models.Task, revision uint64) error {
	if task == nil || task.UID == "" {
		return domain.NewValidationError("task uid is required")
	}
	return s.tasks.Update(ctx, s.taskKey(task.UID), task, revision)
}

// ListPendingApprovals returns the tasks awaiting approval within the filter,
// oldest submission first.
func (s *NatsTaskRepository) ListPendingApprovals(ctx context.Context, filter models.PendingApprovalFilter) ([]*models.Task, error) {
	all, err := s.tasks.ListEntities(ctx, s.keys.EntityPrefix(KeyPrefixTask))
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(all))
	for _, t := range all {
		if filter.Matches(t) {
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return submittedBefore(tasks[i], tasks[j])
	})
	return tasks, nil
}

func submittedBefore(a, b *models.Task) bool {
	switch {
	case a.SubmittedAt == nil && b.SubmittedAt == nil:
		return a.UID < b.UID
	case a.SubmittedAt == nil:
		return false
	case b.SubmittedAt == nil:
		return true
	case a.SubmittedAt.Equal(*b.SubmittedAt):
		return a.UID < b.UID
	}
	return a.SubmittedAt.Before(*b.SubmittedAt)
}
