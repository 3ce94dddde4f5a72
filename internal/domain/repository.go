// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// MeetingRepository defines the interface for meeting storage operations.
// This interface can be implemented by different storage backends (NATS, PostgreSQL, SQLite).
type MeetingRepository interface {
	// CreateSeries stores a parent meeting and its occurrences as one unit:
	// either every record exists afterwards or none does.
	CreateSeries(ctx context.Context, series *models.MeetingSeries) error

	GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error)
	GetMeetingWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error)
	UpdateMeeting(ctx context.Context, meeting *models.Meeting, revision uint64) error
	DeleteMeeting(ctx context.Context, meetingUID string, revision uint64) error
	ListMeetings(ctx context.Context, filter models.MeetingFilter) ([]*models.Meeting, error)

	IsReady(ctx context.Context) bool
}

// TaskRepository defines the interface for task storage operations.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, taskUID string) (*models.Task, error)
	GetTaskWithRevision(ctx context.Context, taskUID string) (*models.Task, uint64, error)
	UpdateTask(ctx context.Context, task *models.Task, revision uint64) error
	ListPendingApprovals(ctx context.Context, filter models.PendingApprovalFilter) ([]*models.Task, error)

	IsReady(ctx context.Context) bool
}
