// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

type taskRow struct {
	UID              string        `db:"uid"`
	OrganizationID   string        `db:"organization_id"`
	DepartmentID     string        `db:"department_id"`
	Status           string        `db:"status"`
	RequiresApproval bool          `db:"requires_approval"`
	ApprovalLevel    string        `db:"approval_level"`
	SubmittedUnix    sql.NullInt64 `db:"submitted_unix"`
	Revision         int64         `db:"revision"`
	Data             string        `db:"data"`
}

func newTaskRow(t *models.Task, revision uint64) (taskRow, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return taskRow{}, domain.NewInternalError("failed to marshal task", err)
	}
	row := taskRow{
		UID:              t.UID,
		OrganizationID:   t.OrganizationID,
		DepartmentID:     t.DepartmentID,
		Status:           string(t.Status),
		RequiresApproval: t.RequiresApproval,
		ApprovalLevel:    string(t.ApprovalLevel),
		Revision:         int64(revision),
		Data:             string(data),
	}
	if t.SubmittedAt != nil {
		row.SubmittedUnix = sql.NullInt64{Int64: t.SubmittedAt.UTC().UnixNano(), Valid: true}
	}
	return row, nil
}

func (r taskRow) task() (*models.Task, error) {
	var t models.Task
	if err := json.Unmarshal([]byte(r.Data), &t); err != nil {
		return nil, domain.NewInternalError("failed to unmarshal task data", domain.ErrUnmarshal, err)
	}
	return &t, nil
}

// TaskRepository stores tasks in a SQL table.
type TaskRepository struct {
	*Store
}

// NewTaskRepository creates a task repository on the store.
func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{Store: store}
}

// CreateTask inserts a new task.
func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) (err error) {
	defer r.observe("create_task", time.Now(), &err)

	if task == nil || task.UID == "" {
		return domain.NewValidationError("task uid is required")
	}
	row, err := newTaskRow(task, 1)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
INSERT INTO tasks (uid, organization_id, department_id, status, requires_approval, approval_level, submitted_unix, revision, data)
VALUES (:uid, :organization_id, :department_id, :status, :requires_approval, :approval_level, :submitted_unix, :revision, :data)`, row)
	if err != nil {
		return translate(ctx, "task", "create", domain.ErrTaskNotFound, err)
	}
	return nil
}

// GetTask retrieves a single task.
func (r *TaskRepository) GetTask(ctx context.Context, taskUID string) (*models.Task, error) {
	t, _, err := r.GetTaskWithRevision(ctx, taskUID)
	return t, err
}

// GetTaskWithRevision retrieves a task and its row revision.
func (r *TaskRepository) GetTaskWithRevision(ctx context.Context, taskUID string) (_ *models.Task, _ uint64, err error) {
	defer r.observe("get_task", time.Now(), &err)

	var row taskRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT * FROM tasks WHERE uid = ?`), taskUID); err != nil {
		return nil, 0, translate(ctx, "task", "get", domain.ErrTaskNotFound, err)
	}

	t, err := row.task()
	if err != nil {
		return nil, 0, err
	}
	return t, uint64(row.Revision), nil
}

// UpdateTask rewrites the task if its row is still at revision.
func (r *TaskRepository) UpdateTask(ctx context.Context, task *models.Task, revision uint64) (err error) {
	defer r.observe("update_task", time.Now(), &err)

	if task == nil || task.UID == "" {
		return domain.NewValidationError("task uid is required")
	}
	row, err := newTaskRow(task, revision)
	if err != nil {
		return err
	}

	res, err := r.db.NamedExecContext(ctx, `
UPDATE tasks
SET organization_id = :organization_id,
    department_id = :department_id,
    status = :status,
    requires_approval = :requires_approval,
    approval_level = :approval_level,
    submitted_unix = :submitted_unix,
    data = :data,
    revision = revision + 1
WHERE uid = :uid AND revision = :revision`, row)
	if err != nil {
		return translate(ctx, "task", "update", domain.ErrTaskNotFound, err)
	}
	return r.checkRevisionWrite(ctx, "tasks", task.UID, "task", domain.ErrTaskNotFound, res)
}

// ListPendingApprovals returns the tasks awaiting approval within the filter,
// oldest submission first.
func (r *TaskRepository) ListPendingApprovals(ctx context.Context, filter models.PendingApprovalFilter) (_ []*models.Task, err error) {
	defer r.observe("list_pending_approvals", time.Now(), &err)

	where := []string{"status = ?", "requires_approval = ?"}
	args := []any{string(models.TaskStatusPendingApproval), true}
	if filter.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.DepartmentID != "" {
		where = append(where, "department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.Level != "" {
		where = append(where, "approval_level = ?")
		args = append(args, string(filter.Level))
	}

	query := "SELECT * FROM tasks WHERE " + strings.Join(where, " AND ") +
		" ORDER BY CASE WHEN submitted_unix IS NULL THEN 1 ELSE 0 END, submitted_unix, uid"

	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, translate(ctx, "task", "list", domain.ErrTaskNotFound, err)
	}

	tasks := make([]*models.Task, 0, len(rows))
	for _, row := range rows {
		t, err := row.task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
