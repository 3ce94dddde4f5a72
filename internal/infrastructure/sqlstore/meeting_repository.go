// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

const insertMeetingQuery = `
INSERT INTO meetings (uid, parent_uid, organization_id, department_id, status, start_unix, revision, data)
VALUES (:uid, :parent_uid, :organization_id, :department_id, :status, :start_unix, :revision, :data)`

type meetingRow struct {
	UID            string `db:"uid"`
	ParentUID      string `db:"parent_uid"`
	OrganizationID string `db:"organization_id"`
	DepartmentID   string `db:"department_id"`
	Status         string `db:"status"`
	StartUnix      int64  `db:"start_unix"`
	Revision       int64  `db:"revision"`
	Data           string `db:"data"`
}

func newMeetingRow(m *models.Meeting, revision uint64) (meetingRow, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return meetingRow{}, domain.NewInternalError("failed to marshal meeting", err)
	}
	return meetingRow{
		UID:            m.UID,
		ParentUID:      m.ParentUID,
		OrganizationID: m.OrganizationID,
		DepartmentID:   m.DepartmentID,
		Status:         string(m.Status),
		StartUnix:      m.StartDate.UTC().UnixNano(),
		Revision:       int64(revision),
		Data:           string(data),
	}, nil
}

func (r meetingRow) meeting() (*models.Meeting, error) {
	var m models.Meeting
	if err := json.Unmarshal([]byte(r.Data), &m); err != nil {
		return nil, domain.NewInternalError("failed to unmarshal meeting data", domain.ErrUnmarshal, err)
	}
	return &m, nil
}

// MeetingRepository stores meetings in a SQL table.
type MeetingRepository struct {
	*Store
}

// NewMeetingRepository creates a meeting repository on the store.
func NewMeetingRepository(store *Store) *MeetingRepository {
	return &MeetingRepository{Store: store}
}

// CreateSeries inserts the parent and every occurrence in one transaction.
func (r *MeetingRepository) CreateSeries(ctx context.Context, series *models.MeetingSeries) (err error) {
	defer r.observe("create_series", time.Now(), &err)

	if series == nil || series.Parent == nil || series.Parent.UID == "" {
		return domain.NewValidationError("series has no parent meeting")
	}

	rows := make([]meetingRow, 0, len(series.Occurrences)+1)
	for _, m := range series.All() {
		row, err := newMeetingRow(m, 1)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, insertMeetingQuery, row); err != nil {
				return translate(ctx, "meeting", "create", domain.ErrMeetingNotFound, err)
			}
		}
		return nil
	})
}

// GetMeeting retrieves a single meeting.
func (r *MeetingRepository) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	m, _, err := r.GetMeetingWithRevision(ctx, meetingUID)
	return m, err
}

// GetMeetingWithRevision retrieves a meeting and its row revision.
func (r *MeetingRepository) GetMeetingWithRevision(ctx context.Context, meetingUID string) (_ *models.Meeting, _ uint64, err error) {
	defer r.observe("get_meeting", time.Now(), &err)

	var row meetingRow
	query := r.db.Rebind(`SELECT * FROM meetings WHERE uid = ?`)
	if err := r.db.GetContext(ctx, &row, query, meetingUID); err != nil {
		return nil, 0, translate(ctx, "meeting", "get", domain.ErrMeetingNotFound, err)
	}

	m, err := row.meeting()
	if err != nil {
		return nil, 0, err
	}
	return m, uint64(row.Revision), nil
}

// UpdateMeeting rewrites the meeting if its row is still at revision.
func (r *MeetingRepository) UpdateMeeting(ctx context.Context, meeting *models.Meeting, revision uint64) (err error) {
	defer r.observe("update_meeting", time.Now(), &err)

	if meeting == nil || meeting.UID == "" {
		return domain.NewValidationError("meeting uid is required")
	}
	row, err := newMeetingRow(meeting, revision)
	if err != nil {
		return err
	}

	res, err := r.db.NamedExecContext(ctx, `
UPDATE meetings
SET parent_uid = :parent_uid,
    organization_id = :organization_id,
    department_id = :department_id,
    status = :status,
    start_unix = :start_unix,
    data = :data,
    revision = revision + 1
WHERE uid = :uid AND revision = :revision`, row)
	if err != nil {
		return translate(ctx, "meeting", "update", domain.ErrMeetingNotFound, err)
	}
	return r.checkRevisionWrite(ctx, "meetings", meeting.UID, "meeting", domain.ErrMeetingNotFound, res)
}

// DeleteMeeting removes one meeting row if it is still at revision.
func (r *MeetingRepository) DeleteMeeting(ctx context.Context, meetingUID string, revision uint64) (err error) {
	defer r.observe("delete_meeting", time.Now(), &err)

	query := r.db.Rebind(`DELETE FROM meetings WHERE uid = ? AND revision = ?`)
	res, err := r.db.ExecContext(ctx, query, meetingUID, int64(revision))
	if err != nil {
		return translate(ctx, "meeting", "delete", domain.ErrMeetingNotFound, err)
	}
	return r.checkRevisionWrite(ctx, "meetings", meetingUID, "meeting", domain.ErrMeetingNotFound, res)
}

// ListMeetings returns the meetings matching the filter ordered by start date.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter models.MeetingFilter) (_ []*models.Meeting, err error) {
	defer r.observe("list_meetings", time.Now(), &err)

	var (
		where []string
		args  []any
	)
	if filter.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.DepartmentID != "" {
		where = append(where, "department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.ParentUID != "" {
		where = append(where, "(parent_uid = ? OR uid = ?)")
		args = append(args, filter.ParentUID, filter.ParentUID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.From != nil {
		where = append(where, "start_unix >= ?")
		args = append(args, filter.From.UTC().UnixNano())
	}
	if filter.To != nil {
		where = append(where, "start_unix <= ?")
		args = append(args, filter.To.UTC().UnixNano())
	}

	query := "SELECT * FROM meetings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_unix, uid"

	var rows []meetingRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, translate(ctx, "meeting", "list", domain.ErrMeetingNotFound, err)
	}

	meetings := make([]*models.Meeting, 0, len(rows))
	for _, row := range rows {
		m, err := row.meeting()
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}
