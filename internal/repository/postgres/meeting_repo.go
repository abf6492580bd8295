package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"committeesync/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type meetingRepository struct {
	DB *sql.DB
}

func NewMeetingRepository(db *sql.DB) domain.MeetingRepository {
	return &meetingRepository{
		DB: db,
	}
}

const meetingColumns = `id, group_id, session_id, summary, location, start_time, end_time, timezone,
	cancelled, has_motions,
	video_account_id, video_id, calendar_account_id, calendar_id,
	registry_meeting_id, registry_breakout_id,
	created_at, updated_at`

func (r *meetingRepository) Create(ctx context.Context, m *domain.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	query := `
		INSERT INTO meetings (id, group_id, session_id, summary, location, start_time, end_time, timezone,
			cancelled, has_motions,
			video_account_id, video_id, calendar_account_id, calendar_id,
			registry_meeting_id, registry_breakout_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	videoAcct, videoID := linkColumns(m.VideoLink)
	calAcct, calID := linkColumns(m.CalendarLink)
	regMeeting, regBreakout := linkColumns(m.RegistryLink)
	_, err := r.DB.ExecContext(ctx, query,
		m.ID, m.GroupID, m.SessionID, m.Summary, m.Location, m.StartTime, m.EndTime, m.Timezone,
		m.Cancelled, m.HasMotions,
		videoAcct, videoID, calAcct, calID,
		regMeeting, regBreakout,
		m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (r *meetingRepository) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	m, err := scanMeeting(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *meetingRepository) List(ctx context.Context, filter domain.MeetingFilter) ([]*domain.Meeting, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(filter.IDs) > 0 {
		conds = append(conds, "id = ANY("+arg(pq.Array(filter.IDs))+")")
	}
	if filter.GroupID != "" {
		conds = append(conds, "group_id = "+arg(filter.GroupID))
	}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = "+arg(filter.SessionID))
	}
	if filter.From != nil {
		conds = append(conds, "start_time >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "start_time < "+arg(*filter.To))
	}
	query := `SELECT ` + meetingColumns + ` FROM meetings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time ASC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	meetings := make([]*domain.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// Update writes only the columns present in changes. Link column pairs are
// always written together.
func (r *meetingRepository) Update(ctx context.Context, id string, c domain.MeetingChanges) error {
	if c.Empty() {
		return nil
	}
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if c.Summary != nil {
		set("summary", *c.Summary)
	}
	if c.Location != nil {
		set("location", *c.Location)
	}
	if c.StartTime != nil {
		set("start_time", *c.StartTime)
	}
	if c.EndTime != nil {
		set("end_time", *c.EndTime)
	}
	if c.Timezone != nil {
		set("timezone", *c.Timezone)
	}
	if c.Cancelled != nil {
		set("cancelled", *c.Cancelled)
	}
	if c.HasMotions != nil {
		set("has_motions", *c.HasMotions)
	}
	if c.VideoLink.Set {
		acct, lid := linkColumns(c.VideoLink.Link)
		set("video_account_id", acct)
		set("video_id", lid)
	}
	if c.CalendarLink.Set {
		acct, lid := linkColumns(c.CalendarLink.Link)
		set("calendar_account_id", acct)
		set("calendar_id", lid)
	}
	if c.RegistryLink.Set {
		acct, lid := linkColumns(c.RegistryLink.Link)
		set("registry_meeting_id", acct)
		set("registry_breakout_id", lid)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE meetings SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *meetingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func linkColumns(l *domain.Link) (sql.NullString, sql.NullString) {
	if l == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: l.AccountID, Valid: true}, sql.NullString{String: l.ID, Valid: true}
}

func linkFromColumns(acct, id sql.NullString) *domain.Link {
	if !acct.Valid || !id.Valid {
		return nil
	}
	return &domain.Link{AccountID: acct.String, ID: id.String}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeeting(row rowScanner) (*domain.Meeting, error) {
	m := &domain.Meeting{}
	var sessionNull sql.NullString
	var videoAcct, videoID, calAcct, calID, regMeeting, regBreakout sql.NullString
	err := row.Scan(
		&m.ID, &m.GroupID, &sessionNull, &m.Summary, &m.Location, &m.StartTime, &m.EndTime, &m.Timezone,
		&m.Cancelled, &m.HasMotions,
		&videoAcct, &videoID, &calAcct, &calID,
		&regMeeting, &regBreakout,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sessionNull.Valid {
		m.SessionID = &sessionNull.String
	}
	m.VideoLink = linkFromColumns(videoAcct, videoID)
	m.CalendarLink = linkFromColumns(calAcct, calID)
	m.RegistryLink = linkFromColumns(regMeeting, regBreakout)
	return m, nil
}
