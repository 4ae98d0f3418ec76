package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	title                  TEXT NOT NULL,
	description            TEXT NOT NULL DEFAULT '',
	activity_type          TEXT NOT NULL DEFAULT '',
	priority               TEXT NOT NULL DEFAULT '',
	category               TEXT NOT NULL DEFAULT '',
	status                 TEXT NOT NULL DEFAULT 'pending',
	action_items           TEXT NOT NULL DEFAULT '[]',
	tags                   TEXT NOT NULL DEFAULT '[]',
	customer_name          TEXT NOT NULL DEFAULT '',
	contact_info           TEXT NOT NULL DEFAULT '',
	estimated_value        REAL NOT NULL DEFAULT 0,
	due_date               TEXT NOT NULL DEFAULT '',
	transcript             TEXT NOT NULL DEFAULT '',
	suggested_category     TEXT NOT NULL DEFAULT '',
	suggested_sub_category TEXT NOT NULL DEFAULT '',
	confidence             REAL NOT NULL DEFAULT 0,
	human_confirmed        INTEGER NOT NULL DEFAULT 0,
	extracted_data         TEXT NOT NULL DEFAULT '{}',
	created_at             INTEGER NOT NULL,
	updated_at             INTEGER NOT NULL,
	completed_at           INTEGER
);
CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id);
CREATE INDEX IF NOT EXISTS idx_activities_review ON activities(human_confirmed, created_at);
`

// Store persists activities in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the activity database with WAL enabled.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new activity.
func (s *Store) Create(ctx context.Context, a *Activity) error {
	actionItems, err := json.Marshal(orEmptySlice(a.ActionItems))
	if err != nil {
		return fmt.Errorf("marshal action items: %w", err)
	}
	tags, err := json.Marshal(orEmptySlice(a.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	extracted, err := json.Marshal(orEmptyMap(a.Classification.ExtractedData))
	if err != nil {
		return fmt.Errorf("marshal extracted data: %w", err)
	}

	var completedAt sql.NullInt64
	if a.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: a.CompletedAt.Unix(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activities (
			id, user_id, title, description, activity_type, priority, category,
			status, action_items, tags, customer_name, contact_info,
			estimated_value, due_date, transcript, suggested_category,
			suggested_sub_category, confidence, human_confirmed, extracted_data,
			created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.UserID, a.Title, a.Description, a.ActivityType, a.Priority,
		a.Category, string(a.Status), string(actionItems), string(tags),
		a.CustomerName, a.ContactInfo, a.EstimatedValue, a.DueDate,
		a.Transcript, a.Classification.SuggestedCategory,
		a.Classification.SuggestedSubCategory, a.Classification.Confidence,
		boolToInt(a.Classification.HumanConfirmed), string(extracted),
		a.CreatedAt.Unix(), a.UpdatedAt.Unix(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Get returns a single activity by ID.
func (s *Store) Get(ctx context.Context, id string) (*Activity, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan activity: %w", err)
	}
	return a, nil
}

// ListPendingReview returns unconfirmed activities, newest first.
func (s *Store) ListPendingReview(ctx context.Context, limit int) ([]*Activity, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE human_confirmed = 0
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending review: %w", err)
	}
	defer rows.Close()
	return collectActivities(rows)
}

// Filter narrows List results. Zero values are ignored.
type Filter struct {
	UserID string
	Since  time.Time
}

// List returns activities matching the filter, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Activity, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []any
	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if !f.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.Since.Unix())
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()
	return collectActivities(rows)
}

// ConfirmClassification writes the reviewed activity back. The guard on
// human_confirmed makes repeated confirmations no-ops; the bool result
// reports whether this call was the one that settled the record.
func (s *Store) ConfirmClassification(ctx context.Context, a *Activity, now time.Time) (bool, error) {
	actionItems, err := json.Marshal(orEmptySlice(a.ActionItems))
	if err != nil {
		return false, fmt.Errorf("marshal action items: %w", err)
	}
	tags, err := json.Marshal(orEmptySlice(a.Tags))
	if err != nil {
		return false, fmt.Errorf("marshal tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE activities
		SET human_confirmed = 1,
		    title = ?, description = ?, activity_type = ?, priority = ?,
		    category = ?, action_items = ?, tags = ?, customer_name = ?,
		    contact_info = ?, estimated_value = ?, due_date = ?,
		    suggested_category = ?, suggested_sub_category = ?,
		    updated_at = ?
		WHERE id = ? AND human_confirmed = 0
	`, a.Title, a.Description, a.ActivityType, a.Priority, a.Category,
		string(actionItems), string(tags), a.CustomerName, a.ContactInfo,
		a.EstimatedValue, a.DueDate, a.Classification.SuggestedCategory,
		a.Classification.SuggestedSubCategory, now.Unix(), a.ID)
	if err != nil {
		return false, fmt.Errorf("confirm classification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm classification: %w", err)
	}
	return n > 0, nil
}

// UpdateStatus moves an activity through its lifecycle. Entering
// completed stamps completed_at; leaving it clears the stamp.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, now time.Time) error {
	var completedAt sql.NullInt64
	if status == StatusCompleted {
		completedAt = sql.NullInt64{Int64: now.Unix(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE activities SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?
	`, string(status), completedAt, now.Unix(), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, user_id, title, description, activity_type, priority, category,
	       status, action_items, tags, customer_name, contact_info,
	       estimated_value, due_date, transcript, suggested_category,
	       suggested_sub_category, confidence, human_confirmed, extracted_data,
	       created_at, updated_at, completed_at
	FROM activities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var status, actionItems, tags, extracted string
	var humanConfirmed int
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Description,
		&a.ActivityType, &a.Priority, &a.Category, &status, &actionItems,
		&tags, &a.CustomerName, &a.ContactInfo, &a.EstimatedValue,
		&a.DueDate, &a.Transcript, &a.Classification.SuggestedCategory,
		&a.Classification.SuggestedSubCategory, &a.Classification.Confidence,
		&humanConfirmed, &extracted, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	a.Status = Status(status)
	a.Classification.HumanConfirmed = humanConfirmed != 0
	if err := json.Unmarshal([]byte(actionItems), &a.ActionItems); err != nil {
		return nil, fmt.Errorf("unmarshal action items: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(extracted), &a.Classification.ExtractedData); err != nil {
		return nil, fmt.Errorf("unmarshal extracted data: %w", err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	return &a, nil
}

func collectActivities(rows *sql.Rows) ([]*Activity, error) {
	var out []*Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
