package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/rs/xid"
)

// compile-time check that *DB implements repository.FeedbackRepository
var _ repository.FeedbackRepository = (*DB)(nil)

func (db *DB) CreateFeedback(ctx context.Context, f *model.Feedback) error {
	now := db.now()
	f.ID = xid.New().String()
	if f.Status == "" {
		f.Status = model.FeedbackNew
	}
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO feedback (id, type, message, email, page_url, status, admin_notes, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		string(f.Type),
		f.Message,
		f.Email,
		f.PageURL,
		string(f.Status),
		f.AdminNotes,
		nullString(f.UserID),
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting feedback: %w", err)
	}
	return nil
}

const feedbackSelect = `
	SELECT f.id, f.type, f.message, f.email, f.page_url, f.status, f.admin_notes, f.user_id,
	       COALESCE(NULLIF(u.display_name, ''), u.login, ''),
	       f.created_at, f.updated_at
	FROM feedback f
	LEFT JOIN users u ON u.id = f.user_id`

func scanFeedback(s scanner, f *model.Feedback) error {
	var (
		typ, status string
		userID      sql.NullString
	)
	if err := s.Scan(
		&f.ID,
		&typ,
		&f.Message,
		&f.Email,
		&f.PageURL,
		&status,
		&f.AdminNotes,
		&userID,
		&f.DisplayName,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return err
	}
	f.Type = model.FeedbackType(typ)
	f.Status = model.FeedbackStatus(status)
	f.UserID = userID.String
	return nil
}

func (db *DB) GetFeedback(ctx context.Context, id string) (*model.Feedback, error) {
	var f model.Feedback
	if err := scanFeedback(db.conn.QueryRowContext(ctx, feedbackSelect+` WHERE f.id = ?`, id), &f); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("feedback", id)
		}
		return nil, fmt.Errorf("sqlite: getting feedback %s: %w", id, err)
	}
	return &f, nil
}

// ListFeedback returns feedback newest first, narrowed by the non-empty filter fields.
func (db *DB) ListFeedback(ctx context.Context, filter model.FeedbackFilter) ([]model.Feedback, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "f.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "f.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		where = append(where, "f.type = ?")
		args = append(args, string(filter.Type))
	}

	query := feedbackSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.created_at DESC, f.rowid DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing feedback: %w", err)
	}
	defer rows.Close()

	items := []model.Feedback{}
	for rows.Next() {
		var f model.Feedback
		if err := scanFeedback(rows, &f); err != nil {
			return nil, fmt.Errorf("sqlite: scanning feedback: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feedback: %w", err)
	}
	return items, nil
}

func (db *DB) UpdateFeedbackStatus(ctx context.Context, id string, status model.FeedbackStatus, adminNotes string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE feedback SET status = ?, admin_notes = ?, updated_at = ? WHERE id = ?`,
		string(status), adminNotes, db.now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating feedback %s: %w", id, err)
	}
	return requireOneRow(res, "feedback", id)
}
