package sqlite

import (
	"context"
	"fmt"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/rs/xid"
)

// compile-time check that *DB implements repository.EngagementRepository
var _ repository.EngagementRepository = (*DB)(nil)

// ToggleUpvote removes the caller's upvote if present, otherwise adds one.
//
// Both statements run in a transaction so a concurrent toggle by the same
// user cannot leave two rows or none when one was expected.
func (db *DB) ToggleUpvote(ctx context.Context, userID, referenceID string) (model.UpvoteState, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.UpvoteState{}, fmt.Errorf("sqlite: beginning upvote toggle: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	res, err := tx.ExecContext(ctx,
		`DELETE FROM reference_upvotes WHERE user_id = ? AND reference_id = ?`,
		userID, referenceID,
	)
	if err != nil {
		return model.UpvoteState{}, fmt.Errorf("sqlite: removing upvote on %s: %w", referenceID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return model.UpvoteState{}, fmt.Errorf("sqlite: removing upvote on %s: %w", referenceID, err)
	}

	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reference_upvotes (user_id, reference_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id, reference_id) DO NOTHING`,
			userID, referenceID, db.now(),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return model.UpvoteState{}, apperror.NotFound("reference", referenceID)
			}
			return model.UpvoteState{}, fmt.Errorf("sqlite: adding upvote on %s: %w", referenceID, err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reference_upvotes WHERE reference_id = ?`, referenceID,
	).Scan(&count); err != nil {
		return model.UpvoteState{}, fmt.Errorf("sqlite: counting upvotes on %s: %w", referenceID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.UpvoteState{}, fmt.Errorf("sqlite: committing upvote toggle: %w", err)
	}
	return model.UpvoteState{Count: count, UserHasUpvoted: removed == 0}, nil
}

// GetUpvoteState returns the edge's upvote count and whether userID has
// upvoted it. An empty userID never has.
func (db *DB) GetUpvoteState(ctx context.Context, userID, referenceID string) (model.UpvoteState, error) {
	var st model.UpvoteState
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN user_id = ? THEN 1 ELSE 0 END), 0) > 0
		 FROM reference_upvotes WHERE reference_id = ?`,
		userID, referenceID,
	).Scan(&st.Count, &st.UserHasUpvoted)
	if err != nil {
		return model.UpvoteState{}, fmt.Errorf("sqlite: reading upvotes on %s: %w", referenceID, err)
	}
	return st, nil
}

func (db *DB) CreateComment(ctx context.Context, c *model.ReferenceComment) error {
	now := db.now()
	c.ID = xid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reference_comments (id, user_id, reference_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.ReferenceID,
		c.Content,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("reference", c.ReferenceID)
		}
		return fmt.Errorf("sqlite: inserting comment on %s: %w", c.ReferenceID, err)
	}
	return nil
}

const commentSelect = `
	SELECT c.id, c.user_id, c.reference_id, c.content,
	       COALESCE(NULLIF(u.display_name, ''), u.login, ''),
	       c.created_at, c.updated_at
	FROM reference_comments c
	JOIN users u ON u.id = c.user_id`

func scanComment(s scanner, c *model.ReferenceComment) error {
	return s.Scan(&c.ID, &c.UserID, &c.ReferenceID, &c.Content, &c.DisplayName, &c.CreatedAt, &c.UpdatedAt)
}

func (db *DB) GetComment(ctx context.Context, id string) (*model.ReferenceComment, error) {
	var c model.ReferenceComment
	if err := scanComment(db.conn.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id), &c); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return &c, nil
}

// ListComments returns an edge's comments, oldest first.
func (db *DB) ListComments(ctx context.Context, referenceID string) ([]model.ReferenceComment, error) {
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.reference_id = ? ORDER BY c.created_at, c.rowid`,
		referenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments on %s: %w", referenceID, err)
	}
	defer rows.Close()

	comments := []model.ReferenceComment{}
	for rows.Next() {
		var c model.ReferenceComment
		if err := scanComment(rows, &c); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM reference_comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return requireOneRow(res, "comment", id)
}
