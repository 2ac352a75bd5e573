package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/rs/xid"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, github_id, login, display_name, avatar_url, bio, is_admin,
	created_at, updated_at`

func scanUser(s scanner, u *model.User) error {
	var (
		email    sql.NullString
		githubID sql.NullInt64
	)
	if err := s.Scan(
		&u.ID,
		&email,
		&u.PasswordHash,
		&githubID,
		&u.Login,
		&u.DisplayName,
		&u.AvatarURL,
		&u.Bio,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return err
	}
	u.Email = email.String
	u.GitHubID = githubID.Int64
	return nil
}

func nullGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// CreateUser inserts an email/password account.
// A taken email returns apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	now := db.now()
	u.ID = xid.New().String()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		nullString(u.Email),
		u.PasswordHash,
		nullGitHubID(u.GitHubID),
		u.Login,
		u.DisplayName,
		u.AvatarURL,
		u.Bio,
		u.IsAdmin,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", u.Email)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", u.Email, err)
	}
	return nil
}

// UpsertGitHubUser inserts or updates a user based on their GitHub ID.
//
// If a user with this github_id already exists we KEEP their internal ID and
// refresh login, avatar and (when GitHub shares one) email. Profile fields
// the user edited here (display name, bio) are left alone. u is filled with
// the stored row on return.
func (db *DB) UpsertGitHubUser(ctx context.Context, u *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, u.GitHubID,
	).Scan(&existingID)
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", u.GitHubID, err)
	}

	if existingID == "" {
		if u.DisplayName == "" {
			u.DisplayName = u.Login
		}
		return db.CreateUser(ctx, u)
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET login = ?, avatar_url = ?, email = COALESCE(?, email), updated_at = ?
		 WHERE id = ?`,
		u.Login,
		u.AvatarURL,
		nullString(u.Email),
		db.now(),
		existingID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", u.Email)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", existingID, err)
	}

	stored, err := db.GetUserByID(ctx, existingID)
	if err != nil {
		return err
	}
	*u = *stored
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err := scanUser(row, &u); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &u, nil
}

// GetUserByEmail looks up an account for password login.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	if err := scanUser(row, &u); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return &u, nil
}

// UpdateProfile writes the user-editable profile fields.
func (db *DB) UpdateProfile(ctx context.Context, u *model.User) error {
	u.UpdatedAt = db.now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET display_name = ?, bio = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		u.DisplayName,
		u.Bio,
		u.AvatarURL,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile of %s: %w", u.ID, err)
	}
	return requireOneRow(res, "user", u.ID)
}
