package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/rs/xid"
)

// compile-time check that *DB implements repository.BookRepository
var _ repository.BookRepository = (*DB)(nil)

const bookColumns = `id, slug, title, author, description, cover_url,
	references_discovered, references_discovered_at, added_by, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBook(s scanner, b *model.Book) error {
	var (
		discoveredAt sql.NullTime
		addedBy      sql.NullString
	)
	err := s.Scan(
		&b.ID,
		&b.Slug,
		&b.Title,
		&b.Author,
		&b.Description,
		&b.CoverURL,
		&b.ReferencesDiscovered,
		&discoveredAt,
		&addedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	b.ReferencesDiscoveredAt = timePtr(discoveredAt)
	b.AddedBy = addedBy.String
	return nil
}

// CreateBook inserts a new book keyed by its slug.
//
// INSERT ... ON CONFLICT(slug) DO NOTHING turns a concurrent creator into a
// no-op instead of an error. When nothing was inserted we read the existing
// row back into b, so the caller always ends up holding the canonical book.
func (db *DB) CreateBook(ctx context.Context, b *model.Book) (bool, error) {
	now := db.now()
	b.ID = xid.New().String()
	b.CreatedAt = now
	b.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO books (id, slug, title, author, description, cover_url, added_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO NOTHING`,
		b.ID,
		b.Slug,
		b.Title,
		b.Author,
		b.Description,
		b.CoverURL,
		nullString(b.AddedBy),
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting book %q: %w", b.Slug, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting book %q: %w", b.Slug, err)
	}
	if n == 1 {
		return true, nil
	}

	existing, err := db.GetBookBySlug(ctx, b.Slug)
	if err != nil {
		return false, fmt.Errorf("sqlite: re-reading book %q after slug conflict: %w", b.Slug, err)
	}
	*b = *existing
	return false, nil
}

// GetBookByID retrieves a book by its internal ID.
// Returns apperror.ErrNotFound if no book exists with that ID.
func (db *DB) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	var b model.Book
	row := db.conn.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	if err := scanBook(row, &b); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("book", id)
		}
		return nil, fmt.Errorf("sqlite: getting book %s: %w", id, err)
	}
	return &b, nil
}

// GetBookBySlug retrieves a book by its URL slug.
func (db *DB) GetBookBySlug(ctx context.Context, slug string) (*model.Book, error) {
	var b model.Book
	row := db.conn.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE slug = ?`, slug)
	if err := scanBook(row, &b); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("book", slug)
		}
		return nil, fmt.Errorf("sqlite: getting book by slug %s: %w", slug, err)
	}
	return &b, nil
}

// SearchBooks matches query against title or author (LIKE is case-insensitive
// for ASCII in SQLite) and counts each hit's outgoing references.
func (db *DB) SearchBooks(ctx context.Context, query string, limit int) ([]model.BookSearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(query) + "%"

	rows, err := db.conn.QueryContext(ctx,
		`SELECT b.id, b.slug, b.title, b.author, b.description, b.cover_url,
		        b.references_discovered, b.references_discovered_at, b.added_by, b.created_at, b.updated_at,
		        (SELECT COUNT(*) FROM book_references r WHERE r.source_book_id = b.id)
		 FROM books b
		 WHERE b.title LIKE ? ESCAPE '\'
		    OR b.author LIKE ? ESCAPE '\'
		 ORDER BY b.title
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching books %q: %w", query, err)
	}
	defer rows.Close()

	hits := []model.BookSearchHit{}
	for rows.Next() {
		var (
			h            model.BookSearchHit
			discoveredAt sql.NullTime
			addedBy      sql.NullString
		)
		if err := rows.Scan(
			&h.ID, &h.Slug, &h.Title, &h.Author, &h.Description, &h.CoverURL,
			&h.ReferencesDiscovered, &discoveredAt, &addedBy, &h.CreatedAt, &h.UpdatedAt,
			&h.ReferenceCount,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning search hit: %w", err)
		}
		h.ReferencesDiscoveredAt = timePtr(discoveredAt)
		h.AddedBy = addedBy.String
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating search hits: %w", err)
	}
	return hits, nil
}

// ListBooks returns books ordered by title. A zero Limit means no limit.
func (db *DB) ListBooks(ctx context.Context, opts repository.ListOptions) ([]model.Book, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY title LIMIT ? OFFSET ?`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing books: %w", err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, fmt.Errorf("sqlite: scanning book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating books: %w", err)
	}
	return books, nil
}

func (db *DB) UpdateCover(ctx context.Context, id, coverURL string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE books SET cover_url = ?, updated_at = ? WHERE id = ?`,
		coverURL, db.now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating cover of book %s: %w", id, err)
	}
	return requireOneRow(res, "book", id)
}

// MarkReferencesDiscovered records that the discovery pipeline has run for a book.
func (db *DB) MarkReferencesDiscovered(ctx context.Context, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE books SET references_discovered = 1, references_discovered_at = ?, updated_at = ?
		 WHERE id = ?`,
		at.UTC(), db.now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking book %s discovered: %w", id, err)
	}
	return requireOneRow(res, "book", id)
}

// requireOneRow turns "UPDATE/DELETE matched nothing" into ErrNotFound.
func requireOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
