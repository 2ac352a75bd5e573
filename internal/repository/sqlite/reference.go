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

// compile-time check that *DB implements repository.ReferenceRepository
var _ repository.ReferenceRepository = (*DB)(nil)

// CreateReference inserts a directed edge.
//
// The (source_book_id, referenced_book_id) UNIQUE constraint plus
// ON CONFLICT DO NOTHING makes a duplicate insert a no-op: created is false,
// err is nil and ref is overwritten with the stored edge.
func (db *DB) CreateReference(ctx context.Context, ref *model.Reference) (bool, error) {
	if ref.Source == "" {
		ref.Source = model.SourceUser
	}
	ref.ID = xid.New().String()
	ref.CreatedAt = db.now()

	var page sql.NullInt64
	if ref.PageNumber != nil {
		page = sql.NullInt64{Int64: int64(*ref.PageNumber), Valid: true}
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO book_references
		   (id, source_book_id, referenced_book_id, context, page_number, source, source_url,
		    source_verified, verification_date, added_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_book_id, referenced_book_id) DO NOTHING`,
		ref.ID,
		ref.SourceBookID,
		ref.ReferencedBookID,
		ref.Context,
		page,
		string(ref.Source),
		ref.SourceURL,
		ref.SourceVerified,
		nullTime(ref.VerificationDate),
		nullString(ref.AddedBy),
		ref.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting reference %s -> %s: %w",
			ref.SourceBookID, ref.ReferencedBookID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting reference: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+referenceColumns+` FROM book_references WHERE source_book_id = ? AND referenced_book_id = ?`,
		ref.SourceBookID, ref.ReferencedBookID,
	)
	if err := scanReference(row, ref); err != nil {
		return false, fmt.Errorf("sqlite: re-reading reference %s -> %s: %w",
			ref.SourceBookID, ref.ReferencedBookID, err)
	}
	return false, nil
}

const referenceColumns = `id, source_book_id, referenced_book_id, context, page_number, source, source_url,
	source_verified, verification_date, added_by, created_at`

func scanReference(s scanner, ref *model.Reference) error {
	var (
		page     sql.NullInt64
		verified sql.NullTime
		addedBy  sql.NullString
		source   string
	)
	err := s.Scan(
		&ref.ID,
		&ref.SourceBookID,
		&ref.ReferencedBookID,
		&ref.Context,
		&page,
		&source,
		&ref.SourceURL,
		&ref.SourceVerified,
		&verified,
		&addedBy,
		&ref.CreatedAt,
	)
	if err != nil {
		return err
	}
	ref.Source = model.ReferenceSource(source)
	if page.Valid {
		p := int(page.Int64)
		ref.PageNumber = &p
	}
	ref.VerificationDate = timePtr(verified)
	ref.AddedBy = addedBy.String
	return nil
}

func (db *DB) GetReferenceByID(ctx context.Context, id string) (*model.Reference, error) {
	var ref model.Reference
	row := db.conn.QueryRowContext(ctx, `SELECT `+referenceColumns+` FROM book_references WHERE id = ?`, id)
	if err := scanReference(row, &ref); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("reference", id)
		}
		return nil, fmt.Errorf("sqlite: getting reference %s: %w", id, err)
	}
	return &ref, nil
}

func (db *DB) ReferenceExists(ctx context.Context, sourceBookID, referencedBookID string) (bool, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM book_references WHERE source_book_id = ? AND referenced_book_id = ?)`,
		sourceBookID, referencedBookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking reference %s -> %s: %w", sourceBookID, referencedBookID, err)
	}
	return exists == 1, nil
}

// DeleteReference removes an edge; its upvotes and comments cascade.
func (db *DB) DeleteReference(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM book_references WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reference %s: %w", id, err)
	}
	return requireOneRow(res, "reference", id)
}

// linkedBookQuery selects the "other" endpoint of each edge. The two
// directions differ only in which column is matched and which is joined.
const linkedBookQuery = `
	SELECT b.slug, b.title, b.author, b.cover_url, b.description,
	       r.id, r.context,
	       (SELECT COUNT(*) FROM reference_upvotes u WHERE u.reference_id = r.id),
	       EXISTS(SELECT 1 FROM reference_upvotes u WHERE u.reference_id = r.id AND u.user_id = ?)
	FROM book_references r
	JOIN books b ON b.id = r.%s
	WHERE r.%s = ?
	ORDER BY r.created_at, r.rowid`

// ListOutgoing returns the books bookID references.
func (db *DB) ListOutgoing(ctx context.Context, bookID, viewerID string) ([]model.LinkedBook, error) {
	return db.listLinked(ctx, fmt.Sprintf(linkedBookQuery, "referenced_book_id", "source_book_id"), bookID, viewerID)
}

// ListIncoming returns the books that reference bookID.
func (db *DB) ListIncoming(ctx context.Context, bookID, viewerID string) ([]model.LinkedBook, error) {
	return db.listLinked(ctx, fmt.Sprintf(linkedBookQuery, "source_book_id", "referenced_book_id"), bookID, viewerID)
}

func (db *DB) listLinked(ctx context.Context, query, bookID, viewerID string) ([]model.LinkedBook, error) {
	rows, err := db.conn.QueryContext(ctx, query, viewerID, bookID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing linked books of %s: %w", bookID, err)
	}
	defer rows.Close()

	linked := []model.LinkedBook{}
	for rows.Next() {
		var lb model.LinkedBook
		if err := rows.Scan(
			&lb.ID,
			&lb.Title,
			&lb.Author,
			&lb.CoverURL,
			&lb.Description,
			&lb.ReferenceID,
			&lb.Context,
			&lb.UpvoteCount,
			&lb.UserHasUpvoted,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning linked book: %w", err)
		}
		if lb.CoverURL == "" {
			lb.CoverURL = model.DefaultCoverURL
		}
		linked = append(linked, lb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating linked books: %w", err)
	}
	return linked, nil
}

// ListEdges reads up to limit edges joined with both endpoints, oldest first.
func (db *DB) ListEdges(ctx context.Context, limit int) ([]model.EdgeWithBooks, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT r.id,
		        s.id, s.slug, s.title, s.author, s.cover_url,
		        t.id, t.slug, t.title, t.author, t.cover_url
		 FROM book_references r
		 JOIN books s ON s.id = r.source_book_id
		 JOIN books t ON t.id = r.referenced_book_id
		 ORDER BY r.created_at, r.rowid
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing edges: %w", err)
	}
	defer rows.Close()

	edges := []model.EdgeWithBooks{}
	for rows.Next() {
		var e model.EdgeWithBooks
		if err := rows.Scan(
			&e.ReferenceID,
			&e.Source.ID, &e.Source.Slug, &e.Source.Title, &e.Source.Author, &e.Source.CoverURL,
			&e.Target.ID, &e.Target.Slug, &e.Target.Title, &e.Target.Author, &e.Target.CoverURL,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating edges: %w", err)
	}
	return edges, nil
}

// ListReferencesFrom returns the stored edges whose source is sourceBookID.
func (db *DB) ListReferencesFrom(ctx context.Context, sourceBookID string) ([]model.Reference, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+referenceColumns+` FROM book_references WHERE source_book_id = ? ORDER BY created_at, rowid`,
		sourceBookID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing references from %s: %w", sourceBookID, err)
	}
	defer rows.Close()

	refs := []model.Reference{}
	for rows.Next() {
		var ref model.Reference
		if err := scanReference(rows, &ref); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating references: %w", err)
	}
	return refs, nil
}
