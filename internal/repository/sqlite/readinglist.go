package sqlite

import (
	"context"
	"fmt"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/rs/xid"
)

// compile-time check that *DB implements repository.ReadingListRepository
var _ repository.ReadingListRepository = (*DB)(nil)

func (db *DB) CreateList(ctx context.Context, list *model.ReadingList) error {
	now := db.now()
	list.ID = xid.New().String()
	list.CreatedAt = now
	list.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reading_lists (id, user_id, name, description, slug, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		list.ID,
		list.UserID,
		list.Name,
		list.Description,
		list.Slug,
		list.IsPublic,
		list.CreatedAt,
		list.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("reading list", list.Slug)
		}
		return fmt.Errorf("sqlite: inserting reading list %q: %w", list.Slug, err)
	}
	return nil
}

// listSelect joins the owner's display name and counts items; callers append WHERE/ORDER.
const listSelect = `
	SELECT l.id, l.user_id, l.name, l.description, l.slug, l.is_public, l.created_at, l.updated_at,
	       (SELECT COUNT(*) FROM reading_list_items i WHERE i.reading_list_id = l.id),
	       COALESCE(NULLIF(u.display_name, ''), u.login, '')
	FROM reading_lists l
	JOIN users u ON u.id = l.user_id`

func scanList(s scanner, l *model.ReadingList) error {
	return s.Scan(
		&l.ID,
		&l.UserID,
		&l.Name,
		&l.Description,
		&l.Slug,
		&l.IsPublic,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.ItemCount,
		&l.DisplayName,
	)
}

func (db *DB) GetListByID(ctx context.Context, id string) (*model.ReadingList, error) {
	var l model.ReadingList
	if err := scanList(db.conn.QueryRowContext(ctx, listSelect+` WHERE l.id = ?`, id), &l); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("reading list", id)
		}
		return nil, fmt.Errorf("sqlite: getting reading list %s: %w", id, err)
	}
	return &l, nil
}

func (db *DB) GetListBySlug(ctx context.Context, slug string) (*model.ReadingList, error) {
	var l model.ReadingList
	if err := scanList(db.conn.QueryRowContext(ctx, listSelect+` WHERE l.slug = ?`, slug), &l); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("reading list", slug)
		}
		return nil, fmt.Errorf("sqlite: getting reading list by slug %s: %w", slug, err)
	}
	return &l, nil
}

// ListPublicLists returns the newest public lists.
func (db *DB) ListPublicLists(ctx context.Context, limit int) ([]model.ReadingList, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.queryLists(ctx,
		listSelect+` WHERE l.is_public = 1 ORDER BY l.created_at DESC, l.rowid DESC LIMIT ?`,
		limit,
	)
}

// ListUserLists returns userID's lists, newest first. When containsBookID is
// set each list reports whether that book is on it.
func (db *DB) ListUserLists(ctx context.Context, userID, containsBookID string) ([]model.ReadingList, error) {
	lists, err := db.queryLists(ctx,
		listSelect+` WHERE l.user_id = ? ORDER BY l.created_at DESC, l.rowid DESC`,
		userID,
	)
	if err != nil || containsBookID == "" {
		return lists, err
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.reading_list_id FROM reading_list_items i
		 JOIN reading_lists l ON l.id = i.reading_list_id
		 WHERE l.user_id = ? AND i.book_id = ?`,
		userID, containsBookID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking lists containing %s: %w", containsBookID, err)
	}
	defer rows.Close()

	has := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list id: %w", err)
		}
		has[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating list ids: %w", err)
	}

	for i := range lists {
		lists[i].ContainsBook = has[lists[i].ID]
	}
	return lists, nil
}

func (db *DB) queryLists(ctx context.Context, query string, args ...any) ([]model.ReadingList, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reading lists: %w", err)
	}
	defer rows.Close()

	lists := []model.ReadingList{}
	for rows.Next() {
		var l model.ReadingList
		if err := scanList(rows, &l); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reading list: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reading lists: %w", err)
	}
	return lists, nil
}

func (db *DB) SetListVisibility(ctx context.Context, id string, isPublic bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE reading_lists SET is_public = ?, updated_at = ? WHERE id = ?`,
		isPublic, db.now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating visibility of reading list %s: %w", id, err)
	}
	return requireOneRow(res, "reading list", id)
}

// DeleteList removes a list; its items cascade.
func (db *DB) DeleteList(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM reading_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reading list %s: %w", id, err)
	}
	return requireOneRow(res, "reading list", id)
}

// AddItem appends a book at max(position)+1. The position is computed in the
// INSERT itself so two appends cannot pick the same slot. A book already on
// the list is not moved: created is false and item is overwritten with the
// stored row.
func (db *DB) AddItem(ctx context.Context, item *model.ReadingListItem) (bool, error) {
	item.ID = xid.New().String()
	item.CreatedAt = db.now()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO reading_list_items (id, reading_list_id, book_id, position, notes, created_at)
		 SELECT ?, ?, ?, COALESCE(MAX(position), -1) + 1, ?, ?
		 FROM reading_list_items WHERE reading_list_id = ?
		 ON CONFLICT(reading_list_id, book_id) DO NOTHING`,
		item.ID,
		item.ReadingListID,
		item.BookID,
		item.Notes,
		item.CreatedAt,
		item.ReadingListID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: adding book %s to list %s: %w", item.BookID, item.ReadingListID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: adding list item: %w", err)
	}
	if n == 0 {
		if err := db.conn.QueryRowContext(ctx,
			`SELECT id, position, notes, created_at FROM reading_list_items
			 WHERE reading_list_id = ? AND book_id = ?`,
			item.ReadingListID, item.BookID,
		).Scan(&item.ID, &item.Position, &item.Notes, &item.CreatedAt); err != nil {
			return false, fmt.Errorf("sqlite: re-reading book %s on list %s: %w", item.BookID, item.ReadingListID, err)
		}
		return false, nil
	}

	if err := db.conn.QueryRowContext(ctx,
		`SELECT position FROM reading_list_items WHERE id = ?`, item.ID,
	).Scan(&item.Position); err != nil {
		return false, fmt.Errorf("sqlite: reading position of list item %s: %w", item.ID, err)
	}
	return true, nil
}

func (db *DB) RemoveItem(ctx context.Context, listID, bookID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM reading_list_items WHERE reading_list_id = ? AND book_id = ?`,
		listID, bookID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing book %s from list %s: %w", bookID, listID, err)
	}
	return requireOneRow(res, "reading list item", bookID)
}

// ListItems returns a list's items in position order, each with its book.
func (db *DB) ListItems(ctx context.Context, listID string) ([]model.ReadingListItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.id, i.reading_list_id, i.book_id, i.position, i.notes, i.created_at,
		        b.id, b.slug, b.title, b.author, b.description, b.cover_url,
		        b.references_discovered, b.references_discovered_at, b.added_by, b.created_at, b.updated_at
		 FROM reading_list_items i
		 JOIN books b ON b.id = i.book_id
		 WHERE i.reading_list_id = ?
		 ORDER BY i.position, i.rowid`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items of %s: %w", listID, err)
	}
	defer rows.Close()

	items := []model.ReadingListItem{}
	for rows.Next() {
		var (
			it model.ReadingListItem
			b  model.Book
		)
		if err := scanBook(itemScanner{rows: rows, item: &it}, &b); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list item: %w", err)
		}
		it.Book = &b
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating list items: %w", err)
	}
	return items, nil
}

// itemScanner prepends the item columns to the book columns so scanBook can
// be reused for the joined row.
type itemScanner struct {
	rows scanner
	item *model.ReadingListItem
}

func (s itemScanner) Scan(dest ...any) error {
	all := append([]any{
		&s.item.ID,
		&s.item.ReadingListID,
		&s.item.BookID,
		&s.item.Position,
		&s.item.Notes,
		&s.item.CreatedAt,
	}, dest...)
	return s.rows.Scan(all...)
}
