package sqlite

import (
	"context"
	"fmt"

	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
)

// compile-time check that *DB implements repository.StatsRepository
var _ repository.StatsRepository = (*DB)(nil)

// Stats computes the public statistics in a handful of aggregate queries.
// top bounds the two leaderboards.
func (db *DB) Stats(ctx context.Context, top int) (*model.Stats, error) {
	if top <= 0 {
		top = 10
	}
	st := &model.Stats{}

	if err := db.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM books), (SELECT COUNT(*) FROM book_references)`,
	).Scan(&st.TotalBooks, &st.TotalReferences); err != nil {
		return nil, fmt.Errorf("sqlite: counting totals: %w", err)
	}

	daily, err := db.dailyBookCounts(ctx)
	if err != nil {
		return nil, err
	}
	st.DailyBookCounts = daily

	st.MostReferenced, err = db.rankBooks(ctx,
		`SELECT b.id, b.slug, b.title, b.author, COUNT(*) AS n
		 FROM book_references r JOIN books b ON b.id = r.referenced_book_id
		 GROUP BY b.id
		 ORDER BY n DESC, b.title
		 LIMIT ?`, top)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ranking most referenced: %w", err)
	}

	// Every edge contributes one to each endpoint.
	st.MostConnected, err = db.rankBooks(ctx,
		`SELECT b.id, b.slug, b.title, b.author, COUNT(*) AS n
		 FROM (SELECT source_book_id AS book_id FROM book_references
		       UNION ALL
		       SELECT referenced_book_id FROM book_references) e
		 JOIN books b ON b.id = e.book_id
		 GROUP BY b.id
		 ORDER BY n DESC, b.title
		 LIMIT ?`, top)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ranking most connected: %w", err)
	}

	return st, nil
}

func (db *DB) dailyBookCounts(ctx context.Context) ([]model.DailyCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		 FROM books GROUP BY day ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting books per day: %w", err)
	}
	defer rows.Close()

	counts := []model.DailyCount{}
	for rows.Next() {
		var c model.DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning daily count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating daily counts: %w", err)
	}
	return counts, nil
}

func (db *DB) rankBooks(ctx context.Context, query string, top int) ([]model.RankedBook, error) {
	rows, err := db.conn.QueryContext(ctx, query, top)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranked := []model.RankedBook{}
	for rows.Next() {
		var rb model.RankedBook
		if err := rows.Scan(&rb.ID, &rb.Slug, &rb.Title, &rb.Author, &rb.Count); err != nil {
			return nil, err
		}
		ranked = append(ranked, rb)
	}
	return ranked, rows.Err()
}
