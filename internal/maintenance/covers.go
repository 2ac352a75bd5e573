// Package maintenance holds the batch jobs run by booklinksctl: repairing
// book covers and seeding references for well-known titles.
//
// Jobs talk to the store and the remote APIs through small interfaces and
// pace their remote calls with a token bucket, so they are safe to re-run
// against a live database.
package maintenance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
)

const (
	// DefaultCoverPace is the gap between two books API searches.
	DefaultCoverPace = 500 * time.Millisecond

	coverSearchMax    = 5
	titleMatchPrefix  = 15
	placeholderDomain = "unsplash.com"
)

// CoverStore is the part of the book repository the cover job needs.
type CoverStore interface {
	ListBooks(ctx context.Context, opts repository.ListOptions) ([]model.Book, error)
	UpdateCover(ctx context.Context, id, coverURL string) error
}

// CoverSearcher finds candidate volumes for a book.
type CoverSearcher interface {
	SearchByTitleAuthor(ctx context.Context, title, author string, maxResults int) ([]booksapi.Volume, error)
}

// CoverReport counts what a cover run did. NotFound includes books whose
// search or update failed.
type CoverReport struct {
	Updated     int
	AlreadyGood int
	NotFound    int
}

type CoverFixer struct {
	books   CoverStore
	api     CoverSearcher
	limiter *rate.Limiter
	out     io.Writer
	logger  *slog.Logger
}

// NewCoverFixer paces API searches pace apart. A zero pace disables pacing.
func NewCoverFixer(books CoverStore, api CoverSearcher, pace time.Duration, out io.Writer, logger *slog.Logger) *CoverFixer {
	return &CoverFixer{
		books:   books,
		api:     api,
		limiter: pacer(pace),
		out:     out,
		logger:  logger,
	}
}

// Run replaces every missing or placeholder cover it can find a thumbnail for.
func (f *CoverFixer) Run(ctx context.Context) (CoverReport, error) {
	var report CoverReport

	books, err := f.books.ListBooks(ctx, repository.ListOptions{})
	if err != nil {
		return report, fmt.Errorf("maintenance: listing books: %w", err)
	}
	fmt.Fprintf(f.out, "Found %d books. Checking covers...\n\n", len(books))

	for _, b := range books {
		if !NeedsCover(b.CoverURL) {
			report.AlreadyGood++
			continue
		}

		current := "NO COVER"
		if b.CoverURL != "" {
			current = "placeholder"
		}
		fmt.Fprintf(f.out, "Fixing: %q by %s (%s)\n", b.Title, b.Author, current)

		if err := f.limiter.Wait(ctx); err != nil {
			return report, err
		}
		cover, err := f.findCover(ctx, b)
		if err != nil {
			f.logger.Warn("cover search failed", slog.String("title", b.Title), slog.String("error", err.Error()))
		}
		if cover == "" {
			fmt.Fprintln(f.out, "  No cover found")
			report.NotFound++
			continue
		}

		if err := f.books.UpdateCover(ctx, b.ID, cover); err != nil {
			f.logger.Error("updating cover", slog.String("bookID", b.ID), slog.String("error", err.Error()))
			fmt.Fprintln(f.out, "  FAILED to update")
			report.NotFound++
			continue
		}
		fmt.Fprintf(f.out, "  Updated to: %s\n", cover)
		report.Updated++
	}

	fmt.Fprintf(f.out, "\nDone!\n  Updated: %d\n  Already good: %d\n  No cover found: %d\n",
		report.Updated, report.AlreadyGood, report.NotFound)
	return report, nil
}

func (f *CoverFixer) findCover(ctx context.Context, b model.Book) (string, error) {
	vols, err := f.api.SearchByTitleAuthor(ctx, b.Title, b.Author, coverSearchMax)
	if err != nil {
		return "", err
	}
	return BestCover(b.Title, vols), nil
}

// NeedsCover reports whether cover is empty or a stock placeholder.
func NeedsCover(cover string) bool {
	return cover == "" || strings.Contains(cover, placeholderDomain)
}

// BestCover picks a thumbnail for title: the first volume whose normalized
// title contains the first 15 normalized characters of ours, else the first
// volume with any thumbnail.
func BestCover(title string, vols []booksapi.Volume) string {
	want := normalizeTitle(title)
	if len(want) > titleMatchPrefix {
		want = want[:titleMatchPrefix]
	}

	for _, v := range vols {
		if v.Thumbnail != "" && strings.Contains(normalizeTitle(v.Title), want) {
			return v.Thumbnail
		}
	}
	for _, v := range vols {
		if v.Thumbnail != "" {
			return v.Thumbnail
		}
	}
	return ""
}

// normalizeTitle lowercases s and keeps only ASCII letters and digits.
func normalizeTitle(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, strings.ToLower(s))
}

func pacer(pace time.Duration) *rate.Limiter {
	if pace <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(pace), 1)
}
