package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/service"
	"github.com/booklinks/booklinks/internal/slug"
)

// DefaultSeedPace is the gap between two discovery runs.
const DefaultSeedPace = 2 * time.Second

// PopularTitles is what seed-references runs for when no titles are given.
var PopularTitles = []string{
	"Sapiens: A Brief History of Humankind",
	"Atomic Habits",
	"Thinking, Fast and Slow",
	"The Power of Habit",
	"Deep Work",
	"Range: Why Generalists Triumph in a Specialized World",
	"Grit: The Power of Passion and Perseverance",
	"The Lean Startup",
	"Zero to One",
	"Good to Great",
}

// BookFinder resolves a title's slug to a stored book.
type BookFinder interface {
	GetBookBySlug(ctx context.Context, slug string) (*model.Book, error)
}

// Discoverer runs the discovery pipeline. *service.DiscoveryService implements it.
type Discoverer interface {
	Discover(ctx context.Context, req service.DiscoverRequest) (*service.DiscoverResult, error)
}

var _ Discoverer = (*service.DiscoveryService)(nil)

type SeedReport struct {
	Processed  int
	Missing    int // titles not in the catalogue
	Failed     int
	References int // edges created across all runs
}

type Seeder struct {
	books     BookFinder
	discovery Discoverer
	limiter   *rate.Limiter
	out       io.Writer
	logger    *slog.Logger
}

func NewSeeder(books BookFinder, discovery Discoverer, pace time.Duration, out io.Writer, logger *slog.Logger) *Seeder {
	return &Seeder{
		books:     books,
		discovery: discovery,
		limiter:   pacer(pace),
		out:       out,
		logger:    logger,
	}
}

// Run discovers references for each title in turn. A title that is not in
// the catalogue or whose run fails is reported and skipped. An empty titles
// slice means PopularTitles.
func (s *Seeder) Run(ctx context.Context, titles []string) (SeedReport, error) {
	if len(titles) == 0 {
		titles = PopularTitles
	}

	var report SeedReport
	for _, title := range titles {
		book, err := s.books.GetBookBySlug(ctx, slug.Make(title))
		if err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				s.logger.Error("looking up seed title", slog.String("title", title), slog.String("error", err.Error()))
				report.Failed++
				continue
			}
			fmt.Fprintf(s.out, "Skipping %q: not in the catalogue\n", title)
			report.Missing++
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return report, err
		}

		fmt.Fprintf(s.out, "Processing references for: %s\n", book.Title)
		result, err := s.discovery.Discover(ctx, service.DiscoverRequest{BookID: book.ID})
		if err != nil {
			s.logger.Error("seeding references", slog.String("title", title), slog.String("error", err.Error()))
			fmt.Fprintf(s.out, "Error processing %s\n", book.Title)
			report.Failed++
			continue
		}

		fmt.Fprintf(s.out, "Added %d references for %s\n", result.Count, book.Title)
		report.Processed++
		report.References += result.Count
	}

	fmt.Fprintln(s.out, "Finished seeding references")
	return report, nil
}
