package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/booklinks/booklinks/internal/slug"
)

const (
	snippetContextLen = 150
	noSnippetContext  = "Found via Google Books text search"
	noNewReferences   = "No new references found"
)

// DiscoverRequest names the source book by id or by title. BookID wins when both are set.
type DiscoverRequest struct {
	BookID    string `json:"bookId"`
	BookTitle string `json:"bookTitle"`
}

// DiscoverResult is returned to the client after a discovery run.
type DiscoverResult struct {
	Success    bool              `json:"success"`
	References []model.Reference `json:"references"`
	Count      int               `json:"count"`
	Message    string            `json:"message,omitempty"`
}

// candidate is a book some source claims is related to the one being
// discovered. Verified candidates come from a full-text search and are
// books that mention the source; the others are model suggestions of books
// the source mentions.
type candidate struct {
	Title         string
	Author        string
	Context       string
	Verified      bool
	GoogleBooksID string
	SourceURL     string
	CoverURL      string
	Description   string
}

func (c candidate) key() string {
	return strings.ToLower(c.Title) + "|" + strings.ToLower(c.Author)
}

type edgePair struct{ source, referenced string }

// DiscoveryService finds new reference edges for a book and stores them.
//
// A run asks the language model and the books API at the same time, merges
// what they return, makes sure every candidate exists as a book, and writes
// one edge per candidate. Natural keys (book slug, edge pair) make runs
// safe to repeat.
type DiscoveryService struct {
	books  repository.BookRepository
	refs   repository.ReferenceRepository
	llm    ReferenceSuggester
	api    BooksAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewDiscoveryService(
	books repository.BookRepository,
	refs repository.ReferenceRepository,
	suggester ReferenceSuggester,
	api BooksAPI,
	logger *slog.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		books:  books,
		refs:   refs,
		llm:    suggester,
		api:    api,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Discover runs the pipeline for one source book.
//
// Remote failures only shrink the candidate set. A storage error while
// writing edges aborts the run and leaves the book's discovery flag unset,
// so the caller can simply try again.
func (s *DiscoveryService) Discover(ctx context.Context, req DiscoverRequest) (*DiscoverResult, error) {
	source, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(slog.String("bookID", source.ID), slog.String("title", source.Title))
	log.Info("discovering references")

	verified, suggested := s.gatherCandidates(ctx, source)
	candidates := mergeCandidates(verified, suggested)

	log.Info("candidates gathered",
		slog.Int("verified", len(verified)),
		slog.Int("suggested", len(suggested)),
		slog.Int("unique", len(candidates)),
	)

	now := s.now()
	edges := s.planEdges(ctx, source, candidates, now)

	created := make([]model.Reference, 0, len(edges))
	for i := range edges {
		ok, err := s.refs.CreateReference(ctx, &edges[i])
		if err != nil {
			log.Error("inserting discovered reference", slog.String("error", err.Error()))
			return nil, fmt.Errorf("service/discovery: inserting reference: %w", err)
		}
		if ok {
			created = append(created, edges[i])
		}
	}

	if err := s.books.MarkReferencesDiscovered(ctx, source.ID, now); err != nil {
		return nil, fmt.Errorf("service/discovery: marking %s discovered: %w", source.ID, err)
	}

	log.Info("discovery finished", slog.Int("created", len(created)))

	result := &DiscoverResult{
		Success:    true,
		References: created,
		Count:      len(created),
	}
	if len(created) == 0 {
		result.Message = noNewReferences
	}
	return result, nil
}

func (s *DiscoveryService) resolveSource(ctx context.Context, req DiscoverRequest) (*model.Book, error) {
	id := strings.TrimSpace(req.BookID)
	title := strings.TrimSpace(req.BookTitle)

	var (
		book *model.Book
		err  error
	)
	switch {
	case id != "":
		book, err = s.books.GetBookByID(ctx, id)
	case title != "":
		book, err = s.books.GetBookBySlug(ctx, slug.Make(title))
	default:
		return nil, apperror.ValidationFailed("bookId", "bookId or bookTitle is required")
	}

	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("Source book not found")
		}
		return nil, fmt.Errorf("service/discovery: resolving source book: %w", err)
	}
	return book, nil
}

// gatherCandidates runs both lookups concurrently. Each one fails soft: an
// error is logged and that side contributes nothing.
func (s *DiscoveryService) gatherCandidates(ctx context.Context, source *model.Book) (verified, suggested []candidate) {
	var g errgroup.Group

	g.Go(func() error {
		verified = s.mentionCandidates(ctx, source)
		return nil
	})
	g.Go(func() error {
		suggested = s.suggestedCandidates(ctx, source)
		return nil
	})

	_ = g.Wait()
	return verified, suggested
}

func (s *DiscoveryService) suggestedCandidates(ctx context.Context, source *model.Book) []candidate {
	if s.llm == nil || !s.llm.Configured() {
		s.logger.Debug("language model not configured; skipping suggestions")
		return nil
	}

	suggestions, err := s.llm.SuggestReferences(ctx, source.Title, source.Author)
	if err != nil {
		s.logger.Warn("reference suggestions failed",
			slog.String("bookID", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	out := make([]candidate, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.Title == "" {
			continue
		}
		author := sg.Author
		if author == "" {
			author = "Unknown"
		}
		out = append(out, candidate{Title: sg.Title, Author: author, Context: sg.Context})
	}
	return out
}

func (s *DiscoveryService) mentionCandidates(ctx context.Context, source *model.Book) []candidate {
	if s.api == nil {
		return nil
	}

	volumes, err := s.api.SearchMentions(ctx, source.Title, source.Author)
	if err != nil {
		s.logger.Warn("books API mention search failed",
			slog.String("bookID", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	sourceTitle := strings.ToLower(source.Title)
	out := make([]candidate, 0, len(volumes))
	for _, v := range volumes {
		title := strings.TrimSpace(v.Title)
		if title == "" {
			continue
		}
		// The source book itself (and its editions) always matches its own title.
		lower := strings.ToLower(title)
		if lower == sourceTitle || strings.Contains(lower, sourceTitle) {
			continue
		}
		out = append(out, candidate{
			Title:         title,
			Author:        v.FirstAuthor(),
			Context:       snippetContext(v.TextSnippet),
			Verified:      true,
			GoogleBooksID: v.ID,
			SourceURL:     v.InfoURL(),
			CoverURL:      v.Thumbnail,
			Description:   v.Description,
		})
	}
	return out
}

func snippetContext(snippet string) string {
	if snippet == "" {
		return noSnippetContext
	}
	return "Mentioned in text: " + booksapi.Truncate(snippet, snippetContextLen) + "..."
}

// mergeCandidates dedups by lowercase (title, author). Verified candidates
// are kept first, in API order; suggestions only fill keys still missing.
func mergeCandidates(verified, suggested []candidate) []candidate {
	seen := make(map[string]bool, len(verified)+len(suggested))
	out := make([]candidate, 0, len(verified)+len(suggested))

	for _, group := range [][]candidate{verified, suggested} {
		for _, c := range group {
			k := c.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

// planEdges resolves each candidate to a stored book and builds the edge to
// insert. Candidates that fail to resolve, would point at the source
// itself, or duplicate an existing edge are dropped.
func (s *DiscoveryService) planEdges(ctx context.Context, source *model.Book, candidates []candidate, now time.Time) []model.Reference {
	planned := make(map[edgePair]bool, len(candidates))
	edges := make([]model.Reference, 0, len(candidates))

	for _, c := range candidates {
		found, err := s.resolveBook(ctx, c)
		if err != nil {
			s.logger.Warn("resolving candidate book",
				slog.String("title", c.Title),
				slog.String("error", err.Error()),
			)
			continue
		}

		// A verified candidate mentions our book, so it is the referencing side.
		pair := edgePair{source: source.ID, referenced: found.ID}
		if c.Verified {
			pair = edgePair{source: found.ID, referenced: source.ID}
		}
		if pair.source == pair.referenced || planned[pair] {
			continue
		}

		exists, err := s.refs.ReferenceExists(ctx, pair.source, pair.referenced)
		if err != nil {
			s.logger.Warn("checking existing reference",
				slog.String("title", c.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		if exists {
			continue
		}
		planned[pair] = true

		ref := model.Reference{
			SourceBookID:     pair.source,
			ReferencedBookID: pair.referenced,
			Context:          c.Context,
			Source:           model.SourceAI,
		}
		if c.Verified {
			verifiedAt := now
			ref.Source = model.SourceGoogleBooks
			ref.SourceURL = c.SourceURL
			ref.SourceVerified = true
			ref.VerificationDate = &verifiedAt
		}
		edges = append(edges, ref)
	}
	return edges
}

// resolveBook returns the stored book for c, creating it from books API
// metadata when no book has its slug yet.
func (s *DiscoveryService) resolveBook(ctx context.Context, c candidate) (*model.Book, error) {
	sl := slug.Make(c.Title)
	if sl == "" {
		return nil, fmt.Errorf("title %q has no usable slug", c.Title)
	}

	existing, err := s.books.GetBookBySlug(ctx, sl)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up %q: %w", sl, err)
	}

	cover, description := c.CoverURL, c.Description
	if s.api != nil && c.GoogleBooksID != "" {
		if v, err := s.api.GetVolume(ctx, c.GoogleBooksID); err == nil {
			cover = firstNonEmpty(v.Thumbnail, cover)
			description = firstNonEmpty(v.Description, description)
		} else {
			s.logger.Debug("volume lookup failed", slog.String("volumeID", c.GoogleBooksID), slog.String("error", err.Error()))
		}
	}
	if s.api != nil && cover == "" {
		if vols, err := s.api.SearchByTitleAuthor(ctx, c.Title, c.Author, 1); err == nil && len(vols) > 0 {
			cover = vols[0].Thumbnail
			description = firstNonEmpty(description, vols[0].Description)
		} else if err != nil {
			s.logger.Debug("cover search failed", slog.String("title", c.Title), slog.String("error", err.Error()))
		}
	}

	book := &model.Book{
		Slug:        sl,
		Title:       c.Title,
		Author:      c.Author,
		Description: booksapi.Truncate(booksapi.CleanDescription(description), booksapi.MaxDescriptionLen),
		CoverURL:    cover,
	}
	if _, err := s.books.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("creating %q: %w", sl, err)
	}
	return book, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
