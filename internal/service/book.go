package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/links"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/booklinks/booklinks/internal/slug"
	"github.com/booklinks/booklinks/internal/validation"
)

const (
	LocalSearchLimit = 20
	RemoteSearchMax  = 5
)

// BookInput describes a book the user picked, usually from a search result.
type BookInput struct {
	Title       string `json:"title" validate:"required,max=300"`
	Author      string `json:"author" validate:"max=200"`
	Description string `json:"description" validate:"max=20000"`
	CoverURL    string `json:"coverUrl" validate:"omitempty,url,max=2000"`
}

// AddBookInput is a new book plus the books it references.
type AddBookInput struct {
	BookInput
	References []BookInput `json:"references" validate:"max=50,dive"`
}

type AddBookResult struct {
	Book       *model.Book       `json:"book"`
	Created    bool              `json:"created"`
	References []model.Reference `json:"references"`
}

// SearchResult merges local books and books API volumes into one shape.
// Results not yet in the catalogue have no ID.
type SearchResult struct {
	ID             string `json:"id,omitempty"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Description    string `json:"description,omitempty"`
	CoverURL       string `json:"coverUrl,omitempty"`
	ReferenceCount int    `json:"referenceCount"`
	GoogleBooksID  string `json:"googleBooksId,omitempty"`
	InCatalogue    bool   `json:"inCatalogue"`
}

// BookService covers the catalogue: search, adding books and user
// references, deleting references, and outbound links.
type BookService struct {
	books    repository.BookRepository
	refs     repository.ReferenceRepository
	users    repository.UserRepository
	api      BooksAPI
	validate *validation.Validator
	logger   *slog.Logger
}

func NewBookService(
	books repository.BookRepository,
	refs repository.ReferenceRepository,
	users repository.UserRepository,
	api BooksAPI,
	validate *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		books:    books,
		refs:     refs,
		users:    users,
		api:      api,
		validate: validate,
		logger:   logger,
	}
}

// Search queries the local store and the books API concurrently. Local hits
// come first; API results whose slug is already listed are dropped. Either
// side failing only removes its results.
func (s *BookService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	var (
		local  []model.BookSearchHit
		remote []booksapi.Volume
		g      errgroup.Group
	)
	g.Go(func() error {
		hits, err := s.books.SearchBooks(ctx, query, LocalSearchLimit)
		if err != nil {
			s.logger.Error("local book search failed", slog.String("query", query), slog.String("error", err.Error()))
			return nil
		}
		local = hits
		return nil
	})
	g.Go(func() error {
		if s.api == nil {
			return nil
		}
		vols, err := s.api.SearchVolumes(ctx, query, RemoteSearchMax)
		if err != nil {
			s.logger.Warn("books API search failed", slog.String("query", query), slog.String("error", err.Error()))
			return nil
		}
		remote = vols
		return nil
	})
	_ = g.Wait()

	results := make([]SearchResult, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local)+len(remote))
	for _, h := range local {
		seen[h.Slug] = true
		results = append(results, SearchResult{
			ID:             h.ID,
			Slug:           h.Slug,
			Title:          h.Title,
			Author:         h.Author,
			Description:    h.Description,
			CoverURL:       h.Cover(),
			ReferenceCount: h.ReferenceCount,
			InCatalogue:    true,
		})
	}
	for _, v := range remote {
		sl := slug.Make(v.Title)
		if sl == "" || seen[sl] {
			continue
		}
		seen[sl] = true
		results = append(results, SearchResult{
			Slug:          sl,
			Title:         v.Title,
			Author:        v.FirstAuthor(),
			Description:   booksapi.Truncate(v.Description, booksapi.MaxDescriptionLen),
			CoverURL:      v.Thumbnail,
			GoogleBooksID: v.ID,
		})
	}
	return results, nil
}

// AddBook stores a book and links it to each of its references with
// source "user". A book whose slug already exists is returned as stored,
// and duplicate edges are skipped.
func (s *BookService) AddBook(ctx context.Context, userID string, in AddBookInput) (*AddBookResult, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	book, created, err := s.ensureBook(ctx, in.BookInput, userID)
	if err != nil {
		return nil, err
	}

	result := &AddBookResult{Book: book, Created: created, References: []model.Reference{}}
	for _, ri := range in.References {
		ref, ok, err := s.linkReference(ctx, userID, book, ri)
		if err != nil {
			return nil, err
		}
		if ok {
			result.References = append(result.References, *ref)
		}
	}

	s.logger.Info("book added",
		slog.String("bookID", book.ID),
		slog.String("slug", book.Slug),
		slog.Bool("created", created),
		slog.Int("references", len(result.References)),
	)
	return result, nil
}

// AddReference links the book at sourceSlug to the book described by in.
// created is false when the edge already existed.
func (s *BookService) AddReference(ctx context.Context, userID, sourceSlug string, in BookInput) (*model.Reference, bool, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, false, err
	}

	source, err := s.books.GetBookBySlug(ctx, sourceSlug)
	if err != nil {
		return nil, false, fmt.Errorf("service/book: loading %s: %w", sourceSlug, err)
	}

	ref, created, err := s.linkReference(ctx, userID, source, in)
	if err != nil {
		return nil, false, err
	}
	if ref == nil {
		return nil, false, apperror.ValidationFailed("title", "a book cannot reference itself")
	}
	return ref, created, nil
}

// linkReference returns a nil ref when in resolves to source itself.
func (s *BookService) linkReference(ctx context.Context, userID string, source *model.Book, in BookInput) (*model.Reference, bool, error) {
	target, _, err := s.ensureBook(ctx, in, "")
	if err != nil {
		return nil, false, err
	}
	if target.ID == source.ID {
		return nil, false, nil
	}

	ref := &model.Reference{
		SourceBookID:     source.ID,
		ReferencedBookID: target.ID,
		Source:           model.SourceUser,
		AddedBy:          userID,
	}
	created, err := s.refs.CreateReference(ctx, ref)
	if err != nil {
		return nil, false, fmt.Errorf("service/book: linking %s -> %s: %w", source.Slug, target.Slug, err)
	}
	return ref, created, nil
}

func (s *BookService) ensureBook(ctx context.Context, in BookInput, addedBy string) (*model.Book, bool, error) {
	title := strings.TrimSpace(in.Title)
	sl := slug.Make(title)
	if sl == "" {
		return nil, false, apperror.ValidationFailed("title", "title must contain letters or digits")
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = "Unknown"
	}

	book := &model.Book{
		Slug:        sl,
		Title:       title,
		Author:      author,
		Description: booksapi.Truncate(booksapi.CleanDescription(in.Description), booksapi.MaxDescriptionLen),
		CoverURL:    strings.TrimSpace(in.CoverURL),
		AddedBy:     addedBy,
	}
	created, err := s.books.CreateBook(ctx, book)
	if err != nil {
		return nil, false, fmt.Errorf("service/book: creating %s: %w", sl, err)
	}
	return book, created, nil
}

// DeleteReference removes an edge. Only the user who added it or an
// administrator may do so.
func (s *BookService) DeleteReference(ctx context.Context, userID, referenceID string) error {
	ref, err := s.refs.GetReferenceByID(ctx, referenceID)
	if err != nil {
		return err
	}

	if ref.AddedBy != userID {
		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("service/book: loading caller %s: %w", userID, err)
		}
		if !user.IsAdmin {
			return apperror.Forbidden("only the user who added this reference can delete it")
		}
	}

	if err := s.refs.DeleteReference(ctx, referenceID); err != nil {
		return err
	}
	s.logger.Info("reference deleted", slog.String("referenceID", referenceID), slog.String("by", userID))
	return nil
}

// Links returns purchase and library links for the book at bookSlug.
// country and timeZone choose the Amazon storefront; both may be empty.
func (s *BookService) Links(ctx context.Context, bookSlug, country, timeZone string) (*links.Links, error) {
	book, err := s.books.GetBookBySlug(ctx, bookSlug)
	if err != nil {
		return nil, err
	}
	l := links.For(book.Title, book.Author, links.Country(country, timeZone))
	return &l, nil
}
