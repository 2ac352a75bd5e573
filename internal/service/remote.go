package service

import (
	"context"

	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/llm"
)

// ReferenceSuggester asks a language model which books a title references.
// *llm.Client satisfies it.
type ReferenceSuggester interface {
	Configured() bool
	SuggestReferences(ctx context.Context, title, author string) ([]llm.Suggestion, error)
}

// BooksAPI is the subset of the Google Books client the services use.
// *booksapi.Client satisfies it.
type BooksAPI interface {
	SearchVolumes(ctx context.Context, query string, maxResults int) ([]booksapi.Volume, error)
	SearchByTitleAuthor(ctx context.Context, title, author string, maxResults int) ([]booksapi.Volume, error)
	SearchMentions(ctx context.Context, title, author string) ([]booksapi.Volume, error)
	GetVolume(ctx context.Context, id string) (*booksapi.Volume, error)
}

var (
	_ ReferenceSuggester = (*llm.Client)(nil)
	_ BooksAPI           = (*booksapi.Client)(nil)
)
