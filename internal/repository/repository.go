// Package repository declares the storage interfaces the service layer depends on.
// The only implementation lives in repository/sqlite; service tests use fakes.
package repository

import (
	"context"
	"time"

	"github.com/booklinks/booklinks/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type BookRepository interface {
	// CreateBook inserts b. If a book with the same slug already exists, b is
	// overwritten with the stored row and created is false.
	CreateBook(ctx context.Context, b *model.Book) (created bool, err error)
	GetBookByID(ctx context.Context, id string) (*model.Book, error)
	GetBookBySlug(ctx context.Context, slug string) (*model.Book, error)
	SearchBooks(ctx context.Context, query string, limit int) ([]model.BookSearchHit, error)
	ListBooks(ctx context.Context, opts ListOptions) ([]model.Book, error)
	UpdateCover(ctx context.Context, id, coverURL string) error
	MarkReferencesDiscovered(ctx context.Context, id string, at time.Time) error
}

type ReferenceRepository interface {
	// CreateReference inserts ref unless the (source, referenced) pair already
	// exists; created reports which happened. A duplicate is not an error.
	CreateReference(ctx context.Context, ref *model.Reference) (created bool, err error)
	GetReferenceByID(ctx context.Context, id string) (*model.Reference, error)
	ReferenceExists(ctx context.Context, sourceBookID, referencedBookID string) (bool, error)
	DeleteReference(ctx context.Context, id string) error
	// ListOutgoing returns edges where bookID is the source ("references").
	ListOutgoing(ctx context.Context, bookID, viewerID string) ([]model.LinkedBook, error)
	// ListIncoming returns edges where bookID is the target ("referenced by").
	ListIncoming(ctx context.Context, bookID, viewerID string) ([]model.LinkedBook, error)
	ListEdges(ctx context.Context, limit int) ([]model.EdgeWithBooks, error)
	ListReferencesFrom(ctx context.Context, sourceBookID string) ([]model.Reference, error)
}

type ReadingListRepository interface {
	CreateList(ctx context.Context, list *model.ReadingList) error
	GetListByID(ctx context.Context, id string) (*model.ReadingList, error)
	GetListBySlug(ctx context.Context, slug string) (*model.ReadingList, error)
	ListPublicLists(ctx context.Context, limit int) ([]model.ReadingList, error)
	ListUserLists(ctx context.Context, userID, containsBookID string) ([]model.ReadingList, error)
	SetListVisibility(ctx context.Context, id string, isPublic bool) error
	DeleteList(ctx context.Context, id string) error
	// AddItem appends bookID at the end of the list; created is false if the
	// book was already on it.
	AddItem(ctx context.Context, item *model.ReadingListItem) (created bool, err error)
	RemoveItem(ctx context.Context, listID, bookID string) error
	ListItems(ctx context.Context, listID string) ([]model.ReadingListItem, error)
}

type EngagementRepository interface {
	// ToggleUpvote flips the caller's upvote on an edge and returns the new state.
	ToggleUpvote(ctx context.Context, userID, referenceID string) (model.UpvoteState, error)
	GetUpvoteState(ctx context.Context, userID, referenceID string) (model.UpvoteState, error)
	CreateComment(ctx context.Context, c *model.ReferenceComment) error
	GetComment(ctx context.Context, id string) (*model.ReferenceComment, error)
	ListComments(ctx context.Context, referenceID string) ([]model.ReferenceComment, error)
	DeleteComment(ctx context.Context, id string) error
}

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, f *model.Feedback) error
	GetFeedback(ctx context.Context, id string) (*model.Feedback, error)
	ListFeedback(ctx context.Context, filter model.FeedbackFilter) ([]model.Feedback, error)
	UpdateFeedbackStatus(ctx context.Context, id string, status model.FeedbackStatus, adminNotes string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	// UpsertGitHubUser inserts or refreshes the account linked to u.GitHubID.
	UpsertGitHubUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
}

type StatsRepository interface {
	Stats(ctx context.Context, top int) (*model.Stats, error)
}
