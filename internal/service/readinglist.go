package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/booklinks/booklinks/internal/slug"
	"github.com/booklinks/booklinks/internal/validation"
)

const PublicListLimit = 50

type CreateListInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type AddItemInput struct {
	BookID string `json:"bookId" validate:"required"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// ReadingListService manages reading lists. Every mutation checks that
// the caller owns the list.
type ReadingListService struct {
	lists    repository.ReadingListRepository
	books    repository.BookRepository
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time
}

func NewReadingListService(
	lists repository.ReadingListRepository,
	books repository.BookRepository,
	validate *validation.Validator,
	logger *slog.Logger,
) *ReadingListService {
	return &ReadingListService{
		lists:    lists,
		books:    books,
		validate: validate,
		logger:   logger,
		now:      time.Now,
	}
}

// Create makes a private list. Its slug is the name's slug plus a base-36
// timestamp so two lists with the same name do not collide.
func (s *ReadingListService) Create(ctx context.Context, userID string, in CreateListInput) (*model.ReadingList, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	list := &model.ReadingList{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Slug:        slug.WithTimeSuffix(name, s.now()),
	}
	if err := s.lists.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("service/readinglist: creating %q: %w", name, err)
	}

	s.logger.Info("reading list created", slog.String("listID", list.ID), slog.String("slug", list.Slug))
	return list, nil
}

// Public returns the newest public lists.
func (s *ReadingListService) Public(ctx context.Context) []model.ReadingList {
	lists, err := s.lists.ListPublicLists(ctx, PublicListLimit)
	if err != nil {
		s.logger.Error("listing public reading lists", slog.String("error", err.Error()))
		return []model.ReadingList{}
	}
	return lists
}

// Mine returns the caller's lists. When bookID is set each list reports
// whether it already contains that book.
func (s *ReadingListService) Mine(ctx context.Context, userID, bookID string) ([]model.ReadingList, error) {
	lists, err := s.lists.ListUserLists(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("service/readinglist: listing lists of %s: %w", userID, err)
	}
	return lists, nil
}

// Get returns a list with its items. A private list is visible only to its
// owner; anyone else gets not found rather than forbidden so private slugs
// do not leak.
func (s *ReadingListService) Get(ctx context.Context, listSlug, viewerID string) (*model.ReadingList, error) {
	list, err := s.lists.GetListBySlug(ctx, listSlug)
	if err != nil {
		return nil, err
	}
	if !list.IsPublic && list.UserID != viewerID {
		return nil, apperror.NotFound("reading list", listSlug)
	}

	items, err := s.lists.ListItems(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("service/readinglist: listing items of %s: %w", list.ID, err)
	}
	list.Items = items
	if list.Items == nil {
		list.Items = []model.ReadingListItem{}
	}
	return list, nil
}

func (s *ReadingListService) SetVisibility(ctx context.Context, userID, listID string, isPublic bool) (*model.ReadingList, error) {
	list, err := s.owned(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	if err := s.lists.SetListVisibility(ctx, listID, isPublic); err != nil {
		return nil, err
	}
	list.IsPublic = isPublic
	return list, nil
}

func (s *ReadingListService) Delete(ctx context.Context, userID, listID string) error {
	if _, err := s.owned(ctx, userID, listID); err != nil {
		return err
	}
	return s.lists.DeleteList(ctx, listID)
}

// AddItem appends a book to the end of the list. Adding a book that is
// already on the list succeeds with created == false.
func (s *ReadingListService) AddItem(ctx context.Context, userID, listID string, in AddItemInput) (*model.ReadingListItem, bool, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, false, err
	}
	if _, err := s.owned(ctx, userID, listID); err != nil {
		return nil, false, err
	}
	if _, err := s.books.GetBookByID(ctx, in.BookID); err != nil {
		return nil, false, err
	}

	item := &model.ReadingListItem{
		ReadingListID: listID,
		BookID:        in.BookID,
		Notes:         strings.TrimSpace(in.Notes),
	}
	created, err := s.lists.AddItem(ctx, item)
	if err != nil {
		return nil, false, err
	}
	return item, created, nil
}

func (s *ReadingListService) RemoveItem(ctx context.Context, userID, listID, bookID string) error {
	if _, err := s.owned(ctx, userID, listID); err != nil {
		return err
	}
	return s.lists.RemoveItem(ctx, listID, bookID)
}

func (s *ReadingListService) owned(ctx context.Context, userID, listID string) (*model.ReadingList, error) {
	list, err := s.lists.GetListByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.UserID != userID {
		return nil, apperror.Forbidden("you do not own this reading list")
	}
	return list, nil
}
