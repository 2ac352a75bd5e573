package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/booklinks/booklinks/internal/validation"
)

type CommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// EngagementService handles upvotes and comments on reference edges.
type EngagementService struct {
	engagement repository.EngagementRepository
	refs       repository.ReferenceRepository
	validate   *validation.Validator
	logger     *slog.Logger
}

func NewEngagementService(
	engagement repository.EngagementRepository,
	refs repository.ReferenceRepository,
	validate *validation.Validator,
	logger *slog.Logger,
) *EngagementService {
	return &EngagementService{engagement: engagement, refs: refs, validate: validate, logger: logger}
}

// Upvotes returns the count and, for a signed-in viewer, whether they upvoted.
func (s *EngagementService) Upvotes(ctx context.Context, viewerID, referenceID string) (model.UpvoteState, error) {
	return s.engagement.GetUpvoteState(ctx, viewerID, referenceID)
}

// ToggleUpvote adds the caller's upvote if absent and removes it otherwise.
func (s *EngagementService) ToggleUpvote(ctx context.Context, userID, referenceID string) (model.UpvoteState, error) {
	return s.engagement.ToggleUpvote(ctx, userID, referenceID)
}

func (s *EngagementService) Comments(ctx context.Context, referenceID string) []model.ReferenceComment {
	comments, err := s.engagement.ListComments(ctx, referenceID)
	if err != nil {
		s.logger.Error("listing comments", slog.String("referenceID", referenceID), slog.String("error", err.Error()))
		return []model.ReferenceComment{}
	}
	return comments
}

func (s *EngagementService) AddComment(ctx context.Context, userID, referenceID string, in CommentInput) (*model.ReferenceComment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	if _, err := s.refs.GetReferenceByID(ctx, referenceID); err != nil {
		return nil, err
	}

	c := &model.ReferenceComment{
		UserID:      userID,
		ReferenceID: referenceID,
		Content:     in.Content,
	}
	if err := s.engagement.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment lets authors remove their own comments.
func (s *EngagementService) DeleteComment(ctx context.Context, userID, commentID string) error {
	c, err := s.engagement.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return apperror.Forbidden("you can only delete your own comments")
	}
	return s.engagement.DeleteComment(ctx, commentID)
}
