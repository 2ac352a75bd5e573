package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/booklinks/booklinks/internal/validation"
)

type FeedbackInput struct {
	Type    model.FeedbackType `json:"type" validate:"required,oneof=bug feature general"`
	Message string             `json:"message" validate:"required,max=5000"`
	Email   string             `json:"email" validate:"omitempty,email,max=320"`
	PageURL string             `json:"pageUrl" validate:"max=2000"`
}

type FeedbackUpdate struct {
	Status     model.FeedbackStatus `json:"status" validate:"required,oneof=new read in_progress resolved dismissed"`
	AdminNotes string               `json:"adminNotes" validate:"max=5000"`
}

type FeedbackService struct {
	feedback repository.FeedbackRepository
	users    repository.UserRepository
	validate *validation.Validator
	logger   *slog.Logger
}

func NewFeedbackService(
	feedback repository.FeedbackRepository,
	users repository.UserRepository,
	validate *validation.Validator,
	logger *slog.Logger,
) *FeedbackService {
	return &FeedbackService{feedback: feedback, users: users, validate: validate, logger: logger}
}

// Submit stores feedback from a signed-in user (userID set) or a visitor.
// A signed-in user's email is used when none was given.
func (s *FeedbackService) Submit(ctx context.Context, userID string, in FeedbackInput) (*model.Feedback, error) {
	in.Message = strings.TrimSpace(in.Message)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	f := &model.Feedback{
		Type:    in.Type,
		Message: in.Message,
		Email:   in.Email,
		PageURL: strings.TrimSpace(in.PageURL),
		UserID:  userID,
	}
	if userID != "" && f.Email == "" {
		if u, err := s.users.GetUserByID(ctx, userID); err == nil {
			f.Email = u.Email
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/feedback: loading submitter: %w", err)
		}
	}

	if err := s.feedback.CreateFeedback(ctx, f); err != nil {
		return nil, fmt.Errorf("service/feedback: saving: %w", err)
	}
	s.logger.Info("feedback received", slog.String("feedbackID", f.ID), slog.String("type", string(f.Type)))
	return f, nil
}

// List shows administrators everything matching filter and everyone else
// only their own submissions.
func (s *FeedbackService) List(ctx context.Context, userID string, filter model.FeedbackFilter) ([]model.Feedback, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.ValidationFailed("status", "unknown feedback status "+string(filter.Status))
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.ValidationFailed("type", "unknown feedback type "+string(filter.Type))
	}

	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	filter.UserID = ""
	if !admin {
		filter.UserID = userID
	}
	return s.feedback.ListFeedback(ctx, filter)
}

// UpdateStatus changes status and notes. Administrators only.
func (s *FeedbackService) UpdateStatus(ctx context.Context, userID, feedbackID string, in FeedbackUpdate) (*model.Feedback, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperror.Forbidden("only administrators can update feedback")
	}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	if err := s.feedback.UpdateFeedbackStatus(ctx, feedbackID, in.Status, strings.TrimSpace(in.AdminNotes)); err != nil {
		return nil, err
	}
	return s.feedback.GetFeedback(ctx, feedbackID)
}

func (s *FeedbackService) isAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("service/feedback: loading caller %s: %w", userID, err)
	}
	return u.IsAdmin, nil
}
