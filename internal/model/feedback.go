package model

import "time"

type FeedbackType string

const (
	FeedbackBug     FeedbackType = "bug"
	FeedbackFeature FeedbackType = "feature"
	FeedbackGeneral FeedbackType = "general"
)

type FeedbackStatus string

const (
	FeedbackNew        FeedbackStatus = "new"
	FeedbackRead       FeedbackStatus = "read"
	FeedbackInProgress FeedbackStatus = "in_progress"
	FeedbackResolved   FeedbackStatus = "resolved"
	FeedbackDismissed  FeedbackStatus = "dismissed"
)

// Valid reports whether s is one of the fixed statuses.
func (s FeedbackStatus) Valid() bool {
	switch s {
	case FeedbackNew, FeedbackRead, FeedbackInProgress, FeedbackResolved, FeedbackDismissed:
		return true
	}
	return false
}

// Valid reports whether t is one of the fixed categories.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackBug, FeedbackFeature, FeedbackGeneral:
		return true
	}
	return false
}

// Feedback is a message from a user or an anonymous visitor.
// Status and AdminNotes are changed only by administrators.
type Feedback struct {
	ID          string         `json:"id"`
	Type        FeedbackType   `json:"type"`
	Message     string         `json:"message"`
	Email       string         `json:"email,omitempty"`
	PageURL     string         `json:"pageUrl,omitempty"`
	Status      FeedbackStatus `json:"status"`
	AdminNotes  string         `json:"adminNotes,omitempty"`
	UserID      string         `json:"userId,omitempty"`
	DisplayName string         `json:"displayName,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// FeedbackFilter narrows a feedback listing. Empty fields match everything.
type FeedbackFilter struct {
	UserID string
	Status FeedbackStatus
	Type   FeedbackType
}
