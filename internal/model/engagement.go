package model

import "time"

// UpvoteState is what an upvote button needs to render.
type UpvoteState struct {
	Count          int  `json:"count"`
	UserHasUpvoted bool `json:"userHasUpvoted"`
}

// ReferenceComment is free text a user wrote against one edge.
type ReferenceComment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ReferenceID string    `json:"referenceId"`
	Content     string    `json:"content"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
