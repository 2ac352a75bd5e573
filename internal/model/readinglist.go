package model

import "time"

// ReadingList is a named, ordered collection of books owned by one user.
type ReadingList struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Slug        string            `json:"slug"`
	IsPublic    bool              `json:"isPublic"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Items       []ReadingListItem `json:"items,omitempty"`

	// Filled in by listing queries, not stored.
	ItemCount    int    `json:"itemCount"`
	DisplayName  string `json:"displayName,omitempty"`
	ContainsBook bool   `json:"containsBook,omitempty"`
}

// ReadingListItem places a book in a list. Position determines display order.
type ReadingListItem struct {
	ID            string    `json:"id"`
	ReadingListID string    `json:"readingListId"`
	BookID        string    `json:"bookId"`
	Position      int       `json:"position"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Book          *Book     `json:"book,omitempty"`
}
