package model

import "time"

// ReferenceSource records how an edge got into the graph.
type ReferenceSource string

const (
	SourceUser        ReferenceSource = "user"         // added by hand
	SourceAI          ReferenceSource = "ai"           // suggested by the language model
	SourceGoogleBooks ReferenceSource = "google_books" // corroborated by a books API text search
)

// Reference is a directed edge: SourceBookID references ReferencedBookID.
//
// At most one edge exists per ordered (SourceBookID, ReferencedBookID) pair.
// "Referenced by" is the same table read with the two columns swapped.
type Reference struct {
	ID               string          `json:"id"`
	SourceBookID     string          `json:"sourceBookId"`
	ReferencedBookID string          `json:"referencedBookId"`
	Context          string          `json:"context,omitempty"`
	PageNumber       *int            `json:"pageNumber,omitempty"`
	Source           ReferenceSource `json:"source"`
	SourceURL        string          `json:"sourceUrl,omitempty"`
	SourceVerified   bool            `json:"sourceVerified"`
	VerificationDate *time.Time      `json:"verificationDate,omitempty"`
	AddedBy          string          `json:"addedBy,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// LinkedBook is one row of a book page's "references" or "referenced by"
// list: the other endpoint of an edge, denormalized for display, plus the
// edge's own id so the client can upvote, comment on or delete it.
type LinkedBook struct {
	ID             string `json:"id"` // slug of the other book
	Title          string `json:"title"`
	Author         string `json:"author"`
	CoverURL       string `json:"coverUrl"`
	Description    string `json:"description,omitempty"`
	ReferenceID    string `json:"referenceId"`
	Context        string `json:"context,omitempty"`
	UpvoteCount    int    `json:"upvoteCount"`
	UserHasUpvoted bool   `json:"userHasUpvoted"`
}

// BookDetail is a book together with its edges read in both directions.
type BookDetail struct {
	Book
	References   []LinkedBook `json:"references"`
	ReferencedBy []LinkedBook `json:"referencedBy"`
}

// EdgeWithBooks is a stored edge joined with both of its endpoints.
// The graph builder consumes these.
type EdgeWithBooks struct {
	ReferenceID string
	Source      Book
	Target      Book
}
