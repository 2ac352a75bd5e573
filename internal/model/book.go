// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// DefaultCoverURL is shown for books whose catalogue entry has no thumbnail.
const DefaultCoverURL = "https://images.unsplash.com/photo-1543002588-bfa74002ed7e?w=500"

// Book is a single title in the catalogue.
//
// The Slug is derived from the title (see package slug) and doubles as the
// public identifier in URLs, so it is UNIQUE in the database. Optional text
// fields use "" as their zero value rather than *string, matching User.
type Book struct {
	ID                     string     `json:"id"`
	Slug                   string     `json:"slug"`
	Title                  string     `json:"title"`
	Author                 string     `json:"author"`
	Description            string     `json:"description,omitempty"`
	CoverURL               string     `json:"coverUrl,omitempty"`
	ReferencesDiscovered   bool       `json:"referencesDiscovered"`
	ReferencesDiscoveredAt *time.Time `json:"referencesDiscoveredAt,omitempty"`
	AddedBy                string     `json:"addedBy,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// Cover returns the cover image to display, falling back to DefaultCoverURL.
func (b *Book) Cover() string {
	if b.CoverURL == "" {
		return DefaultCoverURL
	}
	return b.CoverURL
}

// BookSearchHit is a local search result: a book plus how many books it references.
type BookSearchHit struct {
	Book
	ReferenceCount int `json:"referenceCount"`
}
