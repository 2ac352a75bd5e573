package booksapi

import "strings"

// Volume is one Google Books volume flattened to the fields BookLinks uses.
type Volume struct {
	ID          string
	Title       string
	Authors     []string
	Description string // HTML already converted to plain markdown
	Thumbnail   string
	TextSnippet string // only set by SearchMentions
}

// FirstAuthor returns the first listed author, trimmed, or "Unknown".
func (v Volume) FirstAuthor() string {
	if len(v.Authors) == 0 {
		return "Unknown"
	}
	if a := strings.TrimSpace(v.Authors[0]); a != "" {
		return a
	}
	return "Unknown"
}

// InfoURL is the public Google Books page for the volume.
func (v Volume) InfoURL() string {
	return "https://books.google.com/books?id=" + v.ID
}

// Wire format.

type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
	SearchInfo *struct {
		TextSnippet string `json:"textSnippet"`
	} `json:"searchInfo,omitempty"`
}

type volumeInfo struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	ImageLinks  *struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks,omitempty"`
}

func (it volumeItem) toVolume() Volume {
	v := Volume{
		ID:          it.ID,
		Title:       it.VolumeInfo.Title,
		Authors:     it.VolumeInfo.Authors,
		Description: CleanDescription(it.VolumeInfo.Description),
	}
	if it.VolumeInfo.ImageLinks != nil {
		v.Thumbnail = it.VolumeInfo.ImageLinks.Thumbnail
	}
	if it.SearchInfo != nil {
		v.TextSnippet = it.SearchInfo.TextSnippet
	}
	return v
}
