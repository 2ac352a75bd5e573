package model

// GraphNode is a book in the global reference graph.
// Connections counts edge endpoints touching this book, in either direction.
type GraphNode struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	CoverURL    string `json:"coverUrl,omitempty"`
	Connections int    `json:"connections"`
}

// GraphLink is one edge, by book id.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is what the explore view hands to its rendering library.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}
