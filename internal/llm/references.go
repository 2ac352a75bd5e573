package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const referenceTemperature = 0.3

// Suggestion is one book the model claims is referenced by the source book.
type Suggestion struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Context string `json:"context"`
}

// ReferencePrompt builds the prompt asking for books referenced in "title by author".
func ReferencePrompt(title, author string) string {
	info := title
	if author != "" {
		info = title + " by " + author
	}
	return fmt.Sprintf(`List 10-15 books that are frequently referenced, cited, or mentioned in "%s".
Format as JSON array with properties: title, author, context (brief description of how it's referenced).
Only include books that are actually referenced in the text, not just similar topics.
Return only valid JSON array, no markdown or extra text.`, info)
}

// SuggestReferences asks the model which books title references.
func (c *Client) SuggestReferences(ctx context.Context, title, author string) ([]Suggestion, error) {
	content, err := c.Complete(ctx, ReferencePrompt(title, author), referenceTemperature)
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(content)
}

// ParseSuggestions decodes the model's JSON array, tolerating ``` fences.
// Entries without a title are dropped; a missing author becomes "Unknown".
func ParseSuggestions(content string) ([]Suggestion, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		cleaned = "[]"
	}

	var raw []Suggestion
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("llm: parsing suggestions: %w", err)
	}

	out := make([]Suggestion, 0, len(raw))
	for _, s := range raw {
		s.Title = strings.TrimSpace(s.Title)
		s.Author = strings.TrimSpace(s.Author)
		if s.Title == "" {
			continue
		}
		if s.Author == "" {
			s.Author = "Unknown"
		}
		out = append(out, s)
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
