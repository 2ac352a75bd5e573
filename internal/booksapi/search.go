package booksapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	mentionsMaxResults = 20
	mentionsFields     = "items(id,volumeInfo(title,authors,description,imageLinks/thumbnail),searchInfo/textSnippet)"
)

// SearchVolumes runs a free-text volume search. An empty result is not an error.
func (c *Client) SearchVolumes(ctx context.Context, query string, maxResults int) ([]Volume, error) {
	if strings.TrimSpace(query) == "" {
		return []Volume{}, nil
	}
	params := url.Values{}
	params.Set("q", query)
	if maxResults > 0 {
		params.Set("maxResults", strconv.Itoa(maxResults))
	}
	return c.search(ctx, params)
}

// SearchByTitleAuthor searches for "title author" as plain words.
func (c *Client) SearchByTitleAuthor(ctx context.Context, title, author string, maxResults int) ([]Volume, error) {
	return c.SearchVolumes(ctx, strings.TrimSpace(title+" "+author), maxResults)
}

// SearchMentions looks for volumes whose text contains the quoted title (and
// author, when known). Results carry a TextSnippet where Google has one.
// Filtering out the source book itself is left to the caller.
func (c *Client) SearchMentions(ctx context.Context, title, author string) ([]Volume, error) {
	query := `"` + title + `"`
	if author != "" {
		query += ` "` + author + `"`
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(mentionsMaxResults))
	params.Set("fields", mentionsFields)
	return c.search(ctx, params)
}

func (c *Client) search(ctx context.Context, params url.Values) ([]Volume, error) {
	c.logger.Debug("searching Google Books", "query", params.Get("q"))

	var resp volumesResponse
	if err := c.getJSON(ctx, "/volumes", params, &resp); err != nil {
		return nil, err
	}

	volumes := make([]Volume, 0, len(resp.Items))
	for _, it := range resp.Items {
		volumes = append(volumes, it.toVolume())
	}

	c.logger.Debug("Google Books results", "query", params.Get("q"), "count", len(volumes))
	return volumes, nil
}

// GetVolume fetches one volume by its Google Books id.
func (c *Client) GetVolume(ctx context.Context, id string) (*Volume, error) {
	if id == "" {
		return nil, fmt.Errorf("booksapi: volume id must not be empty")
	}

	var it volumeItem
	if err := c.getJSON(ctx, "/volumes/"+url.PathEscape(id), nil, &it); err != nil {
		return nil, err
	}
	if it.ID == "" {
		it.ID = id
	}
	v := it.toVolume()
	return &v, nil
}
