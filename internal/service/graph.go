package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
)

// DefaultGraphEdgeLimit caps how many edges the explore graph reads.
const DefaultGraphEdgeLimit = 500

// GraphService assembles a book's neighbourhood and the global graph.
// Nothing is cached: every call reads storage afresh.
type GraphService struct {
	books     repository.BookRepository
	refs      repository.ReferenceRepository
	edgeLimit int
	logger    *slog.Logger
}

func NewGraphService(
	books repository.BookRepository,
	refs repository.ReferenceRepository,
	edgeLimit int,
	logger *slog.Logger,
) *GraphService {
	if edgeLimit <= 0 {
		edgeLimit = DefaultGraphEdgeLimit
	}
	return &GraphService{books: books, refs: refs, edgeLimit: edgeLimit, logger: logger}
}

// BookDetail returns the book with its outgoing ("references") and incoming
// ("referenced by") edges. viewerID may be empty for anonymous callers.
//
// A missing book is an error; a failure to read either edge list is logged
// and that list comes back empty.
func (s *GraphService) BookDetail(ctx context.Context, slug, viewerID string) (*model.BookDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "book slug is required")
	}

	book, err := s.books.GetBookBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("service/graph: loading %s: %w", slug, err)
	}

	detail := &model.BookDetail{
		Book:         *book,
		References:   []model.LinkedBook{},
		ReferencedBy: []model.LinkedBook{},
	}

	if out, err := s.refs.ListOutgoing(ctx, book.ID, viewerID); err != nil {
		s.logger.Error("listing outgoing references",
			slog.String("bookID", book.ID),
			slog.String("error", err.Error()),
		)
	} else if out != nil {
		detail.References = out
	}

	if in, err := s.refs.ListIncoming(ctx, book.ID, viewerID); err != nil {
		s.logger.Error("listing incoming references",
			slog.String("bookID", book.ID),
			slog.String("error", err.Error()),
		)
	} else if in != nil {
		detail.ReferencedBy = in
	}

	return detail, nil
}

// Graph returns the explore graph. It never fails: on a read error the
// graph is empty.
func (s *GraphService) Graph(ctx context.Context) *model.Graph {
	edges, err := s.refs.ListEdges(ctx, s.edgeLimit)
	if err != nil {
		s.logger.Error("reading graph edges", slog.String("error", err.Error()))
		return BuildGraph(nil)
	}
	return BuildGraph(edges)
}

// BuildGraph turns edges into nodes and links.
//
// Nodes appear in the order their book is first seen. Every edge adds one
// to the connection count of each endpoint, so a pair of books that
// reference each other both end up with two.
func BuildGraph(edges []model.EdgeWithBooks) *model.Graph {
	g := &model.Graph{
		Nodes: []model.GraphNode{},
		Links: make([]model.GraphLink, 0, len(edges)),
	}
	index := make(map[string]int)

	touch := func(b model.Book) {
		i, ok := index[b.ID]
		if !ok {
			i = len(g.Nodes)
			index[b.ID] = i
			g.Nodes = append(g.Nodes, model.GraphNode{
				ID:       b.ID,
				Slug:     b.Slug,
				Title:    b.Title,
				Author:   b.Author,
				CoverURL: b.Cover(),
			})
		}
		g.Nodes[i].Connections++
	}

	for _, e := range edges {
		touch(e.Source)
		touch(e.Target)
		g.Links = append(g.Links, model.GraphLink{Source: e.Source.ID, Target: e.Target.ID})
	}
	return g
}
