package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
)

func newEngagementFixture(t *testing.T) (*fakeStore, *EngagementService, *model.Reference) {
	t.Helper()
	store := newFakeStore()
	a := store.addBook("A", "x")
	b := store.addBook("B", "x")
	ref := &model.Reference{SourceBookID: a.ID, ReferencedBookID: b.ID}
	if _, err := store.CreateReference(context.Background(), ref); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return store, NewEngagementService(store, store, newValidator(), discardLogger()), ref
}

func TestToggleUpvote(t *testing.T) {
	_, svc, ref := newEngagementFixture(t)
	ctx := context.Background()

	st, err := svc.ToggleUpvote(ctx, "u1", ref.ID)
	if err != nil || st != (model.UpvoteState{Count: 1, UserHasUpvoted: true}) {
		t.Fatalf("first toggle = %+v, %v", st, err)
	}
	_, _ = svc.ToggleUpvote(ctx, "u2", ref.ID)

	st, _ = svc.ToggleUpvote(ctx, "u1", ref.ID)
	if st != (model.UpvoteState{Count: 1, UserHasUpvoted: false}) {
		t.Errorf("second toggle = %+v", st)
	}

	st, _ = svc.Upvotes(ctx, "", ref.ID)
	if st.Count != 1 || st.UserHasUpvoted {
		t.Errorf("anonymous view = %+v", st)
	}
}

func TestComments(t *testing.T) {
	_, svc, ref := newEngagementFixture(t)
	ctx := context.Background()

	c, err := svc.AddComment(ctx, "u1", ref.ID, CommentInput{Content: "  Great link  "})
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if c.Content != "Great link" {
		t.Errorf("Content = %q, want trimmed", c.Content)
	}

	for name, content := range map[string]string{"empty": "   ", "too long": strings.Repeat("x", 2001)} {
		if _, err := svc.AddComment(ctx, "u1", ref.ID, CommentInput{Content: content}); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", name, err)
		}
	}
	if _, err := svc.AddComment(ctx, "u1", "missing", CommentInput{Content: "hi"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown reference: err = %v, want ErrNotFound", err)
	}

	if got := svc.Comments(ctx, ref.ID); len(got) != 1 {
		t.Errorf("Comments() = %d, want 1", len(got))
	}

	if err := svc.DeleteComment(ctx, "u2", c.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("other user delete: err = %v, want ErrForbidden", err)
	}
	if err := svc.DeleteComment(ctx, "u1", c.ID); err != nil {
		t.Errorf("author delete: err = %v", err)
	}
	if got := svc.Comments(ctx, ref.ID); len(got) != 0 {
		t.Errorf("Comments() after delete = %d", len(got))
	}
}
