package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/booklinks/booklinks/internal/apperror"
)

func newTestReadingListService(store *fakeStore) *ReadingListService {
	svc := NewReadingListService(store, store, newValidator(), discardLogger())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func TestReadingList_CreateIsPrivateWithSuffixedSlug(t *testing.T) {
	store := newFakeStore()
	svc := newTestReadingListService(store)

	list, err := svc.Create(context.Background(), "u1", CreateListInput{Name: "  Summer Reading ", Description: "beach"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if list.IsPublic {
		t.Error("new lists should be private")
	}
	if list.Name != "Summer Reading" || !strings.HasPrefix(list.Slug, "summer-reading-") {
		t.Errorf("list = %+v", list)
	}
	if !strings.HasSuffix(list.Slug, "-loyw3v28") {
		t.Errorf("slug = %q, want base-36 millisecond suffix", list.Slug)
	}

	if _, err := svc.Create(context.Background(), "u1", CreateListInput{Name: "   "}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank name: err = %v, want ErrValidation", err)
	}
}

func TestReadingList_Visibility(t *testing.T) {
	store := newFakeStore()
	svc := newTestReadingListService(store)
	ctx := context.Background()

	list, _ := svc.Create(ctx, "owner", CreateListInput{Name: "Mine"})

	if _, err := svc.Get(ctx, list.Slug, "stranger"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("private list for stranger: err = %v, want ErrNotFound", err)
	}
	if got, err := svc.Get(ctx, list.Slug, "owner"); err != nil || got.Items == nil {
		t.Errorf("owner get = %+v, %v", got, err)
	}

	if _, err := svc.SetVisibility(ctx, "stranger", list.ID, true); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("stranger toggle: err = %v, want ErrForbidden", err)
	}
	updated, err := svc.SetVisibility(ctx, "owner", list.ID, true)
	if err != nil || !updated.IsPublic {
		t.Fatalf("SetVisibility() = %+v, %v", updated, err)
	}

	if _, err := svc.Get(ctx, list.Slug, ""); err != nil {
		t.Errorf("public list for anonymous: err = %v", err)
	}
	if public := svc.Public(ctx); len(public) != 1 {
		t.Errorf("Public() = %d lists, want 1", len(public))
	}
}

func TestReadingList_Items(t *testing.T) {
	store := newFakeStore()
	svc := newTestReadingListService(store)
	ctx := context.Background()
	a := store.addBook("A", "x")
	b := store.addBook("B", "x")

	list, _ := svc.Create(ctx, "owner", CreateListInput{Name: "Queue"})

	first, created, err := svc.AddItem(ctx, "owner", list.ID, AddItemInput{BookID: a.ID})
	if err != nil || !created || first.Position != 0 {
		t.Fatalf("first AddItem() = %+v, %v, %v", first, created, err)
	}
	second, _, _ := svc.AddItem(ctx, "owner", list.ID, AddItemInput{BookID: b.ID, Notes: "next"})
	if second.Position != 1 {
		t.Errorf("second position = %d, want 1", second.Position)
	}

	_, created, err = svc.AddItem(ctx, "owner", list.ID, AddItemInput{BookID: a.ID})
	if err != nil || created {
		t.Errorf("duplicate item: created = %v, err = %v; want benign no-op", created, err)
	}

	if _, _, err := svc.AddItem(ctx, "owner", list.ID, AddItemInput{BookID: "missing"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown book: err = %v, want ErrNotFound", err)
	}
	if _, _, err := svc.AddItem(ctx, "intruder", list.ID, AddItemInput{BookID: a.ID}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("intruder: err = %v, want ErrForbidden", err)
	}

	mine, err := svc.Mine(ctx, "owner", a.ID)
	if err != nil || len(mine) != 1 || !mine[0].ContainsBook {
		t.Errorf("Mine() = %+v, %v", mine, err)
	}

	if err := svc.RemoveItem(ctx, "owner", list.ID, a.ID); err != nil {
		t.Errorf("RemoveItem() error = %v", err)
	}
	got, _ := svc.Get(ctx, list.Slug, "owner")
	if len(got.Items) != 1 || got.Items[0].BookID != b.ID || got.Items[0].Book == nil {
		t.Errorf("items after remove = %+v", got.Items)
	}

	if err := svc.Delete(ctx, "intruder", list.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("intruder delete: err = %v", err)
	}
	if err := svc.Delete(ctx, "owner", list.ID); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}
