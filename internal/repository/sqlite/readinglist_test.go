package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/model"
)

func createTestList(t *testing.T, db *DB, owner *model.User, slug string, public bool) *model.ReadingList {
	t.Helper()
	l := &model.ReadingList{UserID: owner.ID, Name: "List " + slug, Slug: slug, IsPublic: public}
	if err := db.CreateList(context.Background(), l); err != nil {
		t.Fatalf("CreateList(%q) error = %v", slug, err)
	}
	return l
}

func TestCreateList_DuplicateSlugConflicts(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	createTestList(t, db, owner, "summer-abc", false)

	err := db.CreateList(context.Background(), &model.ReadingList{UserID: owner.ID, Name: "x", Slug: "summer-abc"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateList(dup slug) error = %v, want ErrConflict", err)
	}
}

func TestGetListBySlug_IncludesOwnerAndCount(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	l := createTestList(t, db, owner, "reads-1", true)
	book := createTestBook(t, db, "a", "A", "")

	if _, err := db.AddItem(context.Background(), &model.ReadingListItem{ReadingListID: l.ID, BookID: book.ID}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	got, err := db.GetListBySlug(context.Background(), "reads-1")
	if err != nil {
		t.Fatalf("GetListBySlug() error = %v", err)
	}
	if got.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", got.ItemCount)
	}
	if got.DisplayName != owner.DisplayName {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, owner.DisplayName)
	}
	if !got.IsPublic {
		t.Error("IsPublic = false, want true")
	}
}

func TestAddItem_AppendsAndIgnoresDuplicates(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	l := createTestList(t, db, owner, "l", false)
	a := createTestBook(t, db, "a", "A", "")
	b := createTestBook(t, db, "b", "B", "")

	first := &model.ReadingListItem{ReadingListID: l.ID, BookID: a.ID, Notes: "start here"}
	if created, err := db.AddItem(context.Background(), first); err != nil || !created {
		t.Fatalf("AddItem(a) = %v, %v", created, err)
	}
	second := &model.ReadingListItem{ReadingListID: l.ID, BookID: b.ID}
	if created, err := db.AddItem(context.Background(), second); err != nil || !created {
		t.Fatalf("AddItem(b) = %v, %v", created, err)
	}
	if first.Position != 0 || second.Position != 1 {
		t.Errorf("positions = %d, %d; want 0, 1", first.Position, second.Position)
	}

	dup := &model.ReadingListItem{ReadingListID: l.ID, BookID: a.ID}
	created, err := db.AddItem(context.Background(), dup)
	if err != nil {
		t.Fatalf("duplicate AddItem() error = %v", err)
	}
	if created {
		t.Error("duplicate AddItem() created = true, want false")
	}
	if dup.ID != first.ID || dup.Position != 0 || dup.Notes != "start here" {
		t.Errorf("duplicate AddItem() item = %+v, want stored item %s at position 0", dup, first.ID)
	}

	items, err := db.ListItems(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Book == nil || items[0].Book.Slug != "a" || items[0].Notes != "start here" {
		t.Errorf("items[0] = %+v, want book a with notes", items[0])
	}
	if items[1].Book.Slug != "b" {
		t.Errorf("items[1].Book.Slug = %q, want b", items[1].Book.Slug)
	}
}

func TestAddItem_AfterRemovalKeepsAppending(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	l := createTestList(t, db, owner, "l", false)
	a := createTestBook(t, db, "a", "A", "")
	b := createTestBook(t, db, "b", "B", "")
	c := createTestBook(t, db, "c", "C", "")

	for _, bk := range []*model.Book{a, b} {
		if _, err := db.AddItem(context.Background(), &model.ReadingListItem{ReadingListID: l.ID, BookID: bk.ID}); err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
	}
	if err := db.RemoveItem(context.Background(), l.ID, a.ID); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}

	item := &model.ReadingListItem{ReadingListID: l.ID, BookID: c.ID}
	if _, err := db.AddItem(context.Background(), item); err != nil {
		t.Fatalf("AddItem(c) error = %v", err)
	}
	if item.Position != 2 {
		t.Errorf("Position = %d, want 2 (max+1)", item.Position)
	}

	if err := db.RemoveItem(context.Background(), l.ID, a.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemoveItem(absent) error = %v, want ErrNotFound", err)
	}
}

func TestListPublicLists_NewestFirstOnlyPublic(t *testing.T) {
	db := newTestDB(t)
	withClock(db, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	owner := createTestUser(t, db, "owner@example.com")
	createTestList(t, db, owner, "old", true)
	createTestList(t, db, owner, "private", false)
	createTestList(t, db, owner, "new", true)

	lists, err := db.ListPublicLists(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListPublicLists() error = %v", err)
	}
	if len(lists) != 2 || lists[0].Slug != "new" || lists[1].Slug != "old" {
		t.Errorf("public lists = %+v, want [new old]", lists)
	}
}

func TestListUserLists_FlagsContainedBook(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	with := createTestList(t, db, owner, "with", false)
	createTestList(t, db, owner, "without", true)
	createTestList(t, db, other, "not-mine", true)
	book := createTestBook(t, db, "a", "A", "")

	if _, err := db.AddItem(context.Background(), &model.ReadingListItem{ReadingListID: with.ID, BookID: book.ID}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	lists, err := db.ListUserLists(context.Background(), owner.ID, book.ID)
	if err != nil {
		t.Fatalf("ListUserLists() error = %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("len(lists) = %d, want 2", len(lists))
	}
	for _, l := range lists {
		want := l.Slug == "with"
		if l.ContainsBook != want {
			t.Errorf("list %s ContainsBook = %v, want %v", l.Slug, l.ContainsBook, want)
		}
	}
}

func TestSetListVisibilityAndDelete(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	l := createTestList(t, db, owner, "l", false)
	book := createTestBook(t, db, "a", "A", "")
	if _, err := db.AddItem(context.Background(), &model.ReadingListItem{ReadingListID: l.ID, BookID: book.ID}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	if err := db.SetListVisibility(context.Background(), l.ID, true); err != nil {
		t.Fatalf("SetListVisibility() error = %v", err)
	}
	got, _ := db.GetListByID(context.Background(), l.ID)
	if !got.IsPublic {
		t.Error("IsPublic = false after SetListVisibility(true)")
	}

	if err := db.DeleteList(context.Background(), l.ID); err != nil {
		t.Fatalf("DeleteList() error = %v", err)
	}
	if _, err := db.GetListByID(context.Background(), l.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetListByID() after delete error = %v, want ErrNotFound", err)
	}
	items, err := db.ListItems(context.Background(), l.ID)
	if err != nil || len(items) != 0 {
		t.Errorf("ListItems() after delete = %d items, %v; want 0, nil", len(items), err)
	}
}
