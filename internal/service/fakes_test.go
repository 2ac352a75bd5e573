package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/booklinks/booklinks/internal/apperror"
	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/llm"
	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
	"github.com/booklinks/booklinks/internal/slug"
	"github.com/booklinks/booklinks/internal/validation"
)

// fakeStore is an in-memory stand-in for the SQLite repository. It
// implements every repository interface so a test can hand the same store
// to whichever services it builds. Maps hold copies; callers never share
// pointers with the store.
//
// The err* fields inject failures into single methods.
type fakeStore struct {
	mu     sync.Mutex
	nextID int

	books    map[string]model.Book // by id
	refs     []model.Reference     // insertion order
	users    map[string]model.User
	lists    map[string]model.ReadingList
	items    []model.ReadingListItem
	upvotes  map[[2]string]bool // {userID, referenceID}
	comments []model.ReferenceComment
	feedback []model.Feedback
	stats    *model.Stats

	discovered map[string]time.Time

	errCreateReference error
	errReferenceExists error
	errListEdges       error
	errListOutgoing    error
	errSearchBooks     error
	errGetBook         error
	errMarkDiscovered  error
	errStats           error
	errUpsertGitHub    error
}

var (
	_ repository.BookRepository        = (*fakeStore)(nil)
	_ repository.ReferenceRepository   = (*fakeStore)(nil)
	_ repository.UserRepository        = (*fakeStore)(nil)
	_ repository.ReadingListRepository = (*fakeStore)(nil)
	_ repository.EngagementRepository  = (*fakeStore)(nil)
	_ repository.FeedbackRepository    = (*fakeStore)(nil)
	_ repository.StatsRepository       = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:      make(map[string]model.Book),
		users:      make(map[string]model.User),
		lists:      make(map[string]model.ReadingList),
		upvotes:    make(map[[2]string]bool),
		discovered: make(map[string]time.Time),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// --- books ---

func (f *fakeStore) CreateBook(_ context.Context, b *model.Book) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.books {
		if existing.Slug == b.Slug {
			*b = existing
			return false, nil
		}
	}
	b.ID = f.id("book")
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	f.books[b.ID] = *b
	return true, nil
}

func (f *fakeStore) addBook(title, author string) model.Book {
	b := &model.Book{Slug: slug.Make(title), Title: title, Author: author}
	_, _ = f.CreateBook(context.Background(), b)
	return *b
}

func (f *fakeStore) GetBookByID(_ context.Context, id string) (*model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errGetBook != nil {
		return nil, f.errGetBook
	}
	b, ok := f.books[id]
	if !ok {
		return nil, apperror.NotFound("book", id)
	}
	return &b, nil
}

func (f *fakeStore) GetBookBySlug(_ context.Context, slug string) (*model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errGetBook != nil {
		return nil, f.errGetBook
	}
	for _, b := range f.books {
		if b.Slug == slug {
			return &b, nil
		}
	}
	return nil, apperror.NotFound("book", slug)
}

func (f *fakeStore) SearchBooks(_ context.Context, query string, limit int) ([]model.BookSearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errSearchBooks != nil {
		return nil, f.errSearchBooks
	}
	q := strings.ToLower(query)
	var hits []model.BookSearchHit
	for _, b := range f.books {
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Author), q) {
			n := 0
			for _, r := range f.refs {
				if r.SourceBookID == b.ID {
					n++
				}
			}
			hits = append(hits, model.BookSearchHit{Book: b, ReferenceCount: n})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Title < hits[j].Title })
	return hits, nil
}

func (f *fakeStore) ListBooks(_ context.Context, _ repository.ListOptions) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Book, 0, len(f.books))
	for _, b := range f.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (f *fakeStore) UpdateCover(_ context.Context, id, coverURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return apperror.NotFound("book", id)
	}
	b.CoverURL = coverURL
	f.books[id] = b
	return nil
}

func (f *fakeStore) MarkReferencesDiscovered(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errMarkDiscovered != nil {
		return f.errMarkDiscovered
	}
	b, ok := f.books[id]
	if !ok {
		return apperror.NotFound("book", id)
	}
	b.ReferencesDiscovered = true
	b.ReferencesDiscoveredAt = &at
	f.books[id] = b
	f.discovered[id] = at
	return nil
}

// --- references ---

func (f *fakeStore) CreateReference(_ context.Context, ref *model.Reference) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errCreateReference != nil {
		return false, f.errCreateReference
	}
	for _, r := range f.refs {
		if r.SourceBookID == ref.SourceBookID && r.ReferencedBookID == ref.ReferencedBookID {
			*ref = r
			return false, nil
		}
	}
	if ref.Source == "" {
		ref.Source = model.SourceUser
	}
	ref.ID = f.id("ref")
	ref.CreatedAt = time.Now().UTC()
	f.refs = append(f.refs, *ref)
	return true, nil
}

func (f *fakeStore) GetReferenceByID(_ context.Context, id string) (*model.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, apperror.NotFound("reference", id)
}

func (f *fakeStore) ReferenceExists(_ context.Context, src, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errReferenceExists != nil {
		return false, f.errReferenceExists
	}
	for _, r := range f.refs {
		if r.SourceBookID == src && r.ReferencedBookID == ref {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DeleteReference(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.refs {
		if r.ID == id {
			f.refs = append(f.refs[:i], f.refs[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("reference", id)
}

func (f *fakeStore) linked(bookID, viewerID string, outgoing bool) []model.LinkedBook {
	var out []model.LinkedBook
	for _, r := range f.refs {
		self, other := r.SourceBookID, r.ReferencedBookID
		if !outgoing {
			self, other = other, self
		}
		if self != bookID {
			continue
		}
		b := f.books[other]
		count := 0
		for k := range f.upvotes {
			if k[1] == r.ID {
				count++
			}
		}
		out = append(out, model.LinkedBook{
			ID:             b.Slug,
			Title:          b.Title,
			Author:         b.Author,
			CoverURL:       b.Cover(),
			ReferenceID:    r.ID,
			Context:        r.Context,
			UpvoteCount:    count,
			UserHasUpvoted: f.upvotes[[2]string{viewerID, r.ID}],
		})
	}
	return out
}

func (f *fakeStore) ListOutgoing(_ context.Context, bookID, viewerID string) ([]model.LinkedBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errListOutgoing != nil {
		return nil, f.errListOutgoing
	}
	return f.linked(bookID, viewerID, true), nil
}

func (f *fakeStore) ListIncoming(_ context.Context, bookID, viewerID string) ([]model.LinkedBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linked(bookID, viewerID, false), nil
}

func (f *fakeStore) ListEdges(_ context.Context, limit int) ([]model.EdgeWithBooks, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errListEdges != nil {
		return nil, f.errListEdges
	}
	var out []model.EdgeWithBooks
	for _, r := range f.refs {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, model.EdgeWithBooks{
			ReferenceID: r.ID,
			Source:      f.books[r.SourceBookID],
			Target:      f.books[r.ReferencedBookID],
		})
	}
	return out, nil
}

func (f *fakeStore) ListReferencesFrom(_ context.Context, src string) ([]model.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reference
	for _, r := range f.refs {
		if r.SourceBookID == src {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- users ---

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return apperror.Conflict("user", u.Email)
		}
	}
	u.ID = f.id("user")
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) addUser(email string, admin bool) model.User {
	u := &model.User{Email: email, DisplayName: "user " + email, IsAdmin: admin}
	_ = f.CreateUser(context.Background(), u)
	return *u
}

func (f *fakeStore) UpsertGitHubUser(ctx context.Context, u *model.User) error {
	if f.errUpsertGitHub != nil {
		return f.errUpsertGitHub
	}
	f.mu.Lock()
	for id, existing := range f.users {
		if existing.GitHubID == u.GitHubID {
			existing.Login = u.Login
			existing.AvatarURL = u.AvatarURL
			if u.Email != "" {
				existing.Email = u.Email
			}
			f.users[id] = existing
			*u = existing
			f.mu.Unlock()
			return nil
		}
	}
	f.mu.Unlock()
	if u.DisplayName == "" {
		u.DisplayName = u.Login
	}
	return f.CreateUser(ctx, u)
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) UpdateProfile(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	f.users[u.ID] = *u
	return nil
}

// --- reading lists ---

func (f *fakeStore) CreateList(_ context.Context, l *model.ReadingList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.lists {
		if existing.Slug == l.Slug {
			return apperror.Conflict("reading list", l.Slug)
		}
	}
	l.ID = f.id("list")
	f.lists[l.ID] = *l
	return nil
}

func (f *fakeStore) GetListByID(_ context.Context, id string) (*model.ReadingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lists[id]
	if !ok {
		return nil, apperror.NotFound("reading list", id)
	}
	return &l, nil
}

func (f *fakeStore) GetListBySlug(_ context.Context, slug string) (*model.ReadingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lists {
		if l.Slug == slug {
			return &l, nil
		}
	}
	return nil, apperror.NotFound("reading list", slug)
}

func (f *fakeStore) ListPublicLists(_ context.Context, _ int) ([]model.ReadingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ReadingList
	for _, l := range f.lists {
		if l.IsPublic {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUserLists(_ context.Context, userID, containsBookID string) ([]model.ReadingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ReadingList
	for _, l := range f.lists {
		if l.UserID != userID {
			continue
		}
		for _, it := range f.items {
			if it.ReadingListID == l.ID && it.BookID == containsBookID {
				l.ContainsBook = true
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeStore) SetListVisibility(_ context.Context, id string, isPublic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lists[id]
	if !ok {
		return apperror.NotFound("reading list", id)
	}
	l.IsPublic = isPublic
	f.lists[id] = l
	return nil
}

func (f *fakeStore) DeleteList(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lists[id]; !ok {
		return apperror.NotFound("reading list", id)
	}
	delete(f.lists, id)
	return nil
}

func (f *fakeStore) AddItem(_ context.Context, item *model.ReadingListItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := 0
	for _, it := range f.items {
		if it.ReadingListID != item.ReadingListID {
			continue
		}
		if it.BookID == item.BookID {
			*item = it
			return false, nil
		}
		if it.Position >= next {
			next = it.Position + 1
		}
	}
	item.ID = f.id("item")
	item.Position = next
	f.items = append(f.items, *item)
	return true, nil
}

func (f *fakeStore) RemoveItem(_ context.Context, listID, bookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ReadingListID == listID && it.BookID == bookID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("reading list item", bookID)
}

func (f *fakeStore) ListItems(_ context.Context, listID string) ([]model.ReadingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ReadingListItem
	for _, it := range f.items {
		if it.ReadingListID == listID {
			b := f.books[it.BookID]
			it.Book = &b
			out = append(out, it)
		}
	}
	return out, nil
}

// --- engagement ---

func (f *fakeStore) upvoteState(userID, refID string) model.UpvoteState {
	st := model.UpvoteState{UserHasUpvoted: f.upvotes[[2]string{userID, refID}]}
	for k := range f.upvotes {
		if k[1] == refID {
			st.Count++
		}
	}
	return st
}

func (f *fakeStore) ToggleUpvote(_ context.Context, userID, refID string) (model.UpvoteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := [2]string{userID, refID}
	if f.upvotes[k] {
		delete(f.upvotes, k)
	} else {
		f.upvotes[k] = true
	}
	return f.upvoteState(userID, refID), nil
}

func (f *fakeStore) GetUpvoteState(_ context.Context, userID, refID string) (model.UpvoteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upvoteState(userID, refID), nil
}

func (f *fakeStore) CreateComment(_ context.Context, c *model.ReferenceComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id("comment")
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeStore) GetComment(_ context.Context, id string) (*model.ReferenceComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.comments {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, apperror.NotFound("comment", id)
}

func (f *fakeStore) ListComments(_ context.Context, refID string) ([]model.ReferenceComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ReferenceComment
	for _, c := range f.comments {
		if c.ReferenceID == refID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteComment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.comments {
		if c.ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("comment", id)
}

// --- feedback ---

func (f *fakeStore) CreateFeedback(_ context.Context, fb *model.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb.ID = f.id("feedback")
	if fb.Status == "" {
		fb.Status = model.FeedbackNew
	}
	f.feedback = append(f.feedback, *fb)
	return nil
}

func (f *fakeStore) GetFeedback(_ context.Context, id string) (*model.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fb := range f.feedback {
		if fb.ID == id {
			return &fb, nil
		}
	}
	return nil, apperror.NotFound("feedback", id)
}

func (f *fakeStore) ListFeedback(_ context.Context, filter model.FeedbackFilter) ([]model.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Feedback
	for _, fb := range f.feedback {
		if filter.UserID != "" && fb.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && fb.Status != filter.Status {
			continue
		}
		if filter.Type != "" && fb.Type != filter.Type {
			continue
		}
		out = append(out, fb)
	}
	return out, nil
}

func (f *fakeStore) UpdateFeedbackStatus(_ context.Context, id string, status model.FeedbackStatus, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, fb := range f.feedback {
		if fb.ID == id {
			f.feedback[i].Status = status
			f.feedback[i].AdminNotes = notes
			return nil
		}
	}
	return apperror.NotFound("feedback", id)
}

// --- stats ---

func (f *fakeStore) Stats(_ context.Context, _ int) (*model.Stats, error) {
	if f.errStats != nil {
		return nil, f.errStats
	}
	if f.stats != nil {
		return f.stats, nil
	}
	return &model.Stats{TotalBooks: len(f.books), TotalReferences: len(f.refs)}, nil
}

// --- remote clients ---

type fakeSuggester struct {
	configured  bool
	suggestions []llm.Suggestion
	err         error
	calls       int
}

func (f *fakeSuggester) Configured() bool { return f.configured }

func (f *fakeSuggester) SuggestReferences(_ context.Context, _, _ string) ([]llm.Suggestion, error) {
	f.calls++
	return f.suggestions, f.err
}

type fakeBooksAPI struct {
	mu sync.Mutex

	mentions    []booksapi.Volume
	mentionsErr error
	search      []booksapi.Volume
	searchErr   error
	volumes     map[string]booksapi.Volume

	searchQueries []string
}

func (f *fakeBooksAPI) SearchVolumes(_ context.Context, query string, _ int) ([]booksapi.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchQueries = append(f.searchQueries, query)
	return f.search, f.searchErr
}

func (f *fakeBooksAPI) SearchByTitleAuthor(ctx context.Context, title, author string, max int) ([]booksapi.Volume, error) {
	vols, err := f.SearchVolumes(ctx, strings.TrimSpace(title+" "+author), max)
	if max > 0 && len(vols) > max {
		vols = vols[:max]
	}
	return vols, err
}

func (f *fakeBooksAPI) SearchMentions(_ context.Context, _, _ string) ([]booksapi.Volume, error) {
	return f.mentions, f.mentionsErr
}

func (f *fakeBooksAPI) GetVolume(_ context.Context, id string) (*booksapi.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.volumes[id]
	if !ok {
		return nil, &booksapi.HTTPError{StatusCode: 404}
	}
	return &v, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newValidator() *validation.Validator {
	return validation.New()
}
