package service

import (
	"context"
	"errors"
	"testing"

	"github.com/booklinks/booklinks/internal/model"
)

func TestStats(t *testing.T) {
	store := newFakeStore()
	store.stats = &model.Stats{
		TotalBooks:     3,
		MostReferenced: []model.RankedBook{{Slug: "a", Count: 2}},
	}
	st := NewStatsService(store, discardLogger()).Stats(context.Background())

	if st.TotalBooks != 3 || len(st.MostReferenced) != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.DailyBookCounts == nil || st.MostConnected == nil {
		t.Error("empty sections should be [] not null")
	}
}

func TestStats_ReadFailureIsEmpty(t *testing.T) {
	store := newFakeStore()
	store.errStats = errors.New("db gone")

	st := NewStatsService(store, discardLogger()).Stats(context.Background())
	if st == nil || st.TotalBooks != 0 || st.MostReferenced == nil {
		t.Errorf("stats = %+v", st)
	}
}
