package service

import (
	"context"
	"log/slog"

	"github.com/booklinks/booklinks/internal/model"
	"github.com/booklinks/booklinks/internal/repository"
)

const StatsTopN = 10

type StatsService struct {
	stats  repository.StatsRepository
	logger *slog.Logger
}

func NewStatsService(stats repository.StatsRepository, logger *slog.Logger) *StatsService {
	return &StatsService{stats: stats, logger: logger}
}

// Stats never fails; a read error yields empty statistics.
func (s *StatsService) Stats(ctx context.Context) *model.Stats {
	st, err := s.stats.Stats(ctx, StatsTopN)
	if err != nil {
		s.logger.Error("reading stats", slog.String("error", err.Error()))
		st = &model.Stats{}
	}
	if st.DailyBookCounts == nil {
		st.DailyBookCounts = []model.DailyCount{}
	}
	if st.MostReferenced == nil {
		st.MostReferenced = []model.RankedBook{}
	}
	if st.MostConnected == nil {
		st.MostConnected = []model.RankedBook{}
	}
	return st
}
