package api

import (
	"context"

	"repairkb/internal/entity"
	"repairkb/internal/model"

	"gorm.io/gorm"
)

// stubRepo 只实现被测路径用到的方法，其余方法调用会 panic。
type stubRepo struct {
	model.Repository
	users    map[string]*entity.DbUser
	reports  map[uint]*entity.DbReport
	analyses []entity.DbAiAnalysis

	findReportsCalls int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:   make(map[string]*entity.DbUser),
		reports: make(map[uint]*entity.DbReport),
	}
}

func (s *stubRepo) GetUserByUsername(ctx context.Context, username string) (*entity.DbUser, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubRepo) ListAnalyses(ctx context.Context, params *entity.AnalysisQuery) ([]entity.DbAiAnalysis, entity.Pagination, error) {
	return s.analyses, entity.NewPagination(1, 10, int64(len(s.analyses))), nil
}

func (s *stubRepo) FindReportsByIDs(ctx context.Context, ids []uint) ([]entity.DbReport, error) {
	s.findReportsCalls++
	reports := make([]entity.DbReport, 0, len(ids))
	for _, id := range ids {
		if report, ok := s.reports[id]; ok && !report.IsDeleted {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}
