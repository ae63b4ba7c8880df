package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repairkb/internal/entity"

	"gorm.io/gorm"
)

// CreateAnalysis stores an AI analysis record.
func (r *GormRepository) CreateAnalysis(ctx context.Context, analysis *entity.DbAiAnalysis) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if analysis == nil {
		return fmt.Errorf("analysis is nil")
	}
	return r.db.WithContext(ctx).Create(analysis).Error
}

// GetAnalysis loads an analysis record by ID.
func (r *GormRepository) GetAnalysis(ctx context.Context, id uint) (*entity.DbAiAnalysis, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid analysis id")
	}
	var analysis entity.DbAiAnalysis
	if err := r.db.WithContext(ctx).First(&analysis, id).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ListAnalyses returns paginated analysis records with filters.
func (r *GormRepository) ListAnalyses(ctx context.Context, params *entity.AnalysisQuery) ([]entity.DbAiAnalysis, entity.Pagination, error) {
	if r == nil || r.db == nil {
		return nil, entity.Pagination{}, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbAiAnalysis{})
	if params != nil {
		if params.ReportID > 0 {
			query = query.Where("report_id = ?", params.ReportID)
		}
		if t := strings.TrimSpace(params.AnalysisType); t != "" {
			query = query.Where("analysis_type = ?", t)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, entity.Pagination{}, err
	}

	page := 1
	pageSize := 10
	if params != nil {
		if params.Page > 0 {
			page = params.Page
		}
		if params.PageSize > 0 {
			pageSize = params.PageSize
		}
	}

	offset := (page - 1) * pageSize
	var analyses []entity.DbAiAnalysis
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&analyses).Error; err != nil {
		return nil, entity.Pagination{}, err
	}

	return analyses, r.calculatePagination(total, page, pageSize), nil
}

// ListAnalysesByReport returns every analysis of one report, newest first.
func (r *GormRepository) ListAnalysesByReport(ctx context.Context, reportID uint) ([]entity.DbAiAnalysis, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if reportID == 0 {
		return nil, fmt.Errorf("invalid report id")
	}
	var analyses []entity.DbAiAnalysis
	if err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at DESC").
		Find(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

// GetUsageLog 按 (用户, 日期) 读取计数行，不存在时返回 gorm.ErrRecordNotFound。
func (r *GormRepository) GetUsageLog(ctx context.Context, userID uint, usageDate string) (*entity.DbAiUsageLog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 || strings.TrimSpace(usageDate) == "" {
		return nil, fmt.Errorf("invalid usage log key")
	}
	var usage entity.DbAiUsageLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND usage_date = ?", userID, usageDate).
		First(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// CreateUsageLog inserts the first counter row of a user-day.
func (r *GormRepository) CreateUsageLog(ctx context.Context, usage *entity.DbAiUsageLog) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if usage == nil {
		return fmt.Errorf("usage log is nil")
	}
	return r.db.WithContext(ctx).Create(usage).Error
}

// IncrementUsage 以相对更新递增当日计数，避免读改写竞态。
func (r *GormRepository) IncrementUsage(ctx context.Context, id uint, at time.Time) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid usage log id")
	}

	result := r.db.WithContext(ctx).Model(&entity.DbAiUsageLog{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + 1"),
			"last_request_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListUsageLogs returns a user's daily counters within an optional date range.
func (r *GormRepository) ListUsageLogs(ctx context.Context, userID uint, params *entity.UsageQuery) ([]entity.DbAiUsageLog, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if params != nil {
		if start := strings.TrimSpace(params.StartDate); start != "" {
			query = query.Where("usage_date >= ?", start)
		}
		if end := strings.TrimSpace(params.EndDate); end != "" {
			query = query.Where("usage_date <= ?", end)
		}
	}

	var logs []entity.DbAiUsageLog
	if err := query.Order("usage_date DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// SumUsage totals a user's request count within an optional date range.
func (r *GormRepository) SumUsage(ctx context.Context, userID uint, params *entity.UsageQuery) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid user id")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbAiUsageLog{}).Where("user_id = ?", userID)
	if params != nil {
		if start := strings.TrimSpace(params.StartDate); start != "" {
			query = query.Where("usage_date >= ?", start)
		}
		if end := strings.TrimSpace(params.EndDate); end != "" {
			query = query.Where("usage_date <= ?", end)
		}
	}

	var total int64
	if err := query.Select("COALESCE(SUM(request_count), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
