package sql

import (
	"context"
	"fmt"
	"strings"

	"repairkb/internal/entity"

	"gorm.io/gorm"
)

// CreateReport inserts a new repair report.
func (r *GormRepository) CreateReport(ctx context.Context, report *entity.DbReport) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	return r.db.WithContext(ctx).Create(report).Error
}

// UpdateReport updates report fields; soft-deleted reports are untouchable.
func (r *GormRepository) UpdateReport(ctx context.Context, id uint, updates entity.ReportUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid report id")
	}
	values := updates.ToMap()
	if len(values) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entity.DbReport{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetReport loads a report by ID, excluding soft-deleted rows.
func (r *GormRepository) GetReport(ctx context.Context, id uint) (*entity.DbReport, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid report id")
	}
	var report entity.DbReport
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// FindReportsByIDs fetches non-deleted reports by ids.
func (r *GormRepository) FindReportsByIDs(ctx context.Context, ids []uint) ([]entity.DbReport, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if len(ids) == 0 {
		return []entity.DbReport{}, nil
	}

	var reports []entity.DbReport
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND is_deleted = ?", ids, false).
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// ListReports returns paginated reports matching the query filters.
func (r *GormRepository) ListReports(ctx context.Context, params *entity.ReportQuery) ([]entity.DbReport, entity.Pagination, error) {
	if r == nil || r.db == nil {
		return nil, entity.Pagination{}, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbReport{}).Where("is_deleted = ?", false)
	if params != nil {
		if category := strings.TrimSpace(params.FaultCategory); category != "" {
			query = query.Where("fault_category = ?", category)
		}
		if reporter := strings.TrimSpace(params.Reporter); reporter != "" {
			query = query.Where("LOWER(reporter) LIKE ?", "%"+strings.ToLower(reporter)+"%")
		}
		if start := strings.TrimSpace(params.StartDate); start != "" {
			query = query.Where("created_at >= ?", start)
		}
		if end := strings.TrimSpace(params.EndDate); end != "" {
			query = query.Where("created_at < ?", end+" 23:59:59.999")
		}
		if len(params.FaultTagIDs) > 0 {
			cond, args := tagListFilter(params.FaultTagIDs)
			query = query.Where(cond, args...)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, entity.Pagination{}, err
	}

	page := 1
	pageSize := 10
	sortBy := ""
	sortOrder := ""
	if params != nil {
		if params.Page > 0 {
			page = params.Page
		}
		if params.PageSize > 0 {
			pageSize = params.PageSize
		}
		sortBy = params.SortBy
		sortOrder = params.SortOrder
	}

	order := buildOrderClause(sortBy, sortOrder, map[string]string{
		"id":              "id",
		"deviceName":      "device_name",
		"faultCategory":   "fault_category",
		"reporter":        "reporter",
		"durationMinutes": "duration_minutes",
		"createdAt":       "created_at",
	}, "created_at")

	offset := (page - 1) * pageSize
	var reports []entity.DbReport
	if err := query.Order(order).Offset(offset).Limit(pageSize).Find(&reports).Error; err != nil {
		return nil, entity.Pagination{}, err
	}

	return reports, r.calculatePagination(total, page, pageSize), nil
}

// SoftDeleteReport flips is_deleted without removing the row.
func (r *GormRepository) SoftDeleteReport(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid report id")
	}

	result := r.db.WithContext(ctx).Model(&entity.DbReport{}).
		Where("id = ? AND is_deleted = ?", id, false).
		UpdateColumn("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// tagMembershipCondition 生成对 JSON 编码标签列表的成员匹配条件。
// 序列化格式固定为无空格的 [1,2,3]，因此四种 LIKE 模式即可覆盖
// 单元素、开头、结尾、中间四种位置，无需依赖方言特有的 JSON 函数。
func tagMembershipCondition(tagID uint) (string, []interface{}) {
	cond := "(fault_tags = ? OR fault_tags LIKE ? OR fault_tags LIKE ? OR fault_tags LIKE ?)"
	args := []interface{}{
		fmt.Sprintf("[%d]", tagID),
		fmt.Sprintf("[%d,%%", tagID),
		fmt.Sprintf("%%,%d]", tagID),
		fmt.Sprintf("%%,%d,%%", tagID),
	}
	return cond, args
}

// tagListFilter 匹配包含任意一个给定标签的报告。
func tagListFilter(tagIDs []uint) (string, []interface{}) {
	conds := make([]string, 0, len(tagIDs))
	args := make([]interface{}, 0, len(tagIDs)*4)
	for _, tagID := range tagIDs {
		cond, condArgs := tagMembershipCondition(tagID)
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}
