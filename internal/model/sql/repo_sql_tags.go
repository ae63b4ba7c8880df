package sql

import (
	"context"
	"fmt"
	"strings"

	"repairkb/internal/entity"

	"gorm.io/gorm"
)

// CreateTag inserts a new fault tag.
func (r *GormRepository) CreateTag(ctx context.Context, tag *entity.DbFaultTag) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if tag == nil {
		return fmt.Errorf("tag is nil")
	}
	return r.db.WithContext(ctx).Create(tag).Error
}

// UpdateTag updates tag fields.
func (r *GormRepository) UpdateTag(ctx context.Context, id uint, updates entity.TagUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid tag id")
	}
	values := updates.ToMap()
	if len(values) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entity.DbFaultTag{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteTag removes a tag row.
func (r *GormRepository) DeleteTag(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid tag id")
	}

	result := r.db.WithContext(ctx).Delete(&entity.DbFaultTag{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetTag loads a tag by ID.
func (r *GormRepository) GetTag(ctx context.Context, id uint) (*entity.DbFaultTag, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid tag id")
	}
	var tag entity.DbFaultTag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetTagByName loads a tag by its unique name.
func (r *GormRepository) GetTagByName(ctx context.Context, name string) (*entity.DbFaultTag, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("tag name is empty")
	}
	var tag entity.DbFaultTag
	if err := r.db.WithContext(ctx).Where("name = ?", trimmed).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns paginated tags.
func (r *GormRepository) ListTags(ctx context.Context, params *entity.TagQuery) ([]entity.DbFaultTag, entity.Pagination, error) {
	if r == nil || r.db == nil {
		return nil, entity.Pagination{}, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbFaultTag{})
	if params != nil {
		if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
			kw := "%" + strings.ToLower(keyword) + "%"
			query = query.Where("LOWER(name) LIKE ?", kw)
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
		"id":         "id",
		"name":       "name",
		"usageCount": "usage_count",
		"createdAt":  "created_at",
	}, "created_at")

	offset := (page - 1) * pageSize
	var tags []entity.DbFaultTag
	if err := query.Order(order).Offset(offset).Limit(pageSize).Find(&tags).Error; err != nil {
		return nil, entity.Pagination{}, err
	}

	return tags, r.calculatePagination(total, page, pageSize), nil
}

// ListPopularTags returns the most referenced tags.
func (r *GormRepository) ListPopularTags(ctx context.Context, limit int) ([]entity.DbFaultTag, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if limit <= 0 {
		limit = 10
	}
	var tags []entity.DbFaultTag
	if err := r.db.WithContext(ctx).Order("usage_count DESC").Limit(limit).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// FindTagsByIDs fetches tags by ids.
func (r *GormRepository) FindTagsByIDs(ctx context.Context, ids []uint) ([]entity.DbFaultTag, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if len(ids) == 0 {
		return []entity.DbFaultTag{}, nil
	}

	var tags []entity.DbFaultTag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// CountTagsByIDs counts how many of the given ids exist.
func (r *GormRepository) CountTagsByIDs(ctx context.Context, ids []uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.DbFaultTag{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AdjustTagUsage 以单条相对更新语句调整使用计数。
// 递减时用 CASE 表达式钳在 0，三种方言下行为一致。
func (r *GormRepository) AdjustTagUsage(ctx context.Context, ids []uint, delta int) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if len(ids) == 0 || delta == 0 {
		return nil
	}

	query := r.db.WithContext(ctx).Model(&entity.DbFaultTag{}).Where("id IN ?", ids)
	if delta > 0 {
		return query.UpdateColumn("usage_count", gorm.Expr("usage_count + ?", delta)).Error
	}
	return query.UpdateColumn("usage_count",
		gorm.Expr("CASE WHEN usage_count + ? > 0 THEN usage_count + ? ELSE 0 END", delta, delta)).Error
}
