package entity

import "time"

// DefaultTagColor 是未指定颜色时的默认标签颜色。
const DefaultTagColor = "#409EFF"

// DbFaultTag 表示故障标签，usage_count 为引用该标签的未删除报告数。
type DbFaultTag struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Name       string    `gorm:"column:name;type:varchar(20);uniqueIndex;not null" json:"name"`
	Color      string    `gorm:"column:color;type:varchar(7);not null;default:#409EFF" json:"color"`
	UsageCount int64     `gorm:"column:usage_count;not null;default:0" json:"usageCount"`
}

// TableName 指定表名。
func (DbFaultTag) TableName() string {
	return "fault_tags"
}

// TagSummary 是报告中内嵌返回的标签信息。
type TagSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagQuery supports listing tags with pagination.
type TagQuery struct {
	BaseParams
	Keyword string `json:"keyword" form:"keyword"`
}

type TagCreateRequest struct {
	Name  string `json:"name" binding:"required,max=20"`
	Color string `json:"color" binding:"omitempty"`
}

type TagUpdateRequest struct {
	Name  string `json:"name" binding:"required,max=20"`
	Color string `json:"color" binding:"required"`
}

// TagUpdates 标签更新字段
type TagUpdates struct {
	Name  *string
	Color *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u TagUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Color != nil {
		updates["color"] = *u.Color
	}
	return updates
}
