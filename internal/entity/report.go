package entity

import "time"

// DbReport 表示维修报告。标签以 JSON 编码的ID列表内嵌存储，删除为软删除。
type DbReport struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Reporter        string      `gorm:"column:reporter;type:varchar(64);not null" json:"reporter"`
	DeviceName      string      `gorm:"column:device_name;type:varchar(255);not null" json:"deviceName"`
	FaultCategory   string      `gorm:"column:fault_category;type:varchar(64);index;not null" json:"faultCategory"`
	FaultTagIDs     UintArray   `gorm:"column:fault_tags;type:json" json:"faultTagIds"`
	DurationMinutes *int        `gorm:"column:duration_minutes" json:"durationMinutes"`
	Description     string      `gorm:"column:description;type:text" json:"description"`
	Attachments     StringArray `gorm:"column:attachments;type:json" json:"attachments"`
	IsDeleted       bool        `gorm:"column:is_deleted;not null;default:false;index" json:"-"`

	AuthorID uint   `gorm:"column:author_id;index" json:"authorId"`
	Author   *DbUser `gorm:"foreignKey:AuthorID" json:"-"`
}

// TableName 指定表名。
func (DbReport) TableName() string {
	return "reports"
}

// ReportQuery supports listing reports with filters and pagination.
type ReportQuery struct {
	BaseParams
	FaultCategory string `json:"faultCategory" form:"faultCategory"`
	Reporter      string `json:"reporter" form:"reporter"`
	StartDate     string `json:"startDate" form:"startDate"`
	EndDate       string `json:"endDate" form:"endDate"`

	// FaultTagIDs 由 handler 从逗号分隔参数解析。
	FaultTagIDs []uint `json:"-" form:"-"`
}

type ReportCreateRequest struct {
	DeviceName      string   `json:"deviceName" binding:"required"`
	FaultCategory   string   `json:"faultCategory" binding:"required"`
	FaultTagIDs     []uint   `json:"faultTagIds"`
	DurationMinutes *int     `json:"durationMinutes" binding:"omitempty,min=0"`
	Description     string   `json:"description" binding:"required"`
	Attachments     []string `json:"attachments"`
}

type ReportUpdateRequest struct {
	DeviceName      string   `json:"deviceName" binding:"required"`
	FaultCategory   string   `json:"faultCategory" binding:"required"`
	FaultTagIDs     []uint   `json:"faultTagIds"`
	DurationMinutes *int     `json:"durationMinutes" binding:"omitempty,min=0"`
	Description     string   `json:"description" binding:"required"`
	Attachments     []string `json:"attachments"`
}

// ReportUpdates 报告更新字段
type ReportUpdates struct {
	DeviceName      *string
	FaultCategory   *string
	FaultTagIDs     *UintArray
	DurationMinutes *int
	Description     *string
	Attachments     *StringArray
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u ReportUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.DeviceName != nil {
		updates["device_name"] = *u.DeviceName
	}
	if u.FaultCategory != nil {
		updates["fault_category"] = *u.FaultCategory
	}
	if u.FaultTagIDs != nil {
		updates["fault_tags"] = *u.FaultTagIDs
	}
	if u.DurationMinutes != nil {
		updates["duration_minutes"] = *u.DurationMinutes
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Attachments != nil {
		updates["attachments"] = *u.Attachments
	}
	return updates
}

// ReportListItem 是报告列表行，内嵌已解析的标签信息。
type ReportListItem struct {
	ID              uint         `json:"id"`
	DeviceName      string       `json:"deviceName"`
	FaultCategory   string       `json:"faultCategory"`
	FaultTagIDs     []uint       `json:"faultTagIds"`
	Tags            []TagSummary `json:"tags"`
	DurationMinutes *int         `json:"durationMinutes"`
	Reporter        string       `json:"reporter"`
	AuthorID        uint         `json:"authorId"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// ReportDetail 是报告详情，附带标签与AI分析历史。
type ReportDetail struct {
	DbReport
	Tags       []TagSummary      `json:"tags"`
	AiAnalyses []AnalysisSummary `json:"aiAnalyses"`
}
