package entity

import "time"

const (
	AnalysisTypeSummary   = "summary"
	AnalysisTypeDiagnosis = "diagnosis"
	AnalysisTypeSolution  = "solution"
)

// IsValidAnalysisType 校验分析类型取值。
func IsValidAnalysisType(t string) bool {
	switch t {
	case AnalysisTypeSummary, AnalysisTypeDiagnosis, AnalysisTypeSolution:
		return true
	default:
		return false
	}
}

// DbAiAnalysis 表示一次AI分析的请求与响应记录。
type DbAiAnalysis struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ReportID     uint      `gorm:"column:report_id;index;not null" json:"reportId"`
	Report       *DbReport `gorm:"foreignKey:ReportID" json:"-"`
	AnalysisType string    `gorm:"column:analysis_type;type:varchar(20);index;not null" json:"analysisType"`
	Prompt       string    `gorm:"column:prompt;type:text;not null" json:"prompt"`
	Response     string    `gorm:"column:response;type:text;not null" json:"response"`
	TokensUsed   int       `gorm:"column:tokens_used" json:"tokensUsed"`
}

// TableName 指定表名。
func (DbAiAnalysis) TableName() string {
	return "ai_analyses"
}

// DbAiUsageLog 记录用户某个自然日的AI请求次数，(user_id, usage_date) 唯一。
type DbAiUsageLog struct {
	ID uint `gorm:"primarykey" json:"id"`

	UserID        uint      `gorm:"column:user_id;not null;uniqueIndex:idx_user_usage_date" json:"userId"`
	User          *DbUser   `gorm:"foreignKey:UserID" json:"-"`
	UsageDate     string    `gorm:"column:usage_date;type:varchar(10);not null;uniqueIndex:idx_user_usage_date" json:"usageDate"`
	RequestCount  int       `gorm:"column:request_count;not null;default:0" json:"requestCount"`
	LastRequestAt time.Time `gorm:"column:last_request_at" json:"lastRequestAt"`
}

// TableName 指定表名。
func (DbAiUsageLog) TableName() string {
	return "ai_usage_logs"
}

type DiagnoseRequest struct {
	ReportID     uint   `json:"reportId" binding:"required,min=1"`
	AnalysisType string `json:"analysisType"`
	CustomPrompt string `json:"customPrompt"`
}

// DiagnoseResponse 返回新建分析记录的摘要与响应文本。
type DiagnoseResponse struct {
	ID           uint      `json:"id"`
	AnalysisType string    `json:"analysisType"`
	Response     string    `json:"response"`
	TokensUsed   int       `json:"tokensUsed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AnalysisQuery supports listing AI analyses with pagination.
type AnalysisQuery struct {
	BaseParams
	ReportID     uint   `json:"reportId" form:"reportId"`
	AnalysisType string `json:"analysisType" form:"analysisType"`
}

// AnalysisSummary 是列表中返回的分析记录摘要。
type AnalysisSummary struct {
	ID           uint      `json:"id"`
	ReportID     uint      `json:"reportId"`
	AnalysisType string    `json:"analysisType"`
	TokensUsed   int       `json:"tokensUsed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AnalysisListItem 附带关联报告的摘要信息。
type AnalysisListItem struct {
	AnalysisSummary
	Report *AnalysisReportRef `json:"report"`
}

// AnalysisReportRef 是分析记录关联的报告引用。
type AnalysisReportRef struct {
	ID            uint   `json:"id"`
	DeviceName    string `json:"deviceName"`
	FaultCategory string `json:"faultCategory"`
}

// UsageQuery 按日期区间筛选使用统计。
type UsageQuery struct {
	StartDate string `json:"startDate" form:"startDate"`
	EndDate   string `json:"endDate" form:"endDate"`
}

// UsageItem 是单日使用统计。
type UsageItem struct {
	UsageDate     string    `json:"usageDate"`
	RequestCount  int       `json:"requestCount"`
	LastRequestAt time.Time `json:"lastRequestAt"`
}

// UsageResponse 汇总用户的AI使用情况。
type UsageResponse struct {
	Usage         []UsageItem `json:"usage"`
	TotalRequests int64       `json:"totalRequests"`
}
