package model

import (
	"context"
	"time"

	"repairkb/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.DbUser, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, entity.Pagination, error)
	DeleteUser(ctx context.Context, id uint) error
	CountUsers(ctx context.Context) (int64, error)

	// 故障标签
	CreateTag(ctx context.Context, tag *entity.DbFaultTag) error
	UpdateTag(ctx context.Context, id uint, updates entity.TagUpdates) error
	DeleteTag(ctx context.Context, id uint) error
	GetTag(ctx context.Context, id uint) (*entity.DbFaultTag, error)
	GetTagByName(ctx context.Context, name string) (*entity.DbFaultTag, error)
	ListTags(ctx context.Context, params *entity.TagQuery) ([]entity.DbFaultTag, entity.Pagination, error)
	ListPopularTags(ctx context.Context, limit int) ([]entity.DbFaultTag, error)
	FindTagsByIDs(ctx context.Context, ids []uint) ([]entity.DbFaultTag, error)
	CountTagsByIDs(ctx context.Context, ids []uint) (int64, error)
	AdjustTagUsage(ctx context.Context, ids []uint, delta int) error

	// 维修报告
	CreateReport(ctx context.Context, report *entity.DbReport) error
	UpdateReport(ctx context.Context, id uint, updates entity.ReportUpdates) error
	GetReport(ctx context.Context, id uint) (*entity.DbReport, error)
	FindReportsByIDs(ctx context.Context, ids []uint) ([]entity.DbReport, error)
	ListReports(ctx context.Context, params *entity.ReportQuery) ([]entity.DbReport, entity.Pagination, error)
	SoftDeleteReport(ctx context.Context, id uint) error

	// AI分析与使用记录
	CreateAnalysis(ctx context.Context, analysis *entity.DbAiAnalysis) error
	GetAnalysis(ctx context.Context, id uint) (*entity.DbAiAnalysis, error)
	ListAnalyses(ctx context.Context, params *entity.AnalysisQuery) ([]entity.DbAiAnalysis, entity.Pagination, error)
	ListAnalysesByReport(ctx context.Context, reportID uint) ([]entity.DbAiAnalysis, error)
	GetUsageLog(ctx context.Context, userID uint, usageDate string) (*entity.DbAiUsageLog, error)
	CreateUsageLog(ctx context.Context, log *entity.DbAiUsageLog) error
	IncrementUsage(ctx context.Context, id uint, at time.Time) error
	ListUsageLogs(ctx context.Context, userID uint, params *entity.UsageQuery) ([]entity.DbAiUsageLog, error)
	SumUsage(ctx context.Context, userID uint, params *entity.UsageQuery) (int64, error)
}
