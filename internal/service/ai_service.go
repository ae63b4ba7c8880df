package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"repairkb/internal/ai"
	"repairkb/internal/entity"
	"repairkb/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AiService AI分析服务，负责配额控制与分析记录落库
type AiService struct {
	repo       model.Repository
	chat       ai.ChatService
	dailyLimit int
	location   *time.Location

	// now 可替换，便于测试固定时间
	now func() time.Time
}

// NewAiService 创建AI分析服务实例
func NewAiService(repo model.Repository, chat ai.ChatService, dailyLimit int, location *time.Location) *AiService {
	if dailyLimit <= 0 {
		dailyLimit = 10
	}
	if location == nil {
		location = time.Local
	}
	return &AiService{
		repo:       repo,
		chat:       chat,
		dailyLimit: dailyLimit,
		location:   location,
		now:        time.Now,
	}
}

// DailyLimit 返回每日请求上限。
func (s *AiService) DailyLimit() int {
	return s.dailyLimit
}

// Diagnose 执行一次AI分析：先校验报告与配额，调用成功后
// 落库分析记录并递增当日计数。提供商调用失败不产生任何写入。
func (s *AiService) Diagnose(ctx context.Context, userID uint, req entity.DiagnoseRequest) (*entity.DiagnoseResponse, error) {
	analysisType := strings.TrimSpace(req.AnalysisType)
	if analysisType == "" {
		analysisType = entity.AnalysisTypeDiagnosis
	}
	if !entity.IsValidAnalysisType(analysisType) {
		return nil, ErrInvalidAnalysisType
	}

	report, err := s.repo.GetReport(ctx, req.ReportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	today := s.usageDate()
	usage, err := s.repo.GetUsageLog(ctx, userID, today)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if usage != nil && usage.RequestCount >= s.dailyLimit {
		return nil, ErrQuotaExceeded
	}

	prompt := buildPrompt(analysisType, req.CustomPrompt, report)

	result, err := s.chat.Complete(ctx, prompt)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"report_id":     req.ReportID,
			"analysis_type": analysisType,
			"provider":      s.chat.ProviderID(),
		}).Error("ai completion failed")
		return nil, err
	}

	analysis := &entity.DbAiAnalysis{
		ReportID:     req.ReportID,
		AnalysisType: analysisType,
		Prompt:       prompt,
		Response:     result.Content,
		TokensUsed:   result.TokensUsed,
	}
	if err := s.repo.CreateAnalysis(ctx, analysis); err != nil {
		return nil, err
	}

	s.recordUsage(ctx, userID, today, usage)

	return &entity.DiagnoseResponse{
		ID:           analysis.ID,
		AnalysisType: analysis.AnalysisType,
		Response:     analysis.Response,
		TokensUsed:   analysis.TokensUsed,
		CreatedAt:    analysis.CreatedAt,
	}, nil
}

// Usage 返回用户在可选日期区间内的逐日统计与总次数。
func (s *AiService) Usage(ctx context.Context, userID uint, params *entity.UsageQuery) (*entity.UsageResponse, error) {
	logs, err := s.repo.ListUsageLogs(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.SumUsage(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	items := make([]entity.UsageItem, 0, len(logs))
	for _, log := range logs {
		items = append(items, entity.UsageItem{
			UsageDate:     log.UsageDate,
			RequestCount:  log.RequestCount,
			LastRequestAt: log.LastRequestAt,
		})
	}

	return &entity.UsageResponse{Usage: items, TotalRequests: total}, nil
}

// usageDate 返回配置时区下的当前自然日。
func (s *AiService) usageDate() string {
	return s.now().In(s.location).Format("2006-01-02")
}

// recordUsage 递增当日计数。此时分析结果已落库，
// 计数失败只记日志，不向调用方返回错误。
func (s *AiService) recordUsage(ctx context.Context, userID uint, today string, usage *entity.DbAiUsageLog) {
	now := s.now().In(s.location)

	if usage != nil {
		if err := s.repo.IncrementUsage(ctx, usage.ID, now); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("failed to increment ai usage counter")
		}
		return
	}

	fresh := &entity.DbAiUsageLog{
		UserID:        userID,
		UsageDate:     today,
		RequestCount:  1,
		LastRequestAt: now,
	}
	if err := s.repo.CreateUsageLog(ctx, fresh); err != nil {
		// 并发首次请求会撞唯一索引，退回到递增路径
		existing, getErr := s.repo.GetUsageLog(ctx, userID, today)
		if getErr != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("failed to create ai usage counter")
			return
		}
		if incErr := s.repo.IncrementUsage(ctx, existing.ID, now); incErr != nil {
			logrus.WithError(incErr).WithField("user_id", userID).Warn("failed to increment ai usage counter")
		}
	}
}

// buildPrompt 生成提示词，自定义提示词优先于内置模板。
func buildPrompt(analysisType, customPrompt string, report *entity.DbReport) string {
	if trimmed := strings.TrimSpace(customPrompt); trimmed != "" {
		return trimmed
	}

	switch analysisType {
	case entity.AnalysisTypeSummary:
		return fmt.Sprintf(`请为以下设备维修报告生成一个简洁的摘要：
设备名称：%s
故障类别：%s
维修描述：%s
请提供100字以内的摘要，突出关键信息。`, report.DeviceName, report.FaultCategory, report.Description)
	case entity.AnalysisTypeSolution:
		return fmt.Sprintf(`请为以下设备维修报告提供解决方案建议：
设备名称：%s
故障类别：%s
维修描述：%s
请提供详细的解决方案，包括步骤和注意事项。`, report.DeviceName, report.FaultCategory, report.Description)
	default:
		return fmt.Sprintf(`请分析以下设备维修报告，提供可能的故障原因分析：
设备名称：%s
故障类别：%s
维修描述：%s
请提供详细的故障原因分析，包括可能的原因和排查思路。`, report.DeviceName, report.FaultCategory, report.Description)
	}
}
