package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"repairkb/internal/entity"
	"repairkb/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Diagnose 对指定报告发起一次AI分析。
func (h *HTTPHandler) Diagnose(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	var req entity.DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "报告ID必须为正整数")
		return
	}

	// AI调用耗时较长，超时放宽到提供商超时之上
	ctx, cancel := context.WithTimeout(c.Request.Context(), 120*time.Second)
	defer cancel()

	result, err := h.aiService.Diagnose(ctx, requestUser.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReportNotFound):
			respondError(c, http.StatusNotFound, "报告不存在")
		case errors.Is(err, service.ErrInvalidAnalysisType):
			respondError(c, http.StatusBadRequest, "分析类型不合法")
		case errors.Is(err, service.ErrQuotaExceeded):
			respondError(c, http.StatusTooManyRequests,
				fmt.Sprintf("今日AI使用次数已达上限（%d次）", h.aiService.DailyLimit()))
		default:
			logrus.WithError(err).Error("ai diagnose failed")
			respondError(c, http.StatusInternalServerError, "AI分析失败")
		}
		return
	}

	respondSuccess(c, "AI分析完成", result)
}

// AiUsage 获取当前用户的AI使用统计。
func (h *HTTPHandler) AiUsage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	var params entity.UsageQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, "查询参数不合法")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	result, err := h.aiService.Usage(ctx, requestUser.ID, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to load ai usage")
		respondError(c, http.StatusInternalServerError, "获取AI使用统计失败")
		return
	}

	respondSuccess(c, "获取AI使用统计成功", result)
}

// ListAnalyses 获取AI分析记录列表，附带关联报告摘要。
func (h *HTTPHandler) ListAnalyses(c *gin.Context) {
	var params entity.AnalysisQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, "查询参数不合法")
		return
	}
	if params.AnalysisType != "" && !entity.IsValidAnalysisType(params.AnalysisType) {
		respondError(c, http.StatusBadRequest, "分析类型不合法")
		return
	}
	params.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	analyses, pagination, err := h.repo.ListAnalyses(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list analyses")
		respondError(c, http.StatusInternalServerError, "获取AI分析记录列表失败")
		return
	}

	// 一次查询批量加载关联报告摘要，已删除的报告置空
	refByID := make(map[uint]*entity.AnalysisReportRef)
	reportIDs := make([]uint, 0, len(analyses))
	for _, analysis := range analyses {
		if _, ok := refByID[analysis.ReportID]; ok {
			continue
		}
		refByID[analysis.ReportID] = nil
		reportIDs = append(reportIDs, analysis.ReportID)
	}
	if len(reportIDs) > 0 {
		reports, err := h.repo.FindReportsByIDs(ctx, reportIDs)
		if err != nil {
			logrus.WithError(err).Warn("failed to load reports for analyses")
		}
		for _, report := range reports {
			refByID[report.ID] = &entity.AnalysisReportRef{
				ID:            report.ID,
				DeviceName:    report.DeviceName,
				FaultCategory: report.FaultCategory,
			}
		}
	}

	list := make([]entity.AnalysisListItem, 0, len(analyses))
	for _, analysis := range analyses {
		list = append(list, entity.AnalysisListItem{
			AnalysisSummary: entity.AnalysisSummary{
				ID:           analysis.ID,
				ReportID:     analysis.ReportID,
				AnalysisType: analysis.AnalysisType,
				TokensUsed:   analysis.TokensUsed,
				CreatedAt:    analysis.CreatedAt,
			},
			Report: refByID[analysis.ReportID],
		})
	}

	respondSuccess(c, "获取AI分析记录列表成功", entity.PageData{List: list, Pagination: pagination})
}

// GetAnalysis 获取AI分析记录详情。
func (h *HTTPHandler) GetAnalysis(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	analysis, err := h.repo.GetAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "分析记录不存在")
			return
		}
		logrus.WithError(err).Error("failed to load analysis")
		respondError(c, http.StatusInternalServerError, "获取AI分析记录详情失败")
		return
	}

	var ref *entity.AnalysisReportRef
	if report, err := h.repo.GetReport(ctx, analysis.ReportID); err == nil {
		ref = &entity.AnalysisReportRef{
			ID:            report.ID,
			DeviceName:    report.DeviceName,
			FaultCategory: report.FaultCategory,
		}
	}

	respondSuccess(c, "获取AI分析记录详情成功", gin.H{
		"id":           analysis.ID,
		"reportId":     analysis.ReportID,
		"analysisType": analysis.AnalysisType,
		"prompt":       analysis.Prompt,
		"response":     analysis.Response,
		"tokensUsed":   analysis.TokensUsed,
		"createdAt":    analysis.CreatedAt,
		"report":       ref,
	})
}
