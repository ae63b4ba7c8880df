package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"repairkb/internal/entity"
	"repairkb/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ListReports 获取报告列表，支持类别、上报人、日期区间与标签筛选。
func (h *HTTPHandler) ListReports(c *gin.Context) {
	var params entity.ReportQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, "查询参数不合法")
		return
	}
	params.Normalize()
	params.FaultTagIDs = parseTagIDsParam(c.Query("faultTagIds"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	items, pagination, err := h.reportService.ListReports(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list reports")
		respondError(c, http.StatusInternalServerError, "获取报告列表失败")
		return
	}

	respondSuccess(c, "获取报告列表成功", entity.PageData{List: items, Pagination: pagination})
}

// GetReport 获取报告详情，附带标签与AI分析历史。
func (h *HTTPHandler) GetReport(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	detail, err := h.reportService.GetReportDetail(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			respondError(c, http.StatusNotFound, "报告不存在")
			return
		}
		logrus.WithError(err).Error("failed to load report detail")
		respondError(c, http.StatusInternalServerError, "获取报告详情失败")
		return
	}

	respondSuccess(c, "获取报告详情成功", detail)
}

// CreateReport 创建报告，上报人取当前用户。
func (h *HTTPHandler) CreateReport(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	var req entity.ReportCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "报告参数不合法")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	report, err := h.reportService.CreateReport(ctx, requestUser.ID, requestUser.Username, req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownTag) {
			respondError(c, http.StatusBadRequest, "包含不存在的标签")
			return
		}
		logrus.WithError(err).Error("failed to create report")
		respondError(c, http.StatusInternalServerError, "创建报告失败")
		return
	}

	respondSuccess(c, "创建报告成功", report)
}

// UpdateReport 更新报告并同步标签使用计数。
func (h *HTTPHandler) UpdateReport(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	var req entity.ReportUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "报告参数不合法")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	report, err := h.reportService.UpdateReport(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReportNotFound):
			respondError(c, http.StatusNotFound, "报告不存在")
		case errors.Is(err, service.ErrUnknownTag):
			respondError(c, http.StatusBadRequest, "包含不存在的标签")
		default:
			logrus.WithError(err).Error("failed to update report")
			respondError(c, http.StatusInternalServerError, "更新报告失败")
		}
		return
	}

	respondSuccess(c, "更新报告成功", report)
}

// DeleteReport 软删除报告。
func (h *HTTPHandler) DeleteReport(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.reportService.DeleteReport(ctx, id); err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			respondError(c, http.StatusNotFound, "报告不存在")
			return
		}
		logrus.WithError(err).Error("failed to delete report")
		respondError(c, http.StatusInternalServerError, "删除报告失败")
		return
	}

	respondSuccess(c, "删除报告成功", nil)
}

// parseTagIDsParam 解析逗号分隔的标签ID参数，非法片段忽略。
func parseTagIDsParam(raw string) []uint {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	var ids []uint
	for _, part := range strings.Split(trimmed, ",") {
		value, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || value == 0 {
			continue
		}
		ids = append(ids, uint(value))
	}
	return ids
}
