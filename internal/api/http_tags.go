package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"repairkb/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var tagColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ListTags 获取标签列表，支持关键字搜索和排序。
func (h *HTTPHandler) ListTags(c *gin.Context) {
	var params entity.TagQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, "查询参数不合法")
		return
	}
	params.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	tags, pagination, err := h.repo.ListTags(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list tags")
		respondError(c, http.StatusInternalServerError, "获取标签列表失败")
		return
	}

	respondSuccess(c, "获取标签列表成功", entity.PageData{List: tags, Pagination: pagination})
}

// ListPopularTags 按使用次数返回热门标签。
func (h *HTTPHandler) ListPopularTags(c *gin.Context) {
	limit := 10
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 50 {
			respondError(c, http.StatusBadRequest, "数量必须在1到50之间")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	tags, err := h.repo.ListPopularTags(ctx, limit)
	if err != nil {
		logrus.WithError(err).Error("failed to list popular tags")
		respondError(c, http.StatusInternalServerError, "获取热门标签失败")
		return
	}

	respondSuccess(c, "获取热门标签成功", tags)
}

// CreateTag 创建标签，名称唯一，颜色默认 #409EFF。
func (h *HTTPHandler) CreateTag(c *gin.Context) {
	var req entity.TagCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "标签参数不合法")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(c, http.StatusBadRequest, "标签名称不能为空")
		return
	}

	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = entity.DefaultTagColor
	}
	if !tagColorPattern.MatchString(color) {
		respondError(c, http.StatusBadRequest, "颜色格式不正确，应为#RRGGBB格式")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.repo.GetTagByName(ctx, name); err == nil {
		respondError(c, http.StatusBadRequest, "标签名称已存在")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithError(err).Error("failed to check tag name")
		respondError(c, http.StatusInternalServerError, "创建标签失败")
		return
	}

	tag := &entity.DbFaultTag{Name: name, Color: color}
	if err := h.repo.CreateTag(ctx, tag); err != nil {
		logrus.WithError(err).Error("failed to create tag")
		respondError(c, http.StatusInternalServerError, "创建标签失败")
		return
	}

	respondSuccess(c, "创建标签成功", tag)
}

// UpdateTag 更新标签名称和颜色。
func (h *HTTPHandler) UpdateTag(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	var req entity.TagUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "标签参数不合法")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(c, http.StatusBadRequest, "标签名称不能为空")
		return
	}
	color := strings.TrimSpace(req.Color)
	if !tagColorPattern.MatchString(color) {
		respondError(c, http.StatusBadRequest, "颜色格式不正确，应为#RRGGBB格式")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.repo.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "标签不存在")
			return
		}
		logrus.WithError(err).Error("failed to load tag")
		respondError(c, http.StatusInternalServerError, "更新标签失败")
		return
	}

	if name != existing.Name {
		if other, err := h.repo.GetTagByName(ctx, name); err == nil && other.ID != id {
			respondError(c, http.StatusBadRequest, "标签名称已存在")
			return
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Error("failed to check tag name")
			respondError(c, http.StatusInternalServerError, "更新标签失败")
			return
		}
	}

	updates := entity.TagUpdates{Name: &name, Color: &color}
	if err := h.repo.UpdateTag(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "标签不存在")
			return
		}
		logrus.WithError(err).Error("failed to update tag")
		respondError(c, http.StatusInternalServerError, "更新标签失败")
		return
	}

	updated, err := h.repo.GetTag(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("failed to reload tag")
		respondError(c, http.StatusInternalServerError, "更新标签失败")
		return
	}

	respondSuccess(c, "更新标签成功", updated)
}

// DeleteTag 删除标签，仍被报告引用的标签不可删除。
func (h *HTTPHandler) DeleteTag(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.repo.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "标签不存在")
			return
		}
		logrus.WithError(err).Error("failed to load tag")
		respondError(c, http.StatusInternalServerError, "删除标签失败")
		return
	}

	if existing.UsageCount > 0 {
		respondError(c, http.StatusBadRequest, "该标签已被使用，无法删除")
		return
	}

	if err := h.repo.DeleteTag(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "标签不存在")
			return
		}
		logrus.WithError(err).Error("failed to delete tag")
		respondError(c, http.StatusInternalServerError, "删除标签失败")
		return
	}

	respondSuccess(c, "删除标签成功", nil)
}
