package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"repairkb/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxAttachmentSize = 20 << 20 // 20MB

// UploadAttachment 上传报告附件，返回可访问的URL。
func (h *HTTPHandler) UploadAttachment(c *gin.Context) {
	if h.storage == nil {
		respondError(c, http.StatusServiceUnavailable, "存储服务不可用")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "缺少上传文件")
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		respondError(c, http.StatusBadRequest, "文件大小超过限制")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("failed to open uploaded file")
		respondError(c, http.StatusInternalServerError, "上传附件失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logrus.WithError(err).Error("failed to read uploaded file")
		respondError(c, http.StatusInternalServerError, "上传附件失败")
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	relPath, err := h.storage.Save(ctx, data, storage.SaveOptions{
		Category:  "attachments",
		Extension: ext,
	})
	if err != nil {
		logrus.WithError(err).Error("failed to save attachment")
		respondError(c, http.StatusInternalServerError, "上传附件失败")
		return
	}

	respondSuccess(c, "上传附件成功", gin.H{
		"path": relPath,
		"url":  h.publicURL(relPath),
	})
}

func (h *HTTPHandler) publicURL(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	base := h.storagePublicBase
	if base == "" {
		base = "/files"
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(trimmed, "/"))
}
