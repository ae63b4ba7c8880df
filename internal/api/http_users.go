package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"repairkb/internal/auth"
	"repairkb/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListUsers 获取用户列表，支持角色过滤和关键字搜索。
func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var params entity.UserQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, "查询参数不合法")
		return
	}
	if params.Role != "" && !entity.IsValidRole(params.Role) {
		respondError(c, http.StatusBadRequest, "角色取值不合法")
		return
	}
	params.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	users, pagination, err := h.repo.ListUsers(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list users")
		respondError(c, http.StatusInternalServerError, "获取用户列表失败")
		return
	}

	list := make([]entity.UserSummary, 0, len(users))
	for i := range users {
		list = append(list, makeUserSummary(&users[i]))
	}

	respondSuccess(c, "获取用户列表成功", entity.PageData{List: list, Pagination: pagination})
}

// GetUser 获取用户详情。
func (h *HTTPHandler) GetUser(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user")
		respondError(c, http.StatusInternalServerError, "获取用户详情失败")
		return
	}

	respondSuccess(c, "获取用户详情成功", makeUserSummary(user))
}

// CreateUser 管理员创建用户。
func (h *HTTPHandler) CreateUser(c *gin.Context) {
	var req entity.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "用户参数不合法")
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = entity.UserRoleViewer
	}
	if !entity.IsValidRole(role) {
		respondError(c, http.StatusBadRequest, "角色取值不合法")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.repo.GetUserByUsername(ctx, req.Username); err == nil {
		respondError(c, http.StatusBadRequest, "用户名已存在")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithError(err).Error("failed to check username")
		respondError(c, http.StatusInternalServerError, "创建用户失败")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := h.repo.GetUserByEmail(ctx, email); err == nil {
			respondError(c, http.StatusBadRequest, "邮箱已被使用")
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Error("failed to check email")
			respondError(c, http.StatusInternalServerError, "创建用户失败")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		respondError(c, http.StatusInternalServerError, "创建用户失败")
		return
	}

	user := &entity.DbUser{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Role:         role,
	}
	if email != "" {
		user.Email = &email
	}

	if err := h.repo.CreateUser(ctx, user); err != nil {
		logrus.WithError(err).Error("failed to create user")
		respondError(c, http.StatusInternalServerError, "创建用户失败")
		return
	}

	respondSuccess(c, "创建用户成功", makeUserSummary(user))
}

// UpdateUser 管理员更新用户名、邮箱与角色。
func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	var req entity.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "用户参数不合法")
		return
	}
	if !entity.IsValidRole(req.Role) {
		respondError(c, http.StatusBadRequest, "角色取值不合法")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user")
		respondError(c, http.StatusInternalServerError, "更新用户失败")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username != existing.Username {
		if other, err := h.repo.GetUserByUsername(ctx, username); err == nil && other.ID != id {
			respondError(c, http.StatusBadRequest, "用户名已存在")
			return
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Error("failed to check username")
			respondError(c, http.StatusInternalServerError, "更新用户失败")
			return
		}
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && (existing.Email == nil || *existing.Email != email) {
		if other, err := h.repo.GetUserByEmail(ctx, email); err == nil && other.ID != id {
			respondError(c, http.StatusBadRequest, "邮箱已被使用")
			return
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Error("failed to check email")
			respondError(c, http.StatusInternalServerError, "更新用户失败")
			return
		}
	}

	updates := entity.UserUpdates{
		Username: &username,
		Role:     &req.Role,
	}
	if email != "" {
		updates.Email = &email
	}

	if err := h.repo.UpdateUser(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to update user")
		respondError(c, http.StatusInternalServerError, "更新用户失败")
		return
	}

	updated, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("failed to reload user")
		respondError(c, http.StatusInternalServerError, "更新用户失败")
		return
	}

	respondSuccess(c, "更新用户成功", makeUserSummary(updated))
}

// DeleteUser 管理员删除用户，不允许删除自己。
func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	requestUser := CurrentUser(c)
	if requestUser != nil && requestUser.ID == id {
		respondError(c, http.StatusBadRequest, "不能删除自己的账户")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to delete user")
		respondError(c, http.StatusInternalServerError, "删除用户失败")
		return
	}

	respondSuccess(c, "删除用户成功", nil)
}

// parsePathID 解析路径中的数字ID，非法时直接写出错误响应。
func parsePathID(c *gin.Context) (uint, bool) {
	rawID := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "ID必须为正整数")
		return 0, false
	}
	return uint(id), true
}
