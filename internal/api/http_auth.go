package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"repairkb/internal/auth"
	"repairkb/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Login 用户名密码登录，成功返回令牌与用户信息。
func (h *HTTPHandler) Login(c *gin.Context) {
	var req entity.AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "用户名和密码不能为空")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, "用户名或密码错误")
			return
		}
		logrus.WithError(err).Error("failed to load user for login")
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	token, _, err := h.authManager.GenerateToken(user)
	if err != nil {
		logrus.WithError(err).Error("failed to generate token")
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	respondSuccess(c, "登录成功", entity.AuthResponse{
		Token: token,
		User:  makeUserSummary(user),
	})
}

// Register 公开注册，新账户固定为查看者角色。
func (h *HTTPHandler) Register(c *gin.Context) {
	var req entity.AuthRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "注册参数不合法")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.repo.GetUserByUsername(ctx, req.Username); err == nil {
		respondError(c, http.StatusBadRequest, "用户名已存在")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithError(err).Error("failed to check username")
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := h.repo.GetUserByEmail(ctx, email); err == nil {
			respondError(c, http.StatusBadRequest, "邮箱已被使用")
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Error("failed to check email")
			respondError(c, http.StatusInternalServerError, "注册失败")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	user := &entity.DbUser{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Role:         entity.UserRoleViewer,
	}
	if email != "" {
		user.Email = &email
	}

	if err := h.repo.CreateUser(ctx, user); err != nil {
		logrus.WithError(err).Error("failed to create user")
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	token, _, err := h.authManager.GenerateToken(user)
	if err != nil {
		logrus.WithError(err).Error("failed to generate token")
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	respondSuccess(c, "注册成功", entity.AuthResponse{
		Token: token,
		User:  makeUserSummary(user),
	})
}

// ChangePassword 校验原密码后更新为新密码。
func (h *HTTPHandler) ChangePassword(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	var req entity.AuthChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "密码参数不合法")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, requestUser.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user")
		respondError(c, http.StatusInternalServerError, "修改密码失败")
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.OldPassword); err != nil {
		respondError(c, http.StatusBadRequest, "原密码错误")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		respondError(c, http.StatusInternalServerError, "修改密码失败")
		return
	}

	if err := h.repo.UpdateUser(ctx, user.ID, entity.UserUpdates{PasswordHash: &hash}); err != nil {
		logrus.WithError(err).Error("failed to update password")
		respondError(c, http.StatusInternalServerError, "修改密码失败")
		return
	}

	respondSuccess(c, "密码修改成功", nil)
}

func makeUserSummary(user *entity.DbUser) entity.UserSummary {
	return entity.UserSummary{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
