package model

import (
	"context"
	"strings"

	"repairkb/internal/auth"
	"repairkb/internal/config"
	"repairkb/internal/entity"

	"github.com/sirupsen/logrus"
)

// SeedDefaultAdmin 在用户表为空时创建初始管理员账户。
// 未配置管理员密码时跳过，避免隐式写入弱口令。
func SeedDefaultAdmin(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil {
		return nil
	}

	username := strings.TrimSpace(cfg.AdminUsername)
	password := strings.TrimSpace(cfg.AdminPassword)
	if username == "" || password == "" {
		return nil
	}

	count, err := repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &entity.DbUser{
		Username:     username,
		PasswordHash: hash,
		Role:         entity.UserRoleAdmin,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		return err
	}

	logrus.WithField("username", username).Info("seeded default admin user")
	return nil
}
