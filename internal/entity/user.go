package entity

import "time"

const (
	UserRoleViewer = "viewer"
	UserRoleEditor = "editor"
	UserRoleAdmin  = "admin"
)

// DbUser represents a persisted user account.
type DbUser struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Username     string    `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"`
	Email        *string   `gorm:"column:email;type:varchar(255);uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"column:role;type:varchar(20);index;not null;default:viewer" json:"role"`
}

// TableName overrides default pluralised name.
func (DbUser) TableName() string {
	return "users"
}

// IsValidRole 校验角色取值。
func IsValidRole(role string) bool {
	switch role {
	case UserRoleViewer, UserRoleEditor, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// UserSummary is a lightweight user description returned to clients.
type UserSummary struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserQuery supports listing users with pagination.
type UserQuery struct {
	BaseParams
	Role   string `json:"role" form:"role"`
	Search string `json:"search" form:"search"`
}

type AuthLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthRegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type AuthChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// AuthResponse 登录/注册成功后返回令牌和用户信息。
type AuthResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type UserCreateRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role"`
}

type UserUpdateRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role" binding:"required"`
}

// UserUpdates 用户更新字段
type UserUpdates struct {
	Username     *string
	Email        *string
	Role         *string
	PasswordHash *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Username != nil {
		updates["username"] = *u.Username
	}
	if u.Email != nil {
		updates["email"] = *u.Email
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	return updates
}
