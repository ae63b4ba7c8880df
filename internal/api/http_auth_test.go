package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"repairkb/internal/auth"
	"repairkb/internal/entity"

	"github.com/gin-gonic/gin"
)

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	repo := newStubRepo()
	repo.users["zhangsan"] = &entity.DbUser{
		ID:           7,
		Username:     "zhangsan",
		PasswordHash: hash,
		Role:         entity.UserRoleEditor,
	}

	h := newTestHandler(t)
	h.repo = repo

	r := gin.New()
	r.POST("/api/auth/login", h.Login)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "correct password",
			body:           `{"username":"zhangsan","password":"secret123"}`,
			expectedStatus: http.StatusOK,
			expectedMsg:    "登录成功",
		},
		{
			name:           "wrong password",
			body:           `{"username":"zhangsan","password":"wrong"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "用户名或密码错误",
		},
		{
			name:           "unknown user",
			body:           `{"username":"nobody","password":"secret123"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "用户名或密码错误",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			var response entity.Response
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.Message != tt.expectedMsg {
				t.Errorf("expected message %s, got %s", tt.expectedMsg, response.Message)
			}
		})
	}
}

func TestLoginReturnsUsableToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	repo := newStubRepo()
	repo.users["zhangsan"] = &entity.DbUser{
		ID:           7,
		Username:     "zhangsan",
		PasswordHash: hash,
		Role:         entity.UserRoleAdmin,
	}

	h := newTestHandler(t)
	h.repo = repo

	r := gin.New()
	r.POST("/api/auth/login", h.Login)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"zhangsan","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Token string             `json:"token"`
			User  entity.UserSummary `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Data.Token == "" {
		t.Fatal("expected a token in response")
	}
	if response.Data.User.Username != "zhangsan" || response.Data.User.Role != entity.UserRoleAdmin {
		t.Errorf("unexpected user summary: %+v", response.Data.User)
	}

	claims, err := h.authManager.ParseToken(response.Data.Token)
	if err != nil {
		t.Fatalf("returned token failed to parse: %v", err)
	}
	if claims.UserID != 7 || claims.Role != entity.UserRoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}
