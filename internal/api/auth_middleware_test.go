package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repairkb/internal/auth"
	"repairkb/internal/entity"

	"github.com/gin-gonic/gin"
)

func newTestHandler(t *testing.T) *HTTPHandler {
	t.Helper()
	manager, err := auth.NewManager("test-secret", "repairkb", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return &HTTPHandler{authManager: manager}
}

func issueToken(t *testing.T, h *HTTPHandler, role string) string {
	t.Helper()
	token, _, err := h.authManager.GenerateToken(&entity.DbUser{
		ID:       7,
		Username: "zhangsan",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func performRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewarePopulatesUserFromClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)

	r := gin.New()
	r.GET("/probe", h.AuthMiddleware(), func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			respondError(c, http.StatusInternalServerError, "no user")
			return
		}
		respondSuccess(c, "ok", gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	})

	token := issueToken(t, h, entity.UserRoleEditor)
	w := performRequest(r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)

	r := gin.New()
	r.GET("/probe", h.AuthMiddleware(), func(c *gin.Context) {
		respondSuccess(c, "ok", nil)
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, tt.header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", w.Code)
			}
		})
	}
}

func TestRoleGuards(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t)

	editorRouter := gin.New()
	editorRouter.GET("/probe", h.AuthMiddleware(), h.RequireEditor(), func(c *gin.Context) {
		respondSuccess(c, "ok", nil)
	})
	adminRouter := gin.New()
	adminRouter.GET("/probe", h.AuthMiddleware(), h.RequireAdmin(), func(c *gin.Context) {
		respondSuccess(c, "ok", nil)
	})

	tests := []struct {
		name     string
		router   *gin.Engine
		role     string
		expected int
	}{
		{name: "viewer blocked from editor route", router: editorRouter, role: entity.UserRoleViewer, expected: http.StatusForbidden},
		{name: "editor passes editor route", router: editorRouter, role: entity.UserRoleEditor, expected: http.StatusOK},
		{name: "admin passes editor route", router: editorRouter, role: entity.UserRoleAdmin, expected: http.StatusOK},
		{name: "viewer blocked from admin route", router: adminRouter, role: entity.UserRoleViewer, expected: http.StatusForbidden},
		{name: "editor blocked from admin route", router: adminRouter, role: entity.UserRoleEditor, expected: http.StatusForbidden},
		{name: "admin passes admin route", router: adminRouter, role: entity.UserRoleAdmin, expected: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := issueToken(t, h, tt.role)
			w := performRequest(tt.router, "Bearer "+token)
			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}
