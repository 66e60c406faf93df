package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/infrastructure/http/v1/middleware"
)

type stubValidator map[string]*appctx.UserContext

func (s stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("bad token")
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Auth(stubValidator{"good": {UserID: "u-1", Email: "a@b.do"}}))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"owner": appctx.GetOwnerID(c.Request.Context())})
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(apperror.NewNoSequenceAvailable("31"))
	})
	r.GET("/raw", func(c *gin.Context) {
		_ = c.Error(errors.New("db exploded"))
	})
	return r
}

func do(r *gin.Engine, path, auth string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuth(t *testing.T) {
	r := newEngine()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(r, "/me", tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u-1", body["owner"])
			} else {
				assert.Equal(t, apperror.CodeUnauthorized, body["code"])
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := newEngine()

	w, body := do(r, "/boom", "Bearer good")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeNoSequenceAvailable, body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "31", details["document_type"])

	w, body = do(r, "/raw", "Bearer good")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body["code"])
	assert.NotContains(t, w.Body.String(), "db exploded")
}
