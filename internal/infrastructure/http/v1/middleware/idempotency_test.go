package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/infrastructure/http/v1/middleware"
	"facturard/internal/infrastructure/storage/postgres"
)

type memKey struct {
	done     bool
	status   int
	response []byte
}

// memIdempotency mirrors the postgres store: pending keys conflict, completed
// keys replay, released keys disappear.
type memIdempotency struct {
	mu       sync.Mutex
	keys     map[string]*memKey
	released int
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: map[string]*memKey{}}
}

func (m *memIdempotency) AcquireKey(_ context.Context, key, userID, _, _ string) (*postgres.IdempotencyReplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[userID+"/"+key]
	if !ok {
		m.keys[userID+"/"+key] = &memKey{}
		return nil, nil
	}
	if !k.done {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return &postgres.IdempotencyReplay{StatusCode: k.status, ContentType: "application/json", Body: k.response}, nil
}

func (m *memIdempotency) CompleteKey(_ context.Context, userID, key string, status int, _ string, response any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	m.keys[userID+"/"+key] = &memKey{done: true, status: status, response: body}
	return nil
}

func (m *memIdempotency) ReleaseKey(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[userID+"/"+key]; ok && !k.done {
		delete(m.keys, userID+"/"+key)
		m.released++
	}
	return nil
}

// newIdempotentEngine serves POST /documents, failing with
// NO_SEQUENCE_AVAILABLE until hasBatch is set.
func newIdempotentEngine(store *memIdempotency, hasBatch *bool, issued *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{UserID: "owner-1"})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(middleware.Idempotency(store))
	r.POST("/documents", func(c *gin.Context) {
		if !*hasBatch {
			_ = c.Error(apperror.NewNoSequenceAvailable("32"))
			return
		}
		*issued++
		body := gin.H{"ncf": "E320000000001"}
		middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", body)
		c.JSON(http.StatusCreated, body)
	})
	r.POST("/panic", func(c *gin.Context) {
		panic("handler bug")
	})
	return r
}

func postWithKey(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"documentType":"32"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdempotencyKey, key)
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ErrorReleasesKeyForRetry(t *testing.T) {
	store := newMemIdempotency()
	hasBatch, issued := false, 0
	r := newIdempotentEngine(store, &hasBatch, &issued)

	first := postWithKey(r, "/documents", "k-1")
	assert.Equal(t, http.StatusConflict, first.Code)
	assert.Contains(t, first.Body.String(), apperror.CodeNoSequenceAvailable)
	assert.Equal(t, 1, store.released)

	// The user registers a batch and retries with the same key.
	hasBatch = true
	retry := postWithKey(r, "/documents", "k-1")
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Empty(t, retry.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, issued)
}

func TestIdempotency_SuccessIsReplayed(t *testing.T) {
	store := newMemIdempotency()
	hasBatch, issued := true, 0
	r := newIdempotentEngine(store, &hasBatch, &issued)

	first := postWithKey(r, "/documents", "k-2")
	require.Equal(t, http.StatusCreated, first.Code)

	again := postWithKey(r, "/documents", "k-2")
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "true", again.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), again.Body.String())
	assert.Equal(t, 1, issued)
	assert.Zero(t, store.released)
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	store := newMemIdempotency()
	hasBatch, issued := true, 0
	r := newIdempotentEngine(store, &hasBatch, &issued)

	w := postWithKey(r, "/panic", "k-3")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeInternal)
	assert.Equal(t, 1, store.released)
	assert.Empty(t, store.keys)
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	store := newMemIdempotency()
	hasBatch, issued := true, 0
	r := newIdempotentEngine(store, &hasBatch, &issued)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{}`))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, 2, issued)
	assert.Empty(t, store.keys)
}
