package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/infrastructure/storage/postgres"
	"facturard/pkg/logger"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// headerIdempotencyKeyLegacy is still accepted from older clients.
const headerIdempotencyKeyLegacy = "X-Idempotency-Key"

const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
	ctxIdempotencyDone  = "idempotency_done"
)

// IdempotencyStore persists keys and the responses they replay.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, userID, key string, statusCode int, contentType string, response any) error
	ReleaseKey(ctx context.Context, userID, key string) error
}

// Idempotency middleware protects against duplicate requests.
// Used for POST/PUT/PATCH operations that should be idempotent.
// Must run after Auth: keys are scoped per account.
//
// Only successful responses are stored. A request that ends in an error or a
// panic releases its key, so the same key can be retried once the cause is
// fixed.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			key = c.GetHeader(headerIdempotencyKeyLegacy)
		}
		if key == "" {
			c.Next()
			return
		}
		if len(key) > 255 {
			_ = c.Error(apperror.NewValidation("idempotency key too long").WithDetail("max_length", 255))
			c.Abort()
			return
		}

		userID := appctx.GetUserID(c.Request.Context())

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(c.Request.Context(), key, userID, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			c.Abort()
			return
		}

		if replay != nil {
			logger.Debug(c.Request.Context(), "idempotent replay", "key", key, "status", replay.StatusCode)
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		defer func() {
			rec := recover()
			if !c.GetBool(ctxIdempotencyDone) {
				// The request context may already be cancelled.
				ctx := context.WithoutCancel(c.Request.Context())
				if err := store.ReleaseKey(ctx, userID, key); err != nil {
					logger.Warn(ctx, "idempotency release key", "key", key, "error", err)
				}
			}
			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

// CompleteIdempotency records a successful response for the key acquired by
// Idempotency, if any.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key, ok := c.Get(ctxIdempotencyKey)
	if !ok {
		return
	}
	store, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return
	}
	s, ok := store.(IdempotencyStore)
	if !ok || s == nil {
		return
	}
	if statusCode >= http.StatusBadRequest {
		return
	}
	userID := appctx.GetUserID(c.Request.Context())
	if err := s.CompleteKey(c.Request.Context(), userID, key.(string), statusCode, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "idempotency complete key", "error", err)
		return
	}
	c.Set(ctxIdempotencyDone, true)
}
