package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnmchuo/ai-core/internal/cache"
	"github.com/vnmchuo/ai-core/internal/logger"
)

var ErrKeyNotFound = errors.New("admin key not found")

const (
	CodePermissionDenied = "permission_denied"

	cacheTTL = 5 * time.Minute
)

// AdminKey grants access to the administrative surface. Only the SHA-256 of
// the key is stored.
type AdminKey struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	KeyHash   string    `json:"key_hash"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalBinary implements encoding.BinaryMarshaler for the key cache
func (a *AdminKey) MarshalBinary() ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for the key cache
func (a *AdminKey) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, a)
}

type Store interface {
	GetByKey(ctx context.Context, key string) (*AdminKey, error)
	Create(ctx context.Context, key *AdminKey) error
	Revoke(ctx context.Context, id int64) error
}

type Middleware func(next http.Handler) http.Handler

type contextKey string

const (
	adminKeyIDKey contextKey = "admin_key_id"
	requestIDKey  contextKey = "request_id"
)

func HashKey(key string) string {
	h := sha256.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// NewMiddleware admits requests carrying an active admin key as a bearer
// token. Looked-up keys are cached for five minutes; a revoked key stays
// usable until its cache entry expires.
func NewMiddleware(store Store, c cache.Cache, log *logger.Logger) Middleware {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := uuid.New().String()
			ctx = WithRequestID(ctx, requestID)
			w.Header().Set("X-Request-ID", requestID)
			reqLog := log.With("request_id", requestID)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				deny(w, "missing or invalid Authorization header")
				return
			}
			key := strings.TrimPrefix(authHeader, "Bearer ")
			cacheKey := fmt.Sprintf("auth:%s", HashKey(key))

			var adminKey AdminKey
			hit, err := c.Get(ctx, cacheKey, &adminKey)
			if err != nil {
				reqLog.Warn("auth cache read failed", "error", err)
			}
			if hit {
				reqLog.Debug("admin key served from cache", "admin_key_id", adminKey.ID)
				ctx = WithAdminKeyID(ctx, adminKey.ID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			found, err := store.GetByKey(ctx, key)
			if err != nil {
				if errors.Is(err, ErrKeyNotFound) {
					deny(w, "invalid admin key")
					return
				}
				reqLog.Error("admin key lookup failed", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"code": "internal_error", "message": "internal server error"})
				return
			}

			if err := c.Set(ctx, cacheKey, found, cacheTTL); err != nil {
				reqLog.Warn("auth cache write failed", "error", err)
			}

			ctx = WithAdminKeyID(ctx, found.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"code": CodePermissionDenied, "message": message})
}

func GetAdminKeyID(ctx context.Context) int64 {
	if id, ok := ctx.Value(adminKeyIDKey).(int64); ok {
		return id
	}
	return 0
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func WithAdminKeyID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, adminKeyIDKey, id)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
