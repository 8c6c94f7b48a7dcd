package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

// StoredResponse is what a retried request gets back.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore remembers responses by key. Reserve claims a key for an
// in-flight request and fails when the key is already claimed or completed.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, bool, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

type memoryEntry struct {
	resp      *StoredResponse
	expiresAt time.Time
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// live returns the unexpired entry for key. Callers hold mu.
func (s *MemoryIdempotencyStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if ok && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, ok
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*StoredResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok || e.resp == nil {
		return nil, ok, nil
	}
	return e.resp, true, nil
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = memoryEntry{expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{resp: resp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// ---------------------------------------------------------------------------
// Redis store
// ---------------------------------------------------------------------------

const (
	redisKeyPrefix = "labdesk:idem:"
	pendingMarker  = "pending"
)

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*StoredResponse, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(raw) == pendingMarker {
		return nil, true, nil
	}
	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, redisKeyPrefix+key, pendingMarker, ttl).Result()
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type IdempotencyConfig struct {
	Store IdempotencyStore
	// TTL is how long a completed response is replayed.
	TTL time.Duration
	// LockTTL bounds how long an in-flight claim blocks retries.
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// capturedWriter holds the handler's status and body until the middleware
// decides to store them.
type capturedWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *capturedWriter) WriteHeader(code int) { w.status = code }

func (w *capturedWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *capturedWriter) Flush() {}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the same method and path. A retry that arrives while the first attempt is
// still running gets a 409. Failed attempts are not stored.
func Idempotency(cfg IdempotencyConfig) echo.MiddlewareFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			idem := req.Header.Get(IdempotencyKeyHeader)
			if idem == "" || req.Method != http.MethodPost {
				return next(c)
			}
			if len(idem) > 255 {
				return echo.NewHTTPError(http.StatusBadRequest, "Idempotency-Key is too long")
			}
			ctx := req.Context()
			key := req.Method + ":" + req.URL.Path + ":" + idem

			stored, found, err := cfg.Store.Get(ctx, key)
			if err != nil {
				cfg.Logger.Error().Err(err).Msg("idempotency lookup failed")
				return next(c)
			}
			if found {
				if stored == nil {
					return echo.NewHTTPError(http.StatusConflict, "a request with this Idempotency-Key is in progress")
				}
				c.Response().Header().Set(replayedHeader, "true")
				return c.Blob(stored.Status, stored.ContentType, stored.Body)
			}

			ok, err := cfg.Store.Reserve(ctx, key, cfg.LockTTL)
			if err != nil {
				cfg.Logger.Error().Err(err).Msg("idempotency reserve failed")
				return next(c)
			}
			if !ok {
				return echo.NewHTTPError(http.StatusConflict, "a request with this Idempotency-Key is in progress")
			}

			res := c.Response()
			orig := res.Writer
			cw := &capturedWriter{ResponseWriter: orig, status: http.StatusOK}
			res.Writer = cw

			herr := next(c)
			res.Writer = orig

			if herr != nil || cw.status >= 500 {
				if err := cfg.Store.Release(context.WithoutCancel(ctx), key); err != nil {
					cfg.Logger.Error().Err(err).Msg("idempotency release failed")
				}
				if herr != nil {
					return herr
				}
			} else {
				resp := &StoredResponse{
					Status:      cw.status,
					ContentType: res.Header().Get(echo.HeaderContentType),
					Body:        cw.buf.Bytes(),
				}
				if err := cfg.Store.Save(context.WithoutCancel(ctx), key, resp, cfg.TTL); err != nil {
					cfg.Logger.Error().Err(err).Msg("idempotency save failed")
				}
			}

			orig.WriteHeader(cw.status)
			_, err = orig.Write(cw.buf.Bytes())
			return err
		}
	}
}
