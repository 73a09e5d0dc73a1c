package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

// MirroredAnswer is the payload shared with other replicas through Redis.
type MirroredAnswer struct {
	Answer     string    `json:"answer"`
	Confidence int       `json:"confidence"`
	CachedAt   time.Time `json:"cached_at"`
}

// AnswerMirror is an optional write-through mirror of the in-process answer
// cache. The local cache stays authoritative; the mirror only lets a fresh
// replica warm up from answers other replicas already admitted.
type AnswerMirror interface {
	Put(ctx context.Context, key string, ans MirroredAnswer) error
	Get(ctx context.Context, key string) (MirroredAnswer, bool, error)
	Close() error
}

type answerMirror struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewAnswerMirror returns (nil, nil) when REDIS_ADDR is unset: mirroring is
// opt-in and the pipeline treats a nil mirror as disabled.
func NewAnswerMirror(log *logger.Logger) (AnswerMirror, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	ttl := 30 * time.Minute
	if v := strings.TrimSpace(os.Getenv("ANSWER_MIRROR_TTL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &answerMirror{
		log: log.With("service", "RedisAnswerMirror"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (m *answerMirror) key(key string) string { return "answer_cache:" + key }

func (m *answerMirror) Put(ctx context.Context, key string, ans MirroredAnswer) error {
	if m == nil || m.rdb == nil {
		return fmt.Errorf("answer mirror not initialized")
	}
	raw, err := json.Marshal(ans)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, m.key(key), raw, m.ttl).Err()
}

func (m *answerMirror) Get(ctx context.Context, key string) (MirroredAnswer, bool, error) {
	var out MirroredAnswer
	if m == nil || m.rdb == nil {
		return out, false, fmt.Errorf("answer mirror not initialized")
	}
	raw, err := m.rdb.Get(ctx, m.key(key)).Bytes()
	if err == goredis.Nil {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		// Treat a malformed mirror entry as a miss.
		m.log.Warn("Malformed mirrored answer; ignoring", "error", err.Error())
		return MirroredAnswer{}, false, nil
	}
	return out, true, nil
}

func (m *answerMirror) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}
