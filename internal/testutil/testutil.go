package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
	"github.com/studyloop/tutor-backend/internal/types"
)

// Logger returns a quiet logger for tests.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("logger.New: %v", err)
	}
	return log
}

// DB opens a migrated database for one test. By default it uses an
// in-memory sqlite database; set TEST_POSTGRES_DSN to run the same tests
// against real Postgres.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	var (
		db  *gorm.DB
		err error
	)
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), cfg)
	}
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(&types.Lesson{}, &types.ContentChunk{}); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	tb.Cleanup(func() {
		db.Exec("DELETE FROM content_chunk")
		db.Exec("DELETE FROM lesson")
	})
	return db
}

// FakeAI is a deterministic openai.Client double. Embeddings are derived
// from the input text so equal texts always get equal vectors; completions
// replay scripted responses.
type FakeAI struct {
	// Dim is the embedding width, default 8.
	Dim int
	// Vectors overrides the derived embedding for exact input texts, so a
	// test can pin similarities precisely.
	Vectors map[string][]float32
	// EmbedErr, when set, fails every Embed call.
	EmbedErr error
	// TextResponses is consumed front to back by GenerateText; when empty,
	// a canned answer is returned. TextErr fails the call instead.
	TextResponses []string
	TextErr       error
	// JSONResponse is returned by GenerateJSON; JSONErr fails the call.
	JSONResponse map[string]any
	JSONErr      error

	EmbedCalls int
	TextCalls  int
	JSONCalls  int

	mu sync.Mutex
}

var _ openai.Client = (*FakeAI)(nil)

func (f *FakeAI) dim() int {
	if f.Dim <= 0 {
		return 8
	}
	return f.Dim
}

// Embedding returns the deterministic vector Embed would produce for text.
func (f *FakeAI) Embedding(text string) []float32 {
	if v, ok := f.Vectors[text]; ok {
		return v
	}
	vec := make([]float32, f.dim())
	for i, r := range text {
		vec[i%len(vec)] += float32(r%13) + 1
	}
	// Texts shorter than the width still get a nonzero norm.
	if text == "" {
		vec[0] = 1
	}
	return vec
}

func (f *FakeAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EmbedCalls++
	if f.EmbedErr != nil {
		return nil, f.EmbedErr
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = f.Embedding(in)
	}
	return out, nil
}

func (f *FakeAI) GenerateText(_ context.Context, _, _ string, _ openai.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TextCalls++
	if f.TextErr != nil {
		return "", f.TextErr
	}
	if len(f.TextResponses) > 0 {
		resp := f.TextResponses[0]
		f.TextResponses = f.TextResponses[1:]
		return resp, nil
	}
	return fmt.Sprintf("canned answer %d", f.TextCalls), nil
}

func (f *FakeAI) GenerateJSON(_ context.Context, _, _, _ string, _ map[string]any, _ openai.GenerateOptions) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.JSONCalls++
	if f.JSONErr != nil {
		return nil, f.JSONErr
	}
	if f.JSONResponse != nil {
		return f.JSONResponse, nil
	}
	return map[string]any{}, nil
}
