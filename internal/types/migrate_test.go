package types_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/studyloop/tutor-backend/internal/types"
)

// Models must migrate under the sqlite driver, not just postgres; sqlite
// rejects expression defaults like now().
func TestModelsMigrateOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Lesson{}, &types.ContentChunk{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	lesson := types.Lesson{ID: uuid.New(), Title: "t", Content: "c"}
	if err := db.Create(&lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	chunk := types.ContentChunk{ID: uuid.New(), LessonID: lesson.ID, ChunkIndex: 0, Text: "c"}
	if err := db.Create(&chunk).Error; err != nil {
		t.Fatalf("create chunk: %v", err)
	}

	var got types.Lesson
	if err := db.First(&got, "id = ?", lesson.ID).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.CreatedAt.IsZero() || time.Since(got.CreatedAt) > time.Minute {
		t.Fatalf("created_at not auto-filled: %v", got.CreatedAt)
	}
}
