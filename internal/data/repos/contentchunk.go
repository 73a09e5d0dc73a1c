package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/tutor-backend/internal/platform/logger"
	"github.com/studyloop/tutor-backend/internal/types"
)

type ContentChunkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chunks []*types.ContentChunk) ([]*types.ContentChunk, error)
	DeleteByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error
	GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.ContentChunk, error)
	// Page reads a fixed-size window of the corpus ordered by creation, used
	// by the batched similarity scan.
	Page(ctx context.Context, tx *gorm.DB, lessonID *uuid.UUID, skip, take int) ([]*types.ContentChunk, error)
	CountByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int64, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type contentChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentChunkRepo(db *gorm.DB, baseLog *logger.Logger) ContentChunkRepo {
	return &contentChunkRepo{db: db, log: baseLog.With("repo", "ContentChunkRepo")}
}

func (r *contentChunkRepo) Create(ctx context.Context, tx *gorm.DB, chunks []*types.ContentChunk) ([]*types.ContentChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunks) == 0 {
		return []*types.ContentChunk{}, nil
	}
	for _, ch := range chunks {
		if ch != nil && ch.ID == uuid.Nil {
			ch.ID = uuid.New()
		}
	}

	// Keep batches small because Text is large
	const batchSize = 100

	if err := transaction.WithContext(ctx).CreateInBatches(chunks, batchSize).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *contentChunkRepo) DeleteByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if lessonID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Delete(&types.ContentChunk{}).Error
}

func (r *contentChunkRepo) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.ContentChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentChunk
	if lessonID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("chunk_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentChunkRepo) Page(ctx context.Context, tx *gorm.DB, lessonID *uuid.UUID, skip, take int) ([]*types.ContentChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if take <= 0 {
		take = 100
	}
	if skip < 0 {
		skip = 0
	}
	q := transaction.WithContext(ctx).Model(&types.ContentChunk{})
	if lessonID != nil && *lessonID != uuid.Nil {
		q = q.Where("lesson_id = ?", *lessonID)
	}
	var results []*types.ContentChunk
	if err := q.
		Order("lesson_id, chunk_index ASC").
		Offset(skip).
		Limit(take).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentChunkRepo) CountByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if lessonID == uuid.Nil {
		return 0, nil
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContentChunk{}).
		Where("lesson_id = ?", lessonID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *contentChunkRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContentChunk{}).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
