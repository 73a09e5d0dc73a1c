package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ContentChunk is the unit of retrieval: a bounded span of lesson text plus
// its embedding, serialized as a JSON float array in the embedding column.
// Identity is (lesson_id, chunk_index).
type ContentChunk struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID   uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_lesson_chunk" json:"lesson_id"`
	Lesson     *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	ChunkIndex int            `gorm:"column:chunk_index;not null;uniqueIndex:idx_lesson_chunk" json:"chunk_index"`
	Text       string         `gorm:"column:text;not null" json:"text"`
	Embedding  datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"embedding"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ContentChunk) TableName() string { return "content_chunk" }

// ChunkMetadata is the decoded shape of ContentChunk.Metadata.
type ChunkMetadata struct {
	SourceTitle string `json:"source_title"`
	Subject     string `json:"subject,omitempty"`
	Grade       string `json:"grade,omitempty"`
	SectionType string `json:"section_type"`
	Enriched    bool   `json:"enriched,omitempty"`
	Position    int    `json:"position"`
	Total       int    `json:"total"`
}

// Section types carried in chunk metadata.
const (
	SectionConcept    = "concept"
	SectionExample    = "example"
	SectionExercise   = "exercise"
	SectionAssessment = "assessment"
	SectionObjective  = "objective"
	SectionSummary    = "summary"
)

func (m ChunkMetadata) JSON() datatypes.JSON {
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}

// DecodeChunkMetadata parses a metadata column; a malformed value decodes to
// the zero metadata rather than failing the caller.
func DecodeChunkMetadata(raw datatypes.JSON) ChunkMetadata {
	var m ChunkMetadata
	if len(raw) == 0 {
		return m
	}
	_ = json.Unmarshal(raw, &m)
	return m
}

// EncodeEmbedding serializes a vector as a JSON float array.
func EncodeEmbedding(vec []float32) datatypes.JSON {
	if len(vec) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}

// DecodeEmbedding parses an embedding column. A malformed or empty value
// yields nil, which callers treat as a cache/scan miss.
func DecodeEmbedding(raw datatypes.JSON) []float32 {
	if len(raw) == 0 {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil
	}
	if len(vec) == 0 {
		return nil
	}
	return vec
}
