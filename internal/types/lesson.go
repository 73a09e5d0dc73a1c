package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Lesson is the raw source content the indexer consumes. The structured
// fields (key points, examples, exercises, ...) are JSON arrays of strings,
// except Examples and Exercises which carry typed items.
type Lesson struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Subject        string         `gorm:"column:subject" json:"subject"`
	Grade          string         `gorm:"column:grade" json:"grade"`
	Content        string         `gorm:"column:content;not null" json:"content"`
	KeyPoints      datatypes.JSON `gorm:"type:jsonb;column:key_points" json:"key_points"`
	Examples       datatypes.JSON `gorm:"type:jsonb;column:examples" json:"examples"`
	Exercises      datatypes.JSON `gorm:"type:jsonb;column:exercises" json:"exercises"`
	Misconceptions datatypes.JSON `gorm:"type:jsonb;column:misconceptions" json:"misconceptions"`
	Objectives     datatypes.JSON `gorm:"type:jsonb;column:objectives" json:"objectives"`
	SelfChecks     datatypes.JSON `gorm:"type:jsonb;column:self_checks" json:"self_checks"`
	VisualAids     datatypes.JSON `gorm:"type:jsonb;column:visual_aids" json:"visual_aids"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

// LessonExample is one worked example embedded in a lesson.
type LessonExample struct {
	Problem     string `json:"problem"`
	Solution    string `json:"solution"`
	Explanation string `json:"explanation,omitempty"`
}

// LessonExercise is one practice exercise embedded in a lesson.
type LessonExercise struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty,omitempty"`
}

// LessonVisualAid is a textual description of a figure or diagram.
type LessonVisualAid struct {
	Caption     string `json:"caption"`
	Description string `json:"description"`
}
