package models

import "time"

// ExamStatus represents the lifecycle state of an exam
type ExamStatus string

const (
	ExamDraft     ExamStatus = "DRAFT"
	ExamPublished ExamStatus = "PUBLISHED"
	ExamArchived  ExamStatus = "ARCHIVED"
)

// Exam is a published examination built from a blueprint-generated paper.
// DurationSeconds is the total time budget each attempt starts with.
type Exam struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Title           string     `json:"title" gorm:"size:255;not null"`
	Description     *string    `json:"description,omitempty" gorm:"type:text"`
	BlueprintID     *uint      `json:"blueprint_id,omitempty" gorm:"index"`
	DurationSeconds int        `json:"duration_seconds" gorm:"not null"`
	Status          ExamStatus `json:"status" gorm:"size:20;not null;default:'DRAFT';index"`
	CreatedBy       string     `json:"created_by" gorm:"size:255;not null;index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relationships
	Blueprint *Blueprint    `json:"blueprint,omitempty" gorm:"foreignKey:BlueprintID"`
	Sections  []ExamSection `json:"sections,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
}

func (Exam) TableName() string {
	return "exams"
}

// IsOpen reports whether attempts may be started against this exam
func (e *Exam) IsOpen() bool {
	return e.Status == ExamPublished
}

// TotalMarks sums the marks of every question attached to the exam
func (e *Exam) TotalMarks() float64 {
	total := 0.0
	for _, section := range e.Sections {
		for _, eq := range section.Questions {
			if eq.Question != nil {
				total += eq.Question.Marks
			}
		}
	}
	return total
}

// ExamSection is an ordered section of an exam
type ExamSection struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ExamID    uint      `json:"exam_id" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Questions []ExamQuestion `json:"questions,omitempty" gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
}

func (ExamSection) TableName() string {
	return "exam_sections"
}

// ExamQuestion attaches a pool question to an exam section at a position
type ExamQuestion struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ExamID     uint      `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_exam_question"`
	SectionID  uint      `json:"section_id" gorm:"not null;index"`
	QuestionID uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_exam_question"`
	Position   int       `json:"position" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}
