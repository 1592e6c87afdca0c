package models

import "time"

// PerformanceStatus buckets a percentage into a qualitative band
type PerformanceStatus string

const (
	PerformanceExcellent PerformanceStatus = "EXCELLENT"
	PerformanceGood      PerformanceStatus = "GOOD"
	PerformanceAverage   PerformanceStatus = "AVERAGE"
	PerformancePoor      PerformanceStatus = "POOR"
)

// PerformanceFromPercentage maps a percentage to its band:
// >=80 EXCELLENT, >=60 GOOD, >=40 AVERAGE, else POOR.
func PerformanceFromPercentage(percentage float64) PerformanceStatus {
	switch {
	case percentage >= 80:
		return PerformanceExcellent
	case percentage >= 60:
		return PerformanceGood
	case percentage >= 40:
		return PerformanceAverage
	default:
		return PerformancePoor
	}
}

// GradeFromPercentage maps a percentage to a letter grade:
// 90 A+, 80 A, 70 B+, 60 B, 50 C+, 40 C, 33 D, else F.
func GradeFromPercentage(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B+"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C+"
	case percentage >= 40:
		return "C"
	case percentage >= 33:
		return "D"
	default:
		return "F"
	}
}

// UserScore is the overall result of one attempt.
// MarksSecured may be negative when negative marking outweighs correct
// answers; it is stored as computed, never floored.
type UserScore struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	AttemptID       uint      `json:"attempt_id" gorm:"not null;uniqueIndex:idx_score_attempt_user"`
	UserID          string    `json:"user_id" gorm:"size:255;not null;uniqueIndex:idx_score_attempt_user;index"`
	ExamID          uint      `json:"exam_id" gorm:"not null;index"`
	TotalMarks      float64   `json:"total_marks" gorm:"not null"`
	MarksSecured    float64   `json:"marks_secured" gorm:"not null"`
	Percentage      float64   `json:"percentage" gorm:"not null"`
	Grade           string    `json:"grade" gorm:"size:5;not null"`
	CorrectCount    int       `json:"correct_count" gorm:"default:0"`
	WrongCount      int       `json:"wrong_count" gorm:"default:0"`
	UnansweredCount int       `json:"unanswered_count" gorm:"default:0"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (UserScore) TableName() string {
	return "user_scores"
}

// SectionScore is the per-section breakdown of one attempt
type SectionScore struct {
	ID                uint              `json:"id" gorm:"primaryKey"`
	AttemptID         uint              `json:"attempt_id" gorm:"not null;uniqueIndex:idx_section_score"`
	SectionID         uint              `json:"section_id" gorm:"not null;uniqueIndex:idx_section_score"`
	TotalMarks        float64           `json:"total_marks" gorm:"not null"`
	MarksSecured      float64           `json:"marks_secured" gorm:"not null"`
	Percentage        float64           `json:"percentage" gorm:"not null"`
	PerformanceStatus PerformanceStatus `json:"performance_status" gorm:"size:10;not null"`
	CorrectCount      int               `json:"correct_count" gorm:"default:0"`
	WrongCount        int               `json:"wrong_count" gorm:"default:0"`
	UnansweredCount   int               `json:"unanswered_count" gorm:"default:0"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (SectionScore) TableName() string {
	return "section_scores"
}

// TopicScore is the latest per-topic snapshot for a user, overwritten by
// each newly evaluated attempt that touches the topic
type TopicScore struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	TopicID      uint      `json:"topic_id" gorm:"not null;uniqueIndex:idx_topic_score"`
	UserID       string    `json:"user_id" gorm:"size:255;not null;uniqueIndex:idx_topic_score"`
	AttemptID    uint      `json:"attempt_id" gorm:"not null"`
	TotalMarks   float64   `json:"total_marks" gorm:"not null"`
	MarksSecured float64   `json:"marks_secured" gorm:"not null"`
	Percentage   float64   `json:"percentage" gorm:"not null"`
	CorrectCount int       `json:"correct_count" gorm:"default:0"`
	WrongCount   int       `json:"wrong_count" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (TopicScore) TableName() string {
	return "topic_scores"
}
