package models

import (
	"time"

	"gorm.io/datatypes"
)

// Interview statuses persisted in the interviews table.
const (
	InterviewStatusInProgress = "in_progress"
	InterviewStatusCompleted  = "completed"
)

// Completion methods recorded when an interview reaches its terminal state.
const (
	CompletionMethodAutomatic = "automatic"
	CompletionMethodManual    = "manually_ended"
)

// Interview is the persisted record of one candidate session. The in-memory
// session keeps a 0-based question index; the DB stores it 1-based.
type Interview struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	SessionID            string            `gorm:"size:64;uniqueIndex;not null" json:"session_id"`
	InterviewType        string            `gorm:"size:32;default:technical" json:"interview_type"`
	Topics               datatypes.JSON    `json:"topics"`
	Status               string            `gorm:"size:32;default:in_progress" json:"status"`
	TotalQuestions       int               `json:"total_questions"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	CompletedQuestions   int               `json:"completed_questions"`
	AverageScore         int               `json:"average_score"`
	IndividualScores     datatypes.JSON    `json:"individual_scores"`
	Duration             int               `json:"duration"`
	CompletionMethod     string            `gorm:"size:32" json:"completion_method"`
	FinalResults         datatypes.JSONMap `json:"final_results"`
	StartTime            *time.Time        `json:"start_time"`
	EndTime              *time.Time        `json:"end_time"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// QuestionResponse stores one scored submission for audit. QuestionIndex is
// 1-based to match the interviews table convention.
type QuestionResponse struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     string    `gorm:"size:64;index;not null" json:"session_id"`
	QuestionIndex int       `gorm:"not null" json:"question_index"`
	QuestionText  string    `gorm:"type:text" json:"question_text"`
	UserResponse  string    `gorm:"type:text" json:"user_response"`
	Score         int       `json:"score"`
	Feedback      string    `gorm:"type:text" json:"feedback"`
	TimeTakenMS   int64     `json:"time_taken_ms"`
	HintsUsed     int       `json:"hints_used"`
	Difficulty    string    `gorm:"size:16" json:"difficulty"`
	CreatedAt     time.Time `json:"created_at"`
}
