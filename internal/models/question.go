package models

import "time"

// Difficulty labels on the fixed ordered scale.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// TestCase is illustrative only; candidate code is never executed.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// Question is one interview question. Immutable once created, either decoded
// from the reasoning service or synthesized locally.
type Question struct {
	ID                 int        `json:"id"`
	Prompt             string     `json:"question"`
	Difficulty         string     `json:"difficulty"`
	Topics             []string   `json:"topics"`
	Hints              []string   `json:"hints"`
	TestCases          []TestCase `json:"test_cases"`
	EvaluationCriteria []string   `json:"evaluation_criteria"`
}

// CodeSubmission is an immutable audit record of one submitted solution.
type CodeSubmission struct {
	QuestionID int       `json:"question_id"`
	Code       string    `json:"code"`
	Language   string    `json:"language"`
	HintsUsed  int       `json:"hints_used"`
	Timestamp  time.Time `json:"timestamp"`
}

// VoiceResponse is an immutable audit record of one approach discussion.
type VoiceResponse struct {
	QuestionID int       `json:"question_id"`
	Transcript string    `json:"transcript"`
	Timestamp  time.Time `json:"timestamp"`
}

// Evaluation is the structured detail behind the most recent score. When the
// reasoning service is unavailable it carries only the fallback score.
type Evaluation struct {
	Score            int               `json:"score"`
	Feedback         string            `json:"feedback"`
	Dimensions       map[string]string `json:"dimensions,omitempty"`
	ImprovementAreas []string          `json:"improvement_areas,omitempty"`
	Fallback         bool              `json:"fallback"`
}
