package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/codesage-go-api/internal/models"
)

// Client message types accepted over the interview websocket.
const (
	ClientMessageInit        = "init"
	ClientMessageSubmit      = "submit"
	ClientMessageRequestHint = "request_hint"
	ClientMessageApproach    = "voice_approach"
	ClientMessageEnd         = "end"
)

// Server message types emitted over the interview websocket.
const (
	ServerMessageQuestion         = "question"
	ServerMessageQuestionComplete = "question_complete"
	ServerMessageHint             = "hint"
	ServerMessageApproachFeedback = "approach_feedback"
	ServerMessageComplete         = "interview_complete"
	ServerMessageError            = "error"
)

// InterviewClientMessage is the single inbound envelope; Type selects which
// fields are meaningful.
type InterviewClientMessage struct {
	Type       string   `json:"type" validate:"required"`
	Topics     []string `json:"topics,omitempty"`
	Code       string   `json:"code,omitempty"`
	Language   string   `json:"language,omitempty"`
	ElapsedMS  int64    `json:"elapsed_ms,omitempty" validate:"gte=0"`
	HintsUsed  int      `json:"hints_used,omitempty" validate:"gte=0"`
	Transcript string   `json:"transcript,omitempty"`
}

// QuestionMessage carries a newly posed question.
type QuestionMessage struct {
	Type           string `json:"type"`
	QuestionNumber int    `json:"question_number"`
	TotalQuestions int    `json:"total_questions"`
	Question       string `json:"question"`
	Difficulty     string `json:"difficulty"`
}

// QuestionCompleteMessage reports the score for the question just submitted.
type QuestionCompleteMessage struct {
	Type               string `json:"type"`
	QuestionNumber     int    `json:"question_number"`
	Score              int    `json:"score"`
	Feedback           string `json:"feedback"`
	RemainingQuestions int    `json:"remaining_questions"`
}

// HintMessage carries one contextual hint.
type HintMessage struct {
	Type      string `json:"type"`
	Hint      string `json:"hint"`
	HintsUsed int    `json:"hints_used"`
}

// ApproachFeedbackMessage carries advisory feedback on a spoken approach.
type ApproachFeedbackMessage struct {
	Type       string `json:"type"`
	Feedback   string `json:"feedback"`
	Transcript string `json:"transcript"`
}

// ErrorMessage is a structured protocol error; it never closes the channel.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// InterviewCompleteMessage wraps the final results payload.
type InterviewCompleteMessage struct {
	Type    string                  `json:"type"`
	Results InterviewResultsPayload `json:"results"`
}

// InterviewResultsPayload is the completion result exposed to the client and
// persisted as the final_results document.
type InterviewResultsPayload struct {
	SessionID          string                  `json:"session_id"`
	Topics             []string                `json:"topics"`
	TotalQuestions     int                     `json:"total_questions"`
	CompletedQuestions int                     `json:"completed_questions"`
	AverageScore       int                     `json:"average_score"`
	IndividualScores   []int                   `json:"individual_scores"`
	TotalTimeSeconds   int                     `json:"total_time"`
	StartTime          time.Time               `json:"start_time"`
	EndTime            time.Time               `json:"end_time"`
	CompletionMethod   string                  `json:"completion_method"`
	EndedManually      bool                    `json:"interview_ended_manually"`
	VoiceResponses     []models.VoiceResponse  `json:"voice_responses"`
	CodeSubmissions    []models.CodeSubmission `json:"code_submissions"`
}

// InterviewRecordResponse is the HTTP representation of a stored interview.
type InterviewRecordResponse struct {
	ID                 uint       `json:"id"`
	SessionID          string     `json:"session_id"`
	InterviewType      string     `json:"interview_type"`
	Topics             []string   `json:"topics"`
	Status             string     `json:"status"`
	TotalQuestions     int        `json:"total_questions"`
	CompletedQuestions int        `json:"completed_questions"`
	AverageScore       int        `json:"average_score"`
	IndividualScores   []int      `json:"individual_scores"`
	DurationSeconds    int        `json:"duration"`
	CompletionMethod   string     `json:"completion_method,omitempty"`
	StartTime          *time.Time `json:"start_time,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// InterviewDetailResponse pairs a stored interview with its per-question
// audit trail.
type InterviewDetailResponse struct {
	Interview         InterviewRecordResponse   `json:"interview"`
	QuestionResponses []models.QuestionResponse `json:"question_responses"`
}

// TopicsResponse lists the canonical interview topics.
type TopicsResponse struct {
	Topics []string `json:"topics"`
}

// NewQuestionMessage builds the outbound message for a posed question.
func NewQuestionMessage(number, total int, question models.Question) QuestionMessage {
	return QuestionMessage{
		Type:           ServerMessageQuestion,
		QuestionNumber: number,
		TotalQuestions: total,
		Question:       question.Prompt,
		Difficulty:     question.Difficulty,
	}
}

// NewErrorMessage builds a structured protocol error message.
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: ServerMessageError, Error: message}
}

// NewInterviewRecordResponse maps a stored interview to its HTTP shape.
func NewInterviewRecordResponse(interview models.Interview) InterviewRecordResponse {
	var topics []string
	if len(interview.Topics) > 0 {
		_ = json.Unmarshal(interview.Topics, &topics)
	}

	var scores []int
	if len(interview.IndividualScores) > 0 {
		_ = json.Unmarshal(interview.IndividualScores, &scores)
	}

	return InterviewRecordResponse{
		ID:                 interview.ID,
		SessionID:          interview.SessionID,
		InterviewType:      interview.InterviewType,
		Topics:             topics,
		Status:             interview.Status,
		TotalQuestions:     interview.TotalQuestions,
		CompletedQuestions: interview.CompletedQuestions,
		AverageScore:       interview.AverageScore,
		IndividualScores:   scores,
		DurationSeconds:    interview.Duration,
		CompletionMethod:   interview.CompletionMethod,
		StartTime:          interview.StartTime,
		EndTime:            interview.EndTime,
		CreatedAt:          interview.CreatedAt,
	}
}

// NewInterviewRecordResponseSlice maps a list of stored interviews.
func NewInterviewRecordResponseSlice(interviews []models.Interview) []InterviewRecordResponse {
	responses := make([]InterviewRecordResponse, 0, len(interviews))
	for _, interview := range interviews {
		responses = append(responses, NewInterviewRecordResponse(interview))
	}
	return responses
}
