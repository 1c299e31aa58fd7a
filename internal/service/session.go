package service

import (
	"errors"
	"time"

	"github.com/noah-isme/codesage-go-api/internal/dto"
	"github.com/noah-isme/codesage-go-api/internal/models"
)

// SessionState enumerates the interview session lifecycle.
type SessionState int

const (
	// StateInitializing means questions are still being generated.
	StateInitializing SessionState = iota
	// StateAwaitingSubmission means the current question is posed and unanswered.
	StateAwaitingSubmission
	// StateScoring means a submission is received and evaluation is in flight.
	StateScoring
	// StateCompleted is terminal and absorbing.
	StateCompleted
)

// Sentinel errors surfaced as structured protocol errors; none of them
// mutates session state.
var (
	ErrSessionNotReady    = errors.New("session has no questions yet")
	ErrAlreadySubmitted   = errors.New("current question already submitted")
	ErrInterviewCompleted = errors.New("interview already completed")
	ErrScoreNotRecorded   = errors.New("cannot advance before the current question is scored")
	ErrInvalidTransition  = errors.New("operation not legal in the current state")
)

// InterviewSession owns one candidate run: question list, progression,
// per-question counters and the audit trails. It is mutated exclusively by
// the handler goroutine of its owning connection, so no internal locking.
type InterviewSession struct {
	ID     string
	Topics []string

	Questions    []models.Question
	CurrentIndex int

	StartTime     time.Time
	EndTime       *time.Time
	QuestionStart time.Time

	// Valid only for the question at CurrentIndex; reset on advance.
	HintsUsed         int
	ApproachDiscussed bool
	Submitted         bool

	Scores          []int
	VoiceResponses  []models.VoiceResponse
	CodeSubmissions []models.CodeSubmission
	LastEvaluation  *models.Evaluation

	State         SessionState
	EndedManually bool
}

// NewInterviewSession creates a session in the Initializing state.
func NewInterviewSession(id string, topics []string) *InterviewSession {
	return &InterviewSession{
		ID:        id,
		Topics:    topics,
		StartTime: time.Now().UTC(),
		State:     StateInitializing,
	}
}

// SetQuestions installs the generated question list and poses the first one.
func (s *InterviewSession) SetQuestions(questions []models.Question) {
	s.Questions = questions
	s.CurrentIndex = 0
	s.QuestionStart = time.Now().UTC()
	s.State = StateAwaitingSubmission
}

// CurrentQuestion returns the question at the current index.
func (s *InterviewSession) CurrentQuestion() (models.Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return models.Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// BeginScoring guards the submit transition: legal once per question and
// only while awaiting a submission. The submitted flag is set before the
// evaluation call so a second submit for the same question is rejected while
// the first is still in flight.
func (s *InterviewSession) BeginScoring() error {
	switch s.State {
	case StateCompleted:
		return ErrInterviewCompleted
	case StateInitializing:
		return ErrSessionNotReady
	case StateScoring:
		return ErrAlreadySubmitted
	}
	if s.Submitted {
		return ErrAlreadySubmitted
	}

	s.Submitted = true
	s.State = StateScoring
	return nil
}

// CompleteScoring records the evaluation outcome and either advances to the
// next question or completes the interview. It reports whether the session
// reached its terminal state.
func (s *InterviewSession) CompleteScoring(score int, evaluation models.Evaluation) (completed bool) {
	if s.State != StateScoring {
		return s.State == StateCompleted
	}

	s.Scores = append(s.Scores, score)
	s.LastEvaluation = &evaluation
	s.State = StateAwaitingSubmission

	if s.CurrentIndex+1 >= len(s.Questions) {
		s.complete(false)
		return true
	}

	if err := s.Advance(); err != nil {
		// Defensive: a failed advance must not strand the session.
		s.complete(false)
		return true
	}
	return false
}

// Advance moves to the next question. Only legal from AwaitingSubmission
// once a score has been recorded for the current index; resets the
// per-question hint counter, approach flag and submitted flag.
func (s *InterviewSession) Advance() error {
	if s.State == StateCompleted {
		return ErrInterviewCompleted
	}
	if s.State != StateAwaitingSubmission {
		return ErrInvalidTransition
	}
	if len(s.Scores) <= s.CurrentIndex {
		return ErrScoreNotRecorded
	}

	s.CurrentIndex++
	s.HintsUsed = 0
	s.ApproachDiscussed = false
	s.Submitted = false
	s.QuestionStart = time.Now().UTC()

	if s.CurrentIndex >= len(s.Questions) {
		// Should not happen with a fixed-length question list, but a missing
		// question terminates the session rather than failing.
		s.complete(false)
	}
	return nil
}

// End forces the terminal state from any non-completed state. The current
// unanswered question is not scored retroactively. Calling End on a
// completed session is a no-op.
func (s *InterviewSession) End(manual bool) {
	if s.State == StateCompleted {
		return
	}
	s.complete(manual)
}

func (s *InterviewSession) complete(manual bool) {
	now := time.Now().UTC()
	s.EndTime = &now
	s.EndedManually = manual
	s.State = StateCompleted
}

// IncrementHints bumps the per-question hint counter and returns the new value.
func (s *InterviewSession) IncrementHints() int {
	s.HintsUsed++
	return s.HintsUsed
}

// RecordVoiceResponse appends an approach transcript to the audit trail and
// marks the approach flag for the current question.
func (s *InterviewSession) RecordVoiceResponse(transcript string) {
	question, _ := s.CurrentQuestion()
	s.VoiceResponses = append(s.VoiceResponses, models.VoiceResponse{
		QuestionID: question.ID,
		Transcript: transcript,
		Timestamp:  time.Now().UTC(),
	})
	s.ApproachDiscussed = true
}

// RecordCodeSubmission appends a submission to the audit trail.
func (s *InterviewSession) RecordCodeSubmission(code, language string) {
	question, _ := s.CurrentQuestion()
	s.CodeSubmissions = append(s.CodeSubmissions, models.CodeSubmission{
		QuestionID: question.ID,
		Code:       code,
		Language:   language,
		HintsUsed:  s.HintsUsed,
		Timestamp:  time.Now().UTC(),
	})
}

// AverageScore is the arithmetic mean of recorded scores, 0 when none exist.
func (s *InterviewSession) AverageScore() int {
	if len(s.Scores) == 0 {
		return 0
	}
	total := 0
	for _, score := range s.Scores {
		total += score
	}
	return total / len(s.Scores)
}

// Results builds the completion payload from whatever has been recorded.
func (s *InterviewSession) Results() dto.InterviewResultsPayload {
	end := time.Now().UTC()
	if s.EndTime != nil {
		end = *s.EndTime
	}

	method := models.CompletionMethodAutomatic
	if s.EndedManually {
		method = models.CompletionMethodManual
	}

	scores := make([]int, len(s.Scores))
	copy(scores, s.Scores)

	return dto.InterviewResultsPayload{
		SessionID:          s.ID,
		Topics:             s.Topics,
		TotalQuestions:     len(s.Questions),
		CompletedQuestions: len(s.Scores),
		AverageScore:       s.AverageScore(),
		IndividualScores:   scores,
		TotalTimeSeconds:   int(end.Sub(s.StartTime).Seconds()),
		StartTime:          s.StartTime,
		EndTime:            end,
		CompletionMethod:   method,
		EndedManually:      s.EndedManually,
		VoiceResponses:     s.VoiceResponses,
		CodeSubmissions:    s.CodeSubmissions,
	}
}
