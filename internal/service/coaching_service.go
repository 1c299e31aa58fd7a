package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codesage-go-api/internal/models"
	"github.com/noah-isme/codesage-go-api/pkg/ai"
)

const (
	hintMaxTokens     = 150
	approachMaxTokens = 200
)

const hintSystemPrompt = "You are a technical interviewer. Give one short, contextual hint " +
	"that nudges the candidate without revealing the solution. Respond with the hint text only."

const approachSystemPrompt = "You are a technical interviewer. Give brief, encouraging feedback " +
	"on the candidate's spoken approach before they start coding. Two sentences at most. " +
	"Respond with the feedback text only."

const staticApproachFeedback = "Thanks for walking through your approach. " +
	"Keep edge cases and the time complexity of your solution in mind as you implement it."

// CoachingService produces hints and approach feedback during a question.
// Both outputs are advisory text; failures degrade to canned responses and
// never surface as errors.
type CoachingService interface {
	Hint(ctx context.Context, question models.Question, hintsUsed int) string
	ApproachFeedback(ctx context.Context, question models.Question, transcript string) string
}

type coachingService struct {
	completer ai.Completer
	logger    zerolog.Logger
}

// NewCoachingService constructs a coaching service.
func NewCoachingService(completer ai.Completer, logger zerolog.Logger) CoachingService {
	return &coachingService{
		completer: completer,
		logger:    logger.With().Str("component", "coaching_service").Logger(),
	}
}

// Hint returns one hint for the current question. A contextual hint from the
// reasoning service is preferred; otherwise the question's pre-generated
// hints are walked in order, then the generic ladder. hintsUsed is the count
// before this request, so the first request gets the first hint.
func (s *coachingService) Hint(ctx context.Context, question models.Question, hintsUsed int) string {
	if s.completer != nil {
		prompt := fmt.Sprintf(
			"Question: %s\n\nThe candidate has already used %d hint(s). Give hint number %d.",
			question.Prompt, hintsUsed, hintsUsed+1,
		)
		raw, err := s.completer.Complete(ctx, ai.CompletionRequest{
			System:    hintSystemPrompt,
			Prompt:    prompt,
			MaxTokens: hintMaxTokens,
		})
		if err == nil {
			if hint := strings.TrimSpace(raw); hint != "" {
				return hint
			}
		} else {
			s.logger.Warn().Err(err).Int("question_id", question.ID).Msg("hint generation failed, using pre-generated hints")
		}
	}

	if len(question.Hints) > 0 {
		index := hintsUsed
		if index >= len(question.Hints) {
			index = len(question.Hints) - 1
		}
		return question.Hints[index]
	}

	index := hintsUsed
	if index >= len(genericHintLadder) {
		index = len(genericHintLadder) - 1
	}
	return genericHintLadder[index]
}

// ApproachFeedback returns advisory feedback on a spoken approach. The
// transcript is never scored; on any failure a static acknowledgement is
// returned so the candidate can keep moving.
func (s *coachingService) ApproachFeedback(ctx context.Context, question models.Question, transcript string) string {
	if s.completer == nil {
		return staticApproachFeedback
	}

	prompt := fmt.Sprintf(
		"Question: %s\n\nCandidate's spoken approach:\n%s",
		question.Prompt, transcript,
	)
	raw, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:    approachSystemPrompt,
		Prompt:    prompt,
		MaxTokens: approachMaxTokens,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("question_id", question.ID).Msg("approach feedback failed, using static acknowledgement")
		return staticApproachFeedback
	}

	feedback := strings.TrimSpace(raw)
	if feedback == "" {
		return staticApproachFeedback
	}
	return feedback
}
