package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codesage-go-api/internal/models"
	"github.com/noah-isme/codesage-go-api/internal/observability"
	"github.com/noah-isme/codesage-go-api/pkg/ai"
)

const evaluationMaxTokens = 700

const evaluationSystemPrompt = "You are a senior engineer scoring a coding interview submission. " +
	"Respond with only a JSON object, no markdown, matching this schema: " +
	`{"score": number 0-100, "feedback": string, "dimensions": {string: string}, ` +
	`"improvement_areas": [string]}`

const fallbackFeedback = "Your submission was recorded. The automated reviewer was unavailable, " +
	"so this score reflects measurable signals: code substance, structure, time taken and hints used."

// EvaluationInput carries everything the evaluator needs about one submission.
type EvaluationInput struct {
	Question           models.Question
	Code               string
	Language           string
	Elapsed            time.Duration
	HintsUsed          int
	ApproachDiscussed  bool
	VoiceResponseCount int
}

// EvaluationService scores code submissions. Every path yields a usable
// evaluation with a score in [0, 100]; reasoning-service failures degrade to
// deterministic heuristic scoring rather than erroring.
type EvaluationService interface {
	Evaluate(ctx context.Context, input EvaluationInput) models.Evaluation
}

type evaluationService struct {
	completer ai.Completer
	logger    zerolog.Logger
}

// NewEvaluationService constructs a submission evaluator.
func NewEvaluationService(completer ai.Completer, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		completer: completer,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, input EvaluationInput) models.Evaluation {
	if s.completer == nil {
		return s.fallbackEvaluation(input)
	}

	raw, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:    evaluationSystemPrompt,
		Prompt:    buildEvaluationPrompt(input),
		MaxTokens: evaluationMaxTokens,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("evaluation request failed, using heuristic score")
		return s.fallbackEvaluation(input)
	}

	record, err := ai.ParseObject(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("evaluation response unparseable, using heuristic score")
		return s.fallbackEvaluation(input)
	}

	score, ok := scoreField(record)
	if !ok {
		s.logger.Warn().Interface("score", record["score"]).Msg("evaluation score missing or out of range, using heuristic score")
		return s.fallbackEvaluation(input)
	}

	feedback := stringField(record, "feedback", "")
	if feedback == "" {
		feedback = "Submission evaluated."
	}

	return models.Evaluation{
		Score:            score,
		Feedback:         feedback,
		Dimensions:       dimensionsField(record),
		ImprovementAreas: stringSliceField(record, "improvement_areas", nil),
	}
}

func (s *evaluationService) fallbackEvaluation(input EvaluationInput) models.Evaluation {
	observability.FallbackEvaluations().Inc()
	return models.Evaluation{
		Score:    fallbackScore(input),
		Feedback: fallbackFeedback,
		Fallback: true,
	}
}

// fallbackScore is the deterministic heuristic used when the reasoning
// service cannot produce a valid score. It is a pure function of the
// submission: same input, same score.
func fallbackScore(input EvaluationInput) int {
	score := 70

	if !input.ApproachDiscussed {
		score -= 15
	} else if input.VoiceResponseCount >= 1 {
		score += 5
	}

	minutes := input.Elapsed.Minutes()
	if minutes > 10 {
		score -= int(math.Min(15, (minutes-10)*2))
	}

	score -= input.HintsUsed * 7

	code := strings.TrimSpace(input.Code)
	if len(code) > 50 {
		score += 5
	}
	if strings.Contains(code, "def ") || strings.Contains(code, "function ") || strings.Contains(code, "class ") {
		score += 8
	}
	if containsControlFlow(code) {
		score += 5
	}

	return clampScore(score)
}

func containsControlFlow(code string) bool {
	lowered := strings.ToLower(code)
	for _, keyword := range []string{"if", "else", "for", "while"} {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func buildEvaluationPrompt(input EvaluationInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question (%s difficulty): %s\n\n", input.Question.Difficulty, input.Question.Prompt)
	if len(input.Question.EvaluationCriteria) > 0 {
		fmt.Fprintf(&b, "Evaluation criteria: %s\n\n", strings.Join(input.Question.EvaluationCriteria, ", "))
	}
	fmt.Fprintf(&b, "Candidate submission (%s):\n%s\n\n", input.Language, input.Code)
	fmt.Fprintf(&b, "Time taken: %d seconds\n", int(input.Elapsed.Seconds()))
	fmt.Fprintf(&b, "Hints used: %d\n", input.HintsUsed)
	if input.ApproachDiscussed {
		b.WriteString("The candidate discussed their approach aloud before coding.\n")
	} else {
		b.WriteString("The candidate did not discuss their approach before coding.\n")
	}
	b.WriteString("\nScore the submission against the criteria and explain the main strengths and gaps.")

	return b.String()
}

// scoreField accepts only a numeric score inside [0, 100].
func scoreField(record map[string]interface{}) (int, bool) {
	raw, ok := record["score"]
	if !ok {
		return 0, false
	}

	var value float64
	switch n := raw.(type) {
	case float64:
		value = n
	case int:
		value = float64(n)
	default:
		return 0, false
	}

	if value < 0 || value > 100 {
		return 0, false
	}
	return int(value), true
}

func dimensionsField(record map[string]interface{}) map[string]string {
	raw, ok := record["dimensions"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}

	dimensions := make(map[string]string, len(raw))
	for key, value := range raw {
		if str, ok := value.(string); ok {
			dimensions[key] = str
		}
	}
	if len(dimensions) == 0 {
		return nil
	}
	return dimensions
}
