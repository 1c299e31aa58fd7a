package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codesage-go-api/internal/models"
	"github.com/noah-isme/codesage-go-api/internal/observability"
	"github.com/noah-isme/codesage-go-api/pkg/ai"
)

const questionMaxTokens = 900

const questionSystemPrompt = "You are a technical interviewer generating coding questions. " +
	"Respond with only a JSON object, no markdown, matching this schema: " +
	`{"question": string, "difficulty": string, "topics": [string], ` +
	`"hints": [string], "test_cases": [{"input": string, "expected": string}], ` +
	`"evaluation_criteria": [string]}`

var genericHintLadder = []string{
	"Think about which data structure gives you the cheapest lookups for this problem.",
	"Re-examine the time complexity of your current approach.",
	"Write out the steps in pseudocode before translating them to code.",
}

var genericEvaluationCriteria = []string{
	"correctness",
	"code quality",
	"efficiency",
	"edge case handling",
}

// QuestionService generates interview questions, locally synthesized when
// the reasoning service fails or returns an unusable shape.
type QuestionService interface {
	Generate(ctx context.Context, id int, topics []string, difficulty string) models.Question
	GenerateSet(ctx context.Context, topics []string, total int) []models.Question
}

type questionService struct {
	completer ai.Completer
	logger    zerolog.Logger
}

// NewQuestionService constructs a question generator.
func NewQuestionService(completer ai.Completer, logger zerolog.Logger) QuestionService {
	return &questionService{
		completer: completer,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

// Generate requests one question from the reasoning service. Exactly one
// outbound call is made; any failure yields the synthesized fallback and the
// returned question is always fully populated.
func (s *questionService) Generate(ctx context.Context, id int, topics []string, difficulty string) models.Question {
	if s.completer == nil {
		return s.fallbackQuestion(id, topics, difficulty)
	}

	prompt := fmt.Sprintf(
		"Generate one %s difficulty coding interview question covering these topics: %s. "+
			"Include 3 progressive hints, 2 illustrative test cases and 3-5 evaluation criteria.",
		difficulty, strings.Join(topics, ", "),
	)

	raw, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:    questionSystemPrompt,
		Prompt:    prompt,
		MaxTokens: questionMaxTokens,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("question_id", id).Msg("question generation failed, using fallback")
		return s.fallbackQuestion(id, topics, difficulty)
	}

	record, err := ai.ParseObject(raw)
	if err != nil {
		s.logger.Warn().Err(err).Int("question_id", id).Msg("question response unparseable, using fallback")
		return s.fallbackQuestion(id, topics, difficulty)
	}

	prompt, ok := record["question"].(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		s.logger.Warn().Int("question_id", id).Msg("question response missing question field, using fallback")
		return s.fallbackQuestion(id, topics, difficulty)
	}

	question := models.Question{
		ID:                 id,
		Prompt:             strings.TrimSpace(prompt),
		Difficulty:         stringField(record, "difficulty", difficulty),
		Topics:             stringSliceField(record, "topics", topics),
		Hints:              stringSliceField(record, "hints", genericHintLadder),
		TestCases:          testCaseField(record, "test_cases"),
		EvaluationCriteria: stringSliceField(record, "evaluation_criteria", genericEvaluationCriteria),
	}
	return question
}

// GenerateSet builds the fixed-length question list for a new session with
// increasing difficulty.
func (s *questionService) GenerateSet(ctx context.Context, topics []string, total int) []models.Question {
	if total <= 0 {
		total = 4
	}

	questions := make([]models.Question, 0, total)
	for i := 0; i < total; i++ {
		difficulty := difficultyForIndex(i, total)
		questions = append(questions, s.Generate(ctx, i+1, topics, difficulty))
	}
	return questions
}

func (s *questionService) fallbackQuestion(id int, topics []string, difficulty string) models.Question {
	observability.FallbackQuestions().Inc()

	topicList := strings.Join(topics, " and ")
	if topicList == "" {
		topicList = "general problem solving"
	}

	prompt := fmt.Sprintf(
		"Write a function that solves a classic %s problem involving %s. "+
			"Explain your approach first, then implement it and walk through how it handles edge cases.",
		difficulty, topicList,
	)

	return models.Question{
		ID:         id,
		Prompt:     prompt,
		Difficulty: difficulty,
		Topics:     topics,
		Hints:      append([]string(nil), genericHintLadder...),
		TestCases: []models.TestCase{
			{Input: "a small representative input", Expected: "the correct output for that input"},
		},
		EvaluationCriteria: append([]string(nil), genericEvaluationCriteria...),
	}
}

// difficultyForIndex maps question position to the ordered difficulty scale:
// the run starts easy, ends hard, and stays medium in between.
func difficultyForIndex(index, total int) string {
	switch {
	case index == 0:
		return models.DifficultyEasy
	case index == total-1:
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

func stringField(record map[string]interface{}, key, fallback string) string {
	if value, ok := record[key].(string); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func stringSliceField(record map[string]interface{}, key string, fallback []string) []string {
	raw, ok := record[key].([]interface{})
	if !ok || len(raw) == 0 {
		return append([]string(nil), fallback...)
	}

	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(str); trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	if len(values) == 0 {
		return append([]string(nil), fallback...)
	}
	return values
}

func testCaseField(record map[string]interface{}, key string) []models.TestCase {
	placeholder := []models.TestCase{
		{Input: "a small representative input", Expected: "the correct output for that input"},
	}

	raw, ok := record[key].([]interface{})
	if !ok || len(raw) == 0 {
		return placeholder
	}

	cases := make([]models.TestCase, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		cases = append(cases, models.TestCase{
			Input:    stringField(entry, "input", ""),
			Expected: stringField(entry, "expected", ""),
		})
	}
	if len(cases) == 0 {
		return placeholder
	}
	return cases
}
