package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesage-go-api/internal/models"
)

func TestQuestionServiceParsesGeneratedQuestion(t *testing.T) {
	completer := &stubCompleter{
		response: `{"question": "Implement an LRU cache.", "difficulty": "medium", ` +
			`"topics": ["data structures"], "hints": ["Pair a map with a list."], ` +
			`"test_cases": [{"input": "capacity 2, put 1, put 2, get 1", "expected": "1"}], ` +
			`"evaluation_criteria": ["correctness", "efficiency"]}`,
	}
	svc := NewQuestionService(completer, zerolog.Nop())

	question := svc.Generate(context.Background(), 1, []string{"data structures"}, models.DifficultyMedium)

	require.Equal(t, 1, question.ID)
	require.Equal(t, "Implement an LRU cache.", question.Prompt)
	require.Equal(t, models.DifficultyMedium, question.Difficulty)
	require.Equal(t, []string{"Pair a map with a list."}, question.Hints)
	require.Len(t, question.TestCases, 1)
	require.Equal(t, []string{"correctness", "efficiency"}, question.EvaluationCriteria)
}

func TestQuestionServiceFallsBackOnError(t *testing.T) {
	completer := &stubCompleter{err: errors.New("upstream timeout")}
	svc := NewQuestionService(completer, zerolog.Nop())

	question := svc.Generate(context.Background(), 2, []string{"algorithms"}, models.DifficultyHard)

	require.Equal(t, 2, question.ID)
	require.NotEmpty(t, question.Prompt)
	require.Equal(t, models.DifficultyHard, question.Difficulty)
	require.NotEmpty(t, question.Hints)
	require.NotEmpty(t, question.TestCases)
	require.NotEmpty(t, question.EvaluationCriteria)
}

func TestQuestionServiceFallsBackOnMissingQuestionField(t *testing.T) {
	completer := &stubCompleter{response: `{"difficulty": "easy"}`}
	svc := NewQuestionService(completer, zerolog.Nop())

	question := svc.Generate(context.Background(), 1, []string{"arrays"}, models.DifficultyEasy)

	require.NotEmpty(t, question.Prompt)
	require.Equal(t, models.DifficultyEasy, question.Difficulty)
}

func TestQuestionServiceBackfillsPartialResponse(t *testing.T) {
	completer := &stubCompleter{response: `{"question": "Reverse a string in place."}`}
	svc := NewQuestionService(completer, zerolog.Nop())

	question := svc.Generate(context.Background(), 3, []string{"strings"}, models.DifficultyEasy)

	require.Equal(t, "Reverse a string in place.", question.Prompt)
	require.Equal(t, models.DifficultyEasy, question.Difficulty)
	require.Equal(t, []string{"strings"}, question.Topics)
	require.NotEmpty(t, question.Hints)
	require.NotEmpty(t, question.TestCases)
	require.NotEmpty(t, question.EvaluationCriteria)
}

func TestQuestionServiceSetFollowsDifficultyLadder(t *testing.T) {
	completer := &stubCompleter{err: errors.New("unavailable")}
	svc := NewQuestionService(completer, zerolog.Nop())

	questions := svc.GenerateSet(context.Background(), []string{"graphs"}, 4)

	require.Len(t, questions, 4)
	require.Equal(t, models.DifficultyEasy, questions[0].Difficulty)
	require.Equal(t, models.DifficultyMedium, questions[1].Difficulty)
	require.Equal(t, models.DifficultyMedium, questions[2].Difficulty)
	require.Equal(t, models.DifficultyHard, questions[3].Difficulty)

	for i, question := range questions {
		require.Equal(t, i+1, question.ID)
	}
}
