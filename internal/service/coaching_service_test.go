package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesage-go-api/internal/models"
)

func coachingQuestion() models.Question {
	return models.Question{
		ID:     2,
		Prompt: "Find the first non-repeating character in a string.",
		Hints:  []string{"Count occurrences first.", "A map gives O(1) lookups.", "Walk the string a second time."},
	}
}

func TestCoachingServiceReturnsContextualHint(t *testing.T) {
	completer := &stubCompleter{response: "  Try a frequency map.  "}
	svc := NewCoachingService(completer, zerolog.Nop())

	hint := svc.Hint(context.Background(), coachingQuestion(), 0)

	require.Equal(t, "Try a frequency map.", hint)
	require.Equal(t, 1, completer.calls)
}

func TestCoachingServiceWalksPreGeneratedHints(t *testing.T) {
	completer := &stubCompleter{err: errors.New("unavailable")}
	svc := NewCoachingService(completer, zerolog.Nop())
	question := coachingQuestion()

	require.Equal(t, question.Hints[0], svc.Hint(context.Background(), question, 0))
	require.Equal(t, question.Hints[1], svc.Hint(context.Background(), question, 1))
	require.Equal(t, question.Hints[2], svc.Hint(context.Background(), question, 2))
	// Past the end the last hint repeats.
	require.Equal(t, question.Hints[2], svc.Hint(context.Background(), question, 7))
}

func TestCoachingServiceUsesGenericLadderWithoutQuestionHints(t *testing.T) {
	svc := NewCoachingService(nil, zerolog.Nop())
	question := models.Question{ID: 3, Prompt: "Merge two sorted lists."}

	require.Equal(t, genericHintLadder[0], svc.Hint(context.Background(), question, 0))
	require.Equal(t, genericHintLadder[2], svc.Hint(context.Background(), question, 2))
	require.Equal(t, genericHintLadder[2], svc.Hint(context.Background(), question, 9))
}

func TestCoachingServiceEmptyHintFallsThrough(t *testing.T) {
	completer := &stubCompleter{response: "   "}
	svc := NewCoachingService(completer, zerolog.Nop())
	question := coachingQuestion()

	require.Equal(t, question.Hints[0], svc.Hint(context.Background(), question, 0))
}

func TestCoachingServiceApproachFeedback(t *testing.T) {
	completer := &stubCompleter{response: "Good plan. Watch out for the empty string."}
	svc := NewCoachingService(completer, zerolog.Nop())

	feedback := svc.ApproachFeedback(context.Background(), coachingQuestion(), "I will count characters with a map.")

	require.Equal(t, "Good plan. Watch out for the empty string.", feedback)
}

func TestCoachingServiceApproachFeedbackFallsBack(t *testing.T) {
	completer := &stubCompleter{err: errors.New("unavailable")}
	svc := NewCoachingService(completer, zerolog.Nop())

	feedback := svc.ApproachFeedback(context.Background(), coachingQuestion(), "I will brute force it.")

	require.Equal(t, staticApproachFeedback, feedback)
}
