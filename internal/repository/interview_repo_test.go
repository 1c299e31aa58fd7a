package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codesage-go-api/internal/models"
)

func setupInterviewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Interview{}, &models.QuestionResponse{}))

	t.Cleanup(func() {
		require.NoError(t, db.Migrator().DropTable(&models.Interview{}, &models.QuestionResponse{}))
	})

	return db
}

func seedInterview(t *testing.T, repo InterviewRepository, sessionID string) {
	t.Helper()

	topics, err := json.Marshal([]string{"arrays"})
	require.NoError(t, err)

	start := time.Now().UTC()
	require.NoError(t, repo.CreateSession(context.Background(), &models.Interview{
		SessionID:            sessionID,
		InterviewType:        "technical",
		Topics:               datatypes.JSON(topics),
		Status:               models.InterviewStatusInProgress,
		TotalQuestions:       4,
		CurrentQuestionIndex: 1,
		StartTime:            &start,
	}))
}

func TestInterviewRepositoryCreateAndGet(t *testing.T) {
	repo := NewInterviewRepository(setupInterviewTestDB(t))
	seedInterview(t, repo, "sess-1")

	interview, err := repo.GetBySessionID(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", interview.SessionID)
	require.Equal(t, models.InterviewStatusInProgress, interview.Status)
	require.Equal(t, 1, interview.CurrentQuestionIndex)

	_, err = repo.GetBySessionID(context.Background(), "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInterviewRepositoryUpdateProgressStoresOneBasedIndex(t *testing.T) {
	repo := NewInterviewRepository(setupInterviewTestDB(t))
	seedInterview(t, repo, "sess-1")

	require.NoError(t, repo.UpdateProgress(context.Background(), "sess-1", 2, 2))

	interview, err := repo.GetBySessionID(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 3, interview.CurrentQuestionIndex)
	require.Equal(t, 2, interview.CompletedQuestions)
}

func TestInterviewRepositoryComplete(t *testing.T) {
	repo := NewInterviewRepository(setupInterviewTestDB(t))
	seedInterview(t, repo, "sess-1")

	scores, err := json.Marshal([]int{70, 85})
	require.NoError(t, err)

	end := time.Now().UTC()
	require.NoError(t, repo.Complete(context.Background(), "sess-1", models.Interview{
		EndTime:            &end,
		Duration:           720,
		CompletedQuestions: 2,
		AverageScore:       77,
		IndividualScores:   datatypes.JSON(scores),
		FinalResults:       datatypes.JSONMap{"session_id": "sess-1", "average_score": float64(77)},
		CompletionMethod:   models.CompletionMethodManual,
	}))

	interview, err := repo.GetBySessionID(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, models.InterviewStatusCompleted, interview.Status)
	require.Equal(t, 77, interview.AverageScore)
	require.Equal(t, models.CompletionMethodManual, interview.CompletionMethod)
	require.NotNil(t, interview.EndTime)
	require.Equal(t, "sess-1", interview.FinalResults["session_id"])
}

func TestInterviewRepositoryList(t *testing.T) {
	repo := NewInterviewRepository(setupInterviewTestDB(t))
	seedInterview(t, repo, "sess-1")
	seedInterview(t, repo, "sess-2")
	seedInterview(t, repo, "sess-3")

	interviews, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, interviews, 2)

	all, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestInterviewRepositoryQuestionResponses(t *testing.T) {
	repo := NewInterviewRepository(setupInterviewTestDB(t))
	seedInterview(t, repo, "sess-1")

	second := &models.QuestionResponse{
		SessionID:     "sess-1",
		QuestionIndex: 2,
		QuestionText:  "second question",
		UserResponse:  "code",
		Score:         64,
		Difficulty:    models.DifficultyMedium,
	}
	first := &models.QuestionResponse{
		SessionID:     "sess-1",
		QuestionIndex: 1,
		QuestionText:  "first question",
		UserResponse:  "code",
		Score:         82,
		TimeTakenMS:   240000,
		HintsUsed:     1,
		Difficulty:    models.DifficultyEasy,
	}
	require.NoError(t, repo.StoreQuestionResponse(context.Background(), second))
	require.NoError(t, repo.StoreQuestionResponse(context.Background(), first))

	responses, err := repo.ListQuestionResponses(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, responses, 2)
	require.Equal(t, 1, responses[0].QuestionIndex)
	require.Equal(t, 2, responses[1].QuestionIndex)

	none, err := repo.ListQuestionResponses(context.Background(), "other")
	require.NoError(t, err)
	require.Empty(t, none)
}
