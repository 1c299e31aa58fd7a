package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codesage-go-api/internal/models"
)

// InterviewRepository exposes persistence helpers for interview sessions.
// All writes are dispatched fire-and-forget by the interview service; the
// in-memory session is the source of truth while the connection is live.
type InterviewRepository interface {
	CreateSession(ctx context.Context, interview *models.Interview) error
	UpdateProgress(ctx context.Context, sessionID string, currentIndex, completed int) error
	StoreQuestionResponse(ctx context.Context, response *models.QuestionResponse) error
	Complete(ctx context.Context, sessionID string, update models.Interview) error
	GetBySessionID(ctx context.Context, sessionID string) (models.Interview, error)
	List(ctx context.Context, limit int) ([]models.Interview, error)
	ListQuestionResponses(ctx context.Context, sessionID string) ([]models.QuestionResponse, error)
}

// NewInterviewRepository constructs an interview repository.
func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

type interviewRepository struct {
	db *gorm.DB
}

func (r *interviewRepository) CreateSession(ctx context.Context, interview *models.Interview) error {
	return r.db.WithContext(ctx).Create(interview).Error
}

func (r *interviewRepository) UpdateProgress(ctx context.Context, sessionID string, currentIndex, completed int) error {
	// currentIndex arrives 0-based from the session; stored 1-based.
	return r.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"current_question_index": currentIndex + 1,
			"completed_questions":    completed,
		}).Error
}

func (r *interviewRepository) StoreQuestionResponse(ctx context.Context, response *models.QuestionResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *interviewRepository) Complete(ctx context.Context, sessionID string, update models.Interview) error {
	return r.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":              models.InterviewStatusCompleted,
			"end_time":            update.EndTime,
			"duration":            update.Duration,
			"completed_questions": update.CompletedQuestions,
			"average_score":       update.AverageScore,
			"individual_scores":   update.IndividualScores,
			"final_results":       update.FinalResults,
			"completion_method":   update.CompletionMethod,
		}).Error
}

func (r *interviewRepository) GetBySessionID(ctx context.Context, sessionID string) (models.Interview, error) {
	var interview models.Interview
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&interview).Error
	if err != nil {
		return models.Interview{}, err
	}
	return interview, nil
}

func (r *interviewRepository) List(ctx context.Context, limit int) ([]models.Interview, error) {
	if limit <= 0 {
		limit = 50
	}

	var interviews []models.Interview
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&interviews).Error
	if err != nil {
		return nil, err
	}
	return interviews, nil
}

func (r *interviewRepository) ListQuestionResponses(ctx context.Context, sessionID string) ([]models.QuestionResponse, error) {
	var responses []models.QuestionResponse
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_index ASC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}
	return responses, nil
}
