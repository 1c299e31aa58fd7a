package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/codesage-go-api/internal/dto"
	"github.com/noah-isme/codesage-go-api/internal/middleware"
	"github.com/noah-isme/codesage-go-api/internal/models"
	"github.com/noah-isme/codesage-go-api/internal/observability"
	"github.com/noah-isme/codesage-go-api/internal/repository"
)

const (
	interviewSendBufferSize = 16
	persistTimeout          = 5 * time.Second
	defaultTotalQuestions   = 4
	defaultResultTTL        = 30 * time.Minute
)

var canonicalTopics = []string{
	"arrays",
	"strings",
	"hash maps",
	"linked lists",
	"trees",
	"graphs",
	"sorting and searching",
	"recursion",
	"dynamic programming",
	"system design basics",
}

// InterviewConnectionOptions wraps metadata extracted during the HTTP upgrade.
type InterviewConnectionOptions struct {
	CorrelationID string
	Context       context.Context
}

// InterviewService runs interview sessions over websocket connections and
// exposes read access to cached results.
type InterviewService interface {
	ServeConnection(conn *websocket.Conn, opts InterviewConnectionOptions)
	Topics() []string
	CachedResults(ctx context.Context, sessionID string) (dto.InterviewResultsPayload, bool)
}

type interviewService struct {
	questions QuestionService
	evaluator EvaluationService
	coaching  CoachingService
	repo      repository.InterviewRepository
	registry  *SessionRegistry

	redis       *redis.Client
	redisCache  string
	nats        *nats.Conn
	natsSubject string

	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer

	totalQuestions int
	resultTTL      time.Duration
	nodeID         string
}

// interviewClient pairs one websocket connection with at most one session.
// All inbound messages are processed sequentially by the reader goroutine;
// the writer goroutine drains the send queue.
type interviewClient struct {
	conn     *websocket.Conn
	send     chan interface{}
	service  *interviewService
	session  *InterviewSession
	finished bool

	closed     chan struct{}
	once       sync.Once
	removeOnce sync.Once
	baseCtx    context.Context
}

type interviewCompletedEvent struct {
	Source    string                      `json:"source"`
	SessionID string                      `json:"session_id"`
	Results   dto.InterviewResultsPayload `json:"results"`
	SentAt    time.Time                   `json:"sent_at"`
}

// NewInterviewService creates the websocket interview service.
func NewInterviewService(
	questions QuestionService,
	evaluator EvaluationService,
	coaching CoachingService,
	repo repository.InterviewRepository,
	registry *SessionRegistry,
	redisClient *redis.Client,
	channelBase string,
	natsConn *nats.Conn,
	validate *validator.Validate,
	logger zerolog.Logger,
	totalQuestions int,
	resultTTL time.Duration,
) InterviewService {
	if totalQuestions <= 0 {
		totalQuestions = defaultTotalQuestions
	}
	if resultTTL <= 0 {
		resultTTL = defaultResultTTL
	}

	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		cachePrefix = channelBase + ":interview:results"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".interview.completed"
	}

	return &interviewService{
		questions:      questions,
		evaluator:      evaluator,
		coaching:       coaching,
		repo:           repo,
		registry:       registry,
		redis:          redisClient,
		redisCache:     cachePrefix,
		nats:           natsConn,
		natsSubject:    natsSubject,
		validator:      validate,
		sanitizer:      bluemonday.StrictPolicy(),
		logger:         logger.With().Str("component", "interview_service").Logger(),
		tracer:         otel.Tracer("github.com/noah-isme/codesage-go-api/internal/service/interview"),
		totalQuestions: totalQuestions,
		resultTTL:      resultTTL,
		nodeID:         uuid.NewString(),
	}
}

func (s *interviewService) ServeConnection(conn *websocket.Conn, opts InterviewConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &interviewClient{
		conn:    conn,
		send:    make(chan interface{}, interviewSendBufferSize),
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	go client.writer()
	client.reader(opts.CorrelationID)
}

// Topics lists the canonical interview topics offered to candidates.
func (s *interviewService) Topics() []string {
	topics := make([]string, len(canonicalTopics))
	copy(topics, canonicalTopics)
	return topics
}

// dispatch routes one inbound message. Protocol violations become structured
// error messages on the send queue; the connection stays open.
func (s *interviewService) dispatch(ctx context.Context, client *interviewClient, msg dto.InterviewClientMessage) {
	switch msg.Type {
	case dto.ClientMessageInit:
		s.handleInit(ctx, client, msg)
	case dto.ClientMessageSubmit:
		s.handleSubmit(ctx, client, msg)
	case dto.ClientMessageRequestHint:
		s.handleHint(ctx, client)
	case dto.ClientMessageApproach:
		s.handleApproach(ctx, client, msg)
	case dto.ClientMessageEnd:
		s.handleEnd(client)
	default:
		client.enqueue(dto.NewErrorMessage(fmt.Sprintf("unknown message type: %s", msg.Type)))
	}
}

func (s *interviewService) handleInit(ctx context.Context, client *interviewClient, msg dto.InterviewClientMessage) {
	if client.session != nil {
		client.enqueue(dto.NewErrorMessage("interview already initialized"))
		return
	}

	topics := make([]string, 0, len(msg.Topics))
	for _, topic := range msg.Topics {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			topics = append(topics, trimmed)
		}
	}
	if len(topics) == 0 {
		client.enqueue(dto.NewErrorMessage("at least one topic is required"))
		return
	}

	session := NewInterviewSession(uuid.NewString(), topics)
	client.session = session
	s.registry.Put(session)
	observability.InterviewsStarted().Inc()
	observability.ActiveSessions().Inc()

	s.persistAsync("create_session", func(ctx context.Context) error {
		return s.repo.CreateSession(ctx, newInterviewRecord(session, s.totalQuestions))
	})

	spanCtx, span := s.tracer.Start(ctx, "interview.init", trace.WithAttributes(
		attribute.String("interview.session_id", session.ID),
		attribute.StringSlice("interview.topics", topics),
	))
	questions := s.questions.GenerateSet(spanCtx, topics, s.totalQuestions)
	span.End()

	session.SetQuestions(questions)

	first, ok := session.CurrentQuestion()
	if !ok {
		client.enqueue(dto.NewErrorMessage("failed to prepare interview questions"))
		return
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Strs("topics", topics).
		Int("total_questions", len(questions)).
		Msg("interview session started")

	client.enqueue(dto.NewQuestionMessage(1, len(questions), first))
}

func (s *interviewService) handleSubmit(ctx context.Context, client *interviewClient, msg dto.InterviewClientMessage) {
	session := client.session
	if session == nil {
		client.enqueue(dto.NewErrorMessage("no active interview; send init first"))
		return
	}

	if err := session.BeginScoring(); err != nil {
		client.enqueue(dto.NewErrorMessage(protocolErrorText(err)))
		return
	}

	question, _ := session.CurrentQuestion()
	session.RecordCodeSubmission(msg.Code, msg.Language)

	elapsed := time.Duration(msg.ElapsedMS) * time.Millisecond
	if elapsed <= 0 {
		elapsed = time.Since(session.QuestionStart)
	}

	// Captured before scoring completes; advancing resets the counters.
	index := session.CurrentIndex
	hintsUsed := session.HintsUsed

	spanCtx, span := s.tracer.Start(ctx, "interview.evaluate", trace.WithAttributes(
		attribute.String("interview.session_id", session.ID),
		attribute.Int("interview.question_index", index+1),
	))
	evaluation := s.evaluator.Evaluate(spanCtx, EvaluationInput{
		Question:           question,
		Code:               msg.Code,
		Language:           msg.Language,
		Elapsed:            elapsed,
		HintsUsed:          hintsUsed,
		ApproachDiscussed:  session.ApproachDiscussed,
		VoiceResponseCount: len(session.VoiceResponses),
	})
	span.End()

	completed := session.CompleteScoring(evaluation.Score, evaluation)

	s.persistAsync("store_question_response", func(ctx context.Context) error {
		return s.repo.StoreQuestionResponse(ctx, &models.QuestionResponse{
			SessionID:     session.ID,
			QuestionIndex: index + 1,
			QuestionText:  question.Prompt,
			UserResponse:  msg.Code,
			Score:         evaluation.Score,
			Feedback:      evaluation.Feedback,
			TimeTakenMS:   elapsed.Milliseconds(),
			HintsUsed:     hintsUsed,
			Difficulty:    question.Difficulty,
		})
	})

	client.enqueue(dto.QuestionCompleteMessage{
		Type:               dto.ServerMessageQuestionComplete,
		QuestionNumber:     index + 1,
		Score:              evaluation.Score,
		Feedback:           evaluation.Feedback,
		RemainingQuestions: len(session.Questions) - len(session.Scores),
	})

	if completed {
		s.finish(client)
		return
	}

	next, ok := session.CurrentQuestion()
	if !ok {
		session.End(false)
		s.finish(client)
		return
	}

	currentIndex := session.CurrentIndex
	scored := len(session.Scores)
	s.persistAsync("update_progress", func(ctx context.Context) error {
		return s.repo.UpdateProgress(ctx, session.ID, currentIndex, scored)
	})

	client.enqueue(dto.NewQuestionMessage(currentIndex+1, len(session.Questions), next))
}

func (s *interviewService) handleHint(ctx context.Context, client *interviewClient) {
	session := client.session
	if session == nil {
		client.enqueue(dto.NewErrorMessage("no active interview; send init first"))
		return
	}
	if session.State == StateCompleted {
		client.enqueue(dto.NewErrorMessage("interview already completed"))
		return
	}

	question, ok := session.CurrentQuestion()
	if !ok {
		client.enqueue(dto.NewErrorMessage("no question is currently active"))
		return
	}

	hint := s.coaching.Hint(ctx, question, session.HintsUsed)
	used := session.IncrementHints()

	client.enqueue(dto.HintMessage{
		Type:      dto.ServerMessageHint,
		Hint:      hint,
		HintsUsed: used,
	})
}

func (s *interviewService) handleApproach(ctx context.Context, client *interviewClient, msg dto.InterviewClientMessage) {
	session := client.session
	if session == nil {
		client.enqueue(dto.NewErrorMessage("no active interview; send init first"))
		return
	}
	if session.State == StateCompleted {
		client.enqueue(dto.NewErrorMessage("interview already completed"))
		return
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(msg.Transcript))
	if clean == "" {
		client.enqueue(dto.NewErrorMessage("transcript is empty"))
		return
	}

	question, _ := session.CurrentQuestion()
	session.RecordVoiceResponse(clean)

	feedback := s.coaching.ApproachFeedback(ctx, question, clean)

	client.enqueue(dto.ApproachFeedbackMessage{
		Type:       dto.ServerMessageApproachFeedback,
		Feedback:   feedback,
		Transcript: clean,
	})
}

func (s *interviewService) handleEnd(client *interviewClient) {
	session := client.session
	if session == nil {
		client.enqueue(dto.NewErrorMessage("no active interview; send init first"))
		return
	}

	session.End(true)
	s.finish(client)
}

// finish emits the completion payload exactly once per session and kicks off
// the fire-and-forget persistence, cache and event publication.
func (s *interviewService) finish(client *interviewClient) {
	if client.finished {
		return
	}
	client.finished = true

	session := client.session
	session.End(false)
	results := session.Results()

	observability.InterviewsCompleted().WithLabelValues(results.CompletionMethod).Inc()

	s.persistAsync("complete_interview", func(ctx context.Context) error {
		return s.repo.Complete(ctx, session.ID, completedInterviewRecord(results))
	})
	s.persistAsync("cache_results", func(ctx context.Context) error {
		return s.cacheResults(ctx, results)
	})
	s.persistAsync("publish_completed", func(ctx context.Context) error {
		return s.publishCompleted(results)
	})

	s.logger.Info().
		Str("session_id", session.ID).
		Int("completed_questions", results.CompletedQuestions).
		Int("average_score", results.AverageScore).
		Str("completion_method", results.CompletionMethod).
		Msg("interview session completed")

	client.enqueue(dto.InterviewCompleteMessage{
		Type:    dto.ServerMessageComplete,
		Results: results,
	})

	client.removeSession()
}

// CachedResults returns the completion payload from the result cache, if the
// session finished recently enough for its entry to still be live.
func (s *interviewService) CachedResults(ctx context.Context, sessionID string) (dto.InterviewResultsPayload, bool) {
	if s.redis == nil || s.redisCache == "" {
		return dto.InterviewResultsPayload{}, false
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, sessionID)
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return dto.InterviewResultsPayload{}, false
	}

	var results dto.InterviewResultsPayload
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to unmarshal cached results")
		return dto.InterviewResultsPayload{}, false
	}
	return results, true
}

func (s *interviewService) cacheResults(ctx context.Context, results dto.InterviewResultsPayload) error {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, results.SessionID)
	return s.redis.Set(ctx, key, payload, s.resultTTL).Err()
}

func (s *interviewService) publishCompleted(results dto.InterviewResultsPayload) error {
	if s.nats == nil || s.natsSubject == "" {
		return nil
	}

	payload, err := json.Marshal(interviewCompletedEvent{
		Source:    s.nodeID,
		SessionID: results.SessionID,
		Results:   results,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.nats.Publish(s.natsSubject, payload)
}

// persistAsync runs one persistence side effect off the handler goroutine.
// Failures are logged and never block or terminate the interview.
func (s *interviewService) persistAsync(op string, fn func(ctx context.Context) error) {
	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn().Err(err).Str("op", op).Msg("interview persistence failed")
		}
	}()
}

func protocolErrorText(err error) string {
	switch err {
	case ErrInterviewCompleted:
		return "interview already completed"
	case ErrSessionNotReady:
		return "questions are still being prepared"
	case ErrAlreadySubmitted:
		return "current question already submitted"
	default:
		return err.Error()
	}
}

func newInterviewRecord(session *InterviewSession, totalQuestions int) *models.Interview {
	topics, _ := json.Marshal(session.Topics)
	start := session.StartTime

	return &models.Interview{
		SessionID:            session.ID,
		InterviewType:        "technical",
		Topics:               datatypes.JSON(topics),
		Status:               models.InterviewStatusInProgress,
		TotalQuestions:       totalQuestions,
		CurrentQuestionIndex: 1,
		StartTime:            &start,
	}
}

func completedInterviewRecord(results dto.InterviewResultsPayload) models.Interview {
	scores, _ := json.Marshal(results.IndividualScores)
	end := results.EndTime

	final := datatypes.JSONMap{}
	if raw, err := json.Marshal(results); err == nil {
		_ = json.Unmarshal(raw, &final)
	}

	return models.Interview{
		EndTime:            &end,
		Duration:           results.TotalTimeSeconds,
		CompletedQuestions: results.CompletedQuestions,
		AverageScore:       results.AverageScore,
		IndividualScores:   datatypes.JSON(scores),
		FinalResults:       final,
		CompletionMethod:   results.CompletionMethod,
	}
}

func (c *interviewClient) reader(correlation string) {
	defer c.close()

	connCtx := c.baseCtx
	if connCtx == nil {
		connCtx = context.Background()
	}
	if correlation == "" {
		correlation = middleware.CorrelationIDFromContext(connCtx)
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.service.logger.Debug().Err(err).Str("correlation_id", correlation).Msg("interview read loop ended")
			return
		}

		var msg dto.InterviewClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(dto.NewErrorMessage("invalid message: expected a JSON object"))
			continue
		}
		if err := c.service.validator.Struct(msg); err != nil {
			c.enqueue(dto.NewErrorMessage("message type is required"))
			continue
		}

		c.service.dispatch(connCtx, c, msg)

		select {
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *interviewClient) writer() {
	defer c.close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("interview write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("interview ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *interviewClient) enqueue(message interface{}) {
	select {
	case c.send <- message:
	default:
		c.service.logger.Warn().Msg("send queue full, dropping interview message")
	}
}

func (c *interviewClient) removeSession() {
	c.removeOnce.Do(func() {
		if c.session == nil {
			return
		}
		c.service.registry.Remove(c.session.ID)
		observability.ActiveSessions().Dec()
	})
}

func (c *interviewClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.removeSession()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
