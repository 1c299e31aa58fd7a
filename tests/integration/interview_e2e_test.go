package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codesage-go-api/internal/handler"
	"github.com/noah-isme/codesage-go-api/internal/middleware"
	"github.com/noah-isme/codesage-go-api/internal/models"
	"github.com/noah-isme/codesage-go-api/internal/repository"
	"github.com/noah-isme/codesage-go-api/internal/service"
	"github.com/noah-isme/codesage-go-api/pkg/ai"
)

type offlineCompleter struct{}

func (offlineCompleter) Complete(context.Context, ai.CompletionRequest) (string, error) {
	return "", errors.New("reasoning service unavailable")
}

func setupInterviewApp(t *testing.T) (*fiber.App, *gorm.DB, service.InterviewService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Interview{}, &models.QuestionResponse{}))
	t.Cleanup(func() {
		require.NoError(t, db.Migrator().DropTable(&models.Interview{}, &models.QuestionResponse{}))
	})

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	completer := offlineCompleter{}

	interviewService := service.NewInterviewService(
		service.NewQuestionService(completer, logger),
		service.NewEvaluationService(completer, logger),
		service.NewCoachingService(completer, logger),
		repository.NewInterviewRepository(db),
		service.NewSessionRegistry(),
		redisClient,
		"codesage",
		nil,
		validate,
		logger,
		4,
		30*time.Minute,
	)

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	handler.NewInterviewHandler(interviewService, logger).Register(app.Group("/api/v1/interview"))

	return app, db, interviewService
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

func dialInterview(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/interview/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendClientMessage(t *testing.T, conn *websocket.Conn, message map[string]interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(message))
}

func readServerMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &message))
	return message
}

func TestInterviewWebsocketFullFlow(t *testing.T) {
	app, db, interviewService := setupInterviewApp(t)
	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	conn := dialInterview(t, baseURL)

	// Init without topics is rejected but the connection survives.
	sendClientMessage(t, conn, map[string]interface{}{"type": "init"})
	message := readServerMessage(t, conn)
	require.Equal(t, "error", message["type"])

	sendClientMessage(t, conn, map[string]interface{}{
		"type":   "init",
		"topics": []string{"arrays", "graphs"},
	})
	message = readServerMessage(t, conn)
	require.Equal(t, "question", message["type"])
	require.Equal(t, float64(1), message["question_number"])
	require.Equal(t, float64(4), message["total_questions"])
	require.NotEmpty(t, message["question"])

	sendClientMessage(t, conn, map[string]interface{}{"type": "request_hint"})
	message = readServerMessage(t, conn)
	require.Equal(t, "hint", message["type"])
	require.Equal(t, float64(1), message["hints_used"])
	require.NotEmpty(t, message["hint"])

	sendClientMessage(t, conn, map[string]interface{}{
		"type":       "voice_approach",
		"transcript": "I will walk the array once keeping a running maximum.",
	})
	message = readServerMessage(t, conn)
	require.Equal(t, "approach_feedback", message["type"])
	require.NotEmpty(t, message["feedback"])

	sendClientMessage(t, conn, map[string]interface{}{
		"type":       "submit",
		"code":       "def max_value(xs):\n    best = xs[0]\n    for x in xs:\n        if x > best: best = x\n    return best",
		"language":   "python",
		"elapsed_ms": 3 * 60 * 1000,
	})
	message = readServerMessage(t, conn)
	require.Equal(t, "question_complete", message["type"])
	require.Equal(t, float64(1), message["question_number"])
	require.Equal(t, float64(3), message["remaining_questions"])

	message = readServerMessage(t, conn)
	require.Equal(t, "question", message["type"])
	require.Equal(t, float64(2), message["question_number"])

	sendClientMessage(t, conn, map[string]interface{}{"type": "end"})
	message = readServerMessage(t, conn)
	require.Equal(t, "interview_complete", message["type"])

	results, ok := message["results"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1), results["completed_questions"])
	require.Equal(t, "manually_ended", results["completion_method"])
	require.Equal(t, true, results["interview_ended_manually"])

	sessionID, ok := results["session_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, sessionID)

	// Persistence is fire-and-forget; wait for the completed row to land.
	require.Eventually(t, func() bool {
		var interview models.Interview
		if err := db.Where("session_id = ?", sessionID).First(&interview).Error; err != nil {
			return false
		}
		return interview.Status == models.InterviewStatusCompleted
	}, 3*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&models.QuestionResponse{}).Where("session_id = ?", sessionID).Count(&count)
		return count == 1
	}, 3*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := interviewService.CachedResults(context.Background(), sessionID)
		return ok
	}, 3*time.Second, 50*time.Millisecond)
}

func TestInterviewWebsocketMalformedPayload(t *testing.T) {
	app, _, _ := setupInterviewApp(t)
	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	conn := dialInterview(t, baseURL)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json at all")))
	message := readServerMessage(t, conn)
	require.Equal(t, "error", message["type"])

	sendClientMessage(t, conn, map[string]interface{}{"type": "dance"})
	message = readServerMessage(t, conn)
	require.Equal(t, "error", message["type"])
	require.Contains(t, message["error"], "unknown message type")

	// The connection is still usable afterwards.
	sendClientMessage(t, conn, map[string]interface{}{
		"type":   "init",
		"topics": []string{"strings"},
	})
	message = readServerMessage(t, conn)
	require.Equal(t, "question", message["type"])
}
