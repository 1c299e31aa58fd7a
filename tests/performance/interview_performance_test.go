package performance_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesage-go-api/internal/handler"
	"github.com/noah-isme/codesage-go-api/internal/middleware"
	"github.com/noah-isme/codesage-go-api/internal/service"
	"github.com/noah-isme/codesage-go-api/pkg/ai"
)

type offlineCompleter struct{}

func (offlineCompleter) Complete(context.Context, ai.CompletionRequest) (string, error) {
	return "", errors.New("reasoning service unavailable")
}

func TestInterviewWebsocketInitP95Under500ms(t *testing.T) {
	logger := zerolog.Nop()
	completer := offlineCompleter{}

	interviewService := service.NewInterviewService(
		service.NewQuestionService(completer, logger),
		service.NewEvaluationService(completer, logger),
		service.NewCoachingService(completer, logger),
		nil,
		service.NewSessionRegistry(),
		nil,
		"",
		nil,
		validator.New(),
		logger,
		4,
		0,
	)

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	handler.NewInterviewHandler(interviewService, logger).Register(app.Group("/api/v1/interview"))

	baseURL, shutdown := startPerfServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/interview/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	clients := 100
	durations := make([]time.Duration, 0, clients)

	for i := 0; i < clients; i++ {
		start := time.Now()

		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		if err := conn.WriteJSON(map[string]interface{}{
			"type":   "init",
			"topics": []string{"arrays"},
		}); err != nil {
			t.Fatalf("init write failed: %v", err)
		}

		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("first question read failed: %v", err)
		}

		var message map[string]interface{}
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("invalid server message: %v", err)
		}
		if message["type"] != "question" {
			t.Fatalf("expected question message, got %v", message["type"])
		}

		_ = conn.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 500*time.Millisecond {
		t.Fatalf("expected init P95 <= 500ms, got %s", p95)
	}
}

func percentile(durations []time.Duration, q float64) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	index := int(math.Ceil(q*float64(len(durations)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(durations) {
		index = len(durations) - 1
	}
	return durations[index]
}

func startPerfServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

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
