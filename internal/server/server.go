package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmbridge/internal/catalog"
	"llmbridge/internal/config"
	"llmbridge/internal/engine"
	"llmbridge/internal/models"
	"llmbridge/internal/observability"
	"llmbridge/internal/translator"
	"llmbridge/internal/usage"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 120 * time.Second
	idleTimeout         = 120 * time.Second
)

// Server exposes the engine over HTTP. The engine imposes no deadline on
// provider calls; the listener's write timeout is the only outer bound, so
// deployments fronting slow providers should tune it.
type Server struct {
	cfg     config.Config
	engine  *engine.Engine
	ledger  *usage.Ledger
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
// ledger may be nil when usage persistence is disabled.
func New(cfg config.Config, eng *engine.Engine, ledger *usage.Ledger) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))

	srv := &Server{
		cfg:     cfg,
		engine:  eng,
		ledger:  ledger,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.app.GET("/api/llm/models", s.handleListModels)
	s.app.POST("/api/llm/completion", s.handleCompletion)
	s.app.POST("/api/llm/embedding", s.handleEmbedding)
	s.app.GET("/api/llm/usage", s.handleUsage)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"models": s.engine.ListModels(),
	})
}

func (s *Server) handleCompletion(c echo.Context) error {
	var req translator.CompletionRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if req.Stream {
		return s.streamCompletion(c, req)
	}

	ctx := c.Request().Context()
	start := time.Now()
	result, err := s.engine.Generate(ctx, req.ToEngine())
	observability.RequestDuration.WithLabelValues("completion", req.Model).
		Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RequestsTotal.WithLabelValues("completion", req.Model, "error").Inc()
		return toHTTPError(err)
	}

	observability.RequestsTotal.WithLabelValues("completion", req.Model, "ok").Inc()
	observability.ObserveUsage(req.Model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	s.recordUsage(ctx, req.Model, "completion", result.Usage)

	return c.JSON(http.StatusOK, result)
}

func (s *Server) streamCompletion(c echo.Context, req translator.CompletionRequest) error {
	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		slog.Error("http writer does not support flushing")
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
			Type:    "server_error",
		}
	}

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	ctx := c.Request().Context()
	for chunk, err := range s.engine.Stream(ctx, req.ToEngine()) {
		if err != nil {
			observability.RequestsTotal.WithLabelValues("stream", req.Model, "error").Inc()
			writeErr := writeSSEEvent(writer, "error", translator.StreamError{
				Error: err.Error(),
				Model: req.Model,
			})
			if writeErr != nil {
				slog.Error("failed to write SSE error event", "err", writeErr)
			}
			flusher.Flush()
			return nil
		}

		if err := writeSSEEvent(writer, "chunk", chunk); err != nil {
			slog.Error("failed to write SSE chunk", "index", chunk.Index, "err", err)
			return nil
		}
		flusher.Flush()
	}

	observability.RequestsTotal.WithLabelValues("stream", req.Model, "ok").Inc()
	return nil
}

func (s *Server) handleEmbedding(c echo.Context) error {
	var req translator.EmbeddingRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	start := time.Now()
	result, err := s.engine.Embed(ctx, req.ToEngine())
	observability.RequestDuration.WithLabelValues("embedding", req.Model).
		Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RequestsTotal.WithLabelValues("embedding", req.Model, "error").Inc()
		return toHTTPError(err)
	}

	observability.RequestsTotal.WithLabelValues("embedding", req.Model, "ok").Inc()
	observability.ObserveUsage(req.Model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	s.recordUsage(ctx, req.Model, "embedding", result.Usage)

	return c.JSON(http.StatusOK, translator.FromEmbeddingResult(result))
}

func (s *Server) handleUsage(c echo.Context) error {
	if s.ledger == nil {
		return requestError{
			Status:  http.StatusNotFound,
			Message: "usage ledger is not enabled",
			Type:    "invalid_request_error",
		}
	}

	totals, err := s.ledger.Totals(c.Request().Context())
	if err != nil {
		slog.Error("failed to query usage totals", "err", err)
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "failed to query usage totals",
			Type:    "server_error",
		}
	}
	if totals == nil {
		totals = []usage.Total{}
	}

	return c.JSON(http.StatusOK, map[string]any{"totals": totals})
}

// recordUsage appends to the ledger when enabled. Measurement must never fail
// the request, so errors are logged and dropped.
func (s *Server) recordUsage(ctx context.Context, modelID, operation string, u models.UsageRecord) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, modelID, operation, u); err != nil {
		slog.Warn("failed to record usage", "model", modelID, "operation", operation, "err", err)
	}
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		_ = writeError(c, echoErr.Code, fmt.Sprintf("%v", echoErr.Message), "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, catalog.ErrUnknownModel):
		return requestError{
			Status:  http.StatusNotFound,
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "model_not_found",
		}
	case errors.Is(err, engine.ErrUnsupportedModality),
		errors.Is(err, engine.ErrInvalidParameter):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
		}
	case errors.Is(err, engine.ErrProviderTimeout):
		return requestError{
			Status:  http.StatusGatewayTimeout,
			Message: err.Error(),
			Type:    "upstream_error",
		}
	case errors.Is(err, engine.ErrDegenerateVector),
		errors.Is(err, engine.ErrGenerationFailed):
		return requestError{
			Status:  http.StatusBadGateway,
			Message: err.Error(),
			Type:    "upstream_error",
		}
	}

	return requestError{
		Status:  http.StatusBadGateway,
		Message: "upstream provider error",
		Type:    "upstream_error",
	}
}

func writeSSEEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write SSE event name: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write SSE data: %w", err)
	}
	return nil
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("llmbridge ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /metrics")
	fmt.Println("  GET  /api/llm/models")
	fmt.Println("  POST /api/llm/completion")
	fmt.Println("  POST /api/llm/embedding")
	fmt.Println("  GET  /api/llm/usage")
	fmt.Printf("Example:\n  curl http://%s:%d/api/llm/completion -H 'Content-Type: application/json' -d '{\"model\":\"gpt-4\",\"prompt\":\"hello\"}'\n\n", host, port)
}
