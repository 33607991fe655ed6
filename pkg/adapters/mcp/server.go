package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/runner"
	"github.com/aretw0/stepwise/pkg/session"
)

// Resource URIs exposed by the server.
const (
	SurveyURI = "stepwise://survey"
	GraphURI  = "stepwise://graph"
)

// StepResponse is the structured result of every session tool.
type StepResponse struct {
	SessionID  string                   `json:"session_id" jsonschema_description:"The session the result belongs to"`
	State      domain.NavigationState   `json:"state" jsonschema_description:"Navigation position of the session"`
	Step       *domain.Step             `json:"step,omitempty" jsonschema_description:"The step to answer next; absent once completed"`
	Responses  domain.ResponseMap       `json:"responses" jsonschema_description:"Answers stored so far"`
	Violations []domain.Violation       `json:"violations,omitempty" jsonschema_description:"Rules broken by the last submission"`
	Result     *domain.SubmissionResult `json:"result,omitempty" jsonschema_description:"The submission, when the session just completed"`
	Completed  bool                     `json:"completed" jsonschema_description:"Whether the survey is complete"`
}

// Server exposes a session.Service as an MCP server.
type Server struct {
	service   *session.Service
	mcpServer *server.MCPServer
	maxInput  int
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxInputSize bounds every string answer, in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxInput = n
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc *session.Service, opts ...Option) *Server {
	s := &Server{
		service:   svc,
		mcpServer: server.NewMCPServer("stepwise-mcp", strings.TrimSpace(stepwise.Version)),
		maxInput:  runner.MaxInputSize(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionParam := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_session"))

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a survey session, or resume it when session_id already exists."),
		mcp.WithString("session_id", mcp.Description("Optional session ID; generated when omitted")),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("current_step",
		mcp.WithDescription("Get the step a session is on, with the answers stored so far."),
		sessionParam,
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleCurrent))

	s.mcpServer.AddTool(mcp.NewTool("submit_step",
		mcp.WithDescription("Submit the answers of the current step. Rejected answers are reported in violations and the session stays on the step."),
		sessionParam,
		mcp.WithString("answers", mcp.Required(), mcp.Description(`JSON object mapping question IDs to answers, e.g. {"q1": "yes"}`)),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("go_back",
		mcp.WithDescription("Return to the previously shown step."),
		sessionParam,
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleBack))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Clear every answer and return to the first step."),
		sessionParam,
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("get_survey",
		mcp.WithDescription("Get the survey definition."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.service.Survey())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode survey: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	id, _ := args["session_id"].(string)
	view, err := s.service.Start(ctx, id)
	if err != nil {
		return StepResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return fromView(view), nil
}

func (s *Server) handleCurrent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	view, err := s.service.Get(ctx, sessionID(args))
	if err != nil {
		return StepResponse{}, fmt.Errorf("lookup failed: %w", err)
	}
	return fromView(view), nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	answers, err := parseAnswers(args["answers"])
	if err != nil {
		return StepResponse{}, err
	}
	clean, err := runner.SanitizeAnswers(answers, s.maxInput)
	if err != nil {
		s.logger.Warn("MCP submit: input rejected", "error", err)
		return StepResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	view, err := s.service.Next(ctx, sessionID(args), clean)
	if err != nil {
		return StepResponse{}, fmt.Errorf("submit failed: %w", err)
	}
	return fromView(view), nil
}

func (s *Server) handleBack(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	view, err := s.service.Back(ctx, sessionID(args))
	if err != nil {
		return StepResponse{}, fmt.Errorf("back failed: %w", err)
	}
	return fromView(view), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	view, err := s.service.Reset(ctx, sessionID(args))
	if err != nil {
		return StepResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return fromView(view), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SurveyURI, "Survey Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.service.Survey())
		if err != nil {
			return nil, fmt.Errorf("failed to encode survey: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: SurveyURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Survey Flow (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: GraphURI, MIMEType: "text/plain", Text: graph.GenerateMermaid(s.service.Survey(), nil)},
		}, nil
	})
}

func sessionID(args map[string]interface{}) string {
	id, _ := args["session_id"].(string)
	return id
}

// parseAnswers accepts a JSON object or a JSON-encoded string of one.
func parseAnswers(raw any) (domain.ResponseMap, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return domain.ResponseMap(v), nil
	case string:
		answers := domain.ResponseMap{}
		if strings.TrimSpace(v) == "" {
			return answers, nil
		}
		if err := json.Unmarshal([]byte(v), &answers); err != nil {
			return nil, fmt.Errorf("answers must be a JSON object: %w", err)
		}
		return answers, nil
	case nil:
		return domain.ResponseMap{}, nil
	}
	return nil, fmt.Errorf("answers must be a JSON object, got %T", raw)
}

func fromView(v *session.View) StepResponse {
	return StepResponse{
		SessionID:  v.SessionID,
		State:      v.State,
		Step:       v.Step,
		Responses:  v.Responses,
		Violations: v.Violations,
		Result:     v.Result,
		Completed:  v.State.Completed,
	}
}
