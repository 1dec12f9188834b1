// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const (
	// defaultServerAddress is the default listen address.
	defaultServerAddress = "localhost:3001"
	// defaultServerPath is the MCP endpoint path.
	defaultServerPath = "/mcp"
	// defaultNotificationBufferSize bounds queued notifications per session.
	defaultNotificationBufferSize = 10
)

// CORS defaults: all origins, the protocol's request headers, and the
// session header exposed so browser clients can read it.
var (
	corsAllowedHeaders = []string{
		"Authorization",
		"x-client-authorization",
		"Content-Type",
		headerSessionID,
	}
	corsExposedHeaders = []string{headerSessionID}
)

// serverConfig stores all server configuration options.
type serverConfig struct {
	addr string
	path string

	authorizer  Authorizer
	corsEnabled bool

	notificationBufferSize int

	// middlewares wrap tool calls.
	middlewares []MiddlewareFunc

	// limiter, when set, bounds the request rate across all callers.
	limiter *rate.Limiter

	metricsEnabled bool
}

// Server is the MCP auth gateway: an HTTP server that gates every inbound
// operation behind the two-token auth gate before it reaches the session
// transport and tool registry.
type Server struct {
	serverInfo Implementation
	config     *serverConfig
	logger     Logger

	toolManager *toolManager
	mcpHandler  *mcpHandler
	httpHandler *httpServerHandler
	registry    *sessionRegistry

	customServer *http.Server
	rootHandler  http.Handler
}

// ServerOption configures the server.
type ServerOption func(*Server)

// NewServer creates a gateway server.
func NewServer(name, version string, options ...ServerOption) *Server {
	server := &Server{
		serverInfo: Implementation{Name: name, Version: version},
		config: &serverConfig{
			addr:                   defaultServerAddress,
			path:                   defaultServerPath,
			corsEnabled:            true,
			notificationBufferSize: defaultNotificationBufferSize,
		},
	}

	for _, option := range options {
		option(server)
	}

	if server.logger == nil {
		server.logger = NewProductionLogger()
	}

	server.initComponents()
	return server
}

// initComponents wires the handler stages: CORS, rate limit, auth gate,
// session transport. Each stage either continues with attached context or
// short-circuits with a terminal response.
func (s *Server) initComponents() {
	lifecycleManager := newLifecycleManager(s.serverInfo).withLogger(s.logger)

	toolManager := newToolManager().withLogger(s.logger)
	if s.config.authorizer != nil {
		toolManager.withAuthorizer(s.config.authorizer)
	}
	s.toolManager = toolManager

	handlerOptions := []func(*mcpHandler){
		withToolManager(toolManager),
		withLifecycleManager(lifecycleManager),
	}
	if len(s.config.middlewares) > 0 {
		handlerOptions = append(handlerOptions, withHandlerMiddlewares(s.config.middlewares))
	}
	if s.config.metricsEnabled {
		handlerOptions = append(handlerOptions, withHandlerMetrics(newMetricsRecorder()))
	}
	s.mcpHandler = newMCPHandler(handlerOptions...)

	s.registry = newSessionRegistry(s.config.notificationBufferSize)
	s.httpHandler = newHTTPServerHandler(s.mcpHandler,
		withTransportLogger(s.logger),
		withTransportRegistry(s.registry),
	)

	var handler http.Handler = s.httpHandler
	if s.config.authorizer != nil {
		handler = newAuthMiddleware(s.config.authorizer, s.serverInfo.Name, s.logger)(handler)
	} else {
		s.logger.Warnf("no authorizer configured; requests are not gated")
	}
	if s.config.limiter != nil {
		handler = newRateLimitMiddleware(s.config.limiter)(handler)
	}
	if s.config.corsEnabled {
		handler = newCORSMiddleware()(handler)
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.path, handler)

	s.customServer = &http.Server{Addr: s.config.addr, Handler: mux}
	s.rootHandler = mux
}

// WithServerAddress sets the listen address.
func WithServerAddress(addr string) ServerOption {
	return func(s *Server) {
		s.config.addr = addr
	}
}

// WithServerPath sets the MCP endpoint path.
func WithServerPath(path string) ServerOption {
	return func(s *Server) {
		s.config.path = path
	}
}

// WithServerLogger sets the logger for the server and all subcomponents.
func WithServerLogger(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAuthorizer installs the policy-decision client. It gates both the
// connect-level check at the auth gate and the per-tool checks at listing
// and invocation.
func WithAuthorizer(authorizer Authorizer) ServerOption {
	return func(s *Server) {
		s.config.authorizer = authorizer
	}
}

// WithToolCallMiddleware appends middleware applied to tools/call requests.
func WithToolCallMiddleware(middlewares ...MiddlewareFunc) ServerOption {
	return func(s *Server) {
		s.config.middlewares = append(s.config.middlewares, middlewares...)
	}
}

// WithNotificationBufferSize sets the per-session notification buffer size.
func WithNotificationBufferSize(size int) ServerOption {
	return func(s *Server) {
		s.config.notificationBufferSize = size
	}
}

// WithRateLimit bounds the aggregate request rate. Requests above the
// limit are rejected with 429 before reaching the auth gate.
func WithRateLimit(limiter *rate.Limiter) ServerOption {
	return func(s *Server) {
		s.config.limiter = limiter
	}
}

// WithoutCORS disables the CORS stage.
func WithoutCORS() ServerOption {
	return func(s *Server) {
		s.config.corsEnabled = false
	}
}

// WithMetrics enables per-method request metrics through the global
// OpenTelemetry meter provider.
func WithMetrics() ServerOption {
	return func(s *Server) {
		s.config.metricsEnabled = true
	}
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	return s.customServer.ListenAndServe()
}

// Shutdown closes every active session, then stops the HTTP server.
// Per-session close failures are logged, not escalated.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infof("shutting down server")
	s.registry.closeAll(s.logger)
	return s.customServer.Shutdown(ctx)
}

// Handler returns the server's top-level HTTP handler, for mounting into
// an existing mux or for tests.
func (s *Server) Handler() http.Handler {
	return s.rootHandler
}

// RegisterTool registers a tool with its handler function.
func (s *Server) RegisterTool(tool *Tool, handler toolHandler) {
	s.toolManager.registerTool(tool, handler)
}

// GetTool retrieves a registered tool by name. The returned tool is a
// copy to prevent accidental modification.
func (s *Server) GetTool(name string) (Tool, bool) {
	tool, ok := s.toolManager.getTool(name)
	if !ok {
		return Tool{}, false
	}
	return *tool, true
}

// GetTools returns copies of all registered tools in registration order.
func (s *Server) GetTools() []Tool {
	toolPtrs := s.toolManager.getTools()
	tools := make([]Tool, 0, len(toolPtrs))
	for _, toolPtr := range toolPtrs {
		tools = append(tools, *toolPtr)
	}
	return tools
}

// SetToolEnabled flips a tool's enabled flag.
func (s *Server) SetToolEnabled(name string, enabled bool) bool {
	return s.toolManager.setToolEnabled(name, enabled)
}

// SendNotification queues a notification for a specific session's stream.
func (s *Server) SendNotification(sessionID, method string, params map[string]interface{}) error {
	return s.httpHandler.sendNotification(sessionID, NewJSONRPCNotification(method, params))
}

// GetActiveSessions returns all active session identifiers.
func (s *Server) GetActiveSessions() []string {
	return s.httpHandler.getActiveSessions()
}

// GetServerInfo returns the server implementation information.
func (s *Server) GetServerInfo() Implementation {
	return s.serverInfo
}

// newCORSMiddleware permits all origins and answers preflight requests.
func newCORSMiddleware() func(http.Handler) http.Handler {
	allowed := strings.Join(corsAllowedHeaders, ", ")
	exposed := strings.Join(corsExposedHeaders, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowed)
			w.Header().Set("Access-Control-Expose-Headers", exposed)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// newRateLimitMiddleware rejects requests above the configured rate.
func newRateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions && !limiter.Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
