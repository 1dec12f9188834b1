// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTP header and content-type constants.
const (
	headerContentType = "Content-Type"
	headerSessionID   = "Mcp-Session-Id"

	contentTypeJSON = "application/json"
	contentTypeSSE  = "text/event-stream"
)

// httpServerHandler terminates the streamable HTTP transport: it resolves
// or creates the session for each request, serializes delivery within a
// session, and hands protocol messages to the MCP handler.
type httpServerHandler struct {
	handler  requestHandler
	registry *sessionRegistry
	logger   Logger
}

func newHTTPServerHandler(handler requestHandler, options ...func(*httpServerHandler)) *httpServerHandler {
	h := &httpServerHandler{
		handler: handler,
		logger:  NewNopLogger(),
	}
	for _, option := range options {
		option(h)
	}
	if h.registry == nil {
		h.registry = newSessionRegistry(defaultNotificationBufferSize)
	}
	return h
}

func withTransportLogger(logger Logger) func(*httpServerHandler) {
	return func(h *httpServerHandler) {
		h.logger = logger
	}
}

func withTransportRegistry(registry *sessionRegistry) func(*httpServerHandler) {
	return func(h *httpServerHandler) {
		h.registry = registry
	}
}

func (h *httpServerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeJSON writes a JSON body with the given status.
func (h *httpServerHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Errorf("failed to write response: %v", err)
	}
}

// writeNoValidSession writes the structured bad-request error used for a
// missing or unknown session identifier.
func (h *httpServerHandler) writeNoValidSession(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusBadRequest,
		newJSONRPCErrorResponse(nil, ErrCodeBadRequest, "Bad Request: No valid session ID provided", nil))
}

// handlePost delivers one protocol message. The very first message of a
// session arrives without a session header and must be an initialize
// request; everything else must reference a live session.
func (h *httpServerHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Errorf("panic handling request: %v", rec)
			h.writeJSON(w, http.StatusInternalServerError,
				newJSONRPCErrorResponse(nil, ErrCodeInternal, "Internal server error", nil))
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest,
			newJSONRPCErrorResponse(nil, ErrCodeParse, "failed to read request body", nil))
		return
	}

	var raw rawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		h.writeJSON(w, http.StatusBadRequest,
			newJSONRPCErrorResponse(nil, ErrCodeParse, "parse error", nil))
		return
	}

	var session *memorySession
	sessionID := r.Header.Get(headerSessionID)
	if sessionID == "" {
		if !isInitializeRequest(body) {
			h.writeNoValidSession(w)
			return
		}
		// The mapping is stored before the message is delivered.
		session = h.registry.create()
		w.Header().Set(headerSessionID, session.GetID())
		h.logger.Infof("session initialized with ID: %s", session.GetID())
	} else {
		var ok bool
		session, ok = h.registry.resolve(sessionID)
		if !ok {
			h.writeNoValidSession(w)
			return
		}
	}

	// Serialize delivery within the session; arrival order is preserved.
	session.dispatchMu.Lock()
	defer session.dispatchMu.Unlock()

	ctx := r.Context()

	if raw.ID == nil {
		var notification JSONRPCNotification
		if err := json.Unmarshal(body, &notification); err != nil {
			h.writeJSON(w, http.StatusBadRequest,
				newJSONRPCErrorResponse(nil, ErrCodeParse, "parse error", nil))
			return
		}
		if err := h.handler.handleNotification(ctx, &notification, session); err != nil {
			h.logger.Errorf("error handling notification %s: %v", notification.Method, err)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest,
			newJSONRPCErrorResponse(nil, ErrCodeParse, "parse error", nil))
		return
	}

	result, err := h.handler.handleRequest(ctx, &req, session)
	if err != nil {
		h.logger.Errorf("error handling MCP request %s: %v", req.Method, err)
		h.writeJSON(w, http.StatusInternalServerError,
			newJSONRPCErrorResponse(req.ID, ErrCodeInternal, "Internal server error", nil))
		return
	}

	switch msg := result.(type) {
	case *JSONRPCError:
		h.writeJSON(w, http.StatusOK, msg)
	case *JSONRPCResponse:
		h.writeJSON(w, http.StatusOK, msg)
	default:
		h.writeJSON(w, http.StatusOK, newJSONRPCResponse(req.ID, result))
	}
}

// handleGet streams queued server notifications for an existing session
// over SSE until the client disconnects or the session closes.
func (h *httpServerHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(r)
	if !ok {
		http.Error(w, "Invalid or missing session ID", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(headerContentType, contentTypeSSE)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(headerSessionID, session.GetID())
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.closed:
			return
		case notification := <-session.notifyCh:
			data, err := json.Marshal(notification)
			if err != nil {
				h.logger.Errorf("failed to marshal notification: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleDelete terminates an existing session. A second DELETE for the
// same identifier reports not-found rather than faulting.
func (h *httpServerHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(r)
	if !ok {
		http.Error(w, "Invalid or missing session ID", http.StatusBadRequest)
		return
	}

	h.registry.remove(session.GetID())
	h.logger.Infof("session terminated: %s", session.GetID())
	w.WriteHeader(http.StatusOK)
}

// sessionFromRequest resolves the session named by the request header.
func (h *httpServerHandler) sessionFromRequest(r *http.Request) (*memorySession, bool) {
	sessionID := r.Header.Get(headerSessionID)
	if sessionID == "" {
		return nil, false
	}
	return h.registry.resolve(sessionID)
}

// sendNotification queues a notification for the named session.
func (h *httpServerHandler) sendNotification(sessionID string, notification *JSONRPCNotification) error {
	session, ok := h.registry.resolve(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session.sendNotification(notification)
}

// getActiveSessions returns the identifiers of all live sessions.
func (h *httpServerHandler) getActiveSessions() []string {
	return h.registry.activeSessions()
}
