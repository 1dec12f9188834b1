// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
	"time"
)

// requestHandler is the MCP protocol handler interface consumed by the
// transport layer.
type requestHandler interface {
	handleRequest(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error)
	handleNotification(ctx context.Context, notification *JSONRPCNotification, session Session) error
}

// mcpHandler dispatches MCP methods to their managers.
type mcpHandler struct {
	toolManager      *toolManager
	lifecycleManager *lifecycleManager

	// middlewares wrap tool calls.
	middlewares []MiddlewareFunc

	// metrics, when non-nil, records per-method counters and latency.
	metrics *metricsRecorder
}

func newMCPHandler(options ...func(*mcpHandler)) *mcpHandler {
	h := &mcpHandler{}
	for _, option := range options {
		option(h)
	}
	if h.toolManager == nil {
		h.toolManager = newToolManager()
	}
	if h.lifecycleManager == nil {
		h.lifecycleManager = newLifecycleManager(Implementation{})
	}
	return h
}

func withToolManager(manager *toolManager) func(*mcpHandler) {
	return func(h *mcpHandler) {
		h.toolManager = manager
	}
}

func withLifecycleManager(manager *lifecycleManager) func(*mcpHandler) {
	return func(h *mcpHandler) {
		h.lifecycleManager = manager
	}
}

func withHandlerMiddlewares(middlewares []MiddlewareFunc) func(*mcpHandler) {
	return func(h *mcpHandler) {
		h.middlewares = middlewares
	}
}

func withHandlerMetrics(recorder *metricsRecorder) func(*mcpHandler) {
	return func(h *mcpHandler) {
		h.metrics = recorder
	}
}

// requestHandlerFunc is one entry of the request dispatch table.
type requestHandlerFunc func(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error)

func (h *mcpHandler) requestDispatchTable() map[string]requestHandlerFunc {
	return map[string]requestHandlerFunc{
		MethodInitialize: h.handleInitialize,
		MethodPing:       h.handlePing,
		MethodToolsList:  h.handleToolsList,
		MethodToolsCall:  h.handleToolsCall,
	}
}

func (h *mcpHandler) handleRequest(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	start := time.Now()
	if h.metrics != nil {
		h.metrics.recordRequest(ctx, req.Method)
	}

	var msg JSONRPCMessage
	var err error
	if handler, ok := h.requestDispatchTable()[req.Method]; ok {
		msg, err = handler(ctx, req, session)
	} else {
		msg = newJSONRPCErrorResponse(req.ID, ErrCodeMethodNotFound, "method not found", nil)
	}

	if h.metrics != nil {
		h.metrics.recordLatency(ctx, req.Method, float64(time.Since(start).Milliseconds()))
		if errResp, ok := msg.(*JSONRPCError); ok {
			h.metrics.recordError(ctx, req.Method, errResp.Error.Code)
		}
	}
	return msg, err
}

func (h *mcpHandler) handleInitialize(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	return h.lifecycleManager.handleInitialize(ctx, req, session)
}

func (h *mcpHandler) handlePing(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	return map[string]interface{}{}, nil
}

func (h *mcpHandler) handleToolsList(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	return h.toolManager.handleListTools(ctx, req, session)
}

func (h *mcpHandler) handleToolsCall(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	if len(h.middlewares) == 0 {
		return h.toolManager.handleCallTool(ctx, req, session)
	}

	// Run the call through the middleware chain; the final handler hands
	// the (possibly modified) request to the tool manager.
	handler := func(ctx context.Context, request interface{}) (interface{}, error) {
		toolReq := request.(*CallToolRequest)
		modifiedReq := &JSONRPCRequest{
			JSONRPC: req.JSONRPC,
			ID:      req.ID,
			Request: Request{Method: req.Method},
			Params:  toolReq.Params,
		}
		return h.toolManager.handleCallTool(ctx, modifiedReq, session)
	}

	var callReq CallToolRequest
	if err := parseJSONRPCParams(req.Params, &callReq.Params); err != nil {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "invalid params", err.Error()), nil
	}

	result, err := Chain(handler, h.middlewares...)(ctx, &callReq)
	if err != nil {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInternal, "tool call failed", err.Error()), nil
	}
	return result.(JSONRPCMessage), nil
}

func (h *mcpHandler) handleNotification(ctx context.Context, notification *JSONRPCNotification, session Session) error {
	switch notification.Method {
	case MethodNotificationsInitialized:
		return h.lifecycleManager.handleInitialized(ctx, notification, session)
	default:
		// Unknown notifications are ignored.
		return nil
	}
}
