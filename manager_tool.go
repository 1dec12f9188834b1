// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/birenderpal/mcp-auth-gateway/internal/authz"
)

// toolHandler executes one tool call.
type toolHandler func(ctx context.Context, req *CallToolRequest) (*CallToolResult, error)

// registeredTool pairs a tool descriptor with its handler.
type registeredTool struct {
	tool    *Tool
	handler toolHandler
}

// toolManager owns the tool registry: an explicit name-to-descriptor map
// populated by registration calls at startup and iterated in insertion
// order for listing. Listing and invocation are both gated per tool by the
// authorizer.
type toolManager struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
	order []string

	authorizer Authorizer
	logger     Logger
}

func newToolManager() *toolManager {
	return &toolManager{
		tools:  make(map[string]*registeredTool),
		logger: NewNopLogger(),
	}
}

func (m *toolManager) withLogger(logger Logger) *toolManager {
	m.logger = logger
	return m
}

func (m *toolManager) withAuthorizer(authorizer Authorizer) *toolManager {
	m.authorizer = authorizer
	return m
}

// registerTool adds a tool. Registering an existing name replaces it
// without disturbing the listing order.
func (m *toolManager) registerTool(tool *Tool, handler toolHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tools[tool.Name]; !exists {
		m.order = append(m.order, tool.Name)
	}
	m.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// getTool returns the registered tool by name.
func (m *toolManager) getTool(name string) (*Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.tools[name]
	if !ok {
		return nil, false
	}
	return entry.tool, true
}

// getTools returns all registered tools in insertion order.
func (m *toolManager) getTools() []*Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tools := make([]*Tool, 0, len(m.order))
	for _, name := range m.order {
		tools = append(tools, m.tools[name].tool)
	}
	return tools
}

// setToolEnabled flips the enabled flag that gates listing and invocation.
func (m *toolManager) setToolEnabled(name string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.tools[name]
	if !ok {
		return false
	}
	entry.tool.Enabled = enabled
	return true
}

// authorizeTool runs a fresh per-tool authorization check with the
// caller's client token. A nil authorizer disables the check.
func (m *toolManager) authorizeTool(ctx context.Context, toolName string) (bool, error) {
	if m.authorizer == nil {
		return true, nil
	}
	info, ok := AuthInfoFromContext(ctx)
	if !ok {
		return false, nil
	}
	return m.authorizer.IsAuthorized(ctx, authz.Input{
		AccessToken:  info.Token,
		ActionID:     authz.ActionCall,
		ResourceType: authz.ResourceTypeTool,
		ResourceName: toolName,
	})
}

// handleListTools returns the tools that are both enabled and authorized
// for the caller. An upstream authorization failure fails the whole
// request; it must never be read as an empty list.
func (m *toolManager) handleListTools(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	listed := make([]Tool, 0)
	for _, tool := range m.getTools() {
		if !tool.Enabled {
			continue
		}
		allowed, err := m.authorizeTool(ctx, tool.Name)
		if err != nil {
			m.logger.Errorf("tool list authorization check failed for %s: %v", tool.Name, err)
			return newJSONRPCErrorResponse(req.ID, ErrCodeInternal, "authorization check failed", nil), nil
		}
		if allowed {
			listed = append(listed, *tool)
		}
	}
	return &ListToolsResult{Tools: listed}, nil
}

// handleCallTool executes one tool call. Authorization is re-checked at
// the invocation boundary: a listing-time ALLOW does not imply a call-time
// ALLOW. Denials and tool failures come back as isError results so the
// session stays alive.
func (m *toolManager) handleCallTool(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	var callReq CallToolRequest
	if err := parseJSONRPCParams(req.Params, &callReq.Params); err != nil {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "invalid params", err.Error()), nil
	}

	name := callReq.Params.Name
	entry := m.lookup(name)
	if entry == nil || !entry.tool.Enabled {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams,
			fmt.Sprintf("%s: %s", ErrToolNotFound.Error(), name), nil), nil
	}

	allowed, err := m.authorizeTool(ctx, name)
	if err != nil {
		if errorIsUpstream(err) {
			m.logger.Errorf("tool call authorization unavailable for %s: %v", name, err)
		}
		return newJSONRPCErrorResponse(req.ID, ErrCodeInternal, "authorization check failed", nil), nil
	}
	if !allowed {
		return NewErrorResult(fmt.Sprintf("not authorized to call tool %s", name)), nil
	}

	m.logger.Infof("tool called: %s", name)
	result, err := entry.handler(ctx, &callReq)
	if err != nil {
		// Tool-level failures are ordinary results, not protocol faults.
		return NewErrorResult(fmt.Sprintf("Error executing tool %s: %v", name, err)), nil
	}
	return result, nil
}

func (m *toolManager) lookup(name string) *registeredTool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tools[name]
}
