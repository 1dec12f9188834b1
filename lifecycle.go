// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
)

// Session data keys owned by the lifecycle manager.
const (
	sessionDataClientInfo  = "clientInfo"
	sessionDataInitialized = "initialized"
)

// lifecycleManager handles the MCP initialize handshake and lifecycle
// notifications.
type lifecycleManager struct {
	serverInfo Implementation
	logger     Logger
}

func newLifecycleManager(serverInfo Implementation) *lifecycleManager {
	return &lifecycleManager{
		serverInfo: serverInfo,
		logger:     NewNopLogger(),
	}
}

func (m *lifecycleManager) withLogger(logger Logger) *lifecycleManager {
	m.logger = logger
	return m
}

// handleInitialize answers the initialize request and records the client
// implementation on the session.
func (m *lifecycleManager) handleInitialize(ctx context.Context, req *JSONRPCRequest, session Session) (JSONRPCMessage, error) {
	var params InitializeParams
	if err := parseJSONRPCParams(req.Params, &params); err != nil {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "invalid params", err.Error()), nil
	}

	if session != nil {
		session.SetData(sessionDataClientInfo, params.ClientInfo)
	}
	m.logger.Infof("initialize from client %s %s (protocol %s)",
		params.ClientInfo.Name, params.ClientInfo.Version, params.ProtocolVersion)

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: m.serverInfo,
	}, nil
}

// handleInitialized marks the handshake complete for the session.
func (m *lifecycleManager) handleInitialized(ctx context.Context, notification *JSONRPCNotification, session Session) error {
	if session != nil {
		session.SetData(sessionDataInitialized, true)
		m.logger.Debugf("session %s initialized", session.GetID())
	}
	return nil
}
