// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleInitialize(t *testing.T) {
	manager := newLifecycleManager(Implementation{Name: "demoserver", Version: "1.0.0"})
	session := newMemorySession(defaultNotificationBufferSize)

	req := &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      1,
		Request: Request{Method: MethodInitialize},
		Params: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"clientInfo":      map[string]interface{}{"name": "test-client", "version": "2.0.0"},
		},
	}

	msg, err := manager.handleInitialize(context.Background(), req, session)
	require.NoError(t, err)

	result, ok := msg.(*InitializeResult)
	require.True(t, ok, "expected *InitializeResult, got %T", msg)
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "demoserver", result.ServerInfo.Name)
	require.NotNil(t, result.Capabilities.Tools)

	stored, ok := session.GetData(sessionDataClientInfo)
	require.True(t, ok)
	assert.Equal(t, Implementation{Name: "test-client", Version: "2.0.0"}, stored)
}

func TestLifecycleInitialized(t *testing.T) {
	manager := newLifecycleManager(Implementation{Name: "demoserver", Version: "1.0.0"})
	session := newMemorySession(defaultNotificationBufferSize)

	require.NoError(t, manager.handleInitialized(context.Background(),
		NewJSONRPCNotification(MethodNotificationsInitialized, nil), session))

	initialized, ok := session.GetData(sessionDataInitialized)
	require.True(t, ok)
	assert.Equal(t, true, initialized)
}

func TestLifecycleInitializeInvalidParams(t *testing.T) {
	manager := newLifecycleManager(Implementation{Name: "demoserver", Version: "1.0.0"})

	req := &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      1,
		Request: Request{Method: MethodInitialize},
		Params:  "not an object",
	}

	msg, err := manager.handleInitialize(context.Background(), req, nil)
	require.NoError(t, err)

	errResp, ok := msg.(*JSONRPCError)
	require.True(t, ok, "expected *JSONRPCError, got %T", msg)
	assert.Equal(t, ErrCodeInvalidParams, errResp.Error.Code)
}
