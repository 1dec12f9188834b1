// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTool(t *testing.T) {
	tool := NewTool("lookup",
		WithDescription("Look something up"),
		WithString("query", Description("Search query"), Required()),
		WithString("limit"))

	assert.Equal(t, "lookup", tool.Name)
	assert.Equal(t, "Look something up", tool.Description)
	assert.True(t, tool.Enabled)
	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.Equal(t, []string{"query"}, tool.InputSchema.Required)

	query, ok := tool.InputSchema.Properties["query"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])
	// The required marker moves to the schema's required list.
	assert.NotContains(t, query, "required")

	disabled := NewTool("hidden", WithDisabled())
	assert.False(t, disabled.Enabled)
}

func TestToolJSONOmitsEnabled(t *testing.T) {
	data, err := json.Marshal(NewTool("lookup"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Enabled")
	assert.NotContains(t, string(data), "enabled")
}

func TestCallToolResults(t *testing.T) {
	ok := NewTextResult("done")
	assert.False(t, ok.IsError)
	require.Len(t, ok.Content, 1)
	assert.Equal(t, TextContent{Type: ContentTypeText, Text: "done"}, ok.Content[0])

	failed := NewErrorResult("broken")
	assert.True(t, failed.IsError)
	assert.Equal(t, "broken", failed.Content[0].(TextContent).Text)
}

func TestErrorResponseSerialization(t *testing.T) {
	resp := newJSONRPCErrorResponse(nil, ErrCodeBadRequest, "Bad Request: No valid session ID provided", nil)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","id":null,"error":{"code":-32000,"message":"Bad Request: No valid session ID provided"}}`,
		string(data))
}

func TestParseJSONRPCParams(t *testing.T) {
	var params CallToolParams
	require.NoError(t, parseJSONRPCParams(map[string]interface{}{
		"name":      "echo",
		"arguments": map[string]interface{}{"text": "hi"},
	}, &params))
	assert.Equal(t, "echo", params.Name)
	assert.Equal(t, "hi", params.Arguments["text"])

	// Nil params leave the target zero-valued.
	var empty CallToolParams
	require.NoError(t, parseJSONRPCParams(nil, &empty))
	assert.Empty(t, empty.Name)

	assert.Error(t, parseJSONRPCParams("not an object", &params))
}
