// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"encoding/json"
)

// Protocol constants.
const (
	// JSONRPCVersion is the JSON-RPC protocol version used by MCP.
	JSONRPCVersion = "2.0"

	// ProtocolVersion is the MCP protocol revision this server speaks.
	ProtocolVersion = "2025-03-26"
)

// MCP method names handled by the gateway.
const (
	MethodInitialize               = "initialize"
	MethodPing                     = "ping"
	MethodToolsList                = "tools/list"
	MethodToolsCall                = "tools/call"
	MethodNotificationsInitialized = "notifications/initialized"
)

// JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603

	// ErrCodeBadRequest is returned for transport-level problems such as a
	// missing or unknown session identifier.
	ErrCodeBadRequest = -32000
)

// JSONRPCMessage is any message that can travel over the transport:
// a request, a notification, a response, an error response, or a bare
// result object that the transport wraps into a response.
type JSONRPCMessage interface{}

// Request is the base struct for all MCP requests.
type Request struct {
	Method string `json:"method"`
}

// JSONRPCRequest represents a JSON-RPC request message.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Request
	Params interface{} `json:"params,omitempty"`
}

// Notification is the base struct for all MCP notifications.
type Notification struct {
	Method string `json:"method"`
}

// JSONRPCNotification represents a JSON-RPC notification (no ID, no reply).
type JSONRPCNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Notification
	Params map[string]interface{} `json:"params,omitempty"`
}

// NewJSONRPCNotification creates a notification for the given method.
func NewJSONRPCNotification(method string, params map[string]interface{}) *JSONRPCNotification {
	return &JSONRPCNotification{
		JSONRPC:      JSONRPCVersion,
		Notification: Notification{Method: method},
		Params:       params,
	}
}

// JSONRPCResponse represents a successful JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result"`
}

// JSONRPCErrorDetail carries the error object of a JSON-RPC error response.
type JSONRPCErrorDetail struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONRPCError represents a JSON-RPC error response.
type JSONRPCError struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      interface{}        `json:"id"`
	Error   JSONRPCErrorDetail `json:"error"`
}

// newJSONRPCResponse wraps a result into a response for the given request ID.
func newJSONRPCResponse(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// newJSONRPCErrorResponse creates an error response for the given request ID.
func newJSONRPCErrorResponse(id interface{}, code int, message string, data interface{}) *JSONRPCError {
	return &JSONRPCError{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: JSONRPCErrorDetail{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// Result is the base result struct for all MCP results.
type Result struct {
	Meta map[string]interface{} `json:"_meta,omitempty"`
}

// Content types.
const (
	// ContentTypeText represents text content.
	ContentTypeText = "text"
	// ContentTypeImage represents image content.
	ContentTypeImage = "image"
)

// Content represents message content carried in tool results.
type Content interface {
	isContent()
}

// TextContent represents text content.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (TextContent) isContent() {}

// ImageContent represents image content.
type ImageContent struct {
	Type     string `json:"type"`
	Data     string `json:"data"` // base64 encoded image data
	MimeType string `json:"mimeType"`
}

func (ImageContent) isContent() {}

// NewTextContent creates a new text content.
func NewTextContent(text string) TextContent {
	return TextContent{
		Type: ContentTypeText,
		Text: text,
	}
}

// NewImageContent creates a new image content.
func NewImageContent(data, mimeType string) ImageContent {
	return ImageContent{
		Type:     ContentTypeImage,
		Data:     data,
		MimeType: mimeType,
	}
}

// Implementation describes the name and version of an MCP implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability describes the server's tool capabilities.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities describes the capabilities the server advertises
// during initialization.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// InitializeParams carries the parameters of an initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ClientInfo      Implementation `json:"clientInfo"`
}

// InitializeResult is the server's reply to an initialize request.
type InitializeResult struct {
	Result
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
}

// ToolInputSchema is the JSON schema describing a tool's arguments.
type ToolInputSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

// Tool describes a registered tool: its name, description and argument
// schema. Enabled gates both listing and invocation and is the only field
// that may change after registration.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema ToolInputSchema `json:"inputSchema"`
	Enabled     bool            `json:"-"`
}

// ToolOption configures a Tool during construction.
type ToolOption func(*Tool)

// PropertyOption configures a single schema property.
type PropertyOption func(map[string]interface{})

// NewTool creates a tool descriptor. Tools are enabled by default and
// start with an empty object schema.
func NewTool(name string, options ...ToolOption) *Tool {
	tool := &Tool{
		Name:    name,
		Enabled: true,
		InputSchema: ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
	for _, option := range options {
		option(tool)
	}
	return tool
}

// WithDescription sets the tool description.
func WithDescription(description string) ToolOption {
	return func(t *Tool) {
		t.Description = description
	}
}

// WithDisabled registers the tool in a disabled state; it is neither
// listed nor callable until re-enabled.
func WithDisabled() ToolOption {
	return func(t *Tool) {
		t.Enabled = false
	}
}

// WithString adds a string property to the tool's input schema.
func WithString(name string, options ...PropertyOption) ToolOption {
	return func(t *Tool) {
		prop := map[string]interface{}{"type": "string"}
		for _, option := range options {
			option(prop)
		}
		if required, ok := prop["required"].(bool); ok && required {
			delete(prop, "required")
			t.InputSchema.Required = append(t.InputSchema.Required, name)
		}
		t.InputSchema.Properties[name] = prop
	}
}

// Description sets the description of a schema property.
func Description(description string) PropertyOption {
	return func(prop map[string]interface{}) {
		prop["description"] = description
	}
}

// Required marks a schema property as required.
func Required() PropertyOption {
	return func(prop map[string]interface{}) {
		prop["required"] = true
	}
}

// ListToolsResult is the reply to a tools/list request.
type ListToolsResult struct {
	Result
	Tools []Tool `json:"tools"`
}

// CallToolParams carries the parameters of a tools/call request.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// CallToolRequest represents a tools/call request.
type CallToolRequest struct {
	Request
	Params CallToolParams `json:"params"`
}

// CallToolResult is the reply to a tools/call request. IsError marks a
// tool-level failure carried as an ordinary result so the session stays
// alive.
type CallToolResult struct {
	Result
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewTextResult creates a successful tool result with a single text block.
func NewTextResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{NewTextContent(text)},
	}
}

// NewErrorResult creates an error tool result with a single text block.
func NewErrorResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{NewTextContent(text)},
		IsError: true,
	}
}

// rawMessage is the minimal shape needed to classify an inbound JSON-RPC
// message without committing to a concrete type.
type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// isInitializeRequest reports whether the raw body is an initialize request.
func isInitializeRequest(body []byte) bool {
	var msg rawMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return false
	}
	return msg.Method == MethodInitialize && msg.ID != nil
}

// parseJSONRPCParams re-marshals loosely-typed params into a target struct.
func parseJSONRPCParams(params interface{}, target interface{}) error {
	if params == nil {
		return nil
	}
	paramBytes, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramBytes, target)
}
