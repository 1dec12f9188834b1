// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import "errors"

// Common errors.
var (
	// ErrAuthMissing is returned when a request carries no user token.
	ErrAuthMissing = errors.New("user token required")

	// ErrClientTokenMissing is returned when a request carries no
	// machine-client token. The client token is unconditionally required.
	ErrClientTokenMissing = errors.New("client token required")

	// ErrForbidden is returned when the connect-level authorization check
	// denies the machine client.
	ErrForbidden = errors.New("client not authorized to connect")

	// ErrSessionNotFound is returned when a request references a session
	// identifier with no live transport.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when sending to a session that has
	// already been torn down.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotificationBufferFull is returned when a session's notification
	// buffer has no room and no GET stream is draining it.
	ErrNotificationBufferFull = errors.New("notification buffer full")

	// ErrToolNotFound is returned when a tools/call names an unregistered
	// or disabled tool.
	ErrToolNotFound = errors.New("tool not found")
)
