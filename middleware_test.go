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

func TestChainOrder(t *testing.T) {
	var order []string

	appendingMiddleware := func(name string) MiddlewareFunc {
		return func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
			order = append(order, name+" before")
			result, err := next(ctx, req)
			order = append(order, name+" after")
			return result, err
		}
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		order = append(order, "handler")
		return "done", nil
	}

	result, err := Chain(handler, appendingMiddleware("m1"), appendingMiddleware("m2"))(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, []string{"m1 before", "m2 before", "handler", "m2 after", "m1 after"}, order)
}

func TestChainShortCircuit(t *testing.T) {
	blocking := func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		return "blocked", nil
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler must not run")
		return nil, nil
	}

	result, err := Chain(handler, blocking)(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "blocked", result)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("tool body exploded")
	}

	result, err := Chain(handler, RecoveryMiddleware())(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "tool body exploded")
}
