// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
	"fmt"
)

// Handler is the function at the end of a middleware chain that performs
// the actual work, such as executing a tool body.
type Handler func(ctx context.Context, req interface{}) (interface{}, error)

// MiddlewareFunc runs before and/or after the next handler in the chain.
// It may short-circuit by returning without calling next.
type MiddlewareFunc func(ctx context.Context, req interface{}, next Handler) (interface{}, error)

// Chain links middlewares and a final handler into a single handler.
// Middlewares execute in the order given: Chain(h, m1, m2) runs m1, then
// m2, then h.
func Chain(handler Handler, middlewares ...MiddlewareFunc) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = wrap(middlewares[i], handler)
	}
	return handler
}

// wrap binds one middleware around a handler.
func wrap(middleware MiddlewareFunc, next Handler) Handler {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		return middleware(ctx, req, next)
	}
}

// RecoveryMiddleware converts a panic in downstream handlers into an error
// so a faulty tool body cannot take down the process.
func RecoveryMiddleware() MiddlewareFunc {
	return func(ctx context.Context, req interface{}, next Handler) (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = fmt.Errorf("panic recovered: %v", r)
			}
		}()
		return next(ctx, req)
	}
}
