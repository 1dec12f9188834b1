// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"go.uber.org/zap"
)

// Logger is the minimal logging interface used by the server and all
// subcomponents. The default implementation is backed by zap.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// zapLogger adapts a zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(logger *zap.Logger) Logger {
	return &zapLogger{sugar: logger.Sugar()}
}

// NewProductionLogger creates a zap production logger. Construction errors
// fall back to a no-op logger rather than failing the caller.
func NewProductionLogger() Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return NewNopLogger()
	}
	return NewZapLogger(logger)
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return NewZapLogger(zap.NewNop())
}
