// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

// mcp-auth-gateway serves MCP over HTTP with per-request authorization
// against an AWS Verified Permissions policy store and per-call AWS
// credential exchange through a Cognito identity pool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	gateway "github.com/birenderpal/mcp-auth-gateway"
	"github.com/birenderpal/mcp-auth-gateway/awstools"
	"github.com/birenderpal/mcp-auth-gateway/internal/authz"
	"github.com/birenderpal/mcp-auth-gateway/internal/config"
	"github.com/birenderpal/mcp-auth-gateway/internal/credexchange"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("mcp-auth-gateway: %v", err)
	}
}

func run() error {
	cfg := config.Load()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zapLogger.Sync()
	logger := gateway.NewZapLogger(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	options := []gateway.ServerOption{
		gateway.WithServerAddress(fmt.Sprintf(":%d", cfg.Port)),
		gateway.WithServerLogger(logger),
	}

	if cfg.PolicyStoreID != "" {
		options = append(options, gateway.WithAuthorizer(authz.NewClientFromConfig(awsCfg, cfg.PolicyStoreID)))
	} else {
		logger.Warnf("POLICY_STORE_ID not set; requests are not gated")
	}

	if cfg.RateLimitRPS > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS)+1)
		options = append(options, gateway.WithRateLimit(limiter))
	}

	if cfg.MetricsEnabled {
		shutdownMetrics, err := setupMetrics()
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		defer shutdownMetrics()
		options = append(options, gateway.WithMetrics())
	}

	server := gateway.NewServer(cfg.ServerName, version, options...)

	exchanger := credexchange.NewFromConfig(awsCfg, cfg.IdentityPoolID, cfg.UserPoolID)
	awstools.Register(server, cfg.Region, exchanger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting %s on port %d", cfg.ServerName, cfg.Port)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupMetrics() (func(), error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(provider)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}
