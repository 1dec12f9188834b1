// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

// Package config loads the gateway's environment configuration.
package config

import (
	"os"
	"strconv"
)

// Defaults mirror the reference deployment.
const (
	DefaultServerName = "demoserver"
	DefaultPort       = 3001
	DefaultRegion     = "us-west-2"
)

// Config holds all environment-configured values. None of these are part
// of the core logic contract; they select the external collaborators.
type Config struct {
	// ServerName is the resource name used in connect-level checks.
	ServerName string
	Port       int

	Region         string
	PolicyStoreID  string
	IdentityPoolID string
	UserPoolID     string

	MetricsEnabled bool

	// RateLimitRPS bounds the aggregate request rate; zero disables the
	// limiter.
	RateLimitRPS float64
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		ServerName:     envOr("MCP_SERVER_NAME", DefaultServerName),
		Port:           envIntOr("PORT", DefaultPort),
		Region:         envOr("AWS_REGION", DefaultRegion),
		PolicyStoreID:  os.Getenv("POLICY_STORE_ID"),
		IdentityPoolID: os.Getenv("COGNITO_IDENTITY_POOL_ID"),
		UserPoolID:     os.Getenv("COGNITO_USER_POOL_ID"),
		MetricsEnabled: envBool("METRICS_ENABLED"),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS"),
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && value
}

func envFloat(key string) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return value
}
