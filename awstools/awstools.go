// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

// Package awstools registers the gateway's AWS-backed tools. Every tool
// body exchanges the caller's user token for temporary credentials,
// performs exactly one cloud operation with a client scoped to that
// invocation, and translates any fault into an isError tool result.
package awstools

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3tables"

	gateway "github.com/birenderpal/mcp-auth-gateway"
	"github.com/birenderpal/mcp-auth-gateway/internal/credexchange"
)

// CredentialExchanger trades an end-user token for temporary credentials.
// The production implementation is credexchange.Exchanger.
type CredentialExchanger interface {
	Exchange(ctx context.Context, userToken string) (*credexchange.Credentials, error)
}

var errUserTokenMissing = errors.New("user token not available")

// Toolset holds the shared pieces of the AWS tool handlers. The client
// factories exist so tests can substitute stub clients.
type Toolset struct {
	region    string
	exchanger CredentialExchanger

	newS3       func(cfg aws.Config) s3API
	newDynamoDB func(cfg aws.Config) dynamoDBAPI
	newS3Tables func(cfg aws.Config) s3TablesAPI
}

// NewToolset creates a toolset bound to one region and exchanger.
func NewToolset(region string, exchanger CredentialExchanger) *Toolset {
	return &Toolset{
		region:    region,
		exchanger: exchanger,
		newS3: func(cfg aws.Config) s3API {
			return s3.NewFromConfig(cfg)
		},
		newDynamoDB: func(cfg aws.Config) dynamoDBAPI {
			return dynamodb.NewFromConfig(cfg)
		},
		newS3Tables: func(cfg aws.Config) s3TablesAPI {
			return s3tables.NewFromConfig(cfg)
		},
	}
}

// Register registers all AWS tools with the server.
func (t *Toolset) Register(s *gateway.Server) {
	t.registerS3Tools(s)
	t.registerDynamoDBTools(s)
	t.registerS3TablesTools(s)
}

// Register is a convenience for the common case.
func Register(s *gateway.Server, region string, exchanger CredentialExchanger) {
	NewToolset(region, exchanger).Register(s)
}

// callerConfig exchanges the caller's user token for fresh credentials
// and builds an AWS config scoped to this single invocation. Credentials
// are never shared across calls or sessions.
func (t *Toolset) callerConfig(ctx context.Context) (aws.Config, error) {
	info, ok := gateway.AuthInfoFromContext(ctx)
	if !ok || info.UserToken == "" {
		return aws.Config{}, errUserTokenMissing
	}

	creds, err := t.exchanger.Exchange(ctx, info.UserToken)
	if err != nil {
		return aws.Config{}, err
	}

	return aws.Config{
		Region: t.region,
		Credentials: credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
	}, nil
}
