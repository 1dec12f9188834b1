// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package awstools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	gateway "github.com/birenderpal/mcp-auth-gateway"
)

// dynamoDBAPI is the subset of the DynamoDB client used here.
type dynamoDBAPI interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput,
		optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

func (t *Toolset) registerDynamoDBTools(s *gateway.Server) {
	listTables := gateway.NewTool("listDynamoDBTables",
		gateway.WithDescription("List the caller's DynamoDB tables"))
	s.RegisterTool(listTables, t.handleListDynamoDBTables)
}

func (t *Toolset) handleListDynamoDBTables(ctx context.Context, req *gateway.CallToolRequest) (*gateway.CallToolResult, error) {
	cfg, err := t.callerConfig(ctx)
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing DynamoDB tables: %v", err)), nil
	}

	out, err := t.newDynamoDB(cfg).ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing DynamoDB tables: %v", err)), nil
	}

	tableList := "No tables found"
	if len(out.TableNames) > 0 {
		tableList = strings.Join(out.TableNames, "\n")
	}
	return gateway.NewTextResult("DynamoDB Tables:\n" + tableList), nil
}
