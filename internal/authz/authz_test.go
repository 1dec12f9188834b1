// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions"
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI captures the request and returns a canned decision.
type stubAPI struct {
	input    *verifiedpermissions.IsAuthorizedWithTokenInput
	decision types.Decision
	err      error
}

func (s *stubAPI) IsAuthorizedWithToken(ctx context.Context, params *verifiedpermissions.IsAuthorizedWithTokenInput,
	optFns ...func(*verifiedpermissions.Options)) (*verifiedpermissions.IsAuthorizedWithTokenOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &verifiedpermissions.IsAuthorizedWithTokenOutput{Decision: s.decision}, nil
}

func TestIsAuthorizedAllow(t *testing.T) {
	api := &stubAPI{decision: types.DecisionAllow}
	client := NewClient(api, "store-1")

	allowed, err := client.IsAuthorized(context.Background(), Input{
		AccessToken:  "token",
		ActionID:     ActionConnect,
		ResourceType: ResourceTypeServer,
		ResourceName: "demoserver",
	})
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NotNil(t, api.input)
	assert.Equal(t, "store-1", *api.input.PolicyStoreId)
	assert.Equal(t, "token", *api.input.AccessToken)
	assert.Equal(t, "MCP::Action", *api.input.Action.ActionType)
	assert.Equal(t, ActionConnect, *api.input.Action.ActionId)
	assert.Equal(t, "MCP::Server", *api.input.Resource.EntityType)
	assert.Equal(t, "mcp/demoserver:connect", *api.input.Resource.EntityId)
}

func TestIsAuthorizedDeny(t *testing.T) {
	api := &stubAPI{decision: types.DecisionDeny}
	client := NewClient(api, "store-1")

	allowed, err := client.IsAuthorized(context.Background(), Input{
		AccessToken:  "token",
		ActionID:     ActionCall,
		ResourceType: ResourceTypeTool,
		ResourceName: "listS3Buckets",
	})
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.Equal(t, "MCP::Tool", *api.input.Resource.EntityType)
	assert.Equal(t, "mcp/tool:listS3Buckets", *api.input.Resource.EntityId)
}

func TestIsAuthorizedUpstreamError(t *testing.T) {
	api := &stubAPI{err: errors.New("connection refused")}
	client := NewClient(api, "store-1")

	allowed, err := client.IsAuthorized(context.Background(), Input{
		AccessToken:  "token",
		ActionID:     ActionConnect,
		ResourceType: ResourceTypeServer,
		ResourceName: "demoserver",
	})
	assert.False(t, allowed)
	// A transport failure must be distinguishable from a DENY.
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestIsAuthorizedUnknownResourceType(t *testing.T) {
	api := &stubAPI{decision: types.DecisionAllow}
	client := NewClient(api, "store-1")

	_, err := client.IsAuthorized(context.Background(), Input{
		AccessToken:  "token",
		ActionID:     ActionConnect,
		ResourceType: ResourceType("MCP::Other"),
		ResourceName: "x",
	})
	assert.Error(t, err)
	assert.Nil(t, api.input)
}

func TestIsAuthorizedEntityAttributes(t *testing.T) {
	api := &stubAPI{decision: types.DecisionAllow}
	client := NewClient(api, "store-1")

	_, err := client.IsAuthorized(context.Background(), Input{
		AccessToken:  "token",
		ActionID:     ActionCall,
		ResourceType: ResourceTypeTool,
		ResourceName: "echo",
	})
	require.NoError(t, err)

	entities, ok := api.input.Entities.(*types.EntitiesDefinitionMemberEntityList)
	require.True(t, ok)
	require.Len(t, entities.Value, 1)

	item := entities.Value[0]
	assert.Equal(t, "mcp/tool:echo", *item.Identifier.EntityId)
	attr, ok := item.Attributes["entityId"].(*types.AttributeValueMemberString)
	require.True(t, ok)
	assert.Equal(t, "mcp/tool:echo", attr.Value)
}
