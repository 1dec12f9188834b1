// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

// Package authz delegates authorization decisions for
// (token, action, resource) triples to AWS Verified Permissions.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions"
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions/types"
)

// Action identifiers evaluated by the policy store.
const (
	// ActionConnect gates a machine client's access to the server itself.
	ActionConnect = "connect"
	// ActionCall gates invocation of an individual tool.
	ActionCall = "call"

	// actionType is the Cedar action entity type shared by all actions.
	actionType = "MCP::Action"
)

// ResourceType identifies the kind of resource an authorization check
// targets.
type ResourceType string

const (
	// ResourceTypeServer is the MCP server as a whole.
	ResourceTypeServer ResourceType = "MCP::Server"
	// ResourceTypeTool is a single registered tool.
	ResourceTypeTool ResourceType = "MCP::Tool"
)

// ErrUpstream marks a transport-level failure of the policy service. It is
// distinct from a DENY decision: callers must fail the request rather than
// treat it as denied.
var ErrUpstream = errors.New("authorization service error")

// API is the subset of the Verified Permissions client used here. The
// concrete SDK client satisfies it; tests substitute a stub.
type API interface {
	IsAuthorizedWithToken(ctx context.Context, params *verifiedpermissions.IsAuthorizedWithTokenInput,
		optFns ...func(*verifiedpermissions.Options)) (*verifiedpermissions.IsAuthorizedWithTokenOutput, error)
}

// Input describes one authorization check.
type Input struct {
	// AccessToken is the principal's token; the policy service resolves it
	// to a principal itself.
	AccessToken string

	// ActionID is ActionConnect or ActionCall.
	ActionID string

	ResourceType ResourceType
	ResourceName string
}

// Client checks (token, action, resource) triples against a policy store.
// Decisions are never cached; every check is a live call.
type Client struct {
	api           API
	policyStoreID string
}

// NewClient creates a client over the given API implementation.
func NewClient(api API, policyStoreID string) *Client {
	return &Client{api: api, policyStoreID: policyStoreID}
}

// NewClientFromConfig creates a client backed by the real SDK.
func NewClientFromConfig(cfg aws.Config, policyStoreID string) *Client {
	return NewClient(verifiedpermissions.NewFromConfig(cfg), policyStoreID)
}

// entityID builds the resource entity identifier in the scope style the
// policy store expects: servers key as "mcp/<name>:connect", tools as
// "mcp/tool:<name>".
func entityID(in Input) (string, error) {
	switch in.ResourceType {
	case ResourceTypeServer:
		return fmt.Sprintf("mcp/%s:connect", in.ResourceName), nil
	case ResourceTypeTool:
		return fmt.Sprintf("mcp/tool:%s", in.ResourceName), nil
	default:
		return "", fmt.Errorf("unsupported resource type: %s", in.ResourceType)
	}
}

// IsAuthorized asks the policy store for a decision. A false return with a
// nil error is a genuine DENY; any error wraps ErrUpstream and means the
// decision could not be determined.
func (c *Client) IsAuthorized(ctx context.Context, in Input) (bool, error) {
	resourceEntityID, err := entityID(in)
	if err != nil {
		return false, err
	}

	entityList := []types.EntityItem{
		{
			Identifier: &types.EntityIdentifier{
				EntityType: aws.String(string(in.ResourceType)),
				EntityId:   aws.String(resourceEntityID),
			},
			Attributes: map[string]types.AttributeValue{
				"entityId": &types.AttributeValueMemberString{Value: resourceEntityID},
			},
		},
	}

	out, err := c.api.IsAuthorizedWithToken(ctx, &verifiedpermissions.IsAuthorizedWithTokenInput{
		PolicyStoreId: aws.String(c.policyStoreID),
		AccessToken:   aws.String(in.AccessToken),
		Action: &types.ActionIdentifier{
			ActionType: aws.String(actionType),
			ActionId:   aws.String(in.ActionID),
		},
		Resource: &types.EntityIdentifier{
			EntityType: aws.String(string(in.ResourceType)),
			EntityId:   aws.String(resourceEntityID),
		},
		Entities: &types.EntitiesDefinitionMemberEntityList{Value: entityList},
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return out.Decision == types.DecisionAllow, nil
}
