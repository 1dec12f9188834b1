// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

// Package credexchange converts a verified end-user identity token into
// short-lived AWS credentials through Cognito identity federation.
package credexchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
)

// Exchange failures, distinct per step.
var (
	// ErrIdentityResolution marks a failure to resolve an identity handle
	// from the token.
	ErrIdentityResolution = errors.New("identity resolution failed")

	// ErrCredentialIssuance marks a failure to obtain credentials for a
	// resolved identity.
	ErrCredentialIssuance = errors.New("credential issuance failed")
)

// Credentials are temporary AWS credentials scoped to a single tool
// invocation. They are never stored beyond the invocation's completion.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// API is the subset of the Cognito Identity client used here.
type API interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput,
		optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput,
		optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// Exchanger performs the two-step token-for-credentials exchange. No
// retry, no caching: every call yields fresh credentials, and the caller
// owns retry policy.
type Exchanger struct {
	api            API
	identityPoolID string

	// provider is the login map key: the user pool's issuer hostname path.
	provider string
}

// New creates an exchanger over the given API implementation.
func New(api API, region, identityPoolID, userPoolID string) *Exchanger {
	return &Exchanger{
		api:            api,
		identityPoolID: identityPoolID,
		provider:       fmt.Sprintf("cognito-idp.%s.amazonaws.com/%s", region, userPoolID),
	}
}

// NewFromConfig creates an exchanger backed by the real SDK.
func NewFromConfig(cfg aws.Config, identityPoolID, userPoolID string) *Exchanger {
	return New(cognitoidentity.NewFromConfig(cfg), cfg.Region, identityPoolID, userPoolID)
}

// Exchange resolves an identity handle for the token and trades it for
// temporary credentials.
func (e *Exchanger) Exchange(ctx context.Context, userToken string) (*Credentials, error) {
	logins := map[string]string{e.provider: userToken}

	idOut, err := e.api.GetId(ctx, &cognitoidentity.GetIdInput{
		IdentityPoolId: aws.String(e.identityPoolID),
		Logins:         logins,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}
	if idOut.IdentityId == nil || *idOut.IdentityId == "" {
		return nil, ErrIdentityResolution
	}

	credOut, err := e.api.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: idOut.IdentityId,
		Logins:     logins,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialIssuance, err)
	}
	if credOut.Credentials == nil {
		return nil, ErrCredentialIssuance
	}

	creds := &Credentials{
		AccessKeyID:     aws.ToString(credOut.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(credOut.Credentials.SecretKey),
		SessionToken:    aws.ToString(credOut.Credentials.SessionToken),
	}
	if credOut.Credentials.Expiration != nil {
		creds.Expiration = *credOut.Credentials.Expiration
	}
	return creds, nil
}
