// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birenderpal/mcp-auth-gateway/internal/authz"
)

// makeClientToken builds an unsigned JWT carrying the given subject and
// scope claims. The auth gate decodes claims without verifying signatures.
func makeClientToken(t *testing.T, sub, scope string) string {
	t.Helper()
	encode := func(v interface{}) string {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(data)
	}
	header := encode(map[string]string{"alg": "none", "typ": "JWT"})
	claims := map[string]interface{}{"sub": sub}
	if scope != "" {
		claims["scope"] = scope
	}
	return fmt.Sprintf("%s.%s.", header, encode(claims))
}

// recordingAuthorizer records every check it is asked to make.
type recordingAuthorizer struct {
	inputs  []authz.Input
	allowed bool
	err     error
}

func (a *recordingAuthorizer) IsAuthorized(ctx context.Context, in authz.Input) (bool, error) {
	a.inputs = append(a.inputs, in)
	return a.allowed, a.err
}

func runAuthMiddleware(authorizer Authorizer, mutate func(*http.Request)) (*httptest.ResponseRecorder, bool) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	handler := newAuthMiddleware(authorizer, "demoserver", NewNopLogger())(next)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	if mutate != nil {
		mutate(req)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder, reached
}

func TestAuthMiddlewareMissingUserToken(t *testing.T) {
	authorizer := &recordingAuthorizer{allowed: true}
	recorder, reached := runAuthMiddleware(authorizer, nil)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, reached)
	// No authorization check may run without a token.
	assert.Empty(t, authorizer.inputs)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, ErrAuthMissing.Error(), body["error"])
}

func TestAuthMiddlewareMissingClientToken(t *testing.T) {
	authorizer := &recordingAuthorizer{allowed: true}
	recorder, reached := runAuthMiddleware(authorizer, func(r *http.Request) {
		r.Header.Set(headerAuthorization, "Bearer user-token")
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, reached)
	assert.Empty(t, authorizer.inputs)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, ErrClientTokenMissing.Error(), body["error"])
}

func TestAuthMiddlewareConnectDenied(t *testing.T) {
	clientToken := makeClientToken(t, "client-1", "mcp:connect")
	authorizer := &recordingAuthorizer{allowed: false}
	recorder, reached := runAuthMiddleware(authorizer, func(r *http.Request) {
		r.Header.Set(headerAuthorization, "Bearer user-token")
		r.Header.Set(headerClientAuthorization, "Bearer "+clientToken)
	})

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.False(t, reached)

	require.Len(t, authorizer.inputs, 1)
	in := authorizer.inputs[0]
	assert.Equal(t, clientToken, in.AccessToken)
	assert.Equal(t, authz.ActionConnect, in.ActionID)
	assert.Equal(t, authz.ResourceTypeServer, in.ResourceType)
	assert.Equal(t, "demoserver", in.ResourceName)
}

func TestAuthMiddlewareUpstreamError(t *testing.T) {
	clientToken := makeClientToken(t, "client-1", "")
	authorizer := &recordingAuthorizer{err: fmt.Errorf("%w: timeout", authz.ErrUpstream)}
	recorder, reached := runAuthMiddleware(authorizer, func(r *http.Request) {
		r.Header.Set(headerAuthorization, "Bearer user-token")
		r.Header.Set(headerClientAuthorization, "Bearer "+clientToken)
	})

	// A failed check is not a DENY; it is a server fault.
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareMalformedClientToken(t *testing.T) {
	authorizer := &recordingAuthorizer{allowed: true}
	recorder, reached := runAuthMiddleware(authorizer, func(r *http.Request) {
		r.Header.Set(headerAuthorization, "Bearer user-token")
		r.Header.Set(headerClientAuthorization, "Bearer not-a-jwt")
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareAttachesAuthInfo(t *testing.T) {
	clientToken := makeClientToken(t, "client-1", "tool:listS3Buckets tool:listS3Objects")
	authorizer := &recordingAuthorizer{allowed: true}

	var got *AuthInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AuthInfoFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := newAuthMiddleware(authorizer, "demoserver", NewNopLogger())(next)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set(headerAuthorization, "Bearer user-token")
	req.Header.Set(headerClientAuthorization, "Bearer "+clientToken)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, got)
	assert.Equal(t, clientToken, got.Token)
	assert.Equal(t, "user-token", got.UserToken)
	assert.Equal(t, "client-1", got.ClientID)
	assert.Equal(t, []string{"tool:listS3Buckets", "tool:listS3Objects"}, got.Scopes)
}

func TestAuthMiddlewarePassesPreflight(t *testing.T) {
	authorizer := &recordingAuthorizer{}
	recorder, reached := runAuthMiddleware(authorizer, func(r *http.Request) {
		r.Method = http.MethodOptions
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, reached)
	assert.Empty(t, authorizer.inputs)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "", bearerToken(""))
}

func TestDecodeClientClaims(t *testing.T) {
	token := makeClientToken(t, "client-9", "a b  c")
	clientID, scopes, err := decodeClientClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "client-9", clientID)
	assert.Equal(t, []string{"a", "b", "c"}, scopes)

	clientID, scopes, err = decodeClientClaims(makeClientToken(t, "client-9", ""))
	require.NoError(t, err)
	assert.Equal(t, "client-9", clientID)
	assert.Empty(t, scopes)

	_, _, err = decodeClientClaims("garbage")
	assert.Error(t, err)
}
