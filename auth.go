// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/birenderpal/mcp-auth-gateway/internal/authz"
)

// Request headers carrying the two tokens.
const (
	headerAuthorization       = "Authorization"
	headerClientAuthorization = "x-client-authorization"

	bearerPrefix = "Bearer "
)

// Authorizer decides whether a token may perform an action on a resource.
// The production implementation is authz.Client.
type Authorizer interface {
	IsAuthorized(ctx context.Context, in authz.Input) (bool, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, in authz.Input) (bool, error)

// IsAuthorized calls the function.
func (f AuthorizerFunc) IsAuthorized(ctx context.Context, in authz.Input) (bool, error) {
	return f(ctx, in)
}

// AuthInfo is the per-request authentication context produced by the auth
// gate. It is immutable once constructed and never persisted beyond the
// request.
type AuthInfo struct {
	// Token is the raw machine-client token.
	Token string

	// Scopes is the client token's space-delimited scope claim, split.
	Scopes []string

	// ClientID is the client token's subject claim.
	ClientID string

	// UserToken is the raw end-user token, carried for credential exchange.
	UserToken string
}

// authInfoKey is the context key for AuthInfo.
type authInfoKey struct{}

// AuthInfoFromContext retrieves the AuthInfo attached by the auth gate.
func AuthInfoFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey{}).(*AuthInfo)
	return info, ok
}

// ContextWithAuthInfo attaches AuthInfo to the context. The auth gate
// does this for every gated request; tool handlers hosted outside an
// HTTP request can use it directly.
func ContextWithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey{}, info)
}

// bearerToken strips the Bearer prefix from a header value.
func bearerToken(headerValue string) string {
	return strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
}

// decodeClientClaims decodes the client token's claims without verifying
// the signature. Verification is deliberately not done here: the policy
// service validates the token against the issuing user pool on every
// authorization check.
func decodeClientClaims(clientToken string) (clientID string, scopes []string, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(clientToken, claims); err != nil {
		return "", nil, err
	}
	clientID, _ = claims.GetSubject()
	if scope, ok := claims["scope"].(string); ok {
		scopes = strings.Fields(scope)
	}
	return clientID, scopes, nil
}

// writeAuthError writes a JSON error body with the given status.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// newAuthMiddleware builds the auth gate. It extracts the user token from
// the standard bearer header and the client token from the dedicated
// header, runs the connect-level authorization check, decodes the client
// token's claims, and attaches AuthInfo for downstream handlers. Both
// tokens are required.
func newAuthMiddleware(authorizer Authorizer, serverName string, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflight carries no tokens.
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			userToken := bearerToken(r.Header.Get(headerAuthorization))
			if userToken == "" {
				writeAuthError(w, http.StatusUnauthorized, ErrAuthMissing.Error())
				return
			}

			clientToken := bearerToken(r.Header.Get(headerClientAuthorization))
			if clientToken == "" {
				writeAuthError(w, http.StatusUnauthorized, ErrClientTokenMissing.Error())
				return
			}

			allowed, err := authorizer.IsAuthorized(r.Context(), authz.Input{
				AccessToken:  clientToken,
				ActionID:     authz.ActionConnect,
				ResourceType: authz.ResourceTypeServer,
				ResourceName: serverName,
			})
			if err != nil {
				// An unreachable policy service is not a DENY.
				logger.Errorf("connect authorization check failed: %v", err)
				writeAuthError(w, http.StatusInternalServerError, "authentication failed")
				return
			}
			if !allowed {
				writeAuthError(w, http.StatusForbidden, ErrForbidden.Error())
				return
			}

			clientID, scopes, err := decodeClientClaims(clientToken)
			if err != nil {
				logger.Warnf("malformed client token: %v", err)
				writeAuthError(w, http.StatusUnauthorized, "invalid client token")
				return
			}

			info := &AuthInfo{
				Token:     clientToken,
				Scopes:    scopes,
				ClientID:  clientID,
				UserToken: userToken,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAuthInfo(r.Context(), info)))
		})
	}
}

// errorIsUpstream reports whether err is a policy-service transport failure
// rather than a decision.
func errorIsUpstream(err error) bool {
	return errors.Is(err, authz.ErrUpstream)
}
