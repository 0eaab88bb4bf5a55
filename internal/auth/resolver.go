// Package auth turns a caller's bearer credential into a user identity.
//
// Credentials are opaque tokens looked up in a trusted store. Tokens are never
// decoded or trusted on their own, signed or not.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"smart-budget-planner/internal/forecasterror"
)

const opResolve = "resolve credential"

// ErrUnknownCredential is returned when a token maps to no user.
var ErrUnknownCredential = errors.New("auth: unknown credential")

// CredentialResolver maps a token to a user ID.
type CredentialResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// StaticResolver resolves tokens from a fixed map.
type StaticResolver struct {
	tokens map[string]string
}

// NewStaticResolver copies tokens (token -> user ID) into a StaticResolver.
func NewStaticResolver(tokens map[string]string) *StaticResolver {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &StaticResolver{tokens: cp}
}

// Resolve implements CredentialResolver.
func (s *StaticResolver) Resolve(_ context.Context, token string) (string, error) {
	user, ok := s.tokens[token]
	if !ok || user == "" {
		return "", ErrUnknownCredential
	}
	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserFromRequest resolves the request's bearer token. Missing and unknown
// credentials are reported as Unauthorized; resolver failures as Storage.
func UserFromRequest(r *http.Request, resolver CredentialResolver) (string, error) {
	token, ok := BearerToken(r)
	if !ok {
		return "", forecasterror.Unauth(opResolve, "missing bearer token")
	}
	user, err := resolver.Resolve(r.Context(), token)
	switch {
	case errors.Is(err, ErrUnknownCredential):
		return "", forecasterror.Unauth(opResolve, "unknown credential")
	case err != nil:
		return "", forecasterror.StorageFailure(opResolve, err)
	}
	return user, nil
}
