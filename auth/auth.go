// Package auth provides authenticators for relay connectors and requests.
//
// Authenticators run in the "authenticate" request pipe on every attempt, so
// a retry hook can swap Request.Auth to refresh an expired credential.
package auth

import (
	"context"
	"errors"

	"github.com/gaborage/go-relay/http"
)

const (
	headerAuthorization = "Authorization"

	// DefaultTokenPrefix is the scheme used by TokenAuthenticator when Prefix is empty
	DefaultTokenPrefix = "Bearer"
)

var (
	// ErrEmptyToken is returned when a TokenAuthenticator has no token
	ErrEmptyToken = errors.New("auth: token is empty")
	// ErrEmptyName is returned when a header or query authenticator has no name
	ErrEmptyName = errors.New("auth: credential name is empty")
)

// TokenAuthenticator sets "Authorization: <Prefix> <Token>".
type TokenAuthenticator struct {
	Token  string
	Prefix string
}

// NewTokenAuthenticator creates a bearer token authenticator
func NewTokenAuthenticator(token string) *TokenAuthenticator {
	return &TokenAuthenticator{Token: token, Prefix: DefaultTokenPrefix}
}

// Authenticate implements http.Authenticator
func (a *TokenAuthenticator) Authenticate(_ context.Context, req *http.Request) error {
	if a.Token == "" {
		return ErrEmptyToken
	}
	prefix := a.Prefix
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	req.SetHeader(headerAuthorization, prefix+" "+a.Token)
	return nil
}

// HeaderAuthenticator sets an arbitrary header, e.g. X-API-Key.
type HeaderAuthenticator struct {
	Header string
	Value  string
}

// Authenticate implements http.Authenticator
func (a *HeaderAuthenticator) Authenticate(_ context.Context, req *http.Request) error {
	if a.Header == "" {
		return ErrEmptyName
	}
	req.SetHeader(a.Header, a.Value)
	return nil
}

// QueryAuthenticator adds a credential as a query parameter.
type QueryAuthenticator struct {
	Parameter string
	Value     string
}

// Authenticate implements http.Authenticator
func (a *QueryAuthenticator) Authenticate(_ context.Context, req *http.Request) error {
	if a.Parameter == "" {
		return ErrEmptyName
	}
	req.SetQuery(a.Parameter, a.Value)
	return nil
}

// Chain applies several authenticators in order; the first error stops it.
type Chain []http.Authenticator

// Authenticate implements http.Authenticator
func (c Chain) Authenticate(ctx context.Context, req *http.Request) error {
	for _, a := range c {
		if a == nil {
			continue
		}
		if err := a.Authenticate(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ http.Authenticator = (*TokenAuthenticator)(nil)
	_ http.Authenticator = (*HeaderAuthenticator)(nil)
	_ http.Authenticator = (*QueryAuthenticator)(nil)
	_ http.Authenticator = Chain(nil)
)
