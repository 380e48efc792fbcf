// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/grpc/credentials"
)

// Scopes requested for export credentials.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/trace.append",
}

const redacted = "REDACTED"

// Credential is a bearer token used to authenticate export calls.
// Every formatting path redacts the token so it can never end up in a log.
type Credential struct {
	BearerToken string
	Expiry      time.Time
}

// String implements the [fmt.Stringer] interface.
func (c Credential) String() string {
	return "Credential{BearerToken:" + redacted + ", Expiry:" + c.Expiry.Format(time.RFC3339) + "}"
}

// GoString implements the [fmt.GoStringer] interface.
func (c Credential) GoString() string {
	return c.String()
}

// LogValue implements the [slog.LogValuer] interface.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bearer_token", redacted),
		slog.Time("expiry", c.Expiry),
	)
}

// MarshalJSON implements the [json.Marshaler] interface.
func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`{"bearer_token":"` + redacted + `"}`), nil
}

// CredentialSource obtains bearer tokens for export channels.
type CredentialSource interface {
	Token(context.Context) (Credential, error)
}

// GoogleCredentialSource is a [CredentialSource] backed by Google
// Application Default Credentials.
type GoogleCredentialSource struct {
	ts oauth2.TokenSource
}

// NewGoogleCredentialSource looks up Application Default Credentials
// with the export [Scopes].
func NewGoogleCredentialSource(ctx context.Context) (*GoogleCredentialSource, error) {
	creds, err := google.FindDefaultCredentials(ctx, Scopes...)
	if err != nil {
		return nil, AuthError{Cause: err}
	}
	return &GoogleCredentialSource{ts: creds.TokenSource}, nil
}

// Token implements the [CredentialSource] interface.
func (s *GoogleCredentialSource) Token(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, AuthError{Cause: err}
	}
	tok, err := s.ts.Token()
	if err != nil {
		return Credential{}, AuthError{Cause: err}
	}
	return Credential{
		BearerToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}, nil
}

var errEmptyToken = errors.New("empty bearer token")

// StaticCredentialSource always returns the same token.
type StaticCredentialSource string

// Token implements the [CredentialSource] interface.
func (s StaticCredentialSource) Token(ctx context.Context) (Credential, error) {
	if s == "" {
		return Credential{}, AuthError{Cause: errEmptyToken}
	}
	return Credential{BearerToken: string(s)}, nil
}

type perRPCCredentials struct {
	src CredentialSource
}

// PerRPCCredentials attaches a bearer token obtained from src as gRPC
// metadata on every call. A failed token fetch only fails that call.
func PerRPCCredentials(src CredentialSource) credentials.PerRPCCredentials {
	return perRPCCredentials{src: src}
}

// GetRequestMetadata implements the [credentials.PerRPCCredentials] interface.
func (c perRPCCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	cred, err := c.src.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"authorization": "Bearer " + cred.BearerToken,
	}, nil
}

// RequireTransportSecurity implements the [credentials.PerRPCCredentials] interface.
func (perRPCCredentials) RequireTransportSecurity() bool {
	return true
}

type tokenSource struct {
	ctx context.Context
	src CredentialSource
}

// TokenSource adapts a [CredentialSource] to an [oauth2.TokenSource] so it
// can authenticate Google API clients.
func TokenSource(ctx context.Context, src CredentialSource) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, tokenSource{ctx: context.WithoutCancel(ctx), src: src})
}

// Token implements the [oauth2.TokenSource] interface.
func (ts tokenSource) Token() (*oauth2.Token, error) {
	cred, err := ts.src.Token(ts.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: cred.BearerToken,
		TokenType:   "Bearer",
		Expiry:      cred.Expiry,
	}, nil
}
