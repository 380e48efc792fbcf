// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type credentialSourceFunc func(context.Context) (Credential, error)

func (f credentialSourceFunc) Token(ctx context.Context) (Credential, error) {
	return f(ctx)
}

func TestCredential(t *testing.T) {
	t.Run("will never print the bearer token", func(t *testing.T) {
		cred := Credential{
			BearerToken: "super-secret-token",
			Expiry:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		}

		t.Run("if it is formatted with fmt", func(t *testing.T) {
			for _, verb := range []string{"%v", "%+v", "%#v", "%s"} {
				out := fmt.Sprintf(verb, cred)
				if !assert.NotContains(t, out, cred.BearerToken, verb) {
					return
				}
			}
		})

		t.Run("if it is marshalled to json", func(t *testing.T) {
			b, err := json.Marshal(cred)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.NotContains(t, string(b), cred.BearerToken) {
				return
			}
		})

		t.Run("if it is logged with slog", func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))

			log.Info("token refreshed", slog.Any("credential", cred))
			if !assert.NotContains(t, buf.String(), cred.BearerToken) {
				return
			}
			if !assert.Contains(t, buf.String(), redacted) {
				return
			}
		})
	})
}

func TestStaticCredentialSource_Token(t *testing.T) {
	t.Run("will return an AuthError", func(t *testing.T) {
		t.Run("if the token is empty", func(t *testing.T) {
			_, err := StaticCredentialSource("").Token(context.Background())

			var aerr AuthError
			if !assert.ErrorAs(t, err, &aerr) {
				return
			}
			if !assert.NotEmpty(t, aerr.Error()) {
				return
			}
		})
	})
}

func TestPerRPCCredentials(t *testing.T) {
	t.Run("will attach a bearer token", func(t *testing.T) {
		t.Run("if the credential source returns a token", func(t *testing.T) {
			creds := PerRPCCredentials(StaticCredentialSource("abc"))

			md, err := creds.GetRequestMetadata(context.Background())
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, map[string]string{"authorization": "Bearer abc"}, md) {
				return
			}
			if !assert.True(t, creds.RequireTransportSecurity()) {
				return
			}
		})
	})

	t.Run("will fail only the call", func(t *testing.T) {
		t.Run("if the credential source fails", func(t *testing.T) {
			tokenErr := errors.New("metadata server unreachable")
			creds := PerRPCCredentials(credentialSourceFunc(func(ctx context.Context) (Credential, error) {
				return Credential{}, AuthError{Cause: tokenErr}
			}))

			_, err := creds.GetRequestMetadata(context.Background())
			if !assert.ErrorIs(t, err, tokenErr) {
				return
			}
		})
	})
}

func TestTokenSource(t *testing.T) {
	t.Run("will reuse the token", func(t *testing.T) {
		t.Run("if it has not expired", func(t *testing.T) {
			calls := 0
			src := credentialSourceFunc(func(ctx context.Context) (Credential, error) {
				calls++
				return Credential{
					BearerToken: "abc",
					Expiry:      time.Now().Add(time.Hour),
				}, nil
			})

			ctx, cancel := context.WithCancel(context.Background())
			ts := TokenSource(ctx, src)
			cancel()

			for range 3 {
				tok, err := ts.Token()
				if !assert.Nil(t, err) {
					return
				}
				if !assert.Equal(t, "abc", tok.AccessToken) {
					return
				}
			}
			if !assert.Equal(t, 1, calls) {
				return
			}
		})
	})
}
