// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package generate calls a hosted generative model.
package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Content is the text produced by a model.
type Content struct {
	Text string
}

// Generator produces content for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, model, prompt string) (Content, error)
}

// GeneratorFunc is a func variant of the [Generator] interface.
type GeneratorFunc func(ctx context.Context, model, prompt string) (Content, error)

// GenerateContent implements the [Generator] interface.
func (f GeneratorFunc) GenerateContent(ctx context.Context, model, prompt string) (Content, error) {
	return f(ctx, model, prompt)
}

// ErrNoContent means the model answered without any text.
var ErrNoContent = errors.New("model returned no content")

// GenerationError is returned when a model call fails.
type GenerationError struct {
	Model string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e GenerationError) Error() string {
	return fmt.Sprintf("failed to generate content with model %s: %s", e.Model, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e GenerationError) Unwrap() error {
	return e.Cause
}

// IsUnavailable reports whether err was caused by the circuit breaker
// refusing the call.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
