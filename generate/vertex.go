// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package generate

import (
	"context"
	"net/http"

	"google.golang.org/genai"
)

// VertexConfig selects the Vertex AI project and location.
type VertexConfig struct {
	Project  string
	Location string

	// HTTPClient must already be authenticated.
	HTTPClient *http.Client
}

// Vertex is a [Generator] backed by Gemini models on Vertex AI.
type Vertex struct {
	models *genai.Models
}

// NewVertex returns a [Vertex] generator.
func NewVertex(ctx context.Context, cfg VertexConfig) (*Vertex, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:    cfg.Project,
		Location:   cfg.Location,
		Backend:    genai.BackendVertexAI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	return &Vertex{models: client.Models}, nil
}

// GenerateContent implements the [Generator] interface.
func (v *Vertex) GenerateContent(ctx context.Context, model, prompt string) (Content, error) {
	resp, err := v.models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return Content{}, GenerationError{Model: model, Cause: err}
	}

	text := resp.Text()
	if text == "" {
		return Content{}, GenerationError{Model: model, Cause: ErrNoContent}
	}
	return Content{Text: text}, nil
}
