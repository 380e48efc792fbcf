// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package generate

import (
	"context"
	"os"
	"strings"

	"cloud.google.com/go/compute/metadata"
)

// DefaultRegion is used when neither the environment nor the metadata
// server name a region.
const DefaultRegion = "us-central1"

// Metadata looks up values on the Google Cloud metadata server.
type Metadata interface {
	ProjectIDWithContext(context.Context) (string, error)
	GetWithContext(ctx context.Context, suffix string) (string, error)
}

// Resolver finds the project and region the process runs in.
type Resolver struct {
	getenv func(string) string
	md     Metadata
}

// NewResolver returns a [Resolver] reading the process environment and
// falling back to the metadata server.
func NewResolver() *Resolver {
	return &Resolver{
		getenv: os.Getenv,
		md:     metadata.NewClient(nil),
	}
}

// ProjectID returns GOOGLE_CLOUD_PROJECT or, when unset, the project of
// the metadata server.
func (r *Resolver) ProjectID(ctx context.Context) (string, error) {
	if pid := r.getenv("GOOGLE_CLOUD_PROJECT"); pid != "" {
		return pid, nil
	}
	return r.md.ProjectIDWithContext(ctx)
}

// Region returns GOOGLE_CLOUD_LOCATION or, when unset, the region of the
// metadata server. It falls back to [DefaultRegion] instead of failing.
func (r *Resolver) Region(ctx context.Context) string {
	if loc := r.getenv("GOOGLE_CLOUD_LOCATION"); loc != "" {
		return loc
	}

	region, err := r.md.GetWithContext(ctx, "instance/region")
	if err != nil || region == "" {
		return DefaultRegion
	}
	// projects/<number>/regions/<region>
	if pos := strings.LastIndex(region, "/"); pos >= 0 {
		region = region[pos+1:]
	}
	return region
}
