// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// ProjectIDKey is the resource attribute holding the Google Cloud project id.
const ProjectIDKey = attribute.Key("gcp.project_id")

// ResourceConfig describes the statically configured identity of the process.
type ResourceConfig struct {
	ServiceName string
	ProjectID   string

	// Detectors default to the Google Cloud platform detector.
	Detectors []resource.Detector
}

// BuildResource assembles the resource shared by both providers. Auto-detected
// attributes which fail to be detected degrade to an empty set instead of
// aborting, and statically configured attributes always win.
func BuildResource(ctx context.Context, cfg ResourceConfig, log *zap.Logger) (*resource.Resource, error) {
	if log == nil {
		log = zap.NewNop()
	}

	detectors := cfg.Detectors
	if detectors == nil {
		detectors = []resource.Detector{gcp.NewDetector()}
	}

	detected, err := resource.New(
		ctx,
		resource.WithDetectors(detectors...),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		log.Warn("resource detection failed, continuing with partial attributes", zap.Error(err))
		if detected == nil {
			detected = resource.Empty()
		}
	}

	return MergeResource(staticResource(cfg), detected)
}

func staticResource(cfg ResourceConfig) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
	}
	if cfg.ProjectID != "" {
		attrs = append(attrs, ProjectIDKey.String(cfg.ProjectID))
	}
	return resource.NewSchemaless(attrs...)
}

// MergeResource merges static over detected. On an attribute name collision
// the static value is kept.
func MergeResource(static, detected *resource.Resource) (*resource.Resource, error) {
	// resource.Merge gives precedence to its second argument.
	return resource.Merge(detected, static)
}

// PrefixFilter returns an [attribute.Filter] which only keeps attributes
// whose key starts with prefix. An empty prefix keeps everything.
func PrefixFilter(prefix string) attribute.Filter {
	return func(kv attribute.KeyValue) bool {
		return strings.HasPrefix(string(kv.Key), prefix)
	}
}

// FilterResource returns a copy of res with only the attributes accepted by filter.
func FilterResource(res *resource.Resource, filter attribute.Filter) *resource.Resource {
	if res == nil {
		return resource.Empty()
	}
	set, _ := attribute.NewSetWithFiltered(res.Attributes(), filter)
	return resource.NewWithAttributes(res.SchemaURL(), set.ToSlice()...)
}
