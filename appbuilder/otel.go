// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package appbuilder

import (
	"context"
	"errors"

	"github.com/z5labs/funfacts"
	"github.com/z5labs/funfacts/app"
	"github.com/z5labs/funfacts/lifecycle"
	"github.com/z5labs/funfacts/telemetry"
)

// TelemetryInitializer represents config which knows how to build the
// telemetry pipeline.
type TelemetryInitializer interface {
	InitializeTelemetry(context.Context) (*telemetry.Registry, error)
}

// OTel is a [funfacts.AppBuilder] middleware which builds the telemetry
// pipeline before the wrapped builder runs. The wrapped builder finds the
// [telemetry.Registry] with [telemetry.RegistryFromContext]. The pipeline is
// flushed and shut down once the built [funfacts.App] stops running, or
// right away when building fails.
func OTel[T TelemetryInitializer](builder funfacts.AppBuilder[T]) funfacts.AppBuilder[T] {
	return funfacts.AppBuilderFunc[T](func(ctx context.Context, cfg T) (funfacts.App, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		reg, err := cfg.InitializeTelemetry(ctx)
		if err != nil {
			return nil, err
		}
		onPostRun := lifecycle.HookFunc(reg.Shutdown)

		base, err := builder.Build(telemetry.ContextWithRegistry(ctx, reg), cfg)
		if err != nil {
			shutdownErr := onPostRun.Run(context.WithoutCancel(ctx))
			return nil, errors.Join(err, shutdownErr)
		}

		lc, ok := lifecycle.FromContext(ctx)
		if !ok {
			return app.PostRun(base, onPostRun), nil
		}
		lc.OnPostRun(onPostRun)
		return base, nil
	})
}
