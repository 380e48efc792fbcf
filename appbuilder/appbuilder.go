// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package appbuilder provides middleware for [funfacts.AppBuilder]s.
package appbuilder

import (
	"context"

	"github.com/z5labs/funfacts"
	"github.com/z5labs/funfacts/internal/try"
)

// Recover will wrap the given [funfacts.AppBuilder] with panic recovery.
func Recover[T any](builder funfacts.AppBuilder[T]) funfacts.AppBuilder[T] {
	return funfacts.AppBuilderFunc[T](func(ctx context.Context, cfg T) (_ funfacts.App, err error) {
		defer try.Recover(&err)

		return builder.Build(ctx, cfg)
	})
}
