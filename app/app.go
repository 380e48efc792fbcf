// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides helpers for common funfacts.App implementation patterns.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/funfacts"
	"github.com/z5labs/funfacts/internal/try"
	"github.com/z5labs/funfacts/lifecycle"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Recover will wrap the given [funfacts.App] with panic recovery.
// A recovered panic is returned as a [try.PanicError], which unwraps to
// the panic value when that value is an error.
func Recover(app funfacts.App) funfacts.App {
	return runFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given [funfacts.App] in an implementation
// that cancels the [context.Context] that's passed to app.Run if an [os.Signal]
// is received by the running process.
func WithSignalNotifications(app funfacts.App, signals ...os.Signal) funfacts.App {
	return runFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// PostRun runs hook once app returns, even when app fails or panics.
// The hook gets a context which is not cancelled with the one given to
// app so shutdown work can still reach the network.
func PostRun(app funfacts.App, hook lifecycle.Hook) funfacts.App {
	return runFunc(func(ctx context.Context) (err error) {
		defer func() {
			hookErr := hook.Run(context.WithoutCancel(ctx))
			err = errors.Join(err, hookErr)
		}()
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}
