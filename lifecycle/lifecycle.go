// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lifecycle provides helpers for defining actions to execute
// relative to a [funfacts.App]s execution.
package lifecycle

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Hook represents functionality that needs to be performed
// at a specific "time" relative to the execution of [funfacts.App.Run].
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type multiHook []Hook

func (mh multiHook) Run(ctx context.Context) error {
	var errs []error
	for _, h := range mh {
		err := h.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

// MultiHook returns a [Hook] that's the logical concatenation
// of the provided [Hook]s. They're applied sequentially and every one
// runs even when an earlier one fails.
func MultiHook(hooks ...Hook) Hook {
	return multiHook(hooks)
}

// Reverse is [MultiHook] with hooks applied last to first, the way
// deferred calls unwind.
func Reverse(hooks ...Hook) Hook {
	rev := slices.Clone(hooks)
	slices.Reverse(rev)
	return multiHook(rev)
}

// Context allows users to set actions which should be performed relative
// to the [funfacts.App.Run] execution.
type Context struct {
	mu       sync.Mutex
	postRuns []Hook
}

// PostRun returns the [Hook] which is meant to be executed after
// a [funfacts.App] Run method returns. Hooks run in reverse order of
// registration so things started last are stopped first.
func (c *Context) PostRun() Hook {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Reverse(c.postRuns...)
}

// OnPostRun registers the given [Hook] to be executed after a [funfacts.App]
// Run method returns.
func (c *Context) OnPostRun(hook Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postRuns = append(c.postRuns, hook)
}

type key struct{}

var contextKey = &key{}

// NewContext returns a new [context.Context] containing the lifecycle [Context].
func NewContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey, c)
}

// FromContext tries to extract a lifecycle [Context] from the given [context.Context].
func FromContext(ctx context.Context) (*Context, bool) {
	lc, ok := ctx.Value(contextKey).(*Context)
	return lc, ok
}
