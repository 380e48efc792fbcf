// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

func printHook(s string) Hook {
	return HookFunc(func(ctx context.Context) error {
		fmt.Println(s)
		return nil
	})
}

func ExampleMultiHook() {
	mh := MultiHook(printHook("stop server"), printHook("flush telemetry"))

	err := mh.Run(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}

	// Output: stop server
	// flush telemetry
}

func ExampleMultiHook_multipleErrors() {
	traceErr := errors.New("trace exporter unreachable")
	metricErr := errors.New("metric exporter unreachable")

	mh := MultiHook(
		HookFunc(func(ctx context.Context) error { return traceErr }),
		printHook("close transport"),
		HookFunc(func(ctx context.Context) error { return metricErr }),
	)

	err := mh.Run(context.Background())
	fmt.Println(errors.Is(err, traceErr), errors.Is(err, metricErr))

	// Output: close transport
	// true true
}

func ExampleReverse() {
	h := Reverse(printHook("transport"), printHook("tracer provider"), printHook("meter provider"))

	err := h.Run(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}

	// Output: meter provider
	// tracer provider
	// transport
}

func ExampleContext() {
	ctx := NewContext(context.Background(), &Context{})

	c, ok := FromContext(ctx)
	if !ok {
		fmt.Println("missing lifecycle context")
		return
	}
	c.OnPostRun(printHook("shutdown telemetry"))
	c.OnPostRun(printHook("close generative client"))

	err := c.PostRun().Run(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}

	// Output: close generative client
	// shutdown telemetry
}
