// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"context"
	"fmt"
)

func ExampleBinary() {
	var b Binary
	fmt.Println(b.Healthy(context.Background()))

	b.Toggle()
	fmt.Println(b.Healthy(context.Background()))
	// Output: true
	// false
}

func ExampleAnd() {
	var r Readiness
	var b Binary

	m := And(&r, &b)
	fmt.Println(m.Healthy(context.Background()))

	r.Ready()
	fmt.Println(m.Healthy(context.Background()))
	// Output: false
	// true
}
