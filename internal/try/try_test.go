// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package try

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	t.Run("will set the error", func(t *testing.T) {
		t.Run("if a non error value is panicked", func(t *testing.T) {
			f := func() (err error) {
				defer Recover(&err)
				panic("template missing")
			}

			err := f()

			var perr PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "template missing", perr.Value) {
				return
			}
			if !assert.Nil(t, perr.Unwrap()) {
				return
			}
		})

		t.Run("if an error is panicked after the function already failed", func(t *testing.T) {
			funcErr := errors.New("failed to read config")
			panicErr := errors.New("nil map")
			f := func() (err error) {
				defer Recover(&err)
				err = funcErr
				panic(panicErr)
			}

			err := f()
			if !assert.ErrorIs(t, err, funcErr) {
				return
			}
			if !assert.ErrorIs(t, err, panicErr) {
				return
			}

			var perr PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
		})
	})

	t.Run("will leave the error alone", func(t *testing.T) {
		t.Run("if nothing panics", func(t *testing.T) {
			f := func() (err error) {
				defer Recover(&err)
				return nil
			}

			if !assert.Nil(t, f()) {
				return
			}
		})
	})
}

type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

func TestClose(t *testing.T) {
	t.Run("will return a CloseError", func(t *testing.T) {
		testCases := []struct {
			Name    string
			FuncErr error
		}{
			{Name: "if close fails and the function succeeded"},
			{Name: "if close fails and the function failed", FuncErr: errors.New("failed to decode")},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				closeErr := errors.New("close failed")
				f := func() (err error) {
					defer Close(&err, closeFunc(func() error { return closeErr }))
					return testCase.FuncErr
				}

				err := f()

				var cerr CloseError
				if !assert.ErrorAs(t, err, &cerr) {
					return
				}
				if !assert.ErrorIs(t, cerr, closeErr) {
					return
				}
				if testCase.FuncErr == nil {
					return
				}
				if !assert.ErrorIs(t, err, testCase.FuncErr) {
					return
				}
			})
		}
	})

	t.Run("will leave the error alone", func(t *testing.T) {
		t.Run("if the closer is nil", func(t *testing.T) {
			funcErr := errors.New("func error")
			f := func() (err error) {
				defer Close(&err, nil)
				return funcErr
			}

			if !assert.Equal(t, funcErr, f()) {
				return
			}
		})

		t.Run("if close succeeds", func(t *testing.T) {
			f := func() (err error) {
				defer Close(&err, closeFunc(func() error { return nil }))
				return nil
			}

			if !assert.Nil(t, f()) {
				return
			}
		})
	})
}
