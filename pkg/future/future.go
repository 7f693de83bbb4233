// Copyright 2022 uSwitch
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package future provides a single-assignment result shared between
// concurrent readers. The token and credential caches store futures so that
// refreshes of the same key collapse into one in-flight call: the first
// cache miss installs the future, later callers block on the same result.
package future

import (
	"context"
)

// Fn computes the future's value. It is invoked exactly once.
type Fn func() (interface{}, error)

// Future holds the eventual result of an Fn. Any number of goroutines may
// call Get; they all observe the same value and error.
type Future struct {
	val  interface{}
	err  error
	done chan struct{}
}

// New starts fn in its own goroutine and returns the future that will hold
// its result.
func New(fn Fn) *Future {
	f := &Future{
		done: make(chan struct{}),
	}
	go func() {
		f.val, f.err = fn()
		close(f.done)
	}()
	return f
}

// Get waits for the result or for ctx to be cancelled, whichever happens
// first. Cancellation abandons the wait, not the computation.
func (f *Future) Get(ctx context.Context) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.val, f.err
	}
}
