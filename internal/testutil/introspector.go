package testutil

import (
	"reflect"
	"sync"

	"github.com/roach88/layoutkit/internal/layout"
)

// CountingIntrospector wraps an Introspector and counts Constructors calls.
//
// An optional gate holds every call until it is closed, which lets tests
// pile up concurrent derivations of the same type.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CountingIntrospector struct {
	inner layout.Introspector
	gate  <-chan struct{}

	mu    sync.Mutex
	calls map[reflect.Type]int
}

// NewCountingIntrospector creates a counting wrapper around inner.
func NewCountingIntrospector(inner layout.Introspector) *CountingIntrospector {
	return &CountingIntrospector{inner: inner, calls: make(map[reflect.Type]int)}
}

// NewGatedIntrospector is like NewCountingIntrospector, but every call
// blocks until gate is closed.
func NewGatedIntrospector(inner layout.Introspector, gate <-chan struct{}) *CountingIntrospector {
	c := NewCountingIntrospector(inner)
	c.gate = gate
	return c
}

// Name returns the wrapped backend's name so the wrapper replaces it.
func (c *CountingIntrospector) Name() string {
	return c.inner.Name()
}

// Constructors counts the call, waits for the gate and delegates.
func (c *CountingIntrospector) Constructors(t reflect.Type) ([]layout.Constructor, error) {
	c.mu.Lock()
	c.calls[t]++
	c.mu.Unlock()

	if c.gate != nil {
		<-c.gate
	}
	return c.inner.Constructors(t)
}

// Calls returns how many times t was introspected.
func (c *CountingIntrospector) Calls(t reflect.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[t]
}

// Total returns the number of introspections across all types.
func (c *CountingIntrospector) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}
