// Package event provides the listener registry shared by stores, drivers, transformers and controllers.
package event

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrDuplicateListener = errors.New("listener already registered")

// Listener receives events of type E. Implementations must be comparable (pointer receivers),
// since registration identity is the listener value itself.
type Listener[E any] interface {
	Handle(ev E) (interface{}, error)
}

type listenerFunc[E any] struct {
	fn func(E) (interface{}, error)
}

func (l *listenerFunc[E]) Handle(ev E) (interface{}, error) {
	return l.fn(ev)
}

// ListenerFunc wraps fn. Every call returns a listener with its own identity.
func ListenerFunc[E any](fn func(ev E) error) Listener[E] {
	return &listenerFunc[E]{fn: func(ev E) (interface{}, error) { return nil, fn(ev) }}
}

// ResultListenerFunc wraps fn, keeping its result available to the publisher.
func ResultListenerFunc[E any](fn func(ev E) (interface{}, error)) Listener[E] {
	return &listenerFunc[E]{fn: fn}
}

// Outcome returns the value produced by one listener, or re-raises the error it failed with.
type Outcome func() (interface{}, error)

type Results[E any] map[Listener[E]]Outcome

// Err joins every listener error, nil when all listeners succeeded.
func (r Results[E]) Err() error {
	var errs []error
	for _, outcome := range r {
		if _, err := outcome(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Notifier[K comparable, E any] struct {
	lock      sync.RWMutex
	listeners map[K][]Listener[E]
}

func NewNotifier[K comparable, E any]() *Notifier[K, E] {
	return &Notifier[K, E]{
		listeners: make(map[K][]Listener[E]),
	}
}

func (n *Notifier[K, E]) AddListener(listener Listener[E], kind K) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	for _, l := range n.listeners[kind] {
		if l == listener {
			return fmt.Errorf("%w for %v", ErrDuplicateListener, kind)
		}
	}
	n.listeners[kind] = append(n.listeners[kind], listener)
	return nil
}

func (n *Notifier[K, E]) RemoveListener(listener Listener[E], kind K) {
	n.lock.Lock()
	defer n.lock.Unlock()

	listeners := n.listeners[kind]
	for i, l := range listeners {
		if l == listener {
			n.listeners[kind] = append(listeners[:i:i], listeners[i+1:]...)
			return
		}
	}
}

// CallListeners runs every listener of kind synchronously on the caller goroutine.
// A failing or panicking listener never prevents the others from running.
func (n *Notifier[K, E]) CallListeners(kind K, ev E) Results[E] {
	n.lock.RLock()
	listeners := make([]Listener[E], len(n.listeners[kind]))
	copy(listeners, n.listeners[kind])
	n.lock.RUnlock()

	results := make(Results[E], len(listeners))
	for _, listener := range listeners {
		value, err := call(listener, ev)
		results[listener] = func() (interface{}, error) {
			return value, err
		}
	}
	return results
}

// Publish calls the listeners and only logs their failures.
func (n *Notifier[K, E]) Publish(kind K, ev E) {
	if err := n.CallListeners(kind, ev).Err(); err != nil {
		logrus.Warnf("Listener failed on %v event: %v", kind, err)
	}
}

func call[E any](listener Listener[E], ev E) (value interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("listener panicked: %v", rec)
		}
	}()
	return listener.Handle(ev)
}
