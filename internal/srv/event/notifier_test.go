package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKind int

const (
	kindA testKind = iota
	kindB
)

func TestAddListenerRejectsDuplicate(t *testing.T) {
	n := NewNotifier[testKind, string]()
	l := ListenerFunc(func(string) error { return nil })

	require.NoError(t, n.AddListener(l, kindA))
	err := n.AddListener(l, kindA)
	require.ErrorIs(t, err, ErrDuplicateListener)

	// Same listener on another kind is a different registration
	require.NoError(t, n.AddListener(l, kindB))
}

func TestRemoveListenerIsIdempotent(t *testing.T) {
	n := NewNotifier[testKind, string]()
	calls := 0
	l := ListenerFunc(func(string) error { calls++; return nil })

	n.RemoveListener(l, kindA)
	require.NoError(t, n.AddListener(l, kindA))
	n.RemoveListener(l, kindA)
	n.RemoveListener(l, kindA)

	results := n.CallListeners(kindA, "x")
	assert.Empty(t, results)
	assert.Equal(t, 0, calls)
}

func TestCallListenersIsolatesFailures(t *testing.T) {
	n := NewNotifier[testKind, string]()
	boom := errors.New("boom")

	var received []string
	failing := ListenerFunc(func(string) error { return boom })
	panicking := ListenerFunc(func(string) error { panic("bad listener") })
	good := ResultListenerFunc(func(ev string) (interface{}, error) {
		received = append(received, ev)
		return len(ev), nil
	})

	require.NoError(t, n.AddListener(failing, kindA))
	require.NoError(t, n.AddListener(panicking, kindA))
	require.NoError(t, n.AddListener(good, kindA))

	results := n.CallListeners(kindA, "hello")
	require.Len(t, results, 3)
	assert.Equal(t, []string{"hello"}, received)

	value, err := results[good]()
	require.NoError(t, err)
	assert.Equal(t, 5, value)

	_, err = results[failing]()
	assert.ErrorIs(t, err, boom)

	_, err = results[panicking]()
	assert.ErrorContains(t, err, "bad listener")

	assert.ErrorIs(t, results.Err(), boom)
}

func TestCallListenersOnlyMatchingKind(t *testing.T) {
	n := NewNotifier[testKind, int]()
	var got []int
	require.NoError(t, n.AddListener(ListenerFunc(func(v int) error { got = append(got, v); return nil }), kindB))

	n.CallListeners(kindA, 1)
	n.CallListeners(kindB, 2)

	assert.Equal(t, []int{2}, got)
	assert.NoError(t, n.CallListeners(kindB, 3).Err())
}

func TestListenerMayRemoveItselfWhileCalled(t *testing.T) {
	n := NewNotifier[testKind, int]()
	calls := 0
	var self Listener[int]
	self = ListenerFunc(func(int) error {
		calls++
		n.RemoveListener(self, kindA)
		return nil
	})
	require.NoError(t, n.AddListener(self, kindA))

	n.CallListeners(kindA, 1)
	n.CallListeners(kindA, 2)
	assert.Equal(t, 1, calls)
}
