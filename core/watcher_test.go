package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatcher_Add(t *testing.T) {
	watcher := NewWatcher()

	watcher.Add(newFakeObserver())
	require.Equal(t, 1, watcher.Len())

	obs := newFakeObserver()
	watcher.Add(obs)
	watcher.Add(obs)
	require.Equal(t, 2, watcher.Len())
}

func TestWatcher_Remove(t *testing.T) {
	watcher := NewWatcher()

	first := newFakeObserver()
	second := newFakeObserver()
	watcher.Add(first)
	watcher.Add(second)

	watcher.Remove(first)
	require.Equal(t, 1, watcher.Len())

	watcher.Remove(first)
	require.Equal(t, 1, watcher.Len())

	watcher.Notify("ping")
	require.Equal(t, "ping", <-second.ch)
	require.Len(t, first.ch, 0)
}

func TestWatcher_Notify(t *testing.T) {
	watcher := NewWatcher()

	var order []int

	watcher.Add(&funcObserver{fn: func(interface{}) { order = append(order, 1) }})
	watcher.Add(&funcObserver{fn: func(interface{}) { order = append(order, 2) }})

	self := &funcObserver{}
	self.fn = func(interface{}) {
		order = append(order, 3)
		watcher.Remove(self)
	}
	watcher.Add(self)

	watcher.Notify(struct{}{})
	watcher.Notify(struct{}{})

	require.Equal(t, []int{1, 2, 3, 1, 2}, order)
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeObserver struct {
	ch chan interface{}
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{
		ch: make(chan interface{}, 1),
	}
}

func (o *fakeObserver) NotifyCallback(evt interface{}) {
	o.ch <- evt
}

type funcObserver struct {
	fn func(interface{})
}

func (o *funcObserver) NotifyCallback(evt interface{}) {
	o.fn(evt)
}
