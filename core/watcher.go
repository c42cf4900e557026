// Package core implements the tools shared by the components of the ledger.
//
// Documentation Last Review: 14.10.2026
package core

import "sync"

// Observer is the interface to implement to be notified of events.
type Observer interface {
	NotifyCallback(event interface{})
}

// Observable provides the primitives to subscribe to events.
type Observable interface {
	// Add subscribes the observer. Adding the same observer twice has no
	// effect.
	Add(observer Observer)

	// Remove unsubscribes the observer.
	Remove(observer Observer)

	// Notify calls every observer with the event.
	Notify(event interface{})
}

// Watcher notifies the observers in the order they subscribed.
//
// - implements core.Observable
type Watcher struct {
	sync.Mutex

	observers []Observer
}

// NewWatcher creates a watcher without observers.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// Len returns the number of observers.
func (w *Watcher) Len() int {
	w.Lock()
	defer w.Unlock()

	return len(w.observers)
}

// Add implements core.Observable.
func (w *Watcher) Add(observer Observer) {
	w.Lock()
	defer w.Unlock()

	if w.indexOf(observer) < 0 {
		w.observers = append(w.observers, observer)
	}
}

// Remove implements core.Observable.
func (w *Watcher) Remove(observer Observer) {
	w.Lock()
	defer w.Unlock()

	index := w.indexOf(observer)
	if index < 0 {
		return
	}

	w.observers = append(w.observers[:index:index], w.observers[index+1:]...)
}

// Notify implements core.Observable. The callbacks run without the lock so that
// an observer can unsubscribe itself.
func (w *Watcher) Notify(event interface{}) {
	w.Lock()
	observers := append([]Observer{}, w.observers...)
	w.Unlock()

	for _, observer := range observers {
		observer.NotifyCallback(event)
	}
}

func (w *Watcher) indexOf(observer Observer) int {
	for i, o := range w.observers {
		if o == observer {
			return i
		}
	}

	return -1
}
