// Package signal implements per-event listener lists with emission that is
// safe against re-entrant mutation. An observer may remove itself, remove
// other listeners, or tear down the emitting object from inside its callback
// without corrupting the iteration.
package signal

// Listener is a registered callback. Remove detaches it; removing an already
// removed listener is a no-op.
type Listener[T any] struct {
	sig *Signal[T]
	fn  func(T)
}

// Remove detaches the listener from its signal.
func (l *Listener[T]) Remove() {
	if l == nil || l.sig == nil {
		return
	}
	sig := l.sig
	l.sig = nil
	for i, cur := range sig.listeners {
		if cur == l {
			sig.listeners = append(sig.listeners[:i], sig.listeners[i+1:]...)
			return
		}
	}
}

// Signal fans an event out to all registered listeners. The zero value is
// ready to use.
type Signal[T any] struct {
	listeners []*Listener[T]
}

// Add registers fn and returns a handle that can detach it again.
func (s *Signal[T]) Add(fn func(T)) *Listener[T] {
	l := &Listener[T]{sig: s, fn: fn}
	s.listeners = append(s.listeners, l)
	return l
}

// Emit delivers data to every listener registered at the time of the call.
// The listener list is snapshotted first, so callbacks may add or remove
// listeners freely; a listener removed mid-emission that has not run yet is
// skipped.
func (s *Signal[T]) Emit(data T) {
	snapshot := make([]*Listener[T], len(s.listeners))
	copy(snapshot, s.listeners)
	for _, l := range snapshot {
		if l.sig != s {
			continue
		}
		l.fn(data)
	}
}

// Clear detaches all listeners.
func (s *Signal[T]) Clear() {
	for _, l := range s.listeners {
		l.sig = nil
	}
	s.listeners = nil
}

// Len returns the number of registered listeners.
func (s *Signal[T]) Len() int { return len(s.listeners) }
