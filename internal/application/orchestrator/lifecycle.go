package orchestrator

import "sync"

// LifecycleSignal reports host suspend/resume, such as a hidden browser tab or
// a paused client.
type LifecycleSignal interface {
	Subscribe(onSuspend, onResume func()) (unsubscribe func())
}

type lifecycleSub struct {
	onSuspend func()
	onResume  func()
}

// ManualSignal is a LifecycleSignal driven by explicit calls.
type ManualSignal struct {
	mu        sync.Mutex
	next      uint64
	subs      map[uint64]lifecycleSub
	suspended bool
}

// NewManualSignal creates a signal in the resumed state.
func NewManualSignal() *ManualSignal {
	return &ManualSignal{subs: make(map[uint64]lifecycleSub)}
}

func (s *ManualSignal) Subscribe(onSuspend, onResume func()) func() {
	s.mu.Lock()
	s.next++
	id := s.next
	s.subs[id] = lifecycleSub{onSuspend: onSuspend, onResume: onResume}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// SetHidden suspends when hidden and resumes otherwise. Repeating the current
// state notifies nobody.
func (s *ManualSignal) SetHidden(hidden bool) {
	s.mu.Lock()
	if s.suspended == hidden {
		s.mu.Unlock()
		return
	}
	s.suspended = hidden
	subs := make([]lifecycleSub, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		fn := sub.onResume
		if hidden {
			fn = sub.onSuspend
		}
		if fn != nil {
			fn()
		}
	}
}

// Suspend is SetHidden(true).
func (s *ManualSignal) Suspend() { s.SetHidden(true) }

// Resume is SetHidden(false).
func (s *ManualSignal) Resume() { s.SetHidden(false) }

// Suspended reports the current state.
func (s *ManualSignal) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Subscribers returns the number of active subscriptions.
func (s *ManualSignal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
