// Package jsonp runs callback-style vendor scripts outside a browser.
//
// A script such as `jsonpgz({...});` invokes a callback by a well-known
// global name. Slots models that global namespace: each name holds at most
// one callback. Acquire installs a callback for the duration of a scope and
// restores whatever was there before when the scope is released.
package jsonp

import (
	"context"
	"sync"
)

// Callback receives the raw argument text of a script call.
type Callback func(arg []byte)

// Slots is a namespace of named single-occupant callback mailboxes.
// The zero value is ready to use.
type Slots struct {
	mu     sync.Mutex
	slots  map[string]Callback
	leases map[string]chan struct{}
}

// Register sets the occupant of name outside of any scope, replacing the
// previous one. A nil callback clears the slot.
func (s *Slots) Register(name string, cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(name, cb)
}

// Lookup returns the current occupant of name.
func (s *Slots) Lookup(name string) (Callback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.slots[name]
	return cb, ok
}

// Acquire installs cb as the occupant of name until release is called.
// Acquirers of the same name are serialized: Acquire waits for the previous
// scope to be released or for ctx to be done. release restores the occupant
// found at acquisition time, or empties the slot if there was none. It is
// safe to call release more than once.
func (s *Slots) Acquire(ctx context.Context, name string, cb Callback) (release func(), err error) {
	lease := s.lease(name)
	select {
	case lease <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	prev, hadPrev := s.slots[name]
	s.setLocked(name, cb)
	s.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			s.mu.Lock()
			if hadPrev {
				s.setLocked(name, prev)
			} else {
				delete(s.slots, name)
			}
			s.mu.Unlock()
			<-lease
		})
	}
	return release, nil
}

func (s *Slots) lease(name string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leases == nil {
		s.leases = make(map[string]chan struct{})
	}
	l, ok := s.leases[name]
	if !ok {
		l = make(chan struct{}, 1)
		s.leases[name] = l
	}
	return l
}

func (s *Slots) setLocked(name string, cb Callback) {
	if cb == nil {
		delete(s.slots, name)
		return
	}
	if s.slots == nil {
		s.slots = make(map[string]Callback)
	}
	s.slots[name] = cb
}
