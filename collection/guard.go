// Copyright 2025 Blink Labs Software
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

package collection

import (
	"github.com/blinklabs-io/quoll/event"
)

// reentrancyGuard is the per-aggregate mutation lock. Callers must already
// hold the collection mutex; the flag catches reentrant calls made from
// within a guarded operation
type reentrancyGuard struct {
	held bool
}

// guardScope is the token returned by acquire. Release must run on every
// exit path, so callers defer it immediately
type guardScope struct {
	guard    *reentrancyGuard
	released bool
}

func (g *reentrancyGuard) acquire() (*guardScope, error) {
	if g.held {
		return nil, ErrReentrantCall
	}
	g.held = true
	return &guardScope{guard: g}, nil
}

func (s *guardScope) release() {
	if s.released {
		return
	}
	s.guard.held = false
	s.released = true
}

// txn collects the writes and events of one guarded call. Nothing is
// applied until commit, so a failed precondition or a panic before commit
// leaves the aggregate exactly as the call found it
type txn struct {
	c      *Collection
	writes []func()
	events []stagedEvent
}

type stagedEvent struct {
	eventType event.EventType
	payload   any
}

func (t *txn) stage(write func()) {
	t.writes = append(t.writes, write)
}

func (t *txn) emit(eventType event.EventType, payload any) {
	t.events = append(t.events, stagedEvent{
		eventType: eventType,
		payload:   payload,
	})
}

// commit applies the staged writes in order, then publishes the staged
// events. Events are only ever observed for committed state
func (t *txn) commit() {
	for _, write := range t.writes {
		write()
	}
	for _, evt := range t.events {
		t.c.publish(evt.eventType, evt.payload)
	}
	t.writes = nil
	t.events = nil
}
