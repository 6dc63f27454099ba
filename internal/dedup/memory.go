// Copyright (c) 2026 SHIC AB
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

package dedup

import (
	"context"
	"sync"
)

// DefaultMaxEntries is the cap on each membership set. When a set reaches
// this size it is truncated to the most recently inserted half. That makes
// eviction approximate LRU-by-insertion, not exact recency: a duplicate
// evicted just before its retry arrives will be reprocessed. Accepted
// trade-off — there is no persistence and no cross-restart guarantee.
const DefaultMaxEntries = 10000

// Memory is the default Store: two bounded in-process sets guarded by one
// mutex. Suitable for the bursty-but-low-volume traffic this service sees.
type Memory struct {
	mu        sync.Mutex
	events    *boundedSet
	instances *boundedSet
}

// NewMemory creates an in-memory store. maxEntries <= 0 uses DefaultMaxEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		events:    newBoundedSet(maxEntries),
		instances: newBoundedSet(maxEntries),
	}
}

// IsNewEvent implements Store.
func (m *Memory) IsNewEvent(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events.add(eventID), nil
}

// MarkInstance implements Store.
func (m *Memory) MarkInstance(_ context.Context, instanceCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instances.add(instanceCode), nil
}

// Len returns the current sizes of the two sets. Used by tests.
func (m *Memory) Len() (events, instances int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events.members), len(m.instances.members)
}

// boundedSet is a membership set that remembers insertion order and, on
// reaching its cap, keeps only the most recently inserted half.
type boundedSet struct {
	members map[string]struct{}
	order   []string
	max     int
}

func newBoundedSet(max int) *boundedSet {
	return &boundedSet{
		members: make(map[string]struct{}),
		max:     max,
	}
}

// add returns true if the id was not already present, recording it.
// Callers must hold the owning lock.
func (s *boundedSet) add(id string) bool {
	if _, ok := s.members[id]; ok {
		return false
	}

	if len(s.members) >= s.max {
		s.truncate()
	}

	s.members[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// truncate keeps the most recently inserted half of the set.
func (s *boundedSet) truncate() {
	keep := s.max / 2
	if keep > len(s.order) {
		keep = len(s.order)
	}
	tail := s.order[len(s.order)-keep:]

	members := make(map[string]struct{}, keep)
	order := make([]string, len(tail))
	copy(order, tail)
	for _, id := range order {
		members[id] = struct{}{}
	}

	s.members = members
	s.order = order
}
