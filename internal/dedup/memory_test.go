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
	"fmt"
	"sync"
	"testing"
)

// TestIsNewEvent_FirstSeenThenDuplicate verifies the atomic check-and-mark.
func TestIsNewEvent_FirstSeenThenDuplicate(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	isNew, err := m.IsNewEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNew {
		t.Error("first sighting should be new")
	}

	isNew, _ = m.IsNewEvent(ctx, "evt-1")
	if isNew {
		t.Error("second sighting should be a duplicate")
	}

	// Event IDs and instance codes are independent sets
	fresh, _ := m.MarkInstance(ctx, "evt-1")
	if !fresh {
		t.Error("instance set should not share membership with the event set")
	}
}

// TestMarkInstance_ConcurrentDuplicates verifies that exactly one of many
// simultaneous deliveries of the same instance observes "new".
func TestMarkInstance_ConcurrentDuplicates(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	newCount := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := m.MarkInstance(ctx, "INS-concurrent")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if fresh {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if newCount != 1 {
		t.Errorf("exactly one caller should see a new instance, got %d", newCount)
	}
}

// TestEviction_BoundAndRecency verifies the truncation policy: inserting one
// past the cap leaves at most cap/2 + 1 entries, retaining the most recent.
func TestEviction_BoundAndRecency(t *testing.T) {
	m := NewMemory(10000)
	ctx := context.Background()

	for i := 0; i <= 10000; i++ {
		if _, err := m.IsNewEvent(ctx, fmt.Sprintf("evt-%d", i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	events, _ := m.Len()
	if events > 5001 {
		t.Errorf("event set size = %d, want <= 5001", events)
	}

	// The most recently inserted IDs must have survived
	isNew, _ := m.IsNewEvent(ctx, "evt-10000")
	if isNew {
		t.Error("evt-10000 was just inserted and should still be present")
	}
	isNew, _ = m.IsNewEvent(ctx, "evt-9999")
	if isNew {
		t.Error("evt-9999 should have survived truncation")
	}

	// The oldest IDs were evicted and look new again — the documented
	// limit of the policy, not a bug.
	isNew, _ = m.IsNewEvent(ctx, "evt-0")
	if !isNew {
		t.Error("evt-0 should have been evicted by truncation")
	}
}

// TestEviction_SmallCap exercises truncation with a cap small enough to
// inspect directly.
func TestEviction_SmallCap(t *testing.T) {
	m := NewMemory(4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		m.IsNewEvent(ctx, id)
	}

	// Set is at cap: next insert truncates to the last 2 ("c", "d") first.
	m.IsNewEvent(ctx, "e")

	events, _ := m.Len()
	if events != 3 {
		t.Errorf("event set size = %d, want 3 (c, d, e)", events)
	}

	// Survivors first (lookups of present ids do not mutate), then one
	// evicted id, which re-adding is fine since the set is below cap.
	checks := []struct {
		id      string
		wantNew bool
	}{
		{"c", false},
		{"d", false},
		{"e", false},
		{"a", true},
	}
	for _, c := range checks {
		isNew, _ := m.IsNewEvent(ctx, c.id)
		if isNew != c.wantNew {
			t.Errorf("IsNewEvent(%q) = %v, want %v", c.id, isNew, c.wantNew)
		}
	}
}
