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

// Package dedup tracks which webhook event IDs and approval instance codes
// have already been handled. Feishu retries deliveries on slow responses and
// may deliver the same instance through several events, so both layers are
// needed: event IDs catch straight retries, instance codes catch distinct
// events about the same approval.
//
// The check and the mark are a single atomic step in every implementation.
// That closes the race between two near-simultaneous deliveries of the same
// instance: exactly one caller observes "new".
package dedup

import "context"

// Store answers "is this the first time?" for event IDs and instance codes,
// marking the ID as part of the same atomic operation.
type Store interface {
	// IsNewEvent returns true if the event ID has NOT been seen before.
	// If true, the ID is now recorded.
	IsNewEvent(ctx context.Context, eventID string) (bool, error)

	// MarkInstance returns true if the instance code has NOT been processed
	// before. If true, the code is now recorded — before any background work
	// starts on it.
	MarkInstance(ctx context.Context, instanceCode string) (bool, error)
}
