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

// Package routing maps approval definition names to destination email
// addresses. The table is built once at startup and read-only afterwards;
// an approval whose name has no entry is simply not forwarded.
package routing

import "strings"

// Table is the static approval-name → destination mapping.
type Table struct {
	routes map[string]string
}

// New builds a table from config. Blank destinations are treated identically
// to missing entries.
func New(routes map[string]string) *Table {
	t := &Table{routes: make(map[string]string, len(routes))}
	for name, addr := range routes {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		t.routes[name] = strings.TrimSpace(addr)
	}
	return t
}

// Lookup returns the destination for an approval name, if routed.
func (t *Table) Lookup(approvalName string) (string, bool) {
	addr, ok := t.routes[approvalName]
	return addr, ok
}

// Len returns the number of routed approval names.
func (t *Table) Len() int {
	return len(t.routes)
}
