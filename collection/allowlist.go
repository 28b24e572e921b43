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

// allowList maps addresses to their membership expiry (ms). An empty table
// means the gate is open to everyone
type allowList map[Address]int64

// isMember implements the default-open policy: with no entries everyone
// passes; otherwise membership requires an unexpired entry
func (al allowList) isMember(addr Address, now int64) bool {
	if len(al) == 0 {
		return true
	}
	expiry, ok := al[addr]
	return ok && expiry >= now
}

// addBatch returns the set of addresses that would actually be added,
// absorbing duplicates and already-present entries. It performs no mutation
func (al allowList) addBatch(addrs []Address) []Address {
	seen := make(map[Address]struct{}, len(addrs))
	added := make([]Address, 0, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		if _, ok := al[addr]; ok {
			continue
		}
		added = append(added, addr)
	}
	return added
}

// removeBatch returns the set of addresses that would actually be removed,
// absorbing duplicates and absent entries. It performs no mutation
func (al allowList) removeBatch(addrs []Address) []Address {
	seen := make(map[Address]struct{}, len(addrs))
	removed := make([]Address, 0, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		if _, ok := al[addr]; !ok {
			continue
		}
		removed = append(removed, addr)
	}
	return removed
}
