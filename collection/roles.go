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

import "strings"

// Role is a permission bitmask. Only non-zero combinations of the three
// defined bits are valid registry entries
type Role uint8

const (
	RoleAdmin Role = 1 << iota
	RoleMinter
	RoleWithdrawer
)

// RoleAll is the full permission set granted to the creator
const RoleAll = RoleAdmin | RoleMinter | RoleWithdrawer

// Valid returns true for the seven legal non-zero combinations
func (r Role) Valid() bool {
	return r != 0 && r&^RoleAll == 0
}

// Has performs the bitwise test for a required bit
func (r Role) Has(required Role) bool {
	return r&required != 0
}

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	if r.Has(RoleAdmin) {
		parts = append(parts, "admin")
	}
	if r.Has(RoleMinter) {
		parts = append(parts, "minter")
	}
	if r.Has(RoleWithdrawer) {
		parts = append(parts, "withdrawer")
	}
	return strings.Join(parts, "|")
}

// roleRegistry maps addresses to their permission bitmask. An absent
// address has no permissions
type roleRegistry map[Address]Role

func (rr roleRegistry) has(addr Address, required Role) bool {
	return rr[addr].Has(required)
}
