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
	"github.com/google/uuid"
)

// CapabilityStatus is the lifecycle state of an AdminCapability at a given
// clock value
type CapabilityStatus uint8

const (
	// CapabilityActive means the capability authorizes administrative calls
	CapabilityActive CapabilityStatus = iota
	// CapabilityWarning is Active with less than the warning window left
	// before expiry; it never blocks a call
	CapabilityWarning
	// CapabilityExpired is past expiry but still inside the renewal grace
	// window; calls are refused, renewal is permitted
	CapabilityExpired
	// CapabilityDead is past the grace window; permanently unrenewable
	CapabilityDead
)

func (s CapabilityStatus) String() string {
	switch s {
	case CapabilityActive:
		return "active"
	case CapabilityWarning:
		return "warning"
	case CapabilityExpired:
		return "expired"
	case CapabilityDead:
		return "dead"
	default:
		return "unknown"
	}
}

// AdminCapability is a possession-based authorization token. Exactly one
// address holds it at a time; presenting it authorizes administrative
// operations while it is active
type AdminCapability struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	Owner        Address
	// Expiry is a millisecond timestamp; validity is strict (now <= expiry)
	Expiry int64
}

func newAdminCapability(
	collectionId uuid.UUID,
	owner Address,
	expiry int64,
) *AdminCapability {
	return &AdminCapability{
		ID:           uuid.New(),
		CollectionID: collectionId,
		Owner:        owner,
		Expiry:       expiry,
	}
}

// ValidAt returns true while the capability authorizes administrative calls
func (a *AdminCapability) ValidAt(now int64) bool {
	return now <= a.Expiry
}

// InWarning returns true while the capability is active with no more than
// the warning window remaining
func (a *AdminCapability) InWarning(now int64) bool {
	return a.ValidAt(now) && a.Expiry-now <= CapabilityWarningWindow
}

// InGrace returns true while renewal is permitted
func (a *AdminCapability) InGrace(now int64) bool {
	return now > a.Expiry && now <= a.Expiry+CapabilityRenewalGrace
}

// DeadAt returns true once the grace window has elapsed
func (a *AdminCapability) DeadAt(now int64) bool {
	return now > a.Expiry+CapabilityRenewalGrace
}

func (a *AdminCapability) Status(now int64) CapabilityStatus {
	switch {
	case a.DeadAt(now):
		return CapabilityDead
	case a.InGrace(now):
		return CapabilityExpired
	case a.InWarning(now):
		return CapabilityWarning
	default:
		return CapabilityActive
	}
}

// Transfer moves ownership to another address. The capability stays a
// single-holder token; transferring does not touch its expiry
func (a *AdminCapability) Transfer(newOwner Address) error {
	if newOwner == "" {
		return ErrInvalidAddress
	}
	a.Owner = newOwner
	return nil
}
