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

package api

import (
	"github.com/blinklabs-io/quoll/collection"
	"github.com/google/uuid"
)

// ApiEngine is the interface the API server uses to drive the engine. It
// decouples the HTTP layer from the concrete Engine struct and enables
// testing with mock implementations
type ApiEngine interface {
	// CreateCollection creates a collection and its initial admin capability
	CreateCollection(
		params collection.CreateParams,
	) (collection.Snapshot, *collection.AdminCapability, error)

	// Mint mints one item, returning the item and any change due
	Mint(
		collectionId uuid.UUID,
		caller collection.Address,
		payment uint64,
	) (*collection.Item, uint64, error)

	// Reveal reveals a minted item
	Reveal(itemId uuid.UUID) error

	// AddToAllowList adds addresses to a collection's allow-list
	AddToAllowList(
		collectionId uuid.UUID,
		caller collection.Address,
		capabilityId uuid.UUID,
		addrs []collection.Address,
		expiry int64,
	) ([]collection.Address, error)

	// RemoveFromAllowList removes addresses from the allow-list
	RemoveFromAllowList(
		collectionId uuid.UUID,
		caller collection.Address,
		capabilityId uuid.UUID,
		addrs []collection.Address,
	) ([]collection.Address, error)

	// RequestWithdrawal opens a pending withdrawal for the caller
	RequestWithdrawal(
		collectionId uuid.UUID,
		caller collection.Address,
		capabilityId uuid.UUID,
		amount uint64,
	) error

	// ExecuteWithdrawal drives the caller's pending withdrawal forward
	ExecuteWithdrawal(
		collectionId uuid.UUID,
		caller collection.Address,
		capabilityId uuid.UUID,
	) (uint64, error)

	// UpdateCollection changes one of the updatable collection fields
	UpdateCollection(
		collectionId uuid.UUID,
		caller collection.Address,
		capabilityId uuid.UUID,
		field collection.UpdateField,
		value any,
	) error

	// UpdateRole grants or replaces a user's permission bitmask
	UpdateRole(
		collectionId uuid.UUID,
		caller collection.Address,
		capabilityId uuid.UUID,
		user collection.Address,
		roles collection.Role,
	) error

	// ExtendCapability renews an admin capability during its grace window
	ExtendCapability(capabilityId uuid.UUID, newExpiry int64) error

	// TriggerFailSafe pauses a collection immediately
	TriggerFailSafe(
		collectionId uuid.UUID,
		caller collection.Address,
		capabilityId uuid.UUID,
	) error

	// GetCollection returns a snapshot of the identified collection
	GetCollection(collectionId uuid.UUID) (collection.Snapshot, bool)

	// GetCollections returns snapshots of every tracked collection
	GetCollections() []collection.Snapshot

	// GetItem returns a tracked item by id
	GetItem(itemId uuid.UUID) (*collection.Item, bool)

	// IsAllowListed reports whether addr passes the allow-list gate
	IsAllowListed(
		collectionId uuid.UUID,
		addr collection.Address,
	) (bool, error)

	// GetCapabilityStatus returns the lifecycle state of a capability
	GetCapabilityStatus(
		capabilityId uuid.UUID,
	) (collection.CapabilityStatus, error)
}
