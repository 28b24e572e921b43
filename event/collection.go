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

package event

// CollectionCreatedEventType is the event type for newly created collections
const CollectionCreatedEventType = EventType("collection.created")

// CollectionCreatedEvent is emitted once when a collection and its initial
// admin capability are created together
type CollectionCreatedEvent struct {
	// CollectionId is the unique identifier of the new collection
	CollectionId string
	// CapabilityId is the identifier of the initial admin capability
	CapabilityId string
	// Name is the collection name
	Name string
	// Symbol is the collection symbol
	Symbol string
	// Creator is the address that created the collection
	Creator string
	// MaxSupply is the supply ceiling
	MaxSupply uint64
	// Price is the mint price
	Price uint64
}

// ItemMintedEventType is the event type for successful mints
const ItemMintedEventType = EventType("collection.item_minted")

// ItemMintedEvent is emitted after a mint has been committed
type ItemMintedEvent struct {
	// CollectionId is the collection the item belongs to
	CollectionId string
	// ItemId is the identifier of the minted item
	ItemId string
	// Owner is the minting address
	Owner string
	// Price is the amount credited to the treasury
	Price uint64
	// Supply is the collection supply after this mint
	Supply uint64
}

// ItemRevealedEventType is the event type for item reveals
const ItemRevealedEventType = EventType("collection.item_revealed")

type ItemRevealedEvent struct {
	CollectionId string
	ItemId       string
	// RevealedAt is the clock value presented with the reveal call
	RevealedAt int64
}

// CollectionUpdatedEventType is the event type for collection field updates,
// including the fail-safe pause
const CollectionUpdatedEventType = EventType("collection.updated")

type CollectionUpdatedEvent struct {
	CollectionId string
	// Field names the updated collection field
	Field string
	// Version is the collection version counter after the update
	Version uint64
}

// AllowListUpdatedEventType is the event type for allow-list batch changes
const AllowListUpdatedEventType = EventType("collection.allowlist_updated")

// AllowListUpdatedEvent reports the exact set of addresses actually mutated
// by a batch call, not the raw input
type AllowListUpdatedEvent struct {
	CollectionId string
	// Added holds the addresses newly added by the batch
	Added []string
	// Removed holds the addresses actually removed by the batch
	Removed []string
	// Expiry is the allow-list expiry applied to added addresses
	Expiry int64
}

// RoleUpdatedEventType is the event type for role registry changes
const RoleUpdatedEventType = EventType("collection.role_updated")

type RoleUpdatedEvent struct {
	CollectionId string
	User         string
	// Roles is the permission bitmask now in effect for the user
	Roles uint8
}

// CapabilityNearExpiryEventType is the event type for the near-expiry
// notice emitted while a capability is inside its warning window
const CapabilityNearExpiryEventType = EventType("capability.near_expiry")

type CapabilityNearExpiryEvent struct {
	CapabilityId string
	CollectionId string
	// Expiry is the capability expiry timestamp (ms)
	Expiry int64
	// Remaining is the time left until expiry (ms)
	Remaining int64
}

// CapabilityRenewedEventType is the event type for grace-window renewals
const CapabilityRenewedEventType = EventType("capability.renewed")

type CapabilityRenewedEvent struct {
	CapabilityId string
	CollectionId string
	// Expiry is the new expiry timestamp (ms)
	Expiry int64
}
