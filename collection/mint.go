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
	"fmt"

	"github.com/blinklabs-io/quoll/event"
	"github.com/google/uuid"
)

// MintStatus is the mint state machine over time, keyed off the collection
// fields. Paused is an independent axis and wins over Open
type MintStatus uint8

const (
	MintNotStarted MintStatus = iota
	MintOpen
	MintEnded
	MintSoldOut
	MintPaused
)

func (s MintStatus) String() string {
	switch s {
	case MintNotStarted:
		return "not_started"
	case MintOpen:
		return "open"
	case MintEnded:
		return "ended"
	case MintSoldOut:
		return "sold_out"
	case MintPaused:
		return "paused"
	default:
		return "unknown"
	}
}

func (c *Collection) mintStatus(now int64) MintStatus {
	switch {
	case now < c.mintStart:
		return MintNotStarted
	case now > c.mintEnd:
		return MintEnded
	case c.supply >= c.maxSupply:
		return MintSoldOut
	case c.paused:
		return MintPaused
	default:
		return MintOpen
	}
}

// MintStatusAt returns the mint state machine position at the given clock
// value. Both window boundaries are inclusive
func (c *Collection) MintStatusAt(now int64) MintStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mintStatus(now)
}

// Mint produces one collectible for the caller. It requires the window to
// be open, the MINTER bit, an allow-list pass and payment covering the
// price. Exactly the price is credited to the treasury; the remainder of
// the payment is returned as change. Any failed precondition leaves the
// aggregate untouched
func (c *Collection) Mint(
	caller Address,
	payment uint64,
	now int64,
) (*Item, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return nil, 0, err
	}
	defer scope.release()
	switch c.mintStatus(now) {
	case MintNotStarted:
		return nil, 0, ErrMintNotStarted
	case MintEnded:
		return nil, 0, ErrMintEnded
	case MintSoldOut:
		return nil, 0, ErrSupplyExhausted
	case MintPaused:
		return nil, 0, ErrPaused
	}
	if !c.roles.has(caller, RoleMinter) {
		return nil, 0, ErrMissingRole
	}
	if !c.allowlist.isMember(caller, now) {
		return nil, 0, ErrNotAllowListed
	}
	if payment < c.price {
		return nil, 0, &InsufficientPaymentError{
			Required: c.price,
			Provided: payment,
		}
	}
	item := &Item{
		ID:           uuid.New(),
		CollectionID: c.id,
		Name:         fmt.Sprintf("%s #%d", c.name, c.supply+1),
		Description:  c.description,
		Creator:      c.creator,
		Owner:        caller,
		RevealTime:   c.revealTime,
	}
	change := payment - c.price
	t := &txn{c: c}
	t.stage(func() {
		c.supply++
		c.treasury += c.price
	})
	t.emit(
		event.ItemMintedEventType,
		event.ItemMintedEvent{
			CollectionId: c.id.String(),
			ItemId:       item.ID.String(),
			Owner:        string(caller),
			Price:        c.price,
			Supply:       c.supply + 1,
		},
	)
	t.commit()
	c.logger.Debug(
		"item minted",
		"component", "collection",
		"collection_id", c.id.String(),
		"item_id", item.ID.String(),
		"owner", string(caller),
		"supply", c.supply,
	)
	return item, change, nil
}
