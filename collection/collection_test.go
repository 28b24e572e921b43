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

package collection_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/blinklabs-io/quoll/collection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	baseTime  = int64(1_700_000_000_000)
	mintStart = baseTime
	mintEnd   = baseTime + 30*24*60*60*1000
)

func baseParams() collection.CreateParams {
	return collection.CreateParams{
		Name:           "Quokka Pals",
		Symbol:         "QUOK",
		Description:    "a small test collection",
		Creator:        "creator",
		RoyaltyPercent: 5,
		Price:          1_000_000,
		MintStart:      mintStart,
		MintEnd:        mintEnd,
		RevealTime:     mintEnd,
		MaxSupply:      1000,
		Upgradable:     true,
	}
}

func newTestCollection(
	t *testing.T,
	mut func(*collection.CreateParams),
) (*collection.Collection, *collection.AdminCapability) {
	t.Helper()
	params := baseParams()
	if mut != nil {
		mut(&params)
	}
	c, adminCap, err := collection.New(
		collection.CollectionConfig{},
		params,
		baseTime,
	)
	require.NoError(t, err)
	return c, adminCap
}

func TestNewValidation(t *testing.T) {
	testDefs := []struct {
		name        string
		mut         func(*collection.CreateParams)
		expectedErr error
	}{
		{
			name:        "empty name",
			mut:         func(p *collection.CreateParams) { p.Name = "" },
			expectedErr: collection.ErrInvalidName,
		},
		{
			name: "name too long",
			mut: func(p *collection.CreateParams) {
				p.Name = strings.Repeat("x", collection.MaxNameLen+1)
			},
			expectedErr: collection.ErrInvalidName,
		},
		{
			name:        "empty symbol",
			mut:         func(p *collection.CreateParams) { p.Symbol = "" },
			expectedErr: collection.ErrInvalidSymbol,
		},
		{
			name: "symbol too long",
			mut: func(p *collection.CreateParams) {
				p.Symbol = strings.Repeat("Q", collection.MaxSymbolLen+1)
			},
			expectedErr: collection.ErrInvalidSymbol,
		},
		{
			name: "description too long",
			mut: func(p *collection.CreateParams) {
				p.Description = strings.Repeat(
					"d",
					collection.MaxDescriptionLen+1,
				)
			},
			expectedErr: collection.ErrInvalidDescription,
		},
		{
			name:        "empty creator",
			mut:         func(p *collection.CreateParams) { p.Creator = "" },
			expectedErr: collection.ErrInvalidAddress,
		},
		{
			name: "royalty below minimum",
			mut: func(p *collection.CreateParams) {
				p.RoyaltyPercent = 0
			},
			expectedErr: collection.ErrInvalidRoyalty,
		},
		{
			name: "royalty above maximum",
			mut: func(p *collection.CreateParams) {
				p.RoyaltyPercent = collection.MaxRoyaltyPercent + 1
			},
			expectedErr: collection.ErrInvalidRoyalty,
		},
		{
			name: "mint end equals start",
			mut: func(p *collection.CreateParams) {
				p.MintEnd = p.MintStart
			},
			expectedErr: collection.ErrInvalidTimeWindow,
		},
		{
			name: "reveal before mint start",
			mut: func(p *collection.CreateParams) {
				p.RevealTime = p.MintStart - 1
			},
			expectedErr: collection.ErrInvalidRevealTime,
		},
		{
			name: "reveal past grace",
			mut: func(p *collection.CreateParams) {
				p.RevealTime = p.MintEnd + collection.RevealGrace + 1
			},
			expectedErr: collection.ErrInvalidRevealTime,
		},
		{
			name: "zero max supply",
			mut: func(p *collection.CreateParams) {
				p.MaxSupply = 0
			},
			expectedErr: collection.ErrInvalidMaxSupply,
		},
		{
			name: "capability expiry in the past",
			mut: func(p *collection.CreateParams) {
				p.AdminCapExpiry = baseTime - 1
			},
			expectedErr: collection.ErrInvalidExpiry,
		},
		{
			name: "negative withdrawal time lock",
			mut: func(p *collection.CreateParams) {
				p.WithdrawalTimeLock = -1
			},
			expectedErr: collection.ErrInvalidTimeWindow,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			params := baseParams()
			testDef.mut(&params)
			_, _, err := collection.New(
				collection.CollectionConfig{},
				params,
				baseTime,
			)
			require.ErrorIs(t, err, testDef.expectedErr)
		})
	}
}

func TestNewBoundaryValues(t *testing.T) {
	// Royalty bounds and the reveal grace boundary are all inclusive
	newTestCollection(t, func(p *collection.CreateParams) {
		p.RoyaltyPercent = collection.MinRoyaltyPercent
	})
	newTestCollection(t, func(p *collection.CreateParams) {
		p.RoyaltyPercent = collection.MaxRoyaltyPercent
	})
	newTestCollection(t, func(p *collection.CreateParams) {
		p.RevealTime = p.MintStart
	})
	newTestCollection(t, func(p *collection.CreateParams) {
		p.RevealTime = p.MintEnd + collection.RevealGrace
	})
}

func TestNewDefaults(t *testing.T) {
	c, adminCap := newTestCollection(t, nil)
	assert.Equal(
		t,
		baseTime+collection.DefaultCapabilityTTL,
		adminCap.Expiry,
	)
	assert.Equal(t, collection.Address("creator"), adminCap.Owner)
	assert.Equal(t, c.ID(), adminCap.CollectionID)

	snapshot := c.Snapshot()
	assert.Equal(t, collection.DefaultWithdrawalTimeLock, snapshot.TimeLock)
	assert.Equal(t, uint64(0), snapshot.Supply)
	assert.Equal(t, uint64(0), snapshot.TreasuryBalance)
	assert.Equal(t, uint64(0), snapshot.Version)
	assert.False(t, snapshot.Paused)

	// Creator holds all three role bits
	assert.True(t, c.HasRole("creator", collection.RoleAdmin))
	assert.True(t, c.HasRole("creator", collection.RoleMinter))
	assert.True(t, c.HasRole("creator", collection.RoleWithdrawer))
	assert.False(t, c.HasRole("someone-else", collection.RoleAdmin))
}

func TestUpdateCollection(t *testing.T) {
	c, adminCap := newTestCollection(t, nil)

	err := c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		uint64(2_000_000),
		baseTime,
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), c.Price())
	assert.Equal(t, uint64(1), c.Snapshot().Version)

	// Moving the end must keep ordering and the reveal bound intact
	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldMintingEnd,
		mintStart,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidTimeWindow)
	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldMintingEnd,
		mintStart+1,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidRevealTime)
	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldMintingEnd,
		mintEnd+1000,
		baseTime,
	)
	require.NoError(t, err)

	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPaused,
		true,
		baseTime,
	)
	require.NoError(t, err)
	assert.True(t, c.Snapshot().Paused)

	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldWithdrawalTimeLock,
		int64(1000),
		baseTime,
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.Snapshot().TimeLock)

	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.UpdateField("bogus"),
		1,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidField)

	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPaused,
		"yes",
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidFieldValue)
	assert.Equal(t, uint64(4), c.Snapshot().Version)
}

func TestUpdateCollectionJsonNumericValues(t *testing.T) {
	c, adminCap := newTestCollection(t, nil)

	// JSON bodies decode numbers as float64
	var body struct {
		Value any `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"value":2500000}`), &body))
	require.NoError(t, c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		body.Value,
		baseTime,
	))
	assert.Equal(t, uint64(2_500_000), c.Price())

	require.NoError(t, json.Unmarshal(
		[]byte(fmt.Sprintf(`{"value":%d}`, mintEnd+1000)),
		&body,
	))
	require.NoError(t, c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldMintingEnd,
		body.Value,
		baseTime,
	))
	assert.Equal(t, mintEnd+1000, c.Snapshot().MintEnd)

	require.NoError(t, json.Unmarshal([]byte(`{"value":3600000}`), &body))
	require.NoError(t, c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldWithdrawalTimeLock,
		body.Value,
		baseTime,
	))
	assert.Equal(t, int64(3_600_000), c.Snapshot().TimeLock)

	// Fractional and negative numbers are rejected
	require.NoError(t, json.Unmarshal([]byte(`{"value":0.5}`), &body))
	err := c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		body.Value,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidFieldValue)

	require.NoError(t, json.Unmarshal([]byte(`{"value":-5}`), &body))
	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		body.Value,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidFieldValue)

	// Decoders configured with UseNumber hand over json.Number
	dec := json.NewDecoder(strings.NewReader(`{"value":3000000}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&body))
	require.NoError(t, c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		body.Value,
		baseTime,
	))
	assert.Equal(t, uint64(3_000_000), c.Price())
}

func TestUpdateCollectionAuthorization(t *testing.T) {
	c, adminCap := newTestCollection(t, nil)

	// Non-admin caller
	err := c.UpdateCollection(
		"stranger",
		adminCap,
		collection.FieldPrice,
		uint64(1),
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrMissingRole)

	// Expired capability
	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		uint64(1),
		adminCap.Expiry+1,
	)
	require.ErrorIs(t, err, collection.ErrCapabilityExpired)

	// Dead capability
	err = c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		uint64(1),
		adminCap.Expiry+collection.CapabilityRenewalGrace+1,
	)
	require.ErrorIs(t, err, collection.ErrCapabilityDead)

	// Capability from another collection
	_, otherCap := newTestCollection(t, nil)
	err = c.UpdateCollection(
		"creator",
		otherCap,
		collection.FieldPrice,
		uint64(1),
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrCapabilityMismatch)
}

func TestUpdateCollectionNotUpgradable(t *testing.T) {
	c, adminCap := newTestCollection(t, func(p *collection.CreateParams) {
		p.Upgradable = false
	})
	err := c.UpdateCollection(
		"creator",
		adminCap,
		collection.FieldPrice,
		uint64(1),
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrNotUpgradable)
}

func TestTriggerFailSafe(t *testing.T) {
	// The fail-safe pause works even on non-upgradable collections
	c, adminCap := newTestCollection(t, func(p *collection.CreateParams) {
		p.Upgradable = false
	})
	err := c.TriggerFailSafe("stranger", adminCap, baseTime)
	require.ErrorIs(t, err, collection.ErrMissingRole)

	require.NoError(t, c.TriggerFailSafe("creator", adminCap, baseTime))
	assert.True(t, c.Snapshot().Paused)
	assert.Equal(
		t,
		collection.MintPaused,
		c.MintStatusAt(mintStart+1),
	)
}

func TestUpdateRole(t *testing.T) {
	c, adminCap := newTestCollection(t, nil)

	err := c.UpdateRole(
		"creator",
		adminCap,
		"minter-1",
		collection.Role(0),
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidRoleMask)

	err = c.UpdateRole(
		"creator",
		adminCap,
		"minter-1",
		collection.Role(8),
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrInvalidRoleMask)

	err = c.UpdateRole(
		"creator",
		adminCap,
		"minter-1",
		collection.RoleMinter,
		baseTime,
	)
	require.NoError(t, err)
	assert.True(t, c.HasRole("minter-1", collection.RoleMinter))
	assert.False(t, c.HasRole("minter-1", collection.RoleAdmin))

	// Grant is an overwrite, not a merge
	err = c.UpdateRole(
		"creator",
		adminCap,
		"minter-1",
		collection.RoleWithdrawer,
		baseTime,
	)
	require.NoError(t, err)
	assert.False(t, c.HasRole("minter-1", collection.RoleMinter))
	assert.True(t, c.HasRole("minter-1", collection.RoleWithdrawer))

	err = c.UpdateRole(
		"minter-1",
		adminCap,
		"other",
		collection.RoleMinter,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrMissingRole)
}

func TestAllowListRoundTrip(t *testing.T) {
	c, adminCap := newTestCollection(t, nil)
	expiry := mintEnd

	// Empty list means the gate is open to everyone
	assert.True(t, c.IsAllowListed("anyone", baseTime))

	added, err := c.AddToAllowList(
		"creator",
		adminCap,
		[]collection.Address{"alice", "bob", "alice"},
		expiry,
		baseTime,
	)
	require.NoError(t, err)
	assert.ElementsMatch(
		t,
		[]collection.Address{"alice", "bob"},
		added,
	)

	// Re-adding reports only genuinely new entries
	added, err = c.AddToAllowList(
		"creator",
		adminCap,
		[]collection.Address{"alice", "carol"},
		expiry,
		baseTime,
	)
	require.NoError(t, err)
	assert.Equal(t, []collection.Address{"carol"}, added)

	// Non-empty list closes the gate to non-members
	assert.True(t, c.IsAllowListed("alice", baseTime))
	assert.False(t, c.IsAllowListed("mallory", baseTime))

	// Membership expires; the boundary is inclusive
	assert.True(t, c.IsAllowListed("alice", expiry))
	assert.False(t, c.IsAllowListed("alice", expiry+1))

	removed, err := c.RemoveFromAllowList(
		"creator",
		adminCap,
		[]collection.Address{"bob", "mallory", "bob"},
		baseTime,
	)
	require.NoError(t, err)
	assert.Equal(t, []collection.Address{"bob"}, removed)
	assert.False(t, c.IsAllowListed("bob", baseTime))
	assert.Equal(t, 2, c.Snapshot().AllowListSize)
}

func TestAllowListBatchLimit(t *testing.T) {
	c, adminCap := newTestCollection(t, nil)
	batch := make([]collection.Address, collection.MaxAllowListBatch+1)
	for i := range batch {
		batch[i] = collection.Address(strings.Repeat("a", 3))
	}
	_, err := c.AddToAllowList(
		"creator",
		adminCap,
		batch,
		mintEnd,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrBatchTooLarge)
	_, err = c.RemoveFromAllowList("creator", adminCap, batch, baseTime)
	require.ErrorIs(t, err, collection.ErrBatchTooLarge)
}

func TestReveal(t *testing.T) {
	c, _ := newTestCollection(t, func(p *collection.CreateParams) {
		p.RevealTime = mintStart + 1000
	})
	item, _, err := c.Mint("creator", 1_000_000, mintStart)
	require.NoError(t, err)

	err = c.Reveal(item, mintStart+999)
	require.ErrorIs(t, err, collection.ErrNotRevealable)

	require.NoError(t, c.Reveal(item, mintStart+1000))
	assert.True(t, item.Revealed)

	err = c.Reveal(item, mintStart+1001)
	require.ErrorIs(t, err, collection.ErrAlreadyRevealed)

	other, _ := newTestCollection(t, nil)
	err = other.Reveal(item, mintEnd)
	require.ErrorIs(t, err, collection.ErrItemMismatch)

	err = c.Reveal(nil, mintEnd)
	require.ErrorIs(t, err, collection.ErrItemMismatch)
}
