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

package quoll_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/quoll"
	"github.com/blinklabs-io/quoll/api"
	"github.com/blinklabs-io/quoll/collection"
	"github.com/blinklabs-io/quoll/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	baseTime  = int64(1_700_000_000_000)
	mintEnd   = baseTime + 30*24*60*60*1000
	mintPrice = uint64(1_000_000)
)

// testClock is a settable clock for driving time-dependent behavior
type testClock struct {
	now atomic.Int64
}

func (c *testClock) Now() int64 {
	return c.now.Load()
}

func (c *testClock) Set(t int64) {
	c.now.Store(t)
}

func testCreateParams() collection.CreateParams {
	return collection.CreateParams{
		Name:           "Quokka Pals",
		Symbol:         "QUOK",
		Description:    "engine test collection",
		Creator:        "creator",
		RoyaltyPercent: 5,
		Price:          mintPrice,
		MintStart:      baseTime,
		MintEnd:        mintEnd,
		RevealTime:     mintEnd,
		MaxSupply:      1000,
		Upgradable:     true,
	}
}

func TestEngineLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &testClock{}
	clock.Set(baseTime)
	engine, err := quoll.New(
		quoll.NewConfig(
			quoll.WithClock(clock.Now),
			quoll.WithShutdownTimeout(5 * time.Second),
		),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() {
		runDone <- engine.Run(ctx)
	}()

	// Wait for the database to come up
	require.Eventually(t, func() bool {
		return engine.Database() != nil
	}, 5*time.Second, 10*time.Millisecond)

	snapshot, adminCap, err := engine.CreateCollection(testCreateParams())
	require.NoError(t, err)
	require.NotNil(t, adminCap)
	assert.Equal(t, baseTime+collection.DefaultCapabilityTTL, adminCap.Expiry)

	// Mint and verify the snapshot and change
	item, change, err := engine.Mint(snapshot.ID, "creator", mintPrice+5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), change)
	got, found := engine.GetCollection(snapshot.ID)
	require.True(t, found)
	assert.Equal(t, uint64(1), got.Supply)
	assert.Equal(t, mintPrice, got.TreasuryBalance)

	// Reveal becomes possible once the clock passes the reveal time
	err = engine.Reveal(item.ID)
	require.ErrorIs(t, err, collection.ErrNotRevealable)
	clock.Set(mintEnd)
	require.NoError(t, engine.Reveal(item.ID))
	gotItem, found := engine.GetItem(item.ID)
	require.True(t, found)
	assert.True(t, gotItem.Revealed)

	// Allow-list round trip through the engine
	clock.Set(baseTime)
	added, err := engine.AddToAllowList(
		snapshot.ID,
		"creator",
		adminCap.ID,
		[]collection.Address{"vip"},
		mintEnd,
	)
	require.NoError(t, err)
	assert.Equal(t, []collection.Address{"vip"}, added)
	allowed, err := engine.IsAllowListed(snapshot.ID, "vip")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = engine.IsAllowListed(snapshot.ID, "creator")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Withdrawal workflow: time-lock, then consume with threshold unmet
	require.NoError(t, engine.RequestWithdrawal(
		snapshot.ID,
		"creator",
		adminCap.ID,
		mintPrice,
	))
	_, err = engine.ExecuteWithdrawal(snapshot.ID, "creator", adminCap.ID)
	require.ErrorIs(t, err, collection.ErrTimeLockActive)
	clock.Set(baseTime + collection.DefaultWithdrawalTimeLock)
	_, err = engine.ExecuteWithdrawal(snapshot.ID, "creator", adminCap.ID)
	var thresholdErr *collection.ThresholdNotMetError
	require.ErrorAs(t, err, &thresholdErr)

	// Capability status through the engine
	status, err := engine.GetCapabilityStatus(adminCap.ID)
	require.NoError(t, err)
	assert.Equal(t, collection.CapabilityActive, status)

	// Snapshot persistence in the metadata store
	row, found, err := engine.Database().Metadata().
		GetCollection(snapshot.ID.String())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(1), row.Supply)

	// Domain events land in the journal via the async bus
	require.Eventually(t, func() bool {
		count := 0
		err := engine.Database().Journal().Entries(
			func(entry database.JournalEntry) error {
				count++
				return nil
			},
		)
		return err == nil && count >= 5
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, engine.Stop())
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop in time")
	}
}

func TestEngineUnknownIds(t *testing.T) {
	clock := &testClock{}
	clock.Set(baseTime)
	engine, err := quoll.New(
		quoll.NewConfig(quoll.WithClock(clock.Now)),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, engine.Stop())
	}()

	snapshot, adminCap, err := engine.CreateCollection(testCreateParams())
	require.NoError(t, err)

	_, _, err = engine.Mint(
		[16]byte{1},
		"creator",
		mintPrice,
	)
	require.ErrorIs(t, err, collection.ErrUnknownCollection)

	err = engine.Reveal([16]byte{2})
	require.ErrorIs(t, err, collection.ErrUnknownItem)

	_, err = engine.AddToAllowList(
		snapshot.ID,
		"creator",
		[16]byte{3},
		[]collection.Address{"vip"},
		mintEnd,
	)
	require.ErrorIs(t, err, collection.ErrUnknownCapability)

	err = engine.ExtendCapability([16]byte{4}, mintEnd)
	require.ErrorIs(t, err, collection.ErrUnknownCapability)

	_, found := engine.GetCollection([16]byte{5})
	assert.False(t, found)
	_ = adminCap
}

func TestEngineUpdateCollectionFromJson(t *testing.T) {
	clock := &testClock{}
	clock.Set(baseTime)
	engine, err := quoll.New(
		quoll.NewConfig(quoll.WithClock(clock.Now)),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, engine.Stop())
	}()

	snapshot, adminCap, err := engine.CreateCollection(testCreateParams())
	require.NoError(t, err)

	// Run each update through the wire representation the HTTP layer sees
	update := func(field, value string) error {
		body := fmt.Sprintf(
			`{"caller":"creator","capability_id":"%s","field":"%s","value":%s}`,
			adminCap.ID,
			field,
			value,
		)
		var req api.UpdateCollectionRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		capId, err := uuid.Parse(req.CapabilityId)
		require.NoError(t, err)
		return engine.UpdateCollection(
			snapshot.ID,
			collection.Address(req.Caller),
			capId,
			collection.UpdateField(req.Field),
			req.Value,
		)
	}

	require.NoError(t, update("price", "2500000"))
	require.NoError(
		t,
		update("minting_end", fmt.Sprintf("%d", mintEnd+1000)),
	)
	require.NoError(t, update("withdrawal_time_lock", "3600000"))
	require.NoError(t, update("paused", "true"))

	got, found := engine.GetCollection(snapshot.ID)
	require.True(t, found)
	assert.Equal(t, uint64(2_500_000), got.Price)
	assert.Equal(t, mintEnd+1000, got.MintEnd)
	assert.Equal(t, int64(3_600_000), got.TimeLock)
	assert.True(t, got.Paused)

	err = update("price", "0.5")
	require.ErrorIs(t, err, collection.ErrInvalidFieldValue)
}

func TestEngineGetItemCopy(t *testing.T) {
	clock := &testClock{}
	clock.Set(baseTime)
	engine, err := quoll.New(
		quoll.NewConfig(quoll.WithClock(clock.Now)),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, engine.Stop())
	}()

	snapshot, _, err := engine.CreateCollection(testCreateParams())
	require.NoError(t, err)
	item, _, err := engine.Mint(snapshot.ID, "creator", mintPrice)
	require.NoError(t, err)

	before, found := engine.GetItem(item.ID)
	require.True(t, found)
	require.False(t, before.Revealed)

	// Readers race the reveal; every read gets its own copy
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if it, ok := engine.GetItem(item.ID); ok {
				_ = it.Revealed
				_ = it.Attributes()
			}
		}
	}()
	clock.Set(mintEnd)
	require.NoError(t, engine.Reveal(item.ID))
	wg.Wait()

	// Earlier copies are unaffected by the reveal
	assert.False(t, before.Revealed)
	after, found := engine.GetItem(item.ID)
	require.True(t, found)
	assert.True(t, after.Revealed)
}

func TestEngineRequiresClock(t *testing.T) {
	cfg := quoll.NewConfig(quoll.WithClock(nil))
	_, err := quoll.New(cfg)
	require.Error(t, err)
}
