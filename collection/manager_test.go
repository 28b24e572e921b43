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
	"testing"

	"github.com/blinklabs-io/quoll/collection"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerTracking(t *testing.T) {
	m := collection.NewManager(collection.ManagerConfig{
		PromRegistry: prometheus.NewRegistry(),
	})

	c, adminCap, err := m.Create(baseParams(), baseTime)
	require.NoError(t, err)

	got, ok := m.Collection(c.ID())
	require.True(t, ok)
	assert.Same(t, c, got)

	gotCap, ok := m.Capability(adminCap.ID)
	require.True(t, ok)
	assert.Same(t, adminCap, gotCap)

	_, ok = m.Collection(uuid.New())
	assert.False(t, ok)
	_, ok = m.Capability(uuid.New())
	assert.False(t, ok)

	snapshots := m.Collections()
	require.Len(t, snapshots, 1)
	assert.Equal(t, c.ID(), snapshots[0].ID)
}

func TestManagerCreateValidationPassthrough(t *testing.T) {
	m := collection.NewManager(collection.ManagerConfig{
		PromRegistry: prometheus.NewRegistry(),
	})
	params := baseParams()
	params.MaxSupply = 0
	_, _, err := m.Create(params, baseTime)
	require.ErrorIs(t, err, collection.ErrInvalidMaxSupply)
	assert.Empty(t, m.Collections())
}

func TestManagerMint(t *testing.T) {
	m := collection.NewManager(collection.ManagerConfig{
		PromRegistry: prometheus.NewRegistry(),
	})
	c, _, err := m.Create(baseParams(), baseTime)
	require.NoError(t, err)

	_, _, err = m.Mint(uuid.New(), "creator", 1_000_000, mintStart)
	require.ErrorIs(t, err, collection.ErrUnknownCollection)

	item, change, err := m.Mint(c.ID(), "creator", 1_500_000, mintStart)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), change)

	// Minted items become addressable by id
	got, ok := m.Item(item.ID)
	require.True(t, ok)
	assert.Same(t, item, got)
	_, ok = m.Item(uuid.New())
	assert.False(t, ok)
}

func TestManagerExecuteWithdrawal(t *testing.T) {
	m := collection.NewManager(collection.ManagerConfig{
		PromRegistry: prometheus.NewRegistry(),
	})
	c, adminCap, err := m.Create(baseParams(), baseTime)
	require.NoError(t, err)

	_, err = m.ExecuteWithdrawal(
		uuid.New(),
		"creator",
		adminCap,
		baseTime,
	)
	require.ErrorIs(t, err, collection.ErrUnknownCollection)

	_, _, err = m.Mint(c.ID(), "creator", 1_000_000, mintStart)
	require.NoError(t, err)
	require.NoError(
		t,
		c.RequestWithdrawal("creator", adminCap, 1_000_000, baseTime),
	)
	_, err = m.ExecuteWithdrawal(
		c.ID(),
		"creator",
		adminCap,
		baseTime+collection.DefaultWithdrawalTimeLock,
	)
	var thresholdErr *collection.ThresholdNotMetError
	require.ErrorAs(t, err, &thresholdErr)
}
