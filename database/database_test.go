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

package database_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/blinklabs-io/quoll/database"
	"github.com/blinklabs-io/quoll/database/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return db
}

func TestMetadataCollectionRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	collectionId := uuid.New().String()

	_, found, err := db.Metadata().GetCollection(collectionId)
	require.NoError(t, err)
	assert.False(t, found)

	snapshot := models.Collection{
		CollectionId:   collectionId,
		Name:           "Quokka Pals",
		Symbol:         "QUOK",
		Creator:        "creator",
		RoyaltyPercent: 5,
		Price:          1_000_000,
		MaxSupply:      1000,
	}
	require.NoError(t, db.Metadata().SetCollection(snapshot))

	got, found, err := db.Metadata().GetCollection(collectionId)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Quokka Pals", got.Name)
	assert.Equal(t, uint64(1_000_000), got.Price)

	// Set is an upsert keyed by collection id
	snapshot.Supply = 7
	snapshot.TreasuryBalance = 7_000_000
	snapshot.Version = 2
	require.NoError(t, db.Metadata().SetCollection(snapshot))

	got, found, err = db.Metadata().GetCollection(collectionId)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(7), got.Supply)
	assert.Equal(t, uint64(2), got.Version)

	rows, err := db.Metadata().GetCollections()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMetadataItemRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	collectionId := uuid.New().String()

	for i := range 3 {
		require.NoError(t, db.Metadata().SetItem(models.Item{
			ItemId:       uuid.New().String(),
			CollectionId: collectionId,
			Name:         fmt.Sprintf("Quokka Pals #%d", i+1),
			Owner:        "owner",
		}))
	}

	items, err := db.Metadata().GetItemsByCollection(collectionId)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	itemId := items[0].ItemId
	got, found, err := db.Metadata().GetItem(itemId)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, collectionId, got.CollectionId)

	// Reveal flips persist through the upsert
	got.Revealed = true
	require.NoError(t, db.Metadata().SetItem(got))
	got, found, err = db.Metadata().GetItem(itemId)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Revealed)

	_, found, err = db.Metadata().GetItem(uuid.New().String())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJournalAppendAndReplay(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	type payload struct {
		Value int `json:"value"`
	}
	var seqs []uint64
	for i := range 5 {
		seq, err := db.Journal().Append(
			"collection.item_minted",
			now,
			payload{Value: i},
		)
		require.NoError(t, err)
		seqs = append(seqs, seq)
	}

	// Sequence numbers are strictly increasing
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}

	var replayed []database.JournalEntry
	err := db.Journal().Entries(func(entry database.JournalEntry) error {
		replayed = append(replayed, entry)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, replayed, 5)
	for i, entry := range replayed {
		assert.Equal(t, "collection.item_minted", entry.Type)
		assert.Equal(t, seqs[i], entry.Seq)
	}
}

func TestInMemoryDatabase(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	}()

	require.NoError(t, db.Metadata().SetCollection(models.Collection{
		CollectionId: uuid.New().String(),
		Name:         "ephemeral",
	}))
	_, err = db.Journal().Append("collection.created", time.Now(), nil)
	require.NoError(t, err)
}
