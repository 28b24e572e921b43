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

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/quoll/database/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// MetadataStore persists collection and item snapshots on SQLite
type MetadataStore struct {
	db      *gorm.DB
	logger  *slog.Logger
	dataDir string
}

// NewMetadataStore creates a SQLite metadata store. Uses an in-memory
// database when dataDir is empty
func NewMetadataStore(
	dataDir string,
	logger *slog.Logger,
) (*MetadataStore, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var metadataDb *gorm.DB
	var err error
	if dataDir == "" {
		// cache=shared allows multiple connections to share the same in-memory database
		metadataDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
		// WAL journal mode, disable sync on write
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	store := &MetadataStore{
		db:      metadataDb,
		logger:  logger,
		dataDir: dataDir,
	}
	// Configure tracing for GORM
	if err := store.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	for _, model := range models.MigrateModels {
		store.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := store.db.AutoMigrate(model); err != nil {
			return store, err
		}
	}
	return store, nil
}

// DB returns the underlying GORM database handle
func (s *MetadataStore) DB() *gorm.DB {
	return s.db
}

// Close shuts down the database connection
func (s *MetadataStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// SetCollection upserts a collection snapshot keyed by its identifier
func (s *MetadataStore) SetCollection(snapshot models.Collection) error {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_id"}},
		UpdateAll: true,
	}).Create(&snapshot)
	return result.Error
}

// GetCollection returns a collection snapshot by identifier
func (s *MetadataStore) GetCollection(
	collectionId string,
) (models.Collection, bool, error) {
	var row models.Collection
	result := s.db.Where("collection_id = ?", collectionId).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return models.Collection{}, false, nil
		}
		return models.Collection{}, false, result.Error
	}
	return row, true, nil
}

// GetCollections returns all persisted collection snapshots
func (s *MetadataStore) GetCollections() ([]models.Collection, error) {
	var rows []models.Collection
	result := s.db.Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

// SetItem upserts an item row keyed by its identifier
func (s *MetadataStore) SetItem(item models.Item) error {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		UpdateAll: true,
	}).Create(&item)
	return result.Error
}

// GetItem returns an item row by identifier
func (s *MetadataStore) GetItem(
	itemId string,
) (models.Item, bool, error) {
	var row models.Item
	result := s.db.Where("item_id = ?", itemId).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return models.Item{}, false, nil
		}
		return models.Item{}, false, result.Error
	}
	return row, true, nil
}

// GetItemsByCollection returns the items minted under a collection
func (s *MetadataStore) GetItemsByCollection(
	collectionId string,
) ([]models.Item, error) {
	var rows []models.Item
	result := s.db.Where("collection_id = ?", collectionId).Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}
