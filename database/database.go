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
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	DataDir      string
}

// Database bundles the snapshot metadata store and the append-only event
// journal. Both run in memory when no data directory is configured
type Database struct {
	metadata     *MetadataStore
	journal      *Journal
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	dataDir      string
}

func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadata, err := NewMetadataStore(config.DataDir, logger)
	if err != nil {
		return nil, err
	}
	journal, err := NewJournal(config.DataDir, logger)
	if err != nil {
		metadata.Close() //nolint:errcheck
		return nil, err
	}
	db := &Database{
		metadata:     metadata,
		journal:      journal,
		logger:       logger,
		promRegistry: config.PromRegistry,
		dataDir:      config.DataDir,
	}
	return db, nil
}

// Metadata returns the snapshot store
func (d *Database) Metadata() *MetadataStore {
	return d.metadata
}

// Journal returns the append-only event journal
func (d *Database) Journal() *Journal {
	return d.journal
}

// Close shuts down both stores, reporting any errors together
func (d *Database) Close() error {
	var err error
	if d.journal != nil {
		err = errors.Join(err, d.journal.Close())
	}
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	return err
}
