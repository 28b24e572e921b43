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
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	journalSequenceBandwidth = 100
	journalGcInterval        = 5 * time.Minute
	journalGcDiscardRatio    = 0.5
)

// JournalEntry is the envelope appended for each domain event. Entries are
// keyed by a monotonic sequence number and never rewritten
type JournalEntry struct {
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Journal is the append-only event log, backed by Badger
type Journal struct {
	db        *badger.DB
	seq       *badger.Sequence
	logger    *slog.Logger
	timerGc   *time.Timer
	timerMu   sync.Mutex
	closed    bool
	gcEnabled bool
}

// NewJournal opens the event journal. Uses an in-memory store when dataDir
// is empty
func NewJournal(
	dataDir string,
	logger *slog.Logger,
) (*Journal, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var journalDb *badger.DB
	var err error
	gcEnabled := false
	if dataDir == "" {
		badgerOpts := badger.DefaultOptions("").
			WithLogger(newBadgerLogger(logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		journalDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		journalDir := filepath.Join(dataDir, "journal")
		badgerOpts := badger.DefaultOptions(journalDir).
			WithLogger(newBadgerLogger(logger)).
			WithLoggingLevel(badger.WARNING)
		journalDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
		gcEnabled = true
	}
	seq, err := journalDb.GetSequence(
		[]byte("journal_seq"),
		journalSequenceBandwidth,
	)
	if err != nil {
		journalDb.Close()
		return nil, err
	}
	j := &Journal{
		db:        journalDb,
		seq:       seq,
		logger:    logger,
		gcEnabled: gcEnabled,
	}
	j.scheduleGc()
	return j, nil
}

// Append writes one entry to the journal and returns its sequence number
func (j *Journal) Append(
	eventType string,
	timestamp time.Time,
	data any,
) (uint64, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("marshal journal entry: %w", err)
	}
	seqNum, err := j.seq.Next()
	if err != nil {
		return 0, err
	}
	entry := JournalEntry{
		Seq:       seqNum,
		Type:      eventType,
		Timestamp: timestamp,
		Data:      dataBytes,
	}
	entryBytes, err := json.Marshal(&entry)
	if err != nil {
		return 0, fmt.Errorf("marshal journal envelope: %w", err)
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(journalKey(seqNum), entryBytes)
	})
	if err != nil {
		return 0, err
	}
	return seqNum, nil
}

// Entries iterates the journal in sequence order, calling fn for each
// entry. Iteration stops at the first error from fn
func (j *Journal) Entries(fn func(JournalEntry) error) error {
	return j.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte("journal_entry_")
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var entry JournalEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the sequence and closes the journal
func (j *Journal) Close() error {
	j.timerMu.Lock()
	j.closed = true
	if j.timerGc != nil {
		j.timerGc.Stop()
		j.timerGc = nil
	}
	j.timerMu.Unlock()
	if err := j.seq.Release(); err != nil {
		j.logger.Warn(
			"failed to release journal sequence",
			"component", "database",
			"error", err,
		)
	}
	return j.db.Close()
}

func (j *Journal) scheduleGc() {
	j.timerMu.Lock()
	defer j.timerMu.Unlock()
	if j.closed || !j.gcEnabled {
		return
	}
	if j.timerGc != nil {
		j.timerGc.Stop()
	}
	j.timerGc = time.AfterFunc(journalGcInterval, func() {
		// schedule next run
		defer j.scheduleGc()
		// Run GC until it returns an error (nothing left to collect)
		for {
			if err := j.db.RunValueLogGC(journalGcDiscardRatio); err != nil {
				break
			}
		}
	})
}

func journalKey(seqNum uint64) []byte {
	key := []byte("journal_entry_")
	key = binary.BigEndian.AppendUint64(key, seqNum)
	return key
}

// badgerLogger adapts slog to the badger.Logger interface
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{
		logger: logger.With("component", "journal"),
	}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logger.Info(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(fmt.Sprintf(format, args...))
}
