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
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/quoll/event"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ManagerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
}

// Manager tracks the live collections, their admin capabilities and minted
// items by identifier. Collections serialize their own mutations; the
// manager only guards its lookup tables
type Manager struct {
	config  ManagerConfig
	metrics struct {
		collections prometheus.Gauge
		mints       prometheus.Counter
		withdrawals prometheus.Counter
	}
	logger       *slog.Logger
	eventBus     *event.EventBus
	collections  map[uuid.UUID]*Collection
	capabilities map[uuid.UUID]*AdminCapability
	items        map[uuid.UUID]*Item
	mu           sync.RWMutex
}

func NewManager(config ManagerConfig) *Manager {
	m := &Manager{
		config:       config,
		eventBus:     config.EventBus,
		collections:  make(map[uuid.UUID]*Collection),
		capabilities: make(map[uuid.UUID]*AdminCapability),
		items:        make(map[uuid.UUID]*Item),
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		m.logger = config.Logger
	}
	promautoFactory := promauto.With(config.PromRegistry)
	m.metrics.collections = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "quoll_collections",
		Help: "current count of tracked collections",
	})
	m.metrics.mints = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quoll_mints_total",
		Help: "total successful mints",
	})
	m.metrics.withdrawals = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "quoll_withdrawals_total",
		Help: "total completed disbursements",
	})
	return m
}

// Create builds a collection with its initial admin capability and tracks
// both
func (m *Manager) Create(
	params CreateParams,
	now int64,
) (*Collection, *AdminCapability, error) {
	c, adminCap, err := New(
		CollectionConfig{
			Logger:   m.logger,
			EventBus: m.eventBus,
		},
		params,
		now,
	)
	if err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	m.collections[c.ID()] = c
	m.capabilities[adminCap.ID] = adminCap
	m.mu.Unlock()
	m.metrics.collections.Inc()
	return c, adminCap, nil
}

// Collection returns a tracked collection by id
func (m *Manager) Collection(id uuid.UUID) (*Collection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[id]
	return c, ok
}

// Capability returns a tracked admin capability by id
func (m *Manager) Capability(id uuid.UUID) (*AdminCapability, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	adminCap, ok := m.capabilities[id]
	return adminCap, ok
}

// Item returns a tracked item by id
func (m *Manager) Item(id uuid.UUID) (*Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	return item, ok
}

// Mint mints on the identified collection and tracks the produced item
func (m *Manager) Mint(
	collectionId uuid.UUID,
	caller Address,
	payment uint64,
	now int64,
) (*Item, uint64, error) {
	c, ok := m.Collection(collectionId)
	if !ok {
		return nil, 0, ErrUnknownCollection
	}
	item, change, err := c.Mint(caller, payment, now)
	if err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	m.items[item.ID] = item
	m.mu.Unlock()
	m.metrics.mints.Inc()
	return item, change, nil
}

// ExecuteWithdrawal executes on the identified collection, counting
// completed disbursements
func (m *Manager) ExecuteWithdrawal(
	collectionId uuid.UUID,
	caller Address,
	adminCap *AdminCapability,
	now int64,
) (uint64, error) {
	c, ok := m.Collection(collectionId)
	if !ok {
		return 0, ErrUnknownCollection
	}
	amount, err := c.ExecuteWithdrawal(caller, adminCap, now)
	if err != nil {
		return 0, err
	}
	m.metrics.withdrawals.Inc()
	return amount, nil
}

// Collections returns a snapshot of every tracked collection
func (m *Manager) Collections() []Snapshot {
	m.mu.RLock()
	tracked := make([]*Collection, 0, len(m.collections))
	for _, c := range m.collections {
		tracked = append(tracked, c)
	}
	m.mu.RUnlock()
	ret := make([]Snapshot, 0, len(tracked))
	for _, c := range tracked {
		ret = append(ret, c.Snapshot())
	}
	return ret
}
