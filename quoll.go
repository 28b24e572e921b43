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

package quoll

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/quoll/api"
	"github.com/blinklabs-io/quoll/collection"
	"github.com/blinklabs-io/quoll/database"
	"github.com/blinklabs-io/quoll/database/models"
	"github.com/blinklabs-io/quoll/event"
	"github.com/google/uuid"
)

// journaledEventTypes is the set of domain events persisted to the
// append-only journal
var journaledEventTypes = []event.EventType{
	event.CollectionCreatedEventType,
	event.ItemMintedEventType,
	event.ItemRevealedEventType,
	event.CollectionUpdatedEventType,
	event.AllowListUpdatedEventType,
	event.RoleUpdatedEventType,
	event.CapabilityNearExpiryEventType,
	event.CapabilityRenewedEventType,
	event.WithdrawalRequestedEventType,
	event.ApprovalAddedEventType,
	event.WithdrawnEventType,
}

// Engine ties the collection manager, event bus, database and API server
// together into one runnable unit
type Engine struct {
	config        Config
	eventBus      *event.EventBus
	manager       *collection.Manager
	db            *database.Database
	apiServer     *api.Api
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Engine, error) {
	if cfg.clock == nil {
		return nil, errors.New("no clock configured")
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	e := &Engine{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	e.manager = collection.NewManager(collection.ManagerConfig{
		PromRegistry: cfg.promRegistry,
		Logger:       cfg.logger,
		EventBus:     eventBus,
	})
	return e, nil
}

// EventBus returns the engine's event bus for external subscribers
func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

// Database returns the engine's database, or nil before Run has opened it
func (e *Engine) Database() *database.Database {
	return e.db
}

func (e *Engine) Run(ctx context.Context) error {
	// Configure tracing
	if e.config.tracing {
		if err := e.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:      e.config.dataDir,
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db
	// Journal every domain event
	for _, eventType := range journaledEventTypes {
		e.eventBus.SubscribeFunc(eventType, e.journalEvent)
	}
	// Start API listener
	if e.config.apiListenAddress != "" {
		e.apiServer = api.New(
			api.ApiConfig{
				ListenAddress: e.config.apiListenAddress,
			},
			e,
			e.config.logger,
		)
		if err := e.apiServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API listener: %w", err)
		}
	}
	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case <-e.done:
	}
	return nil
}

func (e *Engine) Stop() error {
	var err error
	e.shutdownOnce.Do(func() {
		err = e.shutdown()
	})
	return err
}

func (e *Engine) shutdown() error {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		e.config.shutdownTimeout,
	)
	defer cancel()

	var err error
	e.config.logger.Debug("starting graceful shutdown")

	if e.apiServer != nil {
		if stopErr := e.apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	if e.eventBus != nil {
		e.eventBus.Stop()
	}

	if e.db != nil {
		if closeErr := e.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Call registered shutdown functions
	for _, fn := range e.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	e.shutdownFuncs = nil

	e.config.logger.Debug("graceful shutdown complete")
	close(e.done)
	return err
}

func (e *Engine) journalEvent(evt event.Event) {
	if e.db == nil {
		return
	}
	_, err := e.db.Journal().Append(
		string(evt.Type),
		evt.Timestamp,
		evt.Data,
	)
	if err != nil {
		e.config.logger.Error(
			"failed to journal event",
			"component", "engine",
			"type", string(evt.Type),
			"error", err,
		)
	}
}

// persistCollection refreshes the persisted snapshot for a collection.
// Persistence is best-effort; the live aggregate stays authoritative
func (e *Engine) persistCollection(c *collection.Collection) {
	if e.db == nil {
		return
	}
	snapshot := c.Snapshot()
	err := e.db.Metadata().SetCollection(models.Collection{
		CollectionId:    snapshot.ID.String(),
		Name:            snapshot.Name,
		Symbol:          snapshot.Symbol,
		Description:     snapshot.Description,
		Creator:         string(snapshot.Creator),
		RoyaltyPercent:  snapshot.RoyaltyPercent,
		Price:           snapshot.Price,
		MintStart:       snapshot.MintStart,
		MintEnd:         snapshot.MintEnd,
		RevealTime:      snapshot.RevealTime,
		MaxSupply:       snapshot.MaxSupply,
		Supply:          snapshot.Supply,
		TreasuryBalance: snapshot.TreasuryBalance,
		Paused:          snapshot.Paused,
		Upgradable:      snapshot.Upgradable,
		Version:         snapshot.Version,
		TimeLock:        snapshot.TimeLock,
	})
	if err != nil {
		e.config.logger.Error(
			"failed to persist collection snapshot",
			"component", "engine",
			"collection_id", snapshot.ID.String(),
			"error", err,
		)
	}
}

func (e *Engine) persistItem(item *collection.Item) {
	if e.db == nil {
		return
	}
	err := e.db.Metadata().SetItem(models.Item{
		ItemId:       item.ID.String(),
		CollectionId: item.CollectionID.String(),
		Name:         item.Name,
		Description:  item.Description,
		Url:          item.Url,
		Creator:      string(item.Creator),
		Owner:        string(item.Owner),
		Revealed:     item.Revealed,
		RevealTime:   item.RevealTime,
	})
	if err != nil {
		e.config.logger.Error(
			"failed to persist item",
			"component", "engine",
			"item_id", item.ID.String(),
			"error", err,
		)
	}
}

// CreateCollection creates a collection with its initial admin capability
func (e *Engine) CreateCollection(
	params collection.CreateParams,
) (collection.Snapshot, *collection.AdminCapability, error) {
	c, adminCap, err := e.manager.Create(params, e.config.clock())
	if err != nil {
		return collection.Snapshot{}, nil, err
	}
	e.persistCollection(c)
	return c.Snapshot(), adminCap, nil
}

// Mint mints one item on the identified collection
func (e *Engine) Mint(
	collectionId uuid.UUID,
	caller collection.Address,
	payment uint64,
) (*collection.Item, uint64, error) {
	item, change, err := e.manager.Mint(
		collectionId,
		caller,
		payment,
		e.config.clock(),
	)
	if err != nil {
		return nil, 0, err
	}
	if c, ok := e.manager.Collection(collectionId); ok {
		e.persistCollection(c)
		// Hand back a copy so callers never see a later reveal mid-read
		item = c.ItemSnapshot(item)
	}
	e.persistItem(item)
	return item, change, nil
}

// Reveal reveals a minted item once its reveal time has been reached
func (e *Engine) Reveal(itemId uuid.UUID) error {
	item, ok := e.manager.Item(itemId)
	if !ok {
		return collection.ErrUnknownItem
	}
	c, ok := e.manager.Collection(item.CollectionID)
	if !ok {
		return collection.ErrUnknownCollection
	}
	if err := c.Reveal(item, e.config.clock()); err != nil {
		return err
	}
	e.persistItem(c.ItemSnapshot(item))
	return nil
}

// AddToAllowList adds a batch of addresses to a collection's allow-list
func (e *Engine) AddToAllowList(
	collectionId uuid.UUID,
	caller collection.Address,
	capabilityId uuid.UUID,
	addrs []collection.Address,
	expiry int64,
) ([]collection.Address, error) {
	c, adminCap, err := e.resolve(collectionId, capabilityId)
	if err != nil {
		return nil, err
	}
	added, err := c.AddToAllowList(
		caller,
		adminCap,
		addrs,
		expiry,
		e.config.clock(),
	)
	if err != nil {
		return nil, err
	}
	e.persistCollection(c)
	return added, nil
}

// RemoveFromAllowList removes a batch of addresses from the allow-list
func (e *Engine) RemoveFromAllowList(
	collectionId uuid.UUID,
	caller collection.Address,
	capabilityId uuid.UUID,
	addrs []collection.Address,
) ([]collection.Address, error) {
	c, adminCap, err := e.resolve(collectionId, capabilityId)
	if err != nil {
		return nil, err
	}
	removed, err := c.RemoveFromAllowList(
		caller,
		adminCap,
		addrs,
		e.config.clock(),
	)
	if err != nil {
		return nil, err
	}
	e.persistCollection(c)
	return removed, nil
}

// RequestWithdrawal opens a pending withdrawal for the caller
func (e *Engine) RequestWithdrawal(
	collectionId uuid.UUID,
	caller collection.Address,
	capabilityId uuid.UUID,
	amount uint64,
) error {
	c, adminCap, err := e.resolve(collectionId, capabilityId)
	if err != nil {
		return err
	}
	if err := c.RequestWithdrawal(
		caller,
		adminCap,
		amount,
		e.config.clock(),
	); err != nil {
		return err
	}
	e.persistCollection(c)
	return nil
}

// ExecuteWithdrawal drives the caller's pending withdrawal forward
func (e *Engine) ExecuteWithdrawal(
	collectionId uuid.UUID,
	caller collection.Address,
	capabilityId uuid.UUID,
) (uint64, error) {
	c, adminCap, err := e.resolve(collectionId, capabilityId)
	if err != nil {
		return 0, err
	}
	amount, err := e.manager.ExecuteWithdrawal(
		collectionId,
		caller,
		adminCap,
		e.config.clock(),
	)
	// The approval-recorded path mutates state even on error
	e.persistCollection(c)
	return amount, err
}

// UpdateCollection changes one of the updatable collection fields
func (e *Engine) UpdateCollection(
	collectionId uuid.UUID,
	caller collection.Address,
	capabilityId uuid.UUID,
	field collection.UpdateField,
	value any,
) error {
	c, adminCap, err := e.resolve(collectionId, capabilityId)
	if err != nil {
		return err
	}
	if err := c.UpdateCollection(
		caller,
		adminCap,
		field,
		value,
		e.config.clock(),
	); err != nil {
		return err
	}
	e.persistCollection(c)
	return nil
}

// UpdateRole grants or replaces a user's permission bitmask
func (e *Engine) UpdateRole(
	collectionId uuid.UUID,
	caller collection.Address,
	capabilityId uuid.UUID,
	user collection.Address,
	roles collection.Role,
) error {
	c, adminCap, err := e.resolve(collectionId, capabilityId)
	if err != nil {
		return err
	}
	if err := c.UpdateRole(
		caller,
		adminCap,
		user,
		roles,
		e.config.clock(),
	); err != nil {
		return err
	}
	e.persistCollection(c)
	return nil
}

// ExtendCapability renews an admin capability during its grace window
func (e *Engine) ExtendCapability(
	capabilityId uuid.UUID,
	newExpiry int64,
) error {
	adminCap, ok := e.manager.Capability(capabilityId)
	if !ok {
		return collection.ErrUnknownCapability
	}
	c, ok := e.manager.Collection(adminCap.CollectionID)
	if !ok {
		return collection.ErrUnknownCollection
	}
	return c.ExtendCapability(adminCap, newExpiry, e.config.clock())
}

// TriggerFailSafe pauses a collection immediately
func (e *Engine) TriggerFailSafe(
	collectionId uuid.UUID,
	caller collection.Address,
	capabilityId uuid.UUID,
) error {
	c, adminCap, err := e.resolve(collectionId, capabilityId)
	if err != nil {
		return err
	}
	if err := c.TriggerFailSafe(caller, adminCap, e.config.clock()); err != nil {
		return err
	}
	e.persistCollection(c)
	return nil
}

// GetCollection returns a snapshot of the identified collection
func (e *Engine) GetCollection(
	collectionId uuid.UUID,
) (collection.Snapshot, bool) {
	c, ok := e.manager.Collection(collectionId)
	if !ok {
		return collection.Snapshot{}, false
	}
	return c.Snapshot(), true
}

// GetCollections returns snapshots of every tracked collection
func (e *Engine) GetCollections() []collection.Snapshot {
	return e.manager.Collections()
}

// GetItem returns a point-in-time copy of a tracked item
func (e *Engine) GetItem(itemId uuid.UUID) (*collection.Item, bool) {
	item, ok := e.manager.Item(itemId)
	if !ok {
		return nil, false
	}
	if c, ok := e.manager.Collection(item.CollectionID); ok {
		item = c.ItemSnapshot(item)
	}
	return item, true
}

// IsAllowListed reports whether addr passes a collection's allow-list gate
func (e *Engine) IsAllowListed(
	collectionId uuid.UUID,
	addr collection.Address,
) (bool, error) {
	c, ok := e.manager.Collection(collectionId)
	if !ok {
		return false, collection.ErrUnknownCollection
	}
	return c.IsAllowListed(addr, e.config.clock()), nil
}

// GetCapabilityStatus returns the lifecycle state of a capability
func (e *Engine) GetCapabilityStatus(
	capabilityId uuid.UUID,
) (collection.CapabilityStatus, error) {
	adminCap, ok := e.manager.Capability(capabilityId)
	if !ok {
		return 0, collection.ErrUnknownCapability
	}
	return adminCap.Status(e.config.clock()), nil
}

func (e *Engine) resolve(
	collectionId uuid.UUID,
	capabilityId uuid.UUID,
) (*collection.Collection, *collection.AdminCapability, error) {
	c, ok := e.manager.Collection(collectionId)
	if !ok {
		return nil, nil, collection.ErrUnknownCollection
	}
	adminCap, ok := e.manager.Capability(capabilityId)
	if !ok {
		return nil, nil, collection.ErrUnknownCapability
	}
	return c, adminCap, nil
}
