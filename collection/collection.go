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
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/blinklabs-io/quoll/event"
	"github.com/google/uuid"
)

const millisPerDay = int64(24 * 60 * 60 * 1000)

const (
	// DefaultCapabilityTTL is the admin capability lifetime applied when
	// creation does not specify an expiry
	DefaultCapabilityTTL = 365 * millisPerDay
	// CapabilityWarningWindow is how long before expiry the near-expiry
	// notice starts firing
	CapabilityWarningWindow = 30 * millisPerDay
	// CapabilityRenewalGrace is how long after expiry renewal stays possible
	CapabilityRenewalGrace = 7 * millisPerDay
	// RevealGrace is how far past the minting end the reveal time may sit
	RevealGrace = millisPerDay
	// DefaultWithdrawalTimeLock applies when creation does not specify one
	DefaultWithdrawalTimeLock = 2 * millisPerDay
	// ApprovalThreshold is the distinct approver count required before a
	// withdrawal may disburse
	ApprovalThreshold = 2
	// MaxAllowListBatch caps a single allow-list add/remove call
	MaxAllowListBatch = 1000
)

const (
	MaxNameLen           = 64
	MaxSymbolLen         = 16
	MaxDescriptionLen    = 512
	MaxAttributeKeyLen   = 30
	MaxAttributeValueLen = 50
	MinRoyaltyPercent    = 1
	MaxRoyaltyPercent    = 20
)

// Address is an opaque caller identity supplied by the host environment.
// Authentication happens outside this package
type Address string

// PendingWithdrawal is the single outstanding withdrawal a requester may
// hold. It is created by request and destroyed by execution; there is no
// cancel path
type PendingWithdrawal struct {
	Amount      uint64
	RequestTime int64
}

type CollectionConfig struct {
	Logger   *slog.Logger
	EventBus *event.EventBus
}

// CreateParams carries the creation operation's parameters. AdminCapExpiry
// and WithdrawalTimeLock are optional; zero selects the default
type CreateParams struct {
	Name               string
	Symbol             string
	Description        string
	Creator            Address
	RoyaltyPercent     uint8
	Price              uint64
	MintStart          int64
	MintEnd            int64
	RevealTime         int64
	MaxSupply          uint64
	Upgradable         bool
	AdminCapExpiry     int64
	WithdrawalTimeLock int64
}

// Collection is the aggregate root. All state-mutating operations on one
// instance are serialized by its mutex and guarded against reentrancy;
// every invariant is enforced under that single-writer discipline
type Collection struct {
	id          uuid.UUID
	name        string
	symbol      string
	description string
	creator     Address
	royaltyPct  uint8
	price       uint64
	mintStart   int64
	mintEnd     int64
	revealTime  int64
	maxSupply   uint64
	supply      uint64
	treasury    uint64
	paused      bool
	upgradable  bool
	version     uint64
	timeLock    int64

	roles     roleRegistry
	allowlist allowList
	pending   map[Address]PendingWithdrawal
	approvals map[uuid.UUID]map[Address]struct{}

	guard  reentrancyGuard
	mu     sync.Mutex
	bus    *event.EventBus
	logger *slog.Logger
}

// New validates the creation parameters and returns the collection together
// with its initial admin capability. The two are created atomically: any
// validation failure produces neither
func New(
	cfg CollectionConfig,
	params CreateParams,
	now int64,
) (*Collection, *AdminCapability, error) {
	if params.Name == "" || len(params.Name) > MaxNameLen {
		return nil, nil, ErrInvalidName
	}
	if params.Symbol == "" || len(params.Symbol) > MaxSymbolLen {
		return nil, nil, ErrInvalidSymbol
	}
	if len(params.Description) > MaxDescriptionLen {
		return nil, nil, ErrInvalidDescription
	}
	if params.Creator == "" {
		return nil, nil, ErrInvalidAddress
	}
	if params.RoyaltyPercent < MinRoyaltyPercent ||
		params.RoyaltyPercent > MaxRoyaltyPercent {
		return nil, nil, ErrInvalidRoyalty
	}
	if params.MintEnd <= params.MintStart {
		return nil, nil, ErrInvalidTimeWindow
	}
	if params.RevealTime < params.MintStart ||
		params.RevealTime > params.MintEnd+RevealGrace {
		return nil, nil, ErrInvalidRevealTime
	}
	if params.MaxSupply == 0 {
		return nil, nil, ErrInvalidMaxSupply
	}
	capExpiry := params.AdminCapExpiry
	if capExpiry == 0 {
		capExpiry = now + DefaultCapabilityTTL
	}
	if capExpiry <= now {
		return nil, nil, ErrInvalidExpiry
	}
	timeLock := params.WithdrawalTimeLock
	if timeLock == 0 {
		timeLock = DefaultWithdrawalTimeLock
	}
	if timeLock < 0 {
		return nil, nil, ErrInvalidTimeWindow
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c := &Collection{
		id:          uuid.New(),
		name:        params.Name,
		symbol:      params.Symbol,
		description: params.Description,
		creator:     params.Creator,
		royaltyPct:  params.RoyaltyPercent,
		price:       params.Price,
		mintStart:   params.MintStart,
		mintEnd:     params.MintEnd,
		revealTime:  params.RevealTime,
		maxSupply:   params.MaxSupply,
		upgradable:  params.Upgradable,
		timeLock:    timeLock,
		roles:       make(roleRegistry),
		allowlist:   make(allowList),
		pending:     make(map[Address]PendingWithdrawal),
		approvals:   make(map[uuid.UUID]map[Address]struct{}),
		bus:         cfg.EventBus,
		logger:      logger,
	}
	// Creator gets all three role bits
	c.roles[params.Creator] = RoleAll
	adminCap := newAdminCapability(c.id, params.Creator, capExpiry)
	c.logger.Info(
		"collection created",
		"component", "collection",
		"collection_id", c.id.String(),
		"name", c.name,
		"max_supply", c.maxSupply,
	)
	c.publish(
		event.CollectionCreatedEventType,
		event.CollectionCreatedEvent{
			CollectionId: c.id.String(),
			CapabilityId: adminCap.ID.String(),
			Name:         c.name,
			Symbol:       c.symbol,
			Creator:      string(c.creator),
			MaxSupply:    c.maxSupply,
			Price:        c.price,
		},
	)
	return c, adminCap, nil
}

func (c *Collection) publish(eventType event.EventType, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.PublishAsync(eventType, event.NewEvent(eventType, payload))
}

// checkCapability verifies that the presented capability belongs to this
// collection and is still active. Expired and dead capabilities are
// reported distinctly
func (c *Collection) checkCapability(
	adminCap *AdminCapability,
	now int64,
) error {
	if adminCap == nil || adminCap.CollectionID != c.id {
		return ErrCapabilityMismatch
	}
	if adminCap.DeadAt(now) {
		return ErrCapabilityDead
	}
	if !adminCap.ValidAt(now) {
		return ErrCapabilityExpired
	}
	return nil
}

// notifyNearExpiry re-evaluates the warning sub-state at the end of a
// guarded administrative call and emits the near-expiry notice when inside
// the window
func (c *Collection) notifyNearExpiry(
	adminCap *AdminCapability,
	now int64,
) {
	if adminCap == nil || !adminCap.InWarning(now) {
		return
	}
	c.publish(
		event.CapabilityNearExpiryEventType,
		event.CapabilityNearExpiryEvent{
			CapabilityId: adminCap.ID.String(),
			CollectionId: c.id.String(),
			Expiry:       adminCap.Expiry,
			Remaining:    adminCap.Expiry - now,
		},
	)
}

// UpdateField selects the collection field targeted by UpdateCollection
type UpdateField string

const (
	FieldPrice              UpdateField = "price"
	FieldMintingEnd         UpdateField = "minting_end"
	FieldPaused             UpdateField = "paused"
	FieldWithdrawalTimeLock UpdateField = "withdrawal_time_lock"
)

// UpdateCollection changes one of the updatable fields. It requires the
// ADMIN bit, an active capability, and an upgradable collection; the
// fail-safe pause is the only way around the upgradable flag
func (c *Collection) UpdateCollection(
	caller Address,
	adminCap *AdminCapability,
	field UpdateField,
	value any,
	now int64,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return err
	}
	defer scope.release()
	if err := c.checkCapability(adminCap, now); err != nil {
		return err
	}
	if !c.roles.has(caller, RoleAdmin) {
		return ErrMissingRole
	}
	if !c.upgradable {
		return ErrNotUpgradable
	}
	t := &txn{c: c}
	switch field {
	case FieldPrice:
		price, ok := toUint64(value)
		if !ok {
			return ErrInvalidFieldValue
		}
		t.stage(func() { c.price = price })
	case FieldMintingEnd:
		mintEnd, ok := toInt64(value)
		if !ok {
			return ErrInvalidFieldValue
		}
		if mintEnd <= c.mintStart {
			return ErrInvalidTimeWindow
		}
		// Moving the end must not strand the reveal time outside its bound
		if c.revealTime > mintEnd+RevealGrace {
			return ErrInvalidRevealTime
		}
		t.stage(func() { c.mintEnd = mintEnd })
	case FieldPaused:
		paused, ok := value.(bool)
		if !ok {
			return ErrInvalidFieldValue
		}
		t.stage(func() { c.paused = paused })
	case FieldWithdrawalTimeLock:
		timeLock, ok := toInt64(value)
		if !ok || timeLock < 0 {
			return ErrInvalidFieldValue
		}
		t.stage(func() { c.timeLock = timeLock })
	default:
		return ErrInvalidField
	}
	t.stage(func() { c.version++ })
	t.emit(
		event.CollectionUpdatedEventType,
		event.CollectionUpdatedEvent{
			CollectionId: c.id.String(),
			Field:        string(field),
			Version:      c.version + 1,
		},
	)
	t.commit()
	c.logger.Debug(
		"collection updated",
		"component", "collection",
		"collection_id", c.id.String(),
		"field", string(field),
	)
	c.notifyNearExpiry(adminCap, now)
	return nil
}

// TriggerFailSafe pauses the collection immediately. It requires the ADMIN
// bit and an active capability but works on non-upgradable collections too
func (c *Collection) TriggerFailSafe(
	caller Address,
	adminCap *AdminCapability,
	now int64,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return err
	}
	defer scope.release()
	if err := c.checkCapability(adminCap, now); err != nil {
		return err
	}
	if !c.roles.has(caller, RoleAdmin) {
		return ErrMissingRole
	}
	t := &txn{c: c}
	t.stage(func() {
		c.paused = true
		c.version++
	})
	t.emit(
		event.CollectionUpdatedEventType,
		event.CollectionUpdatedEvent{
			CollectionId: c.id.String(),
			Field:        string(FieldPaused),
			Version:      c.version + 1,
		},
	)
	t.commit()
	c.logger.Warn(
		"fail-safe triggered",
		"component", "collection",
		"collection_id", c.id.String(),
		"caller", string(caller),
	)
	c.notifyNearExpiry(adminCap, now)
	return nil
}

// UpdateRole grants or replaces a user's permission bitmask. Grant is an
// idempotent overwrite; a zero mask is rejected so a user cannot be
// soft-deleted through grant
func (c *Collection) UpdateRole(
	caller Address,
	adminCap *AdminCapability,
	user Address,
	roles Role,
	now int64,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return err
	}
	defer scope.release()
	if err := c.checkCapability(adminCap, now); err != nil {
		return err
	}
	if !c.roles.has(caller, RoleAdmin) {
		return ErrMissingRole
	}
	if user == "" {
		return ErrInvalidAddress
	}
	if !roles.Valid() {
		return ErrInvalidRoleMask
	}
	t := &txn{c: c}
	t.stage(func() { c.roles[user] = roles })
	t.emit(
		event.RoleUpdatedEventType,
		event.RoleUpdatedEvent{
			CollectionId: c.id.String(),
			User:         string(user),
			Roles:        uint8(roles),
		},
	)
	t.commit()
	c.notifyNearExpiry(adminCap, now)
	return nil
}

// ExtendCapability renews the admin capability. Renewal is only permitted
// inside the grace window: an active capability cannot be renewed early and
// a dead one never again
func (c *Collection) ExtendCapability(
	adminCap *AdminCapability,
	newExpiry int64,
	now int64,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return err
	}
	defer scope.release()
	if adminCap == nil || adminCap.CollectionID != c.id {
		return ErrCapabilityMismatch
	}
	if adminCap.DeadAt(now) {
		return ErrCapabilityDead
	}
	if !adminCap.InGrace(now) {
		return ErrNotInGrace
	}
	if newExpiry <= now {
		return ErrInvalidExpiry
	}
	t := &txn{c: c}
	t.stage(func() { adminCap.Expiry = newExpiry })
	t.emit(
		event.CapabilityRenewedEventType,
		event.CapabilityRenewedEvent{
			CapabilityId: adminCap.ID.String(),
			CollectionId: c.id.String(),
			Expiry:       newExpiry,
		},
	)
	t.commit()
	c.logger.Info(
		"capability renewed",
		"component", "collection",
		"capability_id", adminCap.ID.String(),
		"expiry", newExpiry,
	)
	c.notifyNearExpiry(adminCap, now)
	return nil
}

// AddToAllowList adds a batch of addresses with a shared expiry. Requires
// the ADMIN bit and an active capability. Returns the addresses actually
// added, which is also what the batch event reports
func (c *Collection) AddToAllowList(
	caller Address,
	adminCap *AdminCapability,
	addrs []Address,
	expiry int64,
	now int64,
) ([]Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer scope.release()
	if err := c.checkCapability(adminCap, now); err != nil {
		return nil, err
	}
	if !c.roles.has(caller, RoleAdmin) {
		return nil, ErrMissingRole
	}
	if len(addrs) > MaxAllowListBatch {
		return nil, ErrBatchTooLarge
	}
	added := c.allowlist.addBatch(addrs)
	t := &txn{c: c}
	t.stage(func() {
		for _, addr := range added {
			c.allowlist[addr] = expiry
		}
	})
	t.emit(
		event.AllowListUpdatedEventType,
		event.AllowListUpdatedEvent{
			CollectionId: c.id.String(),
			Added:        addressStrings(added),
			Expiry:       expiry,
		},
	)
	t.commit()
	c.notifyNearExpiry(adminCap, now)
	return added, nil
}

// RemoveFromAllowList removes a batch of addresses. Requires the ADMIN bit
// and an active capability. Returns the addresses actually removed
func (c *Collection) RemoveFromAllowList(
	caller Address,
	adminCap *AdminCapability,
	addrs []Address,
	now int64,
) ([]Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer scope.release()
	if err := c.checkCapability(adminCap, now); err != nil {
		return nil, err
	}
	if !c.roles.has(caller, RoleAdmin) {
		return nil, ErrMissingRole
	}
	if len(addrs) > MaxAllowListBatch {
		return nil, ErrBatchTooLarge
	}
	removed := c.allowlist.removeBatch(addrs)
	t := &txn{c: c}
	t.stage(func() {
		for _, addr := range removed {
			delete(c.allowlist, addr)
		}
	})
	t.emit(
		event.AllowListUpdatedEventType,
		event.AllowListUpdatedEvent{
			CollectionId: c.id.String(),
			Removed:      addressStrings(removed),
		},
	)
	t.commit()
	c.notifyNearExpiry(adminCap, now)
	return removed, nil
}

// Reveal flips an item to revealed. Anyone may call it once the item's
// reveal time has been reached; there is no guard and no role check
func (c *Collection) Reveal(item *Item, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item == nil || item.CollectionID != c.id {
		return ErrItemMismatch
	}
	if item.Revealed {
		return ErrAlreadyRevealed
	}
	if now < item.RevealTime {
		return ErrNotRevealable
	}
	item.Revealed = true
	c.publish(
		event.ItemRevealedEventType,
		event.ItemRevealedEvent{
			CollectionId: c.id.String(),
			ItemId:       item.ID.String(),
			RevealedAt:   now,
		},
	)
	return nil
}

// ItemSnapshot returns a point-in-time copy of an item belonging to this
// collection, taken under the collection mutex so a concurrent reveal
// cannot tear the read
func (c *Collection) ItemSnapshot(item *Item) *Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return item.clone()
}

// ID returns the collection identifier
func (c *Collection) ID() uuid.UUID {
	return c.id
}

// Price returns the current mint price
func (c *Collection) Price() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.price
}

// TreasuryBalance returns the current treasury balance
func (c *Collection) TreasuryBalance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.treasury
}

// Supply returns the current supply
func (c *Collection) Supply() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supply
}

// HasRole reports whether addr holds the required role bit
func (c *Collection) HasRole(addr Address, required Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roles.has(addr, required)
}

// IsAllowListed reports whether addr passes the allow-list gate at now
func (c *Collection) IsAllowListed(addr Address, now int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowlist.isMember(addr, now)
}

// PendingWithdrawalFor returns the outstanding withdrawal for addr, if any
func (c *Collection) PendingWithdrawalFor(
	addr Address,
) (PendingWithdrawal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pw, ok := c.pending[addr]
	return pw, ok
}

// Snapshot is a consistent read-only view of the aggregate
type Snapshot struct {
	ID              uuid.UUID
	Name            string
	Symbol          string
	Description     string
	Creator         Address
	RoyaltyPercent  uint8
	Price           uint64
	MintStart       int64
	MintEnd         int64
	RevealTime      int64
	MaxSupply       uint64
	Supply          uint64
	TreasuryBalance uint64
	Paused          bool
	Upgradable      bool
	Version         uint64
	TimeLock        int64
	AllowListSize   int
	PendingCount    int
}

func (c *Collection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:              c.id,
		Name:            c.name,
		Symbol:          c.symbol,
		Description:     c.description,
		Creator:         c.creator,
		RoyaltyPercent:  c.royaltyPct,
		Price:           c.price,
		MintStart:       c.mintStart,
		MintEnd:         c.mintEnd,
		RevealTime:      c.revealTime,
		MaxSupply:       c.maxSupply,
		Supply:          c.supply,
		TreasuryBalance: c.treasury,
		Paused:          c.paused,
		Upgradable:      c.upgradable,
		Version:         c.version,
		TimeLock:        c.timeLock,
		AllowListSize:   len(c.allowlist),
		PendingCount:    len(c.pending),
	}
}

func addressStrings(addrs []Address) []string {
	ret := make([]string, len(addrs))
	for i, addr := range addrs {
		ret[i] = string(addr)
	}
	return ret
}

func toUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		// JSON numbers arrive as float64; only whole values in range count
		if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
			return 0, false
		}
		return uint64(v), true
	case json.Number:
		u, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return u, true
	default:
		return 0, false
	}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true //nolint:gosec
	case int:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
