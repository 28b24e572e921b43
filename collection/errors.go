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
	"errors"
	"fmt"
)

// ErrorKind classifies entry point failures into coarse categories so that
// callers can branch without matching individual error values
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuthorization
	KindTiming
	KindState
	KindResource
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindTiming:
		return "timing"
	case KindState:
		return "state"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is the typed error value returned by every entry point. Code is a
// stable machine-readable identifier
type Error struct {
	Code string
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// Validation errors
var (
	ErrInvalidName        = &Error{Code: "invalid_name", Kind: KindValidation, msg: "collection name is empty or too long"}
	ErrInvalidSymbol      = &Error{Code: "invalid_symbol", Kind: KindValidation, msg: "collection symbol is empty or too long"}
	ErrInvalidDescription = &Error{Code: "invalid_description", Kind: KindValidation, msg: "collection description too long"}
	ErrInvalidRoyalty     = &Error{Code: "invalid_royalty", Kind: KindValidation, msg: "royalty percentage out of range"}
	ErrInvalidRoleMask    = &Error{Code: "invalid_role_mask", Kind: KindValidation, msg: "role bitmask is not a valid non-zero combination"}
	ErrInvalidTimeWindow  = &Error{Code: "invalid_time_window", Kind: KindValidation, msg: "minting window start/end ordering is invalid"}
	ErrInvalidRevealTime  = &Error{Code: "invalid_reveal_time", Kind: KindValidation, msg: "reveal time outside minting window bounds"}
	ErrInvalidMaxSupply   = &Error{Code: "invalid_max_supply", Kind: KindValidation, msg: "max supply must be greater than zero"}
	ErrInvalidField       = &Error{Code: "invalid_field", Kind: KindValidation, msg: "unknown or unsupported update field"}
	ErrInvalidFieldValue  = &Error{Code: "invalid_field_value", Kind: KindValidation, msg: "update value has the wrong type for the field"}
	ErrInvalidAmount      = &Error{Code: "invalid_amount", Kind: KindValidation, msg: "amount must be greater than zero"}
	ErrInvalidExpiry      = &Error{Code: "invalid_expiry", Kind: KindValidation, msg: "expiry must be in the future"}
	ErrInvalidAddress     = &Error{Code: "invalid_address", Kind: KindValidation, msg: "address is empty"}
	ErrInvalidAttribute   = &Error{Code: "invalid_attribute", Kind: KindValidation, msg: "attribute key or value too long"}
	ErrBatchTooLarge      = &Error{Code: "batch_too_large", Kind: KindValidation, msg: "allow-list batch exceeds maximum size"}
	ErrUnknownCollection  = &Error{Code: "unknown_collection", Kind: KindValidation, msg: "collection not found"}
	ErrUnknownCapability  = &Error{Code: "unknown_capability", Kind: KindValidation, msg: "capability not found"}
	ErrUnknownItem        = &Error{Code: "unknown_item", Kind: KindValidation, msg: "item not found"}
)

// Authorization errors
var (
	ErrMissingRole        = &Error{Code: "missing_role", Kind: KindAuthorization, msg: "caller lacks the required role bit"}
	ErrNotAllowListed     = &Error{Code: "not_allow_listed", Kind: KindAuthorization, msg: "caller does not pass the allow-list gate"}
	ErrCapabilityMismatch = &Error{Code: "capability_mismatch", Kind: KindAuthorization, msg: "capability does not belong to this collection"}
	ErrItemMismatch       = &Error{Code: "item_mismatch", Kind: KindAuthorization, msg: "item does not belong to this collection"}
	ErrCapabilityExpired  = &Error{Code: "capability_expired", Kind: KindAuthorization, msg: "admin capability has expired"}
	ErrCapabilityDead     = &Error{Code: "capability_dead", Kind: KindAuthorization, msg: "admin capability is permanently unrenewable"}
)

// Timing errors
var (
	ErrMintNotStarted = &Error{Code: "mint_not_started", Kind: KindTiming, msg: "minting window has not opened"}
	ErrMintEnded      = &Error{Code: "mint_ended", Kind: KindTiming, msg: "minting window has closed"}
	ErrNotInGrace     = &Error{Code: "not_in_grace", Kind: KindTiming, msg: "capability renewal only permitted during the grace window"}
	ErrNotRevealable  = &Error{Code: "not_revealable", Kind: KindTiming, msg: "item reveal time has not been reached"}
	ErrTimeLockActive = &Error{Code: "time_lock_active", Kind: KindTiming, msg: "withdrawal time-lock has not elapsed"}
)

// State errors
var (
	ErrPaused           = &Error{Code: "paused", Kind: KindState, msg: "collection is paused"}
	ErrSupplyExhausted  = &Error{Code: "supply_exhausted", Kind: KindState, msg: "max supply reached"}
	ErrPendingExists    = &Error{Code: "pending_withdrawal_exists", Kind: KindState, msg: "a pending withdrawal already exists for this requester"}
	ErrNoPendingRequest = &Error{Code: "no_pending_withdrawal", Kind: KindState, msg: "no pending withdrawal for this requester"}
	ErrReentrantCall    = &Error{Code: "reentrant_call", Kind: KindState, msg: "reentrant call on collection"}
	ErrNotUpgradable    = &Error{Code: "not_upgradable", Kind: KindState, msg: "collection was created non-upgradable"}
	ErrAlreadyRevealed  = &Error{Code: "already_revealed", Kind: KindState, msg: "item is already revealed"}
)

// Resource errors
var (
	ErrInsufficientTreasury = &Error{Code: "insufficient_treasury", Kind: KindResource, msg: "treasury balance does not cover the amount"}
)

// InsufficientPaymentError is returned when a mint payment is below the
// collection price
type InsufficientPaymentError struct {
	Required uint64
	Provided uint64
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf(
		"insufficient payment: required=%d provided=%d",
		e.Required,
		e.Provided,
	)
}

// TimeLockError is returned when a withdrawal is executed before its
// time-lock has elapsed
type TimeLockError struct {
	Remaining int64
}

func (e *TimeLockError) Error() string {
	return fmt.Sprintf(
		"withdrawal time-lock active: %dms remaining",
		e.Remaining,
	)
}

func (e *TimeLockError) Is(target error) bool {
	return target == ErrTimeLockActive
}

// ThresholdNotMetError is returned by a withdrawal execution that recorded
// the caller's approval and consumed the pending request but did not reach
// the multisig threshold. No funds move on this path
type ThresholdNotMetError struct {
	Approvals int
	Required  int
}

func (e *ThresholdNotMetError) Error() string {
	return fmt.Sprintf(
		"multisig threshold not met: approvals=%d required=%d",
		e.Approvals,
		e.Required,
	)
}

// Kind returns the ErrorKind for any error produced by this package, or
// KindUnknown for foreign errors
func Kind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var payErr *InsufficientPaymentError
	if errors.As(err, &payErr) {
		return KindResource
	}
	var lockErr *TimeLockError
	if errors.As(err, &lockErr) {
		return KindTiming
	}
	var thresholdErr *ThresholdNotMetError
	if errors.As(err, &thresholdErr) {
		return KindResource
	}
	return KindUnknown
}
