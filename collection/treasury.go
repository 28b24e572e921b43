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
	"github.com/blinklabs-io/quoll/event"
)

// RequestWithdrawal opens a pending withdrawal for the caller. It requires
// the WITHDRAWER bit, an active capability, a positive amount within the
// current treasury balance, and no outstanding request for the caller.
// The balance is only checked at request time; outstanding requests are
// not reserved against it
func (c *Collection) RequestWithdrawal(
	caller Address,
	adminCap *AdminCapability,
	amount uint64,
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
	if !c.roles.has(caller, RoleWithdrawer) {
		return ErrMissingRole
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount > c.treasury {
		return ErrInsufficientTreasury
	}
	if _, ok := c.pending[caller]; ok {
		return ErrPendingExists
	}
	t := &txn{c: c}
	t.stage(func() {
		c.pending[caller] = PendingWithdrawal{
			Amount:      amount,
			RequestTime: now,
		}
	})
	t.emit(
		event.WithdrawalRequestedEventType,
		event.WithdrawalRequestedEvent{
			CollectionId: c.id.String(),
			Requester:    string(caller),
			Amount:       amount,
			RequestedAt:  now,
		},
	)
	t.commit()
	c.logger.Info(
		"withdrawal requested",
		"component", "treasury",
		"collection_id", c.id.String(),
		"requester", string(caller),
		"amount", amount,
	)
	c.notifyNearExpiry(adminCap, now)
	return nil
}

// ExecuteWithdrawal drives the caller's pending withdrawal forward. After
// the time-lock has elapsed, the first execute call always consumes the
// pending request and records the caller's approval under an operation
// identifier derived from the presented capability's identity. Funds move
// only once that identifier has accumulated ApprovalThreshold distinct
// approvers; below the threshold the consumed request can only be retried
// by re-requesting.
//
// Keying approvals by capability identity while the capability has a
// single holder means the threshold is not reachable through ordinary
// single-owner use; the recorded behavior is kept as-is rather than
// re-keyed by requester
func (c *Collection) ExecuteWithdrawal(
	caller Address,
	adminCap *AdminCapability,
	now int64,
) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope, err := c.guard.acquire()
	if err != nil {
		return 0, err
	}
	defer scope.release()
	if err := c.checkCapability(adminCap, now); err != nil {
		return 0, err
	}
	if !c.roles.has(caller, RoleWithdrawer) {
		return 0, ErrMissingRole
	}
	pw, ok := c.pending[caller]
	if !ok {
		return 0, ErrNoPendingRequest
	}
	unlockAt := pw.RequestTime + c.timeLock
	if now < unlockAt {
		return 0, &TimeLockError{Remaining: unlockAt - now}
	}
	// Consume the request and record the approval before the threshold
	// check; this commit stands even when the threshold is not met
	opId := adminCap.ID
	consume := &txn{c: c}
	consume.stage(func() {
		delete(c.pending, caller)
		if c.approvals[opId] == nil {
			c.approvals[opId] = make(map[Address]struct{})
		}
		c.approvals[opId][caller] = struct{}{}
	})
	consume.commit()
	approvals := len(c.approvals[opId])
	c.publish(
		event.ApprovalAddedEventType,
		event.ApprovalAddedEvent{
			CollectionId: c.id.String(),
			OperationId:  opId.String(),
			Approver:     string(caller),
			Approvals:    approvals,
			Threshold:    ApprovalThreshold,
		},
	)
	if approvals < ApprovalThreshold {
		c.logger.Debug(
			"approval recorded, threshold unmet",
			"component", "treasury",
			"collection_id", c.id.String(),
			"operation_id", opId.String(),
			"approvals", approvals,
		)
		c.notifyNearExpiry(adminCap, now)
		return 0, &ThresholdNotMetError{
			Approvals: approvals,
			Required:  ApprovalThreshold,
		}
	}
	if c.treasury < pw.Amount {
		c.notifyNearExpiry(adminCap, now)
		return 0, ErrInsufficientTreasury
	}
	disburse := &txn{c: c}
	disburse.stage(func() {
		c.treasury -= pw.Amount
		delete(c.approvals, opId)
	})
	disburse.emit(
		event.WithdrawnEventType,
		event.WithdrawnEvent{
			CollectionId: c.id.String(),
			Recipient:    string(caller),
			Amount:       pw.Amount,
			Balance:      c.treasury - pw.Amount,
		},
	)
	disburse.commit()
	c.logger.Info(
		"withdrawal disbursed",
		"component", "treasury",
		"collection_id", c.id.String(),
		"recipient", string(caller),
		"amount", pw.Amount,
	)
	c.notifyNearExpiry(adminCap, now)
	return pw.Amount, nil
}

// ApprovalCount returns the distinct approver count recorded under the
// given capability's operation identifier
func (c *Collection) ApprovalCount(adminCap *AdminCapability) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if adminCap == nil {
		return 0
	}
	return len(c.approvals[adminCap.ID])
}
