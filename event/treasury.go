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

package event

// WithdrawalRequestedEventType is the event type for new withdrawal requests
const WithdrawalRequestedEventType = EventType("treasury.withdrawal_requested")

type WithdrawalRequestedEvent struct {
	CollectionId string
	// Requester is the address that opened the pending withdrawal
	Requester string
	Amount    uint64
	// RequestedAt is the clock value stored with the request (ms)
	RequestedAt int64
}

// ApprovalAddedEventType is the event type for multisig approval accumulation
const ApprovalAddedEventType = EventType("treasury.approval_added")

type ApprovalAddedEvent struct {
	CollectionId string
	// OperationId identifies the approval set the caller was recorded under
	OperationId string
	Approver    string
	// Approvals is the distinct approver count after recording
	Approvals int
	// Threshold is the approval count required before disbursement
	Threshold int
}

// WithdrawnEventType is the event type for completed disbursements
const WithdrawnEventType = EventType("treasury.withdrawn")

type WithdrawnEvent struct {
	CollectionId string
	// Recipient is the executing withdrawer paid by the disbursement
	Recipient string
	Amount    uint64
	// Balance is the treasury balance after the disbursement
	Balance uint64
}
