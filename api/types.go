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

package api

// RootResponse is returned by GET /.
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the error envelope for every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// CreateCollectionRequest is the body for POST /api/v1/collections.
type CreateCollectionRequest struct {
	Creator            string `json:"creator"`
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
	Description        string `json:"description"`
	RoyaltyPercent     uint8  `json:"royalty_percent"`
	Price              uint64 `json:"price"`
	MintStart          int64  `json:"mint_start"`
	MintEnd            int64  `json:"mint_end"`
	RevealTime         int64  `json:"reveal_time"`
	MaxSupply          uint64 `json:"max_supply"`
	Upgradable         bool   `json:"upgradable"`
	AdminCapExpiry     int64  `json:"admin_cap_expiry,omitempty"`
	WithdrawalTimeLock int64  `json:"withdrawal_time_lock,omitempty"`
}

// CreateCollectionResponse returns the new collection and its admin
// capability.
type CreateCollectionResponse struct {
	Collection   CollectionResponse `json:"collection"`
	CapabilityId string             `json:"capability_id"`
	CapExpiry    int64              `json:"capability_expiry"`
}

// CollectionResponse represents a collection snapshot.
type CollectionResponse struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Description     string `json:"description"`
	Creator         string `json:"creator"`
	RoyaltyPercent  uint8  `json:"royalty_percent"`
	Price           uint64 `json:"price"`
	MintStart       int64  `json:"mint_start"`
	MintEnd         int64  `json:"mint_end"`
	RevealTime      int64  `json:"reveal_time"`
	MaxSupply       uint64 `json:"max_supply"`
	Supply          uint64 `json:"supply"`
	TreasuryBalance uint64 `json:"treasury_balance"`
	Paused          bool   `json:"paused"`
	Upgradable      bool   `json:"upgradable"`
	Version         uint64 `json:"version"`
	TimeLock        int64  `json:"withdrawal_time_lock"`
	AllowListSize   int    `json:"allow_list_size"`
	PendingCount    int    `json:"pending_withdrawals"`
}

// MintRequest is the body for POST /api/v1/collections/{id}/mint.
type MintRequest struct {
	Caller  string `json:"caller"`
	Payment uint64 `json:"payment"`
}

// MintResponse returns the minted item and any change due.
type MintResponse struct {
	Item   ItemResponse `json:"item"`
	Change uint64       `json:"change"`
}

// ItemResponse represents a minted item.
type ItemResponse struct {
	Id           string            `json:"id"`
	CollectionId string            `json:"collection_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Url          string            `json:"url"`
	Creator      string            `json:"creator"`
	Owner        string            `json:"owner"`
	Revealed     bool              `json:"revealed"`
	RevealTime   int64             `json:"reveal_time"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// AllowListRequest is the body for allow-list add/remove calls. Expiry is
// ignored on remove.
type AllowListRequest struct {
	Caller       string   `json:"caller"`
	CapabilityId string   `json:"capability_id"`
	Addresses    []string `json:"addresses"`
	Expiry       int64    `json:"expiry,omitempty"`
}

// AllowListResponse returns the addresses actually mutated.
type AllowListResponse struct {
	Addresses []string `json:"addresses"`
}

// AllowListCheckResponse is returned by the allow-list membership query.
type AllowListCheckResponse struct {
	Address     string `json:"address"`
	AllowListed bool   `json:"allow_listed"`
}

// WithdrawalRequest is the body for POST
// /api/v1/collections/{id}/withdrawals.
type WithdrawalRequest struct {
	Caller       string `json:"caller"`
	CapabilityId string `json:"capability_id"`
	Amount       uint64 `json:"amount"`
}

// ExecuteWithdrawalRequest is the body for POST
// /api/v1/collections/{id}/withdrawals/execute.
type ExecuteWithdrawalRequest struct {
	Caller       string `json:"caller"`
	CapabilityId string `json:"capability_id"`
}

// ExecuteWithdrawalResponse reports the disbursed amount.
type ExecuteWithdrawalResponse struct {
	Amount uint64 `json:"amount"`
}

// UpdateCollectionRequest is the body for POST
// /api/v1/collections/{id}/update.
type UpdateCollectionRequest struct {
	Caller       string `json:"caller"`
	CapabilityId string `json:"capability_id"`
	Field        string `json:"field"`
	Value        any    `json:"value"`
}

// UpdateRoleRequest is the body for POST /api/v1/collections/{id}/roles.
type UpdateRoleRequest struct {
	Caller       string `json:"caller"`
	CapabilityId string `json:"capability_id"`
	User         string `json:"user"`
	Roles        uint8  `json:"roles"`
}

// ExtendCapabilityRequest is the body for POST
// /api/v1/capabilities/{id}/extend.
type ExtendCapabilityRequest struct {
	NewExpiry int64 `json:"new_expiry"`
}

// CapabilityStatusResponse is returned by the capability status query.
type CapabilityStatusResponse struct {
	Id     string `json:"id"`
	Status string `json:"status"`
}

// FailSafeRequest is the body for POST /api/v1/collections/{id}/failsafe.
type FailSafeRequest struct {
	Caller       string `json:"caller"`
	CapabilityId string `json:"capability_id"`
}
