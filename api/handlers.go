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

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/quoll/collection"
	"github.com/google/uuid"
)

const apiVersion = "0.1.0"

// writeJSON writes a JSON response with the given status code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response envelope.
func writeError(
	w http.ResponseWriter,
	status int,
	code string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Code:       code,
		Message:    message,
	})
}

// writeEngineError maps a collection error to an HTTP status and writes
// the error envelope.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, collection.ErrUnknownCollection),
		errors.Is(err, collection.ErrUnknownCapability),
		errors.Is(err, collection.ErrUnknownItem):
		status = http.StatusNotFound
	default:
		switch collection.Kind(err) {
		case collection.KindValidation:
			status = http.StatusBadRequest
		case collection.KindAuthorization:
			status = http.StatusForbidden
		case collection.KindTiming, collection.KindState:
			status = http.StatusConflict
		case collection.KindResource:
			status = http.StatusPaymentRequired
		}
	}

	var typedErr *collection.Error
	if errors.As(err, &typedErr) {
		code = typedErr.Code
	} else {
		var payErr *collection.InsufficientPaymentError
		var lockErr *collection.TimeLockError
		var thresholdErr *collection.ThresholdNotMetError
		switch {
		case errors.As(err, &payErr):
			code = "insufficient_payment"
		case errors.As(err, &lockErr):
			code = "time_lock_active"
		case errors.As(err, &thresholdErr):
			code = "threshold_not_met"
		}
	}

	writeError(w, status, code, err.Error())
}

// decodeRequest decodes a JSON request body, writing a 400 on failure.
func decodeRequest(
	w http.ResponseWriter,
	r *http.Request,
	v any,
) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_body",
			"failed to decode request body: "+err.Error(),
		)
		return false
	}
	return true
}

// pathUUID parses a path value as a UUID, writing a 400 on failure.
func pathUUID(
	w http.ResponseWriter,
	r *http.Request,
	name string,
) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid "+name+" path parameter",
		)
		return uuid.UUID{}, false
	}
	return id, true
}

func snapshotResponse(s collection.Snapshot) CollectionResponse {
	return CollectionResponse{
		Id:              s.ID.String(),
		Name:            s.Name,
		Symbol:          s.Symbol,
		Description:     s.Description,
		Creator:         string(s.Creator),
		RoyaltyPercent:  s.RoyaltyPercent,
		Price:           s.Price,
		MintStart:       s.MintStart,
		MintEnd:         s.MintEnd,
		RevealTime:      s.RevealTime,
		MaxSupply:       s.MaxSupply,
		Supply:          s.Supply,
		TreasuryBalance: s.TreasuryBalance,
		Paused:          s.Paused,
		Upgradable:      s.Upgradable,
		Version:         s.Version,
		TimeLock:        s.TimeLock,
		AllowListSize:   s.AllowListSize,
		PendingCount:    s.PendingCount,
	}
}

func itemResponse(item *collection.Item) ItemResponse {
	return ItemResponse{
		Id:           item.ID.String(),
		CollectionId: item.CollectionID.String(),
		Name:         item.Name,
		Description:  item.Description,
		Url:          item.Url,
		Creator:      string(item.Creator),
		Owner:        string(item.Owner),
		Revealed:     item.Revealed,
		RevealTime:   item.RevealTime,
		Attributes:   item.Attributes(),
	}
}

func toAddresses(in []string) []collection.Address {
	out := make([]collection.Address, 0, len(in))
	for _, addr := range in {
		out = append(out, collection.Address(addr))
	}
	return out
}

func fromAddresses(in []collection.Address) []string {
	out := make([]string, 0, len(in))
	for _, addr := range in {
		out = append(out, string(addr))
	}
	return out
}

// handleRoot handles GET / and returns API metadata.
func (a *Api) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Service: "quoll",
		Version: apiVersion,
	})
}

// handleHealth handles GET /health.
func (a *Api) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleCreateCollection handles POST /api/v1/collections.
func (a *Api) handleCreateCollection(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req CreateCollectionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	snapshot, adminCap, err := a.engine.CreateCollection(
		collection.CreateParams{
			Creator:            collection.Address(req.Creator),
			Name:               req.Name,
			Symbol:             req.Symbol,
			Description:        req.Description,
			RoyaltyPercent:     req.RoyaltyPercent,
			Price:              req.Price,
			MintStart:          req.MintStart,
			MintEnd:            req.MintEnd,
			RevealTime:         req.RevealTime,
			MaxSupply:          req.MaxSupply,
			Upgradable:         req.Upgradable,
			AdminCapExpiry:     req.AdminCapExpiry,
			WithdrawalTimeLock: req.WithdrawalTimeLock,
		},
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateCollectionResponse{
		Collection:   snapshotResponse(snapshot),
		CapabilityId: adminCap.ID.String(),
		CapExpiry:    adminCap.Expiry,
	})
}

// handleListCollections handles GET /api/v1/collections.
func (a *Api) handleListCollections(
	w http.ResponseWriter,
	_ *http.Request,
) {
	snapshots := a.engine.GetCollections()
	resp := make([]CollectionResponse, 0, len(snapshots))
	for _, s := range snapshots {
		resp = append(resp, snapshotResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetCollection handles GET /api/v1/collections/{id}.
func (a *Api) handleGetCollection(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	snapshot, found := a.engine.GetCollection(id)
	if !found {
		writeEngineError(w, collection.ErrUnknownCollection)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snapshot))
}

// handleMint handles POST /api/v1/collections/{id}/mint.
func (a *Api) handleMint(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req MintRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	item, change, err := a.engine.Mint(
		id,
		collection.Address(req.Caller),
		req.Payment,
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MintResponse{
		Item:   itemResponse(item),
		Change: change,
	})
}

// handleUpdateCollection handles POST /api/v1/collections/{id}/update.
func (a *Api) handleUpdateCollection(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateCollectionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	capId, err := uuid.Parse(req.CapabilityId)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid capability_id",
		)
		return
	}
	if err := a.engine.UpdateCollection(
		id,
		collection.Address(req.Caller),
		capId,
		collection.UpdateField(req.Field),
		req.Value,
	); err != nil {
		writeEngineError(w, err)
		return
	}
	snapshot, _ := a.engine.GetCollection(id)
	writeJSON(w, http.StatusOK, snapshotResponse(snapshot))
}

// handleFailSafe handles POST /api/v1/collections/{id}/failsafe.
func (a *Api) handleFailSafe(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req FailSafeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	capId, err := uuid.Parse(req.CapabilityId)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid capability_id",
		)
		return
	}
	if err := a.engine.TriggerFailSafe(
		id,
		collection.Address(req.Caller),
		capId,
	); err != nil {
		writeEngineError(w, err)
		return
	}
	snapshot, _ := a.engine.GetCollection(id)
	writeJSON(w, http.StatusOK, snapshotResponse(snapshot))
}

// handleUpdateRole handles POST /api/v1/collections/{id}/roles.
func (a *Api) handleUpdateRole(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	capId, err := uuid.Parse(req.CapabilityId)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid capability_id",
		)
		return
	}
	if err := a.engine.UpdateRole(
		id,
		collection.Address(req.Caller),
		capId,
		collection.Address(req.User),
		collection.Role(req.Roles),
	); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAllowListAdd handles POST /api/v1/collections/{id}/allowlist/add.
func (a *Api) handleAllowListAdd(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AllowListRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	capId, err := uuid.Parse(req.CapabilityId)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid capability_id",
		)
		return
	}
	added, err := a.engine.AddToAllowList(
		id,
		collection.Address(req.Caller),
		capId,
		toAddresses(req.Addresses),
		req.Expiry,
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AllowListResponse{
		Addresses: fromAddresses(added),
	})
}

// handleAllowListRemove handles POST
// /api/v1/collections/{id}/allowlist/remove.
func (a *Api) handleAllowListRemove(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AllowListRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	capId, err := uuid.Parse(req.CapabilityId)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid capability_id",
		)
		return
	}
	removed, err := a.engine.RemoveFromAllowList(
		id,
		collection.Address(req.Caller),
		capId,
		toAddresses(req.Addresses),
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AllowListResponse{
		Addresses: fromAddresses(removed),
	})
}

// handleAllowListCheck handles GET
// /api/v1/collections/{id}/allowlist/{address}.
func (a *Api) handleAllowListCheck(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	addr := r.PathValue("address")
	allowed, err := a.engine.IsAllowListed(
		id,
		collection.Address(addr),
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AllowListCheckResponse{
		Address:     addr,
		AllowListed: allowed,
	})
}

// handleRequestWithdrawal handles POST
// /api/v1/collections/{id}/withdrawals.
func (a *Api) handleRequestWithdrawal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req WithdrawalRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	capId, err := uuid.Parse(req.CapabilityId)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid capability_id",
		)
		return
	}
	if err := a.engine.RequestWithdrawal(
		id,
		collection.Address(req.Caller),
		capId,
		req.Amount,
	); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleExecuteWithdrawal handles POST
// /api/v1/collections/{id}/withdrawals/execute.
func (a *Api) handleExecuteWithdrawal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ExecuteWithdrawalRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	capId, err := uuid.Parse(req.CapabilityId)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_id",
			"invalid capability_id",
		)
		return
	}
	amount, err := a.engine.ExecuteWithdrawal(
		id,
		collection.Address(req.Caller),
		capId,
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteWithdrawalResponse{
		Amount: amount,
	})
}

// handleGetItem handles GET /api/v1/items/{id}.
func (a *Api) handleGetItem(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	item, found := a.engine.GetItem(id)
	if !found {
		writeEngineError(w, collection.ErrUnknownItem)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse(item))
}

// handleReveal handles POST /api/v1/items/{id}/reveal.
func (a *Api) handleReveal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := a.engine.Reveal(id); err != nil {
		writeEngineError(w, err)
		return
	}
	item, found := a.engine.GetItem(id)
	if !found {
		writeEngineError(w, collection.ErrUnknownItem)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse(item))
}

// handleCapabilityStatus handles GET /api/v1/capabilities/{id}.
func (a *Api) handleCapabilityStatus(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	status, err := a.engine.GetCapabilityStatus(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CapabilityStatusResponse{
		Id:     id.String(),
		Status: status.String(),
	})
}

// handleExtendCapability handles POST /api/v1/capabilities/{id}/extend.
func (a *Api) handleExtendCapability(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ExtendCapabilityRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.engine.ExtendCapability(id, req.NewExpiry); err != nil {
		writeEngineError(w, err)
		return
	}
	status, err := a.engine.GetCapabilityStatus(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CapabilityStatusResponse{
		Id:     id.String(),
		Status: status.String(),
	})
}
