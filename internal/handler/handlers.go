// Package handler implements the HTTP API for the escrow ledger.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/model"
	"github.com/commonfund/escrowd/internal/service"
)

// Handler handles HTTP requests for escrow operations.
type Handler struct {
	engine       *service.Engine
	idempotency  *service.IdempotencyService
	errorHandler *ErrorHandler
	logger       *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(
	engine *service.Engine,
	idempotency *service.IdempotencyService,
	errorHandler *ErrorHandler,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:       engine,
		idempotency:  idempotency,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// RegisterTenantRequest is the request body for tenant registration.
type RegisterTenantRequest struct {
	TenantID string `json:"tenant_id"`
	AdminID  string `json:"admin_id"`
}

// AmountRequest is the request body for deposit operations.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// WithdrawRequest is the request body for withdrawals.
type WithdrawRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// CreateCommitmentRequest is the request body for commitment creation.
type CreateCommitmentRequest struct {
	TenantID        string    `json:"tenant_id"`
	Contributor     string    `json:"contributor"`
	Token           string    `json:"token"`
	Amount          int64     `json:"amount"`
	Deadline        time.Time `json:"deadline"`
	DisputeWindowMS int64     `json:"dispute_window_ms"`
	SpecRef         string    `json:"spec_ref"`
}

// SubmitWorkRequest is the request body for work submission.
type SubmitWorkRequest struct {
	TenantID    string `json:"tenant_id"`
	EvidenceRef string `json:"evidence_ref"`
}

// OpenDisputeRequest is the request body for opening a dispute.
type OpenDisputeRequest struct {
	TenantID string `json:"tenant_id"`
	Stake    int64  `json:"stake"`
}

// ResolveDisputeRequest is the request body for resolving a dispute.
type ResolveDisputeRequest struct {
	FavorContributor bool `json:"favor_contributor"`
}

// ExecuteSettlementRequest is the request body for batch settlement.
type ExecuteSettlementRequest struct {
	CommitmentIDs []string `json:"commitment_ids"`
}

// RotateRoleRequest is the request body for role rotation.
type RotateRoleRequest struct {
	Identity string `json:"identity"`
}

// BaselineStakeRequest is the request body for baseline stake updates.
type BaselineStakeRequest struct {
	Baseline int64 `json:"baseline"`
}

// RegisterTenant handles POST /v1/tenants.
func (h *Handler) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req RegisterTenantRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "register", func() (int, interface{}, error) {
		tenant, err := h.engine.Register(r.Context(), caller(r), req.TenantID, req.AdminID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, tenant, nil
	})
}

// Deposit handles POST /v1/tenants/{tenant_id}/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "deposit", func() (int, interface{}, error) {
		tenant, err := h.engine.Deposit(r.Context(), caller(r), tenantID, req.Amount)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, tenant, nil
	})
}

// Withdraw handles POST /v1/tenants/{tenant_id}/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]
	var req WithdrawRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "withdraw", func() (int, interface{}, error) {
		tenant, err := h.engine.Withdraw(r.Context(), caller(r), tenantID, req.To, req.Amount)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, tenant, nil
	})
}

// GetTenant handles GET /v1/tenants/{tenant_id}.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]
	tenant, err := h.engine.GetTenant(r.Context(), tenantID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, tenant)
}

// DeactivateTenant handles POST /v1/tenants/{tenant_id}/deactivate.
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]
	h.mutate(w, r, "deactivate", func() (int, interface{}, error) {
		if err := h.engine.DeactivateTenant(r.Context(), caller(r), tenantID); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]string{"status": "deactivated", "tenant_id": tenantID}, nil
	})
}

// CreateCommitment handles POST /v1/commitments.
func (h *Handler) CreateCommitment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommitmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "create_commitment", func() (int, interface{}, error) {
		commitment, err := h.engine.CreateCommitment(
			r.Context(),
			caller(r),
			req.TenantID,
			req.Contributor,
			req.Token,
			req.Amount,
			req.Deadline,
			time.Duration(req.DisputeWindowMS)*time.Millisecond,
			req.SpecRef,
		)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, commitment, nil
	})
}

// GetCommitment handles GET /v1/commitments/{commitment_id}.
func (h *Handler) GetCommitment(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]
	commitment, err := h.engine.GetCommitment(r.Context(), commitmentID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, commitment)
}

// SubmitWork handles POST /v1/commitments/{commitment_id}/submit.
func (h *Handler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]
	var req SubmitWorkRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "submit_work", func() (int, interface{}, error) {
		commitment, err := h.engine.SubmitWork(r.Context(), caller(r), req.TenantID, commitmentID, req.EvidenceRef)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, commitment, nil
	})
}

// Settle handles POST /v1/commitments/{commitment_id}/settle.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]
	h.mutate(w, r, "settle", func() (int, interface{}, error) {
		commitment, err := h.engine.Settle(r.Context(), caller(r), commitmentID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, commitment, nil
	})
}

// CanSettle handles GET /v1/commitments/{commitment_id}/can-settle.
func (h *Handler) CanSettle(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]
	settleable, err := h.engine.CanSettle(r.Context(), commitmentID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"commitment_id": commitmentID,
		"settleable":    settleable,
	})
}

// RequiredStake handles GET /v1/commitments/{commitment_id}/required-stake.
// The returned figure is advisory; only the baseline is enforced.
func (h *Handler) RequiredStake(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]

	reputation := int64(0)
	if v := r.URL.Query().Get("reputation"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			h.errorHandler.HandleError(w, r, errors.InvalidAmount(parsed))
			return
		}
		reputation = parsed
	}

	confidence := 0.0
	if v := r.URL.Query().Get("ai_confidence"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.errorHandler.WriteErrorResponse(w, http.StatusBadRequest, "INVALID_AMOUNT",
				"ai_confidence must be between 0 and 1", r.Header.Get("X-Request-ID"))
			return
		}
		confidence = parsed
	}

	required, err := h.engine.AdvisoryStake(r.Context(), commitmentID, reputation, confidence)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"commitment_id":  commitmentID,
		"required_stake": required,
		"baseline_stake": h.engine.BaselineStake(),
	})
}

// OpenDispute handles POST /v1/commitments/{commitment_id}/dispute.
func (h *Handler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]
	var req OpenDisputeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "open_dispute", func() (int, interface{}, error) {
		dispute, err := h.engine.OpenDispute(r.Context(), caller(r), req.TenantID, commitmentID, req.Stake)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, dispute, nil
	})
}

// GetDispute handles GET /v1/commitments/{commitment_id}/dispute.
func (h *Handler) GetDispute(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]
	dispute, err := h.engine.GetDispute(r.Context(), commitmentID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, dispute)
}

// ResolveDispute handles POST /v1/commitments/{commitment_id}/resolve.
func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	commitmentID := mux.Vars(r)["commitment_id"]
	var req ResolveDisputeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "resolve_dispute", func() (int, interface{}, error) {
		dispute, err := h.engine.ResolveDispute(r.Context(), caller(r), commitmentID, req.FavorContributor)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, dispute, nil
	})
}

// CheckSettleable handles GET /v1/settlements/check.
func (h *Handler) CheckSettleable(w http.ResponseWriter, r *http.Request) {
	ids, err := h.engine.CheckSettleable(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"commitment_ids": ids,
		"count":          len(ids),
	})
}

// ExecuteSettlement handles POST /v1/settlements/execute.
func (h *Handler) ExecuteSettlement(w http.ResponseWriter, r *http.Request) {
	var req ExecuteSettlementRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "execute_settlement", func() (int, interface{}, error) {
		result, err := h.engine.ExecuteSettlement(r.Context(), caller(r), req.CommitmentIDs)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, result, nil
	})
}

// GetRoles handles GET /v1/roles.
func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.engine.GetRoles()
	h.respond(w, http.StatusOK, roles)
}

// RotateRole handles PUT /v1/roles/{role}.
func (h *Handler) RotateRole(w http.ResponseWriter, r *http.Request) {
	role := model.Role(mux.Vars(r)["role"])
	var req RotateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "rotate_role", func() (int, interface{}, error) {
		roles, err := h.engine.RotateRole(r.Context(), caller(r), role, req.Identity)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, roles, nil
	})
}

// SetBaselineStake handles PUT /v1/config/baseline-stake.
func (h *Handler) SetBaselineStake(w http.ResponseWriter, r *http.Request) {
	var req BaselineStakeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "set_baseline_stake", func() (int, interface{}, error) {
		if err := h.engine.SetBaselineStake(r.Context(), caller(r), req.Baseline); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]int64{"baseline_stake": req.Baseline}, nil
	})
}

// ContributorReputation handles GET /v1/contributors/{contributor_id}/reputation.
func (h *Handler) ContributorReputation(w http.ResponseWriter, r *http.Request) {
	contributor := mux.Vars(r)["contributor_id"]
	settled, err := h.engine.ContributorReputation(r.Context(), contributor)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"contributor":         contributor,
		"total_value_settled": settled,
	})
}

// caller extracts the caller identity from the request.
func caller(r *http.Request) string {
	return r.Header.Get("X-Caller-ID")
}

// decode reads a JSON request body into v, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.errorHandler.WriteErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST",
			"invalid request body: "+err.Error(), r.Header.Get("X-Request-ID"))
		return false
	}
	return true
}

// mutate runs a mutating operation with idempotency replay. When the
// request carries an X-Idempotency-Key and a cached response exists for
// it, the cached response is replayed without re-executing the operation.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, operation string, fn func() (int, interface{}, error)) {
	key := r.Header.Get("X-Idempotency-Key")

	if key != "" && h.idempotency != nil {
		cached, err := h.idempotency.Get(r.Context(), operation, key)
		if err != nil {
			h.logger.Warn("idempotency lookup failed",
				zap.String("operation", operation),
				zap.Error(err),
			)
		} else if cached != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replay", "true")
			w.WriteHeader(cached.StatusCode)
			w.Write(cached.Body)
			return
		}
	}

	status, body, err := fn()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	payload, err := json.Marshal(body)
	if err != nil {
		h.errorHandler.HandleError(w, r, errors.InternalError("failed to encode response", err))
		return
	}

	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Set(r.Context(), operation, key, status, payload); err != nil {
			h.logger.Warn("idempotency record failed",
				zap.String("operation", operation),
				zap.Error(err),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// respond writes a JSON response.
func (h *Handler) respond(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
