// Package api provides the HTTP and WebSocket API of the slot server
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexbotov/slotsrv/internal/audit"
	"github.com/alexbotov/slotsrv/internal/auth"
	"github.com/alexbotov/slotsrv/internal/control"
	"github.com/alexbotov/slotsrv/internal/domain"
	"github.com/alexbotov/slotsrv/internal/engine"
	"github.com/alexbotov/slotsrv/internal/game"
	"github.com/alexbotov/slotsrv/internal/rng"
	"github.com/alexbotov/slotsrv/internal/slotconfig"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Version is reported by GET /.
const Version = "1.0.0"

// rngHealthTTL is how long a health request reuses the last RNG check.
const rngHealthTTL = 30 * time.Second

// Handler contains all HTTP handlers
type Handler struct {
	engine  *engine.Engine
	auth    *auth.Service
	audit   *audit.Service
	control *control.Service
	rng     *rng.Service
	db      *sql.DB
	metrics http.Handler
	log     *zap.Logger
}

// Options wires a Handler. Auth nil disables token checks; Control, DB and
// Metrics are optional.
type Options struct {
	Engine  *engine.Engine
	Auth    *auth.Service
	Audit   *audit.Service
	Control *control.Service
	RNG     *rng.Service
	DB      *sql.DB
	Metrics http.Handler
	Logger  *zap.Logger
}

// New creates a new API handler
func New(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	auditSvc := opts.Audit
	if auditSvc == nil {
		auditSvc = audit.New(nil, log)
	}
	return &Handler{
		engine:  opts.Engine,
		auth:    opts.Auth,
		audit:   auditSvc,
		control: opts.Control,
		rng:     opts.RNG,
		db:      opts.DB,
		metrics: opts.Metrics,
		log:     log.Named("api"),
	}
}

// Response helpers

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// errorStatus maps engine errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInvalidBet):
		return http.StatusBadRequest, "INVALID_BET"
	case errors.Is(err, game.ErrConfiguration):
		return http.StatusUnprocessableEntity, "CONFIGURATION_ERROR"
	case errors.Is(err, slotconfig.ErrConfigNotFound):
		return http.StatusNotFound, "MACHINE_NOT_FOUND"
	case errors.Is(err, engine.ErrNoMachines):
		return http.StatusNotFound, "NO_MACHINES"
	case errors.Is(err, engine.ErrReadOnly):
		return http.StatusMethodNotAllowed, "READ_ONLY"
	case errors.Is(err, control.ErrGamingDisabled):
		return http.StatusServiceUnavailable, "GAMING_DISABLED"
	case errors.Is(err, control.ErrMachineDisabled):
		return http.StatusServiceUnavailable, "MACHINE_DISABLED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (h *Handler) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "Internal server error"
	}
	respondError(w, status, code, msg)
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "healthy"}

	if h.rng != nil {
		rngHealth := h.rng.LastHealth()
		if rngHealth == nil || time.Since(rngHealth.Timestamp) > rngHealthTTL {
			rngHealth = h.rng.HealthCheck()
			if !rngHealth.Healthy {
				h.audit.Log(r.Context(), audit.EventRNGHealthCheck, domain.SeverityCritical,
					"RNG health check failed", rngHealth, audit.WithComponent("rng"))
			}
		}
		body["rng_status"] = rngHealth
		if !rngHealth.Healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}

	respondJSON(w, status, body)
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "slotsrv",
		"version":     Version,
		"description": "Slot outcome engine",
	})
}

// === Legacy machine ===

// LegacySpin handles POST /api/v1/legacy/spin
func (h *Handler) LegacySpin(w http.ResponseWriter, r *http.Request) {
	var req engine.LegacySpinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	req.PlayerID = PlayerFromContext(r.Context())
	req.ClientIP = getClientIP(r)

	result, err := h.engine.SpinLegacy(r.Context(), &req)
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetJackpot handles GET /api/v1/jackpot
func (h *Handler) GetJackpot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Jackpot())
}

// === Configured machines ===

// GetMachines handles GET /api/v1/machines
func (h *Handler) GetMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := h.engine.Machines(r.Context())
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, machines)
}

// Spin handles POST /api/v1/slots/spin
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	var req engine.SpinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	req.PlayerID = PlayerFromContext(r.Context())
	req.ClientIP = getClientIP(r)

	result, err := h.engine.Spin(r.Context(), &req)
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListSlotConfigs handles GET /api/v1/slot-configs
func (h *Handler) ListSlotConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.engine.Configs(r.Context())
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

// GetSlotConfig handles GET /api/v1/slot-configs/{id}
func (h *Handler) GetSlotConfig(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Configuration id must be an integer")
		return
	}
	def, err := h.engine.Definition(r.Context(), id)
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, def)
}

// CreateSlotConfig handles POST /api/v1/slot-configs
func (h *Handler) CreateSlotConfig(w http.ResponseWriter, r *http.Request) {
	var def game.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	id, err := h.engine.SaveDefinition(r.Context(), &def)
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      id,
		"message": "Slot configuration created successfully",
	})
}

// DeleteSlotConfig handles DELETE /api/v1/slot-configs/{id}
func (h *Handler) DeleteSlotConfig(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Configuration id must be an integer")
		return
	}
	if err := h.engine.DeactivateDefinition(r.Context(), id); err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"message": "Slot configuration deactivated",
	})
}

// GetSpinHistory handles GET /api/v1/spins/history
func (h *Handler) GetSpinHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	history, err := h.engine.GetHistory(r.Context(), PlayerFromContext(r.Context()), limit)
	if err != nil {
		h.log.Error("history lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "HISTORY_ERROR", "Failed to get spin history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// === Operator control ===

type controlRequest struct {
	// MachineID targets one machine; empty means all gaming.
	MachineID string `json:"machine_id"`
	Reason    string `json:"reason"`
}

// GetControlStatus handles GET /api/v1/control
func (h *Handler) GetControlStatus(w http.ResponseWriter, r *http.Request) {
	if h.control == nil {
		respondError(w, http.StatusNotFound, "CONTROL_UNAVAILABLE", "Operator control is not configured")
		return
	}
	respondJSON(w, http.StatusOK, h.control.Status())
}

// DisableGaming handles POST /api/v1/control/disable
func (h *Handler) DisableGaming(w http.ResponseWriter, r *http.Request) {
	h.setGaming(w, r, false)
}

// EnableGaming handles POST /api/v1/control/enable
func (h *Handler) EnableGaming(w http.ResponseWriter, r *http.Request) {
	h.setGaming(w, r, true)
}

func (h *Handler) setGaming(w http.ResponseWriter, r *http.Request, enable bool) {
	if h.control == nil {
		respondError(w, http.StatusNotFound, "CONTROL_UNAVAILABLE", "Operator control is not configured")
		return
	}
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	by := PlayerFromContext(r.Context())

	var err error
	switch {
	case enable && req.MachineID == "":
		err = h.control.EnableAllGaming(r.Context(), by)
	case enable:
		err = h.control.EnableMachine(r.Context(), req.MachineID, by)
	case req.MachineID == "":
		err = h.control.DisableAllGaming(r.Context(), req.Reason, by)
	default:
		err = h.control.DisableMachine(r.Context(), req.MachineID, req.Reason, by)
	}
	if err != nil {
		h.log.Error("control change failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "CONTROL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.control.Status())
}
