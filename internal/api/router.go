// Package api - Router setup
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Apply global middleware
	r.Use(h.RecoveryMiddleware)
	r.Use(CORSMiddleware)
	r.Use(h.LoggingMiddleware)

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods("GET")
	}

	// Protected routes
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(h.AuthMiddleware)
	operator := func(f http.HandlerFunc) http.Handler { return h.OperatorMiddleware(f) }

	// Legacy machine and jackpot
	protected.HandleFunc("/legacy/spin", h.LegacySpin).Methods("POST")
	protected.HandleFunc("/jackpot", h.GetJackpot).Methods("GET")

	// Configured machines
	protected.HandleFunc("/machines", h.GetMachines).Methods("GET")
	protected.HandleFunc("/slots/spin", h.Spin).Methods("POST")
	protected.HandleFunc("/slot-configs", h.ListSlotConfigs).Methods("GET")
	protected.Handle("/slot-configs", operator(h.CreateSlotConfig)).Methods("POST")
	protected.HandleFunc("/slot-configs/{id}", h.GetSlotConfig).Methods("GET")
	protected.Handle("/slot-configs/{id}", operator(h.DeleteSlotConfig)).Methods("DELETE")

	// Recall
	protected.HandleFunc("/spins/history", h.GetSpinHistory).Methods("GET")

	// Operator switches
	protected.Handle("/control", operator(h.GetControlStatus)).Methods("GET")
	protected.Handle("/control/disable", operator(h.DisableGaming)).Methods("POST")
	protected.Handle("/control/enable", operator(h.EnableGaming)).Methods("POST")

	// WebSocket for real-time play
	protected.HandleFunc("/ws", h.HandleWebSocket).Methods("GET")

	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
