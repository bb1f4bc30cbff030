// Package api exposes the import, audit, and assignment engines over HTTP
// for the back-office UI.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/residuals-cli/internal/anomaly"
	"github.com/sells-group/residuals-cli/internal/assign"
	"github.com/sells-group/residuals-cli/internal/importer"
	"github.com/sells-group/residuals-cli/internal/model"
	"github.com/sells-group/residuals-cli/internal/store"
)

// Handlers groups the HTTP handlers and their dependencies.
type Handlers struct {
	store       store.Store
	importer    *importer.Importer
	engine      *assign.Engine
	detector    *anomaly.Detector
	concurrency int
}

// NewHandlers creates the handler set.
func NewHandlers(st store.Store, imp *importer.Importer, eng *assign.Engine, det *anomaly.Detector, concurrency int) *Handlers {
	return &Handlers{
		store:       st,
		importer:    imp,
		engine:      eng,
		detector:    det,
		concurrency: concurrency,
	}
}

// Router builds the chi router for the API.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/import", h.handleImport)
		r.Post("/import/batch", h.handleImportBatch)
		r.Post("/audit", h.handleAudit)
		r.Route("/assignments", func(r chi.Router) {
			r.Post("/bulk", h.handleBulkAssign)
			r.Post("/smart", h.handleSmartAssign)
			r.Post("/copy", h.handleCopy)
			r.Get("/unassigned", h.handleUnassigned)
		})
	})

	return r
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// --- handlers ---

type importRequest struct {
	Path      string `json:"path"`
	Processor string `json:"processor,omitempty"`
	Month     string `json:"month"`
}

type importResponse struct {
	Success bool `json:"success"`
	*model.ImportResult
}

func (h *Handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" || req.Month == "" {
		writeError(w, http.StatusBadRequest, "path and month are required")
		return
	}

	result, err := h.importer.ImportFile(r.Context(), req.Path, importer.Options{
		Processor: req.Processor,
		Month:     req.Month,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Success: true, ImportResult: result})
}

type importBatchRequest struct {
	Files []importer.FileSpec `json:"files"`
}

func (h *Handlers) handleImportBatch(w http.ResponseWriter, r *http.Request) {
	var req importBatchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "files are required")
		return
	}

	result, err := h.importer.ImportBatch(r.Context(), req.Files, h.concurrency)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleAudit(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}

	report, err := h.detector.ReportFromStore(r.Context(), h.store, month)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type bulkAssignRequest struct {
	Rules []model.AssignRule `json:"rules"`
}

func (h *Handlers) handleBulkAssign(w http.ResponseWriter, r *http.Request) {
	var req bulkAssignRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Rules) == 0 {
		writeError(w, http.StatusBadRequest, "rules are required")
		return
	}

	result, err := h.engine.BulkAssign(r.Context(), req.Rules)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type smartAssignRequest struct {
	Rules []model.SmartRule `json:"rules"`
}

func (h *Handlers) handleSmartAssign(w http.ResponseWriter, r *http.Request) {
	var req smartAssignRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Rules) == 0 {
		writeError(w, http.StatusBadRequest, "rules are required")
		return
	}

	result, err := h.engine.SmartAssign(r.Context(), req.Rules)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type copyRequest struct {
	FromMonth   string   `json:"from_month"`
	ToMonth     string   `json:"to_month"`
	MerchantIDs []string `json:"merchant_ids,omitempty"`
}

func (h *Handlers) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if !decode(w, r, &req) {
		return
	}
	if req.FromMonth == "" || req.ToMonth == "" {
		writeError(w, http.StatusBadRequest, "from_month and to_month are required")
		return
	}

	result, err := h.engine.CopyForward(r.Context(), req.FromMonth, req.ToMonth, req.MerchantIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleUnassigned(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}

	summary, err := h.engine.UnassignedSummary(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
