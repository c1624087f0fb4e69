// Package httpapi serves the operator endpoints: health, metrics, status,
// manual scans and the per-entity reminder toggle.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"reminder_service/internal/app"
	"reminder_service/internal/domain/reminder"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Ops is the subset of app.OpsService the router needs.
type Ops interface {
	RunNow(ctx context.Context, domain reminder.Domain) (app.Summary, error)
	SetReminderEnabled(ctx context.Context, domain reminder.Domain, entityID string, enabled bool) error
	Status() []app.DomainStatus
}

func NewRouter(ops Ops, logger *logrus.Entry) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	h := &reminderHandler{ops: ops, logger: logger}
	r.Route("/reminders", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/{domain}/run", h.Run)
		r.Put("/{domain}/{id}/enabled", h.SetEnabled)
	})

	return r
}

type reminderHandler struct {
	ops    Ops
	logger *logrus.Entry
}

func (h *reminderHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": h.ops.Status()})
}

func (h *reminderHandler) Run(w http.ResponseWriter, r *http.Request) {
	domain, err := reminder.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		http.Error(w, "unknown domain", http.StatusNotFound)
		return
	}
	summary, err := h.ops.RunNow(r.Context(), domain)
	if err != nil {
		if errors.Is(err, reminder.ErrUnknownDomain) {
			http.Error(w, "domain not configured", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).WithFields(logrus.Fields{
			"domain":     domain,
			"request_id": chimw.GetReqID(r.Context()),
		}).Error("Manual scan failed")
		http.Error(w, "scan failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type setEnabledReq struct {
	Enabled *bool `json:"enabled"`
}

func (h *reminderHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	domain, err := reminder.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		http.Error(w, "unknown domain", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")

	var req setEnabledReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		http.Error(w, `body must be {"enabled": true|false}`, http.StatusBadRequest)
		return
	}

	if err := h.ops.SetReminderEnabled(r.Context(), domain, id, *req.Enabled); err != nil {
		switch {
		case errors.Is(err, reminder.ErrEntityNotFound):
			http.Error(w, "entity not found", http.StatusNotFound)
		case errors.Is(err, reminder.ErrUnknownDomain):
			http.Error(w, "domain not configured", http.StatusNotFound)
		default:
			h.logger.WithError(err).WithFields(logrus.Fields{"domain": domain, "entity_id": id}).Error("Failed to toggle reminders")
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domain": domain, "id": id, "enabled": *req.Enabled})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
