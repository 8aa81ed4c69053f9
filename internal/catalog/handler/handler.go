// Package handler exposes the reference catalog over HTTP: lookups for
// support tooling and an explicit reload for deployments without a file
// watcher.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"railclaim/internal/catalog"
	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
	"railclaim/pkg/platform/httputil"
	"railclaim/pkg/requestcontext"
)

// Catalog is the subset of *catalog.Store the handler needs.
type Catalog interface {
	Current() *catalog.Snapshot
	Reload(ctx context.Context) (*catalog.Snapshot, error)
}

type Handler struct {
	catalog Catalog
	logger  *slog.Logger
}

func New(c Catalog, logger *slog.Logger) *Handler {
	return &Handler{catalog: c, logger: logger}
}

// Register mounts catalog endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/catalog", h.HandleInfo)
	r.Get("/v1/catalog/entries", h.HandleEntries)
	r.Get("/v1/catalog/check", h.HandleCheck)
	r.Post("/v1/catalog/reload", h.HandleReload)
}

type InfoResponse struct {
	Version   string          `json:"version"`
	LoadedAt  time.Time       `json:"loadedAt"`
	Entries   int             `json:"entries"`
	Overrides int             `json:"overrides"`
	Skipped   []catalog.Issue `json:"skipped"`
}

func infoFor(snap *catalog.Snapshot) *InfoResponse {
	return &InfoResponse{
		Version:   snap.Version(),
		LoadedAt:  snap.LoadedAt(),
		Entries:   len(snap.Entries()),
		Overrides: len(snap.Overrides()),
		Skipped:   snap.Issues(),
	}
}

// EntriesResponse answers an entry query. Override is set only for a
// country-and-operator lookup with a matching tier schedule.
type EntriesResponse struct {
	Version  string            `json:"version"`
	Entries  []catalog.Entry   `json:"entries"`
	Override *catalog.Override `json:"override,omitempty"`
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*catalog.Snapshot, bool) {
	snap := h.catalog.Current()
	if snap == nil {
		h.logger.WarnContext(r.Context(), "catalog not loaded",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "catalog not loaded"))
		return nil, false
	}
	return snap, true
}

// HandleInfo handles GET /v1/catalog requests.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, infoFor(snap))
}

// HandleEntries handles GET /v1/catalog/entries. With an operator the most
// specific entry is resolved; with only a country every row of that country
// is listed; with neither the whole catalog is listed.
func (h *Handler) HandleEntries(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	operator := strings.TrimSpace(q.Get("operator"))
	product := strings.TrimSpace(q.Get("product"))

	var country domain.CountryCode
	if raw := strings.TrimSpace(q.Get("country")); raw != "" {
		c, err := domain.ParseCountryCode(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		country = c
	} else if operator != "" || product != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "country is required when operator or product is given"))
		return
	}

	resp := &EntriesResponse{Version: snap.Version(), Entries: []catalog.Entry{}}
	switch {
	case operator != "" || product != "":
		key := catalog.Key{Country: country, Operator: operator, Product: product}
		entry, found := snap.Lookup(key)
		if !found {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "no catalog entry for %s", key))
			return
		}
		resp.Entries = append(resp.Entries, entry)
		if o, found := snap.FindOverride(key); found {
			resp.Override = &o
		}
	default:
		for _, e := range snap.Entries() {
			if country == "" || e.Key.Country == country {
				resp.Entries = append(resp.Entries, e)
			}
		}
		sort.Slice(resp.Entries, func(i, j int) bool {
			return resp.Entries[i].Key.String() < resp.Entries[j].Key.String()
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleCheck handles GET /v1/catalog/check requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	report := catalog.Check(snap)
	if report.Findings == nil {
		report.Findings = []catalog.Finding{}
	}
	if report.Skipped == nil {
		report.Skipped = []catalog.Issue{}
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleReload handles POST /v1/catalog/reload. A failed reload keeps the
// previous snapshot in force.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	snap, err := h.catalog.Reload(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "catalog reload failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "catalog reloaded",
		"request_id", requestID,
		"version", snap.Version(),
	)
	httputil.WriteJSON(w, http.StatusOK, infoFor(snap))
}
