// Package ingest exposes the externalize/bulk-add handoff over HTTP so that
// workers on other machines can ship their metric buffers to the
// coordinator at trial end.
package ingest

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/modeyang/rally/pkg/errs"
	"github.com/modeyang/rally/pkg/metrics"
)

// Merger absorbs externalized snapshots. *metrics.InMemoryStore implements
// it.
type Merger interface {
	BulkAdd(snapshot *metrics.Snapshot) error
}

// Handler accepts worker snapshots and merges them into one store. Merges
// are serialized: the store itself holds no synchronization primitives.
type Handler struct {
	merger Merger
	mu     sync.Mutex
}

// NewHandler creates a snapshot handler merging into the given store.
func NewHandler(merger Merger) *Handler {
	return &Handler{merger: merger}
}

// snapshotResponse is the reply to a snapshot submission.
type snapshotResponse struct {
	Status     string `json:"status"`
	SnapshotID string `json:"snapshot_id"`
	DocCount   int    `json:"doc_count"`
	Message    string `json:"message,omitempty"`
}

// HandleSnapshot handles POST /v1/snapshots.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	var snapshot metrics.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		writeJSON(w, http.StatusBadRequest, snapshotResponse{Status: "error", Message: "invalid snapshot payload: " + err.Error()})
		return
	}

	snapshotID := uuid.NewString()

	h.mu.Lock()
	err := h.merger.BulkAdd(&snapshot)
	h.mu.Unlock()

	if err != nil {
		status := http.StatusInternalServerError
		if errs.IsInvalidArgument(err) {
			status = http.StatusBadRequest
		}
		log.WithFields(log.Fields{"snapshot": snapshotID, "error": err}).Warn("Rejected snapshot")
		writeJSON(w, status, snapshotResponse{Status: "error", SnapshotID: snapshotID, Message: err.Error()})
		return
	}

	log.WithFields(log.Fields{"snapshot": snapshotID, "docs": snapshot.DocCount}).Info("Merged snapshot")
	writeJSON(w, http.StatusOK, snapshotResponse{Status: "success", SnapshotID: snapshotID, DocCount: snapshot.DocCount})
}

// HandleHealth handles GET /v1/healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter wires the coordinator routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/snapshots", h.HandleSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/v1/healthz", h.HandleHealth).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}
