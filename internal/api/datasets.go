package api

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Evergreen/internal/runner"
	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

// maxBodyBytes bounds record uploads.
const maxBodyBytes = 32 << 20

// Dataset IDs become NATS subject tokens, so dots and wildcards are out.
var datasetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Runner is the part of runner.Runner the handlers need.
type Runner interface {
	Ingest(ctx context.Context, datasetID string, rows []map[string]interface{}) (int, error)
	Submit(ctx context.Context, datasetID string, req runner.Request) (*store.Run, error)
}

type DatasetsHandler struct {
	store  store.Store
	runner Runner
}

func NewDatasetsHandler(s store.Store, r Runner) *DatasetsHandler {
	return &DatasetsHandler{store: s, runner: r}
}

type PutRecordsRequest struct {
	Records []map[string]interface{} `json:"records"`
}

func (h *DatasetsHandler) PutRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}

	var req PutRecordsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Records == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "records required"})
		return
	}

	n, err := h.runner.Ingest(r.Context(), id, req.Records)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"dataset_id": id, "count": n})
}

func (h *DatasetsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	records, err := h.store.ListRecords(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dataset_id": id, "records": records})
}

func datasetID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !datasetIDPattern.MatchString(id) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dataset id"})
		return "", false
	}
	return id, true
}
