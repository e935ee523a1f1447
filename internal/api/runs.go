package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Evergreen/internal/runner"
	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

// maxRunBodyBytes bounds run override bodies.
const maxRunBodyBytes = 64 << 10

type RunsHandler struct {
	store  store.Store
	runner Runner
}

func NewRunsHandler(s store.Store, r Runner) *RunsHandler {
	return &RunsHandler{store: s, runner: r}
}

// Create runs the pipeline synchronously. A superseded run answers 409 and a
// failed one 500; both still carry the run record.
func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}

	var req runner.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	run, err := h.runner.Submit(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, runner.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	switch run.Status {
	case store.RunStatusSuperseded:
		writeJSON(w, http.StatusConflict, run)
	case store.RunStatusFailed:
		writeJSON(w, http.StatusInternalServerError, run)
	default:
		writeJSON(w, http.StatusCreated, run)
	}
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	id, ok := datasetID(w, r)
	if !ok {
		return
	}
	run, err := h.store.LatestRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}
