package runner

import (
	"context"
	"encoding/json"

	"github.com/MikeSquared-Agency/Evergreen/internal/hermes"
)

// SetupSubscriptions listens for dataset ingest events. Each event replaces
// the dataset and submits a run in the background, so a newer event for the
// same dataset supersedes a run still in flight.
func (r *Runner) SetupSubscriptions(ctx context.Context) error {
	if r.hermes == nil {
		return nil
	}
	return r.hermes.Subscribe(hermes.SubjectDatasetIngestAll, func(subject string, data []byte) {
		datasetID := hermes.DatasetIDFromSubject(subject)
		if datasetID == "" {
			r.logger.Warn("ingest event on unexpected subject", "subject", subject)
			return
		}
		var evt hermes.DatasetIngestEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			r.logger.Warn("invalid ingest event", "subject", subject, "error", err)
			return
		}
		r.handleIngest(ctx, datasetID, evt)
	})
}

func (r *Runner) handleIngest(ctx context.Context, datasetID string, evt hermes.DatasetIngestEvent) {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return
	}
	if _, err := r.Ingest(ctx, datasetID, evt.Records); err != nil {
		r.logger.Error("ingest from event failed", "dataset_id", datasetID, "error", err)
		return
	}

	started := r.goTracked(func() {
		if _, err := r.Submit(ctx, datasetID, Request{Seed: evt.Seed}); err != nil {
			r.logger.Error("run from event failed", "dataset_id", datasetID, "error", err)
		}
	})
	if !started {
		r.logger.Info("runner stopping, dropping run from event", "dataset_id", datasetID)
	}
}
