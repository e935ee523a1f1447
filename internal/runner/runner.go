package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Evergreen/internal/config"
	"github.com/MikeSquared-Agency/Evergreen/internal/hermes"
	"github.com/MikeSquared-Agency/Evergreen/internal/ingest"
	"github.com/MikeSquared-Agency/Evergreen/internal/metrics"
	"github.com/MikeSquared-Agency/Evergreen/internal/pipeline"
	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

var (
	// ErrInvalidRequest wraps override values the pipeline rejects.
	ErrInvalidRequest = errors.New("invalid run request")

	errSuperseded = errors.New("superseded by a newer run")
	errStopped    = errors.New("runner stopped")
)

const statsInterval = 30 * time.Second

// Request carries per-run overrides. Nil fields fall back to configuration.
type Request struct {
	Seed     *int64   `json:"seed,omitempty"`
	Priority *float64 `json:"priority,omitempty"`
	TopN     *int     `json:"top_n,omitempty"`
	Mode     string   `json:"mode,omitempty"`
}

type inflight struct {
	runID  uuid.UUID
	cancel context.CancelCauseFunc
}

// Runner executes pipeline runs against stored datasets. At most one run per
// dataset is in flight; submitting another cancels the older one, which is
// then stored as superseded instead of completed.
type Runner struct {
	store   store.Store
	hermes  hermes.Client
	mapper  *ingest.Mapper
	metrics *metrics.Metrics
	opts    pipeline.Options
	cfg     *config.Config
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflight
	stats    hermes.StatsEvent
	stopped  bool

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a Runner. h may be nil when no event bus is configured.
func New(s store.Store, h hermes.Client, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, fmt.Errorf("pipeline options: %w", err)
	}
	mapper, err := ingest.NewMapper(nil)
	if err != nil {
		return nil, fmt.Errorf("schema mapper: %w", err)
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    s,
		hermes:   h,
		mapper:   mapper,
		metrics:  m,
		opts:     opts,
		cfg:      cfg,
		logger:   logger,
		inflight: make(map[string]*inflight),
		stopCh:   make(chan struct{}),
	}, nil
}

// goTracked runs fn on a goroutine Stop waits for. It reports false, without
// running fn, once Stop has begun.
func (r *Runner) goTracked(fn func()) bool {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		fn()
	}()
	return true
}

func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.statsLoop(ctx)
}

// Stop cancels in-flight runs and waits for background work to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.mu.Lock()
		r.stopped = true
		for _, f := range r.inflight {
			f.cancel(errStopped)
		}
		r.mu.Unlock()
	})
	r.wg.Wait()
}

// Ingest maps raw rows onto canonical records and replaces the dataset.
func (r *Runner) Ingest(ctx context.Context, datasetID string, rows []map[string]interface{}) (int, error) {
	records := r.mapper.Map(rows)
	if err := r.store.ReplaceRecords(ctx, datasetID, records); err != nil {
		return 0, fmt.Errorf("replace records: %w", err)
	}
	r.metrics.RecordsIngested.Add(float64(len(records)))
	r.logger.Info("dataset ingested", "dataset_id", datasetID, "records", len(records))
	return len(records), nil
}

// Submit runs the pipeline over the stored dataset and persists the outcome.
// The returned run carries the final status; an error means the run could
// not be started or recorded.
func (r *Runner) Submit(ctx context.Context, datasetID string, req Request) (*store.Run, error) {
	p, seed, err := r.prepare(req)
	if err != nil {
		return nil, err
	}

	run := &store.Run{DatasetID: datasetID, Status: store.RunStatusRunning, Seed: seed}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	if timeout := r.cfg.RunTimeout(); timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	defer cancel(nil)
	r.register(datasetID, run.ID, cancel)

	r.metrics.RunsInFlight.Inc()
	defer r.metrics.RunsInFlight.Dec()
	start := time.Now()

	res, runErr := r.execute(runCtx, p, run, seed)

	superseded := r.release(runCtx, datasetID, run.ID)
	now := time.Now()
	run.CompletedAt = &now
	switch {
	case superseded:
		run.Status = store.RunStatusSuperseded
		run.Error = errSuperseded.Error()
	case runErr != nil:
		run.Status = store.RunStatusFailed
		run.Error = runErr.Error()
	default:
		payload, err := json.Marshal(res)
		if err != nil {
			run.Status = store.RunStatusFailed
			run.Error = fmt.Sprintf("encode result: %v", err)
			break
		}
		run.Status = store.RunStatusCompleted
		run.Result = payload
	}

	// Persist even when the caller has gone away.
	if err := r.store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("update run: %w", err)
	}
	r.finish(run, res, time.Since(start))
	return run, nil
}

func (r *Runner) prepare(req Request) (*pipeline.Pipeline, int64, error) {
	opts := r.opts
	if req.Priority != nil {
		if *req.Priority < 0 || *req.Priority > 1 {
			return nil, 0, fmt.Errorf("%w: priority must be within [0,1]", ErrInvalidRequest)
		}
		opts.Recommend.Priority = *req.Priority
	}
	if req.TopN != nil {
		opts.Recommend.TopN = *req.TopN
	}
	if req.Mode != "" {
		mode, err := scoring.ParseMode(req.Mode)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		opts.Recommend.Mode = mode
	}
	p, err := pipeline.New(opts, r.logger)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	seed := r.cfg.Runner.DefaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}
	return p, seed, nil
}

func (r *Runner) execute(ctx context.Context, p *pipeline.Pipeline, run *store.Run, seed int64) (*pipeline.Result, error) {
	records, err := r.store.ListRecords(ctx, run.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	records = append([]store.Record(nil), records...)
	run.RecordCount = len(records)

	r.publish(hermes.SubjectRunStarted(run.ID.String()), hermes.RunStartedEvent{
		RunID:       run.ID.String(),
		DatasetID:   run.DatasetID,
		Seed:        seed,
		RecordCount: run.RecordCount,
	})
	r.logger.Info("run started", "run_id", run.ID, "dataset_id", run.DatasetID, "records", run.RecordCount, "seed", seed)

	return p.Run(ctx, records, rand.New(rand.NewSource(seed)))
}

// register makes runID the dataset's in-flight run, superseding any other.
func (r *Runner) register(datasetID string, runID uuid.UUID, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.inflight[datasetID]; ok {
		r.logger.Info("superseding run", "dataset_id", datasetID, "run_id", prev.runID, "superseded_by", runID)
		prev.cancel(errSuperseded)
	}
	r.inflight[datasetID] = &inflight{runID: runID, cancel: cancel}
	r.stats.Running++
}

// release deregisters runID and reports whether it was superseded. The check
// happens under the same lock register cancels under, so a run either sees
// its successor or finishes before the successor exists.
func (r *Runner) release(ctx context.Context, datasetID string, runID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.inflight[datasetID]; ok && cur.runID == runID {
		delete(r.inflight, datasetID)
	}
	r.stats.Running--
	return errors.Is(context.Cause(ctx), errSuperseded)
}

func (r *Runner) finish(run *store.Run, res *pipeline.Result, d time.Duration) {
	id := run.ID.String()
	r.metrics.ObserveRun(string(run.Status), d)

	r.mu.Lock()
	switch run.Status {
	case store.RunStatusCompleted:
		r.stats.Completed++
	case store.RunStatusSuperseded:
		r.stats.Superseded++
	case store.RunStatusFailed:
		r.stats.Failed++
	}
	r.mu.Unlock()

	switch run.Status {
	case store.RunStatusCompleted:
		paretoCount := 0
		for _, ok := range res.Pareto {
			if ok {
				paretoCount++
			}
		}
		r.metrics.ParetoSize.Set(float64(paretoCount))
		r.metrics.SelectedK.Set(float64(res.Clustering.K))
		r.publish(hermes.SubjectRunCompleted(id), hermes.RunCompletedEvent{
			RunID:       id,
			DatasetID:   run.DatasetID,
			RecordCount: run.RecordCount,
			BestK:       res.Clustering.K,
			ParetoCount: paretoCount,
			DurationMs:  d.Milliseconds(),
			Top:         topLabels(res.Recommendations, 3),
		})
		r.logger.Info("run completed", "run_id", id, "dataset_id", run.DatasetID, "k", res.Clustering.K, "pareto", paretoCount, "duration", d)

	case store.RunStatusSuperseded:
		var by string
		r.mu.Lock()
		if cur, ok := r.inflight[run.DatasetID]; ok {
			by = cur.runID.String()
		}
		r.mu.Unlock()
		r.publish(hermes.SubjectRunSuperseded(id), hermes.RunSupersededEvent{
			RunID:        id,
			DatasetID:    run.DatasetID,
			SupersededBy: by,
		})
		r.logger.Info("run superseded", "run_id", id, "dataset_id", run.DatasetID)

	case store.RunStatusFailed:
		r.publish(hermes.SubjectRunFailed(id), hermes.RunFailedEvent{
			RunID:     id,
			DatasetID: run.DatasetID,
			Error:     run.Error,
		})
		r.logger.Warn("run failed", "run_id", id, "dataset_id", run.DatasetID, "error", run.Error)
	}
}

func (r *Runner) publish(subject string, data interface{}) {
	if r.hermes == nil {
		return
	}
	err := r.hermes.Publish(subject, data)
	r.metrics.ObservePublish(err)
	if err != nil {
		r.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

// Stats returns a snapshot of run counters since start.
func (r *Runner) Stats() hermes.StatsEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Timestamp = time.Now().UTC()
	return s
}

func (r *Runner) statsLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.publish(hermes.SubjectRunStats, r.Stats())
		}
	}
}

func topLabels(set scoring.RecommendationSet, n int) []string {
	list := set.Ranked
	if set.Mode == scoring.ModeCategorized {
		list = set.Balanced
	}
	var out []string
	for _, rec := range list {
		if len(out) == n {
			break
		}
		label := rec.Brand
		if label == "" {
			label = scoring.CategoryKey(rec.Category)
		}
		out = append(out, label)
	}
	return out
}
