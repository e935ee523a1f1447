package hermes

import "time"

// DatasetIngestEvent replaces a dataset's records and triggers a run.
type DatasetIngestEvent struct {
	Records []map[string]interface{} `json:"records"`
	Seed    *int64                   `json:"seed,omitempty"`
}

type RunStartedEvent struct {
	RunID       string `json:"run_id"`
	DatasetID   string `json:"dataset_id"`
	Seed        int64  `json:"seed"`
	RecordCount int    `json:"record_count"`
}

type RunCompletedEvent struct {
	RunID       string   `json:"run_id"`
	DatasetID   string   `json:"dataset_id"`
	RecordCount int      `json:"record_count"`
	BestK       int      `json:"best_k"`
	ParetoCount int      `json:"pareto_count"`
	DurationMs  int64    `json:"duration_ms"`
	Top         []string `json:"top,omitempty"`
}

type RunSupersededEvent struct {
	RunID        string `json:"run_id"`
	DatasetID    string `json:"dataset_id"`
	SupersededBy string `json:"superseded_by,omitempty"`
}

type RunFailedEvent struct {
	RunID     string `json:"run_id"`
	DatasetID string `json:"dataset_id"`
	Error     string `json:"error"`
}

type StatsEvent struct {
	Running    int       `json:"running"`
	Completed  int       `json:"completed"`
	Superseded int       `json:"superseded"`
	Failed     int       `json:"failed"`
	Timestamp  time.Time `json:"timestamp"`
}
