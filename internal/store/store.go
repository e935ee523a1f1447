package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is the canonical product/brand-year row handed to the pipeline.
// Optional numeric fields are nil when the source did not carry a usable value.
type Record struct {
	Category  string   `json:"category"`
	Brand     string   `json:"brand,omitempty"`
	Country   string   `json:"country,omitempty"`
	Year      int      `json:"year,omitempty"`
	Carbon    *float64 `json:"carbon,omitempty"`
	Water     *float64 `json:"water,omitempty"`
	Waste     *float64 `json:"waste,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Rating    string   `json:"rating,omitempty"`
	Recycling string   `json:"recycling,omitempty"`
	EcoFlag   string   `json:"eco_flag,omitempty"`
}

type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusSuperseded RunStatus = "superseded"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one pipeline invocation over a dataset. Result holds the encoded
// pipeline output and is only set on completed runs.
type Run struct {
	ID          uuid.UUID       `json:"run_id"`
	DatasetID   string          `json:"dataset_id"`
	Status      RunStatus       `json:"status"`
	Seed        int64           `json:"seed"`
	RecordCount int             `json:"record_count"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type Store interface {
	// ReplaceRecords swaps the dataset's records for the given slice.
	ReplaceRecords(ctx context.Context, datasetID string, records []Record) error
	ListRecords(ctx context.Context, datasetID string) ([]Record, error)

	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	LatestRun(ctx context.Context, datasetID string) (*Run, error)

	Close() error
}
