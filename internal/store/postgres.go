package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the pool can still reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ReplaceRecords(ctx context.Context, datasetID string, records []Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM evergreen_records WHERE dataset_id = $1`, datasetID); err != nil {
		return fmt.Errorf("clear dataset: %w", err)
	}

	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{
			datasetID, i, r.Category, r.Brand, r.Country, r.Year,
			r.Carbon, r.Water, r.Waste, r.Price,
			r.Rating, r.Recycling, r.EcoFlag,
		}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"evergreen_records"},
		[]string{"dataset_id", "position", "category", "brand", "country", "year",
			"carbon", "water", "waste", "price", "rating", "recycling", "eco_flag"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy records: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListRecords(ctx context.Context, datasetID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, brand, country, year, carbon, water, waste, price, rating, recycling, eco_flag
		FROM evergreen_records WHERE dataset_id = $1
		ORDER BY position ASC`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.Category, &r.Brand, &r.Country, &r.Year,
			&r.Carbon, &r.Water, &r.Waste, &r.Price,
			&r.Rating, &r.Recycling, &r.EcoFlag,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

const runColumns = `run_id, dataset_id, status, seed, record_count, result, error, created_at, completed_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO evergreen_runs (dataset_id, status, seed, record_count)
		VALUES ($1, $2, $3, $4)
		RETURNING run_id, created_at`,
		run.DatasetID, run.Status, run.Seed, run.RecordCount,
	).Scan(&run.ID, &run.CreatedAt)
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	var result []byte
	if len(run.Result) > 0 {
		result = run.Result
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE evergreen_runs SET
			status = $2, record_count = $3, result = $4, error = $5, completed_at = $6
		WHERE run_id = $1`,
		run.ID, run.Status, run.RecordCount, result, run.Error, run.CompletedAt,
	)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM evergreen_runs WHERE run_id = $1`, id)
	return scanRun(row)
}

func (s *PostgresStore) LatestRun(ctx context.Context, datasetID string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM evergreen_runs WHERE dataset_id = $1 AND status = 'completed'
		ORDER BY created_at DESC LIMIT 1`, datasetID)
	return scanRun(row)
}

func scanRun(row pgx.Row) (*Run, error) {
	r := &Run{}
	var result []byte
	var runError sql.NullString
	err := row.Scan(
		&r.ID, &r.DatasetID, &r.Status, &r.Seed, &r.RecordCount,
		&result, &runError, &r.CreatedAt, &r.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if runError.Valid {
		r.Error = runError.String
	}
	if result != nil {
		r.Result = json.RawMessage(result)
	}
	return r, nil
}
