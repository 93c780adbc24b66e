package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/rewardgraph/internal/domain"
)

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	insertDatasetSQL = `INSERT INTO datasets (id, name, content, row_count, dropped_rows, has_timestamps, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectDatasetSQL = `SELECT id, name, row_count, dropped_rows, has_timestamps, created_at
FROM datasets WHERE id = $1`

	selectContentSQL = `SELECT content FROM datasets WHERE id = $1`

	listDatasetsSQL = `SELECT id, name, row_count, dropped_rows, has_timestamps, created_at
FROM datasets ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	deleteDatasetSQL = `DELETE FROM datasets WHERE id = $1`
)

// DatasetRepository implements usecase.DatasetRepository.
type DatasetRepository struct {
	db      dbtx
	retrier *Retrier
}

// NewDatasetRepository creates a new DatasetRepository. retrier may be nil.
func NewDatasetRepository(db dbtx, retrier *Retrier) *DatasetRepository {
	return &DatasetRepository{db: db, retrier: retrier}
}

// Create stores a dataset together with its raw content.
func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.Dataset) error {
	return r.retry(ctx, func() error {
		_, err := r.db.Exec(ctx, insertDatasetSQL,
			dataset.ID,
			dataset.Name,
			dataset.Content,
			dataset.RowCount,
			dataset.DroppedRows,
			dataset.HasTimestamps,
			dataset.CreatedAt,
		)
		return err
	})
}

// GetByID returns dataset metadata without the raw content.
func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	dataset, err := scanDataset(r.db.QueryRow(ctx, selectDatasetSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, err
	}

	return dataset, nil
}

// GetContent returns the raw uploaded bytes of a dataset.
func (r *DatasetRepository) GetContent(ctx context.Context, id string) ([]byte, error) {
	var content []byte
	if err := r.db.QueryRow(ctx, selectContentSQL, id).Scan(&content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, err
	}

	return content, nil
}

// List returns datasets, newest first.
func (r *DatasetRepository) List(ctx context.Context, limit, offset int) ([]*domain.Dataset, error) {
	rows, err := r.db.Query(ctx, listDatasetsSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := make([]*domain.Dataset, 0, limit)
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	return datasets, nil
}

// Delete removes a dataset.
func (r *DatasetRepository) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := r.retry(ctx, func() error {
		var err error
		tag, err = r.db.Exec(ctx, deleteDatasetSQL, id)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrDatasetNotFound
	}

	return nil
}

func (r *DatasetRepository) retry(ctx context.Context, operation func() error) error {
	if r.retrier == nil {
		return operation()
	}
	return r.retrier.Retry(ctx, operation)
}

func scanDataset(row pgx.Row) (*domain.Dataset, error) {
	var d domain.Dataset
	if err := row.Scan(&d.ID, &d.Name, &d.RowCount, &d.DroppedRows, &d.HasTimestamps, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
