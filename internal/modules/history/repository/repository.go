package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"thermopanel/internal/modules/history/types"
)

//go:embed sql/insert-sample.sql
var insertSampleSQL string

//go:embed sql/get-latest-sample.sql
var getLatestSampleSQL string

//go:embed sql/get-samples.sql
var getSamplesSQL string

//go:embed sql/delete-samples-before.sql
var deleteSamplesBeforeSQL string

type HistoryRepository interface {
	InsertSample(ctx context.Context, s types.Sample) error
	// Latest returns nil when nothing has been recorded.
	Latest(ctx context.Context) (*types.Sample, error)
	// List returns samples in [from, to], newest first. Zero bounds are open.
	List(ctx context.Context, from, to time.Time, limit int) ([]types.Sample, error)
	PruneBefore(ctx context.Context, t time.Time) (int64, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) HistoryRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertSample(ctx context.Context, s types.Sample) error {
	_, err := r.db.ExecContext(ctx, insertSampleSQL,
		int64(s.Seq), s.Time.UnixMilli(),
		s.Temperature, s.Humidity, s.RunningTime, s.TargetTemperature)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (r *repositoryImpl) Latest(ctx context.Context) (*types.Sample, error) {
	s, err := scanSample(r.db.QueryRowContext(ctx, getLatestSampleSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repositoryImpl) List(ctx context.Context, from, to time.Time, limit int) ([]types.Sample, error) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !from.IsZero() {
		lo = from.UnixMilli()
	}
	if !to.IsZero() {
		hi = to.UnixMilli()
	}
	rows, err := r.db.QueryContext(ctx, getSamplesSQL, lo, hi, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close samples rows", "error", err)
		}
	}()

	out := []types.Sample{}
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteSamplesBeforeSQL, t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune samples: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(row scanner) (types.Sample, error) {
	var (
		s   types.Sample
		seq int64
		ms  int64
	)
	if err := row.Scan(&seq, &ms, &s.Temperature, &s.Humidity, &s.RunningTime, &s.TargetTemperature); err != nil {
		return types.Sample{}, err
	}
	s.Seq = uint64(seq)
	s.Time = time.UnixMilli(ms).UTC()
	return s, nil
}
