package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"thermograph/internal/modules/store/types"
)

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

type ReadingRepository interface {
	GetReadings(ctx context.Context, from, to time.Time) ([]types.Reading, error)
	InsertReading(ctx context.Context, r types.Reading) error
	InsertReadings(ctx context.Context, rs []types.Reading) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ReadingRepository {
	return &repositoryImpl{db: db}
}

// GetReadings returns the readings whose UTC date lies in [from, to], both
// whole days, oldest first.
func (r *repositoryImpl) GetReadings(ctx context.Context, from, to time.Time) ([]types.Reading, error) {
	lo := from.Format(time.DateOnly)
	hi := to.AddDate(0, 0, 1).Format(time.DateOnly)
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var (
			rec types.Reading
			ts  string
		)
		if err := rows.Scan(&ts, &rec.Temperature, &rec.Humidity); err != nil {
			return nil, err
		}
		t, err := time.Parse(types.TimestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		rec.Timestamp = t
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertReading stores rec, replacing any reading with the same second.
func (r *repositoryImpl) InsertReading(ctx context.Context, rec types.Reading) error {
	if err := validate(rec); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, insertReadingSQL, tsString(rec.Timestamp), rec.Temperature, rec.Humidity); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// InsertReadings stores all of rs or none of them.
func (r *repositoryImpl) InsertReadings(ctx context.Context, rs []types.Reading) error {
	for i, rec := range rs {
		if err := validate(rec); err != nil {
			return fmt.Errorf("reading %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertReadingSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, rec := range rs {
		if _, err := stmt.ExecContext(ctx, tsString(rec.Timestamp), rec.Temperature, rec.Humidity); err != nil {
			return fmt.Errorf("insert reading %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func validate(rec types.Reading) error {
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if rec.Humidity < 0 || rec.Humidity > 100 {
		return fmt.Errorf("humidity out of range: %f (must be 0-100)", rec.Humidity)
	}
	return nil
}

func tsString(t time.Time) string {
	return t.UTC().Format(types.TimestampLayout)
}
