package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aqi-estimator/internal/modules/airquality/types"
)

//go:embed sql/insert-upload.sql
var insertUploadSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/insert-chart.sql
var insertChartSQL string

//go:embed sql/get-upload.sql
var getUploadSQL string

//go:embed sql/list-uploads.sql
var listUploadsSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/get-charts.sql
var getChartsSQL string

//go:embed sql/delete-expired.sql
var deleteExpiredSQL string

// ErrNotFound is returned for unknown and expired uploads alike.
var ErrNotFound = errors.New("upload not found")

// Fixed-width UTC layout so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type UploadRepository interface {
	CreateUpload(ctx context.Context, upload types.Upload, readings []types.Reading, charts map[string]json.RawMessage) error
	GetUpload(ctx context.Context, id string, now time.Time) (types.Upload, error)
	ListUploads(ctx context.Context, now time.Time, limit int) ([]types.Upload, error)
	GetReadings(ctx context.Context, id string, now time.Time, limit int, offset int) ([]types.Reading, error)
	GetCharts(ctx context.Context, id string, now time.Time) (map[string]json.RawMessage, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) UploadRepository {
	return &repositoryImpl{db: db}
}

// CreateUpload stores an upload with its readings and charts atomically.
func (r *repositoryImpl) CreateUpload(ctx context.Context, upload types.Upload, readings []types.Reading, charts map[string]json.RawMessage) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "rollback upload", "upload_id", upload.ID, "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, insertUploadSQL,
		upload.ID,
		upload.Source,
		upload.Filename,
		formatTime(upload.CreatedAt),
		formatTime(upload.ExpiresAt),
		upload.ReadingCount,
		upload.AltitudeCount,
	); err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}

	if len(readings) > 0 {
		stmt, prepErr := tx.PrepareContext(ctx, insertReadingSQL)
		if prepErr != nil {
			err = prepErr
			return fmt.Errorf("prepare reading insert: %w", err)
		}
		defer func() {
			if closeErr := stmt.Close(); closeErr != nil {
				slog.ErrorContext(ctx, "close reading statement", "error", closeErr)
			}
		}()
		for i, rd := range readings {
			if _, err = stmt.ExecContext(ctx,
				upload.ID, i,
				rd.Altitude, rd.Location, rd.Windspeed, rd.Temperature, rd.Timestamp,
				rd.Time, rd.CO, rd.H2, rd.Dust,
			); err != nil {
				return fmt.Errorf("insert reading %d: %w", i, err)
			}
		}
	}

	for name, spec := range charts {
		if _, err = tx.ExecContext(ctx, insertChartSQL, upload.ID, name, string(spec)); err != nil {
			return fmt.Errorf("insert chart %s: %w", name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetUpload(ctx context.Context, id string, now time.Time) (types.Upload, error) {
	u, err := scanUpload(r.db.QueryRowContext(ctx, getUploadSQL, id, formatTime(now)))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Upload{}, ErrNotFound
	}
	if err != nil {
		return types.Upload{}, err
	}
	return u, nil
}

// ListUploads returns live uploads, newest first.
func (r *repositoryImpl) ListUploads(ctx context.Context, now time.Time, limit int) ([]types.Upload, error) {
	rows, err := r.db.QueryContext(ctx, listUploadsSQL, formatTime(now), limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close uploads rows", "error", err)
		}
	}()
	out := []types.Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetReadings returns a page of an upload's readings in log order.
func (r *repositoryImpl) GetReadings(ctx context.Context, id string, now time.Time, limit int, offset int) ([]types.Reading, error) {
	if _, err := r.GetUpload(ctx, id, now); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()
	out := []types.Reading{}
	for rows.Next() {
		var rd types.Reading
		if err := rows.Scan(
			&rd.Altitude, &rd.Location, &rd.Windspeed, &rd.Temperature, &rd.Timestamp,
			&rd.Time, &rd.CO, &rd.H2, &rd.Dust,
		); err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

// GetCharts returns the stored chart specs keyed by chart name.
func (r *repositoryImpl) GetCharts(ctx context.Context, id string, now time.Time) (map[string]json.RawMessage, error) {
	if _, err := r.GetUpload(ctx, id, now); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, getChartsSQL, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close charts rows", "error", err)
		}
	}()
	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var name, spec string
		if err := rows.Scan(&name, &spec); err != nil {
			return nil, err
		}
		out[name] = json.RawMessage(spec)
	}
	return out, rows.Err()
}

// DeleteExpired removes uploads whose TTL has passed; readings and charts
// go with them through the foreign key cascade.
func (r *repositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredSQL, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired uploads: %w", err)
	}
	return res.RowsAffected()
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (types.Upload, error) {
	var (
		u                  types.Upload
		created, expiresAt string
	)
	if err := row.Scan(&u.ID, &u.Source, &u.Filename, &created, &expiresAt, &u.ReadingCount, &u.AltitudeCount); err != nil {
		return types.Upload{}, err
	}
	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return types.Upload{}, err
	}
	if u.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return types.Upload{}, err
	}
	return u, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w; RFC3339Nano: %w", s, err, err2)
		}
	}
	return t.UTC(), nil
}
