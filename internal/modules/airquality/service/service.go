package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aqi-estimator/internal/metrics"
	"aqi-estimator/internal/modules/airquality/charts"
	"aqi-estimator/internal/modules/airquality/parser"
	"aqi-estimator/internal/modules/airquality/repository"
	"aqi-estimator/internal/modules/airquality/types"
)

// ErrEmptyDataset is returned when empty logs are rejected and a log has no
// reading lines.
var ErrEmptyDataset = errors.New("log contains no readings")

// Channels a log can arrive through. Used as the metrics "source" label.
const (
	ChannelHTTP = "http"
	ChannelAPI  = "api"
	ChannelMQTT = "mqtt"
)

// Input is one raw sensor log handed to Process.
type Input struct {
	Channel  string
	Source   string
	Filename string
	Content  string
}

type Options struct {
	TTL         time.Duration
	RejectEmpty bool
	Charts      charts.Options
}

// UploadService is what the HTTP controller needs.
type UploadService interface {
	Process(ctx context.Context, in Input) (types.Upload, error)
	BuildCharts(ctx context.Context, content string) (charts.Charts, error)
	Upload(ctx context.Context, id string) (types.Upload, error)
	List(ctx context.Context, limit int) ([]types.Upload, error)
	Charts(ctx context.Context, id string) (map[string]json.RawMessage, error)
	Readings(ctx context.Context, id string, limit, offset int) ([]types.Reading, error)
	Ping(ctx context.Context) error
}

type Service struct {
	repo        repository.UploadRepository
	builder     *charts.Builder
	metrics     *metrics.Metrics
	logger      *slog.Logger
	ttl         time.Duration
	rejectEmpty bool

	now   func() time.Time
	newID func() string
}

func NewService(repo repository.UploadRepository, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		builder:     charts.NewBuilder(opts.Charts),
		metrics:     m,
		logger:      logger,
		ttl:         opts.TTL,
		rejectEmpty: opts.RejectEmpty,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// Process parses a log, builds its charts and stores both under a new
// upload ID that expires after the configured TTL.
func (s *Service) Process(ctx context.Context, in Input) (types.Upload, error) {
	start := time.Now()
	channel := in.Channel
	if channel == "" {
		channel = ChannelHTTP
	}
	outcome := metrics.OutcomeSuccess
	defer func() {
		s.metrics.UploadsTotal.WithLabelValues(channel, outcome).Inc()
		s.metrics.ProcessDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())
	}()

	readings, figs, err := s.build(in.Content)
	if err != nil {
		outcome = outcomeFor(err)
		return types.Upload{}, err
	}

	encoded, err := figs.Encode()
	if err != nil {
		outcome = metrics.OutcomeStorageError
		return types.Upload{}, err
	}

	created := s.now()
	upload := types.Upload{
		ID:            s.newID(),
		Source:        in.Source,
		Filename:      in.Filename,
		CreatedAt:     created,
		ExpiresAt:     created.Add(s.ttl),
		ReadingCount:  len(readings),
		AltitudeCount: countAltitudes(readings),
	}
	if err := s.repo.CreateUpload(ctx, upload, readings, encoded); err != nil {
		outcome = metrics.OutcomeStorageError
		return types.Upload{}, fmt.Errorf("store upload: %w", err)
	}

	s.metrics.ReadingsParsedTotal.WithLabelValues(channel).Add(float64(len(readings)))
	s.logger.InfoContext(ctx, "upload processed",
		"upload_id", upload.ID,
		"channel", channel,
		"source", upload.Source,
		"filename", upload.Filename,
		"readings", upload.ReadingCount,
		"altitudes", upload.AltitudeCount,
	)
	return upload, nil
}

// BuildCharts parses content and returns its charts without storing anything.
func (s *Service) BuildCharts(ctx context.Context, content string) (charts.Charts, error) {
	start := time.Now()
	outcome := metrics.OutcomeSuccess
	defer func() {
		s.metrics.UploadsTotal.WithLabelValues(ChannelAPI, outcome).Inc()
		s.metrics.ProcessDuration.WithLabelValues(ChannelAPI).Observe(time.Since(start).Seconds())
	}()

	readings, figs, err := s.build(content)
	if err != nil {
		outcome = outcomeFor(err)
		return nil, err
	}
	s.metrics.ReadingsParsedTotal.WithLabelValues(ChannelAPI).Add(float64(len(readings)))
	return figs, nil
}

func (s *Service) build(content string) ([]types.Reading, charts.Charts, error) {
	readings, err := parser.Parse(content)
	if err != nil {
		return nil, nil, err
	}
	if len(readings) == 0 && s.rejectEmpty {
		return nil, nil, ErrEmptyDataset
	}
	return readings, s.builder.Build(readings), nil
}

func (s *Service) Upload(ctx context.Context, id string) (types.Upload, error) {
	return s.repo.GetUpload(ctx, id, s.now())
}

func (s *Service) List(ctx context.Context, limit int) ([]types.Upload, error) {
	return s.repo.ListUploads(ctx, s.now(), limit)
}

func (s *Service) Charts(ctx context.Context, id string) (map[string]json.RawMessage, error) {
	return s.repo.GetCharts(ctx, id, s.now())
}

func (s *Service) Readings(ctx context.Context, id string, limit, offset int) ([]types.Reading, error) {
	return s.repo.GetReadings(ctx, id, s.now(), limit, offset)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func outcomeFor(err error) string {
	var pe *parser.ParseError
	switch {
	case errors.As(err, &pe):
		return metrics.OutcomeParseError
	case errors.Is(err, ErrEmptyDataset):
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeInvalid
	}
}

// countAltitudes counts distinct altitudes by exact float equality.
func countAltitudes(readings []types.Reading) int {
	seen := make(map[float64]struct{})
	for _, r := range readings {
		seen[r.Altitude] = struct{}{}
	}
	return len(seen)
}
