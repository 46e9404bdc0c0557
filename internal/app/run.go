package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"aqi-estimator/internal/config"
	db "aqi-estimator/internal/db"
	httpapi "aqi-estimator/internal/httpapi"
	"aqi-estimator/internal/metrics"
	"aqi-estimator/internal/migrate"
	airquality "aqi-estimator/internal/modules/airquality"
	"aqi-estimator/internal/modules/airquality/charts"
	"aqi-estimator/internal/modules/airquality/service"
	aqviews "aqi-estimator/internal/modules/airquality/views"
	"aqi-estimator/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"sqliteLogSQL", cfg.SQLiteLogSQL,
		"maxUploadBytes", cfg.MaxUploadBytes,
		"uploadTTL", cfg.UploadTTL,
		"uploadPruneEvery", cfg.UploadPruneEvery,
		"rejectEmptyUploads", cfg.RejectEmptyUploads,
		"chartsConfig", cfg.ChartsConfig,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	chartOpts, err := charts.LoadOptions(cfg.ChartsConfig)
	if err != nil {
		return err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	slog.Info("database ready")

	if err := aqviews.LoadTemplates(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	mux := httpapi.NewMux(pingDB(dbConn.PingContext), reg)
	uploads := airquality.RegisterFeature(mux, dbConn, service.Options{
		TTL:         cfg.UploadTTL,
		RejectEmpty: cfg.RejectEmptyUploads,
		Charts:      chartOpts,
	}, cfg.MaxUploadBytes, m, slog.Default())

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go uploads.RunJanitor(janitorCtx, cfg.UploadPruneEvery)

	var mqttSubscriber *mqtt.Subscriber
	if cfg.MQTTEnabled() {
		// Handler goes in before Connect so the OnConnect subscription never
		// drops messages the broker delivers right after CONNACK.
		mqttSubscriber = mqtt.NewSubscriber(cfg, slog.Default(), m)
		uploads.Register(mqttSubscriber)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = mqttSubscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing, client keeps retrying)", "error", err)
		}
	} else {
		slog.Info("mqtt disabled (MQTT_BROKER not set)")
	}

	srv := httpapi.NewServer(cfg, mux, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mqttSubscriber != nil {
		slog.Info("mqtt disconnecting")
		mqttSubscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

type pingDB func(ctx context.Context) error

func (p pingDB) Ping(ctx context.Context) error { return p(ctx) }
