package airquality

import (
	"database/sql"
	"log/slog"
	"net/http"

	"aqi-estimator/internal/metrics"
	"aqi-estimator/internal/modules/airquality/controller"
	"aqi-estimator/internal/modules/airquality/repository"
	"aqi-estimator/internal/modules/airquality/service"
)

// RegisterFeature wires the upload store, service and HTTP routes. The
// service is returned so the caller can run the janitor and attach MQTT.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, opts service.Options, maxUploadBytes int64, m *metrics.Metrics, logger *slog.Logger) *service.Service {
	uploadRepository := repository.NewRepository(db)
	uploadService := service.NewService(uploadRepository, opts, m, logger)
	uploadController := controller.NewUploadController(uploadService, maxUploadBytes)
	uploadController.RegisterRoutes(mux)
	return uploadService
}
