package httpapi

import (
	"net/http"
	"time"

	"aqi-estimator/internal/config"
	"aqi-estimator/internal/metrics"
)

func NewServer(cfg config.Config, mux *http.ServeMux, m *metrics.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(instrument(m, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
