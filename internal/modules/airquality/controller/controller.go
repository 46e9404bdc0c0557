package controller

import (
	"net/http"

	"aqi-estimator/internal/modules/airquality/service"
)

type UploadController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type uploadControllerImpl struct {
	service        service.UploadService
	maxUploadBytes int64
}

func NewUploadController(svc service.UploadService, maxUploadBytes int64) UploadController {
	return &uploadControllerImpl{service: svc, maxUploadBytes: maxUploadBytes}
}

func (c *uploadControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("POST /upload", c.handleUpload)
	mux.HandleFunc("GET /result", c.handleResult)
	mux.HandleFunc("GET /get_graphs", c.handleGetGraphs)

	mux.HandleFunc("GET /api/v1/uploads", c.handleListUploads)
	mux.HandleFunc("GET /api/v1/uploads/{id}", c.handleGetUpload)
	mux.HandleFunc("GET /api/v1/uploads/{id}/charts", c.handleUploadCharts)
	mux.HandleFunc("GET /api/v1/uploads/{id}/readings", c.handleUploadReadings)
	mux.HandleFunc("POST /api/v1/charts", c.handleBuildCharts)
}
