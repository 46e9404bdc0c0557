package controller

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"unicode/utf8"

	"aqi-estimator/internal/modules/airquality/charts"
	"aqi-estimator/internal/modules/airquality/parser"
	"aqi-estimator/internal/modules/airquality/repository"
	"aqi-estimator/internal/modules/airquality/service"
	"aqi-estimator/internal/modules/airquality/types"
	"aqi-estimator/internal/modules/airquality/views"
	"aqi-estimator/internal/utils"
)

func (c *uploadControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	recent, err := c.service.List(r.Context(), recentOnIndex)
	if err != nil {
		slog.Error("index: list uploads failed", "error", err)
		recent = nil
	}
	data := &views.IndexData{MaxUploadBytes: c.maxUploadBytes, Recent: recent}
	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderIndex(out, data) }); err != nil {
		slog.Error("index template render failed", "error", err)
	}
}

func (c *uploadControllerImpl) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)

	if err := r.ParseMultipartForm(c.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("upload: remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		// A file input submitted without a selection arrives as an empty
		// form value rather than a file part.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			utils.WriteError(w, http.StatusBadRequest, msgNoSelectedFile)
			return
		}
		utils.WriteError(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer closeFile(file)
	if header.Filename == "" {
		utils.WriteError(w, http.StatusBadRequest, msgNoSelectedFile)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		slog.Error("upload: read file failed", "filename", header.Filename, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	if !utf8.Valid(content) {
		utils.WriteError(w, http.StatusBadRequest, msgInvalidFile)
		return
	}

	upload, err := c.service.Process(r.Context(), service.Input{
		Channel:  service.ChannelHTTP,
		Source:   service.ChannelHTTP,
		Filename: header.Filename,
		Content:  string(content),
	})
	if err != nil {
		writeServiceError(w, "upload", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "id": upload.ID})
}

func (c *uploadControllerImpl) handleResult(w http.ResponseWriter, r *http.Request) {
	id, err := uploadID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	upload, err := c.service.Upload(r.Context(), id)
	if err != nil {
		writeServiceError(w, "result", err)
		return
	}
	data := &views.ResultData{ID: id, Upload: &upload, ChartNames: charts.Names}
	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderResult(out, data) }); err != nil {
		slog.Error("result template render failed", "error", err)
	}
}

// handleGetGraphs returns the chart mapping the result page renders.
func (c *uploadControllerImpl) handleGetGraphs(w http.ResponseWriter, r *http.Request) {
	id, err := uploadID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.writeCharts(w, r, id)
}

func (c *uploadControllerImpl) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultListLimit, maxListLimit)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	uploads, err := c.service.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "list uploads", err)
		return
	}
	if uploads == nil {
		uploads = []types.Upload{}
	}
	utils.WriteJSON(w, http.StatusOK, uploads)
}

func (c *uploadControllerImpl) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing upload id")
		return
	}
	upload, err := c.service.Upload(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get upload", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, upload)
}

func (c *uploadControllerImpl) handleUploadCharts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing upload id")
		return
	}
	c.writeCharts(w, r, id)
}

func (c *uploadControllerImpl) handleUploadReadings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing upload id")
		return
	}
	limit, err := parseLimit(r, defaultReadingsLimit, maxReadingsLimit)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOffset(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	readings, err := c.service.Readings(r.Context(), id, limit, offset)
	if err != nil {
		writeServiceError(w, "get readings", err)
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

// handleBuildCharts turns a raw log body into charts without storing it.
func (c *uploadControllerImpl) handleBuildCharts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, c.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "log exceeds upload limit")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if !utf8.Valid(body) {
		utils.WriteError(w, http.StatusBadRequest, msgInvalidFile)
		return
	}
	figs, err := c.service.BuildCharts(r.Context(), string(body))
	if err != nil {
		writeServiceError(w, "build charts", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, figs)
}

func (c *uploadControllerImpl) writeCharts(w http.ResponseWriter, r *http.Request, id string) {
	figs, err := c.service.Charts(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get charts", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, figs)
}

// writeServiceError maps service and repository errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var pe *parser.ParseError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "upload not found or expired")
	case errors.As(err, &pe):
		utils.WriteError(w, http.StatusUnprocessableEntity, pe.Error())
	case errors.Is(err, service.ErrEmptyDataset):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error(op+" failed", "error", err)
		msg := err.Error()
		if op == "upload" {
			msg = "An error occurred while processing the file: " + msg
		}
		utils.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func closeFile(f multipart.File) {
	if err := f.Close(); err != nil {
		slog.Warn("upload: close file", "error", err)
	}
}
