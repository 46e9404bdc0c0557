package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultListLimit     = 20
	maxListLimit         = 100
	defaultReadingsLimit = 500
	maxReadingsLimit     = 5000
	recentOnIndex        = 10
)

// Upload form error messages, kept verbatim for existing clients.
const (
	msgNoFilePart     = "No file part"
	msgNoSelectedFile = "No selected file"
	msgInvalidFile    = "Invalid file"
)

func parseLimit(r *http.Request, def, max int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > max {
		return 0, fmt.Errorf("'limit' must be <= %d", max)
	}
	return n, nil
}

func parseOffset(r *http.Request) (int, error) {
	s := r.URL.Query().Get("offset")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'offset' (expected integer)")
	}
	if n < 0 {
		return 0, errors.New("'offset' must be >= 0")
	}
	return n, nil
}

// uploadID reads the id query parameter used by the page routes.
func uploadID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		return "", errors.New("missing upload id")
	}
	return id, nil
}
