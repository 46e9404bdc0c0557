package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"status": "success"}
		WriteJSON(w, http.StatusOK, body)

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"id": "3f1c"}
		WriteJSON(w, http.StatusCreated, body)

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["id"] != "3f1c" {
			t.Errorf("body[id] = %q; want 3f1c", got["id"])
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	status := http.StatusBadRequest
	msg := "No selected file"
	WriteError(w, status, msg)

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
	}
	if w.Code != status {
		t.Errorf("Code = %d; want %d", w.Code, status)
	}

	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["error"] != http.StatusText(status) {
		t.Errorf("error = %q; want %q", got["error"], http.StatusText(status))
	}
	if got["message"] != msg {
		t.Errorf("message = %q; want %q", got["message"], msg)
	}
}

func TestWriteHTML(t *testing.T) {
	t.Run("writes rendered page", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := WriteHTML(w, func(out io.Writer) error {
			_, err := io.WriteString(out, "<!doctype html><p>charts</p>")
			return err
		})
		if err != nil {
			t.Fatalf("WriteHTML() = %v; want nil", err)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want 200", w.Code)
		}
		if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", got)
		}
		if w.Body.String() != "<!doctype html><p>charts</p>" {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("render failure becomes JSON 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		renderErr := errors.New("template not loaded")
		err := WriteHTML(w, func(out io.Writer) error {
			_, _ = io.WriteString(out, "<partial")
			return renderErr
		})
		if !errors.Is(err, renderErr) {
			t.Fatalf("WriteHTML() = %v; want %v", err, renderErr)
		}
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Code = %d; want 500", w.Code)
		}
		var got map[string]any
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["message"] != "failed to render page" {
			t.Errorf("message = %v", got["message"])
		}
	})
}
