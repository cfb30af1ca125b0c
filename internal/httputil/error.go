package httputil

import (
	"log/slog"
	"net/http"
)

// Error writes msg as a plain-text body. Server errors are logged at error
// level, everything else as a warning.
func Error(w http.ResponseWriter, status int, msg string, err error) {
	attrs := []any{"status", status, "message", msg}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}
	http.Error(w, msg, status)
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	Error(w, http.StatusInternalServerError, msg, err)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	Error(w, http.StatusBadRequest, msg, err)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	Error(w, http.StatusNotFound, msg, err)
}
