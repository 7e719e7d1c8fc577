package httpapi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"maskd/pkg/types"
)

// writeError maps domain errors onto HTTP status codes and emits the
// JSON error payload.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case types.IsConfiguration(err):
		status = http.StatusBadRequest
	case types.IsStorage(err):
		status = http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
	case errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	}
	writeStatus(w, status, err.Error())
}

// writeStatus writes a consistent JSON error payload.
func writeStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": msg,
		"code":  status,
	})
}
