package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stackcanvas/engine/internal/api/types"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

// writeAppError derives the HTTP status from the error code.
func writeAppError(w http.ResponseWriter, err error) {
	writeError(w, types.StatusFromError(err), err)
}

func writeInvalid(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, appErr.New(appErr.CodeInvalid, msg))
}

// decodeBody decodes a JSON request body into dst and reports a client
// error on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeInvalid(w, "invalid json")
		return false
	}
	return true
}
