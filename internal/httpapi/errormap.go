package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/kafkagov/controlplane/internal/apperrors"
)

// statusByKind is the typed dispatch table spec.md §7 calls for, replacing
// the source's decorator-based exception translation (REDESIGN FLAGS).
var statusByKind = map[apperrors.Kind]int{
	apperrors.KindInvariant:      http.StatusUnprocessableEntity,
	apperrors.KindPolicyViolation: http.StatusUnprocessableEntity,
	apperrors.KindPolicyConfig:   http.StatusUnprocessableEntity,
	apperrors.KindNotFound:       http.StatusNotFound,
	apperrors.KindInactive:       http.StatusConflict,
	apperrors.KindStale:          http.StatusConflict,
	apperrors.KindBackend:        http.StatusBadGateway,
	apperrors.KindMetadataStore:  http.StatusInternalServerError,
	apperrors.KindRollback:       http.StatusInternalServerError,
}

// errorResponse is the JSON body every error path renders.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps err to a status code via its apperrors.Kind and writes a
// JSON error body, per spec.md §7's status code conventions.
func writeError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
