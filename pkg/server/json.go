package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

// MaxBodyBytes limits JSON request bodies.
const MaxBodyBytes = 1 << 20

type errorBody struct {
	Detail string `json:"detail"`
}

// decodeJSON reads exactly one JSON value into dst. Unknown fields, trailing
// data and oversized bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return feature.Validationf("body", "request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return feature.Validationf("body", "request body must not be empty")
		case errors.Is(err, feature.ErrValidation):
			return err
		default:
			return feature.Validationf("body", "invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return feature.Validationf("body", "request body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a {"detail": ...} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)

	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

func classify(err error) (int, string) {
	var unreg *feature.UnregisteredFeatureError
	if errors.As(err, &unreg) {
		return http.StatusNotFound, unreg.Error()
	}

	var fe *feature.Error
	hasMessage := errors.As(err, &fe) && fe.Message != ""

	switch {
	case errors.Is(err, feature.ErrValidation), errors.Is(err, feature.ErrAlreadyExists):
		if hasMessage {
			return http.StatusBadRequest, fe.Message
		}
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, feature.ErrNotFound):
		if hasMessage {
			return http.StatusNotFound, fe.Message
		}
		return http.StatusNotFound, "Not found"
	case errors.Is(err, feature.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Service unavailable, retry later"
	case errors.Is(err, feature.ErrInvalidEntry):
		return http.StatusInternalServerError, "Stored feature value is corrupt"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not Found"})
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: fmt.Sprintf("Method %s not allowed", r.Method)})
}
