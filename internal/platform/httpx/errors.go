// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/comanda-pos/comanda-pos/internal/platform/db"
)

// Sentinel errors shared across handler packages.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps cross-cutting errors to HTTP responses. Handlers map
// their domain-specific errors first and fall back to this.
func RespondError(w http.ResponseWriter, err error) {
	var storageErr *db.StorageError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation), errors.As(err, &validationErrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &storageErr):
		w.Header().Set("Retry-After", "1")
		Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "transaction failed, safe to retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
