package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors handlers may map their domain failures onto.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// RespondError maps generic sentinel errors to envelope responses.
// Typed authorization failures are mapped at their own boundaries; this
// covers the long tail of handler errors.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		Error(w, http.StatusConflict, CodeDuplicate, err.Error())
	case errors.Is(err, ErrValidation):
		Error(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, ErrForbidden):
		Error(w, http.StatusForbidden, CodeAccessDenied, err.Error())
	default:
		Error(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
