package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON encodes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("response encode failed", "status", status, "error", err.Error())
	}
}

func OK(w http.ResponseWriter, data any)      { JSON(w, http.StatusOK, data) }
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, data) }
func NoContent(w http.ResponseWriter)         { w.WriteHeader(http.StatusNoContent) }

// InternalError logs err and answers a bare 500; the cause stays server side.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("request failed", "error", err.Error())
	JSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// Decode fills dst from a JSON body. A missing body is accepted and leaves
// dst as is. On malformed JSON it writes a validation 400 and returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		JSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid JSON: " + err.Error(),
			Code:  string(apperr.KindValidation),
		})
		return false
	}
	return true
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindInvalidTransition, apperr.KindDuplicateEnrollment,
		apperr.KindSequenceNotActive, apperr.KindConcurrentModification:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Fail writes err as an error envelope. Typed engine errors keep their
// message and code; anything else is a logged 500.
func Fail(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == "" {
		InternalError(w, err)
		return
	}
	JSON(w, StatusFor(kind), ErrorResponse{Error: apperr.Message(err), Code: string(kind)})
}
