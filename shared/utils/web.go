package utils

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sawatantra/api/shared/errors"
	"github.com/sawatantra/api/shared/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteErrorAndStatusCode maps err to an HTTP response. Errors carrying a status
// code are shown as is, everything else is logged and reported as a 500.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	var withCode *errors.ErrorWithStatusCode
	if stderrors.As(err, &withCode) {
		http.Error(w, withCode.Message, withCode.StatusCode)
		return
	}
	var pe *errors.PersistenceError
	if stderrors.As(err, &pe) {
		logger.Log.Error("persistence failure", "op", pe.Op, "error", pe.Err)
	} else {
		logger.Log.Error("unhandled error", "error", err)
	}
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := Decode(r, body); err != nil {
		return err
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("request validation failed", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}

func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("request body is not valid json", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	return nil
}

// ValidateVar runs a single validator tag against v, for path and query values.
func ValidateVar(v any, tag string) error {
	return validate.Var(v, tag)
}
