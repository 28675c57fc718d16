package api

import (
	"errors"
	"net/http"

	models "CreditRisk/internal/domain/models"
	"CreditRisk/internal/usecase"
	xhttp "CreditRisk/pkg/http"
	"CreditRisk/pkg/util"
)

// Error codes returned for rejected assessments.
const (
	ErrCodeOutOfRange       = "ERR_OUT_OF_RANGE"
	ErrCodeUnknownLabel     = "ERR_UNKNOWN_LABEL"
	ErrCodeUnknownCode      = "ERR_UNKNOWN_CODE"
	ErrCodeSchemaMismatch   = "ERR_SCHEMA_MISMATCH"
	ErrCodeInference        = "ERR_INFERENCE"
	ErrCodeModelUnavailable = "ERR_MODEL_UNAVAILABLE"
)

// failureError maps a submission failure onto the API error envelope.
func failureError(f *usecase.Failure) *xhttp.AppError {
	code, status := ErrCodeInference, http.StatusBadGateway
	switch f.Kind {
	case usecase.FailureOutOfRange:
		code, status = ErrCodeOutOfRange, http.StatusBadRequest
	case usecase.FailureUnknownLabel:
		code, status = ErrCodeUnknownLabel, http.StatusBadRequest
	case usecase.FailureUnknownCode:
		code, status = ErrCodeUnknownCode, http.StatusInternalServerError
	case usecase.FailureSchemaMismatch:
		code, status = ErrCodeSchemaMismatch, http.StatusInternalServerError
	case usecase.FailureUnavailable:
		code, status = ErrCodeModelUnavailable, http.StatusServiceUnavailable
	}

	field := ""
	if f.Field != "" {
		field = util.SnakeCase(string(f.Field))
	}
	appErr := xhttp.NewAppError(code, field, f.Message, status).WithError(f.Err)

	var oor *models.OutOfRangeError
	if errors.As(f.Err, &oor) {
		appErr.WithParam("min", oor.Min).WithParam("max", oor.Max).WithParam("value", oor.Value)
	}
	var unknown *models.UnknownLabelError
	if errors.As(f.Err, &unknown) {
		appErr.WithParam("label", unknown.Label)
	}
	return appErr
}
