package api

import (
	"context"
	"errors"
	"net/http"

	"IdxLens/internal/domain/models"
	domrepo "IdxLens/internal/domain/repository"
	xhttp "IdxLens/pkg/http"
)

// toAppError maps domain errors onto HTTP statuses. Anything unrecognised
// is left for AppErrorResponse to turn into a 500.
func toAppError(err error) error {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var (
		ve  *models.ValidationError
		ide *models.InsufficientDataError
		ce  *models.ConvergenceError
	)
	switch {
	case errors.As(err, &ve):
		return xhttp.NewAppError("ERR_VALIDATION", ve.Field, err.Error(), http.StatusBadRequest).WithError(err)
	case errors.As(err, &ide):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", err.Error()).
			WithParam("required", ide.Required).
			WithParam("actual", ide.Actual).
			WithError(err)
	case errors.As(err, &ce):
		return xhttp.UnprocessableError("ERR_CONVERGENCE", err.Error()).
			WithParam("condition_number", ce.ConditionNumber).
			WithError(err)
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrUnknownSymbol):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	}
	return err
}

func statusOf(err error) int {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
