package transport

import (
	"errors"
	"net/http"

	"farmstand/internal/middleware"
	"farmstand/internal/service"

	"go.uber.org/zap"
)

// respondWithServiceError maps catalog and cart errors onto HTTP statuses.
// Anything unrecognized is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, vErr.Message, map[string]interface{}{
			"validation_errors": []middleware.ValidationError{{Field: vErr.Field, Rule: vErr.Rule, Message: vErr.Message}},
		})
		return
	}

	var nf *service.NotFoundError
	switch {
	case errors.As(err, &nf):
		middleware.RespondWithError(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, service.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidCartID):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errOutOfStock):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
