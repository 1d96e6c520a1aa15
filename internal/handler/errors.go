package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/pdfdoc"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/rubric"
	"github.com/iliyamo/script-review-portal/internal/service"
)

// fail maps a service or repository error onto a JSON response. Known
// sentinels keep their message; anything else is logged and reported as
// "failed to <action>" so storage details never reach the client.
func fail(c echo.Context, log *zap.Logger, action string, err error) error {
	var missing *rubric.MissingFieldsError
	if errors.As(err, &missing) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":   "missing required fields",
			"missing": missing.Fields,
		})
	}
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		fields := make([]string, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, fe.Field())
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fields", "fields": fields})
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrReviewLocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "failed to " + action + ": conflicting state"})
	case errors.Is(err, repository.ErrBlocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrJudgeUnavailable),
		errors.Is(err, service.ErrPagesNotOffered),
		errors.Is(err, service.ErrPageOutOfRange),
		errors.Is(err, rubric.ErrUnknownField),
		errors.Is(err, rubric.ErrRatingOutOfRange),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, pdfdoc.ErrNotPDF):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotExportable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrBadSignature):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	case errors.Is(err, service.ErrPaymentsDisabled):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	log.Error(action+" failed", zap.String("route", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to " + action})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
