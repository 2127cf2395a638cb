package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Eursukkul/rental-marketplace/internal/middleware"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/Eursukkul/rental-marketplace/pkg/payment"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

func parseID(c echo.Context, param, label string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+label+" id")
	}
	return uint(id), nil
}

func currentActor(c echo.Context) (models.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return models.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return actor, nil
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// pagination reads page/limit and returns them with the matching offset.
func pagination(c echo.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

// toHTTPError maps service errors onto HTTP statuses.
func toHTTPError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPropertyNotFound),
		errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrUploadNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrSearchDisabled),
		errors.Is(err, payment.ErrPaymentsDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidDates),
		errors.Is(err, service.ErrDateInPast),
		errors.Is(err, service.ErrTooManyGuests),
		errors.Is(err, service.ErrPropertyUnavailable),
		errors.Is(err, service.ErrOwnProperty),
		errors.Is(err, service.ErrBookingOverlap),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrBookingNotEnded),
		errors.Is(err, service.ErrNotPayable),
		errors.Is(err, service.ErrNotRefundable),
		errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, service.ErrInvalidWebhook),
		errors.Is(err, service.ErrInvalidParticipants),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrUnsupportedFileType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
	}
}
