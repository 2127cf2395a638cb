package handler

import (
	"net/http"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/properties/:id/bookings", h.CreateBooking, requireAuth)
	g.GET("/properties/:id/bookings", h.ListPropertyBookings, requireAuth)

	g.GET("/bookings/me", h.ListMyBookings, requireAuth)
	g.GET("/bookings/:id", h.GetBooking, requireAuth)
	g.PATCH("/bookings/:id/status", h.UpdateStatus, requireAuth)
	g.DELETE("/bookings/:id", h.CancelBooking, requireAuth)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	propertyID, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}

	var req dto.CreateBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), actor, propertyID, service.BookingInput{
		StartDate: start,
		EndDate:   end,
		Guests:    req.Guests,
		Notes:     req.Notes,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	bookingID, err := parseID(c, "id", "booking")
	if err != nil {
		return err
	}

	booking, err := h.svc.CancelBooking(c.Request().Context(), actor, bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	bookingID, err := parseID(c, "id", "booking")
	if err != nil {
		return err
	}
	var req dto.UpdateBookingStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.UpdateStatus(c.Request().Context(), actor, bookingID, models.BookingStatus(req.Status))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "booking")
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	status, err := statusFilter(c)
	if err != nil {
		return err
	}

	bookings, err := h.svc.ListMyBookings(c.Request().Context(), actor, status)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func (h *BookingHandler) ListPropertyBookings(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	propertyID, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}
	status, err := statusFilter(c)
	if err != nil {
		return err
	}

	bookings, err := h.svc.ListPropertyBookings(c.Request().Context(), actor, propertyID, status)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func statusFilter(c echo.Context) (*models.BookingStatus, error) {
	s := c.QueryParam("status")
	if s == "" {
		return nil, nil
	}
	bs := models.BookingStatus(s)
	if !bs.Valid() {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}
	return &bs, nil
}
