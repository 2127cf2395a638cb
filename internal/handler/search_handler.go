package handler

import (
	"net/http"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/middleware"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/Eursukkul/rental-marketplace/pkg/search"
	"github.com/labstack/echo/v4"
)

type SearchHandler struct {
	svc service.SearchService
}

func NewSearchHandler(svc service.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func (h *SearchHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/search/properties", h.SearchProperties)
	g.POST("/search/reindex", h.Reindex, requireAuth, middleware.RequireRoles(models.RoleAdmin))
}

func (h *SearchHandler) SearchProperties(c echo.Context) error {
	qp := &queryParser{c: c}
	page, limit, offset := pagination(c)
	q := search.Query{
		Text:         qp.str("q"),
		City:         qp.str("city"),
		PropertyType: qp.upper("property_type"),
		ListingType:  qp.upper("listing_type"),
		MinPrice:     qp.float("min_price"),
		MaxPrice:     qp.float("max_price"),
		Bedrooms:     qp.int("bedrooms"),
		Guests:       qp.int("guests"),
		Lat:          qp.float("lat"),
		Lng:          qp.float("lng"),
		From:         offset,
		Size:         limit,
	}
	if r := qp.float("radius_km"); r != nil {
		q.RadiusKm = *r
	}
	if qp.err != nil {
		return qp.err
	}
	if (q.Lat == nil) != (q.Lng == nil) {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng must be given together")
	}
	if q.Lat != nil && (*q.Lat < -90 || *q.Lat > 90 || *q.Lng < -180 || *q.Lng > 180) {
		return echo.NewHTTPError(http.StatusBadRequest, "lat/lng out of range")
	}
	if q.RadiusKm < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "radius_km must not be negative")
	}

	result, err := h.svc.Search(c.Request().Context(), q)
	if err != nil {
		return toHTTPError(err)
	}

	hits := result.Hits
	if hits == nil {
		hits = []search.Document{}
	}
	return c.JSON(http.StatusOK, dto.ListResponse[search.Document]{
		Data:  hits,
		Total: result.Total,
		Page:  page,
		Limit: limit,
	})
}

func (h *SearchHandler) Reindex(c echo.Context) error {
	count, err := h.svc.Reindex(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"indexed": count})
}
