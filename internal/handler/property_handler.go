package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/middleware"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/labstack/echo/v4"
)

// availabilityWindow is used when the caller omits "to".
const availabilityWindow = 90 * 24 * time.Hour

type PropertyHandler struct {
	svc             service.PropertyService
	defaultCurrency string
}

func NewPropertyHandler(svc service.PropertyService, defaultCurrency string) *PropertyHandler {
	return &PropertyHandler{svc: svc, defaultCurrency: strings.ToUpper(defaultCurrency)}
}

func (h *PropertyHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	canList := middleware.RequireRoles(models.RoleLandlord, models.RoleAgent, models.RoleAdmin)

	g.GET("/properties", h.ListProperties)
	g.GET("/properties/:id", h.GetProperty)
	g.GET("/properties/:id/availability", h.GetAvailability)

	g.POST("/properties", h.CreateProperty, requireAuth, canList)
	g.PATCH("/properties/:id", h.UpdateProperty, requireAuth)
	g.DELETE("/properties/:id", h.DeleteProperty, requireAuth)
	g.POST("/properties/:id/images", h.AddImage, requireAuth)
	g.DELETE("/properties/:id/images/:imageId", h.RemoveImage, requireAuth)
}

func (h *PropertyHandler) CreateProperty(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreatePropertyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p := &models.Property{
		Title:         req.Title,
		Description:   req.Description,
		PropertyType:  models.PropertyType(req.PropertyType),
		ListingType:   models.ListingType(req.ListingType),
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		PostalCode:    req.PostalCode,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Price:         req.Price,
		Currency:      req.Currency,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		MaxGuests:     req.MaxGuests,
		Amenities:     req.Amenities,
		IsAvailable:   true,
		AvailableFrom: req.AvailableFrom,
	}
	if p.Currency == "" {
		p.Currency = h.defaultCurrency
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}

	if err := h.svc.CreateProperty(c.Request().Context(), actor, p); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToPropertyResponse(p))
}

func (h *PropertyHandler) GetProperty(c echo.Context) error {
	id, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}
	p, err := h.svc.GetProperty(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPropertyResponse(p))
}

func (h *PropertyHandler) ListProperties(c echo.Context) error {
	q := &queryParser{c: c}
	page, limit, offset := pagination(c)
	filter := repository.PropertyFilter{
		Query:        q.str("q"),
		City:         q.str("city"),
		PropertyType: models.PropertyType(q.upper("property_type")),
		ListingType:  models.ListingType(q.upper("listing_type")),
		MinPrice:     q.float("min_price"),
		MaxPrice:     q.float("max_price"),
		Bedrooms:     q.int("bedrooms"),
		Guests:       q.int("guests"),
		OwnerID:      q.uint("owner_id"),
		Available:    q.bool("available"),
		Offset:       offset,
		Limit:        limit,
	}
	if q.err != nil {
		return q.err
	}

	properties, total, err := h.svc.ListProperties(c.Request().Context(), filter)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.ListResponse[dto.PropertyResponse]{
		Data:  make([]dto.PropertyResponse, len(properties)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range properties {
		resp.Data[i] = dto.ToPropertyResponse(&properties[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PropertyHandler) UpdateProperty(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}
	var req dto.UpdatePropertyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.PropertyUpdate{
		Title:         req.Title,
		Description:   req.Description,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		PostalCode:    req.PostalCode,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Price:         req.Price,
		Currency:      req.Currency,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		MaxGuests:     req.MaxGuests,
		Amenities:     req.Amenities,
		IsAvailable:   req.IsAvailable,
		AvailableFrom: req.AvailableFrom,
	}
	if req.PropertyType != nil {
		pt := models.PropertyType(*req.PropertyType)
		in.PropertyType = &pt
	}
	if req.ListingType != nil {
		lt := models.ListingType(*req.ListingType)
		in.ListingType = &lt
	}

	p, err := h.svc.UpdateProperty(c.Request().Context(), actor, id, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPropertyResponse(p))
}

func (h *PropertyHandler) DeleteProperty(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProperty(c.Request().Context(), actor, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PropertyHandler) GetAvailability(c echo.Context) error {
	id, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}
	q := &queryParser{c: c}
	from, to := q.date("from"), q.date("to")
	if q.err != nil {
		return q.err
	}
	if from == nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		from = &today
	}
	if to == nil {
		end := from.Add(availabilityWindow)
		to = &end
	}

	ranges, err := h.svc.Availability(c.Request().Context(), id, *from, *to)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"property_id": id,
		"from":        from.Format(dateLayout),
		"to":          to.Format(dateLayout),
		"booked":      ranges,
	})
}

func (h *PropertyHandler) AddImage(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}
	var req dto.AddImageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	img, err := h.svc.AddImage(c.Request().Context(), actor, id, req.UploadID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, img)
}

func (h *PropertyHandler) RemoveImage(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "property")
	if err != nil {
		return err
	}
	imageID, err := parseID(c, "imageId", "image")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveImage(c.Request().Context(), actor, id, imageID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
