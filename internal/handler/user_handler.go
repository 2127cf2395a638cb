package handler

import (
	"net/http"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/middleware"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	users := g.Group("/users", requireAuth)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	users.GET("/me", h.GetMe)
	users.PATCH("/me", h.UpdateMe)
	users.GET("", h.ListUsers, adminOnly)
	users.GET("/:id", h.GetUser)
	users.PATCH("/:id/role", h.ChangeRole, adminOnly)
	users.DELETE("/:id", h.DeleteUser)
	users.GET("/:id/presence", h.GetPresence)
}

func (h *UserHandler) GetMe(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), actor, actor.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), actor, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	page, limit, _ := pagination(c)

	users, total, err := h.svc.ListUsers(c.Request().Context(), actor, page, limit)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.ListResponse[dto.UserResponse]{
		Data:  make([]dto.UserResponse, len(users)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range users {
		resp.Data[i] = dto.ToUserResponse(&users[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}

	user, err := h.svc.GetUser(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) ChangeRole(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	var req dto.ChangeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.ChangeRole(c.Request().Context(), actor, id, models.Role(req.Role))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}

	if err := h.svc.DeleteUser(c.Request().Context(), actor, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) GetPresence(c echo.Context) error {
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}

	online, err := h.svc.IsOnline(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.PresenceResponse{UserID: id, Online: online})
}
