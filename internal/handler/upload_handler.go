package handler

import (
	"fmt"
	"net/http"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/labstack/echo/v4"
)

type UploadHandler struct {
	svc service.UploadService
}

func NewUploadHandler(svc service.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

func (h *UploadHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/uploads", h.Upload, requireAuth)
	g.GET("/uploads/:id", h.Download)
	g.DELETE("/uploads/:id", h.Delete, requireAuth)
}

func (h *UploadHandler) Upload(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	upload, err := h.svc.Upload(c.Request().Context(), actor, fh.Filename, f)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToUploadResponse(upload, h.svc.URL(upload)))
}

func (h *UploadHandler) Download(c echo.Context) error {
	id, err := parseID(c, "id", "upload")
	if err != nil {
		return err
	}
	upload, body, err := h.svc.Open(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	defer body.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", upload.Filename))
	header.Set(echo.HeaderContentLength, fmt.Sprint(upload.Size))
	header.Set("Cache-Control", "public, max-age=86400")
	return c.Stream(http.StatusOK, upload.ContentType, body)
}

func (h *UploadHandler) Delete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "upload")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
