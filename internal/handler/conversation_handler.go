package handler

import (
	"net/http"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/labstack/echo/v4"
)

type ConversationHandler struct {
	svc service.MessagingService
}

func NewConversationHandler(svc service.MessagingService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

func (h *ConversationHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	conversations := g.Group("/conversations", requireAuth)
	conversations.POST("", h.CreateConversation)
	conversations.GET("", h.ListConversations)
	conversations.GET("/:id", h.GetConversation)
	conversations.DELETE("/:id", h.DeleteConversation)
	conversations.GET("/:id/messages", h.ListMessages)
	conversations.POST("/:id/messages", h.SendMessage)
	conversations.POST("/:id/read", h.MarkConversationRead)

	g.POST("/messages/:id/read", h.MarkMessageRead, requireAuth)
}

func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.BookingID == nil && len(req.ParticipantIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "participant_ids or booking_id is required")
	}

	conversation, err := h.svc.CreateConversation(c.Request().Context(), actor, service.ConversationInput{
		ParticipantIDs: req.ParticipantIDs,
		PropertyID:     req.PropertyID,
		BookingID:      req.BookingID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToConversationResponse(conversation))
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	summaries, err := h.svc.ListConversations(c.Request().Context(), actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToConversationSummaries(summaries))
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "conversation")
	if err != nil {
		return err
	}
	conversation, err := h.svc.GetConversation(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToConversationResponse(conversation))
}

func (h *ConversationHandler) DeleteConversation(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "conversation")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteConversation(c.Request().Context(), actor, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "conversation")
	if err != nil {
		return err
	}
	q := &queryParser{c: c}
	before, limit := q.uint("before"), q.int("limit")
	if q.err != nil {
		return q.err
	}

	messages, err := h.svc.ListMessages(c.Request().Context(), actor, id, before, limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToMessageResponses(messages))
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "conversation")
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	message, err := h.svc.SendMessage(c.Request().Context(), actor, id, req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToMessageResponse(message))
}

func (h *ConversationHandler) MarkConversationRead(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "conversation")
	if err != nil {
		return err
	}
	receipt, err := h.svc.MarkConversationRead(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, receipt)
}

func (h *ConversationHandler) MarkMessageRead(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "message")
	if err != nil {
		return err
	}
	receipt, err := h.svc.MarkMessageRead(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, receipt)
}
