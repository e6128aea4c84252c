package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quanghuy/freshmart/internal/chat/service"
	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/util"
)

type ChatHTTP struct {
	Svc *service.ChatService
}

func (h *ChatHTTP) CreateConversation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.create_conversation")

	var body struct {
		Participants string `json:"participants"`
	}
	if err := c.Bind(&body); err != nil {
		l.Warn("create_conversation_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	conv, err := h.Svc.CreateConversation(ctx, body.Participants)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("create_conversation_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("create_conversation_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("create_conversation_success", "conversation_id", conv.ID)
	return c.JSON(http.StatusCreated, conv)
}

func (h *ChatHTTP) GetConversation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.get_conversation")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("get_conversation_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	conv, err := h.Svc.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_conversation_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		l.Error("get_conversation_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, conv)
}

func (h *ChatHTTP) GetConversations(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.get_conversations")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListConversations(ctx, c.QueryParam("participant"), offset, limit)
	if err != nil {
		l.Error("get_conversations_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ChatHTTP) DeleteConversation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.delete_conversation")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("delete_conversation_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	if err := h.Svc.DeleteConversation(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("delete_conversation_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		l.Error("delete_conversation_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("delete_conversation_success", "conversation_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *ChatHTTP) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.send_message")

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("send_message_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	var body struct {
		Sender  string `json:"sender"`
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		l.Warn("send_message_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	msg, err := h.Svc.SendMessage(ctx, conversationID, body.Sender, body.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("send_message_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			l.Warn("send_message_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		default:
			l.Error("send_message_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("send_message_success", "message_id", msg.ID)
	return c.JSON(http.StatusCreated, msg)
}

func (h *ChatHTTP) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.get_messages")

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("get_messages_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListMessages(ctx, conversationID, offset, limit)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_messages_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		l.Error("get_messages_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ChatHTTP) DeleteMessage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.delete_message")

	id, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		l.Warn("delete_message_error", "status", 400, "reason", "messageId is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "messageId is not a uuid")
	}

	if err := h.Svc.DeleteMessage(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("delete_message_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		l.Error("delete_message_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("delete_message_success", "message_id", id)
	return c.NoContent(http.StatusNoContent)
}
