package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/order/service"
	"github.com/quanghuy/freshmart/internal/order/transport"
	"github.com/quanghuy/freshmart/internal/util"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) GetID(c echo.Context) (uuid.UUID, error) {
	v := c.Get("user_id")
	s, ok := v.(string)
	if !ok || s == "" {
		return uuid.Nil, errors.New("unauthorized")
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.New("unauthorized")
	}

	return userID, nil
}

func (h *OrderHTTP) isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

func (h *OrderHTTP) CreateFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_from_cart")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("create_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	order, err := h.Svc.CreateFromCart(ctx, userID, body.Notes)
	if err != nil {
		return h.mapCreateError(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) CreateCustomFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_custom_from_cart")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("create_custom_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreateCustomOrderFromCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_custom_order_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	order, err := h.Svc.CreateCustomOrderFromCart(ctx, userID, &req)
	if err != nil {
		return h.mapCreateError(l, "create_custom_order_error", err)
	}

	l.Info("create_custom_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) CreateCustom(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_custom")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("create_custom_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreateCustomOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_custom_order_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	order, err := h.Svc.CreateCustomOrder(ctx, userID, &req)
	if err != nil {
		return h.mapCreateError(l, "create_custom_order_error", err)
	}

	l.Info("create_custom_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) mapCreateError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("get_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("get_order_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	order, err := h.Svc.GetOwned(ctx, id, userID, h.isAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("get_order_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("get_order_error", "status", 403, "error", err)
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		default:
			l.Error("get_order_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	filter, err := util.DecodeJSONQuery[*transport.OrderFilter](c.QueryParam("filters"))
	if err != nil {
		l.Warn("get_orders_error", "status", 400, "reason", "invalid filters", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filters")
	}
	sorts, err := util.DecodeJSONQuery[[]transport.SortOption](c.QueryParam("sort"))
	if err != nil {
		l.Warn("get_orders_error", "status", 400, "reason", "invalid sort", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	total, items, err := h.Svc.List(ctx, filter, sorts, offset, limit)
	if err != nil {
		l.Error("get_orders_error", "status", 500, "error", err)
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

func (h *OrderHTTP) GetMyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_my_orders")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("get_my_orders_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListMine(ctx, userID, offset, limit)
	if err != nil {
		l.Error("get_my_orders_error", "status", 500, "error", err)
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

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("cancel_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("cancel_order_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	order, err := h.Svc.Cancel(ctx, id, userID, h.isAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("cancel_order_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("cancel_order_error", "status", 403, "error", err)
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		case errors.Is(err, service.ErrConflict):
			l.Warn("cancel_order_error", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			l.Error("cancel_order_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ConfirmOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.confirm_order")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("confirm_order_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	order, err := h.Svc.Confirm(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("confirm_order_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrConflict):
			l.Warn("confirm_order_error", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			l.Error("confirm_order_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("confirm_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}
