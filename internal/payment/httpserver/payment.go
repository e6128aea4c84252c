package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/payment/service"
	"github.com/quanghuy/freshmart/internal/payment/transport"
	"github.com/quanghuy/freshmart/internal/util"
)

type PaymentHTTP struct {
	Svc *service.PaymentService
}

func (h *PaymentHTTP) GetID(c echo.Context) (uuid.UUID, error) {
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

func (h *PaymentHTTP) isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

func (h *PaymentHTTP) PayByCash(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.pay_by_cash")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("pay_by_cash_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		l.Warn("pay_by_cash_error", "status", 400, "reason", "orderId is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "orderId is not a uuid")
	}

	var body struct {
		Description string `json:"description"`
	}
	if err := c.Bind(&body); err != nil {
		l.Warn("pay_by_cash_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	payment, err := h.Svc.PayByCash(ctx, userID, &transport.PayByCashRequest{
		OrderID:     orderID,
		Description: body.Description,
	})
	if err != nil {
		return mapServiceError(l, "pay_by_cash_error", err)
	}

	l.Info("pay_by_cash_success", "payment_id", payment.ID)
	return c.JSON(http.StatusCreated, payment)
}

func (h *PaymentHTTP) PayByZaloPay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.pay_by_zalopay")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("pay_by_zalopay_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.PayByZaloPayRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("pay_by_zalopay_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	payment, err := h.Svc.PayByZaloPay(ctx, userID, &req)
	if err != nil {
		return mapServiceError(l, "pay_by_zalopay_error", err)
	}

	l.Info("pay_by_zalopay_success", "payment_id", payment.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"paymentUrl": payment.PaymentURL,
		"payment":    payment,
	})
}

// Callback is the gateway's server-to-server notification. It is mounted
// without auth middleware; the mac check inside the service is the only
// gate.
func (h *PaymentHTTP) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.callback")

	var req transport.CallbackRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("payment_callback_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	payment, err := h.Svc.HandleCallback(ctx, &req)
	if err != nil {
		return mapServiceError(l, "payment_callback_error", err)
	}

	l.Info("payment_callback_success", "payment_id", payment.ID, "status", payment.Status)
	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.update_status")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("update_payment_status_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_payment_status_error", "status", 400, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	payment, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return mapServiceError(l, "update_payment_status_error", err)
	}

	l.Info("update_payment_status_success", "payment_id", payment.ID, "status", payment.Status)
	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHTTP) CancelPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.cancel")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("cancel_payment_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("cancel_payment_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	payment, err := h.Svc.Cancel(ctx, id, userID, h.isAdmin(c))
	if err != nil {
		return mapServiceError(l, "cancel_payment_error", err)
	}

	l.Info("cancel_payment_success", "payment_id", payment.ID)
	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHTTP) GetPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.get_payment")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("get_payment_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("get_payment_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	payment, err := h.Svc.GetOwned(ctx, id, userID, h.isAdmin(c))
	if err != nil {
		return mapServiceError(l, "get_payment_error", err)
	}

	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHTTP) GetPayments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.get_payments")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	filter, err := util.DecodeJSONQuery[*transport.PaymentFilter](c.QueryParam("filters"))
	if err != nil {
		l.Warn("get_payments_error", "status", 400, "reason", "invalid filters", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filters")
	}
	sorts, err := util.DecodeJSONQuery[[]transport.SortOption](c.QueryParam("sort"))
	if err != nil {
		l.Warn("get_payments_error", "status", 400, "reason", "invalid sort", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	total, items, err := h.Svc.List(ctx, filter, sorts, offset, limit)
	if err != nil {
		l.Error("get_payments_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, listEnvelope(items, page, offset, limit, total))
}

func (h *PaymentHTTP) GetMyPayments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.get_my_payments")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("get_my_payments_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListMine(ctx, userID, offset, limit)
	if err != nil {
		l.Error("get_my_payments_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, listEnvelope(items, page, offset, limit, total))
}

func (h *PaymentHTTP) GetOrderPayments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.get_order_payments")

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		l.Warn("get_order_payments_error", "status", 400, "reason", "orderId is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "orderId is not a uuid")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListByOrder(ctx, orderID, offset, limit)
	if err != nil {
		l.Error("get_order_payments_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, listEnvelope(items, page, offset, limit, total))
}

func listEnvelope[T any](items []T, page, offset, limit int, total int64) map[string]any {
	return map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	}
}

func mapServiceError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		l.Warn(event, "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrForbidden):
		l.Warn(event, "status", 403, "error", err)
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
