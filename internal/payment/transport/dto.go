package transport

import (
	"github.com/google/uuid"

	"github.com/quanghuy/freshmart/internal/models"
)

type PayByCashRequest struct {
	OrderID     uuid.UUID `json:"orderId"`
	Description string    `json:"description"`
}

type PayByZaloPayRequest struct {
	OrderID     uuid.UUID `json:"orderId"`
	Description string    `json:"description"`
	// ReturnURL is where the gateway redirects the customer after paying.
	ReturnURL string `json:"returnUrl"`
}

// CallbackRequest is the gateway's payment notification. OrderID here is
// the gateway order id (app_trans_id), not our order's uuid.
type CallbackRequest struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	Status        int    `json:"status"`
	Amount        int64  `json:"amount"`
	Mac           string `json:"mac"`
}

type UpdateStatusRequest struct {
	Status models.PaymentStatus `json:"status"`
}

type PaymentFilter struct {
	UserID        *uuid.UUID             `json:"userId,omitempty"`
	OrderID       *uuid.UUID             `json:"orderId,omitempty"`
	Statuses      []models.PaymentStatus `json:"statuses,omitempty"`
	Methods       []models.PaymentMethod `json:"methods,omitempty"`
	TransactionID string                 `json:"transactionId,omitempty"`
	MinAmount     *int64                 `json:"minAmount,omitempty"`
	MaxAmount     *int64                 `json:"maxAmount,omitempty"`
}

type SortOption struct {
	Field string `json:"field"`
	Order string `json:"order"`
}
