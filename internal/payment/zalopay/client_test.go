package zalopay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanghuy/freshmart/internal/config"
)

func TestComputeMAC_DeterministicAndKeyed(t *testing.T) {
	t.Parallel()

	payload := "2553|240101_1|user|50000|1700000000000|{}|[]"
	mac := ComputeMAC("key-a", payload)

	assert.Len(t, mac, 64)
	assert.Equal(t, mac, ComputeMAC("key-a", payload))
	assert.NotEqual(t, mac, ComputeMAC("key-b", payload))
	assert.NotEqual(t, mac, ComputeMAC("key-a", payload+"x"))
}

func TestVerifyMAC(t *testing.T) {
	t.Parallel()

	payload := "order|txn|1|50000"
	mac := ComputeMAC("secret", payload)

	assert.True(t, VerifyMAC("secret", payload, mac))
	assert.False(t, VerifyMAC("secret", payload, "tampered"))
	assert.False(t, VerifyMAC("other", payload, mac))
	assert.False(t, VerifyMAC("secret", payload+"x", mac))
}

func TestFallbackURL_EscapesTransID(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://sandbox.zalopay.com.vn/v2/mock/payment?app_trans_id=240101_42",
		FallbackURL("240101_42"))
	assert.Equal(t,
		"https://sandbox.zalopay.com.vn/v2/mock/payment?app_trans_id=a%26b",
		FallbackURL("a&b"))
}

func TestClient_CreateOrder_SignsRequest(t *testing.T) {
	t.Parallel()

	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"return_code": 1, "order_url": "https://pay.example/x"})
	}))
	defer srv.Close()

	client := NewClient(config.ZaloPayConfig{
		AppID:       "2553",
		Key1:        "k1",
		Endpoint:    srv.URL,
		CallbackURL: "https://api.example/cb",
	})

	url, err := client.CreateOrder(context.Background(), "240101_7", "user-1", 50_000, "groceries", "")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/x", url)

	assert.Equal(t, "2553", got.AppID)
	assert.Equal(t, "240101_7", got.AppTransID)
	assert.EqualValues(t, 50_000, got.Amount)
	assert.Equal(t, "https://api.example/cb", got.CallbackURL)
	assert.Equal(t, "{}", got.EmbedData)

	// app_time is runtime data, so rebuild the signed payload from the
	// request the server saw
	payload := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		got.AppID, got.AppTransID, got.AppUser, got.Amount, got.AppTime, got.EmbedData, got.Item)
	assert.Equal(t, ComputeMAC("k1", payload), got.MAC)
}

func TestClient_CreateOrder_ReturnURLRidesInEmbedData(t *testing.T) {
	t.Parallel()

	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"return_code": 1, "order_url": "https://pay.example/y"})
	}))
	defer srv.Close()

	client := NewClient(config.ZaloPayConfig{AppID: "2553", Key1: "k1", Endpoint: srv.URL})

	_, err := client.CreateOrder(context.Background(), "240101_8", "user-1", 50_000, "", "https://shop.example/thanks")
	require.NoError(t, err)

	var embedded map[string]string
	require.NoError(t, json.Unmarshal([]byte(got.EmbedData), &embedded))
	assert.Equal(t, "https://shop.example/thanks", embedded["redirecturl"])

	// the redirect is part of the signed payload
	payload := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		got.AppID, got.AppTransID, got.AppUser, got.Amount, got.AppTime, got.EmbedData, got.Item)
	assert.Equal(t, ComputeMAC("k1", payload), got.MAC)
}

func TestClient_CreateOrder_RejectsAmountOutOfRange(t *testing.T) {
	t.Parallel()

	client := NewClient(config.ZaloPayConfig{AppID: "2553", Key1: "k1", Endpoint: "http://unused"})

	_, err := client.CreateOrder(context.Background(), "240101_1", "u", 999, "", "")
	require.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = client.CreateOrder(context.Background(), "240101_1", "u", MaxAmount+1, "", "")
	require.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestClient_CreateOrder_UnreachableGatewayFallsBack(t *testing.T) {
	t.Parallel()

	client := NewClient(config.ZaloPayConfig{AppID: "2553", Key1: "k1", Endpoint: "http://127.0.0.1:1"})

	url, err := client.CreateOrder(context.Background(), "240101_9", "u", 50_000, "", "")
	require.NoError(t, err)
	assert.Equal(t, FallbackURL("240101_9"), url)
}
