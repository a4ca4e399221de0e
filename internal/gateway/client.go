// Package gateway предоставляет клиент платёжного шлюза Razorpay.
package gateway

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
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL — адрес продакшен-API Razorpay.
const DefaultBaseURL = "https://api.razorpay.com"

// ErrUnavailable возвращается, если шлюз недоступен или ответил ошибкой.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	keyID      string
	secret     string
	httpClient *http.Client
}

// Order описывает транзакцию, созданную на стороне шлюза.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// NewClient создаёт клиент шлюза с указанными реквизитами интеграции.
func NewClient(baseURL, keyID, secret string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		secret:     secret,
		httpClient: rc.StandardClient(),
	}
}

// KeyID возвращает публичный идентификатор ключа, нужный клиенту для платёжной формы.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder открывает транзакцию шлюза на указанную сумму в пайсах.
// Receipt привязывает транзакцию к идентификатору заказа магазина.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (*Order, error) {
	if c.keyID == "" || c.secret == "" {
		return nil, fmt.Errorf("%w: gateway credentials not configured", ErrUnavailable)
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   amountPaise,
		Currency: "INR",
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &order, nil
}

// VerifySignature проверяет подпись callback-а шлюза: HMAC-SHA256 от строки
// "<id транзакции>|<id платежа>" на общем секрете интеграции. Сравнение
// выполняется за постоянное время. При пустом секрете любая подпись отклоняется.
func (c *Client) VerifySignature(razorpayOrderID, razorpayPaymentID, signature string) bool {
	if c.secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(razorpayOrderID + "|" + razorpayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
