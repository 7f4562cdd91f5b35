package adapters

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "settlement/pkg/errors"
	"settlement/pkg/logger"
)

// HTTPPaymentGateway implements PaymentGateway against the provider's REST API
type HTTPPaymentGateway struct {
	client    *http.Client
	baseURL   string
	keyID     string
	keySecret string
	log       *logger.Logger
}

// NewHTTPPaymentGateway creates a new payment gateway client
func NewHTTPPaymentGateway(baseURL, keyID, keySecret string, timeout time.Duration, log *logger.Logger) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		log:       log,
	}
}

type gatewayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type gatewayOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder registers a payment intent with the provider and returns its
// order handle. The amount is in minor currency units.
func (g *HTTPPaymentGateway) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(gatewayOrderRequest{
		Amount:   amountMinorUnits,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return "", apperrors.NewInternal("failed to marshal gateway order", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternal("failed to build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", apperrors.NewInternal("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.log.WithContext(ctx).Error("payment gateway rejected order",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(payload)),
		)
		return "", apperrors.NewInternal(
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode), nil)
	}

	var parsed gatewayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.NewInternal("failed to decode gateway response", err)
	}
	if parsed.ID == "" {
		return "", apperrors.NewInternal("gateway response missing order id", nil)
	}

	return parsed.ID, nil
}

// VerifySignature recomputes the callback HMAC over "orderID|paymentID" with
// the shared secret and compares in constant time.
func (g *HTTPPaymentGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
