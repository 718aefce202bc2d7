package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

// PaymentService handles interactions with the payment gateway API
type PaymentService struct {
	baseURL   string
	apiKey    string
	secret    string
	isTesting bool
	client    *http.Client
}

// NewPaymentService creates a new payment service instance
func NewPaymentService() *PaymentService {
	gatewayEnv := os.Getenv("PAYMENT_ENV")
	isTesting := gatewayEnv == "testing"

	baseURL := os.Getenv("PAYMENT_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.sandbox.gateway.connectsphere.money/pay-service/api/"
	}

	apiKey := os.Getenv("PAYMENT_API_KEY")
	secret := os.Getenv("PAYMENT_SECRET")

	if apiKey == "" || secret == "" {
		log.Printf("WARNING: payment gateway credentials not fully configured:")
		if apiKey == "" {
			log.Printf("  - PAYMENT_API_KEY is missing")
		}
		if secret == "" {
			log.Printf("  - PAYMENT_SECRET is missing")
		}
		log.Printf("Please set these environment variables for the payment service to work")
	}

	return &PaymentService{
		baseURL:   baseURL,
		apiKey:    apiKey,
		secret:    secret,
		isTesting: isTesting,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewPaymentServiceWithClient creates a payment service against a specific
// base URL and HTTP client. Used by tests.
func NewPaymentServiceWithClient(baseURL string, client *http.Client) *PaymentService {
	return &PaymentService{
		baseURL: baseURL,
		apiKey:  "test",
		secret:  "test",
		client:  client,
	}
}

// getHeaders returns the standard headers required for gateway API requests
func (s *PaymentService) getHeaders(idempotencyKey string) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"apikey":       s.apiKey,
		"secret":       s.secret,
	}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	return headers
}

// makeRequest performs an HTTP request to the gateway API
func (s *PaymentService) makeRequest(method, endpoint, idempotencyKey string, payload interface{}) (*models.GatewayResponse, error) {
	url := s.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.apiKey == "" || s.secret == "" {
		return nil, fmt.Errorf("missing payment gateway credentials. Please set PAYMENT_API_KEY and PAYMENT_SECRET environment variables")
	}

	for key, value := range s.getHeaders(idempotencyKey) {
		req.Header.Set(key, value)
	}

	if s.isTesting || os.Getenv("PAYMENT_DEBUG") == "true" {
		log.Printf("Gateway API Request: %s %s", method, url)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if s.isTesting || os.Getenv("PAYMENT_DEBUG") == "true" {
		log.Printf("Gateway API Response: %s", string(respBody))
	}

	var gatewayResp models.GatewayResponse
	if err := json.Unmarshal(respBody, &gatewayResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}

	if !gatewayResp.Status {
		code := "unknown"
		if gatewayResp.Code != nil {
			if codeStr, ok := gatewayResp.Code.(string); ok {
				code = codeStr
			} else {
				code = fmt.Sprintf("%v", gatewayResp.Code)
			}
		}

		var errorMsg string
		if gatewayResp.Dialog != nil {
			if dialogMap, ok := gatewayResp.Dialog.(map[string]interface{}); ok {
				if msg, ok := dialogMap["message"].(string); ok {
					errorMsg = fmt.Sprintf("gateway error: %s - %s", code, msg)
				}
			}
		}
		if errorMsg == "" {
			errorMsg = fmt.Sprintf("gateway error: %s", code)
		}

		log.Printf("Gateway API Error Details: Code=%s, Dialog=%v", code, gatewayResp.Dialog)

		return &gatewayResp, fmt.Errorf("%s: %w", errorMsg, ErrPaymentFailure)
	}

	return &gatewayResp, nil
}

// Charge captures a payment for a booking. The idempotency key makes retries
// after a network failure safe.
func (s *PaymentService) Charge(customer, paymentMethodID, email, returnURL string, amount float64, idempotencyKey string) (*models.PaymentResult, error) {
	payload := models.GatewayRequest{
		Amount:          &amount,
		Currency:        "USD",
		Customer:        customer,
		PaymentMethodID: paymentMethodID,
		ReceiptEmail:    email,
		ReturnURL:       returnURL,
	}

	resp, err := s.makeRequest("POST", "payment/charge", idempotencyKey, payload)
	if err != nil {
		return nil, err
	}

	result := &models.PaymentResult{Amount: amount, Currency: "USD", ReceiptEmail: email}
	if ref, ok := resp.Data["reference"].(string); ok {
		result.Reference = ref
	}
	if status, ok := resp.Data["chargeStatus"].(string); ok {
		result.Status = status
	}
	if result.Reference == "" {
		return nil, fmt.Errorf("failed to parse charge reference from response")
	}
	return result, nil
}

// Refund returns money against a previous charge. Safe to retry with the same
// idempotency key.
func (s *PaymentService) Refund(chargeRef string, amount float64, idempotencyKey string) (*models.RefundResult, error) {
	payload := models.GatewayRequest{
		Amount:    &amount,
		Currency:  "USD",
		ChargeRef: chargeRef,
	}

	resp, err := s.makeRequest("POST", "payment/refund", idempotencyKey, payload)
	if err != nil {
		return nil, err
	}

	result := &models.RefundResult{Amount: amount}
	if ref, ok := resp.Data["reference"].(string); ok {
		result.Reference = ref
	}
	if status, ok := resp.Data["refundStatus"].(string); ok {
		result.Status = status
	}
	return result, nil
}

// GetPaymentStatus returns the gateway's view of a charge
func (s *PaymentService) GetPaymentStatus(chargeRef string) (string, error) {
	payload := models.GatewayRequest{ChargeRef: chargeRef}

	resp, err := s.makeRequest("POST", "payment/charge/status", "", payload)
	if err != nil {
		return "", err
	}

	if status, ok := resp.Data["chargeStatus"].(string); ok {
		return status, nil
	}
	return "", fmt.Errorf("failed to parse charge status from response")
}
