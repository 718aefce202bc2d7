package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

func newGatewayStub(t *testing.T, handler http.HandlerFunc) *PaymentService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPaymentServiceWithClient(srv.URL+"/", srv.Client())
}

func TestChargeSuccess(t *testing.T) {
	var gotKey string
	var gotBody models.GatewayRequest

	svc := newGatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/charge", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]interface{}{
				"reference":    "ch_123",
				"chargeStatus": "succeeded",
			},
		})
	})

	result, err := svc.Charge("cus_1", "pm_1", "student@example.com", "", 120, "idem-1")
	require.NoError(t, err)

	assert.Equal(t, "ch_123", result.Reference)
	assert.Equal(t, "succeeded", result.Status)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 120.0, result.Amount)
	assert.Equal(t, "idem-1", gotKey)
	require.NotNil(t, gotBody.Amount)
	assert.Equal(t, 120.0, *gotBody.Amount)
	assert.Equal(t, "pm_1", gotBody.PaymentMethodID)
}

func TestChargeGatewayRejection(t *testing.T) {
	svc := newGatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": false,
			"code":   "card_declined",
			"dialog": map[string]interface{}{"message": "Your card was declined"},
		})
	})

	_, err := svc.Charge("cus_1", "pm_1", "student@example.com", "", 120, "idem-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaymentFailure))
	assert.Contains(t, err.Error(), "card_declined")
}

func TestRefund(t *testing.T) {
	var gotKey string
	svc := newGatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/refund", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]interface{}{
				"reference":    "re_9",
				"refundStatus": "refunded",
			},
		})
	})

	result, err := svc.Refund("ch_123", 50, "idem-refund")
	require.NoError(t, err)
	assert.Equal(t, "re_9", result.Reference)
	assert.Equal(t, "refunded", result.Status)
	assert.Equal(t, 50.0, result.Amount)
	assert.Equal(t, "idem-refund", gotKey)
}

func TestRefundGatewayDown(t *testing.T) {
	svc := newGatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})

	_, err := svc.Refund("ch_123", 50, "idem-refund")
	assert.Error(t, err)
}

func TestGetPaymentStatus(t *testing.T) {
	svc := newGatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/charge/status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data":   map[string]interface{}{"chargeStatus": "succeeded"},
		})
	})

	status, err := svc.GetPaymentStatus("ch_123")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", status)
}
