package models

// GatewayRequest represents the standard request structure for the payment
// gateway API
type GatewayRequest struct {
	Amount          *float64 `json:"amount,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	Customer        string   `json:"customer,omitempty"`
	PaymentMethodID string   `json:"paymentMethodId,omitempty"`
	ChargeRef       string   `json:"chargeRef,omitempty"`
	ReceiptEmail    string   `json:"receiptEmail,omitempty"`
	ReturnURL       string   `json:"returnUrl,omitempty"`
}

// GatewayResponse represents the standard response structure from the payment
// gateway API
type GatewayResponse struct {
	Status bool                   `json:"status"`
	Code   interface{}            `json:"code"`   // Can be string or null
	Dialog interface{}            `json:"dialog"` // Can be string, object, or null
	Data   map[string]interface{} `json:"data"`
}

// PaymentResult is the snapshot of a captured charge kept with the
// collaboration
type PaymentResult struct {
	Reference    string  `json:"reference"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	ReceiptEmail string  `json:"receiptEmail,omitempty"`
}

// Succeeded reports whether the gateway confirmed the charge
func (p PaymentResult) Succeeded() bool {
	return p.Status == "succeeded"
}

// RefundResult is the gateway's answer to a refund call
type RefundResult struct {
	Reference string  `json:"reference"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
}

// PaymentBody model for POST /payment
type PaymentBody struct {
	PaymentMethodID string  `json:"paymentMethodId" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	RequestID       string  `json:"requestId" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	ReturnURL       string  `json:"returnUrl,omitempty"`
}
