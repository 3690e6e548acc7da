package services

import (
	"context"
	"gpaylink/entity"
)

// Gateway is the payment gateway REST API. Calls block until the response arrives and are never
// retried.
type Gateway interface {
	OpenSession(ctx context.Context) (*entity.SessionInfo, error)
	CreatePayment(ctx context.Context, request *entity.CreatePaymentRequest) (*entity.PaymentIntent, error)
	ProcessPayment(ctx context.Context, mobileAccessToken string, request *entity.ProcessPaymentRequest) (*entity.SettlementResult, error)
	GetPaymentDetails(ctx context.Context, paymentReference string) (*entity.PaymentDetails, error)
}

// PaymentsClient is the platform wallet. ResolvePaymentData starts presenting the payment sheet;
// its outcome comes back later through the host's activity result channel tagged with requestCode.
type PaymentsClient interface {
	IsReadyToPay(ctx context.Context, request []byte) (bool, error)
	ResolvePaymentData(ctx context.Context, request []byte, requestCode int) error
}

// Payments is the caller-facing surface of the orchestration engine.
type Payments interface {
	Initialize(ctx context.Context, callback func(entity.ReadinessResult))
	InitializeWithBackendData(ctx context.Context, data *entity.GooglePaySessionData, callback func(entity.ReadinessResult))
	MakePayment(ctx context.Context, request PaymentRequest, callback func(entity.GooglePayResult))
	MakePaymentWithBackendData(ctx context.Context, data *entity.GooglePayBackendData, callback func(entity.GooglePayResult))
	RequestToken(ctx context.Context, label string, callback func(entity.GooglePayResult))
	RequestTokenWithBackendData(ctx context.Context, data *entity.GooglePayBackendData, callback func(entity.GooglePayResult))
	HandleActivityResult(requestCode, resultCode int, data *entity.ActivityResultData) bool
	State() entity.EngineState
	IsInProgress() bool
}

// PaymentRequest holds the caller supplied values of a one-off payment in SDK mode.
type PaymentRequest struct {
	// Amount is a decimal string, e.g. "10.00"
	Amount         string `json:"amount"`
	Label          string `json:"label"`
	OrderReference string `json:"order_reference"`
	CustomerEmail  string `json:"customer_email"`
	CustomerIp     string `json:"customer_ip,omitempty"`
}
