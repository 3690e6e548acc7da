package entity

// GooglePayResult is delivered exactly once per payment or token flow. The concrete type is one
// of Success, TokenReceived, Canceled or Failure.
type GooglePayResult interface {
	Kind() ResultKind
}

type ResultKind string

const (
	ResultSuccess       ResultKind = "success"
	ResultTokenReceived ResultKind = "token_received"
	ResultCanceled      ResultKind = "canceled"
	ResultError         ResultKind = "error"
)

// Success carries the original wallet payment data.
type Success struct {
	PaymentData string
}

// TokenReceived carries the token artifact. Settlement and PaymentDetails are set only when the
// token was processed by the gateway in a token collection flow.
type TokenReceived struct {
	TokenData      *GooglePayTokenData
	PaymentData    string
	Settlement     *SettlementResult
	PaymentDetails *PaymentDetails
}

type Canceled struct{}

type Failure struct {
	Err *GooglePayError
}

func (Success) Kind() ResultKind       { return ResultSuccess }
func (TokenReceived) Kind() ResultKind { return ResultTokenReceived }
func (Canceled) Kind() ResultKind      { return ResultCanceled }
func (Failure) Kind() ResultKind       { return ResultError }

// ReadinessResult is delivered by the initialize operations.
type ReadinessResult struct {
	Ready bool
	Err   *GooglePayError
}

// WalletOutcomeKind is the terminal signal of one wallet presentation.
type WalletOutcomeKind int

const (
	WalletSuccess WalletOutcomeKind = iota
	WalletCanceled
	WalletError
)

type WalletOutcome struct {
	Kind        WalletOutcomeKind
	PaymentData string
	Err         *GooglePayError
}

// ActivityResultData is what the host hands back after the payment sheet closes.
type ActivityResultData struct {
	PaymentData   string `json:"payment_data,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`
	StatusMessage string `json:"status_message,omitempty"`
}

// EngineState is the position of the engine in its payment lifecycle.
type EngineState string

const (
	StateIdle                 EngineState = "idle"
	StateSessionPending       EngineState = "session_pending"
	StateReady                EngineState = "ready"
	StatePaymentPending       EngineState = "payment_pending"
	StateAwaitingWalletResult EngineState = "awaiting_wallet_result"
	StateProcessingToken      EngineState = "processing_token"
)
