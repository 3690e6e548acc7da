package internal

import (
	"context"
	"fmt"
	"gpaylink/entity"
	"gpaylink/services"
	"sync"
)

// Activity result codes used by the platform result channel.
const (
	ResultOK       = -1
	ResultCanceled = 0
	ResultError    = 1

	DefaultRequestCode = 991
)

// WalletAdapter presents the payment sheet and turns the host's activity result into exactly
// one WalletOutcome.
type WalletAdapter struct {
	client      services.PaymentsClient
	requestCode int
	logger      services.LogHandler

	mutex   sync.Mutex
	pending func(entity.WalletOutcome)
}

func NewWalletAdapter(client services.PaymentsClient, requestCode int) *WalletAdapter {
	if requestCode == 0 {
		requestCode = DefaultRequestCode
	}
	return &WalletAdapter{
		client:      client,
		requestCode: requestCode,
		logger:      discardLogger{},
	}
}

func (w *WalletAdapter) SetLogger(logger services.LogHandler) {
	w.logger = logger
}

func (w *WalletAdapter) RequestCode() int {
	return w.requestCode
}

// IsReadyToPay asks the platform whether the device can pay with the request's card methods.
func (w *WalletAdapter) IsReadyToPay(ctx context.Context, request []byte) (bool, error) {
	ready, err := w.client.IsReadyToPay(ctx, request)
	if err != nil {
		return false, entity.NewError(entity.CodeWallet, "is ready to pay", err)
	}
	return ready, nil
}

// RequestPayment registers callback and starts the payment sheet. The callback runs once, either
// from HandleActivityResult or right here when the platform refuses to start.
func (w *WalletAdapter) RequestPayment(ctx context.Context, request []byte, callback func(entity.WalletOutcome)) {
	w.mutex.Lock()
	if w.pending != nil {
		w.mutex.Unlock()
		callback(entity.WalletOutcome{
			Kind: entity.WalletError,
			Err:  entity.NewError(entity.CodeWallet, "payment sheet already pending", nil),
		})
		return
	}
	w.pending = callback
	w.mutex.Unlock()

	if err := w.client.ResolvePaymentData(ctx, request, w.requestCode); err != nil {
		w.logger.Error("resolve payment data", err)
		if pending := w.take(); pending != nil {
			pending(entity.WalletOutcome{
				Kind: entity.WalletError,
				Err:  entity.NewError(entity.CodeWallet, "present payment sheet", err),
			})
		}
	}
}

// HandleActivityResult reports whether the result belongs to this adapter. A result for an
// already delivered flow is accepted and dropped.
func (w *WalletAdapter) HandleActivityResult(requestCode, resultCode int, data *entity.ActivityResultData) bool {
	if requestCode != w.requestCode {
		return false
	}
	pending := w.take()
	if pending == nil {
		w.logger.Debug(fmt.Sprintf("activity result %d without pending request", resultCode))
		return true
	}
	pending(walletOutcome(resultCode, data))
	return true
}

// IsPending reports whether a payment sheet result is outstanding.
func (w *WalletAdapter) IsPending() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.pending != nil
}

func (w *WalletAdapter) take() func(entity.WalletOutcome) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	pending := w.pending
	w.pending = nil
	return pending
}

func walletOutcome(resultCode int, data *entity.ActivityResultData) entity.WalletOutcome {
	switch resultCode {
	case ResultOK:
		if data == nil || data.PaymentData == "" {
			return entity.WalletOutcome{
				Kind: entity.WalletError,
				Err:  entity.NewError(entity.CodeWallet, "payment data missing in wallet result", nil),
			}
		}
		return entity.WalletOutcome{Kind: entity.WalletSuccess, PaymentData: data.PaymentData}
	case ResultCanceled:
		return entity.WalletOutcome{Kind: entity.WalletCanceled}
	case ResultError:
		message := "wallet returned an error"
		if data != nil {
			message = fmt.Sprintf("wallet status %d: %s", data.StatusCode, data.StatusMessage)
		}
		return entity.WalletOutcome{Kind: entity.WalletError, Err: entity.NewError(entity.CodeWallet, message, nil)}
	default:
		return entity.WalletOutcome{
			Kind: entity.WalletError,
			Err:  entity.NewError(entity.CodeWallet, fmt.Sprintf("unexpected result code %d", resultCode), nil),
		}
	}
}
