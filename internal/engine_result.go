package internal

import (
	"fmt"
	"gpaylink/entity"
	"strings"
)

// Gateway settlement states, lower-cased.
var (
	settledStates = map[string]bool{"settled": true, "authorized": true, "completed": true}
	pendingStates = map[string]bool{"waiting_for_3ds": true, "waiting_for_3ds_response": true, "processing": true}
	failedStates  = map[string]bool{"failed": true, "voided": true, "abandoned": true}
)

func (e *Engine) onWalletOutcome(f *flow, outcome entity.WalletOutcome) {
	switch outcome.Kind {
	case entity.WalletCanceled:
		e.logger.Info("payment sheet canceled")
		e.finish(f, entity.Canceled{})
	case entity.WalletError:
		e.finish(f, entity.Failure{Err: outcome.Err})
	case entity.WalletSuccess:
		if f.backendData != nil {
			e.complete(f, func() entity.GooglePayResult {
				return e.backendToken(f, outcome.PaymentData)
			})
			return
		}
		e.transition(f, entity.StateProcessingToken)
		go e.complete(f, func() entity.GooglePayResult {
			return e.settle(f, outcome.PaymentData)
		})
	default:
		e.finish(f, entity.Failure{
			Err: entity.NewError(entity.CodeInternal, fmt.Sprintf("unknown wallet outcome %d", outcome.Kind), nil),
		})
	}
}

// complete runs step and always finishes the flow, panics included.
func (e *Engine) complete(f *flow, step func() entity.GooglePayResult) {
	var result entity.GooglePayResult
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("process payment data", fmt.Errorf("panic: %v", r))
			result = entity.Failure{Err: entity.NewError(entity.CodeInternal, fmt.Sprintf("%v", r), nil)}
		}
		e.finish(f, result)
	}()
	result = step()
}

// backendToken hands the wallet token to the caller's backend without calling the gateway.
func (e *Engine) backendToken(f *flow, paymentData string) entity.GooglePayResult {
	token, err := ParseWalletToken(paymentData)
	if err != nil {
		return failure(err)
	}
	return entity.TokenReceived{
		TokenData:   entity.NewTokenData(e.intentOf(f), token, f.tokenRequest),
		PaymentData: paymentData,
	}
}

// settle sends the wallet token to the gateway and maps the settlement state.
func (e *Engine) settle(f *flow, paymentData string) entity.GooglePayResult {
	token, err := ParseWalletToken(paymentData)
	if err != nil {
		return failure(err)
	}
	intent := e.intentOf(f)
	if intent == nil {
		return entity.Failure{Err: entity.NewError(entity.CodeInternal, "payment intent missing", nil)}
	}

	request := token.ProcessPaymentRequest(intent.PaymentReference, f.tokenRequest)
	settlement, err := e.gateway.ProcessPayment(f.settleCtx, intent.MobileAccessToken, request)
	if err != nil {
		e.logger.Error("process payment", err)
		return failure(err)
	}

	state := strings.ToLower(strings.TrimSpace(settlement.State))
	e.logger.Info(fmt.Sprintf("payment %s state: %s", secret(intent.PaymentReference), state))
	switch {
	case settledStates[state]:
		if !f.tokenRequest {
			return entity.Success{PaymentData: paymentData}
		}
		return e.collectToken(f, intent, token, settlement, paymentData)
	case pendingStates[state]:
		return entity.Failure{
			Err: entity.NewError(entity.CodePaymentPending, "pending additional authentication: "+state, nil),
		}
	case failedStates[state]:
		return entity.Failure{
			Err: entity.NewError(entity.CodePaymentFailed, "payment failed with state: "+state, nil),
		}
	default:
		e.logger.Warn(fmt.Sprintf("payment %s: unknown state %q", secret(intent.PaymentReference), settlement.State))
		return entity.Failure{
			Err: entity.NewError(entity.CodeUnknownState, "unknown payment state: "+state, nil),
		}
	}
}

// collectToken reads the card-on-file token from the payment details.
func (e *Engine) collectToken(f *flow, intent *entity.PaymentIntent, token *entity.WalletToken, settlement *entity.SettlementResult, paymentData string) entity.GooglePayResult {
	reference := settlement.PaymentReference
	if reference == "" {
		reference = intent.PaymentReference
	}
	details, err := e.gateway.GetPaymentDetails(f.settleCtx, reference)
	if err != nil {
		e.logger.Error("get payment details", err)
		return failure(err)
	}
	if details.CardDetails == nil || details.CardDetails.Token == "" {
		return entity.Failure{
			Err: entity.NewError(entity.CodeTokenNotAvailable, "token not available in payment details", nil),
		}
	}
	return entity.TokenReceived{
		TokenData:      entity.NewTokenData(intent, token, true),
		PaymentData:    paymentData,
		Settlement:     settlement,
		PaymentDetails: details,
	}
}
