package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gpaylink/entity"
	"gpaylink/services"
	"strings"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// Engine runs Google Pay payment and token flows against the gateway and the platform wallet.
// At most one flow is in flight; a second request is rejected, not queued.
type Engine struct {
	conf     *entity.GooglePayConfig
	gateway  services.Gateway
	wallet   *WalletAdapter
	logger   services.LogHandler
	dispatch func(func())
	now      func() time.Time

	// mutex guards everything below
	mutex   sync.Mutex
	state   entity.EngineState
	session *entity.SessionInfo
	flow    *flow
}

// flow is the state of one payment or token request. Dropping it from the engine releases the
// single-flight guard and the references it holds.
type flow struct {
	// ctx bounds the steps before the wallet; settleCtx keeps its values without cancellation so
	// an approved wallet token is always sent to the gateway
	ctx          context.Context
	settleCtx    context.Context
	callback     func(entity.GooglePayResult)
	tokenRequest bool
	intent       *entity.PaymentIntent
	backendData  *entity.GooglePayBackendData
}

// NewEngine creates an engine. gateway may be nil in backend mode.
func NewEngine(conf *entity.GooglePayConfig, gateway services.Gateway, wallet *WalletAdapter) *Engine {
	return &Engine{
		conf:    conf,
		gateway: gateway,
		wallet:  wallet,
		logger:  discardLogger{},
		now:     time.Now,
		state:   entity.StateIdle,
	}
}

func (e *Engine) SetLogger(logger services.LogHandler) {
	e.logger = logger
}

// SetDispatcher makes callbacks run through dispatch, e.g. to post them to a UI loop.
func (e *Engine) SetDispatcher(dispatch func(func())) {
	e.dispatch = dispatch
}

func (e *Engine) State() entity.EngineState {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state
}

func (e *Engine) IsInProgress() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.flow != nil
}

// Session returns a copy of the current session, nil before initialization.
func (e *Engine) Session() *entity.SessionInfo {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.session == nil {
		return nil
	}
	session := *e.session
	return &session
}

// Initialize opens a gateway session and checks wallet readiness. SDK mode only.
func (e *Engine) Initialize(ctx context.Context, callback func(entity.ReadinessResult)) {
	if !e.sdkMode() {
		e.deliverReadiness(callback, entity.ReadinessResult{
			Err: entity.NewError(entity.CodeModeMismatch, "initialize needs api credentials, use backend session data", nil),
		})
		return
	}
	e.transition(nil, entity.StateSessionPending)

	go func() {
		defer e.recoverReadiness(callback)

		session, err := e.gateway.OpenSession(ctx)
		if err != nil {
			e.logger.Error("open session", err)
			e.transition(nil, entity.StateIdle)
			e.deliverReadiness(callback, entity.ReadinessResult{Err: asGooglePayError(err)})
			return
		}
		e.setSession(session)
		e.checkReadiness(ctx, callback)
	}()
}

// InitializeWithBackendData takes session data from the caller's backend; nothing is sent to the
// gateway.
func (e *Engine) InitializeWithBackendData(ctx context.Context, data *entity.GooglePaySessionData, callback func(entity.ReadinessResult)) {
	if data == nil || strings.TrimSpace(data.GatewayId) == "" || strings.TrimSpace(data.GatewayMerchantId) == "" {
		e.deliverReadiness(callback, entity.ReadinessResult{
			Err: entity.NewError(entity.CodeInvalidRequest, "session data needs gateway id and gateway merchant id", nil),
		})
		return
	}
	e.setSession(data.SessionInfo())

	go func() {
		defer e.recoverReadiness(callback)
		e.checkReadiness(ctx, callback)
	}()
}

// MakePayment creates a payment with the gateway, presents the wallet and processes the token.
// SDK mode only.
func (e *Engine) MakePayment(ctx context.Context, request services.PaymentRequest, callback func(entity.GooglePayResult)) {
	if !e.sdkMode() {
		e.deliver(callback, entity.Failure{
			Err: entity.NewError(entity.CodeModeMismatch, "make payment needs api credentials, use backend payment data", nil),
		})
		return
	}
	f, session, rejected := e.begin(ctx, callback, false, nil)
	if rejected != nil {
		e.deliver(callback, entity.Failure{Err: rejected})
		return
	}

	amount, err := parseAmount(request.Amount)
	if err != nil {
		e.finish(f, failure(err))
		return
	}
	params := entity.PaymentParams{
		Amount:         amount,
		Label:          request.Label,
		CurrencyCode:   e.conf.CurrencyCode(),
		CountryCode:    e.conf.CountryCode(),
		OrderReference: request.OrderReference,
		CustomerEmail:  request.CustomerEmail,
		CustomerIp:     request.CustomerIp,
	}
	go e.createAndPresent(f, session, params)
}

// RequestToken collects a card token for later merchant initiated transactions. SDK mode only.
func (e *Engine) RequestToken(ctx context.Context, label string, callback func(entity.GooglePayResult)) {
	if !e.sdkMode() {
		e.deliver(callback, entity.Failure{
			Err: entity.NewError(entity.CodeModeMismatch, "request token needs api credentials, use backend payment data", nil),
		})
		return
	}
	f, session, rejected := e.begin(ctx, callback, true, nil)
	if rejected != nil {
		e.deliver(callback, entity.Failure{Err: rejected})
		return
	}

	params := entity.PaymentParams{
		Amount:         decimal.Zero,
		Label:          label,
		CurrencyCode:   e.conf.CurrencyCode(),
		CountryCode:    e.conf.CountryCode(),
		OrderReference: "token-" + uuid.NewString(),
		RequestToken:   true,
	}
	go e.createAndPresent(f, session, params)
}

// MakePaymentWithBackendData presents the wallet for a payment created by the caller's backend and
// hands the token back instead of processing it.
func (e *Engine) MakePaymentWithBackendData(ctx context.Context, data *entity.GooglePayBackendData, callback func(entity.GooglePayResult)) {
	e.startBackendFlow(ctx, data, false, callback)
}

// RequestTokenWithBackendData is the token collection variant of MakePaymentWithBackendData.
func (e *Engine) RequestTokenWithBackendData(ctx context.Context, data *entity.GooglePayBackendData, callback func(entity.GooglePayResult)) {
	e.startBackendFlow(ctx, data, true, callback)
}

// HandleActivityResult forwards a platform result; it returns false for results of other flows.
func (e *Engine) HandleActivityResult(requestCode, resultCode int, data *entity.ActivityResultData) bool {
	return e.wallet.HandleActivityResult(requestCode, resultCode, data)
}

func (e *Engine) startBackendFlow(ctx context.Context, data *entity.GooglePayBackendData, tokenRequest bool, callback func(entity.GooglePayResult)) {
	f, session, rejected := e.begin(ctx, callback, tokenRequest, data)
	if rejected != nil {
		e.deliver(callback, entity.Failure{Err: rejected})
		return
	}
	if data == nil || strings.TrimSpace(data.PaymentReference) == "" || strings.TrimSpace(data.MobileAccessToken) == "" {
		e.finish(f, entity.Failure{
			Err: entity.NewError(entity.CodeInvalidRequest, "backend data needs payment reference and mobile access token", nil),
		})
		return
	}

	amount := decimal.Zero
	if !tokenRequest {
		var err error
		if amount, err = parseAmount(data.Amount); err != nil {
			e.finish(f, failure(err))
			return
		}
	}
	request := e.walletRequest(session, data.CurrencyCode, data.CountryCode, amount, data.Label, tokenRequest)

	go func() {
		defer e.recoverFlow(f)
		e.present(f, request)
	}()
}

// begin acquires the single-flight guard. Nothing is changed when it returns an error.
func (e *Engine) begin(ctx context.Context, callback func(entity.GooglePayResult), tokenRequest bool, data *entity.GooglePayBackendData) (*flow, *entity.SessionInfo, *entity.GooglePayError) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.flow != nil {
		return nil, nil, entity.ErrInProgress
	}
	if e.session == nil {
		return nil, nil, entity.ErrNotInitialized
	}
	f := &flow{
		ctx:          ctx,
		settleCtx:    context.WithoutCancel(ctx),
		callback:     callback,
		tokenRequest: tokenRequest,
		backendData:  data,
	}
	if data != nil {
		f.intent = data.PaymentIntent()
	}
	e.flow = f
	e.state = entity.StatePaymentPending
	session := *e.session
	return f, &session, nil
}

func (e *Engine) createAndPresent(f *flow, session *entity.SessionInfo, params entity.PaymentParams) {
	defer e.recoverFlow(f)

	params.Nonce = uuid.NewString()
	params.Timestamp = e.now().UTC().Format(timestampLayout)
	request, err := entity.NewCreatePaymentRequest(e.conf.Credentials(), params)
	if err != nil {
		e.finish(f, failure(err))
		return
	}

	intent, err := e.gateway.CreatePayment(f.ctx, request)
	if err != nil {
		e.logger.Error("create payment", err)
		e.finish(f, failure(err))
		return
	}
	e.mutex.Lock()
	f.intent = intent
	e.mutex.Unlock()
	e.logger.Info(fmt.Sprintf("payment %s created; token request: %v", secret(intent.PaymentReference), f.tokenRequest))

	e.present(f, e.walletRequest(session, intent.Currency, intent.DescriptorCountry, params.Amount, params.Label, f.tokenRequest))
}

func (e *Engine) present(f *flow, request WalletRequest) {
	body, err := json.Marshal(PaymentDataRequest(request))
	if err != nil {
		e.finish(f, failure(err))
		return
	}
	e.transition(f, entity.StateAwaitingWalletResult)
	e.wallet.RequestPayment(f.ctx, body, func(outcome entity.WalletOutcome) {
		e.onWalletOutcome(f, outcome)
	})
}

// walletRequest prefers currency and country of the payment and falls back to the configuration.
func (e *Engine) walletRequest(session *entity.SessionInfo, currency, country string, amount decimal.Decimal, label string, tokenRequest bool) WalletRequest {
	if currency == "" {
		currency = e.conf.CurrencyCode()
	}
	if country == "" {
		country = e.conf.CountryCode()
	}
	return WalletRequest{
		CardNetworks:      e.conf.CardNetworks(),
		AuthMethods:       e.conf.AuthMethods(),
		GatewayId:         session.GatewayId,
		GatewayMerchantId: session.GatewayMerchantId,
		MerchantId:        session.MerchantIdentifier,
		MerchantName:      session.MerchantName,
		CurrencyCode:      currency,
		CountryCode:       country,
		Amount:            amount,
		Label:             label,
		TokenRequest:      tokenRequest,
	}
}

func (e *Engine) checkReadiness(ctx context.Context, callback func(entity.ReadinessResult)) {
	request, err := json.Marshal(IsReadyToPayRequest(e.conf.CardNetworks(), e.conf.AuthMethods()))
	if err != nil {
		e.deliverReadiness(callback, entity.ReadinessResult{Err: asGooglePayError(err)})
		return
	}
	ready, err := e.wallet.IsReadyToPay(ctx, request)
	if err != nil {
		e.logger.Error("is ready to pay", err)
		e.deliverReadiness(callback, entity.ReadinessResult{Err: asGooglePayError(err)})
		return
	}
	e.logger.Info(fmt.Sprintf("google pay ready: %v", ready))
	e.deliverReadiness(callback, entity.ReadinessResult{Ready: ready})
}

// finish releases the guard and then delivers the result. Only the first call for a flow has
// any effect.
func (e *Engine) finish(f *flow, result entity.GooglePayResult) {
	e.mutex.Lock()
	if e.flow != f {
		e.mutex.Unlock()
		e.logger.Warn("result for a finished payment flow dropped")
		return
	}
	e.flow = nil
	e.state = entity.StateIdle
	e.mutex.Unlock()

	if result == nil {
		result = entity.Failure{Err: entity.NewError(entity.CodeInternal, "payment flow ended without result", nil)}
	}
	if failed, ok := result.(entity.Failure); ok {
		e.logger.Warn(fmt.Sprintf("payment flow failed: %v", failed.Err))
	} else {
		e.logger.Debug(fmt.Sprintf("payment flow finished: %s", result.Kind()))
	}
	e.deliver(f.callback, result)
}

// transition moves the state only while f owns the engine; nil stands for initialization outside
// any flow.
func (e *Engine) transition(f *flow, state entity.EngineState) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.flow != f {
		return
	}
	e.state = state
}

func (e *Engine) setSession(session *entity.SessionInfo) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.session = session
	if e.flow == nil {
		e.state = entity.StateReady
	}
}

func (e *Engine) sdkMode() bool {
	return e.conf.IsSdkMode() && e.gateway != nil
}

func (e *Engine) intentOf(f *flow) *entity.PaymentIntent {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return f.intent
}

func (e *Engine) recoverFlow(f *flow) {
	if r := recover(); r != nil {
		e.logger.Error("payment flow", fmt.Errorf("panic: %v", r))
		e.finish(f, entity.Failure{Err: entity.NewError(entity.CodeInternal, fmt.Sprintf("%v", r), nil)})
	}
}

func (e *Engine) recoverReadiness(callback func(entity.ReadinessResult)) {
	if r := recover(); r != nil {
		e.logger.Error("initialize", fmt.Errorf("panic: %v", r))
		e.deliverReadiness(callback, entity.ReadinessResult{
			Err: entity.NewError(entity.CodeInternal, fmt.Sprintf("%v", r), nil),
		})
	}
}

func (e *Engine) deliver(callback func(entity.GooglePayResult), result entity.GooglePayResult) {
	if callback == nil {
		return
	}
	if e.dispatch != nil {
		e.dispatch(func() { callback(result) })
		return
	}
	callback(result)
}

func (e *Engine) deliverReadiness(callback func(entity.ReadinessResult), result entity.ReadinessResult) {
	if callback == nil {
		return
	}
	if e.dispatch != nil {
		e.dispatch(func() { callback(result) })
		return
	}
	callback(result)
}

func parseAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, entity.NewError(entity.CodeInvalidAmount, fmt.Sprintf("invalid amount format: %q", value), err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, entity.NewError(entity.CodeInvalidAmount, fmt.Sprintf("amount must be greater than zero: %s", value), nil)
	}
	if !entity.IsMinorUnitAmount(amount) {
		return decimal.Zero, entity.NewError(entity.CodeInvalidAmount, fmt.Sprintf("amount has more than two decimal places: %s", value), nil)
	}
	return amount, nil
}

func failure(err error) entity.Failure {
	return entity.Failure{Err: asGooglePayError(err)}
}

func asGooglePayError(err error) *entity.GooglePayError {
	var googlePayError *entity.GooglePayError
	if errors.As(err, &googlePayError) {
		return googlePayError
	}
	var gatewayError *entity.GatewayError
	if errors.As(err, &gatewayError) {
		return entity.NewError(entity.CodeGateway, gatewayError.Error(), gatewayError)
	}
	var configError *entity.ConfigError
	if errors.As(err, &configError) {
		return entity.NewError(entity.CodeConfiguration, configError.Error(), configError)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return entity.NewError(entity.CodeNetwork, err.Error(), err)
	}
	return entity.NewError(entity.CodeInternal, err.Error(), err)
}
