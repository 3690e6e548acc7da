package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gpaylink/entity"
	"gpaylink/services"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const testTokenJson = `{"signature":"MEYCIQ","intermediateSigningKey":{"signedKey":"{\"keyValue\":\"MFkw\"}","signatures":["MEQCIF"]},"protocolVersion":"ECv2","signedMessage":"{\"encryptedMessage\":\"abc\"}"}`

func walletPaymentData(token string) string {
	return `{"apiVersion":2,"apiVersionMinor":0,"paymentMethodData":{"type":"CARD","description":"Visa 1111","tokenizationData":{"type":"PAYMENT_GATEWAY","token":` + strconv.Quote(token) + `}}}`
}

type fakeGateway struct {
	mutex sync.Mutex

	session    *entity.SessionInfo
	intent     *entity.PaymentIntent
	settlement *entity.SettlementResult
	details    *entity.PaymentDetails

	sessionErr error
	createErr  error
	processErr error
	detailsErr error

	created      []*entity.CreatePaymentRequest
	processed    []*entity.ProcessPaymentRequest
	accessTokens []string
	detailsFor   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		session: &entity.SessionInfo{
			MerchantIdentifier: "BCR2DN4T",
			GatewayMerchantId:  "Acme-EE",
			MerchantName:       "Acme",
			GatewayId:          "EveryPay",
		},
		intent: &entity.PaymentIntent{
			PaymentReference:  "P1",
			MobileAccessToken: "T1",
			Currency:          "EUR",
			DescriptorCountry: "EE",
		},
		settlement: &entity.SettlementResult{State: "settled", PaymentReference: "P1"},
	}
}

func (g *fakeGateway) OpenSession(_ context.Context) (*entity.SessionInfo, error) {
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	session := *g.session
	return &session, nil
}

func (g *fakeGateway) CreatePayment(_ context.Context, request *entity.CreatePaymentRequest) (*entity.PaymentIntent, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.created = append(g.created, request)
	if g.createErr != nil {
		return nil, g.createErr
	}
	intent := *g.intent
	return &intent, nil
}

func (g *fakeGateway) ProcessPayment(ctx context.Context, mobileAccessToken string, request *entity.ProcessPaymentRequest) (*entity.SettlementResult, error) {
	if ctx.Err() != nil {
		return nil, entity.NewError(entity.CodeNetwork, "POST /api/v4/google_pay/payment_data", ctx.Err())
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.processed = append(g.processed, request)
	g.accessTokens = append(g.accessTokens, mobileAccessToken)
	if g.processErr != nil {
		return nil, g.processErr
	}
	settlement := *g.settlement
	return &settlement, nil
}

func (g *fakeGateway) GetPaymentDetails(ctx context.Context, paymentReference string) (*entity.PaymentDetails, error) {
	if ctx.Err() != nil {
		return nil, entity.NewError(entity.CodeNetwork, "GET /api/v4/payments/"+paymentReference, ctx.Err())
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.detailsFor = append(g.detailsFor, paymentReference)
	if g.detailsErr != nil {
		return nil, g.detailsErr
	}
	if g.details == nil {
		return &entity.PaymentDetails{PaymentReference: paymentReference}, nil
	}
	details := *g.details
	return &details, nil
}

func (g *fakeGateway) createdCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.created)
}

func (g *fakeGateway) processedCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.processed)
}

type fakeWalletClient struct {
	mutex sync.Mutex

	ready      bool
	readyErr   error
	resolveErr error

	requests [][]byte
	codes    []int
}

func (c *fakeWalletClient) IsReadyToPay(_ context.Context, _ []byte) (bool, error) {
	return c.ready, c.readyErr
}

func (c *fakeWalletClient) ResolvePaymentData(_ context.Context, request []byte, requestCode int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.requests = append(c.requests, request)
	c.codes = append(c.codes, requestCode)
	return c.resolveErr
}

func (c *fakeWalletClient) lastRequest(t *testing.T) map[string]interface{} {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	require.NotEmpty(t, c.requests)
	var request map[string]interface{}
	require.NoError(t, json.Unmarshal(c.requests[len(c.requests)-1], &request))
	return request
}

func sdkConfig(t *testing.T) *entity.GooglePayConfig {
	conf, err := entity.NewGooglePayConfig(entity.GooglePayParams{
		CountryCode: "EE",
		Credentials: &entity.Credentials{
			ApiUsername: "api_user",
			ApiSecret:   "api_secret",
			ApiBaseUrl:  "https://igw-demo.every-pay.com",
			AccountName: "EUR3D1",
			CustomerUrl: "https://shop.example.com/return",
		},
	})
	require.NoError(t, err)
	return conf
}

func backendConfig(t *testing.T) *entity.GooglePayConfig {
	conf, err := entity.NewGooglePayConfig(entity.GooglePayParams{CountryCode: "EE"})
	require.NoError(t, err)
	return conf
}

type testEngine struct {
	*Engine
	gateway *fakeGateway
	client  *fakeWalletClient
	wallet  *WalletAdapter
}

func newSdkEngine(t *testing.T) *testEngine {
	gateway := newFakeGateway()
	client := &fakeWalletClient{ready: true}
	wallet := NewWalletAdapter(client, 0)
	return &testEngine{
		Engine:  NewEngine(sdkConfig(t), gateway, wallet),
		gateway: gateway,
		client:  client,
		wallet:  wallet,
	}
}

func newBackendEngine(t *testing.T) *testEngine {
	client := &fakeWalletClient{ready: true}
	wallet := NewWalletAdapter(client, 0)
	return &testEngine{
		Engine: NewEngine(backendConfig(t), nil, wallet),
		client: client,
		wallet: wallet,
	}
}

func (e *testEngine) initialize(t *testing.T) {
	readiness := make(chan entity.ReadinessResult, 1)
	e.Initialize(context.Background(), func(result entity.ReadinessResult) {
		readiness <- result
	})
	select {
	case result := <-readiness:
		require.Nil(t, result.Err)
		require.True(t, result.Ready)
	case <-time.After(2 * time.Second):
		t.Fatal("initialize did not complete")
	}
	require.Equal(t, entity.StateReady, e.State())
}

func (e *testEngine) initializeBackend(t *testing.T) {
	readiness := make(chan entity.ReadinessResult, 1)
	e.InitializeWithBackendData(context.Background(), &entity.GooglePaySessionData{
		MerchantId:        "BCR2DN4T",
		MerchantName:      "Acme",
		GatewayId:         "EveryPay",
		GatewayMerchantId: "Acme-EE",
	}, func(result entity.ReadinessResult) {
		readiness <- result
	})
	select {
	case result := <-readiness:
		require.Nil(t, result.Err)
		require.True(t, result.Ready)
	case <-time.After(2 * time.Second):
		t.Fatal("initialize did not complete")
	}
}

// walletResult waits for the payment sheet and answers it like the host would.
func (e *testEngine) walletResult(t *testing.T, resultCode int, data *entity.ActivityResultData) {
	require.Eventually(t, e.wallet.IsPending, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, entity.StateAwaitingWalletResult, e.State())
	require.True(t, e.HandleActivityResult(DefaultRequestCode, resultCode, data))
}

func resultCollector() (chan entity.GooglePayResult, func(entity.GooglePayResult)) {
	results := make(chan entity.GooglePayResult, 2)
	return results, func(result entity.GooglePayResult) {
		results <- result
	}
}

func waitResult(t *testing.T, results <-chan entity.GooglePayResult) entity.GooglePayResult {
	select {
	case result := <-results:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	return nil
}

func requireFailure(t *testing.T, result entity.GooglePayResult, code entity.ErrorCode) *entity.GooglePayError {
	failure, ok := result.(entity.Failure)
	require.True(t, ok, "expected failure, got %T", result)
	require.NotNil(t, failure.Err)
	assert.Equal(t, code, failure.Err.Code, failure.Err.Error())
	return failure.Err
}

func (e *testEngine) requireIdle(t *testing.T) {
	assert.False(t, e.IsInProgress())
	assert.Equal(t, entity.StateIdle, e.State())
	assert.False(t, e.wallet.IsPending())
}

func paymentRequest() services.PaymentRequest {
	return services.PaymentRequest{
		Amount:         "10.00",
		Label:          "Order 1",
		OrderReference: "order-1",
		CustomerEmail:  "buyer@example.com",
	}
}

func TestEngineMakePaymentSettled(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	paymentData := walletPaymentData(testTokenJson)
	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: paymentData})

	result := waitResult(t, results)
	success, ok := result.(entity.Success)
	require.True(t, ok, "expected success, got %#v", result)
	assert.Equal(t, paymentData, success.PaymentData)
	engine.requireIdle(t)

	require.Len(t, engine.gateway.created, 1)
	created := engine.gateway.created[0]
	assert.Equal(t, "10.00", created.Amount.String())
	assert.Equal(t, "order-1", created.OrderReference)
	assert.Equal(t, "api_user", created.ApiUsername)
	assert.Equal(t, "EUR3D1", created.AccountName)
	assert.Equal(t, "EUR", created.CurrencyCode)
	assert.True(t, created.MobilePayment)
	assert.False(t, created.RequestToken)
	assert.NotEmpty(t, created.Nonce)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, created.Timestamp)

	require.Len(t, engine.gateway.processed, 1)
	processed := engine.gateway.processed[0]
	assert.Equal(t, "P1", processed.PaymentReference)
	assert.Equal(t, "T1", engine.gateway.accessTokens[0])
	assert.False(t, processed.TokenConsentAgreed)
	assert.Equal(t, "MEYCIQ", processed.Signature)
	assert.Equal(t, []string{"MEQCIF"}, processed.IntermediateSigningKey.Signatures)
	assert.Equal(t, "ECv2", processed.ProtocolVersion)
	assert.Empty(t, engine.gateway.detailsFor)

	request := engine.client.lastRequest(t)
	transactionInfo := request["transactionInfo"].(map[string]interface{})
	assert.Equal(t, "10.00", transactionInfo["totalPrice"])
	assert.Equal(t, "FINAL", transactionInfo["totalPriceStatus"])
	assert.Equal(t, "EUR", transactionInfo["currencyCode"])
	assert.Equal(t, "EE", transactionInfo["countryCode"])
	method := request["allowedPaymentMethods"].([]interface{})[0].(map[string]interface{})
	tokenization := method["tokenizationSpecification"].(map[string]interface{})["parameters"].(map[string]interface{})
	assert.Equal(t, "everypay", tokenization["gateway"])
	assert.Equal(t, "acme-ee", tokenization["gatewayMerchantId"])
	assert.Equal(t, []int{DefaultRequestCode}, engine.client.codes)
}

func TestEngineSettlesAfterCallerContextCanceled(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	ctx, cancel := context.WithCancel(context.Background())
	results, callback := resultCollector()
	engine.MakePayment(ctx, paymentRequest(), callback)
	require.Eventually(t, engine.wallet.IsPending, 2*time.Second, 5*time.Millisecond)
	cancel()
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: walletPaymentData(testTokenJson)})

	result := waitResult(t, results)
	_, ok := result.(entity.Success)
	require.True(t, ok, "expected success, got %#v", result)
	assert.Equal(t, 1, engine.gateway.processedCount())
	engine.requireIdle(t)
}

func TestEngineRequestTokenWithBackendData(t *testing.T) {
	engine := newBackendEngine(t)
	engine.initializeBackend(t)

	paymentData := walletPaymentData(testTokenJson)
	results, callback := resultCollector()
	engine.RequestTokenWithBackendData(context.Background(), &entity.GooglePayBackendData{
		PaymentReference:  "P2",
		MobileAccessToken: "T2",
		Amount:            "0",
		Label:             "Save card",
		CurrencyCode:      "EUR",
		CountryCode:       "EE",
	}, callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: paymentData})

	result := waitResult(t, results)
	received, ok := result.(entity.TokenReceived)
	require.True(t, ok, "expected token, got %#v", result)
	require.NotNil(t, received.TokenData)
	assert.True(t, received.TokenData.TokenConsentAgreed)
	assert.Equal(t, "P2", received.TokenData.PaymentReference)
	assert.Equal(t, "T2", received.TokenData.MobileAccessToken)
	assert.Equal(t, "MEYCIQ", received.TokenData.Signature)
	assert.Equal(t, paymentData, received.PaymentData)
	assert.Nil(t, received.Settlement)
	assert.Nil(t, received.PaymentDetails)
	engine.requireIdle(t)

	transactionInfo := engine.client.lastRequest(t)["transactionInfo"].(map[string]interface{})
	assert.Equal(t, "0", transactionInfo["totalPrice"])
	assert.Equal(t, "ESTIMATED", transactionInfo["totalPriceStatus"])
	assert.Equal(t, "Save card", transactionInfo["totalPriceLabel"])
}

func TestEngineMakePaymentWithBackendData(t *testing.T) {
	engine := newBackendEngine(t)
	engine.initializeBackend(t)

	paymentData := walletPaymentData(testTokenJson)
	results, callback := resultCollector()
	engine.MakePaymentWithBackendData(context.Background(), &entity.GooglePayBackendData{
		PaymentReference:  "P3",
		MobileAccessToken: "T3",
		Amount:            "25.5",
	}, callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: paymentData})

	received, ok := waitResult(t, results).(entity.TokenReceived)
	require.True(t, ok)
	assert.False(t, received.TokenData.TokenConsentAgreed)
	assert.Equal(t, "P3", received.TokenData.PaymentReference)

	transactionInfo := engine.client.lastRequest(t)["transactionInfo"].(map[string]interface{})
	assert.Equal(t, "25.50", transactionInfo["totalPrice"])
	assert.Equal(t, "FINAL", transactionInfo["totalPriceStatus"])
	assert.Equal(t, "EUR", transactionInfo["currencyCode"])
}

func TestEngineBackendDataValidation(t *testing.T) {
	engine := newBackendEngine(t)
	engine.initializeBackend(t)

	results, callback := resultCollector()
	engine.MakePaymentWithBackendData(context.Background(), &entity.GooglePayBackendData{
		PaymentReference: "P3",
		Amount:           "10.00",
	}, callback)
	requireFailure(t, waitResult(t, results), entity.CodeInvalidRequest)
	engine.requireIdle(t)

	engine.MakePaymentWithBackendData(context.Background(), &entity.GooglePayBackendData{
		PaymentReference:  "P3",
		MobileAccessToken: "T3",
		Amount:            "0",
	}, callback)
	requireFailure(t, waitResult(t, results), entity.CodeInvalidAmount)
	engine.requireIdle(t)
	assert.Empty(t, engine.client.requests)
}

func TestEngineCanceledThenRetry(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)
	engine.walletResult(t, ResultCanceled, nil)

	result := waitResult(t, results)
	assert.Equal(t, entity.ResultCanceled, result.Kind())
	engine.requireIdle(t)
	assert.Equal(t, 0, engine.gateway.processedCount())

	engine.MakePayment(context.Background(), paymentRequest(), callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: walletPaymentData(testTokenJson)})
	assert.Equal(t, entity.ResultSuccess, waitResult(t, results).Kind())
	assert.Equal(t, 2, engine.gateway.createdCount())
}

func TestEngineRejectsConcurrentRequest(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	first, firstCallback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), firstCallback)
	require.Eventually(t, engine.wallet.IsPending, 2*time.Second, 5*time.Millisecond)

	second, secondCallback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), secondCallback)
	requireFailure(t, waitResult(t, second), entity.CodeInProgress)
	engine.RequestToken(context.Background(), "", secondCallback)
	requireFailure(t, waitResult(t, second), entity.CodeInProgress)

	assert.True(t, engine.IsInProgress())
	assert.Equal(t, 1, engine.gateway.createdCount())

	require.True(t, engine.HandleActivityResult(DefaultRequestCode, ResultOK, &entity.ActivityResultData{
		PaymentData: walletPaymentData(testTokenJson),
	}))
	assert.Equal(t, entity.ResultSuccess, waitResult(t, first).Kind())
	engine.requireIdle(t)
	assert.Empty(t, second)
}

func TestEngineSettlementStates(t *testing.T) {
	tests := []struct {
		state   string
		kind    entity.ResultKind
		code    entity.ErrorCode
		message string
	}{
		{state: "AUTHORIZED", kind: entity.ResultSuccess},
		{state: "completed", kind: entity.ResultSuccess},
		{state: "failed", kind: entity.ResultError, code: entity.CodePaymentFailed, message: "payment failed with state: failed"},
		{state: "voided", kind: entity.ResultError, code: entity.CodePaymentFailed, message: "payment failed with state: voided"},
		{state: "waiting_for_3ds", kind: entity.ResultError, code: entity.CodePaymentPending, message: "pending additional authentication: waiting_for_3ds"},
		{state: "Processing", kind: entity.ResultError, code: entity.CodePaymentPending, message: "pending additional authentication: processing"},
		{state: "refunded", kind: entity.ResultError, code: entity.CodeUnknownState, message: "unknown payment state: refunded"},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			engine := newSdkEngine(t)
			engine.gateway.settlement = &entity.SettlementResult{State: tt.state}
			engine.initialize(t)

			results, callback := resultCollector()
			engine.MakePayment(context.Background(), paymentRequest(), callback)
			engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: walletPaymentData(testTokenJson)})

			result := waitResult(t, results)
			require.Equal(t, tt.kind, result.Kind())
			if tt.code != "" {
				err := requireFailure(t, result, tt.code)
				assert.Equal(t, tt.message, err.Message)
			}
			engine.requireIdle(t)
		})
	}
}

func TestEngineRequestTokenSettled(t *testing.T) {
	engine := newSdkEngine(t)
	engine.gateway.settlement = &entity.SettlementResult{State: "settled", PaymentReference: "P1-settled"}
	engine.gateway.details = &entity.PaymentDetails{
		PaymentReference: "P1-settled",
		PaymentState:     "settled",
		CardDetails:      &entity.CardDetails{Token: "card-token-1", LastFourDigits: "1111"},
	}
	engine.initialize(t)

	results, callback := resultCollector()
	engine.RequestToken(context.Background(), "Save card", callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: walletPaymentData(testTokenJson)})

	received, ok := waitResult(t, results).(entity.TokenReceived)
	require.True(t, ok)
	assert.True(t, received.TokenData.TokenConsentAgreed)
	assert.Equal(t, "P1", received.TokenData.PaymentReference)
	require.NotNil(t, received.Settlement)
	assert.Equal(t, "settled", received.Settlement.State)
	require.NotNil(t, received.PaymentDetails)
	assert.Equal(t, "card-token-1", received.PaymentDetails.CardDetails.Token)
	engine.requireIdle(t)

	require.Len(t, engine.gateway.created, 1)
	created := engine.gateway.created[0]
	assert.Equal(t, "0.00", created.Amount.String())
	assert.True(t, created.RequestToken)
	assert.True(t, created.TokenConsentAgreed)
	assert.Equal(t, entity.TokenAgreementUnscheduled, created.TokenAgreement)
	assert.True(t, strings.HasPrefix(created.OrderReference, "token-"))

	require.Len(t, engine.gateway.processed, 1)
	assert.True(t, engine.gateway.processed[0].TokenConsentAgreed)
	assert.Equal(t, []string{"P1-settled"}, engine.gateway.detailsFor)
}

func TestEngineRequestTokenNotAvailable(t *testing.T) {
	engine := newSdkEngine(t)
	engine.gateway.details = &entity.PaymentDetails{PaymentReference: "P1", PaymentState: "settled"}
	engine.initialize(t)

	results, callback := resultCollector()
	engine.RequestToken(context.Background(), "", callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: walletPaymentData(testTokenJson)})

	err := requireFailure(t, waitResult(t, results), entity.CodeTokenNotAvailable)
	assert.Equal(t, "token not available in payment details", err.Message)
	assert.Equal(t, []string{"P1"}, engine.gateway.detailsFor)
	engine.requireIdle(t)
}

func TestEngineMissingTokenField(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	token := `{"signature":"MEYCIQ","intermediateSigningKey":{"signedKey":"k","signatures":["s"]},"protocolVersion":"ECv2"}`
	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: walletPaymentData(token)})

	err := requireFailure(t, waitResult(t, results), entity.CodeMissingField)
	assert.Contains(t, err.Message, "signedMessage")
	assert.Equal(t, 0, engine.gateway.processedCount())
	engine.requireIdle(t)
}

func TestEngineNotInitialized(t *testing.T) {
	engine := newSdkEngine(t)

	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)
	requireFailure(t, waitResult(t, results), entity.CodeNotInitialized)
	assert.Equal(t, 0, engine.gateway.createdCount())
	assert.False(t, engine.IsInProgress())
}

func TestEngineModeMismatch(t *testing.T) {
	engine := newBackendEngine(t)

	readiness := make(chan entity.ReadinessResult, 1)
	engine.Initialize(context.Background(), func(result entity.ReadinessResult) {
		readiness <- result
	})
	result := <-readiness
	require.NotNil(t, result.Err)
	assert.Equal(t, entity.CodeModeMismatch, result.Err.Code)

	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)
	requireFailure(t, waitResult(t, results), entity.CodeModeMismatch)
	engine.RequestToken(context.Background(), "", callback)
	requireFailure(t, waitResult(t, results), entity.CodeModeMismatch)
	assert.Equal(t, entity.StateIdle, engine.State())
}

func TestEngineInvalidAmount(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	for _, amount := range []string{"abc", "0", "-1.00", "", "10.005", "0.001"} {
		results, callback := resultCollector()
		request := paymentRequest()
		request.Amount = amount
		engine.MakePayment(context.Background(), request, callback)
		requireFailure(t, waitResult(t, results), entity.CodeInvalidAmount)
		engine.requireIdle(t)
	}
	assert.Equal(t, 0, engine.gateway.createdCount())
}

func TestAsGooglePayErrorCodes(t *testing.T) {
	configError := asGooglePayError(fmt.Errorf("wallet config: %w", &entity.ConfigError{Field: "environment", Reason: "must be TEST or PRODUCTION"}))
	assert.Equal(t, entity.CodeConfiguration, configError.Code)
	var cause *entity.ConfigError
	require.True(t, errors.As(configError, &cause))
	assert.Equal(t, "environment", cause.Field)

	assert.Equal(t, entity.CodeNetwork, asGooglePayError(context.Canceled).Code)
	assert.Equal(t, entity.CodeInternal, asGooglePayError(errors.New("boom")).Code)
}

func TestEngineCreatePaymentError(t *testing.T) {
	engine := newSdkEngine(t)
	engine.gateway.createErr = &entity.GatewayError{StatusCode: 422, Code: "4024", Message: "invalid order reference"}
	engine.initialize(t)

	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)

	err := requireFailure(t, waitResult(t, results), entity.CodeGateway)
	var gatewayError *entity.GatewayError
	require.True(t, errors.As(err, &gatewayError))
	assert.Equal(t, 422, gatewayError.StatusCode)
	assert.Empty(t, engine.client.requests)
	engine.requireIdle(t)
}

func TestEngineProcessPaymentNetworkError(t *testing.T) {
	engine := newSdkEngine(t)
	engine.gateway.processErr = entity.NewError(entity.CodeNetwork, "POST /api/v4/google_pay/payment_data", errors.New("connection reset"))
	engine.initialize(t)

	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)
	engine.walletResult(t, ResultOK, &entity.ActivityResultData{PaymentData: walletPaymentData(testTokenJson)})

	requireFailure(t, waitResult(t, results), entity.CodeNetwork)
	engine.requireIdle(t)
}

func TestEngineWalletError(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)
	engine.walletResult(t, ResultError, &entity.ActivityResultData{StatusCode: 8, StatusMessage: "internal error"})

	err := requireFailure(t, waitResult(t, results), entity.CodeWallet)
	assert.Contains(t, err.Message, "internal error")
	engine.requireIdle(t)
}

func TestEngineWalletNotStarted(t *testing.T) {
	engine := newSdkEngine(t)
	engine.client.resolveErr = errors.New("host unreachable")
	engine.initialize(t)

	results, callback := resultCollector()
	engine.MakePayment(context.Background(), paymentRequest(), callback)

	requireFailure(t, waitResult(t, results), entity.CodeWallet)
	engine.requireIdle(t)
}

func TestEngineDuplicateActivityResult(t *testing.T) {
	engine := newBackendEngine(t)
	engine.initializeBackend(t)

	results, callback := resultCollector()
	engine.MakePaymentWithBackendData(context.Background(), &entity.GooglePayBackendData{
		PaymentReference:  "P4",
		MobileAccessToken: "T4",
		Amount:            "1.00",
	}, callback)
	engine.walletResult(t, ResultCanceled, nil)
	assert.Equal(t, entity.ResultCanceled, waitResult(t, results).Kind())

	assert.True(t, engine.HandleActivityResult(DefaultRequestCode, ResultCanceled, nil))
	assert.False(t, engine.HandleActivityResult(42, ResultCanceled, nil))
	assert.Empty(t, results)
}

func TestEngineInitializeSessionError(t *testing.T) {
	engine := newSdkEngine(t)
	engine.gateway.sessionErr = &entity.GatewayError{StatusCode: 401, Message: "unauthorized"}

	readiness := make(chan entity.ReadinessResult, 1)
	engine.Initialize(context.Background(), func(result entity.ReadinessResult) {
		readiness <- result
	})
	result := <-readiness
	require.NotNil(t, result.Err)
	assert.Equal(t, entity.CodeGateway, result.Err.Code)
	assert.Equal(t, entity.StateIdle, engine.State())
	assert.Nil(t, engine.Session())
}

func TestEngineInitializeStoresSession(t *testing.T) {
	engine := newSdkEngine(t)
	engine.initialize(t)

	session := engine.Session()
	require.NotNil(t, session)
	assert.Equal(t, "Acme", session.MerchantName)

	session.MerchantName = "changed"
	assert.Equal(t, "Acme", engine.Session().MerchantName)
}

func TestEngineDispatcher(t *testing.T) {
	engine := newSdkEngine(t)
	var dispatched []func()
	engine.SetDispatcher(func(run func()) {
		dispatched = append(dispatched, run)
	})

	var delivered []entity.GooglePayResult
	engine.MakePayment(context.Background(), paymentRequest(), func(result entity.GooglePayResult) {
		delivered = append(delivered, result)
	})
	require.Len(t, dispatched, 1)
	assert.Empty(t, delivered)

	dispatched[0]()
	require.Len(t, delivered, 1)
	requireFailure(t, delivered[0], entity.CodeNotInitialized)
}
