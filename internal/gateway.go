package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/go-resty/resty/v2"
	"gpaylink/entity"
	"gpaylink/services"
	"strings"
	"time"
)

const (
	openSessionPath    = "/api/v4/google_pay/open_session"
	createPaymentPath  = "/api/v4/payments/oneoff"
	processPaymentPath = "/api/v4/google_pay/payment_data"
	paymentDetailsPath = "/api/v4/payments/{payment_reference}"

	defaultGatewayTimeout = 30 * time.Second
)

// Gateway calls the payment gateway REST API with the merchant credentials.
type Gateway struct {
	credentials *entity.Credentials
	client      *resty.Client
	logger      services.LogHandler
}

// NewGateway needs a configuration in SDK mode.
func NewGateway(conf *entity.GooglePayConfig, timeout time.Duration) (*Gateway, error) {
	credentials := conf.Credentials()
	if credentials == nil {
		return nil, fmt.Errorf("gateway: %w", entity.ErrModeMismatch)
	}
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(credentials.ApiBaseUrl, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger: discardLogger{}})
	return &Gateway{
		credentials: credentials,
		client:      client,
		logger:      discardLogger{},
	}, nil
}

func (g *Gateway) SetLogger(logger services.LogHandler) {
	g.logger = logger
	g.client.SetLogger(restyLogger{logger: logger})
}

func (g *Gateway) OpenSession(ctx context.Context) (*entity.SessionInfo, error) {
	body := entity.OpenSessionRequest{
		ApiUsername: g.credentials.ApiUsername,
		AccountName: g.credentials.AccountName,
	}
	request := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.credentials.ApiUsername, g.credentials.ApiSecret).
		SetHeader("Content-Type", "application/json").
		SetBody(body)

	var session entity.SessionInfo
	if err := g.execute(request, "POST", openSessionPath, &session); err != nil {
		return nil, err
	}
	g.logger.Debug(fmt.Sprintf("session opened: merchant %s; gateway %s", session.MerchantName, session.GatewayId))
	return &session, nil
}

func (g *Gateway) CreatePayment(ctx context.Context, body *entity.CreatePaymentRequest) (*entity.PaymentIntent, error) {
	request := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.credentials.ApiUsername, g.credentials.ApiSecret).
		SetHeader("Content-Type", "application/json").
		SetBody(body)

	var intent entity.PaymentIntent
	if err := g.execute(request, "POST", createPaymentPath, &intent); err != nil {
		return nil, err
	}
	g.logger.Debug(fmt.Sprintf("payment created: %s; state %s", secret(intent.PaymentReference), intent.PaymentState))
	return &intent, nil
}

// ProcessPayment authorizes with the mobile access token of the payment, not the merchant credentials.
func (g *Gateway) ProcessPayment(ctx context.Context, mobileAccessToken string, body *entity.ProcessPaymentRequest) (*entity.SettlementResult, error) {
	request := g.client.R().
		SetContext(ctx).
		SetAuthToken(mobileAccessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(body)

	var result entity.SettlementResult
	if err := g.execute(request, "POST", processPaymentPath, &result); err != nil {
		return nil, err
	}
	g.logger.Debug(fmt.Sprintf("payment data processed: %s; state %s", secret(body.PaymentReference), result.State))
	return &result, nil
}

func (g *Gateway) GetPaymentDetails(ctx context.Context, paymentReference string) (*entity.PaymentDetails, error) {
	request := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.credentials.ApiUsername, g.credentials.ApiSecret).
		SetPathParam("payment_reference", paymentReference).
		SetQueryParam("api_username", g.credentials.ApiUsername)

	var details entity.PaymentDetails
	if err := g.execute(request, "GET", paymentDetailsPath, &details); err != nil {
		return nil, err
	}
	if details.CardDetails.IsEmpty() {
		details.CardDetails = nil
	}
	return &details, nil
}

func (g *Gateway) execute(request *resty.Request, method, path string, result interface{}) error {
	response, err := request.Execute(method, path)
	if err != nil {
		return entity.NewError(entity.CodeNetwork, fmt.Sprintf("%s %s", method, path), err)
	}
	body := response.Body()
	if response.StatusCode() < 200 || response.StatusCode() >= 300 {
		gatewayError := parseGatewayError(response.StatusCode(), body)
		g.logger.Warn(fmt.Sprintf("%s %s: %v", method, path, gatewayError))
		return gatewayError
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return &entity.GatewayError{StatusCode: response.StatusCode(), Message: "empty response body"}
	}
	if err = json.Unmarshal(body, result); err != nil {
		return entity.NewError(entity.CodeGateway, fmt.Sprintf("parse %s response", path), err)
	}
	return nil
}
