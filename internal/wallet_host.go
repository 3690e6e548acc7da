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
	isReadyToPayPath = "/is_ready_to_pay"
	resolvePath      = "/resolve"

	defaultWalletHostTimeout = 10 * time.Second
)

// WalletHost is a PaymentsClient for a headless bridge: the payment sheet runs in a separate host
// application, which later posts the outcome to the bridge's /activity_result route.
type WalletHost struct {
	client      *resty.Client
	environment entity.Environment
	signer      *Signer
	logger      services.LogHandler
}

type isReadyToPayRequest struct {
	Environment entity.Environment `json:"environment"`
	Request     json.RawMessage    `json:"request"`
}

type isReadyToPayResponse struct {
	Result bool `json:"result"`
}

type resolveRequest struct {
	Environment entity.Environment `json:"environment"`
	RequestCode int                `json:"request_code"`
	Request     json.RawMessage    `json:"request"`
}

// NewWalletHost creates a client for the host at url. The environment tells the host which
// Google Pay environment (TEST or PRODUCTION) the payment client has to be created for.
func NewWalletHost(url string, environment entity.Environment, signer *Signer, timeout time.Duration) *WalletHost {
	if timeout <= 0 {
		timeout = defaultWalletHostTimeout
	}
	if environment == "" {
		environment = entity.EnvironmentTest
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(url, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger: discardLogger{}})
	return &WalletHost{
		client:      client,
		environment: environment,
		signer:      signer,
		logger:      discardLogger{},
	}
}

func (h *WalletHost) SetLogger(logger services.LogHandler) {
	h.logger = logger
	h.client.SetLogger(restyLogger{logger: logger})
}

func (h *WalletHost) IsReadyToPay(ctx context.Context, request []byte) (bool, error) {
	payload, err := json.Marshal(isReadyToPayRequest{Environment: h.environment, Request: request})
	if err != nil {
		return false, fmt.Errorf("encode is ready to pay request: %w", err)
	}
	body, err := h.post(ctx, isReadyToPayPath, payload)
	if err != nil {
		return false, err
	}
	var response isReadyToPayResponse
	if err = json.Unmarshal(body, &response); err != nil {
		return false, fmt.Errorf("parse is ready to pay response: %w", err)
	}
	return response.Result, nil
}

// ResolvePaymentData returns once the host accepted the request; the outcome arrives later.
func (h *WalletHost) ResolvePaymentData(ctx context.Context, request []byte, requestCode int) error {
	payload, err := json.Marshal(resolveRequest{Environment: h.environment, RequestCode: requestCode, Request: request})
	if err != nil {
		return fmt.Errorf("encode resolve request: %w", err)
	}
	_, err = h.post(ctx, resolvePath, payload)
	if err == nil {
		h.logger.Debug(fmt.Sprintf("payment sheet requested; request code %d; environment %s", requestCode, h.environment))
	}
	return err
}

func (h *WalletHost) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	request := h.client.R().
		SetContext(ctx).
		SetBody(payload)
	if h.signer.Enabled() {
		request.SetHeader(signatureHeader, h.signer.Sign(payload))
	}
	response, err := request.Post(path)
	if err != nil {
		return nil, fmt.Errorf("wallet host %s: %w", path, err)
	}
	if response.StatusCode() < 200 || response.StatusCode() >= 300 {
		return nil, fmt.Errorf("wallet host %s: status %d: %s", path, response.StatusCode(), strings.TrimSpace(string(response.Body())))
	}
	return response.Body(), nil
}
