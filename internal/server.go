package internal

import (
	"encoding/json"
	"fmt"
	"github.com/julienschmidt/httprouter"
	"gpaylink/config"
	"gpaylink/entity"
	"gpaylink/services"
	"io"
	"net"
	"net/http"
)

const (
	initializePath        = "/initialize"
	initializeBackendPath = "/initialize/backend"
	paymentsPath          = "/payments"
	paymentsBackendPath   = "/payments/backend"
	tokensPath            = "/tokens"
	tokensBackendPath     = "/tokens/backend"
	activityResultPath    = "/activity_result"
	statusPath            = "/status"

	maxBodySize = 1 << 20
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	payments   services.Payments
	signer     *Signer
	logger     services.LogHandler
}

type tokenRequest struct {
	Label string `json:"label"`
}

type activityResultRequest struct {
	RequestCode   int    `json:"request_code"`
	ResultCode    int    `json:"result_code"`
	PaymentData   string `json:"payment_data,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`
	StatusMessage string `json:"status_message,omitempty"`
}

type activityResultResponse struct {
	Handled bool `json:"handled"`
}

type statusResponse struct {
	State      entity.EngineState `json:"state"`
	InProgress bool               `json:"in_progress"`
}

// ResultResponse is the JSON form of a GooglePayResult or ReadinessResult.
type ResultResponse struct {
	Result         string                     `json:"result"`
	Ready          *bool                      `json:"ready,omitempty"`
	PaymentData    string                     `json:"payment_data,omitempty"`
	TokenData      *entity.GooglePayTokenData `json:"token_data,omitempty"`
	Settlement     *entity.SettlementResult   `json:"settlement,omitempty"`
	PaymentDetails *entity.PaymentDetails     `json:"payment_details,omitempty"`
	ErrorCode      entity.ErrorCode           `json:"error_code,omitempty"`
	ErrorMessage   string                     `json:"error_message,omitempty"`
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf:   conf,
		logger: discardLogger{},
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.POST(initializePath, s.initialize)
	router.POST(initializeBackendPath, s.initializeBackend)
	router.POST(paymentsPath, s.makePayment)
	router.POST(paymentsBackendPath, s.makePaymentBackend)
	router.POST(tokensPath, s.requestToken)
	router.POST(tokensBackendPath, s.requestTokenBackend)
	router.POST(activityResultPath, s.activityResult)
	router.GET(statusPath, s.status)
}

func (s *Server) SetPaymentsService(payments services.Payments) {
	s.payments = payments
}

func (s *Server) SetSigner(signer *Signer) {
	s.signer = signer
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if err := s.checkSigning(); err != nil {
		return err
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}

	return err
}

// checkSigning refuses to expose an unsigned /activity_result route beyond the loopback interface.
func (s *Server) checkSigning() error {
	if s.signer.Enabled() {
		return nil
	}
	if !isLoopback(s.conf.Listen.BindIP) {
		return fmt.Errorf("wallet host secret is required when listening on %q", s.conf.Listen.BindIP)
	}
	s.logger.Warn(fmt.Sprintf("wallet host secret not set: %s accepts unsigned requests", activityResultPath))
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) initialize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := RequestContext(r)
	reqID := GetRequestID(ctx)

	s.logger.Info(fmt.Sprintf("[%s] initialize", reqID))
	results := make(chan entity.ReadinessResult, 1)
	s.payments.Initialize(ctx, func(result entity.ReadinessResult) {
		results <- result
	})

	select {
	case result := <-results:
		s.writeJSON(w, readinessResponse(result))
	case <-ctx.Done():
		s.logger.Warn(fmt.Sprintf("[%s] initialize: request closed before result", reqID))
	}
}

func (s *Server) initializeBackend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := RequestContext(r)
	reqID := GetRequestID(ctx)

	var data entity.GooglePaySessionData
	if err := readBody(r, &data); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] initialize backend: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("[%s] initialize with backend session: merchant %s", reqID, data.MerchantName))
	results := make(chan entity.ReadinessResult, 1)
	s.payments.InitializeWithBackendData(ctx, &data, func(result entity.ReadinessResult) {
		results <- result
	})

	select {
	case result := <-results:
		s.writeJSON(w, readinessResponse(result))
	case <-ctx.Done():
		s.logger.Warn(fmt.Sprintf("[%s] initialize backend: request closed before result", reqID))
	}
}

func (s *Server) makePayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := RequestContext(r)
	reqID := GetRequestID(ctx)

	var request services.PaymentRequest
	if err := readBody(r, &request); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] make payment: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("[%s] make payment: order %s, amount %s", reqID, request.OrderReference, request.Amount))
	results := make(chan entity.GooglePayResult, 1)
	s.payments.MakePayment(ctx, request, func(result entity.GooglePayResult) {
		results <- result
	})
	s.awaitResult(w, r, reqID, results)
}

func (s *Server) makePaymentBackend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := RequestContext(r)
	reqID := GetRequestID(ctx)

	var data entity.GooglePayBackendData
	if err := readBody(r, &data); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] make payment backend: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("[%s] make payment with backend data: payment %s", reqID, secret(data.PaymentReference)))
	results := make(chan entity.GooglePayResult, 1)
	s.payments.MakePaymentWithBackendData(ctx, &data, func(result entity.GooglePayResult) {
		results <- result
	})
	s.awaitResult(w, r, reqID, results)
}

func (s *Server) requestToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := RequestContext(r)
	reqID := GetRequestID(ctx)

	var request tokenRequest
	if err := readBody(r, &request); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] request token: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("[%s] request token", reqID))
	results := make(chan entity.GooglePayResult, 1)
	s.payments.RequestToken(ctx, request.Label, func(result entity.GooglePayResult) {
		results <- result
	})
	s.awaitResult(w, r, reqID, results)
}

func (s *Server) requestTokenBackend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := RequestContext(r)
	reqID := GetRequestID(ctx)

	var data entity.GooglePayBackendData
	if err := readBody(r, &data); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] request token backend: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("[%s] request token with backend data: payment %s", reqID, secret(data.PaymentReference)))
	results := make(chan entity.GooglePayResult, 1)
	s.payments.RequestTokenWithBackendData(ctx, &data, func(result entity.GooglePayResult) {
		results <- result
	})
	s.awaitResult(w, r, reqID, results)
}

func (s *Server) activityResult(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := RequestContext(r)
	reqID := GetRequestID(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] activity result: read request body", reqID), err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if s.signer.Enabled() && !s.signer.Verify(body, r.Header.Get(signatureHeader)) {
		s.logger.Warn(fmt.Sprintf("[%s] activity result: invalid signature", reqID))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var request activityResultRequest
	if err = json.Unmarshal(body, &request); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] activity result: decode request body: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("[%s] activity result: request code %d, result code %d", reqID, request.RequestCode, request.ResultCode))
	handled := s.payments.HandleActivityResult(request.RequestCode, request.ResultCode, &entity.ActivityResultData{
		PaymentData:   request.PaymentData,
		StatusCode:    request.StatusCode,
		StatusMessage: request.StatusMessage,
	})
	s.writeJSON(w, activityResultResponse{Handled: handled})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.writeJSON(w, statusResponse{
		State:      s.payments.State(),
		InProgress: s.payments.IsInProgress(),
	})
}

// awaitResult blocks until the engine delivers the flow result or the client goes away.
func (s *Server) awaitResult(w http.ResponseWriter, r *http.Request, reqID string, results <-chan entity.GooglePayResult) {
	select {
	case result := <-results:
		s.logger.Info(fmt.Sprintf("[%s] result: %s", reqID, result.Kind()))
		s.writeJSON(w, resultResponse(result))
	case <-r.Context().Done():
		s.logger.Warn(fmt.Sprintf("[%s] request closed before result", reqID))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.logger.Error("write response", err)
	}
}

func readBody(r *http.Request, value interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if err = json.Unmarshal(body, value); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func resultResponse(result entity.GooglePayResult) ResultResponse {
	response := ResultResponse{Result: string(result.Kind())}
	switch r := result.(type) {
	case entity.Success:
		response.PaymentData = r.PaymentData
	case entity.TokenReceived:
		response.PaymentData = r.PaymentData
		response.TokenData = r.TokenData
		response.Settlement = r.Settlement
		response.PaymentDetails = r.PaymentDetails
	case entity.Failure:
		if r.Err != nil {
			response.ErrorCode = r.Err.Code
			response.ErrorMessage = r.Err.Message
		}
	}
	return response
}

func readinessResponse(result entity.ReadinessResult) ResultResponse {
	if result.Err != nil {
		return ResultResponse{
			Result:       string(entity.ResultError),
			ErrorCode:    result.Err.Code,
			ErrorMessage: result.Err.Message,
		}
	}
	ready := result.Ready
	return ResultResponse{Result: "ready", Ready: &ready}
}
