package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
)

const (
	Provider        = "paystack"
	SignatureHeader = "x-paystack-signature"

	defaultTimeout    = 15 * time.Second
	defaultMaxElapsed = 30 * time.Second
	maxResponseBytes  = 1 << 20
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return Provider
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, &paymentdomain.ConfigurationError{Key: "GATEWAY_BASE_URL"}
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, &paymentdomain.ConfigurationError{Key: "GATEWAY_BASE_URL"}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxElapsed := cfg.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = defaultMaxElapsed
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Adapter{
		baseURL:    baseURL,
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		client:     client,
		maxRetries: maxRetries,
		maxElapsed: maxElapsed,
	}, nil
}

type Adapter struct {
	baseURL    string
	secretKey  string
	client     *http.Client
	maxRetries int
	maxElapsed time.Duration
	// newBackOff is replaced in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

func (a *Adapter) Provider() string        { return Provider }
func (a *Adapter) SignatureHeader() string { return SignatureHeader }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeBody struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status          string  `json:"status"`
	Reference       string  `json:"reference"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
	PaidAt          *string `json:"paid_at"`
	GatewayResponse string  `json:"gateway_response"`
}

func (a *Adapter) InitializeTransaction(ctx context.Context, req paymentdomain.InitializeRequest) (paymentdomain.InitializeResult, error) {
	const op = "initialize"
	if a.secretKey == "" {
		return paymentdomain.InitializeResult{}, &paymentdomain.ConfigurationError{Key: "GATEWAY_SECRET_KEY"}
	}

	body, err := json.Marshal(initializeBody{
		Email:       req.Email,
		Amount:      req.AmountMinorUnits,
		Currency:    strings.ToUpper(req.Currency),
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return paymentdomain.InitializeResult{}, err
	}

	status, raw, err := a.do(ctx, op, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return paymentdomain.InitializeResult{}, err
	}
	if status < 200 || status >= 300 {
		return paymentdomain.InitializeResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: messageOf(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return paymentdomain.InitializeResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: "response_invalid", Err: err}
	}
	if !env.Status {
		return paymentdomain.InitializeResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: nonEmpty(env.Message, "initialize_rejected")}
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return paymentdomain.InitializeResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: "response_invalid", Err: err}
	}
	if data.AuthorizationURL == "" || data.AccessCode == "" || data.Reference == "" {
		return paymentdomain.InitializeResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: "response_invalid"}
	}

	return paymentdomain.InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (a *Adapter) VerifyTransaction(ctx context.Context, reference string) (paymentdomain.VerifyResult, error) {
	const op = "verify"
	if a.secretKey == "" {
		return paymentdomain.VerifyResult{}, &paymentdomain.ConfigurationError{Key: "GATEWAY_SECRET_KEY"}
	}

	status, raw, err := a.do(ctx, op, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return paymentdomain.VerifyResult{}, err
	}

	// Any non-2xx, including a 400/404 envelope for an unknown reference, is a
	// gateway failure and must leave the record untouched.
	if status < 200 || status >= 300 {
		return paymentdomain.VerifyResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: messageOf(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return paymentdomain.VerifyResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: "response_invalid", Err: err}
	}

	result := paymentdomain.VerifyResult{Raw: raw, GatewayResponse: env.Message}
	if !env.Status || len(env.Data) == 0 || string(env.Data) == "null" {
		return result, nil
	}

	var data verifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return paymentdomain.VerifyResult{}, &paymentdomain.GatewayError{Op: op, StatusCode: status, Message: "response_invalid", Err: err}
	}

	result.OK = strings.TrimSpace(data.Reference) != ""
	result.Status = strings.TrimSpace(data.Status)
	result.Reference = data.Reference
	result.AmountMinorUnits = data.Amount
	result.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	if data.GatewayResponse != "" {
		result.GatewayResponse = data.GatewayResponse
	}
	if data.PaidAt != nil {
		if paidAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*data.PaidAt)); err == nil {
			paidAt = paidAt.UTC()
			result.PaidAt = &paidAt
		}
	}
	return result, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA512 of the raw body.
func (a *Adapter) VerifyWebhookSignature(body []byte, signature string) (bool, error) {
	if a.secretKey == "" {
		return false, &paymentdomain.ConfigurationError{Key: "GATEWAY_SECRET_KEY"}
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false, nil
	}

	mac := hmac.New(sha512.New, []byte(a.secretKey))
	_, _ = mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)), nil
}

type response struct {
	status int
	body   []byte
}

// do sends one logical request, retrying transport failures, 429 and 5xx.
func (a *Adapter) do(ctx context.Context, op, method, path string, body []byte) (int, []byte, error) {
	operation := func() (response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
		if err != nil {
			return response{}, backoff.Permanent(&paymentdomain.GatewayError{Op: op, Err: err})
		}
		req.Header.Set("Authorization", "Bearer "+a.secretKey)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return response{}, &paymentdomain.GatewayError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return response{}, &paymentdomain.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: err}
		}

		gwErr := &paymentdomain.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: messageOf(raw)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return response{status: resp.StatusCode, body: raw}, gwErr
		}
		return response{status: resp.StatusCode, body: raw}, nil
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(a.backOff()),
		backoff.WithMaxTries(uint(a.maxRetries + 1)),
		backoff.WithMaxElapsedTime(a.maxElapsed),
	}
	resp, err := backoff.Retry(ctx, operation, opts...)
	if err != nil {
		var gwErr *paymentdomain.GatewayError
		if errors.As(err, &gwErr) {
			return 0, nil, gwErr
		}
		return 0, nil, &paymentdomain.GatewayError{Op: op, Err: err}
	}
	return resp.status, resp.body, nil
}

func (a *Adapter) backOff() backoff.BackOff {
	if a.newBackOff != nil {
		return a.newBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

func messageOf(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fmt.Sprintf("unexpected response (%d bytes)", len(raw))
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
