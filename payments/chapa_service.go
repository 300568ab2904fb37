package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

type ChapaConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// ChapaClient talks to the Chapa hosted-checkout API. It keeps no state
// between calls and never retries; callers decide what to do with a
// TransientError.
type ChapaClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewChapaClient(cfg ChapaConfig) *ChapaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChapaClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

type Customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type InitiateRequest struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	ReturnURL     string        `json:"return_url,omitempty"`
	Customization Customization `json:"customization"`
}

type InitiateResponse struct {
	CheckoutURL string
	Message     string
}

type initiateEnvelope struct {
	Status  any    `json:"status"`
	Message any    `json:"message"`
	Data    *struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// VerifyOutcome is the normalized answer of the verify endpoint.
type VerifyOutcome struct {
	EnvelopeStatus string
	Status         string
	GatewayTxID    string
	Message        string
}

func (o *VerifyOutcome) Succeeded() bool {
	return o.EnvelopeStatus == "success" && o.Status == "success"
}

type verifyEnvelope struct {
	Status  any    `json:"status"`
	Message any    `json:"message"`
	Data    *struct {
		Status    string `json:"status"`
		ID        any    `json:"id"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// GatewayError means the gateway answered and the answer was a failure, or
// could not be understood.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chapa %s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("chapa %s failed (status %d)", e.Op, e.StatusCode)
}

// Details returns the gateway body decoded as JSON when possible.
func (e *GatewayError) Details() any {
	var decoded any
	if err := json.Unmarshal([]byte(e.Body), &decoded); err == nil {
		return decoded
	}
	return e.Body
}

// TransientError means the request never produced an answer: the outcome
// on the gateway side is unknown.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("chapa %s: network error: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func (c *ChapaClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	const op = "initialize"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create initialize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.do(op, httpReq)
	if err != nil {
		return nil, err
	}

	var env initiateEnvelope
	if status < 200 || status > 299 {
		_ = json.Unmarshal(respBody, &env)
		return nil, &GatewayError{Op: op, StatusCode: status, Body: string(respBody), Message: messageText(env.Message)}
	}
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &GatewayError{Op: op, StatusCode: status, Body: string(respBody), Message: "malformed response"}
	}
	if strings.EqualFold(messageText(env.Status), "failed") {
		return nil, &GatewayError{Op: op, StatusCode: status, Body: string(respBody), Message: messageText(env.Message)}
	}
	if env.Data == nil || env.Data.CheckoutURL == "" {
		return nil, &GatewayError{Op: op, StatusCode: status, Body: string(respBody), Message: "missing checkout_url"}
	}

	return &InitiateResponse{CheckoutURL: env.Data.CheckoutURL, Message: messageText(env.Message)}, nil
}

func (c *ChapaClient) Verify(ctx context.Context, txRef string) (*VerifyOutcome, error) {
	const op = "verify"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/verify/"+url.PathEscape(txRef), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}

	status, respBody, err := c.do(op, httpReq)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		var env verifyEnvelope
		_ = json.Unmarshal(respBody, &env)
		return nil, &GatewayError{Op: op, StatusCode: status, Body: string(respBody), Message: messageText(env.Message)}
	}

	var env verifyEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &GatewayError{Op: op, StatusCode: status, Body: string(respBody), Message: "malformed response"}
	}

	outcome := &VerifyOutcome{
		EnvelopeStatus: strings.ToLower(strings.TrimSpace(messageText(env.Status))),
		Status:         "failed",
		Message:        messageText(env.Message),
	}
	if env.Data != nil {
		if s := strings.ToLower(strings.TrimSpace(env.Data.Status)); s != "" {
			outcome.Status = s
		}
		outcome.GatewayTxID = idText(env.Data.ID)
		if outcome.GatewayTxID == "" {
			outcome.GatewayTxID = env.Data.Reference
		}
	}
	return outcome, nil
}

func (c *ChapaClient) do(op string, req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransientError{Op: op, Err: fmt.Errorf("read response body: %w", err)}
	}
	return resp.StatusCode, respBody, nil
}

func messageText(m any) string {
	switch v := m.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func idText(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
