package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSessionFailed      = errors.New("gateway refused to open a payment session")
	ErrInvalidPayment     = errors.New("gateway did not validate the payment")
	ErrGatewayUnreachable = errors.New("gateway request failed")
)

// Config holds the merchant credentials and gateway endpoints
type Config struct {
	StoreID       string
	StorePassword string
	SessionURL    string
	ValidationURL string
}

// Session is an opened hosted-checkout session. The customer is redirected
// to GatewayPageURL to complete the payment.
type Session struct {
	SessionKey     string
	GatewayPageURL string
}

// SessionRequest carries the order details the gateway needs
type SessionRequest struct {
	TransactionID   string
	Amount          decimal.Decimal
	Currency        string
	SuccessURL      string
	FailURL         string
	CancelURL       string
	IPNURL          string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	ProductName     string
	ProductCategory string
}

// Client talks to the hosted payment gateway
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// sessionResponse is the gateway's session-create reply
type sessionResponse struct {
	Status         string `json:"status"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
	FailedReason   string `json:"failedreason"`
}

// CreateSession opens a payment session for an order and returns the page
// the customer must be redirected to.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_passwd", c.cfg.StorePassword)
	form.Set("tran_id", req.TransactionID)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", req.Currency)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("ipn_url", req.IPNURL)
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_phone", req.CustomerPhone)
	form.Set("cus_add1", req.CustomerAddress)
	form.Set("product_name", req.ProductName)
	form.Set("product_category", req.ProductCategory)
	form.Set("product_profile", "general")
	form.Set("shipping_method", "Courier")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SessionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if body.Status != "SUCCESS" || body.GatewayPageURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrSessionFailed, body.FailedReason)
	}

	return &Session{
		SessionKey:     body.SessionKey,
		GatewayPageURL: body.GatewayPageURL,
	}, nil
}

// validationResponse is the gateway's order validation reply
type validationResponse struct {
	Status string `json:"status"`
	TranID string `json:"tran_id"`
}

// ValidateTransaction re-validates a payment with the gateway. IPN messages
// must not be trusted before this check passes.
func (c *Client) ValidateTransaction(ctx context.Context, validationID string) error {
	q := url.Values{}
	q.Set("val_id", validationID)
	q.Set("store_id", c.cfg.StoreID)
	q.Set("store_passwd", c.cfg.StorePassword)
	q.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ValidationURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	var body validationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode validation response: %w", err)
	}

	if body.Status != "VALID" && body.Status != "VALIDATED" {
		return fmt.Errorf("%w: status %s", ErrInvalidPayment, body.Status)
	}
	return nil
}
