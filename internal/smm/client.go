package smm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultAPIURL is the marketplace endpoint used when none is configured
	DefaultAPIURL = "https://smmjp.com/api/v2"

	// DefaultQuantity is the fixed unit count per order
	DefaultQuantity = 100

	// actionAdd is the panel API action for placing a new order
	actionAdd = "add"

	defaultTimeout = 30 * time.Second
)

// Failure reasons surfaced to the user when the API gives none.
const (
	ReasonConnection  = "connection error"
	ReasonUnspecified = "unspecified failure"
)

// Config holds client configuration injected at construction
type Config struct {
	APIURL string
	APIKey string
}

// OrderRequest describes a single order placement. It is built per
// submission and discarded after the result is delivered.
type OrderRequest struct {
	ServiceID string
	Link      string
	Quantity  int
}

// NewOrderRequest builds an order for the fixed default quantity.
func NewOrderRequest(serviceID, link string) OrderRequest {
	return OrderRequest{
		ServiceID: serviceID,
		Link:      link,
		Quantity:  DefaultQuantity,
	}
}

// OrderResult is the normalized outcome of one placement attempt. Exactly
// one of OrderID or Reason is set.
type OrderResult struct {
	OrderID string
	Reason  string
}

// Success reports whether the order was accepted by the panel.
func (r OrderResult) Success() bool {
	return r.OrderID != ""
}

// Succeeded builds a success result.
func Succeeded(orderID string) OrderResult {
	return OrderResult{OrderID: orderID}
}

// Failed builds a failure result.
func Failed(reason string) OrderResult {
	if reason == "" {
		reason = ReasonUnspecified
	}
	return OrderResult{Reason: reason}
}

// Client places orders against an SMM panel API.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a panel client. The API key is held by the client so
// request builders never see the secret.
func NewClient(cfg Config, log *zap.Logger) *Client {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		apiURL: apiURL,
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		log: log,
	}
}

// PlaceOrder issues a single fire-once placement call and normalizes the
// response. It never returns an error: remote rejections carry the panel's
// message verbatim and transport or parse failures become a generic
// connection failure. There is no retry and no idempotency key, so a
// transport failure after the panel accepted the order can duplicate it on
// manual retry.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) OrderResult {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("action", actionAdd)
	params.Set("service", req.ServiceID)
	params.Set("link", req.Link)
	params.Set("quantity", strconv.Itoa(req.Quantity))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		c.log.Error("build order request", zap.Error(err))
		return Failed(ReasonConnection)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn("order api call failed",
			zap.String("service", req.ServiceID),
			zap.Error(err))
		return Failed(ReasonConnection)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var apiResp struct {
		Order any    `json:"order"`
		Error string `json:"error"`
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&apiResp); err != nil {
		c.log.Warn("order api response not parseable",
			zap.String("service", req.ServiceID),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return Failed(ReasonConnection)
	}

	// The panel returns the order ID as a string or a number depending on
	// the deployment.
	if apiResp.Order != nil {
		orderID := fmt.Sprintf("%v", apiResp.Order)
		if orderID != "" {
			c.log.Info("order placed",
				zap.String("service", req.ServiceID),
				zap.String("order_id", orderID))
			return Succeeded(orderID)
		}
	}

	if apiResp.Error != "" {
		c.log.Warn("order rejected",
			zap.String("service", req.ServiceID),
			zap.String("reason", apiResp.Error))
		return Failed(apiResp.Error)
	}

	c.log.Warn("order response had neither order nor error",
		zap.String("service", req.ServiceID),
		zap.Int("status", resp.StatusCode))
	return Failed(ReasonUnspecified)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
