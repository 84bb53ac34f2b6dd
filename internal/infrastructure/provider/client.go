// Package provider implements the HTTP client for the FooPay payments
// API: hosted payment sessions, payment lookup by reference, webhook
// registration and the setup token exchange.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foopay/storefront-adapter/internal/application"
	"github.com/foopay/storefront-adapter/internal/config"
	"github.com/foopay/storefront-adapter/internal/domain"
)

type Client struct {
	baseURL        string
	publicBaseURL  string
	sessionTimeout time.Duration
	statusTimeout  time.Duration
	httpClient     *http.Client
}

func NewClient(cfg config.ProviderConfig) application.ProviderClient {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL(), "/"),
		publicBaseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		sessionTimeout: cfg.SessionTimeout,
		statusTimeout:  cfg.StatusTimeout,
		httpClient:     &http.Client{},
	}
}

// CreateHostedSession opens a hosted payment page for the order. The
// provider correlates everything that follows (webhooks, lookups) by
// the order id passed as referenceId.
func (c *Client) CreateHostedSession(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error) {
	ctx, cancel := context.WithTimeout(ctx, c.sessionTimeout)
	defer cancel()

	items := make([]lineItem, 0, len(order.Items))
	for _, it := range order.Items {
		category := categoryPhysical
		if it.Virtual {
			category = categoryDigital
		}
		items = append(items, lineItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPriceCents,
			Category:  category,
		})
	}

	req := hostedSessionRequest{
		ReferenceID: order.ID,
		Amount:      order.AmountCents,
		Currency:    order.Currency,
		Customer: customerDTO{
			Email:     order.Customer.Email,
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Phone:     order.Customer.Phone,
		},
		Address: addressDTO{
			Line1:      order.Address.Line1,
			Line2:      order.Address.Line2,
			City:       order.Address.City,
			State:      order.Address.State,
			PostalCode: order.Address.PostalCode,
			Country:    order.Address.Country,
		},
		LineItems:   items,
		AutoCapture: true,
		WebhookURL:  c.publicBaseURL + "/webhook",
		ReturnURL:   c.publicBaseURL + "/return/" + order.ID,
	}

	url := fmt.Sprintf("%s/api/v1/apps/%s/payments/hosted-page", c.baseURL, creds.AppID)
	resp, err := sendJSON[hostedSessionRequest, hostedSessionResponse](
		c, ctx, "create hosted session", http.MethodPost, url, &req, creds.BearerToken, http.StatusCreated,
	)
	if err != nil {
		return nil, err
	}

	if resp.PaymentID == "" || resp.RedirectURL == "" {
		return nil, fmt.Errorf("create hosted session: %w: missing paymentId or redirectUrl", ErrMalformedResponse)
	}

	return &domain.SessionRef{
		PaymentID:   resp.PaymentID,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// FetchPaymentByReference looks up the payment created for an order.
func (c *Client) FetchPaymentByReference(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v1/apps/%s/payments/referenceId:%s", c.baseURL, creds.AppID, orderID)
	resp, err := sendJSON[any, paymentResponse](
		c, ctx, "fetch payment", http.MethodGet, url, nil, creds.BearerToken, http.StatusOK,
	)
	if err != nil {
		return "", err
	}

	if resp.PaymentState == "" {
		return "", fmt.Errorf("fetch payment: %w: missing paymentState", ErrMalformedResponse)
	}

	return domain.PaymentState(resp.PaymentState), nil
}

// SetWebhookConfig registers the callback URL and bearer token on the
// FooPay application record.
func (c *Client) SetWebhookConfig(ctx context.Context, appID, bearerToken, webhookURL, webhookToken string) error {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req := webhookConfigRequest{
		PaymentWebhookURL:                   settingValue{Value: webhookURL},
		WebhookAuthorizationHeaderScheme:    settingValue{Value: "Bearer"},
		WebhookAuthorizationHeaderParameter: settingValue{Value: webhookToken},
	}

	url := fmt.Sprintf("%s/api/apps/%s", c.baseURL, appID)
	_, err := sendJSON[webhookConfigRequest, struct{}](
		c, ctx, "set webhook config", http.MethodPatch, url, &req, bearerToken, http.StatusOK,
	)
	return err
}

// ExchangeAuthorizationCode trades the one-time code from the FooPay
// panel for a bot token. The token comes back as a text/plain body.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, appID, authorizationCode string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/apps/%s/generate-bot-token", c.baseURL, appID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+authorizationCode)
	httpReq.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Op: "exchange authorization code", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Op: "exchange authorization code", StatusCode: resp.StatusCode, Body: string(body)}
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("exchange authorization code: %w: empty token body", ErrMalformedResponse)
	}

	return token, nil
}

func sendJSON[Req any, Resp any](c *Client, ctx context.Context, op, method, url string, reqBody *Req, bearerToken string, wantStatus int) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		var provErrResp errorResponse
		if err := json.Unmarshal(body, &provErrResp); err == nil && provErrResp.Message != "" {
			return nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: provErrResp.Message}
		}
		return nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var provResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&provResp); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}

	return &provResp, nil
}
