package application

import (
	"context"

	"github.com/foopay/storefront-adapter/internal/domain"
)

// ProviderClient is the port for the FooPay payments API.
type ProviderClient interface {
	// CreateHostedSession opens a hosted payment page session for the
	// order and returns the provider payment id plus the URL the
	// shopper must be redirected to.
	CreateHostedSession(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error)

	// FetchPaymentByReference looks a payment up by the storefront
	// order id it was created with.
	FetchPaymentByReference(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error)

	// SetWebhookConfig registers the webhook callback URL and shared
	// bearer token on the FooPay application. Used by setup only.
	SetWebhookConfig(ctx context.Context, appID, bearerToken, webhookURL, webhookToken string) error

	// ExchangeAuthorizationCode trades the one-time authorization code
	// from the FooPay panel for a long-lived bot token.
	ExchangeAuthorizationCode(ctx context.Context, appID, authorizationCode string) (string, error)
}

// OrderStore is the port onto the storefront's order records. Status
// writes are compare-and-swap on the expected current status so that
// racing reconciliations (webhook vs. thank-you page) apply a
// transition exactly once; a lost race returns applied=false, not an
// error.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetStatus(ctx context.Context, id string) (domain.OrderStatus, error)
	SetStatus(ctx context.Context, id string, from, to domain.OrderStatus, note string) (applied bool, err error)

	// MarkPaid records payment completion: paid timestamp, provider
	// payment id, and a status flip to processing, guarded the same
	// way as SetStatus.
	MarkPaid(ctx context.Context, id string, from domain.OrderStatus, paymentID string) (applied bool, err error)

	GetMetadata(ctx context.Context, id, key string) (string, error)

	// SaveSessionRef stores both session reference keys (payment id
	// and redirect URL) in a single atomic write, so an order can never
	// end up with a payment id but no redirect URL.
	SaveSessionRef(ctx context.Context, id string, ref domain.SessionRef) error
}

// CredentialStore is the port for per-environment provider credentials.
// The lifecycle engine reads; only the setup flow writes.
type CredentialStore interface {
	Get(ctx context.Context, env domain.Environment) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
}
