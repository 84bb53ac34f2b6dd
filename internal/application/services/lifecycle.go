// Package services orchestrates the payment lifecycle between the
// storefront's order records and the FooPay hosted payment provider.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foopay/storefront-adapter/internal/application"
	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/foopay/storefront-adapter/internal/infrastructure/persistence/postgres"
)

// LifecycleService reconciles provider payment state onto the order
// status state machine. It is request-scoped and stateless: safety
// under concurrent invocations (webhook racing the thank-you page)
// comes from the absorbing-state guard and the store's compare-and-swap
// writes, not from locks.
type LifecycleService struct {
	orders      application.OrderStore
	credentials application.CredentialStore
	provider    application.ProviderClient
	env         domain.Environment
	logger      *slog.Logger
}

func NewLifecycleService(
	orders application.OrderStore,
	credentials application.CredentialStore,
	provider application.ProviderClient,
	env domain.Environment,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		orders:      orders,
		credentials: credentials,
		provider:    provider,
		env:         env,
		logger:      logger,
	}
}

func (s *LifecycleService) loadCredentials(ctx context.Context) (domain.Credentials, error) {
	creds, err := s.credentials.Get(ctx, s.env)
	if err != nil {
		if errors.Is(err, postgres.ErrCredentialsNotFound) {
			return domain.Credentials{}, application.NewConfigurationError(err)
		}
		return domain.Credentials{}, application.NewInternalError(err)
	}
	if err := creds.Validate(); err != nil {
		return domain.Credentials{}, application.NewConfigurationError(err)
	}
	return creds, nil
}

// CreateSession starts a hosted payment session for the order and
// returns the URL the shopper must be redirected to. A repeated call
// for an order that already carries a live session re-polls the
// provider instead of opening a second session, so a double checkout
// submission yields the same redirect URL and exactly one provider
// session.
func (s *LifecycleService) CreateSession(ctx context.Context, orderID string) (string, error) {
	creds, err := s.loadCredentials(ctx)
	if err != nil {
		return "", err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return "", application.NewOrderNotFoundError(orderID)
		}
		return "", application.NewInternalError(err)
	}

	existingID, err := s.orders.GetMetadata(ctx, orderID, domain.MetaPaymentID)
	if err != nil {
		return "", application.NewInternalError(err)
	}

	if existingID != "" {
		redirectURL, retry, err := s.resumeSession(ctx, orderID, creds)
		if err != nil {
			return "", err
		}
		if !retry {
			return redirectURL, nil
		}
		// The stored session is dead; fall through and open a fresh one.
		order, err = s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return "", application.NewInternalError(err)
		}
	}

	if order.Status != domain.StatusPending {
		return "", application.NewValidationError(fmt.Sprintf("order %s is not payable in status %s", orderID, order.Status))
	}

	ref, err := s.provider.CreateHostedSession(ctx, order, creds)
	if err != nil {
		// Order stays pending so the shopper can retry checkout.
		s.logger.Error("hosted session creation failed", "order_id", orderID, "error", err)
		return "", application.NewProviderRequestError(err)
	}

	if err := s.orders.SaveSessionRef(ctx, orderID, *ref); err != nil {
		return "", application.NewInternalError(err)
	}

	applied, err := s.orders.SetStatus(ctx, orderID, order.Status, domain.StatusOnHold,
		"FooPay hosted payment session created; awaiting payment")
	if err != nil {
		return "", application.NewInternalError(err)
	}
	if !applied {
		s.logger.Warn("order status changed during session creation", "order_id", orderID)
	}

	s.logger.Info("hosted payment session created",
		"order_id", orderID,
		"payment_id", ref.PaymentID,
	)

	return ref.RedirectURL, nil
}

// resumeSession handles a CreateSession call for an order that already
// has a session reference. It re-polls the provider; if the session is
// dead, a failed payment or a reference without a redirect URL, the
// order is reset to pending and retry=true tells the caller to open a
// new session.
func (s *LifecycleService) resumeSession(ctx context.Context, orderID string, creds domain.Credentials) (redirectURL string, retry bool, err error) {
	if err := s.reconcile(ctx, orderID, creds); err != nil {
		s.logger.Warn("re-poll before resuming session failed", "order_id", orderID, "error", err)
	}

	status, err := s.orders.GetStatus(ctx, orderID)
	if err != nil {
		return "", false, application.NewInternalError(err)
	}

	if status == domain.StatusFailed {
		applied, err := s.orders.SetStatus(ctx, orderID, domain.StatusFailed, domain.StatusPending,
			"FooPay payment failed; allowing a new payment attempt")
		if err != nil {
			return "", false, application.NewInternalError(err)
		}
		if applied {
			return "", true, nil
		}
		// Someone else moved the order meanwhile; fall back to the
		// stored redirect.
		status, err = s.orders.GetStatus(ctx, orderID)
		if err != nil {
			return "", false, application.NewInternalError(err)
		}
	}

	redirectURL, err = s.orders.GetMetadata(ctx, orderID, domain.MetaRedirectURL)
	if err != nil {
		return "", false, application.NewInternalError(err)
	}

	if redirectURL == "" {
		// A session reference without a redirect URL cannot take the
		// shopper anywhere; treat the session as dead and replace it.
		if status != domain.StatusPending {
			if _, err := s.orders.SetStatus(ctx, orderID, status, domain.StatusPending,
				"FooPay session reference incomplete; opening a new session"); err != nil {
				return "", false, application.NewInternalError(err)
			}
		}
		return "", true, nil
	}

	return redirectURL, false, nil
}

// Reconcile fetches the provider's payment state for the order and
// applies the implied status transition. It is a no-op for orders in
// an absorbing status and for provider states that imply no change,
// which makes it safe to invoke from the webhook and the thank-you
// page in any order, any number of times.
func (s *LifecycleService) Reconcile(ctx context.Context, orderID string) error {
	creds, err := s.loadCredentials(ctx)
	if err != nil {
		return err
	}
	return s.reconcile(ctx, orderID, creds)
}

func (s *LifecycleService) reconcile(ctx context.Context, orderID string, creds domain.Credentials) error {
	status, err := s.orders.GetStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return application.NewOrderNotFoundError(orderID)
		}
		return application.NewInternalError(err)
	}

	if status.IsAbsorbing() {
		s.logger.Debug("reconcile skipped: order in absorbing status",
			"order_id", orderID,
			"status", status,
		)
		return nil
	}

	state, err := s.provider.FetchPaymentByReference(ctx, orderID, creds)
	if err != nil {
		// Left for the next webhook or return-page visit; the order is
		// not mutated.
		s.logger.Error("failed to fetch payment state", "order_id", orderID, "error", err)
		return application.NewProviderRequestError(err)
	}

	newStatus := domain.NextStatus(status, state)
	if newStatus == status {
		return nil
	}

	var applied bool
	if newStatus == domain.StatusProcessing {
		paymentID, err := s.orders.GetMetadata(ctx, orderID, domain.MetaPaymentID)
		if err != nil {
			return application.NewInternalError(err)
		}
		applied, err = s.orders.MarkPaid(ctx, orderID, status, paymentID)
		if err != nil {
			return application.NewInternalError(err)
		}
	} else {
		applied, err = s.orders.SetStatus(ctx, orderID, status, newStatus, transitionNote(newStatus, state))
		if err != nil {
			return application.NewInternalError(err)
		}
	}

	if !applied {
		s.logger.Info("reconciliation lost the write race, no-op",
			"order_id", orderID,
			"old_status", status,
			"new_status", newStatus,
		)
		return nil
	}

	s.logger.Info("order status reconciled",
		"order_id", orderID,
		"old_status", status,
		"new_status", newStatus,
		"provider_state", state,
	)

	return nil
}

// OrderStatus returns the order's current status.
func (s *LifecycleService) OrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	status, err := s.orders.GetStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return "", application.NewOrderNotFoundError(orderID)
		}
		return "", application.NewInternalError(err)
	}
	return status, nil
}

// AuthorizeWebhook checks an inbound webhook bearer token against the
// stored webhook token in constant time.
func (s *LifecycleService) AuthorizeWebhook(ctx context.Context, token string) error {
	creds, err := s.loadCredentials(ctx)
	if err != nil {
		return err
	}

	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(creds.WebhookToken)) != 1 {
		return application.NewAuthenticationError()
	}

	return nil
}

func transitionNote(status domain.OrderStatus, state domain.PaymentState) string {
	switch status {
	case domain.StatusOnHold:
		return fmt.Sprintf("FooPay payment pending (provider state: %s)", state)
	case domain.StatusFailed:
		return fmt.Sprintf("FooPay payment failed (provider state: %s)", state)
	case domain.StatusRefunded:
		return "FooPay payment refunded"
	default:
		return fmt.Sprintf("FooPay payment state changed to %s", state)
	}
}
