package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/foopay/storefront-adapter/internal/application"
	"github.com/foopay/storefront-adapter/internal/application/services"
	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCredentials() domain.Credentials {
	return domain.Credentials{
		Environment:  domain.EnvSandbox,
		AppID:        "app-1",
		BearerToken:  "bot-token",
		WebhookToken: "webhook-token",
	}
}

func newLifecycle(t *testing.T) (*services.LifecycleService, *services.MockOrderStore, *services.MockCredentialStore, *services.MockProviderClient) {
	t.Helper()
	orders := services.NewMockOrderStore()
	creds := services.NewMockCredentialStore()
	providerClient := &services.MockProviderClient{}

	require.NoError(t, creds.Save(context.Background(), testCredentials()))

	svc := services.NewLifecycleService(orders, creds, providerClient, domain.EnvSandbox, testLogger())
	return svc, orders, creds, providerClient
}

func pendingOrder(id string) *domain.Order {
	return &domain.Order{
		ID:          id,
		Status:      domain.StatusPending,
		AmountCents: 4999,
		Currency:    "USD",
		Customer: domain.Customer{
			Email:     "shopper@example.com",
			FirstName: "Pat",
			LastName:  "Doe",
		},
		Items: []domain.LineItem{
			{Name: "T-shirt", Quantity: 1, UnitPriceCents: 4999},
		},
	}
}

func TestReconcile_AbsorbingStatusIsNoOp(t *testing.T) {
	ctx := context.Background()

	absorbing := []domain.OrderStatus{
		domain.StatusProcessing,
		domain.StatusCompleted,
		domain.StatusCancelled,
		domain.StatusRefunded,
		domain.StatusFailed,
	}

	for _, status := range absorbing {
		svc, orders, _, providerClient := newLifecycle(t)

		order := pendingOrder("order-1")
		order.Status = status
		orders.Seed(order)

		err := svc.Reconcile(ctx, "order-1")

		require.NoError(t, err, "status %s", status)
		assert.Equal(t, 0, providerClient.FetchPaymentCalls, "status %s: no provider call expected", status)

		got, err := orders.GetStatus(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, status, got)
		assert.Empty(t, orders.Notes("order-1"))
	}
}

func TestReconcile_CapturedMarksPaid(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	orders.Seed(pendingOrder("order-1"))
	orders.SeedMetadata("order-1", domain.MetaPaymentID, "pay-123")

	providerClient.FetchPaymentFn = func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
		return domain.StateCaptured, nil
	}

	require.NoError(t, svc.Reconcile(ctx, "order-1"))

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, status)
	assert.Equal(t, "pay-123", orders.PaidPaymentID("order-1"))
	assert.Equal(t, 1, providerClient.FetchPaymentCalls)

	// processing is absorbing: the immediate second call makes no
	// provider call and changes nothing.
	require.NoError(t, svc.Reconcile(ctx, "order-1"))
	assert.Equal(t, 1, providerClient.FetchPaymentCalls)

	status, err = orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, status)
}

func TestReconcile_RefundedFromOnHold(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	order := pendingOrder("1042")
	order.Status = domain.StatusOnHold
	orders.Seed(order)

	providerClient.FetchPaymentFn = func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
		return domain.StateRefunded, nil
	}

	require.NoError(t, svc.Reconcile(ctx, "1042"))

	status, err := orders.GetStatus(ctx, "1042")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, status)
	assert.Len(t, orders.Notes("1042"), 1)
}

func TestReconcile_UnrecognizedStateIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	order := pendingOrder("order-1")
	order.Status = domain.StatusOnHold
	orders.Seed(order)

	providerClient.FetchPaymentFn = func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
		return domain.PaymentState("SomeFutureState"), nil
	}

	require.NoError(t, svc.Reconcile(ctx, "order-1"))

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, status)
	assert.Empty(t, orders.Notes("order-1"))
}

func TestReconcile_ProviderFailureLeavesOrderUntouched(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	orders.Seed(pendingOrder("order-1"))

	providerClient.FetchPaymentFn = func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
		return "", errors.New("connection refused")
	}

	err := svc.Reconcile(ctx, "order-1")

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeProviderRequest, svcErr.Code)

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, status)
}

func TestReconcile_MissingCredentials(t *testing.T) {
	ctx := context.Background()
	orders := services.NewMockOrderStore()
	creds := services.NewMockCredentialStore()
	providerClient := &services.MockProviderClient{}
	svc := services.NewLifecycleService(orders, creds, providerClient, domain.EnvSandbox, testLogger())

	orders.Seed(pendingOrder("order-1"))

	err := svc.Reconcile(ctx, "order-1")

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeConfiguration, svcErr.Code)
	assert.Equal(t, 0, providerClient.FetchPaymentCalls)
}

func TestReconcile_ConcurrentCallsApplyOnce(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	orders.Seed(pendingOrder("order-1"))

	providerClient.FetchPaymentFn = func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
		return domain.StateAuthorized, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Reconcile(ctx, "order-1")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, status)
	assert.Len(t, orders.Notes("order-1"), 1, "transition must be applied exactly once")
}

func TestCreateSession_HappyPath(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	orders.Seed(pendingOrder("order-1"))

	providerClient.CreateHostedSessionFn = func(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error) {
		return &domain.SessionRef{PaymentID: "pay-1", RedirectURL: "https://pay.example/s/1"}, nil
	}

	redirectURL, err := svc.CreateSession(ctx, "order-1")

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/s/1", redirectURL)
	assert.Equal(t, 1, providerClient.CreateHostedSessionCalls)

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, status)

	paymentID, err := orders.GetMetadata(ctx, "order-1", domain.MetaPaymentID)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", paymentID)
}

func TestCreateSession_DoubleSubmissionReturnsSameRedirect(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	orders.Seed(pendingOrder("order-1"))

	providerClient.CreateHostedSessionFn = func(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error) {
		return &domain.SessionRef{PaymentID: "pay-1", RedirectURL: "https://pay.example/s/1"}, nil
	}
	providerClient.FetchPaymentFn = func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
		return domain.StateCreated, nil
	}

	first, err := svc.CreateSession(ctx, "order-1")
	require.NoError(t, err)

	second, err := svc.CreateSession(ctx, "order-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, providerClient.CreateHostedSessionCalls, "exactly one provider session expected")
}

func TestCreateSession_ProviderFailureLeavesOrderPending(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	orders.Seed(pendingOrder("order-1"))

	providerClient.CreateHostedSessionFn = func(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error) {
		return nil, errors.New("503 from provider")
	}

	_, err := svc.CreateSession(ctx, "order-1")

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeProviderRequest, svcErr.Code)

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, status, "shopper must be able to retry checkout")

	paymentID, err := orders.GetMetadata(ctx, "order-1", domain.MetaPaymentID)
	require.NoError(t, err)
	assert.Empty(t, paymentID)
}

func TestCreateSession_FailedSessionOpensNewOne(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	order := pendingOrder("order-1")
	order.Status = domain.StatusOnHold
	orders.Seed(order)
	require.NoError(t, orders.SaveSessionRef(ctx, "order-1", domain.SessionRef{
		PaymentID:   "pay-1",
		RedirectURL: "https://pay.example/s/1",
	}))

	providerClient.FetchPaymentFn = func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
		return domain.StateFailed, nil
	}
	providerClient.CreateHostedSessionFn = func(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error) {
		return &domain.SessionRef{PaymentID: "pay-2", RedirectURL: "https://pay.example/s/2"}, nil
	}

	redirectURL, err := svc.CreateSession(ctx, "order-1")

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/s/2", redirectURL)
	assert.Equal(t, 1, providerClient.CreateHostedSessionCalls)

	paymentID, err := orders.GetMetadata(ctx, "order-1", domain.MetaPaymentID)
	require.NoError(t, err)
	assert.Equal(t, "pay-2", paymentID, "dead session reference must be replaced")

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, status)
}

func TestCreateSession_IncompleteSessionRefOpensNewOne(t *testing.T) {
	ctx := context.Background()
	svc, orders, _, providerClient := newLifecycle(t)

	// A payment id without a redirect URL: the stored session cannot
	// take the shopper anywhere, so it must be replaced, not resumed.
	orders.Seed(pendingOrder("order-1"))
	orders.SeedMetadata("order-1", domain.MetaPaymentID, "pay-0")

	redirectURL, err := svc.CreateSession(ctx, "order-1")

	require.NoError(t, err)
	assert.NotEmpty(t, redirectURL, "shopper must receive a usable redirect URL")
	assert.Equal(t, 1, providerClient.CreateHostedSessionCalls)

	storedURL, err := orders.GetMetadata(ctx, "order-1", domain.MetaRedirectURL)
	require.NoError(t, err)
	assert.Equal(t, redirectURL, storedURL)

	paymentID, err := orders.GetMetadata(ctx, "order-1", domain.MetaPaymentID)
	require.NoError(t, err)
	assert.NotEqual(t, "pay-0", paymentID, "stale session reference must be replaced")

	status, err := orders.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, status)
}

func TestCreateSession_OrderNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newLifecycle(t)

	_, err := svc.CreateSession(ctx, "missing")

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeOrderNotFound, svcErr.Code)
}

func TestAuthorizeWebhook(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newLifecycle(t)

	require.NoError(t, svc.AuthorizeWebhook(ctx, "webhook-token"))

	for _, bad := range []string{"", "wrong-token", "webhook-token "} {
		err := svc.AuthorizeWebhook(ctx, bad)
		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok, "token %q", bad)
		assert.Equal(t, application.ErrCodeAuthentication, svcErr.Code)
	}
}
