package services

import (
	"context"
	"sync"

	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/foopay/storefront-adapter/internal/infrastructure/persistence/postgres"
)

// MockOrderStore is an in-memory order store for tests. Behavior can be
// overridden per method via the Fn fields.
type MockOrderStore struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	metadata map[string]map[string]string
	notes    map[string][]string
	paid     map[string]string

	GetOrderFn       func(ctx context.Context, id string) (*domain.Order, error)
	GetStatusFn      func(ctx context.Context, id string) (domain.OrderStatus, error)
	SetStatusFn      func(ctx context.Context, id string, from, to domain.OrderStatus, note string) (bool, error)
	MarkPaidFn       func(ctx context.Context, id string, from domain.OrderStatus, paymentID string) (bool, error)
	GetMetadataFn    func(ctx context.Context, id, key string) (string, error)
	SaveSessionRefFn func(ctx context.Context, id string, ref domain.SessionRef) error
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders:   make(map[string]*domain.Order),
		metadata: make(map[string]map[string]string),
		notes:    make(map[string][]string),
		paid:     make(map[string]string),
	}
}

func (m *MockOrderStore) Seed(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MockOrderStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetOrderFn != nil {
		return m.GetOrderFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, postgres.ErrOrderNotFound
}

func (m *MockOrderStore) GetStatus(ctx context.Context, id string) (domain.OrderStatus, error) {
	if m.GetStatusFn != nil {
		return m.GetStatusFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return o.Status, nil
	}
	return "", postgres.ErrOrderNotFound
}

func (m *MockOrderStore) SetStatus(ctx context.Context, id string, from, to domain.OrderStatus, note string) (bool, error) {
	if m.SetStatusFn != nil {
		return m.SetStatusFn(ctx, id, from, to, note)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, postgres.ErrOrderNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	if note != "" {
		m.notes[id] = append(m.notes[id], note)
	}
	return true, nil
}

func (m *MockOrderStore) MarkPaid(ctx context.Context, id string, from domain.OrderStatus, paymentID string) (bool, error) {
	if m.MarkPaidFn != nil {
		return m.MarkPaidFn(ctx, id, from, paymentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, postgres.ErrOrderNotFound
	}
	if o.Status != from {
		return false, nil
	}
	if _, alreadyPaid := m.paid[id]; alreadyPaid {
		return false, nil
	}
	o.Status = domain.StatusProcessing
	m.paid[id] = paymentID
	m.notes[id] = append(m.notes[id], "FooPay payment captured")
	return true, nil
}

func (m *MockOrderStore) GetMetadata(ctx context.Context, id, key string) (string, error) {
	if m.GetMetadataFn != nil {
		return m.GetMetadataFn(ctx, id, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[id][key], nil
}

func (m *MockOrderStore) SaveSessionRef(ctx context.Context, id string, ref domain.SessionRef) error {
	if m.SaveSessionRefFn != nil {
		return m.SaveSessionRefFn(ctx, id, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metadata[id] == nil {
		m.metadata[id] = make(map[string]string)
	}
	m.metadata[id][domain.MetaPaymentID] = ref.PaymentID
	m.metadata[id][domain.MetaRedirectURL] = ref.RedirectURL
	return nil
}

// SeedMetadata plants a single metadata value, bypassing SaveSessionRef.
func (m *MockOrderStore) SeedMetadata(id, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metadata[id] == nil {
		m.metadata[id] = make(map[string]string)
	}
	m.metadata[id][key] = value
}

// Notes returns the audit notes recorded for an order.
func (m *MockOrderStore) Notes(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.notes[id]...)
}

// PaidPaymentID returns the provider payment id recorded by MarkPaid,
// or "" if the order was never marked paid.
func (m *MockOrderStore) PaidPaymentID(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paid[id]
}

// MockCredentialStore is an in-memory credential store for tests.
type MockCredentialStore struct {
	mu    sync.RWMutex
	creds map[domain.Environment]domain.Credentials

	GetFn  func(ctx context.Context, env domain.Environment) (domain.Credentials, error)
	SaveFn func(ctx context.Context, creds domain.Credentials) error
}

func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		creds: make(map[domain.Environment]domain.Credentials),
	}
}

func (m *MockCredentialStore) Get(ctx context.Context, env domain.Environment) (domain.Credentials, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, env)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.creds[env]; ok {
		return c, nil
	}
	return domain.Credentials{}, postgres.ErrCredentialsNotFound
}

func (m *MockCredentialStore) Save(ctx context.Context, creds domain.Credentials) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, creds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[creds.Environment] = creds
	return nil
}

// MockProviderClient fakes the FooPay API and counts calls per
// operation.
type MockProviderClient struct {
	mu sync.Mutex

	CreateHostedSessionCalls int
	FetchPaymentCalls        int
	SetWebhookConfigCalls    int
	ExchangeCodeCalls        int

	CreateHostedSessionFn func(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error)
	FetchPaymentFn        func(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error)
	SetWebhookConfigFn    func(ctx context.Context, appID, bearerToken, webhookURL, webhookToken string) error
	ExchangeCodeFn        func(ctx context.Context, appID, authorizationCode string) (string, error)
}

func (m *MockProviderClient) CreateHostedSession(ctx context.Context, order *domain.Order, creds domain.Credentials) (*domain.SessionRef, error) {
	m.mu.Lock()
	m.CreateHostedSessionCalls++
	m.mu.Unlock()
	if m.CreateHostedSessionFn != nil {
		return m.CreateHostedSessionFn(ctx, order, creds)
	}
	return &domain.SessionRef{
		PaymentID:   "pay-" + order.ID,
		RedirectURL: "https://pay.example/session/" + order.ID,
	}, nil
}

func (m *MockProviderClient) FetchPaymentByReference(ctx context.Context, orderID string, creds domain.Credentials) (domain.PaymentState, error) {
	m.mu.Lock()
	m.FetchPaymentCalls++
	m.mu.Unlock()
	if m.FetchPaymentFn != nil {
		return m.FetchPaymentFn(ctx, orderID, creds)
	}
	return domain.StateCreated, nil
}

func (m *MockProviderClient) SetWebhookConfig(ctx context.Context, appID, bearerToken, webhookURL, webhookToken string) error {
	m.mu.Lock()
	m.SetWebhookConfigCalls++
	m.mu.Unlock()
	if m.SetWebhookConfigFn != nil {
		return m.SetWebhookConfigFn(ctx, appID, bearerToken, webhookURL, webhookToken)
	}
	return nil
}

func (m *MockProviderClient) ExchangeAuthorizationCode(ctx context.Context, appID, authorizationCode string) (string, error) {
	m.mu.Lock()
	m.ExchangeCodeCalls++
	m.mu.Unlock()
	if m.ExchangeCodeFn != nil {
		return m.ExchangeCodeFn(ctx, appID, authorizationCode)
	}
	return "bot-token", nil
}
