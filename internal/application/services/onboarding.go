package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foopay/storefront-adapter/internal/application"
	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/foopay/storefront-adapter/internal/infrastructure/persistence/postgres"
)

// OnboardingService runs the one-time setup handshake with FooPay:
// authorization code to bot token exchange, webhook registration and
// credential persistence. It is the only writer of the credential
// store.
type OnboardingService struct {
	credentials   application.CredentialStore
	provider      application.ProviderClient
	env           domain.Environment
	expectedAppID string
	publicBaseURL string
	logger        *slog.Logger
}

func NewOnboardingService(
	credentials application.CredentialStore,
	provider application.ProviderClient,
	env domain.Environment,
	expectedAppID string,
	publicBaseURL string,
	logger *slog.Logger,
) *OnboardingService {
	return &OnboardingService{
		credentials:   credentials,
		provider:      provider,
		env:           env,
		expectedAppID: expectedAppID,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// CompleteSetup handles the return leg of the FooPay panel handshake.
// The authorization code is single-use; everything downstream of the
// exchange is idempotent, so a replayed setup callback at worst fails
// at the exchange step and leaves stored credentials intact.
func (s *OnboardingService) CompleteSetup(ctx context.Context, appID, authorizationCode string) error {
	if authorizationCode == "" {
		return application.NewValidationError("authorizationCode parameter is required")
	}
	if appID == "" || appID != s.expectedAppID {
		return application.NewValidationError("appId parameter is wrong")
	}

	botToken, err := s.provider.ExchangeAuthorizationCode(ctx, appID, authorizationCode)
	if err != nil {
		s.logger.Error("authorization code exchange failed", "app_id", appID, "error", err)
		return application.NewProviderRequestError(err)
	}

	webhookToken, err := s.GenerateWebhookToken(ctx)
	if err != nil {
		return err
	}

	webhookURL := s.publicBaseURL + "/webhook"
	if err := s.provider.SetWebhookConfig(ctx, appID, botToken, webhookURL, webhookToken); err != nil {
		s.logger.Error("webhook registration failed", "app_id", appID, "error", err)
		return application.NewProviderRequestError(err)
	}

	creds := domain.Credentials{
		Environment:  s.env,
		AppID:        appID,
		BearerToken:  botToken,
		WebhookToken: webhookToken,
	}
	if err := s.credentials.Save(ctx, creds); err != nil {
		return application.NewInternalError(err)
	}

	s.logger.Info("setup completed",
		"environment", s.env,
		"app_id", appID,
		"webhook_url", webhookURL,
	)

	return nil
}

// GenerateWebhookToken returns the environment's webhook shared token,
// minting and persisting one on first use. Repeated calls return the
// existing token.
func (s *OnboardingService) GenerateWebhookToken(ctx context.Context) (string, error) {
	creds, err := s.credentials.Get(ctx, s.env)
	if err != nil && !errors.Is(err, postgres.ErrCredentialsNotFound) {
		return "", application.NewInternalError(err)
	}
	if creds.WebhookToken != "" {
		return creds.WebhookToken, nil
	}

	token, err := newWebhookToken()
	if err != nil {
		return "", application.NewInternalError(err)
	}

	creds.Environment = s.env
	creds.WebhookToken = token
	if err := s.credentials.Save(ctx, creds); err != nil {
		return "", application.NewInternalError(err)
	}

	return token, nil
}

// newWebhookToken mints a 64-character hex token.
func newWebhookToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate webhook token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
