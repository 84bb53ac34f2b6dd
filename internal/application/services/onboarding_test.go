package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/foopay/storefront-adapter/internal/application"
	"github.com/foopay/storefront-adapter/internal/application/services"
	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOnboarding(t *testing.T) (*services.OnboardingService, *services.MockCredentialStore, *services.MockProviderClient) {
	t.Helper()
	creds := services.NewMockCredentialStore()
	providerClient := &services.MockProviderClient{}
	svc := services.NewOnboardingService(
		creds,
		providerClient,
		domain.EnvSandbox,
		"app-1",
		"https://shop.example",
		testLogger(),
	)
	return svc, creds, providerClient
}

func TestCompleteSetup_HappyPath(t *testing.T) {
	ctx := context.Background()
	svc, creds, providerClient := newOnboarding(t)

	var gotWebhookURL, gotWebhookToken, gotBearer string
	providerClient.ExchangeCodeFn = func(ctx context.Context, appID, code string) (string, error) {
		assert.Equal(t, "app-1", appID)
		assert.Equal(t, "one-time-code", code)
		return "bot-token-xyz", nil
	}
	providerClient.SetWebhookConfigFn = func(ctx context.Context, appID, bearerToken, webhookURL, webhookToken string) error {
		gotBearer = bearerToken
		gotWebhookURL = webhookURL
		gotWebhookToken = webhookToken
		return nil
	}

	require.NoError(t, svc.CompleteSetup(ctx, "app-1", "one-time-code"))

	assert.Equal(t, "bot-token-xyz", gotBearer)
	assert.Equal(t, "https://shop.example/webhook", gotWebhookURL)
	assert.Len(t, gotWebhookToken, 64)

	saved, err := creds.Get(ctx, domain.EnvSandbox)
	require.NoError(t, err)
	assert.Equal(t, "app-1", saved.AppID)
	assert.Equal(t, "bot-token-xyz", saved.BearerToken)
	assert.Equal(t, gotWebhookToken, saved.WebhookToken)
	assert.NoError(t, saved.Validate())
}

func TestCompleteSetup_RejectsMissingCode(t *testing.T) {
	ctx := context.Background()
	svc, _, providerClient := newOnboarding(t)

	err := svc.CompleteSetup(ctx, "app-1", "")

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeValidation, svcErr.Code)
	assert.Equal(t, 0, providerClient.ExchangeCodeCalls)
}

func TestCompleteSetup_RejectsWrongAppID(t *testing.T) {
	ctx := context.Background()
	svc, _, providerClient := newOnboarding(t)

	for _, appID := range []string{"", "other-app"} {
		err := svc.CompleteSetup(ctx, appID, "one-time-code")

		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok, "appId %q", appID)
		assert.Equal(t, application.ErrCodeValidation, svcErr.Code)
	}
	assert.Equal(t, 0, providerClient.ExchangeCodeCalls)
}

func TestCompleteSetup_ExchangeFailureLeavesCredentialsUntouched(t *testing.T) {
	ctx := context.Background()
	svc, creds, providerClient := newOnboarding(t)

	providerClient.ExchangeCodeFn = func(ctx context.Context, appID, code string) (string, error) {
		return "", errors.New("401 from provider")
	}

	err := svc.CompleteSetup(ctx, "app-1", "stale-code")

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeProviderRequest, svcErr.Code)
	assert.Equal(t, 0, providerClient.SetWebhookConfigCalls)

	_, err = creds.Get(ctx, domain.EnvSandbox)
	assert.Error(t, err, "nothing should have been persisted")
}

func TestGenerateWebhookToken_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, creds, _ := newOnboarding(t)

	first, err := svc.GenerateWebhookToken(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := svc.GenerateWebhookToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	saved, err := creds.Get(ctx, domain.EnvSandbox)
	require.NoError(t, err)
	assert.Equal(t, first, saved.WebhookToken)
}

func TestGenerateWebhookToken_KeepsExistingToken(t *testing.T) {
	ctx := context.Background()
	svc, creds, _ := newOnboarding(t)

	require.NoError(t, creds.Save(ctx, domain.Credentials{
		Environment:  domain.EnvSandbox,
		AppID:        "app-1",
		BearerToken:  "bot-token",
		WebhookToken: "existing-token",
	}))

	token, err := svc.GenerateWebhookToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "existing-token", token)
}
