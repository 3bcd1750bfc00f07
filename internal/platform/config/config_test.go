package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "mirabelle-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.PubSub.ProjectID != "mirabelle-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.LifecycleTopic != defaultLifecycleTopic {
		t.Errorf("unexpected default lifecycle topic: %s", cfg.PubSub.LifecycleTopic)
	}
	if cfg.PSP.CheckoutLocale != "fr" {
		t.Errorf("expected default checkout locale fr, got %s", cfg.PSP.CheckoutLocale)
	}
	if !cfg.Features.EnableNotifications {
		t.Error("expected notifications enabled by default")
	}
	if cfg.Features.EnableLifecycleTopic {
		t.Error("expected lifecycle topic disabled by default")
	}
	if cfg.RateLimits.DefaultPerMinute != 120 {
		t.Errorf("unexpected default rate limit: %d", cfg.RateLimits.DefaultPerMinute)
	}
	if cfg.Notifications.FromAddress != defaultNotifyFromAddress {
		t.Errorf("unexpected default from address: %s", cfg.Notifications.FromAddress)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected default idempotency ttl: %s", cfg.Idempotency.TTL)
	}
}

func TestLoadEnvMapPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "API_SERVER_PORT=9090\nAPI_FIRESTORE_PROJECT_ID=from-dotenv\nAPI_PSP_CHECKOUT_LOCALE=de\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "from-map",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected dotenv port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "from-map" {
		t.Errorf("expected env map to win over dotenv, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.PSP.CheckoutLocale != "de" {
		t.Errorf("expected dotenv locale de, got %s", cfg.PSP.CheckoutLocale)
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID":      "mirabelle-dev",
		"API_PSP_STRIPE_API_KEY":        "sm://projects/p/secrets/stripe-key/versions/latest",
		"API_PSP_STRIPE_WEBHOOK_SECRET": "whsec_plain",
	}

	var requestedRef string
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		requestedRef = ref
		return "sk_test_resolved", nil
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.PSP.StripeAPIKey != "sk_test_resolved" {
		t.Errorf("expected resolved stripe key, got %s", cfg.PSP.StripeAPIKey)
	}
	if requestedRef != "secret://projects/p/secrets/stripe-key/versions/latest" {
		t.Errorf("expected normalized secret ref, got %s", requestedRef)
	}
	if cfg.PSP.StripeWebhookSecret != "whsec_plain" {
		t.Errorf("plain values must pass through untouched, got %s", cfg.PSP.StripeWebhookSecret)
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "mirabelle-dev",
		"API_PSP_STRIPE_API_KEY":   "secret://projects/p/secrets/stripe-key",
	}

	boom := errors.New("permission denied")
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		return "", boom
	})

	_, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err == nil {
		t.Fatal("expected error")
	}

	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if !errors.Is(err, boom) {
		t.Error("expected wrapped resolver error")
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := validationErr.Fields()
	found := false
	for _, field := range fields {
		if field == "Firestore.ProjectID" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Firestore.ProjectID in missing fields, got %v", fields)
	}
}

func TestLoadRequiredSecretsMissing(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "mirabelle-dev",
	}

	_, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("PSP.StripeAPIKey", "Notifications.ResendAPIKey"),
	)
	if err == nil {
		t.Fatal("expected missing secrets error")
	}

	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	if got := len(missing.Names()); got != 2 {
		t.Fatalf("expected 2 missing secrets, got %d", got)
	}
	for _, name := range missing.RedactedNames() {
		if name == "PSP.StripeAPIKey" || name == "Notifications.ResendAPIKey" {
			t.Errorf("redacted names must not expose the identifier: %s", name)
		}
	}
}
