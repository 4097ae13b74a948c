package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client holds the validated Stripe credentials for this process and
// verifies webhook payloads signed with them.
type Client struct {
	environment   string
	signingSecret string
	tolerance     time.Duration
}

// NewClient validates the configured keys, then installs the API key and a
// bounded HTTP backend on the stripe package.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	client, apiKey, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	stripe.Key = apiKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)},
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
	}))

	if logg != nil {
		ctx = logg.WithField(ctx, "stripe_env", client.environment)
		logg.Info(ctx, "stripe.client.ready")
	}
	return client, nil
}

func newClient(cfg config.StripeConfig) (*Client, string, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, "", err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, "", errAPIKeyRequired
	}
	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, "", errSecretRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, "", err
	}

	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Client{environment: env, signingSecret: signingSecret, tolerance: tolerance}, apiKey, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// VerifyEvent checks the Stripe-Signature header against the payload and
// decodes the event. Timestamps outside the tolerance window are rejected.
func (c *Client) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, errSecretRequired
	}
	return webhook.ConstructEventWithOptions(payload, signatureHeader, c.signingSecret, webhook.ConstructEventOptions{
		Tolerance: c.tolerance,
	})
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	prefixes := map[string][]string{
		testEnv: {"sk_test", "rk_test"},
		liveEnv: {"sk_live", "rk_live"},
	}[env]
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires a %s secret key (sk_%s/rk_%s)", env, env, env, env)
}
