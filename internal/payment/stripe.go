package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"k8s.io/klog/v2"
)

// StripeProvider implements Provider with the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a provider for the given secret key. The webhook secret is used
// to verify the signature of webhook calls.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	if len(secretKey) > 8 {
		klog.Infof("Stripe key starts with %s...", secretKey[:8])
	}
	return &StripeProvider{api: sc, webhookSecret: webhookSecret}
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Succeeded:    pi.Status == stripe.PaymentIntentStatusSucceeded,
		Metadata:     pi.Metadata,
	}
}

// CreateIntent implements Provider.
func (p *StripeProvider) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return toIntent(pi), nil
}

// GetIntent implements Provider.
func (p *StripeProvider) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %q: %w", id, err)
	}
	return toIntent(pi), nil
}

// ParseWebhook implements Provider.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*CheckoutCompleted, error) {
	return parseStripeWebhook(payload, signature, p.webhookSecret)
}

func parseStripeWebhook(payload []byte, signature, secret string) (*CheckoutCompleted, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		klog.V(1).Infof("Ignoring Stripe event %s", event.Type)
		return nil, nil
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	completed := &CheckoutCompleted{
		SessionID: session.ID,
		Email:     "unknown",
		ProductID: session.Metadata[metaProductID],
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		completed.Email = session.CustomerDetails.Email
	}
	return completed, nil
}
