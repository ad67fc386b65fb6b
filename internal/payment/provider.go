package payment

import "context"

// Intent is a payment intent as seen by the game.
type Intent struct {
	ID           string
	ClientSecret string
	Succeeded    bool
	Metadata     map[string]string
}

// CheckoutCompleted is a paid checkout session, reported by the provider's webhook.
type CheckoutCompleted struct {
	SessionID string
	Email     string
	ProductID string
}

// Provider is the payment processor.
type Provider interface {
	// CreateIntent starts a payment of amount cents.
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)

	// GetIntent retrieves an existing payment intent.
	GetIntent(ctx context.Context, id string) (*Intent, error)

	// ParseWebhook verifies the signature of a webhook call and decodes it.
	// It returns nil, nil for verified events the game does not handle.
	ParseWebhook(payload []byte, signature string) (*CheckoutCompleted, error)
}

// Metadata keys attached to payment intents.
const (
	metaPackageID     = "packageId"
	metaCustomerEmail = "customerEmail"
	metaTime          = "powerupsTime"
	metaHints         = "powerupsHints"
	metaSkips         = "powerupsSkips"
	metaProductID     = "product_id"
)
