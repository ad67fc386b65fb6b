package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spicycabbage/spotdiff/internal/game"
	"k8s.io/klog/v2"
)

// GuestEmail is recorded for payments made without an email.
const GuestEmail = "guest@game.com"

// Service implements the purchase flows on top of a Provider.
type Service struct {
	provider Provider
	pending  PendingStore
	ledger   *Ledger
	currency string
}

// NewService creates the payment service. A nil provider disables the flows that need one
// (creating, confirming and webhooks) but still lets players claim their pending grants.
func NewService(provider Provider, pending PendingStore, ledger *Ledger, currency string) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{provider: provider, pending: pending, ledger: ledger, currency: currency}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

// IntentResponse is returned when a payment is started.
type IntentResponse struct {
	ClientSecret string  `json:"clientSecret"`
	Package      Package `json:"package"`
}

// CreateIntent starts the payment of the package for the customer.
func (s *Service) CreateIntent(ctx context.Context, packageID, email string) (*IntentResponse, error) {
	pkg, err := FindPackage(packageID)
	if err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ErrPaymentsDisabled
	}
	if email == "" {
		email = GuestEmail
	}
	intent, err := s.provider.CreateIntent(ctx, pkg.Price, s.currency, map[string]string{
		metaPackageID:     pkg.ID,
		metaCustomerEmail: email,
		metaTime:          strconv.Itoa(pkg.Powerups.Time),
		metaHints:         strconv.Itoa(pkg.Powerups.Hints),
		metaSkips:         strconv.Itoa(pkg.Powerups.Skips),
	})
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Created payment intent %s for package %s (%s)", intent.ID, pkg.ID, email)
	return &IntentResponse{ClientSecret: intent.ClientSecret, Package: pkg}, nil
}

// Confirmation is returned for a confirmed payment.
type Confirmation struct {
	Success       bool          `json:"success"`
	Powerups      game.Powerups `json:"powerups"`
	PackageID     string        `json:"packageId"`
	TransactionID string        `json:"transactionId"`
}

// Confirm checks that the payment intent succeeded and grants its powerups. Each intent is
// granted once: later calls return ErrAlreadyClaimed.
func (s *Service) Confirm(ctx context.Context, intentID string) (*Confirmation, error) {
	if s.provider == nil {
		return nil, ErrPaymentsDisabled
	}
	if tx, err := s.ledger.Get(ctx, intentID); err != nil {
		return nil, err
	} else if tx != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClaimed, intentID)
	}

	intent, err := s.provider.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !intent.Succeeded {
		return nil, ErrPaymentIncomplete
	}
	powerups, err := metadataPowerups(intent.Metadata)
	if err != nil {
		return nil, fmt.Errorf("payment intent %s: %w", intentID, err)
	}
	tx := Transaction{
		ID:        intentID,
		PackageID: intent.Metadata[metaPackageID],
		Email:     intent.Metadata[metaCustomerEmail],
		Powerups:  powerups,
	}
	added, err := s.ledger.Record(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClaimed, intentID)
	}
	klog.Infof("Payment %s confirmed: granted %s to %s", intentID, powerups, tx.Email)
	return &Confirmation{
		Success:       true,
		Powerups:      powerups,
		PackageID:     tx.PackageID,
		TransactionID: intentID,
	}, nil
}

func metadataPowerups(metadata map[string]string) (game.Powerups, error) {
	var p game.Powerups
	for key, target := range map[string]*int{metaTime: &p.Time, metaHints: &p.Hints, metaSkips: &p.Skips} {
		v, err := strconv.Atoi(metadata[key])
		if err != nil {
			return game.Powerups{}, fmt.Errorf("invalid metadata %s=%q: %w", key, metadata[key], err)
		}
		*target = v
	}
	return p, nil
}

// HandleWebhook processes a webhook call from the provider: a completed checkout of a known
// product leaves a pending grant for the customer's email.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return ErrPaymentsDisabled
	}
	checkout, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if checkout == nil {
		return nil
	}
	pkg, ok := PackageForProduct(checkout.ProductID)
	if !ok {
		klog.Warningf("Checkout %s for unknown product %q ignored", checkout.SessionID, checkout.ProductID)
		return nil
	}
	added, err := s.ledger.Record(ctx, Transaction{
		ID:        checkout.SessionID,
		PackageID: pkg.ID,
		Email:     checkout.Email,
		Powerups:  pkg.Powerups,
	})
	if err != nil {
		return err
	}
	if !added {
		klog.Infof("Checkout %s already processed", checkout.SessionID)
		return nil
	}
	err = s.pending.Add(ctx, checkout.Email, Grant{
		Powerups:  pkg.Powerups,
		Timestamp: time.Now().UnixMilli(),
		SessionID: checkout.SessionID,
	})
	if err != nil {
		return err
	}
	klog.Infof("Payment received from %s for product %s: powerups pending %s", checkout.Email, checkout.ProductID, pkg.Powerups)
	return nil
}

// Pending lists the grants waiting for email.
func (s *Service) Pending(ctx context.Context, email string) ([]Grant, error) {
	return s.pending.List(ctx, email)
}

// Claim sums and removes the grants waiting for email. It returns false if there were none.
func (s *Service) Claim(ctx context.Context, email string) (game.Powerups, bool, error) {
	grants, err := s.pending.Take(ctx, email)
	if err != nil {
		return game.Powerups{}, false, err
	}
	if len(grants) == 0 {
		return game.Powerups{}, false, nil
	}
	var total game.Powerups
	for _, g := range grants {
		total = total.Add(g.Powerups)
	}
	klog.Infof("Granted powerups to %s: %s", email, total)
	return total, true, nil
}
