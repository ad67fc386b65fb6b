// Package payment sells powerup packages: payment intents, checkout webhooks and the grants
// waiting to be claimed by the players.
package payment

import (
	"errors"
	"fmt"

	"github.com/spicycabbage/spotdiff/internal/game"
)

var (
	// ErrUnknownPackage is returned for a package id not in the catalog.
	ErrUnknownPackage = errors.New("invalid package")

	// ErrPaymentIncomplete is returned when confirming a payment that did not succeed.
	ErrPaymentIncomplete = errors.New("payment not completed")

	// ErrAlreadyClaimed is returned when the powerups of a transaction were already granted.
	ErrAlreadyClaimed = errors.New("transaction already claimed")

	// ErrPaymentsDisabled is returned when no payment provider is configured.
	ErrPaymentsDisabled = errors.New("payments are not configured")
)

// Package is a bundle of powerups sold at a fixed price.
type Package struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       int64         `json:"price"` // In cents.
	Powerups    game.Powerups `json:"powerups"`
	Popular     bool          `json:"popular,omitempty"`
	Color       string        `json:"color"`

	// ProductID identifies the package in checkout sessions paid through PaymentLink.
	ProductID   string `json:"-"`
	PaymentLink string `json:"paymentLink,omitempty"`
}

// PriceString formats the price in dollars.
func (p Package) PriceString() string {
	return fmt.Sprintf("$%d.%02d", p.Price/100, p.Price%100)
}

// Packages is the catalog, in display order.
var Packages = []Package{
	{
		ID:          "casual",
		Name:        "Casual Fan",
		Description: "Perfect for getting started",
		Price:       99,
		Powerups:    game.Powerups{Time: 5, Hints: 2, Skips: 0},
		Color:       "yellow",
		ProductID:   "prod_TAIwiwPlIasZAM",
		PaymentLink: "https://buy.stripe.com/dRmfZi4xYbo03ta77t6sw02",
	},
	{
		ID:          "super",
		Name:        "Super Fan",
		Description: "Best value for regular players",
		Price:       499,
		Powerups:    game.Powerups{Time: 25, Hints: 15, Skips: 1},
		Popular:     true,
		Color:       "green",
		ProductID:   "prod_TAIw8n9HgWbUR1",
		PaymentLink: "https://buy.stripe.com/8x214o2pQgIk4xe2Rd6sw01",
	},
	{
		ID:          "leader",
		Name:        "Fan Club Leader",
		Description: "Maximum powerups for champions",
		Price:       1999,
		Powerups:    game.Powerups{Time: 100, Hints: 80, Skips: 7},
		Color:       "purple",
		ProductID:   "prod_TAIwEzATegHXOR",
		PaymentLink: "https://buy.stripe.com/00w9AU5C22Ru6FmgI36sw00",
	},
}

// FindPackage returns the package with the given id.
func FindPackage(id string) (Package, error) {
	for _, p := range Packages {
		if p.ID == id {
			return p, nil
		}
	}
	return Package{}, fmt.Errorf("%w: %q", ErrUnknownPackage, id)
}

// PackageForProduct returns the package sold as the given checkout product.
func PackageForProduct(productID string) (Package, bool) {
	for _, p := range Packages {
		if p.ProductID == productID {
			return p, true
		}
	}
	return Package{}, false
}
