// Package domain defines core data structures used throughout the exporter.
package domain

// Wallet balance pool on the exchange.
type Wallet string

const (
	// WalletSpot spot trading wallet.
	WalletSpot Wallet = "spot"
	// WalletFunding funding wallet.
	WalletFunding Wallet = "funding"
	// WalletEarn simple earn products.
	WalletEarn Wallet = "earn"
)

// String returns the string representation.
func (w Wallet) String() string {
	return string(w)
}

// IsValid checks if the Wallet value is valid.
func (w Wallet) IsValid() bool {
	return w == WalletSpot || w == WalletFunding || w == WalletEarn
}

// AllWallets returns every supported wallet type in exposition order.
func AllWallets() []Wallet {
	return []Wallet{WalletSpot, WalletFunding, WalletEarn}
}

const (
	// SubtypeFlexible flexible earn product, redeemable at any time.
	SubtypeFlexible = "flexible"
	// SubtypeLocked locked earn product with a fixed term.
	SubtypeLocked = "locked"
)
