package balances

import (
	"net/http"

	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

const earnPageSize = 100

// DefaultQueries returns the balance sources for the given wallet types,
// in exposition order: spot, funding, earn flexible, earn locked.
func DefaultQueries(wallets ...domain.Wallet) []domain.WalletQuery {
	if len(wallets) == 0 {
		wallets = domain.AllWallets()
	}
	enabled := make(map[domain.Wallet]bool, len(wallets))
	for _, w := range wallets {
		enabled[w] = true
	}

	all := []domain.WalletQuery{
		{
			Name:        "spot",
			Wallet:      domain.WalletSpot,
			Method:      http.MethodPost,
			Path:        "/sapi/v3/asset/getUserAsset",
			AmountField: "free",
		},
		{
			Name:        "funding",
			Wallet:      domain.WalletFunding,
			Method:      http.MethodPost,
			Path:        "/sapi/v1/asset/get-funding-asset",
			AmountField: "free",
		},
		{
			Name:        "earn_flexible",
			Wallet:      domain.WalletEarn,
			Subtype:     domain.SubtypeFlexible,
			Method:      http.MethodGet,
			Path:        "/sapi/v1/simple-earn/flexible/position",
			AmountField: "totalAmount",
			Paged:       true,
		},
		{
			Name:        "earn_locked",
			Wallet:      domain.WalletEarn,
			Subtype:     domain.SubtypeLocked,
			Method:      http.MethodGet,
			Path:        "/sapi/v1/simple-earn/locked/position",
			AmountField: "amount",
			Paged:       true,
		},
	}

	queries := make([]domain.WalletQuery, 0, len(all))
	for _, q := range all {
		if enabled[q.Wallet] {
			queries = append(queries, q)
		}
	}
	return queries
}
