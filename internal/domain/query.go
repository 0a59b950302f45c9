package domain

import "net/url"

// WalletQuery describes one balance source on the exchange.
type WalletQuery struct {
	// Name identifies the query in logs and self-metrics.
	Name    string
	Wallet  Wallet
	Subtype string
	Method  string
	Path    string
	Params  map[string]string
	// AmountField is the JSON field holding the balance amount.
	AmountField string
	// Paged marks endpoints answering with {rows, total} pages.
	Paged bool
}

// Values returns a fresh copy of the query parameters.
func (q WalletQuery) Values() url.Values {
	v := make(url.Values, len(q.Params))
	for key, value := range q.Params {
		v.Set(key, value)
	}
	return v
}
