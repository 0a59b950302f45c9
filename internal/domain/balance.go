package domain

import "github.com/shopspring/decimal"

// BalanceRecord one observed balance of an asset in a wallet.
type BalanceRecord struct {
	Asset  string
	Wallet Wallet
	// Subtype is set for earn balances only.
	Subtype string
	Amount  decimal.Decimal
}

// NewBalanceRecord creates a new BalanceRecord.
func NewBalanceRecord(asset string, wallet Wallet, subtype string, amount decimal.Decimal) BalanceRecord {
	return BalanceRecord{
		Asset:   asset,
		Wallet:  wallet,
		Subtype: subtype,
		Amount:  amount,
	}
}
