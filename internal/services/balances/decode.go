package balances

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

// earnPage one page of a simple earn position listing.
type earnPage struct {
	Rows  *[]map[string]json.RawMessage `json:"rows"`
	Total *int                          `json:"total"`
}

// decodeAssetList maps a JSON array of asset balances onto records.
func decodeAssetList(q domain.WalletQuery, body []byte) ([]domain.BalanceRecord, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &domain.DecodeError{Endpoint: q.Path, Err: errors.Wrap(err, "expected a JSON array of balances")}
	}
	return decodeEntries(q, entries)
}

// decodeEarnPage maps one earn page onto records and returns the advertised total.
func decodeEarnPage(q domain.WalletQuery, body []byte) ([]domain.BalanceRecord, int, error) {
	var page earnPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, 0, &domain.DecodeError{Endpoint: q.Path, Err: errors.Wrap(err, "expected an object with rows and total")}
	}
	if page.Rows == nil {
		return nil, 0, &domain.DecodeError{Endpoint: q.Path, Err: errors.New("missing field rows")}
	}
	if page.Total == nil {
		return nil, 0, &domain.DecodeError{Endpoint: q.Path, Err: errors.New("missing field total")}
	}

	records, err := decodeEntries(q, *page.Rows)
	if err != nil {
		return nil, 0, err
	}
	return records, *page.Total, nil
}

func decodeEntries(q domain.WalletQuery, entries []map[string]json.RawMessage) ([]domain.BalanceRecord, error) {
	records := make([]domain.BalanceRecord, 0, len(entries))
	for i, entry := range entries {
		asset, err := stringField(entry, "asset")
		if err != nil {
			return nil, &domain.DecodeError{Endpoint: q.Path, Err: errors.Wrapf(err, "entry %d", i)}
		}
		if asset == "" {
			return nil, &domain.DecodeError{Endpoint: q.Path, Err: fmt.Errorf("entry %d: empty asset", i)}
		}
		raw, err := stringField(entry, q.AmountField)
		if err != nil {
			return nil, &domain.DecodeError{Endpoint: q.Path, Err: errors.Wrapf(err, "entry %d (%s)", i, asset)}
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, &domain.DecodeError{Endpoint: q.Path, Err: errors.Wrapf(err, "entry %d (%s): invalid %s", i, asset, q.AmountField)}
		}
		records = append(records, domain.NewBalanceRecord(asset, q.Wallet, q.Subtype, amount))
	}
	return records, nil
}

// stringField reads a required string field. Binance sends amounts as JSON strings.
func stringField(entry map[string]json.RawMessage, name string) (string, error) {
	raw, ok := entry[name]
	if !ok {
		return "", fmt.Errorf("missing field %s", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %s is not a string", name)
	}
	return s, nil
}

// mergeRecords sums rows of the same asset, wallet and subtype into one record,
// keeping first-seen order. Locked earn lists one row per subscription.
func mergeRecords(records []domain.BalanceRecord) []domain.BalanceRecord {
	type key struct {
		wallet  domain.Wallet
		subtype string
		asset   string
	}
	index := make(map[key]int, len(records))
	merged := make([]domain.BalanceRecord, 0, len(records))
	for _, r := range records {
		k := key{wallet: r.Wallet, subtype: r.Subtype, asset: r.Asset}
		if i, ok := index[k]; ok {
			merged[i].Amount = merged[i].Amount.Add(r.Amount)
			continue
		}
		index[k] = len(merged)
		merged = append(merged, r)
	}
	return merged
}
