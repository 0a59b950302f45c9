package metrics

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

const job = "binance-exporter"

func rec(asset string, wallet domain.Wallet, subtype, amount string) domain.BalanceRecord {
	return domain.NewBalanceRecord(asset, wallet, subtype, decimal.RequireFromString(amount))
}

func render(t *testing.T, families []Family) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, families))
	return buf.String()
}

func TestBuild_MappingRule(t *testing.T) {
	records := []domain.BalanceRecord{
		rec("BNB", domain.WalletSpot, "", "0.00171769"),
		rec("USDT", domain.WalletFunding, "", "12.5"),
		rec("DOGE", domain.WalletEarn, domain.SubtypeFlexible, "4.0"),
	}

	families := Build(records, job)

	require.Len(t, families, 3)
	assert.Equal(t, EarnWalletMetric, families[0].Name)
	assert.Equal(t, FundingWalletMetric, families[1].Name)
	assert.Equal(t, SpotWalletMetric, families[2].Name)

	assert.Equal(t, []Label{{"asset", "DOGE"}, {"job", job}, {"type", "flexible"}}, families[0].Samples[0].Labels)
	assert.Equal(t, []Label{{"asset", "USDT"}, {"job", job}}, families[1].Samples[0].Labels)
	assert.Equal(t, []Label{{"asset", "BNB"}, {"job", job}}, families[2].Samples[0].Labels)
	assert.Equal(t, 0.00171769, families[2].Samples[0].Value)
}

func TestWriteText_RoundTrip(t *testing.T) {
	records := []domain.BalanceRecord{
		rec("BNB", domain.WalletSpot, "", "0.00171769"),
		rec("ADA", domain.WalletSpot, "", "0"),
		rec("USDT", domain.WalletFunding, "", "12.5"),
		rec("ETH", domain.WalletEarn, domain.SubtypeLocked, "2"),
		rec("ETH", domain.WalletEarn, domain.SubtypeFlexible, "1.5"),
		rec("DOGE", domain.WalletEarn, domain.SubtypeFlexible, "4.0"),
	}

	expected := `# HELP binance_earn_wallet Binance Earn Wallet
# TYPE binance_earn_wallet gauge
binance_earn_wallet{asset="DOGE",job="binance-exporter",type="flexible"} 4.0
binance_earn_wallet{asset="ETH",job="binance-exporter",type="flexible"} 1.5
binance_earn_wallet{asset="ETH",job="binance-exporter",type="locked"} 2.0
# HELP binance_funding_wallet Binance Funding Wallet
# TYPE binance_funding_wallet gauge
binance_funding_wallet{asset="USDT",job="binance-exporter"} 12.5
# HELP binance_spot_wallet Binance Spot Wallet
# TYPE binance_spot_wallet gauge
binance_spot_wallet{asset="ADA",job="binance-exporter"} 0.0
binance_spot_wallet{asset="BNB",job="binance-exporter"} 0.00171769
`

	assert.Equal(t, expected, render(t, Build(records, job)))
}

func TestWriteText_Idempotent(t *testing.T) {
	records := []domain.BalanceRecord{
		rec("C", domain.WalletSpot, "", "3"),
		rec("A", domain.WalletSpot, "", "1"),
		rec("B", domain.WalletEarn, domain.SubtypeLocked, "2"),
		rec("B", domain.WalletEarn, domain.SubtypeFlexible, "2"),
	}

	first := render(t, Build(records, job))
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, render(t, Build(records, job)))
	}
}

func TestWriteText_EscapesLabelValues(t *testing.T) {
	f := GaugeFamily("x", "help with \\ and\nnewline", map[string]string{"v": "a\"b\\c\nd"}, 1)

	assert.Equal(t, "# HELP x help with \\\\ and\\nnewline\n# TYPE x gauge\nx{v=\"a\\\"b\\\\c\\nd\"} 1.0\n", render(t, []Family{f}))
}

func TestWriteText_SkipsEmptyFamilies(t *testing.T) {
	assert.Empty(t, render(t, []Family{{Name: "x", Help: "h", Type: gaugeType}}))
	assert.Empty(t, render(t, Build(nil, job)))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{0, "0.0"},
		{4, "4.0"},
		{0.00171769, "0.00171769"},
		{12.5, "12.5"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{0.00000001, "1e-08"},
		{123456789, "123456789.0"},
		{1e16, "1e+16"},
		{-2.5, "-2.5"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatValue(tt.in), "value %v", tt.in)
	}
}
