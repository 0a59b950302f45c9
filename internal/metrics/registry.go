// Package metrics turns balance records into Prometheus metric families.
package metrics

import (
	"sort"
	"strings"

	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

const (
	SpotWalletMetric    = "binance_spot_wallet"
	FundingWalletMetric = "binance_funding_wallet"
	EarnWalletMetric    = "binance_earn_wallet"

	LabelAsset = "asset"
	LabelJob   = "job"
	LabelType  = "type"

	gaugeType = "gauge"
)

var walletMetrics = map[domain.Wallet]struct {
	name string
	help string
}{
	domain.WalletSpot:    {name: SpotWalletMetric, help: "Binance Spot Wallet"},
	domain.WalletFunding: {name: FundingWalletMetric, help: "Binance Funding Wallet"},
	domain.WalletEarn:    {name: EarnWalletMetric, help: "Binance Earn Wallet"},
}

// Label a single name/value pair.
type Label struct {
	Name  string
	Value string
}

// Sample one line of the exposition.
type Sample struct {
	Name   string
	Labels []Label
	Value  float64
}

// Family samples sharing a metric name, HELP and TYPE.
type Family struct {
	Name    string
	Help    string
	Type    string
	Samples []Sample
}

// NewSample creates a sample with labels sorted by name.
func NewSample(name string, labels map[string]string, value float64) Sample {
	ls := make([]Label, 0, len(labels))
	for k, v := range labels {
		ls = append(ls, Label{Name: k, Value: v})
	}
	sort.Slice(ls, func(i, j int) bool { return ls[i].Name < ls[j].Name })
	return Sample{Name: name, Labels: ls, Value: value}
}

// SampleFromRecord maps one balance record onto its sample.
// The type label is only set for earn balances.
func SampleFromRecord(r domain.BalanceRecord, job string) (Sample, bool) {
	m, ok := walletMetrics[r.Wallet]
	if !ok {
		return Sample{}, false
	}
	labels := map[string]string{
		LabelAsset: r.Asset,
		LabelJob:   job,
	}
	if r.Wallet == domain.WalletEarn {
		labels[LabelType] = r.Subtype
	}
	return NewSample(m.name, labels, r.Amount.InexactFloat64()), true
}

// Build groups records into families sorted by name, samples sorted by label values.
// Records of unknown wallets are skipped.
func Build(records []domain.BalanceRecord, job string) []Family {
	byName := make(map[string]*Family)
	for _, r := range records {
		s, ok := SampleFromRecord(r, job)
		if !ok {
			continue
		}
		f, ok := byName[s.Name]
		if !ok {
			m := walletMetrics[r.Wallet]
			f = &Family{Name: m.name, Help: m.help, Type: gaugeType}
			byName[s.Name] = f
		}
		f.Samples = append(f.Samples, s)
	}

	families := make([]Family, 0, len(byName))
	for _, f := range byName {
		sortSamples(f.Samples)
		families = append(families, *f)
	}
	SortFamilies(families)
	return families
}

// GaugeFamily builds a single-sample gauge family.
func GaugeFamily(name, help string, labels map[string]string, value float64) Family {
	return Family{
		Name:    name,
		Help:    help,
		Type:    gaugeType,
		Samples: []Sample{NewSample(name, labels, value)},
	}
}

// SortFamilies orders families by name.
func SortFamilies(families []Family) {
	sort.SliceStable(families, func(i, j int) bool { return families[i].Name < families[j].Name })
}

func sortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return labelKey(samples[i].Labels) < labelKey(samples[j].Labels)
	})
}

// labelKey joins label values with a separator that cannot appear in them unescaped.
func labelKey(labels []Label) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(l.Name)
		b.WriteByte(0)
		b.WriteString(l.Value)
		b.WriteByte(0)
	}
	return b.String()
}
