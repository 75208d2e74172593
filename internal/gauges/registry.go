// Package gauges holds the exported metric schema, the registry serving it
// and the projection of provider documents onto it.
package gauges

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orangepl" // For Prometheus metrics.

// Metric identifies one gauge family of the schema.
type Metric int

const (
	AccountsInfo Metric = iota
	BillingAccountsInfo
	PrepaidExpiryDate
	PrepaidCash
	PrepaidAllowanceData
	PrepaidAllowanceDataItem
	PrepaidAllowanceDataItemExpiryDate
	metricCount
)

var (
	accountLabels = []string{"username", "customer_id"}
	prepaidLabels = []string{"username", "customer_id", "billing_account_code"}
)

func withLabels(base []string, extra ...string) []string {
	return append(append([]string(nil), base...), extra...)
}

var definitions = [metricCount]struct {
	name   string
	help   string
	labels []string
}{
	AccountsInfo: {"accounts_info", "Orange PL accounts info",
		accountLabels},
	BillingAccountsInfo: {"billing_accounts_info", "Orange PL billing accounts info",
		withLabels(accountLabels, "billing_account_type", "billing_account_code", "billing_account_name")},
	PrepaidExpiryDate: {"prepaid_expiry_date", "Orange PL prepaid expiry date",
		prepaidLabels},
	PrepaidCash: {"prepaid_cash_pln", "Orange PL prepaid cash",
		withLabels(prepaidLabels, "cash_type")},
	PrepaidAllowanceData: {"prepaid_allowance_data_bytes", "Orange PL prepaid data allowance",
		withLabels(prepaidLabels, "data_type")},
	PrepaidAllowanceDataItem: {"prepaid_allowance_data_item_bytes", "Orange PL prepaid data allowance breakdown",
		withLabels(prepaidLabels, "data_type", "description")},
	PrepaidAllowanceDataItemExpiryDate: {"prepaid_allowance_data_item_expiry_date", "Orange PL prepaid data allowance breakdown expiry date",
		withLabels(prepaidLabels, "data_type", "description")},
}

// Name returns the fully qualified metric name.
func (m Metric) Name() string {
	return prometheus.BuildFQName(namespace, "", definitions[m].name)
}

// Observation is one labeled gauge value. Labels follow the order of the
// metric's label names.
type Observation struct {
	Metric Metric
	Labels []string
	Value  float64
}

func (o Observation) key() string {
	return fmt.Sprintf("%d\xff%s", o.Metric, strings.Join(o.Labels, "\xff"))
}

// Snapshot is a complete set of gauge series. A series set twice keeps the
// last value. A Snapshot is not safe for concurrent writes; it is built by
// one goroutine and then handed to Registry.Publish.
type Snapshot struct {
	series map[string]Observation
}

func NewSnapshot() *Snapshot {
	return &Snapshot{series: make(map[string]Observation)}
}

// Set stores o. Like GaugeVec.WithLabelValues it panics when the label
// count does not match the metric.
func (s *Snapshot) Set(o Observation) {
	if want := len(definitions[o.Metric].labels); len(o.Labels) != want {
		panic(fmt.Sprintf("gauges: %s expects %d labels, got %d", o.Metric.Name(), want, len(o.Labels)))
	}
	s.series[o.key()] = o
}

func (s *Snapshot) Len() int { return len(s.series) }

// Observations returns the series ordered by metric, then label values.
func (s *Snapshot) Observations() []Observation {
	out := make([]Observation, 0, len(s.series))
	for _, o := range s.series {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metric != out[j].Metric {
			return out[i].Metric < out[j].Metric
		}
		return strings.Join(out[i].Labels, "\xff") < strings.Join(out[j].Labels, "\xff")
	})
	return out
}

// Registry exposes the most recently published Snapshot as Prometheus
// gauges. Publishing swaps the whole set at once, so a concurrent Collect
// sees either the previous scrape or the new one, never a mix.
type Registry struct {
	descs   [metricCount]*prometheus.Desc
	current atomic.Pointer[Snapshot]
}

func NewRegistry() *Registry {
	r := &Registry{}
	for m, def := range definitions {
		r.descs[m] = prometheus.NewDesc(Metric(m).Name(), def.help, def.labels, nil)
	}
	r.current.Store(NewSnapshot())
	return r
}

// Clear drops every series.
func (r *Registry) Clear() {
	r.current.Store(NewSnapshot())
}

// Publish replaces every series with the content of s. s must not be
// modified afterwards.
func (r *Registry) Publish(s *Snapshot) {
	r.current.Store(s)
}

// Current returns the published snapshot.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range r.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	for _, o := range r.current.Load().series {
		desc := r.descs[o.Metric]
		m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, o.Value, o.Labels...)
		if err != nil {
			m = prometheus.NewInvalidMetric(desc, err)
		}
		ch <- m
	}
}
