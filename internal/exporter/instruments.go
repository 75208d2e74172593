package exporter

import (
	"go.opentelemetry.io/otel/metric"
)

// instruments are the exporter's own health metrics. They carry no account
// labels so that removed accounts vanish from the output entirely.
type instruments struct {
	scrapeDuration  metric.Float64Histogram
	accountFailures metric.Int64Counter
	accounts        metric.Int64Gauge
	series          metric.Int64Gauge
	lastSuccess     metric.Float64Gauge
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	scrapeDuration, err := meter.Float64Histogram("orangepl.exporter.scrape.duration",
		metric.WithDescription("Time taken by one full scrape cycle"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	accountFailures, err := meter.Int64Counter("orangepl.exporter.account.failures",
		metric.WithDescription("Accounts or account item groups that failed, by pipeline stage"))
	if err != nil {
		return nil, err
	}

	accounts, err := meter.Int64Gauge("orangepl.exporter.accounts",
		metric.WithDescription("Accounts processed in the last scrape, by result"))
	if err != nil {
		return nil, err
	}

	series, err := meter.Int64Gauge("orangepl.exporter.series",
		metric.WithDescription("Gauge series published by the last scrape"))
	if err != nil {
		return nil, err
	}

	lastSuccess, err := meter.Float64Gauge("orangepl.exporter.last_success",
		metric.WithDescription("Unix timestamp of the last scrape that read the account file and published its results"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &instruments{
		scrapeDuration:  scrapeDuration,
		accountFailures: accountFailures,
		accounts:        accounts,
		series:          series,
		lastSuccess:     lastSuccess,
	}, nil
}
