package exporter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mateuszdrab/orangepl-exporter/internal/config"
)

// Handler runs a scrape for every request and then serves gatherer in the
// Prometheus exposition format.
func Handler(s *Scraper, gatherer prometheus.Gatherer) http.Handler {
	metrics := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.Scrape(r.Context()); err != nil {
			slog.Error("scrape: failed", "err", err)
			msg := "scrape failed"
			var cfgErr *config.ConfigError
			if errors.As(err, &cfgErr) {
				msg = "account configuration unavailable"
			}
			http.Error(w, msg, http.StatusInternalServerError)
			return
		}
		metrics.ServeHTTP(w, r)
	})
}
