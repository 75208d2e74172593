package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/mateuszdrab/orangepl-exporter/internal/config"
	"github.com/mateuszdrab/orangepl-exporter/internal/exporter"
	"github.com/mateuszdrab/orangepl-exporter/internal/gauges"
	"github.com/mateuszdrab/orangepl-exporter/internal/orange"
)

type app struct {
	settings *config.Settings
	scraper  *exporter.Scraper
	gatherer *prometheus.Registry
	shutdown func(context.Context) error
}

func wireApp(ctx context.Context, v *viper.Viper, configFile string, runtimeMetrics bool) (*app, error) {
	settings, err := config.Load(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	setupLogging(settings.Debug)

	loc, err := settings.Scrape.Location()
	if err != nil {
		return nil, fmt.Errorf("scrape timezone: %w", err)
	}

	reg := prometheus.NewRegistry()
	if runtimeMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	registry := gauges.NewRegistry()
	if err := reg.Register(registry); err != nil {
		return nil, fmt.Errorf("register gauges: %w", err)
	}

	provider, err := setupOTel(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("setup otel: %w", err)
	}

	client, err := orange.NewClient(settings.API, nil)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	pipelines, err := orange.NewProvider(client, settings.API.Key, settings.Generations)
	if err != nil {
		return nil, fmt.Errorf("api pipelines: %w", err)
	}

	scraper, err := exporter.New(exporter.Options{
		AccountsFile: settings.AccountsFile,
		Concurrency:  settings.Scrape.Concurrency,
		Timeout:      settings.Scrape.Timeout,
		Location:     loc,
	}, pipelines, registry, provider.Meter("orangepl-exporter"))
	if err != nil {
		return nil, fmt.Errorf("create scraper: %w", err)
	}

	slog.Debug("wired exporter", "base_url", settings.API.BaseURL, "accounts_file", settings.AccountsFile, "timezone", loc.String())
	return &app{
		settings: settings,
		scraper:  scraper,
		gatherer: reg,
		shutdown: provider.Shutdown,
	}, nil
}
