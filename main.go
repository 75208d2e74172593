package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mateuszdrab/orangepl-exporter/internal/exporter"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "orangepl-exporter",
		Short:        "Prometheus exporter for Orange Polska prepaid balances",
		Long:         "orangepl-exporter logs in to every configured Orange Polska account on each scrape of /metrics and publishes billing and prepaid balance data as gauges.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v, configFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Settings file (YAML)")
	flags.String("accounts-file", "", "Account credential file, re-read on every scrape")
	flags.Bool("debug", false, "Log upstream documents")
	rootCmd.Flags().String("listen-address", "", "Address to serve /metrics on")

	_ = v.BindPFlag("accounts_file", flags.Lookup("accounts-file"))
	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindPFlag("listen_address", rootCmd.Flags().Lookup("listen-address"))

	rootCmd.AddCommand(newScrapeCmd(v, &configFile))
	return rootCmd
}

func runServe(ctx context.Context, v *viper.Viper, configFile string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wireApp(ctx, v, configFile, true)
	if err != nil {
		return err
	}
	defer func() { _ = app.shutdown(context.Background()) }()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", exporter.Handler(app.scraper, app.gatherer))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              app.settings.ListenAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "address", srv.Addr, "accounts_file", app.settings.AccountsFile)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newScrapeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape cycle and print the account gauges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := wireApp(ctx, v, *configFile, false)
			if err != nil {
				return err
			}
			defer func() { _ = app.shutdown(context.Background()) }()

			if err := app.scraper.Scrape(ctx); err != nil {
				return err
			}
			families, err := app.gatherer.Gather()
			if err != nil {
				return err
			}
			enc := expfmt.NewEncoder(cmd.OutOrStdout(), expfmt.NewFormat(expfmt.TypeTextPlain))
			for _, mf := range families {
				if strings.HasPrefix(mf.GetName(), "orangepl_exporter_") {
					continue
				}
				if err := enc.Encode(mf); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
