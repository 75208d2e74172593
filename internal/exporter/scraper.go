// Package exporter drives scrape cycles: it loads the configured accounts,
// runs every account's pipeline and publishes the resulting gauge set.
package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mateuszdrab/orangepl-exporter/internal/config"
	"github.com/mateuszdrab/orangepl-exporter/internal/gauges"
	"github.com/mateuszdrab/orangepl-exporter/internal/orange"
)

// Publisher receives the gauge set built by a scrape.
type Publisher interface {
	Clear()
	Publish(*gauges.Snapshot)
}

// Options tune a Scraper.
type Options struct {
	AccountsFile string
	// Concurrency bounds how many accounts are processed at once.
	Concurrency int
	// Timeout bounds a whole scrape; zero means no bound beyond the caller's.
	Timeout time.Duration
	// Location is the zone provider timestamps are written in.
	Location *time.Location
}

// Scraper runs scrape cycles. Cycles are serialized: a scrape never
// observes or overwrites the partial work of another.
type Scraper struct {
	opts      Options
	provider  *orange.Provider
	publisher Publisher
	inst      *instruments

	loadAccounts func(path string) ([]config.Credential, error)

	mu sync.Mutex
}

func New(opts Options, provider *orange.Provider, publisher Publisher, meter metric.Meter) (*Scraper, error) {
	inst, err := newInstruments(meter)
	if err != nil {
		return nil, err
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Scraper{
		opts:         opts,
		provider:     provider,
		publisher:    publisher,
		inst:         inst,
		loadAccounts: config.LoadAccounts,
	}, nil
}

type accountResult struct {
	username     string
	observations []gauges.Observation
	problems     []error
	err          error
}

// Scrape runs one full cycle. Account failures are logged and leave that
// account out of the published set; only an unusable account file is
// returned as an error, in which case the published set is cleared.
func (s *Scraper) Scrape(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		s.inst.scrapeDuration.Record(context.Background(), time.Since(start).Seconds())
	}()

	creds, err := s.loadAccounts(s.opts.AccountsFile)
	if err != nil {
		s.publisher.Clear()
		return err
	}
	if len(creds) == 0 {
		slog.Warn("scrape: no accounts configured", "path", s.opts.AccountsFile)
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	results := make([]accountResult, len(creds))
	p := pool.New().WithMaxGoroutines(s.opts.Concurrency)
	for i, cred := range creds {
		p.Go(func() {
			results[i] = s.processAccount(ctx, cred)
		})
	}
	p.Wait()

	snapshot := gauges.NewSnapshot()
	var succeeded, failed int64
	for _, res := range results {
		if res.err != nil {
			failed++
			stage := orange.StageOf(res.err)
			slog.Warn("scrape: account failed", "username", res.username, "stage", stage, "err", res.err)
			s.inst.accountFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(stage))))
			continue
		}
		succeeded++
		for _, problem := range res.problems {
			slog.Warn("scrape: account data incomplete", "username", res.username, "stage", orange.StageProjection, "err", problem)
			s.inst.accountFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(orange.StageProjection))))
		}
		for _, o := range res.observations {
			snapshot.Set(o)
		}
	}
	s.publisher.Publish(snapshot)

	s.inst.accounts.Record(ctx, succeeded, metric.WithAttributes(attribute.String("result", "success")))
	s.inst.accounts.Record(ctx, failed, metric.WithAttributes(attribute.String("result", "failure")))
	s.inst.series.Record(ctx, int64(snapshot.Len()))
	s.inst.lastSuccess.Record(ctx, float64(time.Now().Unix()))
	slog.Info("scrape: done", "accounts", len(creds), "failed", failed, "series", snapshot.Len(), "took", time.Since(start))
	return nil
}

// processAccount runs auth, fetch and projection for one account.
func (s *Scraper) processAccount(ctx context.Context, cred config.Credential) accountResult {
	res := accountResult{username: cred.Username}
	pipeline := s.provider.PipelineFor(cred)

	token, err := pipeline.Auth.Authenticate(ctx, cred)
	if err != nil {
		res.err = err
		return res
	}
	slog.Debug("scrape: authenticated", "username", cred.Username, "flow", cred.Flow())

	docs, err := pipeline.Fetcher.Fetch(ctx, token, cred)
	if err != nil {
		res.err = err
		return res
	}

	res.observations, res.problems = gauges.Project(cred.Username, docs, s.opts.Location)
	return res
}
