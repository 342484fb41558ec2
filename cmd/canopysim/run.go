package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/urbansense/canopysim/internal/config"
	"github.com/urbansense/canopysim/internal/feed"
	"github.com/urbansense/canopysim/internal/logging"
	"github.com/urbansense/canopysim/internal/metrics"
	"github.com/urbansense/canopysim/internal/server"
	"github.com/urbansense/canopysim/internal/sink"
	"github.com/urbansense/canopysim/pkg/analytics"
	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/site"
	"github.com/urbansense/canopysim/pkg/validation"
)

var errInvalid = errors.New("validation failed")

// loadAndValidate loads the catalog and runs schema validation. An empty
// path selects the built-in catalog.
func loadAndValidate(path string) (*site.Catalog, *validation.Report, error) {
	cat := site.Default()
	if path != "" {
		var err error
		if cat, err = site.Load(path); err != nil {
			return nil, nil, fmt.Errorf("loading sites: %w", err)
		}
	}
	return cat, validation.ValidateSchema(cat), nil
}

func loadGenerator(w io.Writer, path string, now func() time.Time) (*site.Catalog, *sim.Generator, error) {
	cat, report, err := loadAndValidate(path)
	if err != nil {
		return nil, nil, err
	}
	if !report.Valid {
		printValidationReport(w, report)
		return nil, nil, fmt.Errorf("site catalog: %w", errInvalid)
	}
	gen, err := sim.FromCatalog(cat, now)
	if err != nil {
		return nil, nil, err
	}
	return cat, gen, nil
}

func runValidate(w io.Writer, projectPath string) error {
	cat, err := site.LoadProject(projectPath)
	if err != nil {
		return fmt.Errorf("loading sites: %w", err)
	}
	report := validation.ValidateSchema(cat)
	printValidationReport(w, report)
	if err := report.Err(); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	return nil
}

type generateOptions struct {
	hours     int
	site      string
	seed      uint64
	sitesFile string
}

func runGenerate(w io.Writer, opts generateOptions) error {
	cat, gen, err := loadGenerator(os.Stderr, opts.sitesFile, nil)
	if err != nil {
		return err
	}
	req := sim.Request{Hours: opts.hours}
	if opts.site != "" {
		loc := cat.Location(opts.site)
		if loc == nil {
			return fmt.Errorf("%w: %s", feed.ErrUnknownSite, opts.site)
		}
		req.Bounds = &loc.Bounds
	}

	snap, err := gen.Generate(newSource(opts.seed), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(snap)
}

type checkOptions struct {
	hours     int
	seed      uint64
	runs      int
	sitesFile string
}

func runCheck(w io.Writer, opts checkOptions) error {
	if opts.runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", opts.runs)
	}
	_, gen, err := loadGenerator(w, opts.sitesFile, nil)
	if err != nil {
		return err
	}

	combined := validation.NewReport()
	rows := make([]checkRow, 0, opts.runs)
	for i := 0; i < opts.runs; i++ {
		seed := opts.seed + uint64(i)
		snap, err := gen.Generate(newSource(seed), sim.Request{Hours: opts.hours})
		if err != nil {
			return err
		}
		report := validation.ValidateSnapshot(snap)
		corr, analysis := analytics.Analyze(snap)
		report.Merge(analysis)
		combined.Merge(report)

		row := checkRow{seed: seed, counts: snap.StatusCounts(), kpis: snap.KPIs, valid: report.Valid}
		if corr != nil {
			row.cellR = corr.CellR
		}
		rows = append(rows, row)
	}

	printCheckTable(w, rows)
	fmt.Fprintln(w)
	printValidationReport(w, combined)
	if err := combined.Err(); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	return nil
}

func newSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func runServe(ctx context.Context, configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.ListenAddr = fmt.Sprintf(":%d", port)
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, gen, err := loadGenerator(os.Stderr, cfg.SitesFile, nil)
	if err != nil {
		return err
	}
	sites, err := selectSites(cat, cfg.Sites)
	if err != nil {
		return err
	}

	m := metrics.New()
	var sinks sink.Multi
	if cfg.Kafka.Enabled {
		sinks = append(sinks, sink.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log))
		log.Info("kafka sink enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	if cfg.MQTT.Enabled {
		mq, err := sink.NewMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, log)
		if err != nil {
			return err
		}
		sinks = append(sinks, mq)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Warn("closing sinks", "err", err)
		}
	}()

	var out sink.Sink
	if len(sinks) > 0 {
		out = sinks
	}
	f, err := feed.New(feed.Options{
		Generator:   gen,
		Sites:       sites,
		Interval:    cfg.RefreshInterval,
		Hours:       cfg.Hours,
		HistorySize: cfg.HistorySize,
		Seed:        cfg.Seed,
		Sink:        out,
		Metrics:     m,
		Log:         log,
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Addr:      cfg.ListenAddr,
		Catalog:   cat,
		Generator: gen,
		Feed:      f,
		Metrics:   m,
		Log:       log,
		AccessLog: os.Stdout,
	})

	feedErr := make(chan error, 1)
	go func() { feedErr <- f.Run(ctx) }()

	err = srv.Start(ctx)
	stop()
	if ferr := <-feedErr; ferr != nil && !errors.Is(ferr, context.Canceled) {
		log.Error("feed stopped", "err", ferr)
	}
	return err
}

// selectSites resolves configured site ids against the catalog. No ids
// selects every location.
func selectSites(cat *site.Catalog, ids []string) ([]feed.Site, error) {
	if len(ids) == 0 {
		ids = cat.LocationIDs()
	}
	out := make([]feed.Site, 0, len(ids))
	for _, id := range ids {
		loc := cat.Location(id)
		if loc == nil {
			return nil, fmt.Errorf("%w: %s", feed.ErrUnknownSite, id)
		}
		out = append(out, feed.Site{ID: loc.ID, Bounds: loc.Bounds})
	}
	return out, nil
}
