// Package feed keeps the latest snapshots of every configured site fresh
// and pushes them to the sinks.
package feed

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/urbansense/canopysim/internal/metrics"
	"github.com/urbansense/canopysim/internal/sink"
	"github.com/urbansense/canopysim/pkg/geo"
	"github.com/urbansense/canopysim/pkg/gov"
	"github.com/urbansense/canopysim/pkg/history"
	"github.com/urbansense/canopysim/pkg/sim"
)

// DefaultInterval is the dashboard refresh period.
const DefaultInterval = 6 * time.Second

var (
	// ErrUnknownSite is returned for a site the refresher does not simulate.
	ErrUnknownSite = errors.New("unknown site")
	// ErrUnknownEntry is returned for a snapshot id no longer in a site's history.
	ErrUnknownEntry = errors.New("unknown snapshot")
)

// Site is one simulated location.
type Site struct {
	ID     string
	Bounds geo.Bounds
}

// State is the pair of snapshots produced for a site on one refresh.
type State struct {
	Sim *sim.Snapshot `json:"advanced"`
	Gov gov.Snapshot  `json:"gov"`
}

// Options configures a Refresher.
type Options struct {
	Generator   *sim.Generator
	Sites       []Site
	Interval    time.Duration
	Hours       int
	HistorySize int
	// Seed fixes every site's random source. Zero picks a random seed.
	Seed    uint64
	Sink    sink.Sink
	Metrics *metrics.Metrics
	Log     *slog.Logger
	Now     func() time.Time
}

// Refresher regenerates each site's snapshots on a fixed interval.
type Refresher struct {
	gen      *sim.Generator
	sites    []Site
	interval time.Duration
	sink     sink.Sink
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
	trigger  chan struct{}

	// refreshMu serialises refreshes; the per-site sources are not
	// safe for concurrent use.
	refreshMu sync.Mutex
	rngs      map[string]*rand.Rand

	mu      sync.RWMutex
	hours   int
	history map[string]*history.Buffer[State]
}

// New validates opts and returns a Refresher. Nothing is generated until
// Run or Refresh is called.
func New(opts Options) (*Refresher, error) {
	if opts.Generator == nil {
		return nil, errors.New("feed: generator is required")
	}
	if len(opts.Sites) == 0 {
		return nil, errors.New("feed: at least one site is required")
	}
	if opts.Hours == 0 {
		opts.Hours = sim.HoursDay
	}
	if !sim.ValidHorizon(opts.Hours) {
		return nil, fmt.Errorf("feed: %w: %d", sim.ErrInvalidHorizon, opts.Hours)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	r := &Refresher{
		gen:      opts.Generator,
		sites:    opts.Sites,
		interval: opts.Interval,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		log:      opts.Log,
		now:      opts.Now,
		trigger:  make(chan struct{}, 1),
		rngs:     make(map[string]*rand.Rand, len(opts.Sites)),
		hours:    opts.Hours,
		history:  make(map[string]*history.Buffer[State], len(opts.Sites)),
	}
	for _, s := range opts.Sites {
		if _, dup := r.rngs[s.ID]; dup {
			return nil, fmt.Errorf("feed: duplicate site %q", s.ID)
		}
		if err := s.Bounds.Validate(); err != nil {
			return nil, fmt.Errorf("feed: site %s: %w", s.ID, err)
		}
		r.rngs[s.ID] = rand.New(rand.NewPCG(seed, siteStream(s.ID)))
		r.history[s.ID] = history.New[State](opts.HistorySize)
	}
	return r, nil
}

func siteStream(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}

// Run refreshes immediately, then every interval and whenever the horizon
// changes, until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.log.Info("feed started", "sites", len(r.sites), "interval", r.interval, "hours", r.Hours())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("feed stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Refresh(ctx)
		case <-r.trigger:
			r.Refresh(ctx)
			ticker.Reset(r.interval)
		}
	}
}

// Refresh regenerates every site once. Generation failures are logged and
// skip the site; sink failures are logged and counted.
func (r *Refresher) Refresh(ctx context.Context) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	hours := r.Hours()
	for _, s := range r.sites {
		if ctx.Err() != nil {
			return
		}
		state, err := r.generate(s, hours)
		if err != nil {
			r.log.Error("generation failed", "site", s.ID, "err", err)
			continue
		}

		buf := r.history[s.ID]
		entry := buf.Append(state.Sim.GeneratedAt, state)
		r.log.Debug("snapshot recorded", "site", s.ID, "snapshotId", entry.ID, "history", buf.Len())

		if r.sink == nil {
			continue
		}
		if err := r.sink.Publish(ctx, entry.ID.String(), s.ID, state.Sim); err != nil {
			r.metrics.SinkError(r.sink.Name())
			r.log.Warn("publish failed", "site", s.ID, "sink", r.sink.Name(), "err", err)
		}
	}
}

func (r *Refresher) generate(s Site, hours int) (State, error) {
	rng := r.rngs[s.ID]
	start := time.Now()
	snap, err := r.gen.Generate(rng, sim.Request{Hours: hours, Bounds: &s.Bounds})
	if err != nil {
		return State{}, err
	}
	r.metrics.ObserveSnapshot(s.ID, snap, time.Since(start))
	return State{Sim: snap, Gov: gov.Generate(rng, r.now())}, nil
}

// SetHours switches the horizon and asks a running feed to regenerate
// right away.
func (r *Refresher) SetHours(hours int) error {
	if !sim.ValidHorizon(hours) {
		return fmt.Errorf("%w: %d", sim.ErrInvalidHorizon, hours)
	}
	r.mu.Lock()
	changed := r.hours != hours
	r.hours = hours
	r.mu.Unlock()
	if changed {
		select {
		case r.trigger <- struct{}{}:
		default:
		}
	}
	return nil
}

// Hours returns the current horizon.
func (r *Refresher) Hours() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hours
}

// Sites returns the simulated sites in configuration order.
func (r *Refresher) Sites() []Site {
	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// Site looks up a simulated site.
func (r *Refresher) Site(id string) (Site, bool) {
	for _, s := range r.sites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}

// Latest returns the most recent state of a site. The second result is
// false before the first refresh.
func (r *Refresher) Latest(id string) (State, bool, error) {
	buf, ok := r.history[id]
	if !ok {
		return State{}, false, fmt.Errorf("%w: %s", ErrUnknownSite, id)
	}
	e, ok := buf.Latest()
	return e.Value, ok, nil
}

// History returns the recorded states of a site, oldest first.
func (r *Refresher) History(id string) ([]history.Entry[State], error) {
	buf, ok := r.history[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, id)
	}
	return buf.Items(), nil
}

// Entry returns one recorded state of a site by the snapshot id it was
// published under.
func (r *Refresher) Entry(siteID string, id uuid.UUID) (history.Entry[State], error) {
	buf, ok := r.history[siteID]
	if !ok {
		return history.Entry[State]{}, fmt.Errorf("%w: %s", ErrUnknownSite, siteID)
	}
	e, ok := buf.Find(id)
	if !ok {
		return history.Entry[State]{}, fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	return e, nil
}
