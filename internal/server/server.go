// Package server exposes the simulator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/urbansense/canopysim/internal/feed"
	"github.com/urbansense/canopysim/internal/metrics"
	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/site"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Addr      string
	Catalog   *site.Catalog
	Generator *sim.Generator
	Feed      *feed.Refresher
	Metrics   *metrics.Metrics
	Log       *slog.Logger
	// AccessLog receives combined-format access lines. Nil discards them.
	AccessLog io.Writer
	// Origins allowed for CORS. Empty allows any origin.
	Origins []string
	// NewSource returns a fresh random source for ad hoc generation.
	NewSource func() sim.Source
	Now       func() time.Time
}

// Server is the HTTP API over the feed and the generator.
type Server struct {
	addr      string
	catalog   *site.Catalog
	gen       *sim.Generator
	feed      *feed.Refresher
	metrics   *metrics.Metrics
	log       *slog.Logger
	newSource func() sim.Source
	now       func() time.Time
	handler   http.Handler
}

// New creates a server and builds its routes.
func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = io.Discard
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.NewSource == nil {
		opts.NewSource = func() sim.Source {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		addr:      opts.Addr,
		catalog:   opts.Catalog,
		gen:       opts.Generator,
		feed:      opts.Feed,
		metrics:   opts.Metrics,
		log:       opts.Log,
		newSource: opts.NewSource,
		now:       opts.Now,
	}

	origins := opts.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	var h http.Handler = s.routes()
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.CombinedLoggingHandler(opts.AccessLog, h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(opts.Log.Handler(), slog.LevelError)),
	)(h)
	s.handler = h
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.countRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sites", s.handleSites).Methods(http.MethodGet)
	api.HandleFunc("/horizon", s.handleGetHorizon).Methods(http.MethodGet)
	api.HandleFunc("/horizon", s.handleSetHorizon).Methods(http.MethodPut)
	api.HandleFunc("/overview", s.handleOverview).Methods(http.MethodGet)
	api.HandleFunc("/ambient", s.handleAmbient).Methods(http.MethodGet)

	sites := api.PathPrefix("/sites/{site}").Subrouter()
	sites.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	sites.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	sites.HandleFunc("/history/{entry}", s.handleHistoryEntry).Methods(http.MethodGet)
	sites.HandleFunc("/canopies", s.handleCanopies).Methods(http.MethodGet)
	sites.HandleFunc("/canopies/{canopy}/trace", s.handleTrace).Methods(http.MethodGet)
	sites.HandleFunc("/cells/{x}/{y}/polygon", s.handlePolygon).Methods(http.MethodGet)
	sites.HandleFunc("/cells/locate", s.handleLocate).Methods(http.MethodGet)
	sites.HandleFunc("/map", s.handleMap).Methods(http.MethodGet)
	sites.HandleFunc("/gov", s.handleGov).Methods(http.MethodGet)
	sites.HandleFunc("/correlation", s.handleCorrelation).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// countRequests records each matched request by its route template so
// that path parameters do not explode label cardinality.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.HTTPRequest(route, rec.status)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
