// Package router wires the lookup, estimate and stats handlers onto chi.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
	"github.com/mohammed-shakir/digipin-courier/internal/estimate"
	"github.com/mohammed-shakir/digipin-courier/internal/hitevents"
	"github.com/mohammed-shakir/digipin-courier/internal/hotness"
	mylog "github.com/mohammed-shakir/digipin-courier/internal/logger"
	"github.com/mohammed-shakir/digipin-courier/internal/mapper"
	pinmapper "github.com/mohammed-shakir/digipin-courier/internal/mapper/digipin"
)

// QuoteStore keeps issued quotes. *quote.Store satisfies it.
type QuoteStore interface {
	Put(ctx context.Context, q estimate.Quote) error
	Get(ctx context.Context, id string) (estimate.Quote, error)
}

type Deps struct {
	Logger    *slog.Logger
	Estimator *estimate.Estimator
	Quotes    QuoteStore
	// Pins defaults to the grid pin mapper.
	Pins mapper.Interface
	// H3 is optional; without it cell responses omit the H3 index.
	H3    mapper.Interface
	H3Res int
	Hot   *hotness.Recorder
	// HotFromEvents leaves hot cell counting to a hit events consumer so
	// local lookups are not counted twice.
	HotFromEvents bool
	// Events defaults to hitevents.Discard.
	Events hitevents.Sink
}

type API struct {
	log       *slog.Logger
	estimator *estimate.Estimator
	quotes    QuoteStore
	pins      mapper.Interface
	h3        mapper.Interface
	h3Res     int
	hot       *hotness.Recorder
	countHot  bool
	events    hitevents.Sink
}

func New(d Deps) *API {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Events == nil {
		d.Events = hitevents.Discard{}
	}
	if d.Pins == nil {
		d.Pins = pinmapper.New()
	}
	if d.Estimator == nil {
		d.Estimator = estimate.New(estimate.DefaultTariff())
	}
	return &API{
		log:       d.Logger,
		estimator: d.Estimator,
		quotes:    d.Quotes,
		pins:      d.Pins,
		h3:        d.H3,
		h3Res:     d.H3Res,
		hot:       d.Hot,
		countHot:  d.Hot != nil && !d.HotFromEvents,
		events:    d.Events,
	}
}

// Mount registers the API routes on r.
func (a *API) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/location/digipin", a.instrument("/api/location/digipin", a.handleEncode))
		r.Get("/location/coordinates", a.instrument("/api/location/coordinates", a.handleDecode))
		r.Get("/location/cell", a.instrument("/api/location/cell", a.handleCell))
		r.Post("/courier/estimate", a.instrument("/api/courier/estimate", a.handleEstimate))
		r.Get("/courier/estimate/{quoteID}", a.instrument("/api/courier/estimate/{quoteID}", a.handleGetQuote))
		r.Get("/stats/hotness", a.instrument("/api/stats/hotness", a.handleHotness))
	})
}

// instrument records status and latency under a fixed route label.
func (a *API) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		ctx := mylog.WithRoute(r.Context(), route)
		h(sw, r.WithContext(ctx))
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
