package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
	"github.com/mohammed-shakir/digipin-courier/internal/estimate"
	"github.com/mohammed-shakir/digipin-courier/internal/quote"
)

const maxEstimateBody = 64 << 10

type messageResponse struct {
	Message string `json:"message"`
}

func (a *API) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimate.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEstimateBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Error calculating estimation: malformed request body: " + err.Error()})
		return
	}

	q, err := a.estimator.Estimate(req)
	if err != nil {
		status := http.StatusInternalServerError
		var ore *digipin.OutOfRangeError
		var ice *digipin.InvalidCodeError
		if errors.Is(err, estimate.ErrInvalidRequest) || errors.As(err, &ore) || errors.As(err, &ice) {
			status = http.StatusBadRequest
		} else {
			a.log.ErrorContext(r.Context(), "estimate failed", "err", err)
		}
		writeJSON(w, status, messageResponse{Message: "Error calculating estimation: " + err.Error()})
		return
	}

	if a.quotes != nil {
		if err := a.quotes.Put(r.Context(), q); err != nil {
			a.log.ErrorContext(r.Context(), "store quote", "quote_id", q.QuoteID, "err", err)
			writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Error calculating estimation: could not store quote"})
			return
		}
	}

	for i, pin := range []string{q.PickupDigiPin, q.DeliveryDigiPin} {
		p := q.RoutePath[i]
		a.observe(r, pin, p.Lat, p.Lng, "estimate")
	}

	a.log.InfoContext(r.Context(), "quote issued",
		"quote_id", q.QuoteID,
		"distance_km", q.DistanceKm,
		"price", q.Price,
	)
	writeJSON(w, http.StatusOK, q)
}

func (a *API) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "quoteID"))
	if a.quotes == nil || id == "" {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "quote not found"})
		return
	}

	q, err := a.quotes.Get(r.Context(), id)
	switch {
	case errors.Is(err, quote.ErrNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "quote not found"})
	case err != nil:
		a.log.ErrorContext(r.Context(), "load quote", "quote_id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "could not load quote"})
	default:
		writeJSON(w, http.StatusOK, q)
	}
}
