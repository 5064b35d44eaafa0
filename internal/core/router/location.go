package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
	"github.com/mohammed-shakir/digipin-courier/internal/hitevents"
)

type encodeResponse struct {
	DigiPin string `json:"digipin"`
}

type decodeResponse struct {
	DigiPin   string  `json:"digipin"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type cellResponse struct {
	DigiPin string             `json:"digipin"`
	Level   int                `json:"level"`
	Cell    string             `json:"cell"`
	Bounds  digipin.Bounds     `json:"bounds"`
	Center  digipin.Coordinate `json:"center"`
	H3      string             `json:"h3,omitempty"`
	H3Res   *int               `json:"h3Res,omitempty"`
	// next-level sub-cells, only when requested
	Children []string `json:"children,omitempty"`
}

// locationError is the body of a failed location lookup.
type locationError struct {
	Error string `json:"error"`
}

var (
	errMissingCoords = errors.New("missing latitude or longitude parameters")
	errBadCoords     = errors.New("invalid latitude or longitude format")
)

func (a *API) handleEncode(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r)
	if err != nil {
		observability.ObserveCodec("encode", "bad_request")
		writeJSON(w, http.StatusBadRequest, locationError{Error: err.Error()})
		return
	}

	code, err := digipin.Encode(lat, lon)
	if err != nil {
		a.codecFailure(w, r, "encode", err)
		return
	}
	observability.ObserveCodec("encode", "ok")
	a.observe(r, code, lat, lon, "encode")
	writeJSON(w, http.StatusOK, encodeResponse{DigiPin: code})
}

func (a *API) handleDecode(w http.ResponseWriter, r *http.Request) {
	raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("digipin")))
	if raw == "" {
		observability.ObserveCodec("decode", "bad_request")
		writeJSON(w, http.StatusBadRequest, locationError{Error: "missing digipin parameter"})
		return
	}

	c, err := digipin.Decode(raw)
	if err != nil {
		a.codecFailure(w, r, "decode", err)
		return
	}
	symbols, _ := digipin.Normalize(raw)
	code := digipin.Format(symbols)

	observability.ObserveCodec("decode", "ok")
	a.observe(r, code, c.Lat, c.Lon, "decode")
	writeJSON(w, http.StatusOK, decodeResponse{DigiPin: code, Latitude: c.Lat, Longitude: c.Lon})
}

// handleCell describes the level-k cell holding a point, plus its H3 cell.
func (a *API) handleCell(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := parseLatLon(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, locationError{Error: err.Error()})
		return
	}
	level, err := intParam(q.Get("level"), digipin.Levels)
	if err != nil || level < 1 || level > digipin.Levels {
		writeJSON(w, http.StatusBadRequest, locationError{Error: fmt.Sprintf("level must be an integer between 1 and %d", digipin.Levels)})
		return
	}
	h3Res, err := intParam(q.Get("h3res"), a.h3Res)
	if err != nil || h3Res < 0 || h3Res > 15 {
		writeJSON(w, http.StatusBadRequest, locationError{Error: "h3res must be an integer between 0 and 15"})
		return
	}

	code, err := digipin.Encode(lat, lon)
	if err != nil {
		a.codecFailure(w, r, "encode", err)
		return
	}
	observability.ObserveCodec("encode", "ok")

	cell, err := a.pins.ToParent(code, level)
	if err != nil {
		a.codecFailure(w, r, "encode", err)
		return
	}
	b, _ := digipin.PrefixBounds(cell)
	out := cellResponse{
		DigiPin: code,
		Level:   level,
		Cell:    cell,
		Bounds:  b,
		Center:  b.Center(),
	}
	if wantChildren(q.Get("children")) && level < digipin.Levels {
		kids, err := a.pins.ToChildren(cell, level+1)
		if err != nil {
			a.codecFailure(w, r, "encode", err)
			return
		}
		out.Children = kids
	}
	if a.h3 != nil {
		idx, err := a.h3.CellFor(lat, lon, h3Res)
		if err != nil {
			a.log.WarnContext(r.Context(), "h3 lookup failed", "err", err)
		} else {
			out.H3 = idx
			out.H3Res = &h3Res
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// codecFailure answers 400 for caller input errors and 500 for anything else.
func (a *API) codecFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ore *digipin.OutOfRangeError
	var ice *digipin.InvalidCodeError
	switch {
	case errors.As(err, &ore):
		observability.ObserveCodec(op, "out_of_range")
		writeJSON(w, http.StatusBadRequest, locationError{Error: err.Error()})
	case errors.As(err, &ice):
		observability.ObserveCodec(op, "invalid_code")
		writeJSON(w, http.StatusBadRequest, locationError{Error: err.Error()})
	default:
		observability.ObserveCodec(op, "error")
		a.log.ErrorContext(r.Context(), "codec failure", "op", op, "err", err)
		writeJSON(w, http.StatusInternalServerError, locationError{Error: "An unexpected error occurred on the server."})
	}
}

// observe feeds a successful lookup to the hot cell tracker and event sink.
func (a *API) observe(r *http.Request, code string, lat, lon float64, source string) {
	if a.countHot {
		if _, err := a.hot.Observe(code); err != nil {
			a.log.DebugContext(r.Context(), "hotness observe failed", "err", err)
		}
	}
	a.events.Publish(hitevents.Event{DigiPin: code, Lat: lat, Lon: lon, Source: source})
}

func parseLatLon(r *http.Request) (lat, lon float64, err error) {
	q := r.URL.Query()
	latParam := strings.TrimSpace(q.Get("latitude"))
	lonParam := strings.TrimSpace(q.Get("longitude"))
	if latParam == "" || lonParam == "" {
		return 0, 0, errMissingCoords
	}
	lat, err = strconv.ParseFloat(latParam, 64)
	if err != nil {
		return 0, 0, errBadCoords
	}
	lon, err = strconv.ParseFloat(lonParam, 64)
	if err != nil {
		return 0, 0, errBadCoords
	}
	return lat, lon, nil
}

func wantChildren(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func intParam(v string, def int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse int: %w", err)
	}
	return n, nil
}
