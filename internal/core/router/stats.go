package router

import (
	"net/http"
	"strings"

	"github.com/mohammed-shakir/digipin-courier/internal/hotness"
)

type hotnessResponse struct {
	Cell  string  `json:"cell"`
	Level int     `json:"level"`
	Score float64 `json:"score"`
}

type topResponse struct {
	Level int             `json:"level"`
	Cells []hotness.Entry `json:"cells"`
}

// handleHotness reports the score of a pin's tracked cell, or the hottest
// cells when no pin is given.
func (a *API) handleHotness(w http.ResponseWriter, r *http.Request) {
	if a.hot == nil {
		writeJSON(w, http.StatusNotFound, locationError{Error: "hotness tracking is disabled"})
		return
	}

	raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("digipin")))
	if raw == "" {
		n, err := intParam(r.URL.Query().Get("top"), 10)
		if err != nil || n < 1 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, locationError{Error: "top must be an integer between 1 and 1000"})
			return
		}
		cells := a.hot.Top(n)
		if cells == nil {
			cells = []hotness.Entry{}
		}
		writeJSON(w, http.StatusOK, topResponse{Level: a.hot.Level(), Cells: cells})
		return
	}

	// fails for bad symbols and for pins shorter than the tracked level
	e, err := a.hot.Lookup(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, locationError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, hotnessResponse{Cell: e.Cell, Level: a.hot.Level(), Score: e.Score})
}
