// Package hotness tracks how often grid cells are looked up.
package hotness

import (
	"fmt"

	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
)

type Interface interface {
	Inc(cell string)
	Score(cell string) float64
	Reset(cells ...string)
}

// Entry is a cell and its decayed score.
type Entry struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
}

// Ranker is implemented by trackers that can list their hottest cells.
type Ranker interface {
	Top(n int) []Entry
}

// Recorder feeds pins into a tracker keyed by their parent cell at Level.
type Recorder struct {
	tracker Interface
	level   int
}

func NewRecorder(t Interface, level int) *Recorder {
	if level < 1 || level > digipin.Levels {
		level = 6
	}
	return &Recorder{tracker: t, level: level}
}

func (r *Recorder) Level() int { return r.level }

// Observe counts one lookup of code and returns the cell it was counted on.
func (r *Recorder) Observe(code string) (string, error) {
	cell, err := digipin.Parent(code, r.level)
	if err != nil {
		return "", fmt.Errorf("hot cell for %q: %w", code, err)
	}
	r.tracker.Inc(cell)
	return cell, nil
}

// Lookup returns the tracked cell of code and its current score.
func (r *Recorder) Lookup(code string) (Entry, error) {
	cell, err := digipin.Parent(code, r.level)
	if err != nil {
		return Entry{}, fmt.Errorf("hot cell for %q: %w", code, err)
	}
	return Entry{Cell: cell, Score: r.tracker.Score(cell)}, nil
}

// Top lists the n hottest cells, or nil when the tracker cannot rank.
func (r *Recorder) Top(n int) []Entry {
	if rk, ok := r.tracker.(Ranker); ok {
		return rk.Top(n)
	}
	return nil
}
