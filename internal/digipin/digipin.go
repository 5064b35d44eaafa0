// Package digipin encodes coordinates inside the India bounding box into
// 10-symbol grid pins and decodes pins back to the center of their cell.
//
// Every symbol picks one of 16 sub-cells of the current box through a fixed
// 4x4 grid, so a pin denotes a cell nested ten levels deep. Decoding is lossy:
// it returns the cell center, not the encoded point.
package digipin

import (
	"fmt"
	"math"
	"strings"
)

const (
	// Levels is the number of symbols in a full pin.
	Levels = 10
	// Separator splits a rendered pin into groups of 3, 3 and 4 symbols.
	Separator = '-'

	minLat = 2.5
	maxLat = 38.5
	minLon = 63.5
	maxLon = 99.5

	// keeps a point on the far edge from flooring to row/col 4
	edgeEpsilon = 1e-9
)

// row 0 is north, column 0 is west
var grid = [4][4]byte{
	{'F', 'C', '9', '8'},
	{'J', '3', '2', '7'},
	{'K', '4', '5', '6'},
	{'L', 'M', 'P', 'T'},
}

type gridPos struct{ row, col int }

var symbolPos = func() map[byte]gridPos {
	m := make(map[byte]gridPos, 16)
	for r := range grid {
		for c := range grid[r] {
			m[grid[r][c]] = gridPos{row: r, col: c}
		}
	}
	return m
}()

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// Domain returns the box every pin is nested in.
func Domain() Bounds {
	return Bounds{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
}

func (b Bounds) Height() float64 { return b.MaxLat - b.MinLat }
func (b Bounds) Width() float64  { return b.MaxLon - b.MinLon }

func (b Bounds) Center() Coordinate {
	return Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2.0,
		Lon: (b.MinLon + b.MaxLon) / 2.0,
	}
}

// Contains reports whether c lies in the closed rectangle.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

func (b Bounds) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func (c Coordinate) FormattedLat() string { return fmt.Sprintf("%.6f", c.Lat) }
func (c Coordinate) FormattedLon() string { return fmt.Sprintf("%.6f", c.Lon) }

func (c Coordinate) String() string {
	return "Coordinates{latitude=" + c.FormattedLat() + ", longitude=" + c.FormattedLon() + "}"
}

// Encode returns the separator-formatted pin of the level-10 cell holding (lat, lon).
func Encode(lat, lon float64) (string, error) {
	if err := checkRange(AxisLatitude, lat, minLat, maxLat); err != nil {
		return "", err
	}
	if err := checkRange(AxisLongitude, lon, minLon, maxLon); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(Levels + 2)

	box := Domain()
	for level := 1; level <= Levels; level++ {
		row, col := locate(box, lat, lon)
		b.WriteByte(grid[row][col])
		if level == 3 || level == 6 {
			b.WriteByte(Separator)
		}
		box = encodeCell(box, row, col)
	}
	return b.String(), nil
}

// Decode returns the center of the cell denoted by code.
func Decode(code string) (Coordinate, error) {
	box, err := DecodeBounds(code)
	if err != nil {
		return Coordinate{}, err
	}
	return box.Center(), nil
}

// DecodeBounds returns the level-10 cell denoted by code.
func DecodeBounds(code string) (Bounds, error) {
	symbols, err := Normalize(code)
	if err != nil {
		return Bounds{}, err
	}
	return walk(symbols), nil
}

// PrefixBounds returns the cell of a pin prefix holding 1 to 10 symbols.
func PrefixBounds(prefix string) (Bounds, error) {
	symbols, err := strip(prefix)
	if err != nil {
		return Bounds{}, err
	}
	if len(symbols) == 0 || len(symbols) > Levels {
		return Bounds{}, &InvalidCodeError{Code: prefix, Length: len(symbols), Prefix: true}
	}
	return walk(symbols), nil
}

// Normalize strips separators and validates a full pin, returning its 10 bare
// symbols. Length is checked before the symbols themselves.
func Normalize(code string) (string, error) {
	if code == "" {
		return "", &InvalidCodeError{Code: code}
	}
	if n := symbolCount(code); n != Levels {
		return "", &InvalidCodeError{Code: code, Length: n}
	}
	return strip(code)
}

// symbolCount counts runes other than separators.
func symbolCount(code string) int {
	n := 0
	for _, r := range code {
		if r != Separator {
			n++
		}
	}
	return n
}

// Format renders bare symbols with separators after the 3rd and 6th symbol.
// Input shorter than a separator position is returned with the groups it has.
func Format(symbols string) string {
	var b strings.Builder
	b.Grow(len(symbols) + 2)
	for i := 0; i < len(symbols); i++ {
		if i == 3 || i == 6 {
			b.WriteByte(Separator)
		}
		b.WriteByte(symbols[i])
	}
	return b.String()
}

// Parent truncates code to its level-k prefix, rendered with separators.
func Parent(code string, level int) (string, error) {
	if level < 1 || level > Levels {
		return "", fmt.Errorf("level %d out of range [1,%d]", level, Levels)
	}
	symbols, err := strip(code)
	if err != nil {
		return "", err
	}
	if len(symbols) < level {
		return "", fmt.Errorf("code %q has %d symbols, cannot take level %d parent", code, len(symbols), level)
	}
	return Format(symbols[:level]), nil
}

// Children returns the 16 direct sub-cells of prefix in grid order.
func Children(prefix string) ([]string, error) {
	symbols, err := strip(prefix)
	if err != nil {
		return nil, err
	}
	if len(symbols) >= Levels {
		return nil, fmt.Errorf("code %q is already at level %d", prefix, Levels)
	}
	out := make([]string, 0, 16)
	for r := range grid {
		for c := range grid[r] {
			out = append(out, Format(symbols+string(grid[r][c])))
		}
	}
	return out, nil
}

// CellSize returns the latitude and longitude span of a cell at level k.
func CellSize(level int) (latSpan, lonSpan float64) {
	div := math.Pow(4, float64(level))
	return (maxLat - minLat) / div, (maxLon - minLon) / div
}

// locate picks the grid row and column of (lat, lon) inside box.
func locate(box Bounds, lat, lon float64) (row, col int) {
	latDiv := box.Height() / 4.0
	lonDiv := box.Width() / 4.0

	latOff := math.Max(0, math.Min(lat-box.MinLat, box.Height()-edgeEpsilon))
	lonOff := math.Max(0, math.Min(lon-box.MinLon, box.Width()-edgeEpsilon))

	row = 3 - int(math.Floor(latOff/latDiv))
	col = int(math.Floor(lonOff / lonDiv))
	return clampIndex(row), clampIndex(col)
}

// encodeCell narrows box to grid cell (row, col), anchored on the south edge.
func encodeCell(box Bounds, row, col int) Bounds {
	latDiv := box.Height() / 4.0
	lonDiv := box.Width() / 4.0
	return Bounds{
		MinLat: box.MinLat + latDiv*float64(3-row),
		MaxLat: box.MinLat + latDiv*float64(4-row),
		MinLon: box.MinLon + lonDiv*float64(col),
		MaxLon: box.MinLon + lonDiv*float64(col+1),
	}
}

// decodeCell narrows box to grid cell (row, col), anchored on the north edge.
// Both bounds on each axis come from the same snapshot of box; deriving the
// max from an already narrowed min drifts by a rounding step per level.
func decodeCell(box Bounds, row, col int) Bounds {
	latDiv := box.Height() / 4.0
	lonDiv := box.Width() / 4.0
	return Bounds{
		MinLat: box.MaxLat - latDiv*float64(row+1),
		MaxLat: box.MaxLat - latDiv*float64(row),
		MinLon: box.MinLon + lonDiv*float64(col),
		MaxLon: box.MinLon + lonDiv*float64(col+1),
	}
}

// walk narrows the domain through already validated symbols.
func walk(symbols string) Bounds {
	box := Domain()
	for i := 0; i < len(symbols); i++ {
		p := symbolPos[symbols[i]]
		box = decodeCell(box, p.row, p.col)
	}
	return box
}

// strip removes separators and rejects symbols outside the grid.
func strip(code string) (string, error) {
	var b strings.Builder
	b.Grow(len(code))
	pos := 0
	for _, r := range code {
		pos++
		if r == Separator {
			continue
		}
		if r > 0x7f {
			return "", &InvalidCodeError{Code: code, Char: r, Position: pos}
		}
		if _, ok := symbolPos[byte(r)]; !ok {
			return "", &InvalidCodeError{Code: code, Char: r, Position: pos}
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

func checkRange(axis Axis, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return &OutOfRangeError{Axis: axis, Value: v, Min: lo, Max: hi}
	}
	return nil
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i > 3 {
		return 3
	}
	return i
}
