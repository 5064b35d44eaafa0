package digipin

import "fmt"

type Axis string

const (
	AxisLatitude  Axis = "latitude"
	AxisLongitude Axis = "longitude"
)

// OutOfRangeError reports a coordinate outside the encodable domain.
type OutOfRangeError struct {
	Axis  Axis
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s out of range: must be between %g and %g, got %g", e.Axis, e.Min, e.Max, e.Value)
}

// InvalidCodeError reports a malformed pin. Char is set when a symbol is not
// part of the grid; otherwise Length holds the symbol count after removing
// separators.
type InvalidCodeError struct {
	Code     string
	Length   int
	Char     rune
	Position int // 1-based, in Code
	Prefix   bool
}

func (e *InvalidCodeError) Error() string {
	switch {
	case e.Char != 0:
		return fmt.Sprintf("invalid character %q in DIGIPIN at position %d", e.Char, e.Position)
	case e.Code == "":
		return "invalid DIGIPIN: cannot be empty"
	case e.Prefix:
		return fmt.Sprintf("invalid DIGIPIN prefix length: expected 1 to %d symbols, got %d", Levels, e.Length)
	default:
		return fmt.Sprintf("invalid DIGIPIN length after removing separators: expected %d characters, got %d", Levels, e.Length)
	}
}
