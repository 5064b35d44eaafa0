// Package pinmapper exposes the grid pin hierarchy through mapper.Interface.
// Cells are separator-formatted pin prefixes; res is the prefix level.
package pinmapper

import (
	"fmt"

	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
)

// maxChildDepth bounds ToChildren to 16^2 cells.
const maxChildDepth = 2

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellFor(lat, lon float64, res int) (string, error) {
	if err := validateLevel(res); err != nil {
		return "", err
	}
	code, err := digipin.Encode(lat, lon)
	if err != nil {
		return "", err
	}
	return digipin.Parent(code, res)
}

func (m *Mapper) ToParent(cell string, parentRes int) (string, error) {
	if err := validateLevel(parentRes); err != nil {
		return "", err
	}
	return digipin.Parent(cell, parentRes)
}

// ToChildren expands cell down to childRes, in grid order.
func (m *Mapper) ToChildren(cell string, childRes int) ([]string, error) {
	if err := validateLevel(childRes); err != nil {
		return nil, err
	}
	// validates symbols and prefix length
	if _, err := digipin.PrefixBounds(cell); err != nil {
		return nil, err
	}
	cur := Level(cell)
	switch {
	case childRes < cur:
		return nil, fmt.Errorf("childRes %d must be >= cell level %d", childRes, cur)
	case childRes-cur > maxChildDepth:
		return nil, fmt.Errorf("childRes %d is more than %d levels below cell level %d", childRes, maxChildDepth, cur)
	case childRes == cur:
		return []string{digipin.Format(bare(cell))}, nil
	}

	out := []string{cell}
	for range childRes - cur {
		next := make([]string, 0, len(out)*16)
		for _, c := range out {
			kids, err := digipin.Children(c)
			if err != nil {
				return nil, err
			}
			next = append(next, kids...)
		}
		out = next
	}
	return out, nil
}

// Level counts the symbols of a pin prefix, ignoring separators.
func Level(cell string) int {
	return len(bare(cell))
}

func bare(cell string) string {
	b := make([]byte, 0, len(cell))
	for i := 0; i < len(cell); i++ {
		if cell[i] != digipin.Separator {
			b = append(b, cell[i])
		}
	}
	return string(b)
}

func validateLevel(level int) error {
	if level < 1 || level > digipin.Levels {
		return fmt.Errorf("invalid pin level %d (must be 1..%d)", level, digipin.Levels)
	}
	return nil
}
