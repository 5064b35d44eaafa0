// Package mapper converts coordinates into hierarchical cell ids and walks
// the cell hierarchy. Resolutions are scheme specific: pin level for grid
// pins, H3 resolution for H3.
package mapper

type Interface interface {
	CellFor(lat, lon float64, res int) (string, error)
	ToParent(cell string, parentRes int) (string, error)
	ToChildren(cell string, childRes int) ([]string, error)
}
