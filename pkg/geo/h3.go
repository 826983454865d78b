package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3 resolution levels.
// See: https://h3geo.org/docs/core-library/restable
const (
	// H3ResolutionPooling indexes forming pools for nearby lookup
	// (~1.2 km edge, ~5.16 km²).
	H3ResolutionPooling = 7

	// H3KRingPooling is the k-ring radius for nearby pool search.
	// At resolution 7, k=2 covers roughly a 5 km radius.
	H3KRingPooling = 2
)

// CellOf converts a coordinate to its H3 cell at the given resolution.
// Returns 0 for coordinates the library rejects.
func CellOf(p Point, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Latitude, p.Longitude), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// CellString returns the hex string form of the cell containing p, suitable
// for storage keys.
func CellString(p Point, resolution int) string {
	return CellOf(p, resolution).String()
}

// KRing returns the H3 cells within k rings of the cell containing p.
func KRing(p Point, resolution, k int) []h3.Cell {
	origin := CellOf(p, resolution)
	cells, err := origin.GridDisk(k)
	if err != nil {
		return []h3.Cell{origin}
	}
	return cells
}

// StringToCell parses an H3 cell hex string back to a Cell.
func StringToCell(s string) h3.Cell {
	return h3.CellFromString(s)
}
