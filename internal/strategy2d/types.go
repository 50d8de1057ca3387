// Package strategy2d implements the Bottom-Left-Fill and Guillotine
// rectangle-packing strategies described in spec.md §4.3.
//
// Grounded on piwi3910-cnc-calculator/internal/engine/optimizer.go's
// guillotinePacker (free-rectangle list, best-area-fit insertion, rect
// splitting/subtraction) generalized to the two distinct split rules the
// spec calls out (BLF's two-strip split vs. guillotine's short-axis
// 2-way split), and on internal/geometry for kerf/rotation primitives.
package strategy2d

import "github.com/cutstock/optima/internal/geometry"

// Piece is one unit-quantity rectangle to place. Quantities are expanded
// to individual Piece values by the caller (internal/convert), matching
// the 1D strategies and spec.md §4.6's "expand quantities into unit
// pieces" converter responsibility.
type Piece struct {
	ID          string
	W, H        float64
	CanRotate   bool
	OrderItemID string
}

// Stock describes one candidate sheet stock item.
type Stock struct {
	ID        string
	W, H      float64
	Available int
	UnitPrice float64
}

// Options configures a 2D packing run.
type Options struct {
	Kerf           float64
	AllowRotation  bool
	GuillotineOnly bool
	// MinUsableWaste is the residual-area threshold below which a
	// sheet's leftover area counts as scrap rather than reusable
	// offcut. Zero means geometry.DefaultMinUsableWaste2D.
	MinUsableWaste float64
}

// Placement is one piece placed on a sheet, in actual (non-inflated)
// dimensions.
type Placement struct {
	PieceID string
	X, Y    float64
	W, H    float64
	Rotated bool
}

// Sheet is one stock unit opened during packing, with its placements.
type Sheet struct {
	StockID         string
	StockWidth      float64
	StockHeight     float64
	Placements      []Placement
	Waste           float64
	WastePercentage float64
	UsableWaste     float64
}

// Statistics summarizes a packing run.
type Statistics struct {
	Efficiency float64
}

// Result is the output of a 2D strategy run.
type Result struct {
	Success         bool
	Sheets          []Sheet
	UnplacedPieces  []Piece
	Statistics      Statistics
	TotalWaste      float64
	WastePercentage float64
}

// freeRect tracks a free region plus its insertion index so ties break on
// insertion order (DESIGN.md "Bottom-Left free-rectangle tiebreak": oldest
// free rectangle wins).
type freeRect struct {
	geometry.Rect
	order int
}

// candidate is one (free rectangle, orientation) pairing that can legally
// host a piece.
type candidate struct {
	rectIdx int
	rotated bool
	pw, ph  float64 // kerf-inflated footprint dimensions for this orientation
}
