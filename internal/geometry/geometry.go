// Package geometry implements the rotation, kerf, and usable-waste
// utilities shared by the 1D and 2D packing strategies.
//
// Grounded on piwi3910-cnc-calculator/internal/model (Part/StockSheet
// geometry helpers) and internal/engine/optimizer.go's kerf-aware
// placement math. Pure functions, no I/O, so no third-party geometry
// library is pulled in — the teacher itself uses bare math/sort here.
package geometry

// DefaultMinUsableWaste1D and DefaultMinUsableWaste2D are the dimensionality
// defaults named explicitly in spec.md §4.1 (50 mm / 10 000 mm²); see
// DESIGN.md "minUsableWaste default split" for why these values, not the
// alternate 100 mm reading, are authoritative.
const (
	DefaultMinUsableWaste1D = 50.0
	DefaultMinUsableWaste2D = 10000.0
)

// GrainDirection constrains rotation the way spec.md §4.1 describes:
// rotation is only honored when GrainNone.
type GrainDirection int

const (
	GrainNone GrainDirection = iota
	GrainAlongWidth
	GrainAlongHeight
)

// Rotatable2D reports whether a piece may be rotated during 2D packing.
// A piece rotates only when it declares canRotate, the scenario globally
// allows rotation, and the piece carries no grain constraint.
func Rotatable2D(canRotate, globalAllowRotation bool, grain GrainDirection) bool {
	return canRotate && globalAllowRotation && grain == GrainNone
}

// Inflate2D returns the kerf-inflated dimensions a placement must reserve
// in free space: every placement consumes an extra kerf band on its
// trailing edges.
func Inflate2D(w, h, kerf float64) (iw, ih float64) {
	return w + kerf, h + kerf
}

// Inflate1D returns the kerf-inflated length a single cut consumes.
func Inflate1D(length, kerf float64) float64 {
	return length + kerf
}

// UsableWaste1D returns the portion of a residual bar segment that counts
// as a reusable offcut (only when it is at least minUsableWaste; otherwise
// it is scrap and UsableWaste1D returns 0).
func UsableWaste1D(residual, minUsableWaste float64) float64 {
	if minUsableWaste <= 0 {
		minUsableWaste = DefaultMinUsableWaste1D
	}
	if residual >= minUsableWaste {
		return residual
	}
	return 0
}

// UsableWaste2D returns the portion of a residual sheet area that counts
// as a reusable offcut.
func UsableWaste2D(residualArea, minUsableWaste float64) float64 {
	if minUsableWaste <= 0 {
		minUsableWaste = DefaultMinUsableWaste2D
	}
	if residualArea >= minUsableWaste {
		return residualArea
	}
	return 0
}

// Rect is an axis-aligned rectangle in sheet coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Area returns the rectangle's area.
func (r Rect) Area() float64 { return r.W * r.H }

// Right returns the rectangle's right edge coordinate.
func (r Rect) Right() float64 { return r.X + r.W }

// Top returns the rectangle's top edge coordinate (y grows downward here:
// "top" means the far edge along the height axis).
func (r Rect) Top() float64 { return r.Y + r.H }

// Fits reports whether a w×h piece (already kerf-inflated by the caller)
// fits within r without rotation.
func (r Rect) Fits(w, h float64) bool {
	const eps = 1e-9
	return w <= r.W+eps && h <= r.H+eps
}

// Contains reports whether r fully contains other.
func (r Rect) Contains(other Rect) bool {
	const eps = 1e-9
	return r.X <= other.X+eps && r.Y <= other.Y+eps &&
		r.Right() >= other.Right()-eps && r.Top() >= other.Top()-eps
}

// Overlaps reports whether r and other share interior area (edges touching
// is not an overlap).
func (r Rect) Overlaps(other Rect) bool {
	const eps = 1e-9
	return r.X < other.Right()-eps && r.Right() > other.X+eps &&
		r.Y < other.Top()-eps && r.Top() > other.Y+eps
}

// SeparatedByKerf reports whether two placements, given in their actual
// (non-inflated) dimensions, maintain at least kerf separation on one
// axis; the kerf band is added here, not by the caller. This backs the property in spec.md §8: "every pair of
// placements on the same sheet has an axis-aligned separation >= kerf on
// at least one axis".
func SeparatedByKerf(a, b Rect, kerf float64) bool {
	const eps = 1e-9
	sepX := a.Right()+kerf <= b.X+eps || b.Right()+kerf <= a.X+eps
	sepY := a.Top()+kerf <= b.Y+eps || b.Top()+kerf <= a.Y+eps
	return sepX || sepY
}
