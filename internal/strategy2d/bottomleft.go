package strategy2d

import (
	"sort"

	"github.com/cutstock/optima/internal/geometry"
)

// openSheet is the mutable packing state for one opened sheet.
type openSheet struct {
	stockID          string
	w, h             float64
	placements       []Placement
	free             []freeRect
	nextOrder        int
	placedFootprints []geometry.Rect // kerf-inflated reserved footprints
}

func newOpenSheet(stockID string, w, h float64) *openSheet {
	s := &openSheet{stockID: stockID, w: w, h: h}
	s.free = append(s.free, freeRect{Rect: geometry.Rect{X: 0, Y: 0, W: w, H: h}, order: 0})
	s.nextOrder = 1
	return s
}

// sortedPieces2D returns pieces sorted descending by their longer side,
// then descending by area, then ascending by id for determinism.
func sortedPieces2D(pieces []Piece) []Piece {
	out := make([]Piece, len(pieces))
	copy(out, pieces)
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := max2(out[i].W, out[i].H), max2(out[j].W, out[j].H)
		if mi != mj {
			return mi > mj
		}
		ai, aj := out[i].W*out[i].H, out[j].W*out[j].H
		if ai != aj {
			return ai > aj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func sortedStockPool2D(stock []Stock) []Stock {
	out := make([]Stock, len(stock))
	copy(out, stock)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UnitPrice != out[j].UnitPrice {
			return out[i].UnitPrice < out[j].UnitPrice
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func availability2D(stock []Stock) map[string]int {
	m := make(map[string]int, len(stock))
	for _, s := range stock {
		m[s.ID] = s.Available
	}
	return m
}

// fitsSheet reports whether a piece fits a fresh stock sheet in some
// orientation (used when opening new sheets).
func fitsSheet(p Piece, w, h, kerf float64, allowRotation bool) bool {
	iw, ih := geometry.Inflate2D(p.W, p.H, kerf)
	if iw <= w && ih <= h {
		return true
	}
	if geometry.Rotatable2D(p.CanRotate, allowRotation, geometry.GrainNone) {
		riw, rih := geometry.Inflate2D(p.H, p.W, kerf)
		return riw <= w && rih <= h
	}
	return false
}

func openNewSheet2D(pool []Stock, avail map[string]int, p Piece, kerf float64, allowRotation bool) *openSheet {
	for i := range pool {
		s := pool[i]
		if avail[s.ID] <= 0 {
			continue
		}
		if fitsSheet(p, s.W, s.H, kerf, allowRotation) {
			avail[s.ID]--
			return newOpenSheet(s.ID, s.W, s.H)
		}
	}
	return nil
}

// tryPlace attempts to place p on the sheet using the Bottom-Left-Fill
// rule: among all free rectangles that can host the piece in some legal
// orientation without colliding with an already-reserved footprint, the
// free rectangle with the lowest Y, then lowest X, then earliest insertion
// order wins. On a tie between orientations on the same rectangle, the
// unrotated orientation wins (their kerf-inflated area is always equal).
func (s *openSheet) tryPlace(p Piece, kerf float64, allowRotation bool) bool {
	bestIdx := -1
	var bestRotated bool
	var bestPW, bestPH float64

	for i, fr := range s.free {
		iw, ih := geometry.Inflate2D(p.W, p.H, kerf)
		normalOK := fr.Fits(iw, ih) && !s.collides(fr.X, fr.Y, iw, ih)

		var rotOK bool
		var riw, rih float64
		if geometry.Rotatable2D(p.CanRotate, allowRotation, geometry.GrainNone) {
			riw, rih = geometry.Inflate2D(p.H, p.W, kerf)
			rotOK = fr.Fits(riw, rih) && !s.collides(fr.X, fr.Y, riw, rih)
		}

		if !normalOK && !rotOK {
			continue
		}

		rotated := false
		pw, ph := iw, ih
		if !normalOK && rotOK {
			rotated = true
			pw, ph = riw, rih
		}

		if bestIdx < 0 || betterOrigin(s.free[i], s.free[bestIdx]) {
			bestIdx = i
			bestRotated = rotated
			bestPW, bestPH = pw, ph
		}
	}

	if bestIdx < 0 {
		return false
	}

	fr := s.free[bestIdx]
	actualW, actualH := p.W, p.H
	if bestRotated {
		actualW, actualH = p.H, p.W
	}
	s.placements = append(s.placements, Placement{
		PieceID: p.ID, X: fr.X, Y: fr.Y, W: actualW, H: actualH, Rotated: bestRotated,
	})
	s.placedFootprints = append(s.placedFootprints, geometry.Rect{X: fr.X, Y: fr.Y, W: bestPW, H: bestPH})

	// Remove the chosen rect, split into right-strip and top-strip.
	s.free = append(s.free[:bestIdx], s.free[bestIdx+1:]...)
	rightStrip := geometry.Rect{X: fr.X + bestPW, Y: fr.Y, W: fr.W - bestPW, H: fr.H}
	topStrip := geometry.Rect{X: fr.X, Y: fr.Y + bestPH, W: fr.W, H: fr.H - bestPH}
	const eps = 1e-9
	if rightStrip.W > eps && rightStrip.H > eps {
		s.free = append(s.free, freeRect{Rect: rightStrip, order: s.nextOrder})
		s.nextOrder++
	}
	if topStrip.W > eps && topStrip.H > eps {
		s.free = append(s.free, freeRect{Rect: topStrip, order: s.nextOrder})
		s.nextOrder++
	}
	return true
}

// collides reports whether the candidate kerf-inflated footprint overlaps
// any already-reserved footprint on this sheet. The free-rectangle list is
// never pruned of overlaps (a quality tradeoff, not a correctness one), so
// this check is what keeps placements from clashing.
func (s *openSheet) collides(x, y, w, h float64) bool {
	cand := geometry.Rect{X: x, Y: y, W: w, H: h}
	for _, p := range s.placedFootprints {
		if cand.Overlaps(p) {
			return true
		}
	}
	return false
}

// betterOrigin reports whether a is a better Bottom-Left choice than b:
// lower Y wins, then lower X, then earlier insertion order.
func betterOrigin(a, b freeRect) bool {
	const eps = 1e-9
	if a.Y+eps < b.Y {
		return true
	}
	if a.Y > b.Y+eps {
		return false
	}
	if a.X+eps < b.X {
		return true
	}
	if a.X > b.X+eps {
		return false
	}
	return a.order < b.order
}

func finalizeSheets(sheets []*openSheet, unplaced []Piece, opts Options) Result {
	res := Result{Success: true}
	var totalArea, totalWaste float64
	for _, sh := range sheets {
		var used float64
		for _, pl := range sh.placements {
			used += pl.W * pl.H
		}
		area := sh.w * sh.h
		waste := area - used
		usable := geometry.UsableWaste2D(waste, opts.MinUsableWaste)
		pct := 0.0
		if area > 0 {
			pct = waste / area * 100
		}
		res.Sheets = append(res.Sheets, Sheet{
			StockID:         sh.stockID,
			StockWidth:      sh.w,
			StockHeight:     sh.h,
			Placements:      sh.placements,
			Waste:           waste,
			WastePercentage: pct,
			UsableWaste:     usable,
		})
		totalArea += area
		totalWaste += waste
	}
	res.UnplacedPieces = unplaced
	res.TotalWaste = totalWaste
	if totalArea > 0 {
		res.WastePercentage = totalWaste / totalArea * 100
	}
	res.Statistics = Statistics{Efficiency: 100 - res.WastePercentage}
	return res
}

// BottomLeft implements the Bottom-Left-Fill 2D strategy: pieces sorted
// descending by longest side, each piece placed into the open sheet (in
// insertion order) whose free-rectangle list can host it, else a new sheet
// is opened from the cheapest fitting stock, else the piece is left
// unplaced.
func BottomLeft(pieces []Piece, stock []Stock, opts Options) Result {
	ordered := sortedPieces2D(pieces)
	pool := sortedStockPool2D(stock)
	avail := availability2D(stock)

	var sheets []*openSheet
	var unplaced []Piece

	for _, p := range ordered {
		placed := false
		for _, sh := range sheets {
			if sh.tryPlace(p, opts.Kerf, opts.AllowRotation) {
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		if ns := openNewSheet2D(pool, avail, p, opts.Kerf, opts.AllowRotation); ns != nil {
			if !ns.tryPlace(p, opts.Kerf, opts.AllowRotation) {
				unplaced = append(unplaced, p)
				continue
			}
			sheets = append(sheets, ns)
			continue
		}
		unplaced = append(unplaced, p)
	}

	return finalizeSheets(sheets, unplaced, opts)
}
