package strategy2d

import "github.com/cutstock/optima/internal/geometry"

// guillotineSheet packs with the strict guillotine rule: every split
// divides a free rectangle into exactly two rectangles via one full cut,
// so every free rectangle (and thus every placement) stays reachable by a
// sequence of straight through-cuts. Grounded on piwi3910-cnc-calculator's
// guillotinePacker, specialized to the spec's short-axis split rule rather
// than that packer's maximal-rectangles approach (which Bottom-Left uses
// instead).
type guillotineSheet struct {
	stockID          string
	w, h             float64
	placements       []Placement
	free             []freeRect
	nextOrder        int
	placedFootprints []geometry.Rect
}

func newGuillotineSheet(stockID string, w, h float64) *guillotineSheet {
	s := &guillotineSheet{stockID: stockID, w: w, h: h}
	s.free = append(s.free, freeRect{Rect: geometry.Rect{X: 0, Y: 0, W: w, H: h}, order: 0})
	s.nextOrder = 1
	return s
}

func (s *guillotineSheet) collides(x, y, w, h float64) bool {
	cand := geometry.Rect{X: x, Y: y, W: w, H: h}
	for _, p := range s.placedFootprints {
		if cand.Overlaps(p) {
			return true
		}
	}
	return false
}

// tryPlace selects the bottom-most, then left-most, then oldest free
// rectangle able to host p (same selection rule as Bottom-Left, applied
// here to keep sheet selection deterministic; the spec leaves candidate
// selection open and only constrains the split itself), then performs a
// short-axis guillotine split on the chosen rectangle.
func (s *guillotineSheet) tryPlace(p Piece, kerf float64, allowRotation bool) bool {
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

	s.free = append(s.free[:bestIdx], s.free[bestIdx+1:]...)
	s.addSplits(fr.Rect, bestPW, bestPH)
	return true
}

// addSplits performs the short-axis split: the chosen free rectangle is
// cut into exactly two rectangles by a single full-width or full-height
// cut line. Both candidate cuts are evaluated and whichever leaves the
// larger single residual rectangle wins; a tie keeps the full-width
// (horizontal-first) split.
func (s *guillotineSheet) addSplits(fr geometry.Rect, pw, ph float64) {
	const eps = 1e-9

	// Split A: horizontal cut first — top spans the full width, right
	// strip spans only the placed piece's height.
	topA := geometry.Rect{X: fr.X, Y: fr.Y + ph, W: fr.W, H: fr.H - ph}
	rightA := geometry.Rect{X: fr.X + pw, Y: fr.Y, W: fr.W - pw, H: ph}
	maxA := max2(topA.Area(), rightA.Area())

	// Split B: vertical cut first — right spans the full height, top
	// strip spans only the placed piece's width.
	rightB := geometry.Rect{X: fr.X + pw, Y: fr.Y, W: fr.W - pw, H: fr.H}
	topB := geometry.Rect{X: fr.X, Y: fr.Y + ph, W: pw, H: fr.H - ph}
	maxB := max2(topB.Area(), rightB.Area())

	var top, right geometry.Rect
	if maxB > maxA+eps {
		top, right = topB, rightB
	} else {
		top, right = topA, rightA
	}

	if right.W > eps && right.H > eps {
		s.free = append(s.free, freeRect{Rect: right, order: s.nextOrder})
		s.nextOrder++
	}
	if top.W > eps && top.H > eps {
		s.free = append(s.free, freeRect{Rect: top, order: s.nextOrder})
		s.nextOrder++
	}
}

func finalizeGuillotineSheets(sheets []*guillotineSheet, unplaced []Piece, opts Options) Result {
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

// Guillotine implements the strict guillotine-cut 2D strategy described in
// spec.md §4.3: every sheet is recursively divisible by straight cuts, so
// it is suited to stock that must be recut on a panel saw rather than
// routed freeform. opts.GuillotineOnly documents intent; this strategy
// always performs guillotine splits regardless of its value.
func Guillotine(pieces []Piece, stock []Stock, opts Options) Result {
	ordered := sortedPieces2D(pieces)
	pool := sortedStockPool2D(stock)
	avail := availability2D(stock)

	var sheets []*guillotineSheet
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
		if ns := openNewGuillotineSheet(pool, avail, p, opts.Kerf, opts.AllowRotation); ns != nil {
			if !ns.tryPlace(p, opts.Kerf, opts.AllowRotation) {
				unplaced = append(unplaced, p)
				continue
			}
			sheets = append(sheets, ns)
			continue
		}
		unplaced = append(unplaced, p)
	}

	return finalizeGuillotineSheets(sheets, unplaced, opts)
}

func openNewGuillotineSheet(pool []Stock, avail map[string]int, p Piece, kerf float64, allowRotation bool) *guillotineSheet {
	for i := range pool {
		s := pool[i]
		if avail[s.ID] <= 0 {
			continue
		}
		if fitsSheet(p, s.W, s.H, kerf, allowRotation) {
			avail[s.ID]--
			return newGuillotineSheet(s.ID, s.W, s.H)
		}
	}
	return nil
}
