package strategy1d

import "sort"

// openBar is the mutable packing state for one opened bar.
type openBar struct {
	stockID     string
	stockLength float64
	cuts        []Cut
	used        float64 // offset + length of the last placed cut (no trailing kerf)
}

func (b *openBar) remaining(kerf float64) float64 {
	if len(b.cuts) == 0 {
		return b.stockLength
	}
	return b.stockLength - b.used - kerf
}

func (b *openBar) place(piece Piece, kerf float64) {
	offset := 0.0
	if len(b.cuts) > 0 {
		offset = b.used + kerf
	}
	b.cuts = append(b.cuts, Cut{PieceID: piece.ID, Offset: offset, Length: piece.Length})
	b.used = offset + piece.Length
}

// sortedPieces returns pieces sorted descending by length, tie-broken
// ascending by id for determinism (spec.md §4.2: "sort keys include id").
func sortedPieces(pieces []Piece) []Piece {
	out := make([]Piece, len(pieces))
	copy(out, pieces)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Length != out[j].Length {
			return out[i].Length > out[j].Length
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// sortedStockPool returns stock sorted ascending by unit price, tie-broken
// ascending by id, used when a new bar must be opened.
func sortedStockPool(stock []Stock) []Stock {
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

// openNewBar finds the cheapest stock (by the pre-sorted pool order) with
// remaining availability whose length fits the piece, decrements its
// availability, and returns a fresh openBar. Returns nil if no stock fits.
func openNewBar(pool []Stock, avail map[string]int, pieceLength float64) *openBar {
	for i := range pool {
		s := pool[i]
		if avail[s.ID] <= 0 {
			continue
		}
		if pieceLength <= s.Length {
			avail[s.ID]--
			return &openBar{stockID: s.ID, stockLength: s.Length}
		}
	}
	return nil
}

func availability(stock []Stock) map[string]int {
	m := make(map[string]int, len(stock))
	for _, s := range stock {
		m[s.ID] = s.Available
	}
	return m
}

// finalize converts the open-bar working state into the public Result,
// computing per-bar waste and usable-waste classification.
func finalize(bars []*openBar, unplaced []Piece, opts Options) Result {
	res := Result{Success: true}
	var totalStockArea, totalWaste float64
	for _, b := range bars {
		waste := b.stockLength - b.used
		usable := waste
		if waste > 0 {
			usable = usableWaste(waste, opts.MinUsableWaste)
		} else {
			usable = 0
		}
		pct := 0.0
		if b.stockLength > 0 {
			pct = waste / b.stockLength * 100
		}
		res.Bars = append(res.Bars, Bar{
			StockID:         b.stockID,
			StockLength:     b.stockLength,
			Cuts:            b.cuts,
			Waste:           waste,
			WastePercentage: pct,
			UsableWaste:     usable,
		})
		totalStockArea += b.stockLength
		totalWaste += waste
	}
	res.UnplacedPieces = unplaced
	res.TotalWaste = totalWaste
	if totalStockArea > 0 {
		res.WastePercentage = totalWaste / totalStockArea * 100
	}
	res.Statistics = Statistics{Efficiency: 100 - res.WastePercentage}
	return res
}

func usableWaste(residual, minUsableWaste float64) float64 {
	if minUsableWaste <= 0 {
		minUsableWaste = 50
	}
	if residual >= minUsableWaste {
		return residual
	}
	return 0
}

// FFD implements First-Fit-Decreasing: pieces sorted descending by length;
// each piece is placed in the first open bar (insertion order) with enough
// remaining length, else a new bar is opened from the cheapest fitting
// stock, else the piece is left unplaced.
func FFD(pieces []Piece, stock []Stock, opts Options) Result {
	ordered := sortedPieces(pieces)
	pool := sortedStockPool(stock)
	avail := availability(stock)

	var bars []*openBar
	var unplaced []Piece

	for _, p := range ordered {
		placed := false
		for _, b := range bars {
			if p.Length <= b.remaining(opts.Kerf) {
				b.place(p, opts.Kerf)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		if nb := openNewBar(pool, avail, p.Length); nb != nil {
			nb.place(p, opts.Kerf)
			bars = append(bars, nb)
			continue
		}
		unplaced = append(unplaced, p)
	}

	return finalize(bars, unplaced, opts)
}

// BFD implements Best-Fit-Decreasing: same piece order as FFD, but each
// piece goes into the open bar whose remaining length after placement is
// smallest (tightest fit). Ties break by lower stockId, then by the older
// (earlier-opened) bar.
func BFD(pieces []Piece, stock []Stock, opts Options) Result {
	ordered := sortedPieces(pieces)
	pool := sortedStockPool(stock)
	avail := availability(stock)

	var bars []*openBar
	var unplaced []Piece

	for _, p := range ordered {
		bestIdx := -1
		bestRemaining := 0.0
		for i, b := range bars {
			rem := b.remaining(opts.Kerf)
			if p.Length > rem {
				continue
			}
			after := rem - p.Length
			if bestIdx < 0 || after < bestRemaining ||
				(after == bestRemaining && tighterTieBreak(bars[bestIdx], b)) {
				bestIdx = i
				bestRemaining = after
			}
		}
		if bestIdx >= 0 {
			bars[bestIdx].place(p, opts.Kerf)
			continue
		}
		if nb := openNewBar(pool, avail, p.Length); nb != nil {
			nb.place(p, opts.Kerf)
			bars = append(bars, nb)
			continue
		}
		unplaced = append(unplaced, p)
	}

	return finalize(bars, unplaced, opts)
}

// tighterTieBreak reports whether candidate should replace current as the
// tie-broken best-fit bar: lower stockId wins, then the older (already
// earlier in the slice, hence "current") bar is kept.
func tighterTieBreak(current, candidate *openBar) bool {
	if candidate.stockID != current.stockID {
		return candidate.stockID < current.stockID
	}
	return false // current is older; keep it
}
