package strategy2d

import (
	"testing"

	"github.com/cutstock/optima/internal/geometry"
)

func TestBottomLeft_SinglePieceExactFit(t *testing.T) {
	pieces := []Piece{{ID: "P1", W: 500, H: 500}}
	stock := []Stock{{ID: "S", W: 500, H: 500, Available: 1}}
	res := BottomLeft(pieces, stock, Options{})
	if !res.Success || len(res.Sheets) != 1 {
		t.Fatalf("expected one sheet, got %+v", res)
	}
	if len(res.UnplacedPieces) != 0 {
		t.Fatalf("expected no unplaced pieces")
	}
	if res.Sheets[0].Waste != 0 {
		t.Fatalf("expected zero waste, got %v", res.Sheets[0].Waste)
	}
}

func TestBottomLeft_RotationUsedWhenOnlyRotatedFits(t *testing.T) {
	pieces := []Piece{{ID: "P1", W: 900, H: 400, CanRotate: true}}
	stock := []Stock{{ID: "S", W: 500, H: 1000, Available: 1}}
	res := BottomLeft(pieces, stock, Options{AllowRotation: true})
	if len(res.UnplacedPieces) != 0 {
		t.Fatalf("expected piece placed via rotation, got unplaced=%d", len(res.UnplacedPieces))
	}
	pl := res.Sheets[0].Placements[0]
	if !pl.Rotated {
		t.Fatalf("expected placement to be rotated")
	}
	if pl.W != 400 || pl.H != 900 {
		t.Fatalf("expected rotated dims 400x900, got %vx%v", pl.W, pl.H)
	}
}

func TestBottomLeft_UnrotatedPreferredOnTie(t *testing.T) {
	// Square sheet where both orientations of a square-ish rectangle fit
	// identically; unrotated must win.
	pieces := []Piece{{ID: "P1", W: 300, H: 300, CanRotate: true}}
	stock := []Stock{{ID: "S", W: 300, H: 300, Available: 1}}
	res := BottomLeft(pieces, stock, Options{AllowRotation: true})
	if res.Sheets[0].Placements[0].Rotated {
		t.Fatalf("expected unrotated placement on tie")
	}
}

func TestBottomLeft_OpensSecondSheetWhenFirstIsFull(t *testing.T) {
	pieces := []Piece{
		{ID: "P1", W: 900, H: 900},
		{ID: "P2", W: 900, H: 900},
	}
	stock := []Stock{{ID: "S", W: 1000, H: 1000, Available: 5}}
	res := BottomLeft(pieces, stock, Options{})
	if len(res.Sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %d", len(res.Sheets))
	}
	if len(res.UnplacedPieces) != 0 {
		t.Fatalf("expected both pieces placed")
	}
}

func TestBottomLeft_PieceLargerThanAllStockIsUnplaced(t *testing.T) {
	pieces := []Piece{{ID: "huge", W: 5000, H: 5000}}
	stock := []Stock{{ID: "S", W: 1000, H: 1000, Available: 5}}
	res := BottomLeft(pieces, stock, Options{})
	if len(res.UnplacedPieces) != 1 {
		t.Fatalf("expected 1 unplaced piece, got %d", len(res.UnplacedPieces))
	}
}

func TestBottomLeft_Determinism(t *testing.T) {
	pieces := []Piece{
		{ID: "A", W: 600, H: 400},
		{ID: "B", W: 600, H: 400},
		{ID: "C", W: 300, H: 300},
		{ID: "D", W: 200, H: 800},
	}
	stock := []Stock{{ID: "S", W: 1200, H: 1000, Available: 2}}
	r1 := BottomLeft(pieces, stock, Options{Kerf: 4})
	r2 := BottomLeft(pieces, stock, Options{Kerf: 4})
	if len(r1.Sheets) != len(r2.Sheets) {
		t.Fatalf("non-deterministic sheet count")
	}
	for i := range r1.Sheets {
		if len(r1.Sheets[i].Placements) != len(r2.Sheets[i].Placements) {
			t.Fatalf("non-deterministic placement count on sheet %d", i)
		}
		for j := range r1.Sheets[i].Placements {
			if r1.Sheets[i].Placements[j] != r2.Sheets[i].Placements[j] {
				t.Fatalf("non-deterministic placement %d/%d", i, j)
			}
		}
	}
}

func TestBottomLeft_KerfSeparationInvariant(t *testing.T) {
	pieces := []Piece{
		{ID: "A", W: 600, H: 400},
		{ID: "B", W: 600, H: 400},
		{ID: "C", W: 300, H: 300},
		{ID: "D", W: 200, H: 800},
		{ID: "E", W: 150, H: 150},
	}
	stock := []Stock{{ID: "S", W: 1200, H: 1000, Available: 3}}
	kerf := 4.0
	res := BottomLeft(pieces, stock, Options{Kerf: kerf})
	for _, sh := range res.Sheets {
		pls := sh.Placements
		for i := 0; i < len(pls); i++ {
			for j := i + 1; j < len(pls); j++ {
				a := geometry.Rect{X: pls[i].X, Y: pls[i].Y, W: pls[i].W, H: pls[i].H}
				b := geometry.Rect{X: pls[j].X, Y: pls[j].Y, W: pls[j].W, H: pls[j].H}
				if !geometry.SeparatedByKerf(a, b, kerf) {
					t.Fatalf("placements %s and %s violate kerf separation", pls[i].PieceID, pls[j].PieceID)
				}
			}
		}
	}
}

func TestGuillotine_ShortAxisSplitMatchesExpectedResiduals(t *testing.T) {
	pieces := []Piece{
		{ID: "P", W: 600, H: 600},
		{ID: "Q", W: 400, H: 400},
		{ID: "R", W: 300, H: 300},
	}
	stock := []Stock{{ID: "S", W: 1000, H: 1000, Available: 1}}
	res := Guillotine(pieces, stock, Options{GuillotineOnly: true})
	if len(res.UnplacedPieces) != 0 {
		t.Fatalf("expected all pieces placed, got %+v", res.UnplacedPieces)
	}
	if len(res.Sheets) != 1 {
		t.Fatalf("expected single sheet, got %d", len(res.Sheets))
	}
	byID := map[string]Placement{}
	for _, pl := range res.Sheets[0].Placements {
		byID[pl.PieceID] = pl
	}
	p, q, r := byID["P"], byID["Q"], byID["R"]
	if p.X != 0 || p.Y != 0 {
		t.Fatalf("expected P at origin, got %+v", p)
	}
	// Q must land in the 400x600 right-hand residual left by P's split.
	if q.X != 600 || q.Y != 0 {
		t.Fatalf("expected Q at (600,0), got %+v", q)
	}
	// R must land in the 1000x400 top residual.
	if r.Y != 600 {
		t.Fatalf("expected R in the top 1000x400 strip, got %+v", r)
	}
}

func TestGuillotine_RejectsNonGuillotineFit(t *testing.T) {
	// A pinwheel arrangement that Bottom-Left can pack but that cannot be
	// produced by any sequence of straight cuts should still resolve by
	// opening a second sheet rather than producing an illegal placement.
	pieces := []Piece{
		{ID: "A", W: 600, H: 400},
		{ID: "B", W: 400, H: 600},
		{ID: "C", W: 600, H: 400},
		{ID: "D", W: 400, H: 600},
	}
	stock := []Stock{{ID: "S", W: 1000, H: 1000, Available: 3}}
	res := Guillotine(pieces, stock, Options{GuillotineOnly: true})
	if len(res.UnplacedPieces) != 0 {
		t.Fatalf("expected all pieces eventually placed across sheets, got unplaced=%d", len(res.UnplacedPieces))
	}
	if len(res.Sheets) < 2 {
		t.Fatalf("expected guillotine packing to require more than one sheet for a pinwheel layout, got %d", len(res.Sheets))
	}
}

func TestGuillotine_Determinism(t *testing.T) {
	pieces := []Piece{
		{ID: "A", W: 500, H: 300},
		{ID: "B", W: 300, H: 300},
		{ID: "C", W: 200, H: 200},
	}
	stock := []Stock{{ID: "S", W: 800, H: 600, Available: 2}}
	r1 := Guillotine(pieces, stock, Options{Kerf: 2, GuillotineOnly: true})
	r2 := Guillotine(pieces, stock, Options{Kerf: 2, GuillotineOnly: true})
	if len(r1.Sheets) != len(r2.Sheets) {
		t.Fatalf("non-deterministic sheet count")
	}
	for i := range r1.Sheets {
		for j := range r1.Sheets[i].Placements {
			if r1.Sheets[i].Placements[j] != r2.Sheets[i].Placements[j] {
				t.Fatalf("non-deterministic placement")
			}
		}
	}
}
