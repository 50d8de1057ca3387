// Package convert implements the deterministic, I/O-free data converters
// described in spec.md §4.6: expanding quantities into unit pieces,
// coercing nullable dimensions, filtering stock by stockType, projecting
// domain records into algorithm record shapes, and lifting algorithm
// results back into discriminated layout data.
//
// Grounded on piwi3910-cnc-calculator/internal/engine/optimizer.go's
// groupByMaterial/expand-by-quantity converter functions, generalized
// from the teacher's single monolithic optimizer into standalone pure
// functions the engine orchestrator composes explicitly.
package convert

import (
	"fmt"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/strategy1d"
	"github.com/cutstock/optima/internal/strategy2d"
)

// FilterStock returns the subset of stock usable for a run: matching
// materialTypeId, thickness, stockType, and — when selectedStockIDs is
// non-empty — restricted to that explicit set.
func FilterStock(stock []domain.StockItem, materialTypeID string, thickness float64, stockType domain.StockType, selectedStockIDs []string) []domain.StockItem {
	var selected map[string]bool
	if len(selectedStockIDs) > 0 {
		selected = make(map[string]bool, len(selectedStockIDs))
		for _, id := range selectedStockIDs {
			selected[id] = true
		}
	}
	out := make([]domain.StockItem, 0, len(stock))
	for _, s := range stock {
		if s.MaterialTypeID != materialTypeID || s.Thickness != thickness || s.StockType != stockType {
			continue
		}
		if selected != nil && !selected[s.ID] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// coerce0 returns v, or 0 when v is negative or NaN-like nullable absence
// the caller represents as a negative sentinel. Dimensions are plain
// float64 in the domain model (no pointer/null wrapper at this layer), so
// coercion here is simply clamping to a non-negative value.
func coerce0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// To1DPieces expands each CuttingJobItem's quantity into individual unit
// pieces for the 1D strategies. Unit ids are "<itemID>#<index>" so results
// can be re-associated with their source item, and remain stable across
// runs given the same input order.
func To1DPieces(items []domain.CuttingJobItem) []strategy1d.Piece {
	var out []strategy1d.Piece
	for _, item := range items {
		length := coerce0(item.OrderItem.Length)
		for i := 0; i < item.Quantity; i++ {
			out = append(out, strategy1d.Piece{
				ID:          fmt.Sprintf("%s#%d", item.ID, i),
				Length:      length,
				OrderItemID: item.OrderItemID,
			})
		}
	}
	return out
}

// To2DPieces expands each CuttingJobItem's quantity into individual unit
// pieces for the 2D strategies, classifying rotation eligibility from the
// order item and the material's rotation policy.
func To2DPieces(items []domain.CuttingJobItem, materials map[string]domain.MaterialType, materialTypeID string) []strategy2d.Piece {
	materialRotatable := true
	if m, ok := materials[materialTypeID]; ok {
		materialRotatable = m.Rotatable
	}
	var out []strategy2d.Piece
	for _, item := range items {
		w := coerce0(item.OrderItem.Width)
		h := coerce0(item.OrderItem.Height)
		canRotate := item.OrderItem.CanRotate && materialRotatable
		for i := 0; i < item.Quantity; i++ {
			out = append(out, strategy2d.Piece{
				ID:          fmt.Sprintf("%s#%d", item.ID, i),
				W:           w,
				H:           h,
				CanRotate:   canRotate,
				OrderItemID: item.OrderItemID,
			})
		}
	}
	return out
}

// To1DStock filters stock to BAR_1D entries and projects them into
// strategy1d.Stock records, ordered the same as the input.
func To1DStock(stock []domain.StockItem) []strategy1d.Stock {
	var out []strategy1d.Stock
	for _, s := range stock {
		if s.StockType != domain.StockTypeBar1D {
			continue
		}
		out = append(out, strategy1d.Stock{
			ID:        s.ID,
			Length:    s.Length,
			Available: s.Available(),
			UnitPrice: s.UnitPrice,
		})
	}
	return out
}

// To2DStock filters stock to SHEET_2D entries and projects them into
// strategy2d.Stock records.
func To2DStock(stock []domain.StockItem) []strategy2d.Stock {
	var out []strategy2d.Stock
	for _, s := range stock {
		if s.StockType != domain.StockTypeSheet2D {
			continue
		}
		out = append(out, strategy2d.Stock{
			ID:        s.ID,
			W:         s.Width,
			H:         s.Height,
			Available: s.Available(),
			UnitPrice: s.UnitPrice,
		})
	}
	return out
}

// StockLayout is one CuttingPlanStock-shaped record lifted from a
// strategy result, sequenced in placement order (sequence is assigned by
// the caller, which knows the starting offset across both dimensionalities
// in a mixed run).
type StockLayout struct {
	StockItemID     string
	Waste           float64
	WastePercentage float64
	Layout          domain.LayoutData
}

// LiftBars converts 1D strategy bars into StockLayout records.
func LiftBars(bars []strategy1d.Bar) []StockLayout {
	out := make([]StockLayout, 0, len(bars))
	for _, b := range bars {
		cuts := make([]domain.Cut1D, 0, len(b.Cuts))
		for _, c := range b.Cuts {
			cuts = append(cuts, domain.Cut1D{PieceID: c.PieceID, Offset: c.Offset, Length: c.Length})
		}
		out = append(out, StockLayout{
			StockItemID:     b.StockID,
			Waste:           b.Waste,
			WastePercentage: b.WastePercentage,
			Layout: domain.LayoutData{
				Kind:        domain.Layout1D,
				StockLength: b.StockLength,
				Cuts:        cuts,
				UsableWaste: b.UsableWaste,
			},
		})
	}
	return out
}

// LiftSheets converts 2D strategy sheets into StockLayout records.
func LiftSheets(sheets []strategy2d.Sheet) []StockLayout {
	out := make([]StockLayout, 0, len(sheets))
	for _, sh := range sheets {
		placements := make([]domain.Placement2D, 0, len(sh.Placements))
		for _, pl := range sh.Placements {
			placements = append(placements, domain.Placement2D{
				PieceID: pl.PieceID, X: pl.X, Y: pl.Y, W: pl.W, H: pl.H, Rotated: pl.Rotated,
			})
		}
		out = append(out, StockLayout{
			StockItemID:     sh.StockID,
			Waste:           sh.Waste,
			WastePercentage: sh.WastePercentage,
			Layout: domain.LayoutData{
				Kind:        domain.Layout2D,
				StockWidth:  sh.StockWidth,
				StockHeight: sh.StockHeight,
				Placements:  placements,
			},
		})
	}
	return out
}

// UnplacedOrderItemIDs1D collects the distinct OrderItemIDs behind a set of
// unplaced 1D pieces, for the engine's unplacedCount reporting.
func UnplacedOrderItemIDs1D(pieces []strategy1d.Piece) []string {
	seen := make(map[string]bool, len(pieces))
	var out []string
	for _, p := range pieces {
		if seen[p.OrderItemID] {
			continue
		}
		seen[p.OrderItemID] = true
		out = append(out, p.OrderItemID)
	}
	return out
}

// UnplacedOrderItemIDs2D is the 2D counterpart of UnplacedOrderItemIDs1D.
func UnplacedOrderItemIDs2D(pieces []strategy2d.Piece) []string {
	seen := make(map[string]bool, len(pieces))
	var out []string
	for _, p := range pieces {
		if seen[p.OrderItemID] {
			continue
		}
		seen[p.OrderItemID] = true
		out = append(out, p.OrderItemID)
	}
	return out
}
