package optimizer

import (
	"strconv"

	"github.com/cutstock/optima/internal/domain"
)

// standardSheetSizes and standardBarLengths are the common stock
// dimensions appended to the candidate pool when a scenario's
// useStandardSizes parameter is set, per SPEC_FULL.md §12's standard-size
// catalog augmentation.
var standardSheetSizes = []struct{ width, height float64 }{
	{2440, 1220},
	{3050, 1530},
	{2500, 1250},
}

var standardBarLengths = []float64{6000, 4000, 3000}

// withStandardSizes appends the built-in catalog to stock, tagged
// IsFromWaste=false and UnitPrice=0 (a nominal catalog price; real
// pricing is a concern of the Stock service this core only queries).
// Quantity is 1 per catalog entry: the packer treats it as "at least one
// is always orderable", not a real inventory count.
func withStandardSizes(stock []domain.StockItem, materialTypeID string, thickness float64, stockType domain.StockType) []domain.StockItem {
	if stockType == domain.StockTypeBar1D {
		for _, length := range standardBarLengths {
			stock = append(stock, domain.StockItem{
				ID:             "catalog-bar-" + formatDim(length),
				MaterialTypeID: materialTypeID,
				StockType:      stockType,
				Length:         length,
				Thickness:      thickness,
				Quantity:       1,
				IsFromWaste:    false,
			})
		}
		return stock
	}
	for _, sz := range standardSheetSizes {
		stock = append(stock, domain.StockItem{
			ID:             "catalog-sheet-" + formatDim(sz.width) + "x" + formatDim(sz.height),
			MaterialTypeID: materialTypeID,
			StockType:      stockType,
			Width:          sz.width,
			Height:         sz.height,
			Thickness:      thickness,
			Quantity:       1,
			IsFromWaste:    false,
		})
	}
	return stock
}

func formatDim(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}
