package optimizer

import (
	"testing"

	"github.com/cutstock/optima/internal/domain"
)

func TestWithStandardSizes_AppendsBarCatalogFor1D(t *testing.T) {
	stock := withStandardSizes(nil, "mt-1", 3.0, domain.StockTypeBar1D)
	if len(stock) != len(standardBarLengths) {
		t.Fatalf("expected %d catalog bars, got %d", len(standardBarLengths), len(stock))
	}
	for _, s := range stock {
		if s.IsFromWaste {
			t.Fatalf("catalog stock must not be tagged as waste")
		}
		if s.Length <= 0 {
			t.Fatalf("expected a positive catalog bar length, got %v", s.Length)
		}
	}
}

func TestWithStandardSizes_AppendsSheetCatalogFor2D(t *testing.T) {
	existing := []domain.StockItem{{ID: "real-1"}}
	stock := withStandardSizes(existing, "mt-2", 5.0, domain.StockTypeSheet2D)
	if len(stock) != 1+len(standardSheetSizes) {
		t.Fatalf("expected existing stock preserved plus catalog sheets, got %d", len(stock))
	}
	if stock[0].ID != "real-1" {
		t.Fatalf("expected existing stock to remain first, got %+v", stock[0])
	}
}
