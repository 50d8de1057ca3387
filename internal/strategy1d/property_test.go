package strategy1d

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestFFD_PlacedAndUnplacedPartitionTheExpandedPieces property-tests
// spec.md §8's "unplaced ∪ placed == expanded pieces as multisets" for the
// FFD strategy, grounded on the teacher's registry/store/mongo property
// suite (gopter.NewProperties + prop.ForAll over a custom generator).
func TestFFD_PlacedAndUnplacedPartitionTheExpandedPieces(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FFD never loses or duplicates a piece", prop.ForAll(
		func(lengths []float64, stockLen float64) bool {
			pieces := make([]Piece, len(lengths))
			for i, l := range lengths {
				pieces[i] = Piece{ID: idSuffix("P", i), Length: l}
			}
			stock := []Stock{{ID: "S", Length: stockLen, Available: len(pieces)}}

			res := FFD(pieces, stock, Options{Kerf: 2})

			seen := map[string]bool{}
			for _, bar := range res.Bars {
				for _, c := range bar.Cuts {
					if seen[c.PieceID] {
						return false // duplicate placement
					}
					seen[c.PieceID] = true
				}
			}
			for _, p := range res.UnplacedPieces {
				if seen[p.ID] {
					return false // placed and unplaced
				}
				seen[p.ID] = true
			}
			return len(seen) == len(pieces)
		},
		gen.SliceOfN(6, gen.Float64Range(10, 500)),
		gen.Float64Range(500, 3000),
	))

	properties.TestingRun(t)
}

// TestFFD_WastePercentageStaysWithinZeroToHundred property-tests spec.md
// §8's "0 ≤ wastePercentage ≤ 100 and efficiency == 100 − wastePercentage".
func TestFFD_WastePercentageStaysWithinZeroToHundred(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("waste percentage and efficiency stay complementary and bounded", prop.ForAll(
		func(lengths []float64, stockLen float64) bool {
			pieces := make([]Piece, len(lengths))
			for i, l := range lengths {
				pieces[i] = Piece{ID: idSuffix("P", i), Length: l}
			}
			stock := []Stock{{ID: "S", Length: stockLen, Available: len(pieces)}}

			res := FFD(pieces, stock, Options{Kerf: 1})
			if res.WastePercentage < 0 || res.WastePercentage > 100 {
				return false
			}
			return res.Statistics.Efficiency == 100-res.WastePercentage
		},
		gen.SliceOfN(5, gen.Float64Range(10, 400)),
		gen.Float64Range(400, 2500),
	))

	properties.TestingRun(t)
}
