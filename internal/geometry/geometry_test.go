package geometry

import "testing"

func TestRotatable2D(t *testing.T) {
	cases := []struct {
		name                string
		canRotate, allowAll bool
		grain               GrainDirection
		want                bool
	}{
		{"all true no grain", true, true, GrainNone, true},
		{"piece forbids", false, true, GrainNone, false},
		{"scenario forbids", true, false, GrainNone, false},
		{"grain constrained", true, true, GrainAlongWidth, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Rotatable2D(c.canRotate, c.allowAll, c.grain); got != c.want {
				t.Fatalf("got %v want %v", got, c.want)
			}
		})
	}
}

func TestUsableWaste1D(t *testing.T) {
	if got := UsableWaste1D(188, 50); got != 188 {
		t.Fatalf("expected usable waste 188, got %v", got)
	}
	if got := UsableWaste1D(30, 50); got != 0 {
		t.Fatalf("expected scrap (0), got %v", got)
	}
	if got := UsableWaste1D(60, 0); got != 60 {
		t.Fatalf("expected default threshold applied, got %v", got)
	}
}

func TestUsableWaste2D(t *testing.T) {
	if got := UsableWaste2D(20000, 10000); got != 20000 {
		t.Fatalf("expected usable area, got %v", got)
	}
	if got := UsableWaste2D(5000, 10000); got != 0 {
		t.Fatalf("expected scrap, got %v", got)
	}
}

func TestSeparatedByKerf(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 100, H: 100}
	touching := Rect{X: 100, Y: 0, W: 50, H: 50}
	if !SeparatedByKerf(a, touching, 0) {
		t.Fatalf("expected touching rects with kerf=0 to be separated")
	}
	tooClose := Rect{X: 101, Y: 0, W: 50, H: 50}
	if SeparatedByKerf(a, tooClose, 3) {
		t.Fatalf("expected overlap-by-kerf to be detected")
	}
	farEnough := Rect{X: 103, Y: 0, W: 50, H: 50}
	if !SeparatedByKerf(a, farEnough, 3) {
		t.Fatalf("expected kerf-separated rects to pass")
	}
}

func TestRectContains(t *testing.T) {
	outer := Rect{X: 0, Y: 0, W: 100, H: 100}
	inner := Rect{X: 10, Y: 10, W: 20, H: 20}
	if !outer.Contains(inner) {
		t.Fatalf("expected outer to contain inner")
	}
	if outer.Contains(Rect{X: -1, Y: 0, W: 5, H: 5}) {
		t.Fatalf("expected rect outside bounds to not be contained")
	}
}
