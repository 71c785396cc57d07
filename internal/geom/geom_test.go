package geom

import "testing"

func TestRectOverlaps(t *testing.T) {
	base := NewRect(0, 0, 100, 100)
	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"inside", NewRect(10, 10, 10, 10), true},
		{"touching right edge", NewRect(100, 0, 50, 50), true},
		{"touching corner", NewRect(100, 100, 5, 5), true},
		{"just past right edge", NewRect(100.5, 0, 50, 50), false},
		{"above", NewRect(0, -60, 50, 50), false},
		{"empty", Rect{Left: 10, Top: 10, Right: 10, Bottom: 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps(%+v) = %v, want %v", tt.other, got, tt.want)
			}
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Errorf("reverse Overlaps(%+v) = %v, want %v", tt.other, got, tt.want)
			}
		})
	}
}

func TestRectExpandAndCenter(t *testing.T) {
	r := NewRect(0, 0, 800, 600).Expand(300)
	want := Rect{Left: -300, Top: -300, Right: 1100, Bottom: 900}
	if r != want {
		t.Errorf("Expand = %+v, want %+v", r, want)
	}
	if c := r.Center(); c.X != 400 || c.Y != 300 {
		t.Errorf("Center = %+v, want {400 300}", c)
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		v, step float64
		want    int
	}{
		{0, 500, 0},
		{499.9, 500, 0},
		{500, 500, 1},
		{-0.1, 500, -1},
		{-500, 500, -1},
		{-500.1, 500, -2},
	}
	for _, tt := range tests {
		if got := FloorDiv(tt.v, tt.step); got != tt.want {
			t.Errorf("FloorDiv(%v, %v) = %d, want %d", tt.v, tt.step, got, tt.want)
		}
	}
}

func TestRectContains(t *testing.T) {
	r := NewRect(0, 0, 100, 120)
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{50, 60}, true},
		{Point{0, 0}, true},
		{Point{100, 120}, true},
		{Point{100.5, 60}, false},
		{Point{-1, 60}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
