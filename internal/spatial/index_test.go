package spatial

import (
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/rescale/rescale-space/internal/geom"
)

func sortedKeys(keys []BinKey) []BinKey {
	out := append([]BinKey(nil), keys...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func TestInsertBinAssignment(t *testing.T) {
	tests := []struct {
		name string
		box  geom.Rect
		want []BinKey
	}{
		{"single bin", geom.NewRect(10, 10, 100, 120), []BinKey{{0, 0}}},
		{"straddles vertical boundary", geom.NewRect(480, 10, 100, 120), []BinKey{{0, 0}, {1, 0}}},
		{"right edge on boundary", geom.NewRect(400, 10, 100, 120), []BinKey{{0, 0}, {1, 0}}},
		{"negative coordinates", geom.NewRect(-50, -50, 20, 20), []BinKey{{-1, -1}}},
		{"four bins", geom.NewRect(450, 450, 100, 100), []BinKey{{0, 0}, {1, 0}, {0, 1}, {1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewIndex(500)
			ix.Insert("p", tt.box)
			got := sortedKeys(ix.BinsOf("p"))
			if !reflect.DeepEqual(got, sortedKeys(tt.want)) {
				t.Errorf("BinsOf = %v, want %v", got, tt.want)
			}
			for _, k := range tt.want {
				if ix.BinLen(k) != 1 {
					t.Errorf("bin %v holds %d paths, want 1", k, ix.BinLen(k))
				}
			}
		})
	}
}

func TestInsertTwiceDoesNotDuplicate(t *testing.T) {
	ix := NewIndex(500)
	box := geom.NewRect(480, 10, 100, 120)
	ix.Insert("p", box)
	ix.Insert("p", box)

	if ix.Len() != 1 {
		t.Errorf("Len = %d, want 1", ix.Len())
	}
	if got := len(ix.BinsOf("p")); got != 2 {
		t.Errorf("occupied bins = %d, want 2", got)
	}
	if ix.BinLen(BinKey{0, 0}) != 1 {
		t.Errorf("bin (0,0) holds %d paths, want 1", ix.BinLen(BinKey{0, 0}))
	}
}

func TestRemoveDeletesEmptyBins(t *testing.T) {
	ix := NewIndex(500)
	ix.Insert("a", geom.NewRect(10, 10, 100, 120))
	ix.Insert("b", geom.NewRect(480, 10, 100, 120))

	ix.Remove("b")
	if ix.BinCount() != 1 {
		t.Errorf("BinCount = %d, want 1 after removing the only occupant of (1,0)", ix.BinCount())
	}
	if ix.BinLen(BinKey{0, 0}) != 1 {
		t.Errorf("bin (0,0) = %d paths, want 1", ix.BinLen(BinKey{0, 0}))
	}

	ix.Remove("a")
	if ix.BinCount() != 0 || ix.Len() != 0 {
		t.Errorf("index not empty: bins=%d len=%d", ix.BinCount(), ix.Len())
	}

	// Unknown path is a no-op
	ix.Remove("missing")
}

func TestUpdateOverlappingBins(t *testing.T) {
	ix := NewIndex(500)
	ix.Insert("p", geom.NewRect(480, 10, 100, 120)) // (0,0),(1,0)
	ix.Insert("q", geom.NewRect(10, 10, 10, 10))    // (0,0)

	ix.Update("p", geom.NewRect(600, 10, 100, 120)) // (1,0) only

	if got := sortedKeys(ix.BinsOf("p")); !reflect.DeepEqual(got, []BinKey{{1, 0}}) {
		t.Errorf("BinsOf(p) = %v, want [(1,0)]", got)
	}
	if ix.BinLen(BinKey{0, 0}) != 1 {
		t.Errorf("bin (0,0) = %d, want only q", ix.BinLen(BinKey{0, 0}))
	}
	if _, ok := ix.Query(geom.NewRect(0, 0, 100, 100))["p"]; ok {
		t.Error("p still found at its old position")
	}
	if _, ok := ix.Query(geom.NewRect(650, 50, 10, 10))["p"]; !ok {
		t.Error("p not found at its new position")
	}

	// Moving the last occupant out deletes the vacated bin
	ix.Update("q", geom.NewRect(1200, 10, 10, 10))
	if ix.BinLen(BinKey{0, 0}) != 0 {
		t.Error("bin (0,0) should be gone")
	}
	if ix.BinCount() != 2 {
		t.Errorf("BinCount = %d, want 2", ix.BinCount())
	}
}

func TestUpdateUnknownInserts(t *testing.T) {
	ix := NewIndex(100)
	ix.Update("new", geom.NewRect(0, 0, 10, 10))
	if !ix.Contains("new") {
		t.Error("Update of unknown path did not insert it")
	}
}

func TestQueryDeduplicatesSpanningItems(t *testing.T) {
	ix := NewIndex(100)
	ix.Insert("wide", geom.NewRect(50, 50, 300, 300)) // 16 bins

	hits := 0
	ix.Visit(geom.NewRect(0, 0, 1000, 1000), func(string) { hits++ })
	if hits != 1 {
		t.Errorf("Visit reported the spanning item %d times, want 1", hits)
	}
}

func TestQueryEmptyRect(t *testing.T) {
	ix := NewIndex(100)
	ix.Insert("a", geom.NewRect(0, 0, 10, 10))
	if got := ix.Query(geom.Rect{Left: 0, Top: 0, Right: 0, Bottom: 50}); len(got) != 0 {
		t.Errorf("empty rect returned %v", got)
	}
}

func TestQueryMarginScenario(t *testing.T) {
	// Viewport (0,0)-(800,600) with a 300px margin at scale 1
	query := geom.NewRect(0, 0, 800, 600).Expand(300)

	ix := NewIndex(500)
	ix.Insert("in", geom.NewRect(1099, 0, 100, 120))
	ix.Insert("out", geom.NewRect(1101, 0, 100, 120))

	got := ix.Query(query)
	if _, ok := got["in"]; !ok {
		t.Error("item at x=1099 excluded")
	}
	if _, ok := got["out"]; ok {
		t.Error("item at x=1101 included")
	}
}

func linearScan(boxes map[string]geom.Rect, rect geom.Rect) map[string]struct{} {
	out := make(map[string]struct{})
	for path, box := range boxes {
		if box.Overlaps(rect) {
			out[path] = struct{}{}
		}
	}
	return out
}

func TestQueryMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 40; round++ {
		binSize := []float64{64, 250, 500, 1000}[round%4]
		ix := NewIndex(binSize)
		boxes := make(map[string]geom.Rect)

		n := 50 + rng.Intn(300)
		for i := 0; i < n; i++ {
			path := fmt.Sprintf("/item-%d", i)
			box := geom.NewRect(rng.Float64()*6000-3000, rng.Float64()*6000-3000, 100, 120)
			ix.Insert(path, box)
			boxes[path] = box
		}

		// Churn: move and remove a fraction so update paths are exercised
		for i := 0; i < n/4; i++ {
			path := fmt.Sprintf("/item-%d", rng.Intn(n))
			if rng.Intn(2) == 0 {
				box := geom.NewRect(rng.Float64()*6000-3000, rng.Float64()*6000-3000, 100, 120)
				ix.Update(path, box)
				boxes[path] = box
			} else {
				ix.Remove(path)
				delete(boxes, path)
			}
		}

		for q := 0; q < 20; q++ {
			scale := 0.05 + rng.Float64()*2
			view := geom.NewRect(rng.Float64()*4000-2000, rng.Float64()*4000-2000, 800/scale, 600/scale)
			rect := view.Expand(300 / scale)

			got := ix.Query(rect)
			want := linearScan(boxes, rect)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round %d query %d: index returned %d paths, linear scan %d", round, q, len(got), len(want))
			}
		}
	}
}

func TestClear(t *testing.T) {
	ix := NewIndex(500)
	ix.Insert("a", geom.NewRect(0, 0, 10, 10))
	ix.Clear()
	if ix.Len() != 0 || ix.BinCount() != 0 {
		t.Error("Clear left entries behind")
	}
	if ix.BinSize() != 500 {
		t.Errorf("BinSize = %v after Clear", ix.BinSize())
	}
}
