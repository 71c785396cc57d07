package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestViewStore(t *testing.T) *ViewStore {
	t.Helper()
	vs, err := NewViewStore(filepath.Join(t.TempDir(), "nested", "views.csv"))
	if err != nil {
		t.Fatalf("NewViewStore() error = %v", err)
	}
	return vs
}

func TestViewStoreMissingFile(t *testing.T) {
	vs := newTestViewStore(t)

	views, err := vs.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(views) != 0 {
		t.Errorf("Load() = %v, want empty", views)
	}
	if _, ok, err := vs.Get("/data"); ok || err != nil {
		t.Errorf("Get() = %v, %v, want not found", ok, err)
	}
}

func TestViewStoreUpdate(t *testing.T) {
	vs := newTestViewStore(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	steps := []ViewState{
		{Dir: "/data", Scale: 2, TranslateX: -40, TranslateY: 12.5, Timestamp: t0},
		{Dir: "/home", Scale: 0.5, Timestamp: t0.Add(time.Minute)},
		{Dir: "/data", Scale: 0.25, TranslateX: 10, TranslateY: 0, Timestamp: t0.Add(2 * time.Minute)},
	}
	for _, v := range steps {
		if err := vs.Update(v); err != nil {
			t.Fatalf("Update(%s) error = %v", v.Dir, err)
		}
	}

	views, err := vs.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(Load()) = %d, want 2", len(views))
	}
	if views[0].Dir != "/data" {
		t.Errorf("newest view = %s, want /data", views[0].Dir)
	}

	got, ok, err := vs.Get("/data")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	want := steps[2]
	if got.Scale != want.Scale || got.TranslateX != want.TranslateX || got.TranslateY != want.TranslateY || !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestViewStoreKeepsNewest(t *testing.T) {
	vs := newTestViewStore(t)
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	views := make([]ViewState, maxRememberedViews+5)
	for i := range views {
		views[i] = ViewState{Dir: filepath.Join("/d", string(rune('a'+i%26)), time.Duration(i).String()), Scale: 1, Timestamp: t0.Add(time.Duration(i) * time.Second)}
	}
	if err := vs.Save(views); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := vs.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != maxRememberedViews {
		t.Fatalf("len(Load()) = %d, want %d", len(loaded), maxRememberedViews)
	}
	if loaded[0].Dir != views[len(views)-1].Dir {
		t.Errorf("first view = %s, want the newest %s", loaded[0].Dir, views[len(views)-1].Dir)
	}
}

func TestViewStoreSkipsBadRecords(t *testing.T) {
	vs := newTestViewStore(t)
	content := "Dir,Scale,TranslateX,TranslateY,Timestamp\n" +
		"/ok,1.5,-3,4,2026-03-01T00:00:00Z\n" +
		"/short,1\n" +
		"/nan,abc,0,0,2026-03-01T00:00:00Z\n" +
		"/zero,0,0,0,2026-03-01T00:00:00Z\n"
	if err := os.WriteFile(vs.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	views, err := vs.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(views) != 1 || views[0].Dir != "/ok" || views[0].Scale != 1.5 {
		t.Errorf("Load() = %+v, want only /ok", views)
	}
}
