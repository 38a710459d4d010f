package snapshot

import (
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, true)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("load before save: ok=%v err=%v", ok, err)
	}

	if err := store.Save(12345, 40); err != nil {
		t.Fatalf("save: %v", err)
	}

	cp, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("checkpoint not found after save")
	}
	if cp.BlockNumber != 12345 || cp.CompletedPairs != 40 {
		t.Fatalf("checkpoint = %+v", cp)
	}
	if cp.UpdatedAt == "" {
		t.Fatalf("updated_at not stamped")
	}
}

func TestCheckpointDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, false)

	if err := store.Save(1, 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("disabled store loaded: ok=%v err=%v", ok, err)
	}
}
