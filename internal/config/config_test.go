package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Scale <= 0 {
		t.Error("scale should be positive")
	}
	if len(cfg.Bobs) != 2 {
		t.Errorf("expected 2 default bobs, got %d", len(cfg.Bobs))
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pendlab.yaml")
	doc := `
scale: 50
gravity: 1.62
bobs:
  - length_rod: 80
    mass: 2
    theta: 0.4
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Scale != 50 {
		t.Errorf("expected scale 50, got %f", cfg.Scale)
	}
	if cfg.Gravity != 1.62 {
		t.Errorf("expected gravity 1.62, got %f", cfg.Gravity)
	}
	if cfg.Listen != DefaultListen {
		t.Error("unset fields should keep defaults")
	}
	if len(cfg.Bobs) != 1 || cfg.Bobs[0].LengthRod != 80 {
		t.Errorf("bobs not loaded: %+v", cfg.Bobs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildChain(t *testing.T) {
	cfg := DefaultConfig()
	ch := cfg.BuildChain()
	if ch.Len() != 2 {
		t.Fatalf("expected 2 bobs, got %d", ch.Len())
	}
	snap := ch.Snapshot()
	if snap.Bobs[0].ID == snap.Bobs[1].ID {
		t.Error("bobs must get distinct identities")
	}
}
