package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	f, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.CC != "" {
		t.Fatalf("expected zero-value File, got %+v", f)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := "cc: clang\ncflags:\n  - -O2\n  - -Wall\nmode: release\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.CC != "clang" || len(f.CFlags) != 2 || f.Mode != ModeRelease {
		t.Fatalf("unexpected parse result: %+v", f)
	}
}

func TestResolvePrecedenceFileThenOverrideThenEnv(t *testing.T) {
	f := &File{CC: "gcc"}
	eff := Resolve(f, Overrides{CC: "clang"})
	if eff.CC != "clang" {
		t.Fatalf("expected override to win over file, got %s", eff.CC)
	}

	t.Setenv("CC", "tcc")
	eff = Resolve(f, Overrides{CC: "clang"})
	if eff.CC != "tcc" {
		t.Fatalf("expected CC env var to win over override, got %s", eff.CC)
	}
}

func TestResolveDefaultsToDebugMode(t *testing.T) {
	eff := Resolve(&File{}, Overrides{})
	if eff.Mode != ModeDebug {
		t.Fatalf("expected debug default, got %s", eff.Mode)
	}
}

func TestResolveReleaseAndMaxPerfFlags(t *testing.T) {
	eff := Resolve(&File{}, Overrides{MaxPerf: true})
	if eff.Mode != ModeMaximumPerformance {
		t.Fatalf("expected maximum-performance mode, got %s", eff.Mode)
	}
}
