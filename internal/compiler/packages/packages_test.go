package packages

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveOrdersDependenciesBeforeDependents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "math", "vec.vx"), "function Add(a, b)\n  return a + b\nend\n")
	entry := filepath.Join(root, "main.vx")
	writeFile(t, entry, "require \"math\"\nreturn Add(1, 2)\n")

	r := New(root)
	res, err := r.Resolve(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Order) != 1 || res.Order[0] != "math" {
		t.Fatalf("expected [math], got %v", res.Order)
	}
	if !res.Exports["math"]["Add"] {
		t.Fatalf("expected Add exported from math, got %v", res.Exports["math"])
	}
}

func TestResolveDetectsRequireCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "a.vx"), "require \"b\"\n")
	writeFile(t, filepath.Join(root, "b", "b.vx"), "require \"a\"\n")
	entry := filepath.Join(root, "main.vx")
	writeFile(t, entry, "require \"a\"\n")

	r := New(root)
	_, err := r.Resolve(entry)
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	if _, ok := err.(*CycleError); !ok {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestResolveExcludesTestFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "util", "util.vx"), "function Id(x)\n  return x\nend\n")
	writeFile(t, filepath.Join(root, "util", "util_test.vx"), "require \"nonexistent\"\n")
	entry := filepath.Join(root, "main.vx")
	writeFile(t, entry, "require \"util\"\n")

	r := New(root)
	res, err := r.Resolve(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Files["util"]) != 1 {
		t.Fatalf("expected the _test.vx file excluded, got %v", res.Files["util"])
	}
}
