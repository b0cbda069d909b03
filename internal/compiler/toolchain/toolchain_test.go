package toolchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vexlang/vxc/internal/compiler/config"
)

func TestCacheKeyStableForIdenticalInputs(t *testing.T) {
	a := CacheKey([]byte("int main(){}"), "gcc 13.2", []string{"-O2"})
	b := CacheKey([]byte("int main(){}"), "gcc 13.2", []string{"-O2"})
	if a != b {
		t.Fatalf("expected identical cache keys, got %s vs %s", a, b)
	}
}

func TestCacheKeyChangesWithFlags(t *testing.T) {
	a := CacheKey([]byte("int main(){}"), "gcc 13.2", []string{"-O2"})
	b := CacheKey([]byte("int main(){}"), "gcc 13.2", []string{"-O3"})
	if a == b {
		t.Fatalf("expected different cache keys for different flags")
	}
}

func TestCompileInvokesConfiguredCompiler(t *testing.T) {
	if _, err := os.Stat("/usr/bin/cc"); err != nil {
		t.Skip("no cc on PATH in this environment")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "out.c")
	if err := os.WriteFile(src, []byte("int main(void){return 0;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")
	eff := config.Resolve(&config.File{}, config.Overrides{})
	eff.CC = "cc"
	res, err := Compile(eff, src, out)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !res.Executable {
		t.Fatalf("expected executable result")
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output binary at %s: %v", out, err)
	}
}
