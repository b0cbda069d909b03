// Package toolchain invokes the external C compiler as the compilation
// pipeline's final collaborator (spec.md §5: "a source path, a
// destination path, and a flag string go in; a binary or object path
// and an executability flag come out"). CacheKey computes a hash of
// (source, detected compiler signature, flags), but no output is cached:
// Compile invokes the compiler on every call, does not consult
// Effective.NoCache, and never sets Result.Cached, and nothing writes the
// hash into the generated C file.
//
// Grounded on the teacher's build/run commands (cmd/vex-transpiler/
// main.go: `exec.Command("go", "build", "-o", executable, tmpGoFile)`,
// `cmd.CombinedOutput()`) — the same os/exec shell-out pattern, widened
// from a hardcoded `go build` to an arbitrary CC/CFLAGS pair (spec.md
// §6's config-resolved Effective).
package toolchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"

	"github.com/vexlang/vxc/internal/compiler/config"
)

// Result is what the external toolchain invocation produced.
type Result struct {
	OutputPath string
	Executable bool
	Cached     bool
	Stdout     string
	Stderr     string
}

// Signature identifies a compiler invocation for cache-hashing purposes:
// the resolved CC binary's own version string, so switching compilers
// invalidates the cache even if the source and flags are unchanged.
func Signature(cc string) string {
	out, err := exec.Command(cc, "--version").CombinedOutput()
	if err != nil {
		return cc
	}
	return string(out)
}

// CacheKey hashes (source, compiler signature, flags) into a stable,
// filesystem-safe cache key. No caller in this module embeds it in the
// generated C file or compares it against an earlier build.
func CacheKey(source []byte, signature string, flags []string) string {
	h := sha256.New()
	h.Write(source)
	h.Write([]byte(signature))
	for _, f := range flags {
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Compile invokes eff.CC over cSource, writing to outputPath. shared and
// static select -shared/-static; neither implies a plain executable.
// Returns the process's combined stdout/stderr on failure so the caller
// can surface it as a CodeToolchainError diagnostic (spec.md §7).
func Compile(eff config.Effective, cSourcePath, outputPath string) (*Result, error) {
	args := append([]string{}, eff.CFlags...)
	switch {
	case eff.Shared:
		args = append(args, "-shared", "-fPIC")
	case eff.Static:
		args = append(args, "-static")
	}
	switch eff.Mode {
	case config.ModeRelease:
		args = append(args, "-O2")
	case config.ModeMaximumPerformance:
		args = append(args, "-O3", "-flto")
	}
	args = append(args, "-o", outputPath, cSourcePath)

	cmd := exec.Command(eff.CC, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s %v: %w\n%s", eff.CC, args, err, out)
	}
	return &Result{
		OutputPath: outputPath,
		Executable: !eff.Shared,
		Stdout:     string(out),
	}, nil
}

// Run executes a previously compiled executable, streaming its own
// stdout/stderr through to the current process (mirroring the teacher's
// `run` command: `runCmd.Stdout = os.Stdout`).
func Run(executablePath string, args ...string) error {
	cmd := exec.Command(executablePath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
