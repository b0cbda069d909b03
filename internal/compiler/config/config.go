// Package config loads the well-known project configuration file
// (spec.md §6: "a well-known YAML config file carrying the C compiler,
// flags, and build-mode selections") and resolves the effective C
// toolchain invocation by layering config-file values under explicit
// CLI flags under `CC`/`CFLAGS` environment variables.
//
// Grounded on the teacher's TranspilerConfig
// (internal/transpiler/config.go, a plain struct of named knobs passed
// into NewTranspilerWithConfig) for the "one struct, explicit fields,
// no reflection-heavy magic" shape, generalized with a YAML-backed file
// loader since no pack repo's teacher example reads its own knobs from
// a file — the closest ecosystem precedent for that is
// gopkg.in/yaml.v3, which several other pack repos' go.mod files pull
// in for exactly this kind of settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the well-known config file name spec.md §6 names.
const FileName = "vxc.yaml"

// BuildMode selects the optimization/sanitizer profile (spec.md §6).
type BuildMode string

const (
	ModeDebug              BuildMode = "debug"
	ModeRelease            BuildMode = "release"
	ModeMaximumPerformance BuildMode = "maximum-performance"
)

// File is the on-disk shape of vxc.yaml.
type File struct {
	CC      string    `yaml:"cc"`
	CFlags  []string  `yaml:"cflags"`
	CFile   string    `yaml:"cfile"`
	Shared  bool      `yaml:"shared"`
	Static  bool      `yaml:"static"`
	Mode    BuildMode `yaml:"mode"`
	NoCache bool      `yaml:"no_cache"`
}

// Load reads FileName from dir, returning a zero File (not an error) if
// the file does not exist — the config file is optional; every field
// has a sensible default resolved by Resolve.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// Overrides carries the CLI flags that take precedence over the config
// file, per spec.md §6's `compile <file> [--cc=] [--cflags=] [--cfile=]
// [--shared|--static] [--release|--maximum-performance] [--no-cache]`.
type Overrides struct {
	CC       string
	CFlags   string // raw, space-separated; split by Resolve
	CFile    string
	Shared   bool
	Static   bool
	Release  bool
	MaxPerf  bool
	NoCache  bool
}

// Effective is the fully resolved toolchain configuration: file values,
// then CLI overrides, then CC/CFLAGS environment variables — in that
// increasing order of precedence (spec.md §6).
type Effective struct {
	CC      string
	CFlags  []string
	CFile   string
	Shared  bool
	Static  bool
	Mode    BuildMode
	NoCache bool
}

// Resolve layers File, Overrides, and the process environment into one
// Effective configuration.
func Resolve(f *File, o Overrides) Effective {
	eff := Effective{
		CC:      defaultString(f.CC, "cc"),
		CFlags:  f.CFlags,
		CFile:   defaultString(f.CFile, ""),
		Shared:  f.Shared,
		Static:  f.Static,
		Mode:    defaultMode(f.Mode),
		NoCache: f.NoCache,
	}
	if o.CC != "" {
		eff.CC = o.CC
	}
	if o.CFlags != "" {
		eff.CFlags = splitFlags(o.CFlags)
	}
	if o.CFile != "" {
		eff.CFile = o.CFile
	}
	if o.Shared {
		eff.Shared = true
	}
	if o.Static {
		eff.Static = true
	}
	if o.Release {
		eff.Mode = ModeRelease
	}
	if o.MaxPerf {
		eff.Mode = ModeMaximumPerformance
	}
	if o.NoCache {
		eff.NoCache = true
	}
	if cc := os.Getenv("CC"); cc != "" {
		eff.CC = cc
	}
	if cflags := os.Getenv("CFLAGS"); cflags != "" {
		eff.CFlags = splitFlags(cflags)
	}
	return eff
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultMode(m BuildMode) BuildMode {
	if m == "" {
		return ModeDebug
	}
	return m
}

func splitFlags(s string) []string {
	return strings.Fields(s)
}
