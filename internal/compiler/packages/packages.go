// Package packages discovers and orders the source files of a
// multi-file compilation. A source file pulls in another local package
// with a top-level `require "path/to/pkg"` call; Resolve walks those
// edges from an entry file, builds a dependency graph, detects import
// cycles, and returns the transitive file set in a topological order
// safe to feed into the analyzer one file at a time (spec.md §9).
//
// Grounded on the teacher's packages.Resolver
// (internal/transpiler/packages/resolver.go): the same DFS with
// visited/temp marker maps and an explicit path stack for formatting a
// located cycle chain ("[PACKAGE-CYCLE]: a -> b -> a"), generalized to
// use github.com/bmatcuk/doublestar/v4 glob matching for file discovery
// instead of the teacher's bespoke os.ReadDir + suffix filtering, so a
// package directory can carry include/exclude patterns (e.g. skipping
// "**/*_test.vx").
package packages

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// requirePattern matches a top-level `require "path"` or `require("path")`
// call, the only way one Vex source file references another.
var requirePattern = regexp.MustCompile(`require\s*\(?\s*"([^"]+)"\s*\)?`)

const (
	sourceGlob = "*.vx"
	// defaultExcludePattern is the default test-file exclusion; a Resolver may
	// override it via WithExclude.
	defaultExcludePattern = "*_test.vx"
)

// Resolver discovers local packages reachable from an entry file and
// orders them for sequential analysis.
type Resolver struct {
	moduleRoot string
	exclude    string
	edgeLoc    map[string]map[string]string // fromPkg -> toPkg -> file that declared the require
}

// New creates a Resolver rooted at moduleRoot — the directory import
// paths in `require` calls are resolved relative to.
func New(moduleRoot string) *Resolver {
	return &Resolver{
		moduleRoot: moduleRoot,
		exclude:    defaultExcludePattern,
		edgeLoc:    make(map[string]map[string]string),
	}
}

// WithExclude overrides the default `*_test.vx` exclusion glob.
func (r *Resolver) WithExclude(pattern string) *Resolver {
	r.exclude = pattern
	return r
}

// Result is the resolved multi-file compilation unit.
type Result struct {
	// Order lists package import paths (relative to moduleRoot) in the
	// order they must be analyzed so every dependency precedes its
	// dependents.
	Order []string
	// Files maps each package import path to its source file paths, in
	// a stable (glob) order.
	Files map[string][]string
	// Exports maps each package import path to the set of names its
	// files declare with a leading-uppercase identifier (an exported
	// top-level FuncDef/VarDecl name), mirroring the teacher's
	// capitalized-export convention.
	Exports map[string]map[string]bool
}

const entryNode = "@entry"

// Resolve builds the dependency graph reachable from entryFile and
// returns it in topological order, or a *CycleError if a require cycle
// is found.
func (r *Resolver) Resolve(entryFile string) (*Result, error) {
	graph := make(map[string][]string)
	visited := make(map[string]bool)
	temp := make(map[string]bool)
	var stack []string
	var order []string
	files := make(map[string][]string)
	exports := make(map[string]map[string]bool)

	entrySrc, err := os.ReadFile(entryFile)
	if err != nil {
		return nil, fmt.Errorf("reading entry file %s: %w", entryFile, err)
	}
	graph[entryNode] = r.localRequires(entryNode, entryFile, string(entrySrc))

	var visit func(node string) error
	visit = func(node string) error {
		if visited[node] {
			return nil
		}
		if temp[node] {
			return &CycleError{Chain: buildCycle(stack, node), Locations: r.edgeLoc}
		}
		temp[node] = true
		stack = append(stack, node)

		if _, ok := graph[node]; !ok && node != entryNode {
			pkgFiles, err := r.findSourceFiles(node)
			if err != nil {
				return err
			}
			files[node] = pkgFiles
			var deps []string
			pkgExports := make(map[string]bool)
			for _, f := range pkgFiles {
				data, err := os.ReadFile(f)
				if err != nil {
					return fmt.Errorf("reading %s: %w", f, err)
				}
				deps = append(deps, r.localRequires(node, f, string(data))...)
				collectExports(string(data), pkgExports)
			}
			graph[node] = deps
			if len(pkgExports) > 0 {
				exports[node] = pkgExports
			}
		}

		for _, dep := range graph[node] {
			if err := visit(dep); err != nil {
				return err
			}
		}

		temp[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		if node != entryNode {
			order = append(order, node)
		}
		return nil
	}

	if err := visit(entryNode); err != nil {
		return nil, err
	}

	files[entryNode] = []string{entryFile}
	return &Result{Order: order, Files: files, Exports: exports}, nil
}

// localRequires extracts the local import paths a source file's text
// requires, recording each edge's declaring file for cycle reporting.
func (r *Resolver) localRequires(node, file, src string) []string {
	var deps []string
	for _, m := range requirePattern.FindAllStringSubmatch(src, -1) {
		path := m[1]
		if !r.isLocalPackage(path) {
			continue
		}
		deps = append(deps, path)
		if _, ok := r.edgeLoc[node]; !ok {
			r.edgeLoc[node] = make(map[string]string)
		}
		r.edgeLoc[node][path] = file
	}
	return deps
}

func (r *Resolver) isLocalPackage(importPath string) bool {
	files, err := r.findSourceFiles(importPath)
	return err == nil && len(files) > 0
}

// findSourceFiles globs the .vx files directly under
// moduleRoot/importPath, excluding r.exclude.
func (r *Resolver) findSourceFiles(importPath string) ([]string, error) {
	dir := filepath.Join(r.moduleRoot, filepath.FromSlash(importPath))
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, sourceGlob))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		excluded, err := doublestar.Match(r.exclude, filepath.Base(m))
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// topLevelDeclPattern matches a top-level `local Name = ...` or
// `function Name(...)` declaration whose identifier begins with an
// uppercase letter — this language's export convention.
var topLevelDeclPattern = regexp.MustCompile(`(?m)^\s*(?:local\s+|function\s+)([A-Z][A-Za-z0-9_]*)\b`)

func collectExports(src string, into map[string]bool) {
	for _, m := range topLevelDeclPattern.FindAllStringSubmatch(src, -1) {
		into[m[1]] = true
	}
}

// CycleError reports a require cycle with the file that declared each
// edge, mirroring the teacher's "[PACKAGE-CYCLE]" formatted message.
type CycleError struct {
	Chain     []string
	Locations map[string]map[string]string
}

func (e *CycleError) Error() string {
	var b strings.Builder
	b.WriteString("[PACKAGE-CYCLE]: ")
	for i, node := range e.Chain {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(node)
	}
	for i := 0; i < len(e.Chain)-1; i++ {
		from, to := e.Chain[i], e.Chain[i+1]
		if loc, ok := e.Locations[from]; ok {
			if file, ok := loc[to]; ok {
				fmt.Fprintf(&b, " (%s requires %s at %s)", from, to, file)
			}
		}
	}
	return b.String()
}

func buildCycle(stack []string, closingNode string) []string {
	for i, n := range stack {
		if n == closingNode {
			cycle := append([]string{}, stack[i:]...)
			return append(cycle, closingNode)
		}
	}
	return append(append([]string{}, stack...), closingNode)
}
