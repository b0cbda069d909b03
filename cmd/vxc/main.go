// Command vxc is the compiler's entry point: `vxc compile <file>` parses,
// analyzes, emits C, and shells out to the configured C toolchain,
// per spec.md §6's single `compile` subcommand and exit-code contract
// (0 success, 1 a collected diagnostic, 2 a toolchain failure).
//
// Grounded on the teacher's cmd/vex-transpiler/main.go: the same
// flag.NewFlagSet-per-subcommand dispatch and verbose-logging-to-stderr
// style, narrowed from four subcommands (transpile/run/build/test) to
// the one spec.md §6 names, since this repo's "run"/"build" distinction
// collapses into -shared/-static plus the toolchain's Executable flag.
// Multi-file compilation follows the teacher's own strategy in
// cmd/vex-transpiler/main.go's transpileCommand: packages.Resolve orders
// the dependency files, and their source is concatenated (dependencies
// before the entry file) into one combined source handed to a single
// parse/analyze/emit pass, rather than re-running the pipeline per file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vexlang/vxc/internal/compiler/analysis"
	"github.com/vexlang/vxc/internal/compiler/config"
	"github.com/vexlang/vxc/internal/compiler/context"
	"github.com/vexlang/vxc/internal/compiler/diagnostics"
	"github.com/vexlang/vxc/internal/compiler/emitc"
	"github.com/vexlang/vxc/internal/compiler/packages"
	"github.com/vexlang/vxc/internal/compiler/parser"
	"github.com/vexlang/vxc/internal/compiler/toolchain"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compile":
		os.Exit(compileCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "vxc - a statically-typed systems language compiler")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  vxc compile <file> [--cc=] [--cflags=] [--cfile=]")
	fmt.Fprintln(os.Stderr, "              [--shared|--static] [--release|--maximum-performance]")
	fmt.Fprintln(os.Stderr, "              [--no-cache] [--verbose]")
}

func compileCommand(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	var (
		cc      = fs.String("cc", "", "C compiler override")
		cflags  = fs.String("cflags", "", "extra C compiler flags, space-separated")
		cfile   = fs.String("cfile", "", "write the generated C source to this path instead of a temp file")
		shared  = fs.Bool("shared", false, "build a shared library")
		static  = fs.Bool("static", false, "build statically linked")
		release = fs.Bool("release", false, "build in release mode (-O2)")
		maxPerf = fs.Bool("maximum-performance", false, "build in maximum-performance mode (-O3 -flto)")
		noCache = fs.Bool("no-cache", false, "skip the toolchain output cache")
		verbose = fs.Bool("verbose", false, "log each pipeline stage to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "error: compile requires a source file")
		printUsage()
		return 1
	}
	entryFile := fs.Arg(0)
	// Flags may also follow the file, as the usage line shows them.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 1
	}
	diagnostics.VerboseEnabled = *verbose

	moduleRoot, err := filepath.Abs(filepath.Dir(entryFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	confFile, err := config.Load(moduleRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading %s: %v\n", config.FileName, err)
		return 1
	}
	eff := config.Resolve(confFile, config.Overrides{
		CC: *cc, CFlags: *cflags, CFile: *cfile,
		Shared: *shared, Static: *static,
		Release: *release, MaxPerf: *maxPerf, NoCache: *noCache,
	})

	if *verbose {
		fmt.Fprintf(os.Stderr, "resolving packages from %s\n", entryFile)
	}
	source, err := combinedSource(moduleRoot, entryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *verbose {
		fmt.Fprintln(os.Stderr, "parsing")
	}
	p := parser.New(entryFile)
	tree, err := p.Parse([]byte(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		return 1
	}

	if *verbose {
		fmt.Fprintln(os.Stderr, "analyzing")
	}
	ctx := context.New()
	a := analysis.New(ctx, tree, p)
	if err := a.Run(); err != nil {
		if ctx.Diagnostics.HasErrors() {
			fmt.Fprintln(os.Stderr, ctx.Diagnostics.RenderAll())
		} else {
			fmt.Fprintf(os.Stderr, "analysis error: %v\n", err)
		}
		return 1
	}
	if ctx.Diagnostics.HasErrors() {
		fmt.Fprintln(os.Stderr, ctx.Diagnostics.RenderAll())
		return ctx.Diagnostics.HighestSeverityExitCode()
	}

	if *verbose {
		fmt.Fprintln(os.Stderr, "emitting C")
	}
	emitted := emitc.New(ctx, tree).Program()

	cSourcePath := eff.CFile
	if cSourcePath == "" {
		tmp, err := os.CreateTemp("", "vxc-*.c")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		cSourcePath = tmp.Name()
		tmp.Close()
	}
	if err := os.WriteFile(cSourcePath, []byte(emitted), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", cSourcePath, err)
		return 1
	}

	outputPath := outputPathFor(entryFile, eff)
	if *verbose {
		fmt.Fprintf(os.Stderr, "invoking %s on %s -> %s\n", eff.CC, cSourcePath, outputPath)
	}
	if _, err := toolchain.Compile(eff, cSourcePath, outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "toolchain error: %v\n", err)
		return 2
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "wrote %s\n", outputPath)
	}
	return 0
}

// combinedSource resolves the entry file's local package dependencies
// and concatenates each dependency's files (in topological order) ahead
// of the entry file's own content, mirroring the teacher's
// Resolver.BuildProgramFromEntry combined-source strategy.
func combinedSource(moduleRoot, entryFile string) (string, error) {
	resolver := packages.New(moduleRoot)
	res, err := resolver.Resolve(entryFile)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, pkgPath := range res.Order {
		for _, f := range res.Files[pkgPath] {
			data, err := os.ReadFile(f)
			if err != nil {
				return "", fmt.Errorf("reading %s: %w", f, err)
			}
			b.Write(data)
			if len(data) == 0 || data[len(data)-1] != '\n' {
				b.WriteByte('\n')
			}
		}
	}
	entryData, err := os.ReadFile(entryFile)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", entryFile, err)
	}
	b.Write(entryData)
	return b.String(), nil
}

func outputPathFor(entryFile string, eff config.Effective) string {
	base := entryFile[:len(entryFile)-len(filepath.Ext(entryFile))]
	if eff.Shared {
		return base + ".so"
	}
	return base
}
