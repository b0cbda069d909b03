// Package context defines the single process-wide Context object
// threaded explicitly to every analyzer visitor and emitter routine.
//
// spec.md §9 ("Global mutable state") and §5 ("the type registry, the
// parser state, and the emitter's declaration/definition lists are
// process-wide per compilation; all are owned by a single Context
// object") both call for exactly this: rather than the teacher's
// module-scope globals, the shared mutable state here is a field on
// *Context, passed explicitly. The parser is not among these fields: its
// grammar registry lives on the *parser.Parser that analysis.Analyzer
// holds, outside Context. There is no locking — concurrent
// access to a Context is a program error, matching the single-threaded
// cooperative model of §5.
package context

import (
	"fmt"

	"github.com/vexlang/vxc/internal/compiler/diagnostics"
	"github.com/vexlang/vxc/internal/compiler/scope"
	"github.com/vexlang/vxc/internal/compiler/types"
)

// Context owns every piece of shared compilation state for one
// compilation unit.
type Context struct {
	Types       *types.Registry
	Root        *scope.Scope
	Diagnostics *diagnostics.Reporter

	// Emitter state: declarations and definitions sections, built up as
	// the analyzer resolves types and lowers statements. Kept here (not
	// inside the emitter) because preprocessor hooks may need to append a
	// declaration before the emitter itself ever runs.
	Declarations []string
	Definitions  []string

	// pulledHelpers tracks which on-demand runtime helpers
	// (nelua_assert_bounds_, nlany, ...) have already had their prelude
	// appended to Declarations, so RequireHelper is idempotent per
	// spec.md §4.6.
	pulledHelpers map[string]bool

	// afterAnalyze is the FIFO hook queue spec.md §4.4/§9 Open Question
	// (b) describes; capped to guarantee termination even if a hook
	// registers another hook.
	afterAnalyze []func(*Context) error

	// nextCounter backs GenSym-style temporary name allocation for the
	// emitter's assignment/and-or lowering.
	nextCounter int
}

// New builds a fresh Context with an empty root scope and type registry.
func New() *Context {
	return &Context{
		Types:         types.NewRegistry(),
		Root:          scope.New(scope.KindRoot),
		Diagnostics:   diagnostics.NewReporter(),
		pulledHelpers: make(map[string]bool),
	}
}

// RequireHelper appends prelude to Declarations exactly once per distinct
// name, implementing spec.md §4.6's "ensure a named runtime symbol is
// pulled in on demand."
func (c *Context) RequireHelper(name, prelude string) {
	if c.pulledHelpers[name] {
		return
	}
	c.pulledHelpers[name] = true
	c.Declarations = append(c.Declarations, prelude)
}

// AfterAnalyze registers a hook to run once, in registration order, after
// the root traversal terminates (spec.md §4.4, §5).
func (c *Context) AfterAnalyze(fn func(*Context) error) {
	c.afterAnalyze = append(c.afterAnalyze, fn)
}

// maxAfterAnalyzeDequeues resolves spec.md §9 Open Question (b): nested
// after_analyze calls are permitted, but the FIFO queue is capped so that
// a pathological chain of self-registering hooks still terminates.
const maxAfterAnalyzeDequeues = 10000

// ErrTooManyAfterAnalyzeHooks is raised once the cap is exceeded.
type ErrTooManyAfterAnalyzeHooks struct{}

func (ErrTooManyAfterAnalyzeHooks) Error() string {
	return "after_analyze hook queue exceeded 10000 dequeues without draining"
}

// RunAfterAnalyzeHooks drains the FIFO queue, allowing hooks to register
// further hooks (which are appended and also drained), up to the cap.
func (c *Context) RunAfterAnalyzeHooks() error {
	dequeues := 0
	for len(c.afterAnalyze) > 0 {
		if dequeues >= maxAfterAnalyzeDequeues {
			return ErrTooManyAfterAnalyzeHooks{}
		}
		fn := c.afterAnalyze[0]
		c.afterAnalyze = c.afterAnalyze[1:]
		dequeues++
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// GenSym allocates a process-unique temporary name for the emitter's
// assignment/and-or lowering (spec.md §4.6).
func (c *Context) GenSym(prefix string) string {
	c.nextCounter++
	return fmt.Sprintf("%s%d", prefix, c.nextCounter)
}
