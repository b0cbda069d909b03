package diagnostics

import (
	"fmt"
	"log"

	"github.com/vexlang/vxc/internal/compiler/token"
)

// Spanner is implemented by anything with a source span — ast.Node and
// Diagnostic both qualify — so Tracef can prefix a log line with the
// offending position without importing the ast package here.
type Spanner interface {
	SourceSpan() token.Span
}

// VerboseEnabled gates Tracef; the CLI's --verbose flag sets it.
var VerboseEnabled = false

// Tracef logs a position-prefixed diagnostic trace line when verbose
// logging is enabled. Grounded on grailbio-gql's gql/log.go
// Debugf(astNode, format, args) pattern: every trace line is anchored to
// the AST node or span that produced it, rather than being free text.
func Tracef(s Spanner, format string, args ...any) {
	if !VerboseEnabled {
		return
	}
	log.Printf("%s: %s", s.SourceSpan(), fmt.Sprintf(format, args...))
}

// SourceSpan implements Spanner for Diagnostic itself, so a diagnostic can
// be traced before it is finalized and reported.
func (d Diagnostic) SourceSpan() token.Span { return d.Span }
