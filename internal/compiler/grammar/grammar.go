// Package grammar builds the PEG grammar the parser runs against and makes
// it mutable at runtime: `add_keyword`, `remove_keyword`, and `set_peg`
// (spec.md §4.1) must take effect on the very next parse of the same
// source, not on some recompiled-parser restart.
//
// goparsec (github.com/prataprc/goparsec), the combinator library the rest
// of the pack reaches for when it needs a PEG (its-hmny-nand2tetris builds
// three parsers on it), has no native notion of a redefinable named rule —
// its composite combinators (And, OrdChoice, Kleene...) close over whatever
// pc.Parser values they were built with. Registry adds one layer of
// indirection on top: every rule is stored under a name in a map, and
// composite rules are built referencing Registry.Rule(name) rather than the
// other rule's value directly, so swapping the map entry changes what the
// next parse sees without rebuilding anything upstream.
package grammar

import (
	pc "github.com/prataprc/goparsec"
)

// Registry is a mutable set of named PEG rules plus the current keyword
// set. It is safe to Clone before a speculative parse (e.g. a preprocessor
// stage that wants to try `set_peg` without mutating the enclosing file's
// grammar permanently).
type Registry struct {
	rules    map[string]pc.Parser
	keywords map[string]struct{}
}

// New builds a Registry seeded with the base Vex-descended grammar's
// keyword set. Callers install the starting rule set with SetPEG for each
// named production before the first Parse.
func New() *Registry {
	r := &Registry{
		rules:    make(map[string]pc.Parser),
		keywords: make(map[string]struct{}),
	}
	for _, kw := range defaultKeywords {
		r.keywords[kw] = struct{}{}
	}
	return r
}

var defaultKeywords = []string{
	"fn", "return", "if", "else", "elseif", "while", "repeat", "until",
	"for", "in", "do", "end", "local", "global", "record", "union", "enum",
	"and", "or", "not", "nil", "true", "false", "break", "goto", "switch",
	"case", "default", "defer", "type",
}

// Rule returns an indirection closure for the named rule: every time it is
// invoked it looks up the current definition in the map, so a rule that
// embeds Rule("expr") as a child automatically picks up a later SetPEG on
// "expr" without being rebuilt itself.
func (r *Registry) Rule(name string) pc.Parser {
	return func(s pc.Scanner) (pc.ParsecNode, pc.Scanner) {
		p, ok := r.rules[name]
		if !ok {
			return nil, s
		}
		return p(s)
	}
}

// SetPEG installs or replaces the named rule, implementing the `set_peg`
// preprocessor primitive. Takes effect immediately: any other rule that
// references this name via Rule(name) observes the new definition on its
// very next invocation.
func (r *Registry) SetPEG(name string, rule pc.Parser) {
	r.rules[name] = rule
}

// HasRule reports whether name has a registered definition.
func (r *Registry) HasRule(name string) bool {
	_, ok := r.rules[name]
	return ok
}

// AddKeyword adds word to the keyword set, implementing `add_keyword`.
// Once added, the identifier rule (see Identifier) stops matching it.
func (r *Registry) AddKeyword(word string) {
	r.keywords[word] = struct{}{}
}

// RemoveKeyword removes word from the keyword set, implementing
// `remove_keyword`. A removed keyword becomes an ordinary identifier on the
// next parse.
func (r *Registry) RemoveKeyword(word string) {
	delete(r.keywords, word)
}

// IsKeyword reports whether word is currently reserved.
func (r *Registry) IsKeyword(word string) bool {
	_, ok := r.keywords[word]
	return ok
}

// Clone returns an independent copy of the registry: mutating the clone's
// rules or keywords never affects r. Used by the preprocessor to run a
// speculative sub-parse (e.g. evaluating `##[[ ... ]]` blocks that might
// call set_peg) without committing the change unless the enclosing stage
// decides to keep it.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		rules:    make(map[string]pc.Parser, len(r.rules)),
		keywords: make(map[string]struct{}, len(r.keywords)),
	}
	for k, v := range r.rules {
		out.rules[k] = v
	}
	for k := range r.keywords {
		out.keywords[k] = struct{}{}
	}
	return out
}

// Identifier builds a pc.Parser that matches a bare identifier token and
// rejects anything currently listed in the keyword set. It reads the
// keyword set through the Registry at match time (not at construction
// time), so AddKeyword/RemoveKeyword affect parses already in flight using
// a rule built from this closure.
func (r *Registry) Identifier() pc.Parser {
	token := pc.Token(`[A-Za-z_][A-Za-z0-9_]*`, "IDENT")
	return func(s pc.Scanner) (pc.ParsecNode, pc.Scanner) {
		node, news := token(s)
		if node == nil {
			return nil, s
		}
		term, ok := node.(*pc.Terminal)
		if ok && r.IsKeyword(term.Value) {
			return nil, s
		}
		return node, news
	}
}

// Keyword builds a pc.Parser matching word only while it is registered as
// a keyword — used for the fixed set of statement-introducing tokens whose
// grammar rule must stop matching once the word is removed via
// RemoveKeyword.
func (r *Registry) Keyword(word string) pc.Parser {
	atom := pc.Atom(word, "KEYWORD_"+word)
	return func(s pc.Scanner) (pc.ParsecNode, pc.Scanner) {
		if !r.IsKeyword(word) {
			return nil, s
		}
		return atom(s)
	}
}
