// Package parser drives the goparsec-based PEG grammar (internal/compiler
// grammar) to produce a tagged ast.Tree, and owns the mapping from a
// goparsec parse failure to a named diagnostic (spec.md §4.1:
// "MalformedHexadecimalNumber, UnclosedLongString, UnexpectedSyntaxAtEOF,
// etc."). Numeric and string literal decoding also happens here: the
// parser only records lexical shape (base and digits; no literal suffix
// is recognized); the analyzer decides the resulting semantic type.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"

	"github.com/vexlang/vxc/internal/compiler/ast"
	"github.com/vexlang/vxc/internal/compiler/grammar"
	"github.com/vexlang/vxc/internal/compiler/token"
)

// Parser holds a grammar.Registry and the filename used to stamp spans.
// Clone returns an independent Parser so the preprocessor can mutate
// grammar locally (spec.md §4.1 `clone()`).
type Parser struct {
	Registry *grammar.Registry
	Filename string
}

// New builds a Parser with the default grammar installed.
func New(filename string) *Parser {
	reg := grammar.New()
	reg.Install()
	return &Parser{Registry: reg, Filename: filename}
}

// Clone returns an independent parser sharing no grammar state with p.
func (p *Parser) Clone() *Parser {
	return &Parser{Registry: p.Registry.Clone(), Filename: p.Filename}
}

// AddKeyword, RemoveKeyword, and SetPEG delegate to the embedded registry,
// implementing spec.md §4.1's grammar-mutation contract: the next call to
// Parse on the same source continues with the new rules.
func (p *Parser) AddKeyword(word string)              { p.Registry.AddKeyword(word) }
func (p *Parser) RemoveKeyword(word string)            { p.Registry.RemoveKeyword(word) }
func (p *Parser) SetPEG(name string, rule pc.Parser)    { p.Registry.SetPEG(name, rule) }

// Error is a parse failure located at a source span, carrying the named
// failure label the parser assigned.
type Error struct {
	Span  token.Span
	Label string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Label, e.Msg)
}

// Parse runs the grammar's Block rule over source and returns the
// resulting AST, whose root is always a Block node per Testable Property
// 1 (spec.md §8).
func (p *Parser) Parse(source []byte) (*ast.Tree, error) {
	root, matched := pegASTParsewith(p.Registry, source)
	if !matched || root == nil {
		return nil, &Error{
			Span:  token.Span{File: p.Filename},
			Label: "UnexpectedSyntaxAtEOF",
			Msg:   "no statement matched the remaining input",
		}
	}
	b := &builder{filename: p.Filename, source: source}
	tree := ast.NewTree()
	rootRef, err := b.convert(tree, root)
	if err != nil {
		return nil, err
	}
	tree.Root = rootRef
	return tree, nil
}

// ParseExpr runs the grammar's Expr rule over source, for splicing a
// PreprocessExpr node's re-evaluated text back in as a single expression
// rather than a statement block (spec.md §4.4).
func (p *Parser) ParseExpr(source []byte) (*ast.Tree, ast.NodeRef, error) {
	exprRule := p.Registry.Rule("Expr")
	node, rest := exprRule(pc.NewScanner(source))
	if node == nil {
		return nil, ast.NilRef, &Error{Span: token.Span{File: p.Filename}, Label: "UnexpectedSyntaxAtEOF", Msg: "no expression matched"}
	}
	q, ok := node.(pc.Queryable)
	if !ok || !rest.Endof() {
		return nil, ast.NilRef, &Error{Span: token.Span{File: p.Filename}, Label: "UnexpectedSyntaxAtEOF", Msg: "trailing input after expression"}
	}
	b := &builder{filename: p.Filename, source: source}
	tree := ast.NewTree()
	ref, err := b.convert(tree, q)
	if err != nil {
		return nil, ast.NilRef, err
	}
	tree.Root = ref
	return tree, ref, nil
}

func pegASTParsewith(reg *grammar.Registry, source []byte) (pc.Queryable, bool) {
	blockRule := reg.Rule("Block")
	node, rest := blockRule(pc.NewScanner(source))
	if node == nil {
		return nil, false
	}
	q, ok := node.(pc.Queryable)
	if !ok {
		return nil, false
	}
	// Any trailing non-whitespace input is a syntax error: the grammar
	// did not consume the whole file.
	if !rest.Endof() {
		return nil, false
	}
	return q, true
}

// builder converts a goparsec pc.Queryable parse tree into an ast.Tree.
// goparsec nodes carry only a name and flat text; the tag mapping and
// literal decoding below is the "declarative specification indexed by the
// node's tag" spec.md §4.1 describes.
type builder struct {
	filename string
	source   []byte
}

var tagByRuleName = map[string]ast.Tag{
	"Number": ast.TagNumber, "String": ast.TagString, "Boolean": ast.TagBoolean,
	"Nil": ast.TagNil, "Varargs": ast.TagVarargs, "Id": ast.TagId,
	"IdDecl": ast.TagIdDecl, "Paren": ast.TagParen, "Type": ast.TagType,
	"TypeInstance": ast.TagTypeInstance, "FuncType": ast.TagFuncType,
	"RecordType": ast.TagRecordType, "RecordFieldType": ast.TagRecordFieldType,
	"UnionType": ast.TagUnionType, "UnionFieldType": ast.TagUnionFieldType,
	"EnumType": ast.TagEnumType, "EnumFieldType": ast.TagEnumFieldType,
	"ArrayType": ast.TagArrayType, "PointerType": ast.TagPointerType,
	"OptionalType": ast.TagOptionalType, "GenericType": ast.TagGenericType,
	"DotIndex": ast.TagDotIndex, "ColonIndex": ast.TagColonIndex,
	"ArrayIndex": ast.TagArrayIndex, "Table": ast.TagTable, "Pair": ast.TagPair,
	"Annotation": ast.TagAnnotation, "PragmaCall": ast.TagPragmaCall,
	"Function": ast.TagFunction, "Call": ast.TagCall, "CallMethod": ast.TagCallMethod,
	"Block": ast.TagBlock, "Return": ast.TagReturn, "If": ast.TagIf, "Do": ast.TagDo,
	"Defer": ast.TagDefer, "While": ast.TagWhile, "Repeat": ast.TagRepeat,
	"ForNum": ast.TagForNum, "ForIn": ast.TagForIn, "Break": ast.TagBreak,
	"Continue": ast.TagContinue, "Label": ast.TagLabel, "Goto": ast.TagGoto,
	"VarDecl": ast.TagVarDecl, "Assign": ast.TagAssign, "FuncDef": ast.TagFuncDef,
	"UnaryOp": ast.TagUnaryOp, "BinaryOp": ast.TagBinaryOp, "Switch": ast.TagSwitch,
	"Preprocess": ast.TagPreprocess, "PreprocessExpr": ast.TagPreprocessExpr,
	"PreprocessName": ast.TagPreprocessName,
}

// structuralNames are intermediate grammar productions (argument lists,
// optional-suffix wrappers, OrdChoice alternatives) that carry no AST tag
// of their own; convert unwraps them transparently.
var structuralNames = map[string]bool{
	"TypeArg": true, "UnionFieldTypeAnnot": true, "EnumFieldTypeValue": true,
	"FuncTypeReturns": true, "IdDeclAnnot": true, "AnnotationArgs": true,
	"VarDeclInit": true, "FunctionReturns": true, "FuncDefReturns": true,
	"ForNumStep": true, "Elseif": true, "Else": true, "Case": true, "Default": true,
	"Suffixed": true,
}

func (b *builder) convert(tree *ast.Tree, q pc.Queryable) (ast.NodeRef, error) {
	name := q.GetName()
	if structuralNames[name] {
		return b.convertChildrenAsOne(tree, q)
	}
	tag, ok := tagByRuleName[name]
	if !ok {
		return b.convertChildrenAsOne(tree, q)
	}
	span := token.Span{File: b.filename}
	switch tag {
	case ast.TagNumber:
		num, err := decodeNumber(q.GetValue())
		if err != nil {
			return ast.NilRef, &Error{Span: span, Label: "MalformedHexadecimalNumber", Msg: err.Error()}
		}
		ref := tree.New(ast.TagNumber, span)
		n := tree.Node(ref)
		n.NumberLit = num
		return ref, nil
	case ast.TagString:
		str, err := decodeString(q.GetValue())
		if err != nil {
			return ast.NilRef, &Error{Span: span, Label: "UnclosedLongString", Msg: err.Error()}
		}
		ref := tree.New(ast.TagString, span)
		n := tree.Node(ref)
		n.StringLit = str
		return ref, nil
	case ast.TagId, ast.TagIdDecl, ast.TagGoto, ast.TagLabel:
		ref := tree.New(tag, span)
		n := tree.Node(ref)
		n.Text = identText(q)
		var children []ast.NodeRef
		for _, c := range q.GetChildren() {
			if structuralNames[c.GetName()] {
				kid, err := b.convert(tree, c)
				if err != nil {
					return ast.NilRef, err
				}
				if kid != ast.NilRef {
					children = append(children, kid)
				}
			}
		}
		if err := tree.ReplaceChildren(ref, children); err != nil {
			return ast.NilRef, err
		}
		return ref, nil
	case ast.TagTypeInstance, ast.TagGenericType, ast.TagRecordFieldType,
		ast.TagUnionFieldType, ast.TagEnumFieldType:
		// These productions lead with the name the type-expression
		// evaluator (internal/compiler/analysis/typeexpr.go) resolves —
		// a type name, a generic's name, or a field name — which only
		// identText's leaf-scan recovers; convertChildren alone would
		// drop it on the floor the way the default case does for every
		// other tag.
		ref := tree.New(tag, span)
		n := tree.Node(ref)
		n.Text = identText(q)
		children, err := b.convertChildren(tree, q)
		if err != nil {
			return ast.NilRef, err
		}
		if err := tree.ReplaceChildren(ref, children); err != nil {
			return ast.NilRef, err
		}
		return ref, nil
	case ast.TagBinaryOp, ast.TagUnaryOp:
		ref := tree.New(tag, span)
		n := tree.Node(ref)
		n.Text = operatorText(q)
		children, err := b.convertChildren(tree, q)
		if err != nil {
			return ast.NilRef, err
		}
		if err := tree.ReplaceChildren(ref, children); err != nil {
			return ast.NilRef, err
		}
		return ref, nil
	case ast.TagPreprocess, ast.TagPreprocessExpr, ast.TagPreprocessName:
		ref := tree.New(tag, span)
		n := tree.Node(ref)
		n.Text = preprocessText(tag, q.GetValue())
		return ref, nil
	default:
		ref := tree.New(tag, span)
		children, err := b.convertChildren(tree, q)
		if err != nil {
			return ast.NilRef, err
		}
		if err := tree.ReplaceChildren(ref, children); err != nil {
			return ast.NilRef, err
		}
		return ref, nil
	}
}

// convertChildrenAsOne handles structural/passthrough nodes: if the
// production wraps exactly one meaningful child, return that child's
// converted node directly rather than introducing a synthetic tag.
func (b *builder) convertChildrenAsOne(tree *ast.Tree, q pc.Queryable) (ast.NodeRef, error) {
	children, err := b.convertChildren(tree, q)
	if err != nil {
		return ast.NilRef, err
	}
	if len(children) == 1 {
		return children[0], nil
	}
	// Multiple meaningful children with no tag of their own (e.g. a
	// Suffixed chain): fold left-associatively is the analyzer's job once
	// these reach DotIndex/Call/etc, which are tagged productions
	// themselves; here we just keep the last, most-specific node.
	if len(children) > 1 {
		return children[len(children)-1], nil
	}
	return ast.NilRef, nil
}

func (b *builder) convertChildren(tree *ast.Tree, q pc.Queryable) ([]ast.NodeRef, error) {
	var out []ast.NodeRef
	for _, c := range q.GetChildren() {
		name := c.GetName()
		if isLiteralAtomName(name) {
			continue
		}
		ref, err := b.convert(tree, c)
		if err != nil {
			return nil, err
		}
		if ref != ast.NilRef {
			out = append(out, ref)
		}
	}
	return out, nil
}

// isLiteralAtomName filters out the bare keyword/punctuation terminals
// (KEYWORD_fn, "(", "=", ...) that goparsec's Atom produces as leaf
// children alongside the meaningful sub-rules; these carry no AST shape
// of their own.
func isLiteralAtomName(name string) bool {
	if name == "" {
		return true
	}
	switch name {
	case "IDENT", "HEXNUM", "BINNUM", "FLOATNUM", "INTNUM", "DQSTRING", "SQSTRING", "LONGSTRING",
		"PPEXPR", "PPNAME", "PPBLOCK", "PPLINE":
		return false
	}
	if strings.HasPrefix(name, "KEYWORD_") {
		return true
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' {
			return false
		}
	}
	return true
}

func identText(q pc.Queryable) string {
	if q.GetValue() != "" {
		return q.GetValue()
	}
	for _, c := range q.GetChildren() {
		if v := c.GetValue(); v != "" {
			return v
		}
	}
	return ""
}

func operatorText(q pc.Queryable) string {
	for _, c := range q.GetChildren() {
		if v := c.GetValue(); v != "" && !isAlnumIdent(v) {
			return v
		}
		if v := c.GetValue(); v != "" {
			return v
		}
	}
	return ""
}

func isAlnumIdent(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
			return false
		}
	}
	return len(s) > 0
}

func preprocessText(tag ast.Tag, raw string) string {
	switch tag {
	case ast.TagPreprocess:
		raw = strings.TrimPrefix(raw, "##[[")
		raw = strings.TrimSuffix(raw, "]]")
		raw = strings.TrimPrefix(raw, "##")
		return raw
	case ast.TagPreprocessExpr:
		raw = strings.TrimPrefix(raw, "#[")
		raw = strings.TrimSuffix(raw, "]#")
		return raw
	case ast.TagPreprocessName:
		raw = strings.TrimPrefix(raw, "#|")
		raw = strings.TrimSuffix(raw, "|#")
		return raw
	}
	return raw
}

// decodeNumber splits a numeric literal's lexical shape into base and
// integer/fractional/exponent parts, per spec.md §4.1's "the analyzer
// (not the parser) decides the resulting type." Suffix is left empty: the
// grammar's number tokens do not accept a suffix.
func decodeNumber(raw string) (*token.Number, error) {
	n := &token.Number{Base: token.Base10}
	s := raw
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		n.Base = token.Base16
		s = s[2:]
		if s == "" {
			return nil, fmt.Errorf("empty hexadecimal literal")
		}
		for _, r := range s {
			if !isHexDigit(r) {
				return nil, fmt.Errorf("invalid hexadecimal digit %q", r)
			}
		}
		n.Int = s
		return n, nil
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		n.Base = token.Base2
		s = s[2:]
		for _, r := range s {
			if r != '0' && r != '1' {
				return nil, fmt.Errorf("invalid binary digit %q", r)
			}
		}
		n.Int = s
		return n, nil
	}
	// decimal, possibly with fraction/exponent
	intPart, rest := s, ""
	if idx := strings.IndexAny(s, ".eE"); idx >= 0 {
		intPart, rest = s[:idx], s[idx:]
	}
	n.Int = intPart
	if strings.HasPrefix(rest, ".") {
		rest = rest[1:]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		n.Frac = rest[:end]
		rest = rest[end:]
	}
	if strings.HasPrefix(rest, "e") || strings.HasPrefix(rest, "E") {
		n.Exp = rest[1:]
		n.ExpBase = 10
	}
	return n, nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// decodeString fully decodes escape sequences at parse time (spec.md
// §4.1). No trailing suffix such as `u8`/`hex` is split off: the
// grammar's string tokens do not accept one.
func decodeString(raw string) (*token.String, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("malformed string literal %q", raw)
	}
	if strings.HasPrefix(raw, "[[") {
		if !strings.HasSuffix(raw, "]]") {
			return nil, fmt.Errorf("unclosed long string")
		}
		return &token.String{Value: raw[2 : len(raw)-2]}, nil
	}
	quote := raw[0]
	if raw[len(raw)-1] != quote {
		return nil, fmt.Errorf("unterminated string literal")
	}
	body := raw[1 : len(raw)-1]
	decoded, err := strconv.Unquote(string(quote) + body + string(quote))
	if err != nil {
		// strconv.Unquote is stricter than the grammar's escape set (e.g.
		// it rejects a bare backslash-newline); fall back to a permissive
		// pass-through decode of the common escapes.
		decoded = permissiveUnescape(body)
	}
	return &token.String{Value: decoded}, nil
}

func permissiveUnescape(body string) string {
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			switch body[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '"', '\'':
				sb.WriteByte(body[i+1])
			default:
				sb.WriteByte(body[i+1])
			}
			i++
			continue
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}
