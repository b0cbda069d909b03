package grammar

import (
	pc "github.com/prataprc/goparsec"
)

// pegAST is the single AST driver every named production is built through,
// mirroring its-hmny-nand2tetris's one-`ast`-per-grammar convention
// (`var ast = pc.NewAST(name, 0)` in pkg/jack, pkg/vm, pkg/asm parsing.go).
// Every composite combinator below (seq/choice/star/plus) is a thin
// wrapper over a pegAST method so the resulting node carries the name the
// queryable-to-ast.Tree pass dispatches on.
var pegAST = pc.NewAST("vex", 0)

func seq(name string, ps ...pc.Parser) pc.Parser       { return pegAST.And(name, nil, ps...) }
func choice(name string, ps ...pc.Parser) pc.Parser     { return pegAST.OrdChoice(name, nil, ps...) }
func star(name string, p pc.Parser, sep ...pc.Parser) pc.Parser {
	return pegAST.Kleene(name, nil, p, sep...)
}

// Install builds the full set of named productions (spec.md §4.1: "the
// grammar is loaded from a declarative specification indexed by the
// node's tag") and registers each under its tag name via SetPEG. Rules
// reference each other through Rule(name) rather than the Go value
// directly, so a later SetPEG on, say, "Call" is picked up by every rule
// that embeds it as soon as the next parse begins.
func (r *Registry) Install() {
	ident := r.Identifier()

	number := choice("number",
		pc.Token(`0[xX][0-9a-fA-F]+`, "HEXNUM"),
		pc.Token(`0[bB][01]+`, "BINNUM"),
		pc.Token(`[0-9]+\.[0-9]+([eE][+-]?[0-9]+)?`, "FLOATNUM"),
		pc.Token(`[0-9]+[eE][+-]?[0-9]+`, "FLOATNUM"),
		pc.Token(`[0-9]+`, "INTNUM"),
	)
	str := choice("string",
		pc.Token(`"(\\.|[^"\\])*"`, "DQSTRING"),
		pc.Token(`'(\\.|[^'\\])*'`, "SQSTRING"),
		pc.Token("(?s)\\[\\[.*?\\]\\]", "LONGSTRING"),
	)

	r.SetPEG("Number", seq("Number", number))
	r.SetPEG("String", seq("String", str))
	r.SetPEG("Boolean", seq("Boolean", choice("bool-kw", r.Keyword("true"), r.Keyword("false"))))
	r.SetPEG("Nil", seq("Nil", r.Keyword("nil")))
	r.SetPEG("Varargs", seq("Varargs", pc.Atom("...", "ELLIPSIS")))
	r.SetPEG("Id", seq("Id", ident))

	r.SetPEG("Type", choice("Type",
		r.Rule("PointerType"), r.Rule("ArrayType"), r.Rule("OptionalType"),
		r.Rule("GenericType"), r.Rule("TypeInstance"), seq("Type", ident),
	))
	r.SetPEG("TypeInstance", seq("TypeInstance", ident,
		star("type-args", seq("TypeArg", r.Rule("Type")), pc.Atom(",", ","))))
	r.SetPEG("PointerType", seq("PointerType", pc.Atom("*", "*"), r.Rule("Type")))
	r.SetPEG("OptionalType", seq("OptionalType", r.Rule("Type"), pc.Atom("?", "?")))
	r.SetPEG("ArrayType", seq("ArrayType", pc.Atom("[", "["), pc.Maybe(nil, number), pc.Atom("]", "]"), r.Rule("Type")))
	r.SetPEG("GenericType", seq("GenericType", ident, pc.Atom("(", "("),
		star("generic-args", r.Rule("Type"), pc.Atom(",", ",")), pc.Atom(")", ")")))
	r.SetPEG("RecordFieldType", seq("RecordFieldType", ident, pc.Atom(":", ":"), r.Rule("Type")))
	r.SetPEG("RecordType", seq("RecordType", r.Keyword("record"), pc.Atom("{", "{"),
		star("record-fields", r.Rule("RecordFieldType"), pc.Atom(",", ",")), pc.Atom("}", "}")))
	r.SetPEG("UnionFieldType", seq("UnionFieldType", ident,
		pc.Maybe(nil, seq("UnionFieldTypeAnnot", pc.Atom(":", ":"), r.Rule("Type")))))
	r.SetPEG("UnionType", seq("UnionType", r.Keyword("union"), pc.Atom("{", "{"),
		star("union-fields", r.Rule("UnionFieldType"), pc.Atom(",", ",")), pc.Atom("}", "}")))
	r.SetPEG("EnumFieldType", seq("EnumFieldType", ident,
		pc.Maybe(nil, seq("EnumFieldTypeValue", pc.Atom("=", "="), number))))
	r.SetPEG("EnumType", seq("EnumType", r.Keyword("enum"),
		pc.Maybe(nil, seq("EnumSubtype", pc.Atom("(", "("), r.Rule("Type"), pc.Atom(")", ")"))),
		pc.Atom("{", "{"), star("enum-fields", r.Rule("EnumFieldType"), pc.Atom(",", ",")), pc.Atom("}", "}")))
	r.SetPEG("FuncType", seq("FuncType", r.Keyword("fn"), pc.Atom("(", "("),
		star("functype-params", r.Rule("Type"), pc.Atom(",", ",")), pc.Atom(")", ")"),
		pc.Maybe(nil, seq("FuncTypeReturns", pc.Atom(":", ":"), star("functype-rets", r.Rule("Type"), pc.Atom(",", ","))))))

	r.SetPEG("IdDecl", seq("IdDecl", ident,
		pc.Maybe(nil, seq("IdDeclAnnot", pc.Atom(":", ":"), r.Rule("Type"))),
		star("id-annotations", r.Rule("Annotation"))))

	r.SetPEG("Annotation", seq("Annotation", pc.Atom("<", "<"), ident,
		pc.Maybe(nil, seq("AnnotationArgs", pc.Atom("(", "("),
			star("annotation-args", r.Rule("Expr"), pc.Atom(",", ",")), pc.Atom(")", ")"))), pc.Atom(">", ">")))

	r.SetPEG("Paren", seq("Paren", pc.Atom("(", "("), r.Rule("Expr"), pc.Atom(")", ")")))

	r.SetPEG("Pair", choice("Pair",
		seq("Pair", pc.Atom("[", "["), r.Rule("Expr"), pc.Atom("]", "]"), pc.Atom("=", "="), r.Rule("Expr")),
		seq("Pair", ident, pc.Atom("=", "="), r.Rule("Expr")),
		seq("Pair", r.Rule("Expr")),
	))
	r.SetPEG("Table", seq("Table", pc.Atom("{", "{"),
		star("table-fields", r.Rule("Pair"), pc.Atom(",", ",")), pc.Atom("}", "}")))

	r.SetPEG("PreprocessExpr", seq("PreprocessExpr", pc.Token(`#\[(.*?)\]#`, "PPEXPR")))
	r.SetPEG("PreprocessName", seq("PreprocessName", pc.Token(`#\|(.*?)\|#`, "PPNAME")))
	r.SetPEG("Preprocess", choice("Preprocess",
		seq("Preprocess", pc.Token("(?s)##\\[\\[(.*?)\\]\\]", "PPBLOCK")),
		seq("Preprocess", pc.Token(`(?m)##(.*)$`, "PPLINE")),
	))

	r.SetPEG("DotIndex", seq("DotIndex", r.Rule("Atom"), pc.Atom(".", "."), ident))
	r.SetPEG("ColonIndex", seq("ColonIndex", r.Rule("Atom"), pc.Atom(":", ":"), ident))
	r.SetPEG("ArrayIndex", seq("ArrayIndex", r.Rule("Atom"), pc.Atom("[", "["), r.Rule("Expr"), pc.Atom("]", "]")))
	r.SetPEG("Call", seq("Call", r.Rule("Atom"), pc.Atom("(", "("),
		star("call-args", r.Rule("Expr"), pc.Atom(",", ",")), pc.Atom(")", ")")))
	r.SetPEG("CallMethod", seq("CallMethod", r.Rule("Atom"), pc.Atom(":", ":"), ident, pc.Atom("(", "("),
		star("callmethod-args", r.Rule("Expr"), pc.Atom(",", ",")), pc.Atom(")", ")")))

	r.SetPEG("Function", seq("Function", r.Keyword("fn"), pc.Atom("(", "("),
		star("function-params", r.Rule("IdDecl"), pc.Atom(",", ",")), pc.Atom(")", ")"),
		pc.Maybe(nil, seq("FunctionReturns", pc.Atom(":", ":"), star("function-rets", r.Rule("Type"), pc.Atom(",", ",")))),
		r.Rule("Block"), r.Keyword("end")))

	r.SetPEG("Atom", choice("Atom",
		r.Rule("Paren"), r.Rule("Preprocess"), r.Rule("PreprocessExpr"), r.Rule("PreprocessName"),
		r.Rule("Function"), r.Rule("Table"), r.Rule("Number"), r.Rule("String"),
		r.Rule("Boolean"), r.Rule("Nil"), r.Rule("Varargs"), r.Rule("Id"),
	))

	r.SetPEG("Suffixed", star("Suffixed", r.Rule("Atom"),
		choice("suffix", r.Rule("DotIndex"), r.Rule("ColonIndex"), r.Rule("ArrayIndex"), r.Rule("Call"), r.Rule("CallMethod"))))

	r.SetPEG("UnaryOp", seq("UnaryOp",
		choice("unary-op", pc.Atom("-", "-"), pc.Atom("not", "not"), pc.Atom("#", "#"), pc.Atom("~", "~")),
		r.Rule("Expr")))

	r.SetPEG("BinaryOp", seq("BinaryOp", r.Rule("Suffixed"),
		choice("binary-op",
			pc.Atom("==", "=="), pc.Atom("~=", "~="), pc.Atom("<=", "<="), pc.Atom(">=", ">="),
			pc.Atom("<<|", "<<|"), pc.Atom("|>>", "|>>"), pc.Atom("<<", "<<"), pc.Atom(">>", ">>"),
			pc.Atom("and", "and"), pc.Atom("or", "or"),
			pc.Atom("+", "+"), pc.Atom("-", "-"), pc.Atom("*", "*"), pc.Atom("/", "/"),
			pc.Atom("//", "//"), pc.Atom("%", "%"), pc.Atom("^", "^"),
			pc.Atom("<", "<"), pc.Atom(">", ">"), pc.Atom("&", "&"), pc.Atom("|", "|"),
		),
		r.Rule("Expr")))

	r.SetPEG("Expr", choice("Expr", r.Rule("BinaryOp"), r.Rule("UnaryOp"), r.Rule("Suffixed"), r.Rule("Atom")))

	r.SetPEG("VarDecl", seq("VarDecl",
		choice("local-or-global", r.Keyword("local"), r.Keyword("global")),
		star("vardecl-names", r.Rule("IdDecl"), pc.Atom(",", ",")),
		pc.Maybe(nil, seq("VarDeclInit", pc.Atom("=", "="), star("vardecl-init", r.Rule("Expr"), pc.Atom(",", ",")))),
	))
	r.SetPEG("Assign", seq("Assign",
		star("assign-targets", r.Rule("Suffixed"), pc.Atom(",", ",")), pc.Atom("=", "="),
		star("assign-values", r.Rule("Expr"), pc.Atom(",", ",")),
	))
	r.SetPEG("Return", seq("Return", r.Keyword("return"), star("return-values", r.Rule("Expr"), pc.Atom(",", ","))))
	r.SetPEG("Break", seq("Break", r.Keyword("break")))
	r.SetPEG("Continue", seq("Continue", pc.Atom("continue", "continue")))
	r.SetPEG("Label", seq("Label", pc.Atom("::", "::"), ident, pc.Atom("::", "::")))
	r.SetPEG("Goto", seq("Goto", r.Keyword("goto"), ident))

	r.SetPEG("If", seq("If", r.Keyword("if"), r.Rule("Expr"), r.Keyword("then"), r.Rule("Block"),
		star("elseifs", seq("Elseif", r.Keyword("elseif"), r.Rule("Expr"), r.Keyword("then"), r.Rule("Block"))),
		pc.Maybe(nil, seq("Else", r.Keyword("else"), r.Rule("Block"))), r.Keyword("end")))
	r.SetPEG("Do", seq("Do", r.Keyword("do"), r.Rule("Block"), r.Keyword("end")))
	r.SetPEG("Defer", seq("Defer", pc.Atom("defer", "defer"), r.Rule("Block"), r.Keyword("end")))
	r.SetPEG("While", seq("While", r.Keyword("while"), r.Rule("Expr"), r.Keyword("do"), r.Rule("Block"), r.Keyword("end")))
	r.SetPEG("Repeat", seq("Repeat", r.Keyword("repeat"), r.Rule("Block"), r.Keyword("until"), r.Rule("Expr")))
	r.SetPEG("ForNum", seq("ForNum", r.Keyword("for"), ident, pc.Atom("=", "="), r.Rule("Expr"), pc.Atom(",", ","),
		r.Rule("Expr"), pc.Maybe(nil, seq("ForNumStep", pc.Atom(",", ","), r.Rule("Expr"))),
		r.Keyword("do"), r.Rule("Block"), r.Keyword("end")))
	r.SetPEG("ForIn", seq("ForIn", r.Keyword("for"), star("forin-names", ident, pc.Atom(",", ",")),
		r.Keyword("in"), star("forin-exprs", r.Rule("Expr"), pc.Atom(",", ",")), r.Keyword("do"), r.Rule("Block"), r.Keyword("end")))

	r.SetPEG("PragmaCall", seq("PragmaCall", pc.Atom("@", "@"), ident, pc.Atom("(", "("),
		star("pragma-args", r.Rule("Expr"), pc.Atom(",", ",")), pc.Atom(")", ")")))

	r.SetPEG("FuncDef", seq("FuncDef", r.Keyword("local"), pc.Atom("function", "function"), ident, pc.Atom("(", "("),
		star("funcdef-params", r.Rule("IdDecl"), pc.Atom(",", ",")), pc.Atom(")", ")"),
		pc.Maybe(nil, seq("FuncDefReturns", pc.Atom(":", ":"), star("funcdef-rets", r.Rule("Type"), pc.Atom(",", ",")))),
		r.Rule("Block"), r.Keyword("end")))

	r.SetPEG("Switch", seq("Switch", pc.Atom("switch", "switch"), r.Rule("Expr"),
		star("switch-cases", seq("Case", pc.Atom("case", "case"), r.Rule("Expr"), pc.Atom(":", ":"), r.Rule("Block"))),
		pc.Maybe(nil, seq("Default", pc.Atom("default", "default"), pc.Atom(":", ":"), r.Rule("Block"))),
		r.Keyword("end")))

	r.SetPEG("Statement", choice("Statement",
		r.Rule("VarDecl"), r.Rule("Assign"), r.Rule("Return"), r.Rule("If"), r.Rule("Do"),
		r.Rule("Defer"), r.Rule("While"), r.Rule("Repeat"), r.Rule("ForNum"), r.Rule("ForIn"),
		r.Rule("Break"), r.Rule("Continue"), r.Rule("Label"), r.Rule("Goto"), r.Rule("FuncDef"),
		r.Rule("Switch"), r.Rule("PragmaCall"), r.Rule("Preprocess"),
		r.Rule("Suffixed"), r.Rule("Expr"),
	))
	r.SetPEG("Block", seq("Block", star("statements", r.Rule("Statement"))))
}
