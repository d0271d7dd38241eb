// Package dsl 解析文档模板语言：meta、styles 与若干 page 段，
// page 内以 heading / paragraph / break 命令描述流入编辑器的内容。
package dsl

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|px|mm|cm|in|%)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:|]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	tokenNames       = invertSymbols(dslLexer.Symbols())
	newlineTokenType = mustTokenType("Newline")
	lbraceTokenType  = mustTokenType("LBrace")
	rbraceTokenType  = mustTokenType("RBrace")
	symbolTokenType  = mustTokenType("Symbol")
	stringTokenType  = mustTokenType("String")

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root of a template: `doc <Name> <version> { sections }`.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one of meta, styles or page.
type Section struct {
	Meta   *MetaSection   `parser:"  @@"`
	Styles *StylesSection `parser:"| @@"`
	Page   *PageSection   `parser:"| @@"`
}

// Kind returns the section keyword.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Styles != nil:
		return "styles"
	case s.Page != nil:
		return "page"
	default:
		return "unknown"
	}
}

// MetaSection holds `key: value` document properties.
type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

// StylesSection declares named line styles (`style Name { ... }`).
type StylesSection struct {
	Block *Block `parser:"'styles' @@"`
}

// PageSection starts a run of pages. The header tokens carry orientation and
// column count, e.g. `page landscape columns 2`.
type PageSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Params []*Lexeme      `parser:"'page' @@*"`
	Block  *Block         `parser:"@@"`
}

// Block is a brace-delimited statement list.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is an assignment, a command or a bare text literal.
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command is a keyword followed by argument tokens and an optional block.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Texts returns the text literals of the command block in order.
func (c *Command) Texts() []string {
	if c == nil || c.Block == nil {
		return nil
	}
	var out []string
	for _, st := range c.Block.Statements {
		if st != nil && st.Text != nil {
			out = append(out, string(st.Text.Value))
		}
	}
	return out
}

// TextLiteral is a raw string statement.
type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value represents a property value.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Object *InlineObject  `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// ArrayValue captures `[ ... ]`.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// InlineObject captures `{ key: value }`.
type InlineObject struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ Newline* ( (';' | Newline+) Newline* @@ Newline* )* )? Newline* '}'"`
}

// Expression records raw tokens for later evaluation.
type Expression struct {
	Parts []*Lexeme
}

// Parse implements participle.Parseable for Expression.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var parts []*Lexeme
	depth := 0
	for {
		tok := lex.Peek()
		if stopExpression(tok, depth) {
			break
		}
		lexeme, err := consumeLexeme(lex)
		if err != nil {
			return err
		}
		switch lexeme.Raw {
		case "(", "[":
			depth++
		case ")", "]":
			if depth > 0 {
				depth--
			}
		}
		parts = append(parts, lexeme)
	}
	if len(parts) == 0 {
		return participle.NextMatch
	}
	e.Parts = parts
	return nil
}

// Lexeme captures a single lexical token.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable so Lexeme can act as a grammar atom.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if shouldStopArg(lex.Peek()) {
		return participle.NextMatch
	}
	lexeme, err := consumeLexeme(lex)
	if err != nil {
		return err
	}
	*l = *lexeme
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// SyntaxError 带有出错位置的模板语法错误。
type SyntaxError struct {
	Line, Column int
	Msg          string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("模板第 %d 行第 %d 列: %s", e.Line, e.Column, e.Msg)
}

// Parse parses a template from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	doc, err := documentParser.Parse("", r)
	return doc, wrapError(err)
}

// ParseString parses a template from a string.
func ParseString(input string) (*Document, error) {
	doc, err := documentParser.ParseString("", input)
	return doc, wrapError(err)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &SyntaxError{Line: pos.Line, Column: pos.Column, Msg: perr.Message()}
	}
	return err
}

func consumeLexeme(lex *lexer.PeekingLexer) (*Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return nil, participle.NextMatch
	}
	lexeme, err := newLexeme(*tok)
	if err != nil {
		return nil, err
	}
	return &lexeme, nil
}

func shouldStopArg(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineTokenType, rbraceTokenType, lbraceTokenType:
		return true
	case symbolTokenType:
		return tok.Value == ";"
	default:
		return false
	}
}

func stopExpression(tok *lexer.Token, depth int) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineTokenType, rbraceTokenType, lbraceTokenType:
		return depth == 0
	case symbolTokenType:
		switch tok.Value {
		case ";", ",":
			return depth == 0
		case "]":
			return depth == 0
		}
	}
	return false
}

func newLexeme(tok lexer.Token) (Lexeme, error) {
	name, ok := tokenNames[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	val := tok.Value
	if tok.Type == stringTokenType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, err
		}
		val = unquoted
	}
	return Lexeme{Type: name, Value: val, Raw: tok.Value, Pos: tok.Pos}, nil
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := dslLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
