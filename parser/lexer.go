// Package parser turns source text into the ast.Program the compiler
// consumes. spec.md §1 places lexing/parsing out of scope for the core
// specification itself ("delivers an AST; consumed by §4.1"), but a
// runnable repository needs something to produce that AST for the CLI and
// for integration tests (SPEC_FULL.md §C). This is a small recursive-
// descent/Pratt parser, grounded on the teacher's frontend/scanner.go
// (rune-at-a-time scanning with line/col tracking) and frontend/lexer.go
// (token stream with lookahead), generalized to this language's token set
// and simplified to optional ';' separators instead of the teacher's
// automatic-semicolon-insertion grammar: line breaks are not tokens, and a
// statement ends where its expression stops parsing, except that a '(' or
// '[' at the start of a line always begins a new statement.
package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/achronyme/achronyme/source"
)

// tokenKind classifies a lexical atom, mirroring the teacher's TokenSymbol
// but as a closed enum since this grammar's token set is fixed.
type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tNumber
	tString
	tPunct
	tKeyword
)

type token struct {
	kind   tokenKind
	lexeme string
	span   source.Span
}

var keywords = map[string]bool{
	"let": true, "mut": true, "if": true, "else": true, "while": true,
	"for": true, "in": true, "match": true, "try": true, "catch": true,
	"throw": true, "return": true, "break": true, "continue": true,
	"generate": true, "yield": true, "rec": true, "do": true,
	"true": true, "false": true, "null": true, "import": true, "export": true,
}

// scanner is grounded on the teacher's frontend/scanner.go: it consumes the
// source one rune at a time and stamps every token with a line/col span.
type scanner struct {
	src      string
	file     *source.File
	pos      int // byte offset
	line     int
	col      int
}

func newScanner(file *source.File) *scanner {
	return &scanner{src: file.Contents, file: file, line: 1, col: 1}
}

func (s *scanner) peekRune() (rune, int) {
	if s.pos >= len(s.src) {
		return 0, 0
	}
	r, w := utf8.DecodeRuneInString(s.src[s.pos:])
	return r, w
}

func (s *scanner) advance() rune {
	r, w := s.peekRune()
	s.pos += w
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) here() source.Pos { return source.Pos{Line: s.line, Col: s.col} }

// Lexer tokenizes the whole file up front; this grammar is small enough
// that a single-pass token slice is simpler than the teacher's streaming
// peek-buffer lexer and avoids lookahead-depth bookkeeping.
type Lexer struct {
	toks []token
	pos  int
}

func NewLexer(file *source.File) (*Lexer, error) {
	s := newScanner(file)
	var toks []token

	for {
		s.skipTrivia()
		if s.pos >= len(s.src) {
			p := s.here()
			toks = append(toks, token{tEOF, "<eof>", source.Span{Start: p, End: p}})
			break
		}

		start := s.here()
		r, _ := s.peekRune()

		switch {
		case unicode.IsDigit(r):
			toks = append(toks, s.scanNumber(start))
		case r == '"':
			tok, err := s.scanString(start)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case isIdentStart(r):
			toks = append(toks, s.scanIdent(start))
		default:
			tok, err := s.scanOperator(start)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		}
	}

	return &Lexer{toks: toks}, nil
}

func (s *scanner) skipTrivia() {
	for s.pos < len(s.src) {
		r, _ := s.peekRune()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			s.advance()
			continue
		}
		if r == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' {
			for s.pos < len(s.src) {
				if r, _ := s.peekRune(); r == '\n' {
					break
				}
				s.advance()
			}
			continue
		}
		break
	}
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentPart(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

func (s *scanner) scanIdent(start source.Pos) token {
	begin := s.pos
	for {
		r, _ := s.peekRune()
		if !isIdentPart(r) {
			break
		}
		s.advance()
	}
	lexeme := s.src[begin:s.pos]
	kind := tIdent
	if keywords[lexeme] {
		kind = tKeyword
	}
	return token{kind, lexeme, source.Span{Start: start, End: s.here()}}
}

func (s *scanner) scanNumber(start source.Pos) token {
	begin := s.pos
	for {
		r, _ := s.peekRune()
		if !unicode.IsDigit(r) {
			break
		}
		s.advance()
	}
	if r, _ := s.peekRune(); r == '.' {
		save := s.pos
		s.advance()
		if r2, _ := s.peekRune(); unicode.IsDigit(r2) {
			for {
				r, _ := s.peekRune()
				if !unicode.IsDigit(r) {
					break
				}
				s.advance()
			}
		} else {
			s.pos = save
		}
	}
	return token{tNumber, s.src[begin:s.pos], source.Span{Start: start, End: s.here()}}
}

func (s *scanner) scanString(start source.Pos) (token, error) {
	s.advance() // opening quote
	begin := s.pos
	for {
		if s.pos >= len(s.src) {
			return token{}, fmt.Errorf("%s:%d:%d: unterminated string literal", s.file.Filename, start.Line, start.Col)
		}
		r, _ := s.peekRune()
		if r == '"' {
			break
		}
		if r == '\\' {
			s.advance()
			if s.pos < len(s.src) {
				s.advance()
			}
			continue
		}
		s.advance()
	}
	raw := s.src[begin:s.pos]
	s.advance() // closing quote
	return token{tString, unescape(raw), source.Span{Start: start, End: s.here()}}, nil
}

func unescape(raw string) string {
	out := make([]rune, 0, len(raw))
	rs := []rune(raw)
	for i := 0; i < len(rs); i++ {
		if rs[i] == '\\' && i+1 < len(rs) {
			i++
			switch rs[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, rs[i])
			}
			continue
		}
		out = append(out, rs[i])
	}
	return string(out)
}

// multi-rune operators, longest first so the scanner commits to the widest
// match (e.g. "=>" before "=").
var operators = []string{
	"...", "=>", "==", "!=", "<=", ">=", "&&", "||",
	"+=", "-=", "*=", "/=", "**",
	"+", "-", "*", "/", "%", "(", ")", "[", "]", "{", "}",
	",", ":", ".", "=", "<", ">", "!", "?", ";",
}

func (s *scanner) scanOperator(start source.Pos) (token, error) {
	for _, op := range operators {
		if len(s.src)-s.pos >= len(op) && s.src[s.pos:s.pos+len(op)] == op {
			for range op {
				s.advance()
			}
			return token{tPunct, op, source.Span{Start: start, End: s.here()}}, nil
		}
	}
	r, _ := s.peekRune()
	return token{}, fmt.Errorf("%s:%d:%d: unexpected character %q", s.file.Filename, start.Line, start.Col, r)
}

func (l *Lexer) peek() token   { return l.toks[l.pos] }
func (l *Lexer) peekAt(n int) token {
	if l.pos+n >= len(l.toks) {
		return l.toks[len(l.toks)-1]
	}
	return l.toks[l.pos+n]
}
func (l *Lexer) next() token {
	t := l.toks[l.pos]
	if l.pos < len(l.toks)-1 {
		l.pos++
	}
	return t
}
