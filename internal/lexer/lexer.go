package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/devicetree-lang/dts-core/internal/text"
)

// DiagnosticCode identifies lexer diagnostic categories.
type DiagnosticCode string

// DiagnosticCode values emitted by the lexer.
const (
	DiagnosticInvalidByte              DiagnosticCode = "LEX_INVALID_BYTE"
	DiagnosticUnknownCharacter         DiagnosticCode = "LEX_UNKNOWN_CHARACTER"
	DiagnosticUnterminatedString       DiagnosticCode = "LEX_UNTERMINATED_STRING"
	DiagnosticUnterminatedBlockComment DiagnosticCode = "LEX_UNTERMINATED_BLOCK_COMMENT"
)

// Diagnostic is a lexer-level issue with a source location. internal/parser
// folds every one of these into a diag.SyntaxIssue diagnostic before it
// starts parsing.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
	Pos     text.Pos
}

// Result is the output of lexing source text. Tokens is total: every byte
// of src is covered by exactly one token, and the slice always ends in a
// single Eof token.
type Result struct {
	Tokens      []Token
	Diagnostics []Diagnostic
}

// Lex tokenizes src into a lossless, total token stream.
func Lex(src []byte) Result {
	s := scanner{src: src}
	s.run()
	return Result{Tokens: s.tokens, Diagnostics: s.diagnostics}
}

type scanner struct {
	src            []byte
	i              int
	line, col      uint32
	tokenStartByte int
	tokens         []Token
	diagnostics    []Diagnostic
}

func (s *scanner) run() {
	for {
		if s.eof() {
			s.tokens = append(s.tokens, Token{Kind: Eof, Pos: s.pos()})
			return
		}
		s.tokens = append(s.tokens, s.scanOne())
	}
}

func (s *scanner) pos() text.Pos { return text.Pos{Line: s.line, Col: s.col} }

func (s *scanner) finish(start text.Pos, kind TokenKind) Token {
	return s.finishFlagged(start, kind, 0)
}

func (s *scanner) finishFlagged(start text.Pos, kind TokenKind, flags Flags) Token {
	length := uint32(0)
	if s.line == start.Line && s.col >= start.Col {
		length = s.col - start.Col
	}
	return Token{
		Kind:  kind,
		Pos:   text.Pos{Line: start.Line, Col: start.Col, Len: length},
		Text:  string(s.src[s.tokenStartByte:s.i]),
		Flags: flags,
	}
}

func (s *scanner) scanOne() Token {
	start := s.pos()
	s.tokenStartByte = s.i
	b := s.src[s.i]

	switch {
	case b == ' ' || b == '\t' || b == '\v' || b == '\f':
		for !s.eof() && isHorizontalSpace(s.src[s.i]) {
			s.advanceByte()
		}
		return s.finish(start, Whitespace)
	case b == '\n':
		s.advanceByte()
		return s.finish(start, Newline)
	case b == '\r':
		s.advanceByte()
		if !s.eof() && s.src[s.i] == '\n' {
			s.advanceByte()
		}
		return s.finish(start, Newline)
	case b == '/' && s.peekByte(1) == '/':
		s.advanceByte()
		s.advanceByte()
		s.scanToEndOfLine()
		return s.finish(start, LineComment)
	case b == '/' && s.peekByte(1) == '*':
		return s.scanBlockComment(start)
	case b == '/':
		if kind, ok := s.tryScanSlashKeyword(); ok {
			return s.finish(start, kind)
		}
		s.advanceByte()
		return s.finish(start, Slash)
	case b == '#' && isIdentStart(s.peekByte(1)) && !preprocessorKeywords[s.wordAfterHash()]:
		// A '#'-prefixed name that is not a preprocessor keyword is a
		// property name such as #address-cells.
		s.advanceByte()
		for !s.eof() && isIdentPart(s.src[s.i]) {
			s.advanceByte()
		}
		return s.finish(start, Identifier)
	case b == '#':
		s.advanceByte()
		s.scanToEndOfLine()
		return s.finish(start, Directive)
	case b == '"':
		return s.scanString(start)
	case isIdentStart(b):
		for !s.eof() && isIdentPart(s.src[s.i]) {
			s.advanceByte()
		}
		return s.finish(start, Identifier)
	case isDigit(b):
		return s.scanNumber(start)
	case b >= utf8.RuneSelf:
		r, size := utf8.DecodeRune(s.src[s.i:])
		if r == utf8.RuneError && size == 1 {
			s.advanceByte()
			return s.errorToken(start, DiagnosticInvalidByte, "invalid UTF-8 byte")
		}
		s.i += size
		s.col++
		return s.errorToken(start, DiagnosticUnknownCharacter, "unsupported non-ASCII token character")
	default:
		s.advanceByte()
		switch b {
		case '{':
			return s.finish(start, LBrace)
		case '}':
			return s.finish(start, RBrace)
		case '(':
			return s.finish(start, LParen)
		case ')':
			return s.finish(start, RParen)
		case '[':
			return s.finish(start, LBracket)
		case ']':
			return s.finish(start, RBracket)
		case '<':
			if !s.eof() && s.src[s.i] == '<' {
				s.advanceByte()
				return s.finish(start, ShiftLeft)
			}
			return s.finish(start, LAngle)
		case '>':
			if !s.eof() && s.src[s.i] == '>' {
				s.advanceByte()
				return s.finish(start, ShiftRight)
			}
			return s.finish(start, RAngle)
		case ';':
			return s.finish(start, Semi)
		case ':':
			return s.finish(start, Colon)
		case ',':
			return s.finish(start, Comma)
		case '=':
			return s.finish(start, Equal)
		case '&':
			return s.finish(start, Amp)
		case '@':
			return s.finish(start, At)
		case '+':
			return s.finish(start, Plus)
		case '-':
			return s.finish(start, Minus)
		case '*':
			return s.finish(start, Star)
		case '%':
			return s.finish(start, Percent)
		case '|':
			return s.finish(start, Pipe)
		case '^':
			return s.finish(start, Caret)
		case '~':
			return s.finish(start, Tilde)
		case '!':
			return s.finish(start, Bang)
		default:
			return s.errorToken(start, DiagnosticUnknownCharacter, fmt.Sprintf("unknown character %q", b))
		}
	}
}

var preprocessorKeywords = map[string]bool{
	"include": true, "define": true, "undef": true, "if": true, "ifdef": true,
	"ifndef": true, "else": true, "elif": true, "endif": true, "line": true,
}

// wordAfterHash returns the run of letters directly after the '#' at s.i.
func (s *scanner) wordAfterHash() string {
	j := s.i + 1
	for j < len(s.src) && (s.src[j] >= 'a' && s.src[j] <= 'z' || s.src[j] >= 'A' && s.src[j] <= 'Z') {
		j++
	}
	return string(s.src[s.i+1 : j])
}

// tryScanSlashKeyword looks ahead for one of the '/name/' directives
// (/dts-v1/, /memreserve/, /include/, /delete-node/, /delete-property/)
// without committing if the pattern doesn't match a known keyword, so the
// caller can fall back to treating '/' as a plain division/path token.
func (s *scanner) tryScanSlashKeyword() (TokenKind, bool) {
	j := s.i + 1
	for j < len(s.src) && isSlashKeywordChar(s.src[j]) {
		j++
	}
	if j >= len(s.src) || s.src[j] != '/' {
		return Error, false
	}
	word := string(s.src[s.i : j+1])
	kind, ok := slashKeywords[word]
	if !ok {
		return Error, false
	}
	for s.i <= j {
		s.advanceByte()
	}
	return kind, true
}

func (s *scanner) scanToEndOfLine() {
	for !s.eof() && s.src[s.i] != '\n' && s.src[s.i] != '\r' {
		s.advanceByte()
	}
}

func (s *scanner) scanBlockComment(start text.Pos) Token {
	s.advanceByte() // '/'
	s.advanceByte() // '*'
	for !s.eof() {
		if s.src[s.i] == '*' && s.peekByte(1) == '/' {
			s.advanceByte()
			s.advanceByte()
			return s.finish(start, BlockComment)
		}
		s.advanceByte()
	}
	return s.errorToken(start, DiagnosticUnterminatedBlockComment, "unterminated block comment")
}

func (s *scanner) scanString(start text.Pos) Token {
	s.advanceByte() // opening quote
	for !s.eof() {
		switch s.src[s.i] {
		case '"':
			s.advanceByte()
			return s.finish(start, String)
		case '\\':
			s.advanceByte()
			if !s.eof() {
				s.advanceByte()
			}
		case '\n':
			return s.unterminatedStringToken(start)
		default:
			s.advanceByte()
		}
	}
	return s.unterminatedStringToken(start)
}

// unterminatedStringToken closes out a string that hit end-of-line or
// end-of-file without a closing quote. Per spec, this is still a String
// token (carrying FlagUnterminated) rather than an Error token, so the
// parser can consume it as a property value while the diagnostic still
// surfaces the syntax error.
func (s *scanner) unterminatedStringToken(start text.Pos) Token {
	tok := s.finishFlagged(start, String, FlagUnterminated)
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Code:    DiagnosticUnterminatedString,
		Message: "unterminated string literal",
		Pos:     tok.Pos,
	})
	return tok
}

func (s *scanner) scanNumber(start text.Pos) Token {
	if s.src[s.i] == '0' && (s.peekByte(1) == 'x' || s.peekByte(1) == 'X') {
		s.advanceByte()
		s.advanceByte()
		for !s.eof() && isHexDigit(s.src[s.i]) {
			s.advanceByte()
		}
		return s.finish(start, Integer)
	}
	for !s.eof() && isDigit(s.src[s.i]) {
		s.advanceByte()
	}
	return s.finish(start, Integer)
}

func (s *scanner) errorToken(start text.Pos, code DiagnosticCode, msg string) Token {
	tok := s.finishFlagged(start, Error, FlagMalformed)
	s.diagnostics = append(s.diagnostics, Diagnostic{Code: code, Message: msg, Pos: tok.Pos})
	return tok
}

func (s *scanner) eof() bool { return s.i >= len(s.src) }

func (s *scanner) peekByte(delta int) byte {
	j := s.i + delta
	if j < 0 || j >= len(s.src) {
		return 0
	}
	return s.src[j]
}

func (s *scanner) advanceByte() byte {
	b := s.src[s.i]
	s.i++
	if b == '\n' {
		s.line++
		s.col = 0
	} else {
		s.col++
	}
	return b
}

func isHorizontalSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentPart(b byte) bool {
	switch {
	case isIdentStart(b), isDigit(b):
		return true
	case b == ',' || b == '.' || b == '+' || b == '-':
		return true
	default:
		return false
	}
}

func isSlashKeywordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '-'
}
