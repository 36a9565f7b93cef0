// Package lexer provides a lossless, total tokenizer for Devicetree Source
// text: every input character is covered by exactly one token, and the
// stream always terminates in a single Eof token.
package lexer

import (
	"fmt"

	"github.com/devicetree-lang/dts-core/internal/text"
)

// TokenKind identifies the syntactic category of a token.
type TokenKind uint16

// TokenKind values used by the DTS lexer.
const (
	Error TokenKind = iota
	Eof

	// Trivia: whitespace and comments are independent stream tokens, not
	// attached to the following significant token.
	Whitespace
	Newline
	LineComment
	BlockComment

	// A preprocessor line (#include, #define, #undef, #if/#ifdef/#ifndef,
	// #else, #elif, #endif, #line) kept verbatim as one token; this module
	// does not expand macros or resolve conditional branches itself.
	Directive

	Identifier
	Integer
	String

	// DTS's own slash-bracketed directives.
	DtsV1
	MemReserve
	IncludeDirective
	DeleteNodeKw
	DeletePropertyKw

	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	LAngle
	RAngle
	Semi
	Colon
	Comma
	Equal
	Amp
	Slash
	At
	Plus
	Minus
	Star
	Percent
	Pipe
	Caret
	Tilde
	Bang
	ShiftLeft
	ShiftRight
)

func (k TokenKind) String() string {
	switch k {
	case Error:
		return "Error"
	case Eof:
		return "Eof"
	case Whitespace:
		return "Whitespace"
	case Newline:
		return "Newline"
	case LineComment:
		return "LineComment"
	case BlockComment:
		return "BlockComment"
	case Directive:
		return "Directive"
	case Identifier:
		return "Identifier"
	case Integer:
		return "Integer"
	case String:
		return "String"
	case DtsV1:
		return "DtsV1"
	case MemReserve:
		return "MemReserve"
	case IncludeDirective:
		return "IncludeDirective"
	case DeleteNodeKw:
		return "DeleteNodeKw"
	case DeletePropertyKw:
		return "DeletePropertyKw"
	case LBrace:
		return "LBrace"
	case RBrace:
		return "RBrace"
	case LParen:
		return "LParen"
	case RParen:
		return "RParen"
	case LBracket:
		return "LBracket"
	case RBracket:
		return "RBracket"
	case LAngle:
		return "LAngle"
	case RAngle:
		return "RAngle"
	case Semi:
		return "Semi"
	case Colon:
		return "Colon"
	case Comma:
		return "Comma"
	case Equal:
		return "Equal"
	case Amp:
		return "Amp"
	case Slash:
		return "Slash"
	case At:
		return "At"
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	case Star:
		return "Star"
	case Percent:
		return "Percent"
	case Pipe:
		return "Pipe"
	case Caret:
		return "Caret"
	case Tilde:
		return "Tilde"
	case Bang:
		return "Bang"
	case ShiftLeft:
		return "ShiftLeft"
	case ShiftRight:
		return "ShiftRight"
	default:
		return fmt.Sprintf("TokenKind(%d)", uint16(k))
	}
}

// Flags carry metadata about a token's provenance or recovery state.
type Flags uint8

// Flags values.
const (
	FlagMalformed Flags = 1 << iota
	FlagSynthesized
	// FlagUnterminated marks a String token whose closing quote was never
	// found before end-of-line or end-of-file; the lexeme still covers
	// whatever text was consumed, and the parser still treats it as a
	// String value (spec's "tokenized as a String with a trailing
	// 'unterminated' flag consumed later by the parser").
	FlagUnterminated
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Token is a lexed token: its kind, its character-column position, the
// exact source text it covers, and any recovery flags.
type Token struct {
	Kind  TokenKind
	Pos   text.Pos
	Text  string
	Flags Flags
}

// IsTrivia reports whether the token is whitespace, a newline, or a
// comment: callers that only care about significant tokens filter these
// out, but the lexer always emits them so the stream stays total.
func (t Token) IsTrivia() bool {
	switch t.Kind {
	case Whitespace, Newline, LineComment, BlockComment:
		return true
	default:
		return false
	}
}

var slashKeywords = map[string]TokenKind{
	"/dts-v1/":          DtsV1,
	"/memreserve/":      MemReserve,
	"/include/":         IncludeDirective,
	"/delete-node/":     DeleteNodeKw,
	"/delete-property/": DeletePropertyKw,
}
