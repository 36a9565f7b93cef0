// Package parser implements a hand-rolled, panic-mode recovering
// recursive-descent parser for Devicetree Source text. It never returns a
// bare error for malformed input: every input, however broken, yields a
// RootDoc plus a finite diagnostic list.
package parser

import (
	"strconv"
	"strings"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/text"
)

// Result is the output of parsing one source file.
type Result struct {
	Root        *ast.RootDoc
	Tokens      []lexer.Token
	Diagnostics []diag.Diagnostic
}

// ParseSource lexes and parses src in one pass. uri identifies the source
// for diagnostics and for the RootDoc itself; it is not resolved against
// the filesystem here (that is internal/source's job).
func ParseSource(uri string, src []byte) Result {
	lexRes := lexer.Lex(src)

	p := &parser{uri: uri, tokens: lexRes.Tokens}
	for i, tok := range lexRes.Tokens {
		if !tok.IsTrivia() {
			p.sig = append(p.sig, i)
		}
	}
	if len(p.sig) == 0 {
		// Guaranteed to exist: Lex always appends a final Eof token.
		p.sig = append(p.sig, len(lexRes.Tokens)-1)
	}

	root := p.parseRootDoc()

	diags := make([]diag.Diagnostic, 0, len(lexRes.Diagnostics)+len(p.diags))
	for _, d := range lexRes.Diagnostics {
		diags = append(diags, lexerDiagnostic(uri, d))
	}
	diags = append(diags, p.diags...)

	return Result{Root: root, Tokens: lexRes.Tokens, Diagnostics: diags}
}

func lexerDiagnostic(uri string, d lexer.Diagnostic) diag.Diagnostic {
	kind := diag.UnexpectedToken
	switch d.Code {
	case lexer.DiagnosticUnterminatedString:
		kind = diag.UnterminatedString
	case lexer.DiagnosticUnterminatedBlockComment:
		kind = diag.UnexpectedToken
	}
	return diag.Diagnostic{
		Kinds:    []diag.Kind{kind},
		URI:      uri,
		Range:    text.Range{Start: d.Pos, End: d.Pos.End()},
		Severity: diag.DefaultSeverity(kind),
		Message:  d.Message,
		Source:   "lexer",
	}
}

// parser walks the significant (non-trivia) token subsequence of one file.
type parser struct {
	uri    string
	tokens []lexer.Token // full stream, including trivia; Base.First/Last index into this
	sig    []int         // indices into tokens of non-trivia tokens
	at     int           // index into sig
	diags  []diag.Diagnostic
}

func (p *parser) curTokIdx() int {
	if p.at >= len(p.sig) {
		return len(p.tokens) - 1 // Eof
	}
	return p.sig[p.at]
}

func (p *parser) cur() lexer.Token { return p.tokens[p.curTokIdx()] }

func (p *parser) peekTokIdx(offset int) int {
	i := p.at + offset
	if i < 0 || i >= len(p.sig) {
		return len(p.tokens) - 1
	}
	return p.sig[i]
}

func (p *parser) peek(offset int) lexer.Token { return p.tokens[p.peekTokIdx(offset)] }

func (p *parser) atEof() bool { return p.cur().Kind == lexer.Eof }

func (p *parser) advance() int {
	idx := p.curTokIdx()
	if p.at < len(p.sig) {
		p.at++
	}
	return idx
}

// prevTokIdx returns the index of the last token consumed by advance.
func (p *parser) prevTokIdx() int {
	if p.at == 0 {
		return p.sig[0]
	}
	return p.sig[p.at-1]
}

func (p *parser) addDiag(kind diag.Kind, idx int, msg string) {
	r := ast.RangeOf(p.tokens, tokenNode{idx, idx})
	p.diags = append(p.diags, diag.Diagnostic{
		Kinds:    []diag.Kind{kind},
		URI:      p.uri,
		Range:    r,
		Severity: diag.DefaultSeverity(kind),
		Message:  msg,
		Source:   "parser",
	})
}

func (p *parser) addDiagRange(kind diag.Kind, firstIdx, lastIdx int, msg string) {
	r := ast.RangeOf(p.tokens, tokenNode{firstIdx, lastIdx})
	p.diags = append(p.diags, diag.Diagnostic{
		Kinds:    []diag.Kind{kind},
		URI:      p.uri,
		Range:    r,
		Severity: diag.DefaultSeverity(kind),
		Message:  msg,
		Source:   "parser",
	})
}

// tokenNode adapts a raw (first,last) token-index pair to ast.Node so
// ast.RangeOf can compute a diagnostic's Range without constructing a real
// AST node.
type tokenNode struct{ first, last int }

func (t tokenNode) FirstToken() int                  { return t.first }
func (t tokenNode) LastToken() int                   { return t.last }
func (t tokenNode) LabelAssigns() []*ast.LabelAssign  { return nil }
func (t tokenNode) Children() []ast.Node             { return nil }

// synchronize skips forward to the next synchronization token, per spec's
// panic-mode recovery rule: `;` or `}` at any level, plus `/` when
// stopAtSlash is set (top level only — a nested block has no use for `/`
// as a resync point, and treating it as one there would leave recovery
// stuck on a bare `/` that can never start a valid block declaration).
// The sync token is consumed when it is `;` or `}`; a `/` stop point is
// left in place for the caller to re-dispatch on.
func (p *parser) synchronize(stopAtSlash bool) {
	for {
		k := p.cur().Kind
		if k == lexer.Eof {
			return
		}
		if stopAtSlash && k == lexer.Slash {
			return
		}
		if k == lexer.Semi || k == lexer.RBrace {
			p.advance()
			return
		}
		p.advance()
	}
}

// expectEndStatement checks for a trailing `;` after a declaration whose
// last consumed token is lastIdx. If present, it is consumed and becomes
// the new last token; if absent, an END_STATEMENT diagnostic is recorded
// against lastIdx and lastIdx is returned unchanged.
func (p *parser) expectEndStatement(lastIdx int) int {
	if p.cur().Kind == lexer.Semi {
		return p.advance()
	}
	p.addDiag(diag.EndStatement, lastIdx, "expected ';' after declaration")
	return lastIdx
}

func (p *parser) parseRootDoc() *ast.RootDoc {
	root := &ast.RootDoc{URI: p.uri}
	root.First = p.curTokIdx()

	for !p.atEof() {
		decl := p.parseTopLevelDecl(root)
		if decl != nil {
			root.Declarations = append(root.Declarations, decl)
		}
	}
	root.Last = p.curTokIdx() // the Eof token
	return root
}

// parseLabels consumes zero or more `name:` prefixes.
func (p *parser) parseLabels() []*ast.LabelAssign {
	var labels []*ast.LabelAssign
	for p.cur().Kind == lexer.Identifier && p.peek(1).Kind == lexer.Colon {
		startIdx := p.advance() // identifier
		name := p.tokens[startIdx].Text
		colonIdx := p.advance() // colon
		labels = append(labels, &ast.LabelAssign{
			Base: ast.Base{First: startIdx, Last: colonIdx},
			Name: name,
		})
	}
	return labels
}

func (p *parser) parseTopLevelDecl(root *ast.RootDoc) ast.Node {
	labels := p.parseLabels()

	switch p.cur().Kind {
	case lexer.DtsV1:
		idx := p.advance()
		p.expectEndStatement(idx)
		root.DtsVersion = true
		return nil
	case lexer.MemReserve:
		p.advance()
		addr := p.parseIntegerValue()
		size := p.parseIntegerValue()
		idx := p.prevTokIdx()
		p.expectEndStatement(idx)
		root.MemReserves = append(root.MemReserves, ast.MemReserve{Address: addr, Size: size})
		return nil
	case lexer.IncludeDirective:
		p.advance()
		if p.cur().Kind == lexer.String {
			root.Includes = append(root.Includes, unquote(p.cur().Text))
			p.advance()
		}
		p.expectEndStatement(p.prevTokIdx())
		return nil
	case lexer.Directive:
		root.Directives = append(root.Directives, p.cur().Text)
		p.advance()
		return nil
	case lexer.Slash:
		if p.peek(1).Kind == lexer.LBrace {
			return p.parseDtcRootNode(labels)
		}
		p.unexpectedToken("expected '/{' root node", true)
		return nil
	case lexer.Amp:
		return p.parseDtcRefNode(labels)
	case lexer.DeleteNodeKw:
		return p.parseDeleteNode(labels)
	case lexer.DeletePropertyKw:
		return p.parseDeleteProperty(labels)
	case lexer.Identifier:
		return p.parseProperty(labels)
	case lexer.Eof:
		return nil
	default:
		p.unexpectedToken("unexpected token at top level", true)
		return nil
	}
}

func (p *parser) unexpectedToken(msg string, stopAtSlash bool) {
	idx := p.curTokIdx()
	p.addDiag(diag.UnexpectedToken, idx, msg)
	p.synchronize(stopAtSlash)
}

func (p *parser) parseDtcRootNode(labels []*ast.LabelAssign) *ast.DtcRootNode {
	firstIdx := p.advance() // '/'
	p.advance()             // '{'

	body, closeIdx := p.parseBlockBody()
	lastIdx := closeIdx
	if closeIdx < 0 {
		lastIdx = p.prevTokIdx()
	}
	lastIdx = p.expectEndStatement(lastIdx)

	return &ast.DtcRootNode{
		Base: ast.Base{First: firstIdx, Last: lastIdx, Labels: labels},
		Body: body,
	}
}

func (p *parser) parseDtcRefNode(labels []*ast.LabelAssign) *ast.DtcRefNode {
	ampIdx := p.advance() // '&'
	ref := p.parseLabelRefFrom(ampIdx)

	if p.cur().Kind != lexer.LBrace {
		p.addDiag(diag.MissingBrace, p.prevTokIdx(), "expected '{' after label reference")
		return &ast.DtcRefNode{Base: ast.Base{First: ampIdx, Last: p.prevTokIdx(), Labels: labels}, Ref: ref}
	}
	p.advance() // '{'
	body, closeIdx := p.parseBlockBody()
	lastIdx := closeIdx
	if closeIdx < 0 {
		lastIdx = p.prevTokIdx()
	}
	lastIdx = p.expectEndStatement(lastIdx)

	return &ast.DtcRefNode{
		Base: ast.Base{First: ampIdx, Last: lastIdx, Labels: labels},
		Ref:  ref,
		Body: body,
	}
}

// parseLabelRefFrom parses the identifier following an already-consumed
// '&' token at ampIdx.
func (p *parser) parseLabelRefFrom(ampIdx int) *ast.LabelRef {
	if p.cur().Kind != lexer.Identifier {
		p.addDiag(diag.UnexpectedToken, ampIdx, "expected label name after '&'")
		return &ast.LabelRef{Base: ast.Base{First: ampIdx, Last: ampIdx}}
	}
	nameIdx := p.advance()
	return &ast.LabelRef{
		Base: ast.Base{First: ampIdx, Last: nameIdx},
		Name: p.tokens[nameIdx].Text,
	}
}

// parseBlockBody parses Property|ChildNode|DeleteNode|DeleteProperty
// declarations until a closing '}' or Eof. It returns the closing brace's
// token index, or -1 if the block was never closed (Eof reached).
func (p *parser) parseBlockBody() ([]ast.Node, int) {
	var decls []ast.Node
	for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.Eof {
		decl := p.parseBlockDecl()
		if decl != nil {
			decls = append(decls, decl)
		}
	}
	if p.cur().Kind == lexer.RBrace {
		return decls, p.advance()
	}
	p.addDiag(diag.MissingBrace, p.prevTokIdx(), "expected '}' to close block")
	return decls, -1
}

func (p *parser) parseBlockDecl() ast.Node {
	labels := p.parseLabels()

	switch p.cur().Kind {
	case lexer.Amp:
		// A '&label' inside a block body, with or without a following '{',
		// is a malformed nested ref; DTS does not allow ref nodes to nest,
		// so treat it as an error and recover.
		p.unexpectedToken("reference nodes cannot nest inside a block", false)
		return nil
	case lexer.DeleteNodeKw:
		return p.parseDeleteNode(labels)
	case lexer.DeletePropertyKw:
		return p.parseDeleteProperty(labels)
	case lexer.Identifier:
		return p.parseIdentifierLedDecl(labels)
	case lexer.RBrace, lexer.Eof:
		return nil
	default:
		p.unexpectedToken("unexpected token in block", false)
		return nil
	}
}

// parseIdentifierLedDecl disambiguates a child node ("name[@addr] {...};")
// from a property ("name = values;" or "name;") by looking ahead past the
// optional node-name address for a '{'.
func (p *parser) parseIdentifierLedDecl(labels []*ast.LabelAssign) ast.Node {
	if p.looksLikeChildNode() {
		return p.parseDtcChildNode(labels)
	}
	return p.parseProperty(labels)
}

func (p *parser) looksLikeChildNode() bool {
	offset := 1
	if p.peek(offset).Kind == lexer.At {
		offset++
		for p.peek(offset).Kind == lexer.Integer || p.peek(offset).Kind == lexer.Identifier {
			offset++
		}
	}
	return p.peek(offset).Kind == lexer.LBrace
}

func (p *parser) parseDtcChildNode(labels []*ast.LabelAssign) *ast.DtcChildNode {
	name := p.parseNodeName()

	if p.cur().Kind != lexer.LBrace {
		p.addDiag(diag.MissingBrace, p.prevTokIdx(), "expected '{' after node name")
		return &ast.DtcChildNode{Base: ast.Base{First: name.First, Last: p.prevTokIdx(), Labels: labels}, Name: name}
	}
	p.advance() // '{'
	body, closeIdx := p.parseBlockBody()
	lastIdx := closeIdx
	if closeIdx < 0 {
		lastIdx = p.prevTokIdx()
	}
	lastIdx = p.expectEndStatement(lastIdx)

	return &ast.DtcChildNode{
		Base: ast.Base{First: name.First, Last: lastIdx, Labels: labels},
		Name: name,
		Body: body,
	}
}

// parseNodeName parses `identifier[@address]`, applying the NODE_ADDRESS
// and NODE_NAME_ADDRESS_WHITE_SPACE recovery rules from spec §4.3.
func (p *parser) parseNodeName() *ast.NodeName {
	nameIdx := p.advance()
	n := &ast.NodeName{Base: ast.Base{First: nameIdx, Last: nameIdx}, Name: p.tokens[nameIdx].Text}

	if p.cur().Kind != lexer.At {
		return n
	}
	n.HasAt = true
	atIdx := p.advance()
	n.Last = atIdx

	whitespaceBeforeAt := p.tokens[atIdx].Pos.Col != p.tokens[nameIdx].Pos.Col+p.tokens[nameIdx].Pos.Len
	if p.cur().Kind != lexer.Integer {
		p.addDiag(diag.NodeAddress, atIdx, "expected address after '@'")
		return n
	}

	whitespaceAfterAt := p.cur().Pos.Col != atIdx2ColEnd(p.tokens[atIdx])
	addrIdx := p.advance()
	n.Last = addrIdx
	n.HasAddress = true
	n.Address = parseHexAddress(p.tokens[addrIdx].Text)

	if whitespaceBeforeAt || whitespaceAfterAt {
		p.addDiagRange(diag.NodeNameAddressWhitespace, atIdx, addrIdx, "no whitespace allowed around node address '@'")
	}
	return n
}

func atIdx2ColEnd(t lexer.Token) uint32 { return t.Pos.Col + t.Pos.Len }

func parseHexAddress(text string) uint64 {
	v, err := strconv.ParseUint(text, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

func (p *parser) parseDeleteNode(labels []*ast.LabelAssign) *ast.DeleteNode {
	firstIdx := p.advance() // '/delete-node/'

	d := &ast.DeleteNode{Base: ast.Base{First: firstIdx, Last: firstIdx, Labels: labels}}
	switch p.cur().Kind {
	case lexer.Amp:
		ampIdx := p.advance()
		d.Ref = p.parseLabelRefFrom(ampIdx)
		d.Last = d.Ref.Last
	case lexer.Identifier:
		idx := p.advance()
		d.Name = p.tokens[idx].Text
		d.Last = idx
	default:
		p.addDiag(diag.UnexpectedToken, firstIdx, "expected node name or '&label' after /delete-node/")
	}
	d.Last = p.expectEndStatement(d.Last)
	return d
}

func (p *parser) parseDeleteProperty(labels []*ast.LabelAssign) *ast.DeleteProperty {
	firstIdx := p.advance() // '/delete-property/'

	d := &ast.DeleteProperty{Base: ast.Base{First: firstIdx, Last: firstIdx, Labels: labels}}
	if p.cur().Kind == lexer.Identifier {
		idx := p.advance()
		d.Name = p.tokens[idx].Text
		d.Last = idx
	} else {
		p.addDiag(diag.UnexpectedToken, firstIdx, "expected property name after /delete-property/")
	}
	d.Last = p.expectEndStatement(d.Last)
	return d
}

func (p *parser) parseProperty(labels []*ast.LabelAssign) *ast.DtcProperty {
	nameIdx := p.advance()
	prop := &ast.DtcProperty{
		Base:         ast.Base{First: nameIdx, Last: nameIdx, Labels: labels},
		PropertyName: p.tokens[nameIdx].Text,
	}

	if p.cur().Kind == lexer.Equal {
		p.advance()
		prop.Values = p.parsePropertyValueList()
		if len(prop.Values) > 0 {
			prop.Last = prop.Values[len(prop.Values)-1].LastToken()
		}
	}

	prop.Last = p.expectEndStatement(prop.Last)
	return prop
}

func (p *parser) parsePropertyValueList() []ast.PropertyValue {
	var values []ast.PropertyValue
	for {
		v := p.parsePropertyValue()
		if v != nil {
			values = append(values, v)
		}
		if p.cur().Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	return values
}

func (p *parser) parsePropertyValue() ast.PropertyValue {
	switch p.cur().Kind {
	case lexer.String:
		idx := p.advance()
		return &ast.StringValue{Base: ast.Base{First: idx, Last: idx}, Value: unquote(p.tokens[idx].Text)}
	case lexer.LAngle:
		return p.parseArrayValues()
	case lexer.LBracket:
		return p.parseByteString()
	case lexer.Amp:
		return p.parseLabelOrPathValue()
	default:
		idx := p.curTokIdx()
		p.addDiag(diag.UnexpectedToken, idx, "expected a property value")
		p.synchronize(false)
		return nil
	}
}

func (p *parser) parseLabelOrPathValue() ast.PropertyValue {
	ampIdx := p.advance()
	if p.cur().Kind == lexer.LBrace {
		p.advance()
		var path strings.Builder
		for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.Eof {
			path.WriteString(p.cur().Text)
			p.advance()
		}
		lastIdx := p.prevTokIdx()
		if p.cur().Kind == lexer.RBrace {
			lastIdx = p.advance()
		} else {
			p.addDiag(diag.MissingBrace, lastIdx, "expected '}' to close node path reference")
		}
		return &ast.NodePathValue{Base: ast.Base{First: ampIdx, Last: lastIdx}, Path: path.String()}
	}
	ref := p.parseLabelRefFrom(ampIdx)
	return &ast.LabelRefValue{Base: ast.Base{First: ampIdx, Last: ref.Last}, Ref: ref}
}

func (p *parser) parseArrayValues() *ast.ArrayValues {
	firstIdx := p.advance() // '<'
	var cells []ast.Cell

	for p.cur().Kind != lexer.RAngle && p.cur().Kind != lexer.Eof {
		cells = append(cells, p.parseCell())
	}
	lastIdx := p.prevTokIdx()
	if p.cur().Kind == lexer.RAngle {
		lastIdx = p.advance()
	} else {
		p.addDiag(diag.MissingBrace, lastIdx, "expected '>' to close cell array")
	}
	return &ast.ArrayValues{Base: ast.Base{First: firstIdx, Last: lastIdx}, Cells: cells}
}

func (p *parser) parseCell() ast.Cell {
	switch p.cur().Kind {
	case lexer.Amp:
		ampIdx := p.advance()
		if p.cur().Kind == lexer.LBrace {
			p.advance()
			var path strings.Builder
			for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.Eof {
				path.WriteString(p.cur().Text)
				p.advance()
			}
			lastIdx := p.prevTokIdx()
			if p.cur().Kind == lexer.RBrace {
				lastIdx = p.advance()
			}
			return ast.Cell{IsRef: true, Ref: &ast.CellRef{Base: ast.Base{First: ampIdx, Last: lastIdx}, Path: path.String()}}
		}
		ref := p.parseLabelRefFrom(ampIdx)
		return ast.Cell{IsRef: true, Ref: &ast.CellRef{Base: ast.Base{First: ampIdx, Last: ref.Last}, Label: ref.Name}}
	case lexer.LParen:
		depth := 0
		var expr strings.Builder
		for {
			k := p.cur().Kind
			if k == lexer.Eof {
				break
			}
			expr.WriteString(p.cur().Text)
			if k == lexer.LParen {
				depth++
			} else if k == lexer.RParen {
				depth--
			}
			p.advance()
			if depth == 0 {
				break
			}
		}
		return ast.Cell{IsExpr: true, Expr: expr.String()}
	default:
		v := p.parseIntegerValue()
		return ast.Cell{Lit: int64(v)}
	}
}

// parseIntegerValue consumes one Integer token (or Minus-prefixed Integer)
// and returns its value; malformed input yields 0 and a diagnostic.
func (p *parser) parseIntegerValue() uint64 {
	neg := false
	if p.cur().Kind == lexer.Minus {
		neg = true
		p.advance()
	}
	if p.cur().Kind != lexer.Integer {
		p.addDiag(diag.UnexpectedToken, p.curTokIdx(), "expected an integer")
		// Always consume one token here, even though this declaration is
		// malformed: callers (array/cell and memreserve parsing) loop on
		// "not yet at the closing delimiter", and a diagnostic with no
		// forward progress would spin forever on garbage input.
		p.advance()
		return 0
	}
	idx := p.advance()
	v := parseIntegerLiteral(p.tokens[idx].Text)
	if neg {
		return uint64(-int64(v))
	}
	return v
}

func parseIntegerLiteral(text string) uint64 {
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		base = 16
		text = text[2:]
	} else if strings.HasPrefix(text, "0") && len(text) > 1 {
		base = 8
	}
	v, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return 0
	}
	return v
}

func (p *parser) parseByteString() *ast.ByteString {
	firstIdx := p.advance() // '['
	var bytes []byte
	for p.cur().Kind != lexer.RBracket && p.cur().Kind != lexer.Eof {
		if p.cur().Kind == lexer.Integer {
			v := parseHexAddress(p.cur().Text)
			bytes = append(bytes, byte(v))
			p.advance()
			continue
		}
		p.addDiag(diag.UnexpectedToken, p.curTokIdx(), "expected a hex byte pair in bytestring")
		p.advance()
	}
	lastIdx := p.prevTokIdx()
	if p.cur().Kind == lexer.RBracket {
		lastIdx = p.advance()
	} else {
		p.addDiag(diag.MissingBrace, lastIdx, "expected ']' to close bytestring")
	}
	return &ast.ByteString{Base: ast.Base{First: firstIdx, Last: lastIdx}, Bytes: bytes}
}

func unquote(text string) string {
	if len(text) >= 2 && text[0] == '"' {
		inner := text[1 : len(text)-1]
		if len(text) >= 2 && text[len(text)-1] != '"' {
			inner = text[1:]
		}
		unescaped, err := strconv.Unquote(`"` + strings.ReplaceAll(inner, `"`, `\"`) + `"`)
		if err == nil {
			return unescaped
		}
		return inner
	}
	return text
}
