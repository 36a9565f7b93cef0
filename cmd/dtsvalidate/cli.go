// Command dtsvalidate parses one or more Devicetree Source files, merges
// them into a single RuntimeTree via the ContextBuilder, validates the
// result against the standard PropertyBinding catalogue, and reports every
// diagnostic collected along the way (spec §6.1-§6.2).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"github.com/devicetree-lang/dts-core/internal/bindings"
	"github.com/devicetree-lang/dts-core/internal/cache"
	"github.com/devicetree-lang/dts-core/internal/context"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/parser"
	"github.com/devicetree-lang/dts-core/internal/source"
	"github.com/devicetree-lang/dts-core/internal/text"
	"github.com/devicetree-lang/dts-core/internal/validate"
)

const (
	exitOK       = 0
	exitIssues   = 1
	exitInternal = 3

	outputFormatText = "text"
	outputFormatJSON = "json"
)

var description = strings.ReplaceAll(`
dtsvalidate parses Devicetree Source files, folds them into one logical
device tree following DTS override and deletion semantics, and validates
every property against the standard binding catalogue. It never fails
outright on malformed input: syntax errors, unresolved references, and
binding violations are reported as diagnostics.
`, "\n", " ")

var app = cli.New(description).
	WithArg(cli.NewArg("inputs", "Devicetree source files to validate, in include order").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("format", "diagnostic output format: text|json").
		WithType(cli.TypeString)).
	WithAction(func(args []string, options map[string]string) int {
		format := options["format"]
		if format == "" {
			format = outputFormatText
		}
		return run(context.Background(), os.Stdout, os.Stderr, args, format)
	})

func main() { os.Exit(app.Run(os.Args, os.Stdout)) }

type diagnosticJSON struct {
	URI       string `json:"uri"`
	Source    string `json:"source"`
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// run is the testable core of the command: it takes already-parsed
// arguments rather than raw argv, so tests can drive it without going
// through cli.App's own argument grammar.
func run(ctx context.Context, stdout, stderr io.Writer, paths []string, format string) int {
	if len(paths) == 0 {
		writef(stderr, "dtsvalidate: at least one input file is required\n")
		return exitInternal
	}
	if format != outputFormatText && format != outputFormatJSON {
		writef(stderr, "dtsvalidate: --format must be one of: text, json\n")
		return exitInternal
	}

	provider := source.OS{}
	c := cache.New(parser.CacheParseFunc)

	var files []context.FileResult
	sources := make(map[string][]byte, len(paths))
	var diags []diag.Diagnostic

	for _, uri := range paths {
		// Drive the parse through parser.Handle, the public one-shot-future
		// surface spec §4.3/§6.1 describes, rather than calling the cache
		// directly; Wait surfaces an unreadable source as a fatal error,
		// never a fabricated diagnostic.
		outcome, err := parser.New(c, provider, uri, nil, nil).Wait(ctx)
		if err != nil {
			writef(stderr, "dtsvalidate: %v\n", err)
			return exitInternal
		}
		diags = append(diags, outcome.Issues...)

		entry := c.Peek(uri)
		files = append(files, context.FileResult{Root: outcome.RootDocument, Tokens: entry.Tokens})

		if src, err := provider.Read(ctx, uri); err == nil {
			sources[uri] = src
		}
	}

	tree, contextDiags := context.Build(ctx, files)
	diags = append(diags, contextDiags...)

	tokensByURI := make(map[string][]lexer.Token, len(files))
	for i, f := range files {
		tokensByURI[paths[i]] = f.Tokens
	}
	validateDiags := validate.Validate(ctx, tree, func(uri string) []lexer.Token {
		return tokensByURI[uri]
	}, bindings.Standard())
	diags = append(diags, validateDiags...)

	diag.SortDiagnostics(diags)

	if len(diags) == 0 {
		return exitOK
	}

	var err error
	switch format {
	case outputFormatJSON:
		err = writeJSONDiagnostics(stdout, diags)
	default:
		writeTextDiagnostics(stderr, sources, diags)
	}
	if err != nil {
		writef(stderr, "dtsvalidate: %v\n", err)
		return exitInternal
	}
	return exitIssues
}

func writeTextDiagnostics(w io.Writer, sources map[string][]byte, diags []diag.Diagnostic) {
	for i, d := range diags {
		if i > 0 {
			writeln(w)
		}
		writeDiagnosticHeader(w, d)
		writeDiagnosticSnippet(w, sources[d.URI], d)
	}
}

func writeDiagnosticHeader(w io.Writer, d diag.Diagnostic) {
	kind := ""
	if len(d.Kinds) > 0 {
		kind = d.Kinds[0].String()
	}
	writef(w, "%s:%d:%d: %s: %s/%s: %s\n",
		d.URI, d.Range.Start.Line+1, d.Range.Start.Col+1,
		severityLetter(d.Severity), d.Source, kind, d.Message)
}

func writeDiagnosticSnippet(w io.Writer, src []byte, d diag.Diagnostic) {
	if src == nil {
		return
	}
	line, ok := lineAt(src, int(d.Range.Start.Line))
	if !ok {
		return
	}
	runes := []rune(line)
	startCol := clampInt(int(d.Range.Start.Col), 0, len(runes))
	width := 1
	if d.Range.End.Line == d.Range.Start.Line && d.Range.End.Col > d.Range.Start.Col {
		width = clampInt(int(d.Range.End.Col), startCol, len(runes)) - startCol
		if width == 0 {
			width = 1
		}
	}
	writeln(w, line)
	writeString(w, caretPrefix(runes, startCol))
	writeString(w, strings.Repeat("^", width))
	writeln(w)
}

func lineAt(src []byte, lineNo int) (string, bool) {
	return text.NewLineIndex(src).LineText(lineNo)
}

func caretPrefix(runes []rune, col int) string {
	var b strings.Builder
	for i := 0; i < col && i < len(runes); i++ {
		if runes[i] == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteByte(' ')
	}
	return b.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func writeJSONDiagnostics(w io.Writer, diags []diag.Diagnostic) error {
	payload := make([]diagnosticJSON, 0, len(diags))
	for _, d := range diags {
		kind := ""
		if len(d.Kinds) > 0 {
			kind = d.Kinds[0].String()
		}
		payload = append(payload, diagnosticJSON{
			URI:       d.URI,
			Source:    d.Source,
			Kind:      kind,
			Severity:  d.Severity.String(),
			Message:   d.Message,
			StartLine: int(d.Range.Start.Line) + 1,
			StartCol:  int(d.Range.Start.Col) + 1,
			EndLine:   int(d.Range.End.Line) + 1,
			EndCol:    int(d.Range.End.Col) + 1,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func severityLetter(s diag.Severity) string {
	switch s {
	case diag.SeverityError:
		return "E"
	case diag.SeverityWarning:
		return "W"
	case diag.SeverityInformation:
		return "I"
	case diag.SeverityHint:
		return "H"
	default:
		return "E"
	}
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = io.WriteString(w, fmt.Sprintf(format, args...))
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

func writeString(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}
