package text

import "errors"

// ByteOffset is a byte index into a UTF-8 source buffer.
type ByteOffset int

var errLineOutOfRange = errors.New("line out of range")

// LineIndex maps a UTF-8 source buffer to its line boundaries, so a
// diagnostic renderer can recover one line's text by line number without
// re-scanning the whole buffer.
type LineIndex struct {
	src        []byte
	lineStarts []ByteOffset
}

// NewLineIndex builds an index over src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []ByteOffset{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, ByteOffset(i+1))
		}
	}
	return &LineIndex{
		src:        src,
		lineStarts: starts,
	}
}

// LineCount returns the number of logical lines in the source.
func (li *LineIndex) LineCount() int {
	if li == nil {
		return 0
	}
	return len(li.lineStarts)
}

// LineText returns the content of the given 0-based line, excluding its
// terminator, for rendering source snippets in diagnostics output.
func (li *LineIndex) LineText(line int) (string, bool) {
	if li == nil {
		return "", false
	}
	if err := li.validateLine(line); err != nil {
		return "", false
	}
	start, _, contentEnd := li.lineBounds(line)
	return string(li.src[start:contentEnd]), true
}

func (li *LineIndex) validateLine(line int) error {
	if line < 0 || line >= li.LineCount() {
		return errLineOutOfRange
	}
	return nil
}

func (li *LineIndex) lineBounds(line int) (start ByteOffset, nextStart ByteOffset, contentEnd ByteOffset) {
	start = li.lineStarts[line]
	if line+1 < len(li.lineStarts) {
		nextStart = li.lineStarts[line+1]
	} else {
		nextStart = ByteOffset(len(li.src))
	}
	contentEnd = nextStart
	if contentEnd > start && li.src[contentEnd-1] == '\n' {
		contentEnd--
		if contentEnd > start && li.src[contentEnd-1] == '\r' {
			contentEnd--
		}
	}
	return start, nextStart, contentEnd
}
