package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter produces indented textual dumps of hierarchical structures.
type TreeWriter struct {
	w      *strings.Builder
	indent string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w:      &strings.Builder{},
		indent: "  ",
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) pad(depth int) {
	for range depth {
		tw.w.WriteString(tw.indent)
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Container writes label of an inner node followed by number of leaves
// below it.
func (tw TreeWriter) Container(depth int, label string, leaves int) {
	tw.pad(depth)
	tw.w.WriteString(label)
	if leaves == 1 {
		tw.w.WriteString(" (1 leaf)\n")
		return
	}
	fmt.Fprintf(tw.w, " (%d leafs)\n", leaves)
}

// TextBlock writes label with quoted value, source fragments may contain
// line breaks.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
