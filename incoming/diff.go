package incoming

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// context lines printed around every change in preview
const previewContext = 2

// Preview returns line based difference of what Apply would write without
// touching the sources. Errors of changes which cannot be applied are
// returned as well.
func (s *Session) Preview(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	o := s.prepare(s.ix.Snapshot())

	files := make([]string, 0, len(o.contents))
	for f := range o.contents {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return natural.Less(files[i], files[j]) })

	var b strings.Builder
	for _, f := range files {
		name := f
		if rel, err := filepath.Rel(s.ix.Root(), f); err == nil {
			name = filepath.ToSlash(rel)
		}
		fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", name, name)
		b.WriteString(lineDiff(string(o.original[f]), string(o.contents[f])))
	}
	return b.String(), o.failed
}

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// lineDiff produces compact unified-like difference with hunks separated by
// "@@" lines.
func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var all []diffLine
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for l := range strings.SplitSeq(text, "\n") {
			all = append(all, diffLine{op: d.Type, text: l})
		}
	}

	// mark lines within context distance of a change
	show := make([]bool, len(all))
	for i, l := range all {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-previewContext); j <= min(len(all)-1, i+previewContext); j++ {
			show[j] = true
		}
	}

	var (
		sb      strings.Builder
		skipped = true
	)
	for i, l := range all {
		if !show[i] {
			skipped = true
			continue
		}
		if skipped {
			sb.WriteString("@@\n")
			skipped = false
		}
		switch l.op {
		case diffmatchpatch.DiffInsert:
			sb.WriteByte('+')
		case diffmatchpatch.DiffDelete:
			sb.WriteByte('-')
		default:
			sb.WriteByte(' ')
		}
		sb.WriteString(l.text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
