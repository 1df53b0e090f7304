// Package diff renders the drift between a generated file on disk and the
// output weightgen would write now. It backs `weightgen gen --check`.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line is a single line in a hunk.
type Line struct {
	Content string
	Type    LineType
}

// Hunk is a group of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff is the drift of one generated file.
type FileDiff struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// Empty reports whether the two sides are identical.
func (d *FileDiff) Empty() bool { return len(d.Hunks) == 0 }

// Engine computes line diffs.
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewEngine creates an engine with the given number of context lines.
func NewEngine(contextLines int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp, context: contextLines}
}

// DefaultEngine uses three lines of context.
var DefaultEngine = NewEngine(3)

// Compute is a convenience wrapper around DefaultEngine.Compute.
func Compute(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return DefaultEngine.Compute(oldPath, newPath, oldContent, newContent)
}

// Compute diffs two texts line by line.
func (e *Engine) Compute(oldPath, newPath, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{OldPath: oldPath, NewPath: newPath}
	if oldContent == newContent {
		return fd
	}

	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	fd.Hunks = e.group(toOperations(diffs))
	return fd
}

type operation struct {
	typ     LineType
	oldLine int // 0-based, -1 for additions
	newLine int // 0-based, -1 for removals
	content string
}

func toOperations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, operation{LineContext, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, operation{LineRemoved, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, operation{LineAdded, -1, newLine, line})
				newLine++
			}
		}
	}
	return ops
}

// group splits operations into hunks, keeping e.context lines around each
// change and merging changes whose context overlaps.
func (e *Engine) group(ops []operation) []Hunk {
	var changes []int
	for i, op := range ops {
		if op.typ != LineContext {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var hunks []Hunk
	start := max(changes[0]-e.context, 0)
	end := min(changes[0]+e.context, len(ops)-1)
	for _, c := range changes[1:] {
		if c-e.context <= end+1 {
			end = min(c+e.context, len(ops)-1)
			continue
		}
		hunks = append(hunks, makeHunk(ops[start:end+1]))
		start = max(c-e.context, 0)
		end = min(c+e.context, len(ops)-1)
	}
	return append(hunks, makeHunk(ops[start:end+1]))
}

func makeHunk(ops []operation) Hunk {
	h := Hunk{OldStart: -1, NewStart: -1}
	for _, op := range ops {
		if op.oldLine >= 0 && h.OldStart < 0 {
			h.OldStart = op.oldLine + 1
		}
		if op.newLine >= 0 && h.NewStart < 0 {
			h.NewStart = op.newLine + 1
		}
		if op.typ != LineAdded {
			h.OldCount++
		}
		if op.typ != LineRemoved {
			h.NewCount++
		}
		h.Lines = append(h.Lines, Line{Content: op.content, Type: op.typ})
	}
	if h.OldStart < 0 {
		h.OldStart = 0
	}
	if h.NewStart < 0 {
		h.NewStart = 0
	}
	return h
}

// Unified renders the diff in unified format.
func (d *FileDiff) Unified() string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", d.OldPath, d.NewPath)
	for _, h := range d.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				b.WriteString("+")
			case LineRemoved:
				b.WriteString("-")
			default:
				b.WriteString(" ")
			}
			b.WriteString(l.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
