package service

import (
	"regexp"
	"strings"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

// maxDiffCells bounds the LCS table; larger inputs fall back to a single replace hunk.
const maxDiffCells = 1_000_000

var diffTokenRE = regexp.MustCompile(`\s+|[^\s]+`)

type diffOp int

const (
	opEqual diffOp = iota
	opDelete
	opInsert
)

type diffEdit struct {
	op   diffOp
	text string
}

// diffSequences returns an edit script turning a into b using a longest common subsequence.
func diffSequences(a, b []string) []diffEdit {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	edits := make([]diffEdit, 0, len(a)+len(b))
	for _, t := range a[:prefix] {
		edits = append(edits, diffEdit{opEqual, t})
	}
	edits = append(edits, diffMiddle(a[prefix:len(a)-suffix], b[prefix:len(b)-suffix])...)
	for _, t := range a[len(a)-suffix:] {
		edits = append(edits, diffEdit{opEqual, t})
	}
	return edits
}

func diffMiddle(a, b []string) []diffEdit {
	var edits []diffEdit
	if len(a)*len(b) > maxDiffCells || len(a) == 0 || len(b) == 0 {
		for _, t := range a {
			edits = append(edits, diffEdit{opDelete, t})
		}
		for _, t := range b {
			edits = append(edits, diffEdit{opInsert, t})
		}
		return edits
	}

	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			edits = append(edits, diffEdit{opEqual, a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			edits = append(edits, diffEdit{opDelete, a[i]})
			i++
		default:
			edits = append(edits, diffEdit{opInsert, b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		edits = append(edits, diffEdit{opDelete, a[i]})
	}
	for ; j < m; j++ {
		edits = append(edits, diffEdit{opInsert, b[j]})
	}
	return edits
}

// diffHighlights computes word-level added and removed spans between before and after.
func diffHighlights(before, after string) []models.DiffHighlight {
	edits := diffSequences(diffTokenRE.FindAllString(before, -1), diffTokenRE.FindAllString(after, -1))
	var out []models.DiffHighlight
	beforePos, afterPos := 0, 0
	for _, e := range edits {
		switch e.op {
		case opEqual:
			beforePos += len(e.text)
			afterPos += len(e.text)
		case opDelete:
			out = appendHighlight(out, models.DiffRemoved, e.text, beforePos)
			beforePos += len(e.text)
		case opInsert:
			out = appendHighlight(out, models.DiffAdded, e.text, afterPos)
			afterPos += len(e.text)
		}
	}
	return out
}

func appendHighlight(out []models.DiffHighlight, kind models.DiffKind, text string, start int) []models.DiffHighlight {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Kind != kind {
			continue
		}
		if out[i].End == start {
			out[i].Text += text
			out[i].End += len(text)
			return out
		}
		break
	}
	return append(out, models.DiffHighlight{Kind: kind, Text: text, Start: start, End: start + len(text)})
}

// unifiedDiff renders a line-based diff with " ", "-" and "+" prefixes.
func unifiedDiff(before, after string) string {
	edits := diffSequences(strings.Split(before, "\n"), strings.Split(after, "\n"))
	var b strings.Builder
	for _, e := range edits {
		switch e.op {
		case opEqual:
			b.WriteString("  ")
		case opDelete:
			b.WriteString("- ")
		case opInsert:
			b.WriteString("+ ")
		}
		b.WriteString(e.text)
		b.WriteByte('\n')
	}
	return b.String()
}

// affectedSections names the heading each highlighted span falls under.
func affectedSections(before, after string, highlights []models.DiffHighlight) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, h := range highlights {
		text := after
		if h.Kind == models.DiffRemoved {
			text = before
		}
		section := sectionAt(text, h.Start)
		if section == "" {
			continue
		}
		if _, ok := seen[section]; ok {
			continue
		}
		seen[section] = struct{}{}
		out = append(out, section)
	}
	return out
}

// sectionAt returns the heading governing offset, or the heading at offset itself.
func sectionAt(text string, offset int) string {
	if offset > len(text) {
		offset = len(text)
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += offset
	}
	lines := strings.Split(text[:end], "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if isHeadingLine(lines[i]) {
			return headingText(lines[i])
		}
	}
	return ""
}
