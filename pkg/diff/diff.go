package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// GenerateUnifiedDiff renders a line-oriented diff from current to desired content.
// Removed lines carry a "-" prefix, added lines a "+" prefix. Identical inputs
// produce an empty string. Output longer than 10,000 lines is truncated.
func GenerateUnifiedDiff(current, desired []byte, currentLabel, desiredLabel string) string {
	if bytes.Equal(current, desired) {
		return ""
	}

	dmp := diffmatchpatch.New()
	currentChars, desiredChars, lineArray := dmp.DiffLinesToChars(string(current), string(desired))
	diffs := dmp.DiffMain(currentChars, desiredChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s\n", currentLabel)
	fmt.Fprintf(&buf, "+++ %s\n", desiredLabel)
	fmt.Fprintf(&buf, "@@ -1,%d +1,%d @@\n", countLines(current), countLines(desired))

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			buf.WriteString(prefix)
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}

	result := buf.String()
	lines := strings.Split(result, "\n")
	if len(lines) > maxDiffLines {
		truncated := strings.Join(lines[:maxDiffLines], "\n")
		return truncated + "\n" + truncateMessage + "\n"
	}

	return result
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func countLines(content []byte) int {
	return len(splitLines(string(content)))
}
