package text

import (
	"strings"
)

type LineDiff struct {
	trimSpace bool
}

// NewLineDiff returns a differ that compares text line by line. With trimSpace, surrounding
// whitespace of each line is ignored.
func NewLineDiff(trimSpace bool) *LineDiff {
	return &LineDiff{
		trimSpace: trimSpace,
	}
}

func (h *LineDiff) Calculate(expected string, actual string) *DiffResult {
	beforeLines := h.splitLines(expected)
	afterLines := h.splitLines(actual)

	lcs := h.calculateLCS(beforeLines, afterLines)
	diff, addedCount, removedCount := h.generateDiff(beforeLines, afterLines, lcs)

	totalLines := len(beforeLines) + len(afterLines)

	diffAmount := 0.0
	if totalLines > 0 {
		diffAmount = min(float64(addedCount+removedCount)/float64(totalLines), 1.0)
	}

	return &DiffResult{
		Diff:       diff,
		Changed:    addedCount + removedCount,
		DiffAmount: diffAmount,
	}
}

func (h *LineDiff) splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if h.trimSpace {
		for i := range lines {
			lines[i] = strings.TrimSpace(lines[i])
		}
	}
	return lines
}

func (h *LineDiff) calculateLCS(before, after []string) [][]int {
	m, n := len(before), len(after)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if before[i-1] == after[j-1] {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else {
				lcs[i][j] = max(lcs[i-1][j], lcs[i][j-1])
			}
		}
	}

	return lcs
}

func (h *LineDiff) generateDiff(before, after []string, lcs [][]int) (string, int, int) {
	i, j := len(before), len(after)

	lines := make([]string, 0, i+j)
	addedCount := 0
	removedCount := 0

	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && before[i-1] == after[j-1]:
			lines = append(lines, "  "+before[i-1])
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			lines = append(lines, "+ "+after[j-1])
			j--
			addedCount++
		default:
			lines = append(lines, "- "+before[i-1])
			i--
			removedCount++
		}
	}

	for l, r := 0, len(lines)-1; l < r; l, r = l+1, r-1 {
		lines[l], lines[r] = lines[r], lines[l]
	}

	return strings.Join(lines, "\n"), addedCount, removedCount
}
