package main

import (
	"fmt"
	"strconv"
	"strings"

	"shortsadmin/internal/api"
)

const progressBarWidth = 20

func formatCredit(value *int64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatInt(*value, 10)
}

func formatSize(size *int64) string {
	if size == nil {
		return "-"
	}
	const unit = 1024
	n := *size
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatProgress renders a bar with the whole percentage. Indeterminate
// progress renders nothing.
func formatProgress(p api.Progress) string {
	if !p.Known {
		return ""
	}
	whole := p.Whole()
	filled := whole * progressBarWidth / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(".", progressBarWidth-filled), whole)
}

// formatPercentCell is the compact list-view form.
func formatPercentCell(p api.Progress) string {
	if !p.Known {
		return ""
	}
	return strconv.Itoa(p.Whole()) + "%"
}

// pageFooter describes the window shown and how to reach its neighbours.
func pageFooter[T any](page api.Page[T]) string {
	first, last := page.Range()
	if page.Total == 0 || first == 0 {
		return fmt.Sprintf("No results (total %d)", page.Total)
	}
	parts := []string{fmt.Sprintf("Showing %d-%d of %d", first, last, page.Total)}
	if page.HasPrev() {
		parts = append(parts, fmt.Sprintf("prev: --offset %d", max(page.Offset-page.Limit, 0)))
	}
	if page.HasNext() {
		parts = append(parts, fmt.Sprintf("next: --offset %d", page.Offset+page.Limit))
	}
	return strings.Join(parts, "  ")
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
