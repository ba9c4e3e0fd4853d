package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// SweepRow is one line of the end-of-run summary
type SweepRow struct {
	Name        string
	Visited     int
	Selected    int
	Removed     int
	AlreadyGone int
	Failed      int
	Skipped     int
	DryRun      bool
	Duration    time.Duration
}

// Bar renders done out of total as a fixed-width bar
func Bar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
}

// PrintSummary prints one block per sweep
func PrintSummary(rows []SweepRow) {
	if IsQuietMode() {
		return
	}

	for _, row := range rows {
		title := strings.ToUpper(row.Name)
		if row.DryRun {
			title += " (dry run)"
		}
		fmt.Fprintf(out, "\n%s\n", Magenta("["+title+"]"))
		fmt.Fprintf(out, "  %s %d visited, %d selected\n", Cyan("scanned:"), row.Visited, row.Selected)

		if row.DryRun {
			fmt.Fprintf(out, "  %s %d would be removed\n", Yellow("dry run:"), row.Selected)
			continue
		}

		gone := row.Removed + row.AlreadyGone
		fmt.Fprintf(out, "  %s [%s] %d/%d\n", Green("removed:"), Bar(gone, row.Selected), gone, row.Selected)
		if row.AlreadyGone > 0 {
			fmt.Fprintf(out, "  %s %d\n", Dim("already gone:"), row.AlreadyGone)
		}
		if row.Failed > 0 {
			fmt.Fprintf(out, "  %s %d\n", Red("failed: "), row.Failed)
		}
		if row.Skipped > 0 {
			fmt.Fprintf(out, "  %s %d\n", Yellow("skipped:"), row.Skipped)
		}
		fmt.Fprintf(out, "  %s %s\n", Dim("took:"), row.Duration.Round(time.Millisecond))
	}
}
