package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gradefix/internal/pipeline"
	"gradefix/pkg/api"
)

func printSummary(cmd *cobra.Command, summary api.RunSummary) {
	icon := outcomeIcon(summary.Outcome)
	cmd.Printf("%s %sRun Summary%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sRun:%s         %s\n", colorDim, colorReset, summary.RunID)
	cmd.Printf("%sCourse:%s      %d\n", colorDim, colorReset, summary.CourseID)
	if summary.ItemID != 0 {
		cmd.Printf("%sTarget:%s      %s %d\n", colorDim, colorReset, summary.Kind, summary.ItemID)
	} else {
		cmd.Printf("%sTarget:%s      all %s\n", colorDim, colorReset, summary.Kind)
	}
	cmd.Printf("%sMode:%s        %s\n", colorDim, colorReset, summary.Mode)
	cmd.Printf("%sOutcome:%s     %s\n", colorDim, colorReset, colorizeOutcome(summary.Outcome))

	cmd.Printf("%sAttempted:%s   %d\n", colorDim, colorReset, summary.Attempted)
	cmd.Printf("%sUpdated:%s     %s%d%s\n", colorDim, colorReset, colorGreen, summary.Updated, colorReset)
	if summary.Failed > 0 {
		cmd.Printf("%sFailed:%s      %s%d%s\n", colorDim, colorReset, colorRed, summary.Failed, colorReset)
	} else {
		cmd.Printf("%sFailed:%s      0\n", colorDim, colorReset)
	}
	if summary.Skipped > 0 {
		cmd.Printf("%sSkipped:%s     %s%d%s\n", colorDim, colorReset, colorYellow, summary.Skipped, colorReset)
	}

	if !summary.StartedAt.IsZero() && !summary.FinishedAt.IsZero() {
		cmd.Printf("%sDuration:%s    %s%s%s\n", colorDim, colorReset,
			colorCyan, formatDuration(summary.FinishedAt.Sub(summary.StartedAt)), colorReset)
	}

	total := len(summary.Errors) + summary.SuppressedErrors
	if total == 0 {
		return
	}
	cmd.Printf("\n%sErrors (%d):%s\n", colorBold, total, colorReset)
	for _, message := range summary.Errors {
		cmd.Printf("  %s✗%s %s\n", colorRed, colorReset, message)
	}
	if summary.SuppressedErrors > 0 {
		cmd.Printf("  %s... and %d more%s\n", colorDim, summary.SuppressedErrors, colorReset)
	}
}

func printHistory(cmd *cobra.Command, runs []api.RunSummary) {
	for _, run := range runs {
		cmd.Printf("%s %s  course %d  %-14s %-18s updated %d/%d  %s\n",
			outcomeIcon(run.Outcome),
			run.RunID,
			run.CourseID,
			run.Mode,
			run.Kind,
			run.Updated,
			run.Attempted,
			formatTimeWithRelative(run.StartedAt),
		)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func outcomeIcon(outcome string) string {
	switch pipeline.Outcome(outcome) {
	case pipeline.OutcomeSucceeded:
		return colorGreen + "✓" + colorReset
	case pipeline.OutcomeFailed:
		return colorRed + "✗" + colorReset
	case pipeline.OutcomePartiallyFailed:
		return colorYellow + "!" + colorReset
	default:
		return "•"
	}
}

func colorizeOutcome(outcome string) string {
	icon := outcomeIcon(outcome)
	switch pipeline.Outcome(outcome) {
	case pipeline.OutcomeSucceeded:
		return icon + " " + colorGreen + outcome + colorReset
	case pipeline.OutcomeFailed:
		return icon + " " + colorRed + outcome + colorReset
	case pipeline.OutcomePartiallyFailed:
		return icon + " " + colorYellow + outcome + colorReset
	default:
		return outcome
	}
}

func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
