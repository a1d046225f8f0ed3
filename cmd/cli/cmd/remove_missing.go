package cmd

import "gradefix/internal/pipeline"

var removeMissingCmd = newCorrectionCmd(pipeline.RemoveMissing, "remove-missing",
	"Clear the missing flag of submissions that were graded",
	`Walk the course's items and clear the missing flag of submissions that
already carry a grade, or that are zero-point placeholders.

Examples:
  gradefix remove-missing 1234
  gradefix remove-missing 1234 --kind discussion_topics --item 42`)

func init() {
	rootCmd.AddCommand(removeMissingCmd)
}
