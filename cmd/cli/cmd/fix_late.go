package cmd

import "gradefix/internal/pipeline"

var fixLateCmd = newCorrectionCmd(pipeline.FixLate, "fix-late",
	"Clear the late penalty of every late submission",
	`Walk the course's items and clear the late flag of every submission Canvas
marks as late, so no late penalty applies.

Examples:
  gradefix fix-late 1234
  gradefix fix-late https://school.instructure.com/courses/1234/assignments/99
  gradefix fix-late 1234 --kind quizzes --json`)

func init() {
	rootCmd.AddCommand(fixLateCmd)
}
