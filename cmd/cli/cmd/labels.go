package cmd

import "gradefix/internal/pipeline"

var labelsCmd = newCorrectionCmd(pipeline.Legacy, "labels",
	"Clear or reset late and missing labels in one pass",
	`The combined mode. Handles missing and late labels together, fetches
submissions for several assignments per request and always leaves excused
submissions alone.

  --missing       clear missing labels (default on)
  --zero-missing  treat any non-zero score as graded (default on)
  --null-missing  treat an empty score as graded
  --late          clear late labels
  --reset         revert earlier corrections to the Canvas defaults

Examples:
  gradefix labels 1234
  gradefix labels 1234 --late --missing=false
  gradefix labels 1234 --late --reset`)

func init() {
	defaults := pipeline.DefaultLegacyOptions()
	flags := labelsCmd.Flags()
	flags.Bool("missing", defaults.Missing, "clear missing labels")
	flags.Bool("null-missing", defaults.NullMissing, "treat an empty score as graded")
	flags.Bool("zero-missing", defaults.ZeroMissing, "treat any non-zero score as graded")
	flags.Bool("late", defaults.Late, "clear late labels")
	flags.Bool("reset", defaults.Reset, "revert labels to the Canvas defaults")

	rootCmd.AddCommand(labelsCmd)
}
