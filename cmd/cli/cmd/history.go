package cmd

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gradefix/internal/pipeline"
	"gradefix/internal/store"
	"gradefix/internal/store/postgres"
	"gradefix/pkg/api"
)

var errNoHistory = errors.New("no run history configured: set --server or GRADEFIX_DATABASE_URL")

var historyCmd = &cobra.Command{
	Use:   "history [course-id | course page URL]",
	Short: "List recent correction runs",
	Long: `List the most recent correction runs, newest first, optionally for one
course. Reads from the gradefix service when --server is set, otherwise from
the database in GRADEFIX_DATABASE_URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var courseID int64
		if len(args) == 1 {
			target, err := pipeline.ParseTarget(args[0])
			if err != nil {
				return err
			}
			courseID = target.CourseID
		}
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := loadHistory(cmd.Context(), courseID, limit)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(api.ListRunsResponse{Runs: runs})
		}

		if len(runs) == 0 {
			cmd.Println("No runs recorded.")
			return nil
		}
		printHistory(cmd, runs)
		return nil
	},
}

func loadHistory(ctx context.Context, courseID int64, limit int) ([]api.RunSummary, error) {
	if server := viper.GetString("server"); server != "" {
		return NewServiceClient(server, viper.GetString("service_token")).ListRuns(courseID, limit)
	}

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		return nil, errNoHistory
	}
	history, err := postgres.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	defer history.Close()

	runs, err := history.ListRuns(ctx, store.RunFilter{CourseID: courseID, Limit: limit})
	if err != nil {
		return nil, err
	}
	summaries := make([]api.RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, run.Summary().Report())
	}
	return summaries, nil
}

func init() {
	historyCmd.Flags().Int("limit", store.DefaultListLimit, "number of runs to show")
	historyCmd.Flags().Bool("json", false, "print the runs as JSON")
	rootCmd.AddCommand(historyCmd)
}
