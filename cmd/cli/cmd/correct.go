package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gradefix/internal/app"
	"gradefix/internal/config"
	"gradefix/internal/logger"
	"gradefix/internal/pipeline"
	"gradefix/pkg/api"
)

// newCorrectionCmd builds one of the correction sub-commands. They differ
// only in their mode and, for labels, the extra switches.
func newCorrectionCmd(mode pipeline.Mode, use, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [course-id | course page URL]",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrection(cmd, mode, args[0])
		},
	}

	flags := cmd.Flags()
	flags.String("kind", "", "item list to walk: assignments, quizzes or discussion_topics (default assignments)")
	flags.Int64("item", 0, "restrict the run to one item id")
	flags.Bool("json", false, "print the summary as JSON")
	return cmd
}

// correctionAction resolves the target argument and flags into an action.
// Explicit flags win over what the URL names.
func correctionAction(cmd *cobra.Command, mode pipeline.Mode, ref string) (pipeline.Action, error) {
	target, err := pipeline.ParseTarget(ref)
	if err != nil {
		return pipeline.Action{}, err
	}

	action := pipeline.Action{
		CourseID: target.CourseID,
		Kind:     target.Kind,
		Mode:     mode,
		ItemID:   target.ItemID,
	}

	flags := cmd.Flags()
	if flags.Changed("kind") {
		raw, _ := flags.GetString("kind")
		kind, err := pipeline.ParseListKind(raw)
		if err != nil {
			return pipeline.Action{}, err
		}
		action.Kind = kind
	}
	if action.Kind == 0 {
		action.Kind = pipeline.Assignments
	}
	if flags.Changed("item") {
		action.ItemID, _ = flags.GetInt64("item")
	}

	if mode == pipeline.Legacy {
		action.Legacy = legacyOptions(cmd)
	}
	return action, nil
}

func legacyOptions(cmd *cobra.Command) pipeline.LegacyOptions {
	flags := cmd.Flags()
	var opts pipeline.LegacyOptions
	opts.Missing, _ = flags.GetBool("missing")
	opts.NullMissing, _ = flags.GetBool("null-missing")
	opts.ZeroMissing, _ = flags.GetBool("zero-missing")
	opts.Late, _ = flags.GetBool("late")
	opts.Reset, _ = flags.GetBool("reset")
	return opts
}

func runCorrection(cmd *cobra.Command, mode pipeline.Mode, ref string) error {
	action, err := correctionAction(cmd, mode, ref)
	if err != nil {
		return err
	}

	var summary api.RunSummary
	if server := viper.GetString("server"); server != "" {
		summary, err = runRemote(server, action)
	} else {
		summary, err = runLocal(cmd.Context(), action)
	}
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(cmd, summary)
	}

	if summary.Outcome != string(pipeline.OutcomeSucceeded) {
		return ErrRunNotSucceeded
	}
	return nil
}

func runLocal(ctx context.Context, action pipeline.Action) (api.RunSummary, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return api.RunSummary{}, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return api.RunSummary{}, err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger.New(level))
	if err != nil {
		return api.RunSummary{}, err
	}
	defer a.Close()

	return a.Coordinator.Run(ctx, action).Report(), nil
}

func runRemote(server string, action pipeline.Action) (api.RunSummary, error) {
	req := api.CreateRunRequest{
		Mode:   action.Mode.String(),
		Kind:   action.Kind.String(),
		ItemID: action.ItemID,
	}
	if action.Mode == pipeline.Legacy {
		req.Legacy = &api.LegacyOptions{
			Missing:     action.Legacy.Missing,
			NullMissing: action.Legacy.NullMissing,
			ZeroMissing: action.Legacy.ZeroMissing,
			Late:        action.Legacy.Late,
			Reset:       action.Legacy.Reset,
		}
	}

	client := NewServiceClient(server, viper.GetString("service_token"))
	summary, err := client.CreateRun(action.CourseID, req)
	if err != nil {
		return api.RunSummary{}, fmt.Errorf("service run failed: %w", err)
	}
	return *summary, nil
}
