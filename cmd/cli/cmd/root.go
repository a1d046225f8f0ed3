package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gradefix/internal/config"
)

var cfgFile string

// ErrRunNotSucceeded is returned when a correction finished with errors.
// The summary has already been printed.
var ErrRunNotSucceeded = errors.New("run did not succeed")

var rootCmd = &cobra.Command{
	Use:   "gradefix",
	Short: "gradefix clears late and missing flags on Canvas submissions in bulk",
	Long: `gradefix is a bulk correction tool for Canvas LMS courses.

It walks a course's assignments, quizzes or discussion topics, finds the
submissions Canvas wrongly flags as late or missing, and clears those flags
one submission at a time. Every run ends with a summary of what was
attempted, updated and failed.

Common workflows:

  Clear late penalties on every assignment of a course:
    gradefix fix-late 1234

  Clear missing flags on one quiz, straight from its page URL:
    gradefix remove-missing https://school.instructure.com/courses/1234/quizzes/56

  Run the combined labels mode and revert earlier corrections:
    gradefix labels 1234 --late --reset

  Show recent runs:
    gradefix history 1234

Configuration:
  Set the Canvas host and credentials via flags, environment variables, a
  .env file or a config file:
    GRADEFIX_CANVAS_URL      Canvas host (also CANVAS_URL)
    GRADEFIX_CANVAS_TOKEN    API access token (also CANVAS_TOKEN)
    GRADEFIX_SESSION_COOKIE  Browser session cookie, instead of a token
    GRADEFIX_CSRF_TOKEN      CSRF token for session writes
    GRADEFIX_SERVER          Send runs to a gradefix service instead`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)
	bindFlags(v)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".gradefix"
		viper.AddConfigPath(home)
		viper.SetConfigName(".gradefix")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags maps persistent flags onto configuration keys.
func bindFlags(v *viper.Viper) {
	flags := rootCmd.PersistentFlags()
	v.BindPFlag("canvas_url", flags.Lookup("url"))
	v.BindPFlag("canvas_token", flags.Lookup("token"))
	v.BindPFlag("server", flags.Lookup("server"))
	v.BindPFlag("service_token", flags.Lookup("service-token"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gradefix.yaml)")
	flags.String("url", "", "Canvas host, e.g. https://school.instructure.com")
	flags.StringP("token", "t", "", "Canvas API access token")
	flags.String("server", "", "gradefix service URL; runs locally when empty")
	flags.String("service-token", "", "bearer token of the gradefix service")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	bindFlags(viper.GetViper())
}
