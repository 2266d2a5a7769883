// Command sheetconv converts CSV and Excel files to SQL, ORM or JSON scripts
// without the web UI.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/sheetconv/internal/config"
	"github.com/JonMunkholm/sheetconv/internal/core"
	"github.com/JonMunkholm/sheetconv/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitUsage      = 2
	exitValidation = 3
)

// codedError carries the process exit code for an error.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// exactArgs is cobra.ExactArgs reporting a usage exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return withCode(exitUsage, cobra.ExactArgs(n)(cmd, args))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitError
}

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	stdout io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	var (
		logLevel string
		profile  string
	)

	root := &cobra.Command{
		Use:           "sheetconv",
		Short:         "Convert CSV and Excel files into migration scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; real env vars win over it.
			_ = godotenv.Load()

			if profile != "" {
				os.Setenv("EXPORT_PROFILE", profile)
			}
			cfg, err := config.Load()
			if err != nil {
				return withCode(exitUsage, err)
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

			a.cfg = cfg
			a.stdout = cmd.OutOrStdout()
			return nil
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	root.PersistentFlags().StringVar(&profile, "profile", "", "HCL export profile (default from EXPORT_PROFILE)")

	root.AddCommand(
		newSheetsCmd(a),
		newPreviewCmd(a),
		newValidateCmd(a),
		newGenerateCmd(a),
		newProfileCmd(a),
	)
	return root
}

func main() {
	a := &app{}
	root := newRootCmd(a)

	err := root.Execute()
	if err != nil {
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintln(os.Stderr, "error:", msg)
		slog.Debug("command failed", "error", err)
	}
	os.Exit(exitCode(err))
}
