package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/loom/internal/compiler"
	"github.com/kingrea/loom/internal/config"
	"github.com/kingrea/loom/internal/logging"
	"github.com/kingrea/loom/internal/tui"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile one profile into the output tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := wireEngine(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			profile, err := resolveProfile(cmd, cfg)
			if err != nil {
				return err
			}

			report, runErr := compiler.New(cfg, logger).Run(profile)
			if errors.Is(runErr, compiler.ErrValidationFailed) {
				fmt.Fprint(cmd.OutOrStdout(), tui.FormatReport(report.Report))
				return runErr
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.FormatRun(report))
			return runErr
		},
	}
	cmd.Flags().StringP("profile", "p", "", "profile to compile")
	return cmd
}

// wireEngine resolves workspace configuration and the logger from the
// persistent flags.
func wireEngine(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	workspace, _ := cmd.Flags().GetString("workspace")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(verbose, cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// resolveProfile picks the profile from the flag, the workspace default, or
// the interactive picker when attached to a terminal.
func resolveProfile(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
		return profile, nil
	}
	if cfg.DefaultProfile != "" {
		return cfg.DefaultProfile, nil
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", fmt.Errorf("no profile selected: pass --profile or set default_profile in %s", config.ConfigFileName)
	}
	profiles, err := cfg.ListProfiles()
	if err != nil {
		return "", err
	}
	return tui.PickProfile(profiles)
}
