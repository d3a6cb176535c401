package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/loom/internal/compiler"
	"github.com/kingrea/loom/internal/tui"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate one profile manifest without writing anything",
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

			report, err := compiler.New(cfg, logger).Validate(profile)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.FormatReport(report))
			if !report.IsValid() {
				return fmt.Errorf("profile %s failed validation", profile)
			}
			return nil
		},
	}
	cmd.Flags().StringP("profile", "p", "", "profile to validate")
	return cmd
}
