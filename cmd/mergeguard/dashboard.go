package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDashboardCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Render a one-line-per-proposal risk overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			engine, _, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			reports, err := engine.AnalyzeAll(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Print(themeForTerminal().RenderDashboard(reports))
			return nil
		},
	}
}
