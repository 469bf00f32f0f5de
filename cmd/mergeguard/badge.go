package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mergeguard/mergeguard"
)

func newBadgeCmd(flags *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "badge <number>",
		Short: "Render an SVG risk badge for a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid proposal number %q", args[0])
			}

			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			engine, _, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := engine.AnalyzeProposal(cmd.Context(), number)
			if err != nil {
				return err
			}

			svg := mergeguard.FormatBadge(report)
			if output == "" {
				fmt.Println(svg)
				return nil
			}
			return os.WriteFile(output, []byte(svg), 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the badge to a file instead of stdout")
	return cmd
}
