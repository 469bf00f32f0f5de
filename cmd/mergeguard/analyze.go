package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/lipgloss"
)

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	var (
		post      bool
		setStatus bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [number]",
		Short: "Analyze one proposal, or all open proposals when no number is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			engine, host, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var reports []*mergeguard.Report
			if len(args) == 1 {
				number, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid proposal number %q", args[0])
				}
				report, err := engine.AnalyzeProposal(cmd.Context(), number)
				if err != nil {
					return err
				}
				reports = []*mergeguard.Report{report}
			} else {
				reports, err = engine.AnalyzeAll(cmd.Context())
				if err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
				return thresholdError(cfg, reports)
			}

			theme := themeForTerminal()
			for _, r := range reports {
				fmt.Print(theme.RenderReport(r))
				fmt.Println()
			}

			for _, r := range reports {
				if r.Err != "" {
					continue
				}
				if post {
					if err := host.PostComment(cmd.Context(), r.Proposal.Number, mergeguard.FormatComment(r)); err != nil {
						return fmt.Errorf("posting comment on #%d: %w", r.Proposal.Number, err)
					}
				}
				if setStatus {
					if err := publishStatus(cmd.Context(), host, cfg, r); err != nil {
						return err
					}
				}
			}
			return thresholdError(cfg, reports)
		},
	}

	cmd.Flags().BoolVar(&post, "post", false, "post (or update) the report comment on each proposal")
	cmd.Flags().BoolVar(&setStatus, "status", false, "set a commit status from the risk threshold")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit reports as JSON instead of rendering")
	return cmd
}

// thresholdError makes the command exit nonzero when any analyzed proposal
// scores at or above the configured risk threshold.
func thresholdError(cfg *fileConfig, reports []*mergeguard.Report) error {
	for _, r := range reports {
		if r.Err == "" && r.Risk.Score >= float64(cfg.Analysis.RiskThreshold) {
			return fmt.Errorf("#%d risk %.0f/100 exceeds threshold %d", r.Proposal.Number, r.Risk.Score, cfg.Analysis.RiskThreshold)
		}
	}
	return nil
}

// publishStatus maps the risk score onto a commit status: failure above the
// configured threshold, success otherwise.
func publishStatus(ctx context.Context, host mergeguard.HostClient, cfg *fileConfig, r *mergeguard.Report) error {
	state := "success"
	if r.Risk.Score >= float64(cfg.Analysis.RiskThreshold) {
		state = "failure"
	}
	description := fmt.Sprintf("risk %.0f/100, %d conflict(s)", r.Risk.Score, len(r.Conflicts))
	if err := host.SetStatus(ctx, r.Proposal.HeadSHA, state, description); err != nil {
		return fmt.Errorf("setting status for #%d: %w", r.Proposal.Number, err)
	}
	return nil
}

func themeForTerminal() *lipgloss.Theme {
	if termenv.HasDarkBackground() {
		return lipgloss.DefaultTheme()
	}
	return lipgloss.LightTheme()
}
