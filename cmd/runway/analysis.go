package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Veraticus/runway/internal/cli"
)

func patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List detected recurring expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			e, closeEngine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeEngine()

			analysis, err := e.Analyze(cmd.Context(), user)
			if err != nil {
				return err
			}
			return cli.RenderPatterns(cmd.OutOrStdout(), analysis.Patterns)
		},
	}
}

func incomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "income",
		Short: "List paychecks and bonuses found in your history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			e, closeEngine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeEngine()

			analysis, err := e.Analyze(cmd.Context(), user)
			if err != nil {
				return err
			}
			return cli.RenderIncome(cmd.OutOrStdout(), analysis.Income)
		},
	}
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Project your balance and grade it",
		Long: `Project your balance to the next bonus date, or 90 days out when none is set,
and report whether it is not enough, enough, or too much.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			e, closeEngine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeEngine()

			result, err := e.Health(cmd.Context(), user)
			if err != nil {
				return err
			}

			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return cli.RenderHealth(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().Bool("json", false, "print the result as JSON")
	return cmd
}
