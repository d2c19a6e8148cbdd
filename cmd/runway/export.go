package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/runway/internal/cli"
	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/config"
	"github.com/Veraticus/runway/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the health report to Google Sheets",
		Long: `Write the current projection and recurring expenses to a Google Sheets
spreadsheet. Authenticate with a service account (sheets.service_account_path)
or OAuth2 (sheets.client_id, sheets.client_secret and a refresh token or token
file). Pass --login to run the browser consent flow and save a token file.`,
		RunE: runExport,
	}

	cmd.Flags().Bool("login", false, "run the OAuth2 browser flow before exporting")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	user, err := currentUser()
	if err != nil {
		return err
	}

	cfg := appConfig.Sheets
	login, err := cmd.Flags().GetBool("login")
	if err != nil {
		return err
	}
	if login {
		if cfg.TokenFile == "" {
			cfg.TokenFile = config.ExpandPath("~/.config/runway/sheets-token.json")
		}
		if _, err := sheets.AuthenticateOAuth2Interactive(ctx, sheets.OAuth2Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenFile:    cfg.TokenFile,
		}, slog.Default()); err != nil {
			return fmt.Errorf("google sheets authentication failed: %w", err)
		}
	}

	writer, err := sheets.NewWriter(ctx, cfg, slog.Default())
	if err != nil {
		return common.NewUserError("Google Sheets is not configured: "+err.Error(), err)
	}

	e, closeEngine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()

	if err := e.Export(ctx, user, writer); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Report exported to "+cfg.SpreadsheetName))
	return nil
}
