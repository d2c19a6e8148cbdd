package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/runway/internal/cli"
	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/plaid"
	"github.com/Veraticus/runway/internal/service"
	"github.com/Veraticus/runway/internal/simplefin"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull recent transactions from Plaid or SimpleFIN",
		Long: `Fetch posted transactions from your linked bank connection and store them.

The connection is picked with --source (default sync.source). Without
--start the window covers the last plaid.sync_days days.`,
		RunE: runSync,
	}

	cmd.Flags().String("start", "", "first day to fetch (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "last day to fetch (YYYY-MM-DD, default today)")
	cmd.Flags().String("source", "", "plaid or simplefin (default sync.source)")
	cmd.Flags().Int("days", 0, "days to fetch when --start is not given (default plaid.sync_days)")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	user, err := currentUser()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	startFlag, err := flags.GetString("start")
	if err != nil {
		return err
	}
	endFlag, err := flags.GetString("end")
	if err != nil {
		return err
	}
	days, err := flags.GetInt("days")
	if err != nil {
		return err
	}
	if days == 0 {
		days = appConfig.SyncDays
	}

	start, end, err := syncWindow(time.Now(), startFlag, endFlag, days)
	if err != nil {
		return err
	}

	sourceName, err := flags.GetString("source")
	if err != nil {
		return err
	}
	if sourceName == "" {
		sourceName = appConfig.SyncSource
	}
	source, err := transactionSource(cmd, sourceName)
	if err != nil {
		return err
	}

	e, closeEngine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()

	inserted, err := e.Sync(ctx, user, source, start, end)
	if err != nil {
		return err
	}
	common.LogInfo("sync complete", common.Fields{
		"source":   sourceName,
		"user":     user,
		"inserted": inserted,
	})

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Synced %s → %s: %d new transactions",
		start.Format(model.DateLayout), end.Format(model.DateLayout), inserted)))
	return nil
}

func transactionSource(cmd *cobra.Command, name string) (service.TransactionSource, error) {
	switch name {
	case "plaid":
		client, err := plaid.NewClient(appConfig.Plaid, slog.Default())
		if err != nil {
			return nil, common.NewUserError("Plaid is not configured; set plaid.client_id, plaid.secret and plaid.access_token", err)
		}
		return client, nil
	case "simplefin":
		client, err := simplefin.NewClient(cmd.Context(), appConfig.SimpleFIN, slog.Default())
		if err != nil {
			return nil, common.NewUserError("SimpleFIN is not configured; set simplefin.token or simplefin.access_url", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown sync source %q", common.ErrInvalidConfig, name)
	}
}

// syncWindow resolves the date flags into an inclusive day range.
func syncWindow(now time.Time, startFlag, endFlag string, days int) (time.Time, time.Time, error) {
	end := model.Day(now)
	if endFlag != "" {
		parsed, err := time.Parse(model.DateLayout, endFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q: %w", endFlag, err)
		}
		end = parsed
	}

	if days <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("--days must be positive, got %d", days)
	}
	start := end.AddDate(0, 0, -days)
	if startFlag != "" {
		parsed, err := time.Parse(model.DateLayout, startFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q: %w", startFlag, err)
		}
		start = parsed
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--start %s is after --end %s",
			start.Format(model.DateLayout), end.Format(model.DateLayout))
	}
	return start, end, nil
}
