package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Veraticus/runway/internal/cli"
	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/projection"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change your declared balance, paycheck and bonus",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored settings",
		RunE:  runSettingsShow,
	})

	set := &cobra.Command{
		Use:   "set",
		Short: "Update the stored settings",
		Long: `Update the stored settings. Only the flags you pass change; pass an
empty value (for example --bonus-date "") to clear an optional field.`,
		RunE: runSettingsSet,
	}
	set.Flags().String("balance", "", "current account balance")
	set.Flags().String("paycheck", "", "net amount of each paycheck")
	set.Flags().String("bonus", "", "expected bonus amount")
	set.Flags().String("bonus-date", "", "next bonus date (YYYY-MM-DD)")
	cmd.AddCommand(set)

	return cmd
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	e, closeEngine, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closeEngine()

	settings, err := e.Settings(cmd.Context(), user)
	if errors.Is(err, common.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No settings stored for "+user+"; use `runway settings set`."))
		return nil
	}
	if err != nil {
		return err
	}
	return cli.RenderSettings(cmd.OutOrStdout(), settings)
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	e, closeEngine, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closeEngine()

	settings, err := e.Settings(cmd.Context(), user)
	switch {
	case errors.Is(err, common.ErrNotFound):
		settings = &model.UserFinancialSettings{UserID: user}
	case err != nil:
		return err
	}

	if err := applySettingsFlags(settings, cmd.Flags()); err != nil {
		return err
	}
	if err := e.UpdateSettings(cmd.Context(), settings); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Settings saved"))
	return cli.RenderSettings(cmd.OutOrStdout(), settings)
}

// applySettingsFlags copies every flag the user passed onto settings.
func applySettingsFlags(settings *model.UserFinancialSettings, flags *pflag.FlagSet) error {
	raw, ok, err := changedString(flags, "balance")
	if err != nil {
		return err
	}
	if ok {
		balance, err := parseMoney("balance", raw)
		if err != nil {
			return err
		}
		if balance == nil {
			return common.NewSettingsError("current_balance", "must not be empty")
		}
		settings.CurrentBalance = *balance
	}

	if raw, ok, err = changedString(flags, "paycheck"); err != nil {
		return err
	} else if ok {
		if settings.PaycheckAmount, err = parseMoney("paycheck_amount", raw); err != nil {
			return err
		}
	}

	if raw, ok, err = changedString(flags, "bonus"); err != nil {
		return err
	} else if ok {
		if settings.BonusAmount, err = parseMoney("bonus_amount", raw); err != nil {
			return err
		}
	}

	if raw, ok, err = changedString(flags, "bonus-date"); err != nil {
		return err
	} else if ok {
		settings.NextBonusDate = nil
		if strings.TrimSpace(raw) != "" {
			date, err := projection.ParseBonusDate(raw)
			if err != nil {
				return err
			}
			settings.NextBonusDate = &date
		}
	}

	return nil
}

// changedString returns the flag's value and whether the user passed it.
func changedString(flags *pflag.FlagSet, name string) (string, bool, error) {
	if !flags.Changed(name) {
		return "", false, nil
	}
	raw, err := flags.GetString(name)
	if err != nil {
		return "", false, fmt.Errorf("failed to read --%s: %w", name, err)
	}
	return raw, true, nil
}

// parseMoney returns nil for an empty value.
func parseMoney(field, raw string) (*decimal.Decimal, error) {
	raw = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, common.NewSettingsError(field, fmt.Sprintf("%q is not an amount", raw))
	}
	return &d, nil
}
