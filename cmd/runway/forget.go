package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/runway/internal/cli"
	"github.com/Veraticus/runway/internal/common"
)

var errConfirmationRequired = errors.New("confirmation required")

func forgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete every transaction, setting and snapshot for the user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}
			if !yes {
				return common.NewUserError(
					fmt.Sprintf("This deletes all data for %q. Re-run with --yes to confirm.", user),
					errConfirmationRequired)
			}

			e, closeEngine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeEngine()

			if err := e.Forget(cmd.Context(), user); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted all data for "+user))
			return nil
		},
	}

	cmd.Flags().Bool("yes", false, "confirm deletion")
	return cmd
}
