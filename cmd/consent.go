package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newConsentCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Manage consent to exposure detection",
	}

	cmd.AddCommand(
		newConsentChangeCmd("grant", "Allow exposure detection on this device", "consent granted", app.consent.Grant),
		newConsentChangeCmd("revoke", "Withdraw consent to exposure detection", "consent revoked", app.consent.Revoke),
		newConsentChangeCmd("restrict", "Block exposure detection by device policy", "exposure detection restricted", app.consent.Restrict),
		newConsentChangeCmd("unrestrict", "Lift the device policy block", "exposure detection unrestricted", app.consent.Unrestrict),
		newConsentStatusCmd(app),
	)

	return cmd
}

func newConsentChangeCmd(use, short, done string, change func(context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := change(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), done)
			return err
		},
	}
}

func newConsentStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the stored consent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			consent, err := app.consent.Status(cmd.Context())
			if err != nil {
				return err
			}

			status := "not granted"
			switch {
			case consent.Restricted:
				status = "restricted"
			case consent.Granted:
				status = "granted"
			}

			out := cmd.OutOrStdout()
			if consent.UpdatedAt.IsZero() {
				_, err = fmt.Fprintln(out, status)
				return err
			}
			_, err = fmt.Fprintf(out, "%s (updated %s)\n", status, consent.UpdatedAt.UTC().Format(time.RFC3339))
			return err
		},
	}
}
