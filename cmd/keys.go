package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	tomlrepo "github.com/bnema/exposure-detect/internal/adapters/repo/toml"
	"github.com/bnema/exposure-detect/internal/application"
)

func newKeysCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage this device's daily tracing keys",
	}

	cmd.AddCommand(
		newKeysTodayCmd(app),
		newKeysExportCmd(app),
		newKeysPurgeCmd(app),
	)

	return cmd
}

func newKeysTodayCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Print the rolling identifier broadcast in the current window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, since, err := app.keys.CurrentIdentifier(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, since.UTC().Format(time.RFC3339))
			return err
		},
	}
}

func newKeysExportCmd(app *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the keys of completed days for upload after a positive diagnosis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := tomlrepo.NewDiagnosisKeyFile(out)
			if err != nil {
				return err
			}

			req := application.NewSelfTracingInfoRequest(app.keys, nil, nil)
			defer req.Invalidate()

			info, err := req.Perform().Wait(cmd.Context())
			if err != nil {
				return fmt.Errorf("collect daily tracing keys: %w", err)
			}
			defer func() {
				for i := range info.Keys {
					info.Keys[i].Wipe()
				}
			}()

			if err := file.Save(cmd.Context(), info.Keys); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d keys to %s\n", len(info.Keys), out)
			return err
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Destination TOML file")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newKeysPurgeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete daily tracing keys older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := app.keys.Purge(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired keys\n", removed)
			return err
		},
	}
}
