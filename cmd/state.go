package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/exposure-detect/internal/application"
	"github.com/bnema/exposure-detect/internal/domain"
)

func newStateCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or change the device tracing toggle",
	}

	cmd.AddCommand(
		newStateGetCmd(app),
		newStateSetCmd(app),
	)

	return cmd
}

func newStateGetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the tracing toggle (on, off or unknown)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := application.NewStateGetRequest(app.state, nil, nil)
			defer req.Invalidate()

			state, err := req.Perform().Wait(cmd.Context())
			if err != nil {
				return fmt.Errorf("read tracing state: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), state)
			return err
		},
	}
}

func newStateSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set on|off",
		Short:     "Turn the tracing toggle on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.TracingStateOn), string(domain.TracingStateOff)},
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := domain.ParseTracingState(args[0])
			if err != nil {
				return err
			}
			if state == domain.TracingStateUnknown {
				return fmt.Errorf("tracing state must be %q or %q", domain.TracingStateOn, domain.TracingStateOff)
			}

			req := application.NewStateSetRequest(app.state, state, nil, nil)
			defer req.Invalidate()

			saved, err := req.Perform().Wait(cmd.Context())
			if err != nil {
				return fmt.Errorf("save tracing state: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "tracing %s\n", saved)
			return err
		},
	}
}
