package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/exposure-detect/internal/domain"
)

func newObserveCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Record and prune sightings of nearby rolling identifiers",
	}

	cmd.AddCommand(
		newObserveRecordCmd(app),
		newObservePruneCmd(app),
	)

	return cmd
}

func newObserveRecordCmd(app *app) *cobra.Command {
	var (
		rawID    string
		rawAt    string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append one sighting to the observation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := domain.ParseIdentifier(rawID)
			if err != nil {
				return err
			}

			at := app.now()
			if rawAt != "" {
				if at, err = time.Parse(time.RFC3339, rawAt); err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
			}
			if duration < 0 {
				return fmt.Errorf("--duration must not be negative, got %s", duration)
			}

			obs := domain.ProximityObservation{Identifier: id, Timestamp: at.UTC(), SignalDuration: duration}
			if err := app.observations.Append(cmd.Context(), obs); err != nil {
				return err
			}

			app.logger.Debug("observation recorded", "at", obs.Timestamp, "duration", duration)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "recorded %s at %s\n", id, obs.Timestamp.Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().StringVar(&rawID, "id", "", "Rolling proximity identifier (32 hex digits)")
	cmd.Flags().StringVar(&rawAt, "at", "", "Start of the sighting, RFC3339 (default: now)")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Minute, "How long the identifier was in range")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newObservePruneCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop sightings older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cutoff := domain.DayOf(app.now()).Start().AddDate(0, 0, -app.retention)

			removed, err := app.observations.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d observations\n", removed)
			return err
		},
	}
}
