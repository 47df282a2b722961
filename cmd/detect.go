package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	reportadapter "github.com/bnema/exposure-detect/internal/adapters/render/report"
	tomlrepo "github.com/bnema/exposure-detect/internal/adapters/repo/toml"
	"github.com/bnema/exposure-detect/internal/application"
)

type contactJSON struct {
	Day             string `json:"day"`
	DurationMinutes int    `json:"duration_minutes"`
}

type reportJSON struct {
	Exposed         bool          `json:"exposed"`
	MatchedKeyCount int           `json:"matched_key_count"`
	KeysChecked     int           `json:"keys_checked"`
	Batches         int           `json:"batches"`
	FinishedAt      time.Time     `json:"finished_at"`
	Contacts        []contactJSON `json:"contacts"`
}

func newDetectCmd(app *app) *cobra.Command {
	var keysPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Check published diagnosis keys against recorded sightings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := tomlrepo.NewDiagnosisKeyFile(keysPath)
			if err != nil {
				return err
			}

			var report application.DetectionReport
			run := func(ctx context.Context) error {
				report, err = app.detection.Detect(ctx, source)
				return err
			}

			if asJSON {
				if err := run(cmd.Context()); err != nil {
					return err
				}
				return writeReportJSON(cmd, report)
			}

			if err := withSpinner(cmd.Context(), cmd.ErrOrStderr(), "Checking diagnosis keys...", run); err != nil {
				return err
			}

			rendered, err := app.renderer(report, reportadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&keysPath, "keys", "", "Diagnosis keys TOML file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("keys")

	return cmd
}

func writeReportJSON(cmd *cobra.Command, report application.DetectionReport) error {
	out := reportJSON{
		Exposed:         report.Summary.Exposed(),
		MatchedKeyCount: report.Summary.MatchedKeyCount,
		KeysChecked:     report.KeysChecked,
		Batches:         report.Batches,
		FinishedAt:      report.FinishedAt.UTC(),
		Contacts:        make([]contactJSON, 0, len(report.Contacts)),
	}
	for _, contact := range report.Contacts {
		out.Contacts = append(out.Contacts, contactJSON{
			Day:             contact.Timestamp.Format(time.DateOnly),
			DurationMinutes: int(contact.Duration / time.Minute),
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
