package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lab-api/internal/app"
	"github.com/noah-isme/campus-lab-api/internal/dto"
	"github.com/noah-isme/campus-lab-api/internal/models"
	"github.com/noah-isme/campus-lab-api/pkg/config"
	"github.com/noah-isme/campus-lab-api/pkg/logger"
)

type sweepOptions struct {
	campus    string
	perCampus bool
}

// sweepRunner is the slice of the automation service the CLI drives.
type sweepRunner interface {
	Run(ctx context.Context, notificationType models.NotificationType, campusID *string) (*dto.SweepResult, error)
}

type campusLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "automation",
		Short: "Run campus lab notification sweeps",
		Long: `automation runs the warranty, escalation and overdue sweeps directly against
the database. It is meant for cron deployments that cannot reach the HTTP
automation endpoints. Created notifications are delivered before the process exits.`,
		SilenceUsage: true,
	}

	sweeps := []struct {
		use   string
		short string
		typ   models.NotificationType
	}{
		{"warranty-check", "Alert on equipment whose warranty expires within 30 days", models.NotificationWarrantyAlert},
		{"incident-escalation", "Escalate HIGH and CRITICAL incidents open for more than 72 hours", models.NotificationIncidentEscalation},
		{"maintenance-overdue", "Flag maintenance jobs with a vendor for more than 7 days", models.NotificationMaintenanceOverdue},
	}
	for _, s := range sweeps {
		root.AddCommand(newSweepCmd(s.use, s.short, s.typ))
	}
	return root
}

func newSweepCmd(use, short string, notificationType models.NotificationType) *cobra.Command {
	opts := &sweepOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			ctx := cmd.Context()
			container, err := app.New(ctx, cfg, logr)
			if err != nil {
				return err
			}
			defer container.Close()

			container.Queue.Start(context.Background())
			defer container.Queue.Stop()

			results, err := runSweeps(ctx, container.Automation, container.Campuses, notificationType, *opts, logr)
			container.Queue.Wait()
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&opts.campus, "campus", "", "restrict the sweep to one campus id")
	cmd.Flags().BoolVar(&opts.perCampus, "per-campus", false, "run one sweep per active campus instead of one global sweep")
	cmd.MarkFlagsMutuallyExclusive("campus", "per-campus")
	return cmd
}

func runSweeps(ctx context.Context, runner sweepRunner, campuses campusLister, notificationType models.NotificationType, opts sweepOptions, logr *zap.Logger) ([]*dto.SweepResult, error) {
	var targets []*string
	switch {
	case opts.campus != "":
		campus := opts.campus
		targets = []*string{&campus}
	case opts.perCampus:
		ids, err := campuses.ListActiveIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list campuses: %w", err)
		}
		for i := range ids {
			targets = append(targets, &ids[i])
		}
	default:
		targets = []*string{nil}
	}

	results := make([]*dto.SweepResult, 0, len(targets))
	for _, campus := range targets {
		res, err := runner.Run(ctx, notificationType, campus)
		if err != nil {
			return results, fmt.Errorf("%s sweep: %w", notificationType, err)
		}
		logr.Info("sweep finished",
			zap.String("type", string(notificationType)),
			zap.Stringp("campus_id", campus),
			zap.Int("candidates", res.Candidates),
			zap.Int("created", len(res.Created)),
		)
		results = append(results, res)
	}
	return results, nil
}

func printResults(w io.Writer, results []*dto.SweepResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
