package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/alert"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/search"
)

var (
	alertDaily  bool
	alertDryRun bool
	minPPD      float64
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "E-mail the listings whose performance per dollar reaches the threshold",
	Long: `Searches the first result page of every keyword and e-mails the listings
whose performance per dollar is at or above alerts.min_perf_per_dollar.

Without Mailgun credentials, or with --dry-run, the message is printed instead.
With --daily the command keeps running and alerts every day at alerts.daily_at
in alerts.timezone.`,
	Args: cobra.NoArgs,
	RunE: runAlert,
}

func init() {
	alertCmd.Flags().BoolVar(&alertDaily, "daily", false, "run every day at the configured time")
	alertCmd.Flags().BoolVar(&alertDryRun, "dry-run", false, "print the message instead of sending it")
	alertCmd.Flags().Float64Var(&minPPD, "min-perf-per-dollar", 0, "override alerts.min_perf_per_dollar")
}

func runAlert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	svc, err := search.FromConfig(cfg, database, logger)
	if err != nil {
		return fmt.Errorf("configure search: %w", err)
	}

	notifier, err := buildNotifier(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts := alertOptions()
	if cmd.Flags().Changed("min-perf-per-dollar") {
		opts.MinPerfPerDollar = minPPD
	}

	if !alertDaily {
		return sendAlert(ctx, svc.FirstPage(), notifier, opts)
	}

	hour, minute, err := alert.ParseClock(cfg.Alerts.DailyAt)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Alerts.Timezone)
	if err != nil {
		return fmt.Errorf("load alert timezone: %w", err)
	}
	err = alert.Daily(ctx, hour, minute, loc, logger, func(ctx context.Context) {
		if err := sendAlert(ctx, svc.FirstPage(), notifier, opts); err != nil {
			logger.Error("scheduled alert failed", zap.Error(err))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func alertOptions() alert.Options {
	return alert.Options{
		MinPerfPerDollar: cfg.Alerts.MinPerfPerDollar,
		Recipients:       cfg.Alerts.Recipients,
		From:             cfg.Alerts.From,
		Subject:          cfg.Alerts.Subject,
		Logger:           logger,
	}
}

func buildNotifier(out io.Writer) (alert.Notifier, error) {
	if alertDryRun {
		return printNotifier{out: out}, nil
	}
	mg, err := alert.NewMailgun(alert.MailgunOptions{
		APIKey:  cfg.Mailgun.APIKey,
		Domain:  cfg.Mailgun.Domain,
		BaseURL: cfg.Mailgun.BaseURL,
		Logger:  logger,
	})
	if errors.Is(err, alert.ErrNoCredentials) {
		logger.Warn("mailgun not configured, printing alerts instead", zap.Error(err))
		return printNotifier{out: out}, nil
	}
	if err != nil {
		return nil, err
	}
	return mg, nil
}

func sendAlert(ctx context.Context, source results.Feed, n alert.Notifier, opts alert.Options) error {
	report, err := alert.Run(ctx, source, n, opts)
	if err != nil {
		return err
	}
	logger.Info("alert run finished",
		zap.Int("candidates", report.Candidates),
		zap.Int("matches", len(report.Matches)),
		zap.Bool("sent", report.Sent),
	)
	return nil
}

// printNotifier writes messages to out instead of e-mailing them.
type printNotifier struct {
	out io.Writer
}

func (p printNotifier) Send(_ context.Context, m alert.Message) error {
	_, err := fmt.Fprintf(p.out, "To: %v\nSubject: %s\n\n%s\n", m.To, m.Subject, m.Text)
	return err
}
