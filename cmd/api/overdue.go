package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-portal/internal/app"
	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/events"
	"github.com/spec-kit/maintenance-portal/internal/mailer"
	"github.com/spec-kit/maintenance-portal/internal/observability"
	"github.com/spec-kit/maintenance-portal/internal/service"
)

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "Inspect tickets pending past the reminder threshold",
}

var overdueCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one overdue scan and send reminders",
	RunE:  runOverdueCheck,
}

var overdueDryRun bool

func init() {
	overdueCheckCmd.Flags().BoolVar(&overdueDryRun, "dry-run", false, "list overdue tickets without sending reminders")
	overdueCmd.AddCommand(overdueCheckCmd)
}

// runOverdueCheck delivers reminders inline so the process can exit when done.
func runOverdueCheck(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	dispatcher := events.NewInMemoryDispatcher()
	if !overdueDryRun {
		service.NewNotificationService(service.NotificationDependencies{
			Dispatcher:      dispatcher,
			AccountRepo:     stores.Accounts,
			Sender:          mailer.New(cfg.Notification, logger),
			Metrics:         observability.NewMetrics(),
			Logger:          logger,
			BaseURL:         cfg.App.PublicBaseURL,
			DeliveryTimeout: cfg.Notification.SendTimeout(),
		}).RegisterHandlers()
	}
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: stores.Tickets,
		Dispatcher: dispatcher,
		Logger:     logger,
		Location:   cfg.App.Location(),
	})

	now := time.Now()
	var overdue []domain.Ticket
	if overdueDryRun {
		overdue, err = tickets.ListOverdue(ctx, now)
	} else {
		overdue, err = tickets.CheckOverdue(ctx, now)
	}
	if err != nil {
		return err
	}
	for _, t := range overdue {
		age := now.Sub(t.CreatedAt).Round(time.Hour)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tpending %s\n", t.ID, t.ReporterID, t.ReportDate, age)
	}
	logger.Info("overdue scan finished", zap.Int("overdue", len(overdue)), zap.Bool("dry_run", overdueDryRun))
	return nil
}
