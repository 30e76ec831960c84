package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/events"
	"github.com/spec-kit/maintenance-portal/internal/mailer"
	"github.com/spec-kit/maintenance-portal/internal/observability"
	"github.com/spec-kit/maintenance-portal/internal/repository"
	apperrors "github.com/spec-kit/maintenance-portal/pkg/util"
)

const defaultDeliveryTimeout = 30 * time.Second

// Executor runs background work without blocking the submitter. The worker
// pool satisfies it.
type Executor interface {
	SubmitDetached(task func(ctx context.Context)) error
}

// NotificationService turns lifecycle events into emails for the reporting
// outlet and every admin.
type NotificationService struct {
	dispatcher events.Dispatcher
	accounts   repository.AccountRepository
	sender     mailer.Sender
	executor   Executor
	metrics    *observability.Metrics
	logger     *zap.Logger
	baseURL    string
	timeout    time.Duration
}

// NotificationDependencies bundles collaborators. A nil Executor delivers
// inline. DeliveryTimeout bounds each delivery and defaults to 30s.
type NotificationDependencies struct {
	Dispatcher      events.Dispatcher
	AccountRepo     repository.AccountRepository
	Sender          mailer.Sender
	Executor        Executor
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	BaseURL         string
	DeliveryTimeout time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		accounts:   deps.AccountRepo,
		sender:     deps.Sender,
		executor:   deps.Executor,
		metrics:    deps.Metrics,
		logger:     logger,
		baseURL:    strings.TrimRight(deps.BaseURL, "/"),
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketPlanned,
		events.EventTicketFinished,
		events.EventTicketOverdue,
	} {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	subject, body, ok := n.render(event)
	if !ok {
		return nil
	}
	deliver := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		n.deliver(ctx, event, subject, body)
	}
	if n.executor == nil {
		deliver(ctx)
		return nil
	}
	if err := n.executor.SubmitDetached(deliver); err != nil {
		n.metrics.RecordNotification(string(event.Type), "dropped")
		return apperrors.NewDeliveryError("notification enqueue", err)
	}
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, subject, body string) {
	log := n.logger.With(zap.String("ticket_id", event.TicketID), zap.String("event_type", string(event.Type)))

	accounts, err := n.accounts.List(ctx)
	if err != nil {
		n.metrics.RecordNotification(string(event.Type), "failed")
		log.Warn("notification skipped", zap.Error(apperrors.NewDeliveryError("recipient lookup", err)))
		return
	}
	recipients := ResolveRecipients(accounts, event.Ticket.ReporterID)
	if len(recipients) == 0 {
		n.metrics.RecordNotification(string(event.Type), "skipped")
		log.Debug("notification skipped: no recipients")
		return
	}

	if err := n.sender.Send(ctx, mailer.Message{To: recipients, Subject: subject, Body: body}); err != nil {
		n.metrics.RecordNotification(string(event.Type), "failed")
		log.Warn("notification failed", zap.Error(apperrors.NewDeliveryError("email", err)))
		return
	}
	n.metrics.RecordNotification(string(event.Type), "sent")
	log.Info("notification sent", zap.Int("recipients", len(recipients)))
}

// ResolveRecipients returns the reporting outlet's address followed by every
// admin address, deduplicated case-insensitively and limited to values that
// contain "@".
func ResolveRecipients(accounts []domain.Account, reporterID string) []string {
	var ordered []domain.Account
	for _, a := range accounts {
		if a.Role == domain.RoleOutlet && domain.SameID(a.ID, reporterID) {
			ordered = append(ordered, a)
		}
	}
	for _, a := range accounts {
		if a.Role == domain.RoleAdmin {
			ordered = append(ordered, a)
		}
	}

	seen := make(map[string]struct{}, len(ordered))
	recipients := make([]string, 0, len(ordered))
	for _, a := range ordered {
		email, ok := a.DeliverableEmail()
		if !ok {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		recipients = append(recipients, email)
	}
	return recipients
}

func (n *NotificationService) render(event events.Event) (string, string, bool) {
	id := event.TicketID
	outlet := event.Ticket.ReporterID

	var subject, body string
	switch event.Type {
	case events.EventTicketCreated:
		subject = fmt.Sprintf("[New Ticket] Ceiling repair request #%s", id)
		body = fmt.Sprintf("Dear Team,\n\nA new ceiling repair request has been submitted by outlet %s to the GA team. "+
			"Please follow up according to the applicable procedure. Thank you.", outlet)
	case events.EventTicketPlanned:
		subject = fmt.Sprintf("[Plan Update] Maintenance ticket #%s", id)
		body = fmt.Sprintf("Thank you. Regarding the ceiling repair request from %s, the GA team informs you that the work "+
			"has been scheduled according to the agreed timeline. We will update you again when there is progress.", outlet)
		if t := event.Ticket; t.PlannedStartDate != "" {
			body += fmt.Sprintf("\n\nPlanned start: %s\nTarget end: %s\nAssignee: %s", t.PlannedStartDate, t.TargetEndDate, t.AssigneeName)
		}
	case events.EventTicketFinished:
		subject = fmt.Sprintf("[Completed] Maintenance ticket #%s - Closed", id)
		body = fmt.Sprintf("The GA team informs you that the ceiling repair at outlet %s has been completed. "+
			"The ticket is now closed. Thank you for your cooperation.", outlet)
	case events.EventTicketOverdue:
		subject = fmt.Sprintf("[REMINDER] No action yet on ticket #%s", id)
		body = fmt.Sprintf("Following up on the ceiling repair request from outlet %s: please confirm or take action "+
			"according to its current status, as the ticket has been open for more than 3 days. Thank you.", outlet)
	default:
		return "", "", false
	}
	if n.baseURL != "" {
		body += fmt.Sprintf("\n\n%s/tickets/%s", n.baseURL, id)
	}
	return subject, body, true
}
