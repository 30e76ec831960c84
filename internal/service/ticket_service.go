package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/events"
	"github.com/spec-kit/maintenance-portal/internal/photo"
	"github.com/spec-kit/maintenance-portal/internal/repository"
	apperrors "github.com/spec-kit/maintenance-portal/pkg/util"
)

const maxIDAttempts = 5

// ticketIDPattern bounds caller supplied ids. They end up in photo file names
// and URLs.
var ticketIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,32}$`)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	photos     photo.Archive
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	location   *time.Location
	newID      func() string
}

// TicketDependencies bundles collaborators for the ticket service. Clock,
// Location and NewID default to time.Now, UTC and NewTicketID.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	PhotoArchive photo.Archive
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        func() time.Time
	Location     *time.Location
	NewID        func() string
}

// CreateTicketInput describes ticket creation payload. ID is optional; when
// set, a retried submission with the same id returns the stored ticket.
type CreateTicketInput struct {
	ID                 string
	ReporterID         string
	ReportDate         string
	ProblemDescription string
	Photos             []string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	ReporterID string
	Statuses   []domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		photos:     deps.PhotoArchive,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
		location:   deps.Location,
		newID:      deps.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.newID == nil {
		s.newID = NewTicketID
	}
	return s
}

// NewTicketID returns "TKT-" followed by four digits in 1000..9999.
func NewTicketID() string {
	return fmt.Sprintf("TKT-%d", 1000+rand.Intn(9000))
}

// CreateTicket records a new PENDING ticket for an outlet.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	reporter := strings.TrimSpace(input.ReporterID)
	description := strings.TrimSpace(input.ProblemDescription)
	reportDate := strings.TrimSpace(input.ReportDate)
	requestedID := strings.TrimSpace(input.ID)
	now := s.now()

	invalid := map[string]any{}
	if reporter == "" {
		invalid["reporter_id"] = "required"
	}
	if description == "" {
		invalid["problem_description"] = "required"
	}
	if reportDate == "" {
		reportDate = now.In(s.location).Format(domain.ReportDateLayout)
	} else if !domain.ValidDate(reportDate) {
		invalid["report_date"] = "must be a YYYY-MM-DD date"
	}
	if requestedID != "" && !ticketIDPattern.MatchString(requestedID) {
		invalid["id"] = "must be 1-32 letters, digits or dashes"
	}
	if len(invalid) > 0 {
		return nil, apperrors.NewValidationError("ticket is incomplete", invalid)
	}

	id, existing, err := s.resolveID(ctx, requestedID, reporter)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	ticket := &domain.Ticket{
		ID:                 id,
		Status:             domain.TicketStatusPending,
		ReporterID:         reporter,
		ReportDate:         reportDate,
		ProblemDescription: description,
		RiskLevel:          domain.RiskLevelLow,
		Photos:             s.archivePhotos(ctx, reporter, id, input.Photos),
		CreatedAt:          now,
	}

	if err := s.tickets.Append(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, apperrors.NewConflict("ticket id already in use", map[string]any{"id": id})
		}
		return nil, apperrors.NewPersistenceError(err)
	}

	stored, err := s.confirm(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket created", zap.String("ticket_id", id), zap.String("reporter_id", reporter))
	s.publishEvent(ctx, events.EventTicketCreated, reporter, stored)
	return stored, nil
}

// resolveID picks the id for a new ticket. A caller supplied id that already
// belongs to the same reporter yields the stored ticket instead.
func (s *TicketService) resolveID(ctx context.Context, requested, reporter string) (string, *domain.Ticket, error) {
	if requested != "" {
		existing, err := s.tickets.GetByID(ctx, requested)
		switch {
		case err == nil && domain.SameID(existing.ReporterID, reporter):
			return requested, existing, nil
		case err == nil:
			return "", nil, apperrors.NewConflict("ticket id already in use", map[string]any{"id": requested})
		case errors.Is(err, repository.ErrNotFound):
			return requested, nil, nil
		default:
			return "", nil, apperrors.NewPersistenceError(err)
		}
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := s.newID()
		_, err := s.tickets.GetByID(ctx, candidate)
		if errors.Is(err, repository.ErrNotFound) {
			return candidate, nil, nil
		}
		if err != nil {
			return "", nil, apperrors.NewPersistenceError(err)
		}
	}
	return "", nil, apperrors.NewConflict("could not allocate a ticket id", map[string]any{"attempts": maxIDAttempts})
}

// archivePhotos uploads raw payloads. Only URLs returned by the archive end
// up on the ticket; links and failed uploads are dropped and logged.
func (s *TicketService) archivePhotos(ctx context.Context, owner, ticketID string, payloads []string) []string {
	urls := make([]string, 0, len(payloads))
	for i, payload := range payloads {
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}
		if looksLikeURL(payload) {
			s.logDelivery(apperrors.NewDeliveryError("photo upload", errors.New("photo is not an image payload")), ticketID, zap.Int("photo_index", i))
			continue
		}
		if s.photos == nil {
			s.logDelivery(apperrors.NewDeliveryError("photo upload", errors.New("no photo archive configured")), ticketID)
			continue
		}
		url, err := s.photos.Store(ctx, payload, owner, ticketID, i)
		if err != nil {
			s.logDelivery(apperrors.NewDeliveryError("photo upload", err), ticketID, zap.Int("photo_index", i))
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// looksLikeURL reports a scheme URL. Paths are left to the archive, which
// rejects anything that is not base64.
func looksLikeURL(s string) bool {
	scheme, _, ok := strings.Cut(s, "://")
	return ok && scheme != "" && !strings.ContainsAny(scheme, "/+=")
}

// SubmitPlan schedules work on a PENDING or PLANNED ticket.
func (s *TicketService) SubmitPlan(ctx context.Context, ticketID, actorID string, plan domain.PlanFields) (*domain.Ticket, error) {
	ticket, err := s.loadMutable(ctx, ticketID, domain.TicketStatusPlanned)
	if err != nil {
		return nil, err
	}
	plan, err = preparePlan(plan)
	if err != nil {
		return nil, err
	}

	status := domain.TicketStatusPlanned
	update := repository.TicketUpdate{Status: &status}.WithPlan(plan)
	if err := s.tickets.UpdateFields(ctx, ticket.ID, update); err != nil {
		return nil, mapTicketStoreError(err, ticket.ID)
	}

	stored, err := s.confirm(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket planned", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actorID))
	s.publishEvent(ctx, events.EventTicketPlanned, actorID, stored)
	return stored, nil
}

// FinishTicket closes a ticket. A supplied plan is validated and written in
// the same update as the status change.
func (s *TicketService) FinishTicket(ctx context.Context, ticketID, actorID string, plan *domain.PlanFields) (*domain.Ticket, error) {
	ticket, err := s.loadMutable(ctx, ticketID, domain.TicketStatusFinished)
	if err != nil {
		return nil, err
	}

	status := domain.TicketStatusFinished
	finished := s.now().In(s.location).Format(domain.FinishDateLayout)
	update := repository.TicketUpdate{Status: &status, ActualFinishDate: &finished}
	if plan != nil {
		prepared, err := preparePlan(*plan)
		if err != nil {
			return nil, err
		}
		update = update.WithPlan(prepared)
	}

	if err := s.tickets.UpdateFields(ctx, ticket.ID, update); err != nil {
		return nil, mapTicketStoreError(err, ticket.ID)
	}

	stored, err := s.confirm(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket finished", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actorID))
	s.publishEvent(ctx, events.EventTicketFinished, actorID, stored)
	return stored, nil
}

func (s *TicketService) loadMutable(ctx context.Context, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	ticketID = strings.TrimSpace(ticketID)
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketStoreError(err, ticketID)
	}
	if !domain.CanTransition(ticket.Status, next) {
		return nil, apperrors.NewInvalidState("ticket cannot move to "+string(next), map[string]any{
			"id":     ticket.ID,
			"status": string(ticket.Status),
		})
	}
	return ticket, nil
}

func preparePlan(plan domain.PlanFields) (domain.PlanFields, error) {
	plan = plan.Normalize()
	if err := plan.Validate(); err != nil {
		return plan, planValidationError(err)
	}
	risk, err := domain.ParseRiskLevel(string(plan.RiskLevel))
	if err != nil {
		return plan, planValidationError(err)
	}
	plan.RiskLevel = risk
	return plan, nil
}

// ListOverdue returns PENDING tickets older than the overdue threshold,
// oldest first. It has no side effects.
func (s *TicketService) ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	pending, err := s.tickets.List(ctx, repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusPending}})
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	overdue := make([]domain.Ticket, 0, len(pending))
	for i := range pending {
		if pending[i].IsOverdue(now) {
			overdue = append(overdue, pending[i])
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].CreatedAt.Before(overdue[j].CreatedAt)
	})
	return overdue, nil
}

// CheckOverdue publishes a reminder for every overdue ticket. Reminders are
// sent again on every run until the ticket leaves PENDING.
func (s *TicketService) CheckOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	overdue, err := s.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range overdue {
		s.publishEvent(ctx, events.EventTicketOverdue, "", &overdue[i])
	}
	s.logger.Info("overdue check completed", zap.Int("overdue", len(overdue)))
	return overdue, nil
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{Statuses: filter.Statuses}
	if reporter := strings.TrimSpace(filter.ReporterID); reporter != "" {
		repoFilter.ReporterID = &reporter
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// GetTicket loads a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticketID = strings.TrimSpace(ticketID)
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketStoreError(err, ticketID)
	}
	return ticket, nil
}

// confirm re-reads a row after a write so callers get the stored state.
func (s *TicketService) confirm(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewPersistenceError(fmt.Errorf("confirm ticket %s: %w", id, err))
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, actorID string, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		ActorID:   actorID,
		Timestamp: s.now(),
		Ticket:    *ticket,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logDelivery(err, ticket.ID, zap.String("event_type", string(eventType)))
	}
}

func (s *TicketService) logDelivery(err error, ticketID string, fields ...zap.Field) {
	fields = append(fields, zap.String("ticket_id", ticketID), zap.Error(err))
	s.logger.Warn("side effect failed", fields...)
}
