package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when appending a row whose id is taken.
	ErrDuplicateID = errors.New("duplicate record id")
)

// TicketFilter narrows ticket listings. Zero value lists everything.
type TicketFilter struct {
	ReporterID *string
	Statuses   []domain.TicketStatus
}

func (f TicketFilter) matches(t *domain.Ticket) bool {
	if f.ReporterID != nil && !domain.SameID(*f.ReporterID, t.ReporterID) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == t.Status {
			return true
		}
	}
	return false
}

// TicketUpdate is a field-level patch. Nil fields are left untouched.
type TicketUpdate struct {
	Status           *domain.TicketStatus
	RiskLevel        *domain.RiskLevel
	BusinessImpact   *string
	Recommendation   *string
	Department       *string
	AssigneeName     *string
	PlannedStartDate *string
	TargetEndDate    *string
	ActualFinishDate *string
}

// IsEmpty reports whether the patch sets nothing.
func (u TicketUpdate) IsEmpty() bool {
	return u.Status == nil && u.RiskLevel == nil && u.BusinessImpact == nil &&
		u.Recommendation == nil && u.Department == nil && u.AssigneeName == nil &&
		u.PlannedStartDate == nil && u.TargetEndDate == nil && u.ActualFinishDate == nil
}

// WithPlan sets every planning field from plan.
func (u TicketUpdate) WithPlan(plan domain.PlanFields) TicketUpdate {
	u.RiskLevel = &plan.RiskLevel
	u.BusinessImpact = &plan.BusinessImpact
	u.Recommendation = &plan.Recommendation
	u.Department = &plan.Department
	u.AssigneeName = &plan.AssigneeName
	u.PlannedStartDate = &plan.PlannedStartDate
	u.TargetEndDate = &plan.TargetEndDate
	return u
}

// Apply writes the patch onto t.
func (u TicketUpdate) Apply(t *domain.Ticket) {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.RiskLevel != nil {
		t.RiskLevel = *u.RiskLevel
	}
	setString(&t.BusinessImpact, u.BusinessImpact)
	setString(&t.Recommendation, u.Recommendation)
	setString(&t.Department, u.Department)
	setString(&t.AssigneeName, u.AssigneeName)
	setString(&t.PlannedStartDate, u.PlannedStartDate)
	setString(&t.TargetEndDate, u.TargetEndDate)
	setString(&t.ActualFinishDate, u.ActualFinishDate)
}

func setString(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Append(ctx context.Context, ticket *domain.Ticket) error
	UpdateFields(ctx context.Context, id string, update TicketUpdate) error
}

// AccountRepository encapsulates account persistence. The request surface
// only reads; Upsert is used by provisioning.
type AccountRepository interface {
	List(ctx context.Context) ([]domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	Upsert(ctx context.Context, account *domain.Account) error
}
