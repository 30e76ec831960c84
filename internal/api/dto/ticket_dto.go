package dto

import (
	"strings"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

// CreateTicketRequest payload. ID is optional and enables safe retries.
type CreateTicketRequest struct {
	ID                 string   `json:"id"`
	ReportDate         string   `json:"report_date"`
	ProblemDescription string   `json:"problem_description"`
	Photos             []string `json:"photos"`
}

// PlanRequest carries planning fields.
type PlanRequest struct {
	RiskLevel        string `json:"risk_level"`
	BusinessImpact   string `json:"business_impact"`
	Recommendation   string `json:"recommendation"`
	Department       string `json:"department"`
	AssigneeName     string `json:"assignee_name"`
	PlannedStartDate string `json:"planned_start_date"`
	TargetEndDate    string `json:"target_end_date"`
}

// IsEmpty reports whether no field was supplied.
func (p PlanRequest) IsEmpty() bool {
	return strings.TrimSpace(p.RiskLevel+p.BusinessImpact+p.Recommendation+p.Department+
		p.AssigneeName+p.PlannedStartDate+p.TargetEndDate) == ""
}

// ToPlan converts to domain fields. A blank assignee defaults to actorID.
func (p PlanRequest) ToPlan(actorID string) domain.PlanFields {
	assignee := p.AssigneeName
	if strings.TrimSpace(assignee) == "" {
		assignee = actorID
	}
	return domain.PlanFields{
		RiskLevel:        domain.RiskLevel(p.RiskLevel),
		BusinessImpact:   p.BusinessImpact,
		Recommendation:   p.Recommendation,
		Department:       p.Department,
		AssigneeName:     assignee,
		PlannedStartDate: p.PlannedStartDate,
		TargetEndDate:    p.TargetEndDate,
	}
}

// TicketResponse is the wire form of a ticket. CreatedAt is epoch milliseconds.
type TicketResponse struct {
	ID                 string              `json:"id"`
	Status             domain.TicketStatus `json:"status"`
	ReporterID         string              `json:"reporter_id"`
	ReportDate         string              `json:"report_date"`
	ProblemDescription string              `json:"problem_description"`
	RiskLevel          domain.RiskLevel    `json:"risk_level"`
	BusinessImpact     string              `json:"business_impact"`
	Recommendation     string              `json:"recommendation"`
	Photos             []string            `json:"photos"`
	CreatedAt          int64               `json:"created_at"`
	Department         string              `json:"department"`
	AssigneeName       string              `json:"assignee_name"`
	PlannedStartDate   string              `json:"planned_start_date"`
	TargetEndDate      string              `json:"target_end_date"`
	ActualFinishDate   *string             `json:"actual_finish_date"`
}

// NewTicketResponse converts a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	photos := t.Photos
	if photos == nil {
		photos = []string{}
	}
	resp := TicketResponse{
		ID:                 t.ID,
		Status:             t.Status,
		ReporterID:         t.ReporterID,
		ReportDate:         t.ReportDate,
		ProblemDescription: t.ProblemDescription,
		RiskLevel:          t.RiskLevel,
		BusinessImpact:     t.BusinessImpact,
		Recommendation:     t.Recommendation,
		Photos:             photos,
		CreatedAt:          t.CreatedAt.UnixMilli(),
		Department:         t.Department,
		AssigneeName:       t.AssigneeName,
		PlannedStartDate:   t.PlannedStartDate,
		TargetEndDate:      t.TargetEndDate,
	}
	if t.ActualFinishDate != "" {
		finished := t.ActualFinishDate
		resp.ActualFinishDate = &finished
	}
	return resp
}

// NewTicketResponses converts a list.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}
