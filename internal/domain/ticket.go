package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusPlanned  TicketStatus = "PLANNED"
	TicketStatusFinished TicketStatus = "FINISHED"
)

// RiskLevel enumerates the admin-assessed severity of a report.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

const (
	// OverdueThreshold is how long a ticket may stay PENDING before reminders go out.
	OverdueThreshold = 72 * time.Hour

	// ReportDateLayout is the calendar date format supplied by reporters and planners.
	ReportDateLayout = "2006-01-02"

	// FinishDateLayout is the format of ActualFinishDate.
	FinishDateLayout = "02/01/2006"
)

// Ticket is the aggregate for a reported maintenance issue.
type Ticket struct {
	ID                 string
	Status             TicketStatus
	ReporterID         string
	ReportDate         string
	ProblemDescription string
	RiskLevel          RiskLevel
	BusinessImpact     string
	Recommendation     string
	Photos             []string
	CreatedAt          time.Time
	Department         string
	AssigneeName       string
	PlannedStartDate   string
	TargetEndDate      string
	ActualFinishDate   string
}

// IsOverdue reports whether the ticket is still PENDING more than
// OverdueThreshold after creation. Compared at millisecond precision.
func (t *Ticket) IsOverdue(now time.Time) bool {
	if t.Status != TicketStatusPending {
		return false
	}
	return now.UnixMilli()-t.CreatedAt.UnixMilli() > OverdueThreshold.Milliseconds()
}

// Plan returns the planning fields currently stored on the ticket.
func (t *Ticket) Plan() PlanFields {
	return PlanFields{
		RiskLevel:        t.RiskLevel,
		BusinessImpact:   t.BusinessImpact,
		Recommendation:   t.Recommendation,
		Department:       t.Department,
		AssigneeName:     t.AssigneeName,
		PlannedStartDate: t.PlannedStartDate,
		TargetEndDate:    t.TargetEndDate,
	}
}

// ParseTicketStatus normalizes a status string from the store or a client.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch s := TicketStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case TicketStatusPending, TicketStatusPlanned, TicketStatusFinished:
		return s, nil
	default:
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
}

// ParseRiskLevel normalizes a risk level string. Admin forms label levels
// "P1 - CRITICAL" and so on; only the trailing level name is significant.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if idx := strings.LastIndex(value, " "); idx >= 0 {
		value = value[idx+1:]
	}
	switch r := RiskLevel(value); r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return r, nil
	default:
		return "", fmt.Errorf("unknown risk level %q", raw)
	}
}

// ValidDate reports whether value is a calendar date in ReportDateLayout.
func ValidDate(value string) bool {
	_, err := time.Parse(ReportDateLayout, value)
	return err == nil
}
