package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-portal/internal/api/dto"
	"github.com/spec-kit/maintenance-portal/internal/auth"
	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/service"
	apperrors "github.com/spec-kit/maintenance-portal/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	now     func() time.Time
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, now: time.Now}
}

// ListTickets GET /tickets. Outlets only see their own tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		return err
	}
	filter := service.TicketListFilter{Statuses: statuses}
	if principal.IsAdmin() {
		filter.ReporterID = c.Query("reporter_id")
	} else {
		filter.ReporterID = principal.AccountID
	}

	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if !principal.IsAdmin() && !domain.SameID(ticket.ReporterID, principal.AccountID) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.CreateTicketInput{
		ID:                 req.ID,
		ReporterID:         principal.AccountID,
		ReportDate:         req.ReportDate,
		ProblemDescription: req.ProblemDescription,
		Photos:             req.Photos,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SubmitPlan POST /tickets/:id/plan.
func (h *TicketsHandler) SubmitPlan(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SubmitPlan(c.UserContext(), c.Params("id"), principal.AccountID, req.ToPlan(principal.AccountID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// FinishTicket POST /tickets/:id/finish. The body is optional; when it
// carries plan fields they are applied with the status change.
func (h *TicketsHandler) FinishTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var plan *domain.PlanFields
	if len(c.Body()) > 0 {
		var req dto.PlanRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if !req.IsEmpty() {
			p := req.ToPlan(principal.AccountID)
			plan = &p
		}
	}
	ticket, err := h.service.FinishTicket(c.UserContext(), c.Params("id"), principal.AccountID, plan)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListOverdue GET /tickets/overdue.
func (h *TicketsHandler) ListOverdue(c *fiber.Ctx) error {
	tickets, err := h.service.ListOverdue(c.UserContext(), h.now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseStatuses(raw string) ([]domain.TicketStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var statuses []domain.TicketStatus
	for _, part := range strings.Split(raw, ",") {
		status, err := domain.ParseTicketStatus(part)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
