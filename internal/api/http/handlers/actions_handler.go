package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-portal/internal/api/dto"
	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/service"
	apperrors "github.com/spec-kit/maintenance-portal/pkg/util"
)

// ActionsHandler serves the single-endpoint envelope used by the legacy web client.
type ActionsHandler struct {
	service *service.TicketService
}

// NewActionsHandler constructs handler.
func NewActionsHandler(ticketService *service.TicketService) *ActionsHandler {
	return &ActionsHandler{service: ticketService}
}

// Dispatch POST /actions.
func (h *ActionsHandler) Dispatch(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "create":
		if principal.Role != domain.RoleOutlet {
			return apperrors.NewForbidden("only outlets report tickets")
		}
		if req.Data == nil {
			return apperrors.NewValidationError("data is required", nil)
		}
		ticket, err := h.service.CreateTicket(c.UserContext(), service.CreateTicketInput{
			ID:                 req.Data.ID,
			ReporterID:         principal.AccountID,
			ReportDate:         req.Data.ReportDate,
			ProblemDescription: req.Data.ProblemIndicator,
			Photos:             req.Data.Photos,
		})
		if err != nil {
			return err
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})

	case "update":
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("insufficient role")
		}
		var updates dto.LegacyUpdates
		if req.Updates != nil {
			updates = *req.Updates
		}
		plan := updates.ToPlanRequest().ToPlan(principal.AccountID)

		var ticket *domain.Ticket
		if req.IsFinished {
			// Legacy clients send whatever the form holds when closing;
			// only a complete plan is written alongside the status change.
			var finishPlan *domain.PlanFields
			if plan.Normalize().Validate() == nil {
				finishPlan = &plan
			}
			ticket, err = h.service.FinishTicket(c.UserContext(), req.ID, principal.AccountID, finishPlan)
		} else {
			ticket, err = h.service.SubmitPlan(c.UserContext(), req.ID, principal.AccountID, plan)
		}
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})

	default:
		return apperrors.NewValidationError("unknown action", map[string]any{"action": req.Action})
	}
}
