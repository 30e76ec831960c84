package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

const uniqueViolation = "23505"

const ticketColumns = `id, status, reporter_id, report_date, problem_description, risk_level,
        business_impact, recommendation, photos, created_at, department, assignee_name,
        planned_start_date, target_end_date, actual_finish_date`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Append(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, status, reporter_id, report_date, problem_description, risk_level,
            business_impact, recommendation, photos, created_at, department, assignee_name,
            planned_start_date, target_end_date, actual_finish_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	photos := ticket.Photos
	if photos == nil {
		photos = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		string(ticket.Status),
		ticket.ReporterID,
		ticket.ReportDate,
		ticket.ProblemDescription,
		string(ticket.RiskLevel),
		ticket.BusinessImpact,
		ticket.Recommendation,
		photos,
		ticket.CreatedAt,
		ticket.Department,
		ticket.AssigneeName,
		ticket.PlannedStartDate,
		ticket.TargetEndDate,
		nullable(ticket.ActualFinishDate),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert ticket %s: %w", ticket.ID, err)
	}
	return nil
}

func (r *ticketRepository) UpdateFields(ctx context.Context, id string, update TicketUpdate) error {
	assignments, args := updateAssignments(update)
	if len(assignments) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d`, strings.Join(assignments, ", "), len(args))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// updateAssignments builds the SET list for a patch in a stable column order.
func updateAssignments(u TicketUpdate) ([]string, []any) {
	var (
		assignments []string
		args        []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.RiskLevel != nil {
		add("risk_level", string(*u.RiskLevel))
	}
	if u.BusinessImpact != nil {
		add("business_impact", *u.BusinessImpact)
	}
	if u.Recommendation != nil {
		add("recommendation", *u.Recommendation)
	}
	if u.Department != nil {
		add("department", *u.Department)
	}
	if u.AssigneeName != nil {
		add("assignee_name", *u.AssigneeName)
	}
	if u.PlannedStartDate != nil {
		add("planned_start_date", *u.PlannedStartDate)
	}
	if u.TargetEndDate != nil {
		add("target_end_date", *u.TargetEndDate)
	}
	if u.ActualFinishDate != nil {
		add("actual_finish_date", nullable(*u.ActualFinishDate))
	}
	return assignments, args
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, strings.TrimSpace(*filter.ReporterID))
		clauses = append(clauses, fmt.Sprintf("UPPER(TRIM(reporter_id))=UPPER($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket       domain.Ticket
		status, risk string
		finished     *string
	)
	if err := row.Scan(
		&ticket.ID,
		&status,
		&ticket.ReporterID,
		&ticket.ReportDate,
		&ticket.ProblemDescription,
		&risk,
		&ticket.BusinessImpact,
		&ticket.Recommendation,
		&ticket.Photos,
		&ticket.CreatedAt,
		&ticket.Department,
		&ticket.AssigneeName,
		&ticket.PlannedStartDate,
		&ticket.TargetEndDate,
		&finished,
	); err != nil {
		return nil, err
	}

	parsedStatus, err := domain.ParseTicketStatus(status)
	if err != nil {
		return nil, err
	}
	ticket.Status = parsedStatus
	if parsedRisk, err := domain.ParseRiskLevel(risk); err == nil {
		ticket.RiskLevel = parsedRisk
	} else {
		ticket.RiskLevel = domain.RiskLevelLow
	}
	if finished != nil {
		ticket.ActualFinishDate = *finished
	}
	return &ticket, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
