package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

// MemoryTicketRepository keeps tickets in process. Used when no Postgres DSN
// is configured and in tests. Callers always receive copies.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
	// FailWrites makes Append and UpdateFields return the error, for tests.
	FailWrites error
}

// NewMemoryTicketRepository returns an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *MemoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if filter.matches(&t) {
			result = append(result, cloneTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneTicket(t)
	return &c, nil
}

func (r *MemoryTicketRepository) Append(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return r.FailWrites
	}
	if _, exists := r.tickets[ticket.ID]; exists {
		return ErrDuplicateID
	}
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *MemoryTicketRepository) UpdateFields(_ context.Context, id string, update TicketUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return r.FailWrites
	}
	t, ok := r.tickets[id]
	if !ok {
		return ErrNotFound
	}
	update.Apply(&t)
	r.tickets[id] = t
	return nil
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.Photos != nil {
		t.Photos = append([]string(nil), t.Photos...)
	}
	return t
}

// MemoryAccountRepository keeps accounts in process.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewMemoryAccountRepository returns a store seeded with accounts.
func NewMemoryAccountRepository(accounts ...domain.Account) *MemoryAccountRepository {
	r := &MemoryAccountRepository{accounts: make(map[string]domain.Account, len(accounts))}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *MemoryAccountRepository) List(_ context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MemoryAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAccountRepository) Upsert(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = *account
	return nil
}
