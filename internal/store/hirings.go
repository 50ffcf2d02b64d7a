package store

import (
	"context"
	"fmt"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/models"
)

const (
	hiringWithPlan     = "*,plan:plan_id(*)"
	hiringWithCustomer = "*,plan:plan_id(*),usuario:usuario_id(email,nombre)"
)

// HiringRepository reads and writes hiring requests.
type HiringRepository struct {
	rows  *Rows
	table string
}

// NewHiringRepository creates a HiringRepository
func NewHiringRepository(rows *Rows, cfg *config.BackendConfig) *HiringRepository {
	return &HiringRepository{rows: rows, table: cfg.HiringTable}
}

// Insert stores a new request and returns it.
func (r *HiringRepository) Insert(ctx context.Context, h *models.Hiring) (*models.Hiring, error) {
	var created models.Hiring
	if err := r.rows.Insert(ctx, r.table, h, &created); err != nil {
		return nil, fmt.Errorf("failed to create hiring: %w", err)
	}
	return &created, nil
}

// Get returns one request or ErrNotFound.
func (r *HiringRepository) Get(ctx context.Context, id string) (*models.Hiring, error) {
	var h models.Hiring
	if err := r.rows.One(ctx, r.table, Select("*").Eq("id", id), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListByUser returns the requests of userID with their plan, newest first.
func (r *HiringRepository) ListByUser(ctx context.Context, userID string) ([]models.Hiring, error) {
	return r.list(ctx, Select(hiringWithPlan).Eq("usuario_id", userID).Order("fecha_solicitud", false))
}

// ListAll returns every request with plan and customer, newest first.
func (r *HiringRepository) ListAll(ctx context.Context) ([]models.Hiring, error) {
	return r.list(ctx, Select(hiringWithCustomer).Order("fecha_solicitud", false))
}

// ListPending returns the pending requests, oldest first.
func (r *HiringRepository) ListPending(ctx context.Context) ([]models.Hiring, error) {
	return r.list(ctx, Select(hiringWithCustomer).Eq("estado", string(models.HiringPending)).Order("fecha_solicitud", true))
}

func (r *HiringRepository) list(ctx context.Context, q *Query) ([]models.Hiring, error) {
	hirings := []models.Hiring{}
	if err := r.rows.List(ctx, r.table, q, &hirings); err != nil {
		return nil, fmt.Errorf("failed to list hirings: %w", err)
	}
	return hirings, nil
}

// UpdatePending applies patch to request id while it is still pending. It
// returns ErrNotFound when no pending request matched.
func (r *HiringRepository) UpdatePending(ctx context.Context, id string, patch any) error {
	q := Filter().Eq("id", id).Eq("estado", string(models.HiringPending))
	n, err := r.rows.Update(ctx, r.table, q, patch)
	if err != nil {
		return fmt.Errorf("failed to update hiring: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
