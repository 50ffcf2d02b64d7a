package store

import (
	"context"
	"fmt"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/models"
)

// PlanRepository reads and writes the plan catalog table.
type PlanRepository struct {
	rows  *Rows
	table string
}

// NewPlanRepository creates a PlanRepository
func NewPlanRepository(rows *Rows, cfg *config.BackendConfig) *PlanRepository {
	return &PlanRepository{rows: rows, table: cfg.PlanTable}
}

// ListActive returns the active plans, cheapest first.
func (r *PlanRepository) ListActive(ctx context.Context) ([]models.Plan, error) {
	plans := []models.Plan{}
	q := Select("*").Eq("activo", "true").Order("precio", true)
	if err := r.rows.List(ctx, r.table, q, &plans); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// ListByAdvisor returns every plan created by advisorID, newest first.
func (r *PlanRepository) ListByAdvisor(ctx context.Context, advisorID string) ([]models.Plan, error) {
	plans := []models.Plan{}
	q := Select("*").Eq("asesor_id", advisorID).Order("created_at", false)
	if err := r.rows.List(ctx, r.table, q, &plans); err != nil {
		return nil, fmt.Errorf("failed to list advisor plans: %w", err)
	}
	return plans, nil
}

// Get returns one plan or ErrNotFound.
func (r *PlanRepository) Get(ctx context.Context, id string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.rows.One(ctx, r.table, Select("*").Eq("id", id), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Insert stores plan and returns the stored row.
func (r *PlanRepository) Insert(ctx context.Context, plan *models.Plan) (*models.Plan, error) {
	var created models.Plan
	if err := r.rows.Insert(ctx, r.table, plan, &created); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	return &created, nil
}

// Update applies patch to plan id.
func (r *PlanRepository) Update(ctx context.Context, id string, patch *models.PlanPatch) error {
	n, err := r.rows.Update(ctx, r.table, Filter().Eq("id", id), patch)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
