package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/config"
)

// ProfileUpdate is the writable part of a profile row.
type ProfileUpdate struct {
	DisplayName string `json:"nombre"`
	Phone       string `json:"telefono,omitempty"`
}

// ProfileRepository reads and writes the application's user profile table.
type ProfileRepository struct {
	rows  *Rows
	table string
}

// NewProfileRepository creates a ProfileRepository
func NewProfileRepository(rows *Rows, cfg *config.BackendConfig) *ProfileRepository {
	return &ProfileRepository{rows: rows, table: cfg.ProfileTable}
}

// Get returns the profile for id, or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.rows.One(ctx, r.table, Select("*").Eq("id", id), &user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return &user, nil
}

// Update writes upd to the profile of id.
func (r *ProfileRepository) Update(ctx context.Context, id string, upd ProfileUpdate) error {
	n, err := r.rows.Update(ctx, r.table, Filter().Eq("id", id), upd)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
