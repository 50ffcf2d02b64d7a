package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/models"
	"github.com/brizzai/tigoplanes/internal/store"
	"go.uber.org/zap"
)

// HiringRows is the hiring request table.
type HiringRows interface {
	Insert(ctx context.Context, h *models.Hiring) (*models.Hiring, error)
	Get(ctx context.Context, id string) (*models.Hiring, error)
	ListByUser(ctx context.Context, userID string) ([]models.Hiring, error)
	ListAll(ctx context.Context) ([]models.Hiring, error)
	ListPending(ctx context.Context) ([]models.Hiring, error)
	UpdatePending(ctx context.Context, id string, patch any) error
}

type hiringPatch struct {
	Status       models.HiringStatus `json:"estado"`
	AdvisorID    string              `json:"asesor_id,omitempty"`
	RespondedAt  *time.Time          `json:"fecha_respuesta,omitempty"`
	AdvisorNotes string              `json:"notas_asesor,omitempty"`
}

// HiringService manages customers' requests to subscribe to plans.
type HiringService struct {
	id      Identity
	hirings HiringRows
	plans   PlanRows
	now     func() time.Time
	log     *zap.Logger
}

// NewHiringService creates a HiringService
func NewHiringService(id Identity, hirings HiringRows, plans PlanRows) *HiringService {
	return &HiringService{
		id:      id,
		hirings: hirings,
		plans:   plans,
		now:     time.Now,
		log:     logger.Named("hirings"),
	}
}

// Create files a pending request for planID on behalf of the caller.
func (s *HiringService) Create(ctx context.Context, planID, notes string) (*models.Hiring, error) {
	ctx, user, err := actor(ctx, s.id)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, invalid("plan %s is no longer offered", planID)
	}

	created, err := s.hirings.Insert(ctx, &models.Hiring{
		UserID:        user.ID,
		PlanID:        planID,
		Status:        models.HiringPending,
		CustomerNotes: strings.TrimSpace(notes),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("hiring requested", zap.String("hiring_id", created.ID), zap.String("plan_id", planID), zap.String("user_id", user.ID))
	return created, nil
}

// ListMine returns the caller's requests, newest first.
func (s *HiringService) ListMine(ctx context.Context) ([]models.Hiring, error) {
	ctx, user, err := actor(ctx, s.id)
	if err != nil {
		return nil, err
	}
	return s.hirings.ListByUser(ctx, user.ID)
}

func (s *HiringService) ListAll(ctx context.Context) ([]models.Hiring, error) {
	ctx, _, err := advisor(ctx, s.id)
	if err != nil {
		return nil, err
	}
	return s.hirings.ListAll(ctx)
}

// ListPending returns the requests awaiting an answer, oldest first.
func (s *HiringService) ListPending(ctx context.Context) ([]models.Hiring, error) {
	ctx, _, err := advisor(ctx, s.id)
	if err != nil {
		return nil, err
	}
	return s.hirings.ListPending(ctx)
}

// Decide approves or rejects a pending request.
func (s *HiringService) Decide(ctx context.Context, id string, status models.HiringStatus, notes string) error {
	if status != models.HiringApproved && status != models.HiringRejected {
		return invalid("unknown decision %q", status)
	}
	ctx, user, err := advisor(ctx, s.id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	err = s.hirings.UpdatePending(ctx, id, hiringPatch{
		Status:       status,
		AdvisorID:    user.ID,
		RespondedAt:  &now,
		AdvisorNotes: strings.TrimSpace(notes),
	})
	if errors.Is(err, store.ErrNotFound) {
		return s.notPending(ctx, id)
	}
	if err != nil {
		return err
	}
	s.log.Info("hiring answered", zap.String("hiring_id", id), zap.String("status", string(status)), zap.String("advisor_id", user.ID))
	return nil
}

// Cancel withdraws one of the caller's own requests while it is pending.
func (s *HiringService) Cancel(ctx context.Context, id string) error {
	ctx, user, err := actor(ctx, s.id)
	if err != nil {
		return err
	}
	h, err := s.hirings.Get(ctx, id)
	if err != nil {
		return err
	}
	if h.UserID != user.ID {
		return ErrNotOwner
	}
	if h.Status != models.HiringPending {
		return ErrNotPending
	}
	err = s.hirings.UpdatePending(ctx, id, hiringPatch{Status: models.HiringRejected})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotPending
	}
	if err != nil {
		return err
	}
	s.log.Info("hiring cancelled", zap.String("hiring_id", id), zap.String("user_id", user.ID))
	return nil
}

// notPending tells a missing request apart from an answered one.
func (s *HiringService) notPending(ctx context.Context, id string) error {
	if _, err := s.hirings.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotPending
}
