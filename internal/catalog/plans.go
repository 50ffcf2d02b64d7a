package catalog

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const imagePrefix = "planes/"

// PlanRows is the plan table.
type PlanRows interface {
	ListActive(ctx context.Context) ([]models.Plan, error)
	ListByAdvisor(ctx context.Context, advisorID string) ([]models.Plan, error)
	Get(ctx context.Context, id string) (*models.Plan, error)
	Insert(ctx context.Context, plan *models.Plan) (*models.Plan, error)
	Update(ctx context.Context, id string, patch *models.PlanPatch) error
}

// Blobs is the object storage holding plan images.
type Blobs interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error
	Remove(ctx context.Context, bucket string, objectPaths ...string) error
	PublicURL(bucket, objectPath string) string
}

type PlanServiceParams struct {
	fx.In

	Identity Identity
	Plans    PlanRows
	Blobs    Blobs
	Backend  *config.BackendConfig
}

// PlanService manages the plan catalog.
type PlanService struct {
	id     Identity
	plans  PlanRows
	blobs  Blobs
	bucket string
	now    func() time.Time
	log    *zap.Logger
}

// NewPlanService creates a PlanService
func NewPlanService(params PlanServiceParams) *PlanService {
	return &PlanService{
		id:     params.Identity,
		plans:  params.Plans,
		blobs:  params.Blobs,
		bucket: params.Backend.ImageBucket,
		now:    time.Now,
		log:    logger.Named("plans"),
	}
}

// ListActive returns the plans shown to customers and guests.
func (s *PlanService) ListActive(ctx context.Context) ([]models.Plan, error) {
	return s.plans.ListActive(asUser(ctx, s.id))
}

// ListMine returns the calling advisor's plans, including inactive ones.
func (s *PlanService) ListMine(ctx context.Context) ([]models.Plan, error) {
	ctx, user, err := advisor(ctx, s.id)
	if err != nil {
		return nil, err
	}
	return s.plans.ListByAdvisor(ctx, user.ID)
}

func (s *PlanService) Get(ctx context.Context, id string) (*models.Plan, error) {
	return s.plans.Get(asUser(ctx, s.id), id)
}

// Create stores a new active plan owned by the calling advisor.
func (s *PlanService) Create(ctx context.Context, plan models.Plan) (*models.Plan, error) {
	ctx, user, err := advisor(ctx, s.id)
	if err != nil {
		return nil, err
	}
	plan.Name = strings.TrimSpace(plan.Name)
	if plan.Name == "" {
		return nil, invalid("plan name is required")
	}
	if plan.Price <= 0 {
		return nil, invalid("plan price must be positive")
	}
	plan.ID = ""
	plan.CreatedAt = nil
	plan.AdvisorID = user.ID
	plan.Active = true

	created, err := s.plans.Insert(ctx, &plan)
	if err != nil {
		return nil, err
	}
	s.log.Info("plan created", zap.String("plan_id", created.ID), zap.String("advisor_id", user.ID))
	return created, nil
}

// Update applies patch to a plan.
func (s *PlanService) Update(ctx context.Context, id string, patch models.PlanPatch) error {
	ctx, _, err := advisor(ctx, s.id)
	if err != nil {
		return err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return invalid("plan name is required")
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return invalid("plan price must be positive")
	}
	return s.plans.Update(ctx, id, &patch)
}

// Delete deactivates a plan. Its image is removed first; a failed removal is
// only logged.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	ctx, _, err := advisor(ctx, s.id)
	if err != nil {
		return err
	}
	plan, err := s.plans.Get(ctx, id)
	if err != nil {
		return err
	}
	if object := imageObject(plan.ImageURL); object != "" {
		if err := s.blobs.Remove(ctx, s.bucket, object); err != nil {
			s.log.Warn("failed to remove plan image", zap.String("plan_id", id), zap.String("object", object), zap.Error(err))
		}
	}
	inactive := false
	if err := s.plans.Update(ctx, id, &models.PlanPatch{Active: &inactive}); err != nil {
		return err
	}
	s.log.Info("plan deactivated", zap.String("plan_id", id))
	return nil
}

// UploadImage stores a plan image and returns its public URL. filename only
// contributes its extension.
func (s *PlanService) UploadImage(ctx context.Context, filename string, body io.Reader) (string, error) {
	ctx, _, err := advisor(ctx, s.id)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = "jpg"
	}
	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "image/" + ext
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", invalid("%s is not an image", filename)
	}

	object := fmt.Sprintf("%s%d.%s", imagePrefix, s.now().UnixMilli(), ext)
	if err := s.blobs.Upload(ctx, s.bucket, object, contentType, body); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return s.blobs.PublicURL(s.bucket, object), nil
}

// imageObject maps a public image URL back to its object path.
func imageObject(url string) string {
	if url == "" {
		return ""
	}
	name := url[strings.LastIndex(url, "/")+1:]
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return ""
	}
	return imagePrefix + name
}
