package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth"
	authmodels "github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlanService(user *authmodels.User, plans *fakePlans, blobs *fakeBlobs) *PlanService {
	svc := NewPlanService(PlanServiceParams{
		Identity: &fakeIdentity{user: user},
		Plans:    plans,
		Blobs:    blobs,
		Backend:  &config.BackendConfig{ImageBucket: "planes-imagenes"},
	})
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc
}

func TestPlanService_ListActive(t *testing.T) {
	plans := newFakePlans(
		models.Plan{ID: "a", Name: "Pro", Price: 30, Active: true},
		models.Plan{ID: "b", Name: "Basic", Price: 10, Active: true},
		models.Plan{ID: "c", Name: "Old", Price: 5, Active: false},
	)

	t.Run("guest", func(t *testing.T) {
		got, err := newPlanService(nil, plans, &fakeBlobs{}).ListActive(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Basic", got[0].Name)
		assert.Equal(t, "Pro", got[1].Name)
	})

	t.Run("customer acts with own token", func(t *testing.T) {
		plans.tokens = nil
		_, err := newPlanService(customerUser, plans, &fakeBlobs{}).ListActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"token-cus"}, plans.tokens)
	})
}

func TestPlanService_AdvisorOnly(t *testing.T) {
	plans := newFakePlans(models.Plan{ID: "a", Name: "Pro", Price: 30, Active: true})
	ctx := context.Background()

	for name, user := range map[string]*authmodels.User{"customer": customerUser, "guest": nil} {
		t.Run(name, func(t *testing.T) {
			svc := newPlanService(user, plans, &fakeBlobs{})
			want := ErrAdvisorOnly
			if user == nil {
				want = auth.ErrNotAuthenticated
			}

			_, err := svc.Create(ctx, models.Plan{Name: "X", Price: 1})
			assert.ErrorIs(t, err, want)
			assert.ErrorIs(t, svc.Update(ctx, "a", models.PlanPatch{}), want)
			assert.ErrorIs(t, svc.Delete(ctx, "a"), want)
			_, err = svc.UploadImage(ctx, "a.png", strings.NewReader("img"))
			assert.ErrorIs(t, err, want)
			_, err = svc.ListMine(ctx)
			assert.ErrorIs(t, err, want)
		})
	}
	assert.True(t, plans.rows["a"].Active)
}

func TestPlanService_Create(t *testing.T) {
	plans := newFakePlans()
	svc := newPlanService(advisorUser, plans, &fakeBlobs{})
	ctx := context.Background()

	created, err := svc.Create(ctx, models.Plan{ID: "ignored", Name: "  Smart 20  ", Price: 20, DataGB: "20"})
	require.NoError(t, err)
	assert.Equal(t, "p1", created.ID)
	assert.Equal(t, "Smart 20", created.Name)
	assert.Equal(t, "adv", created.AdvisorID)
	assert.True(t, created.Active)
	assert.Equal(t, []string{"token-adv"}, plans.tokens)

	_, err = svc.Create(ctx, models.Plan{Name: " ", Price: 20})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Create(ctx, models.Plan{Name: "Free", Price: 0})
	assert.ErrorIs(t, err, ErrInvalid)

	mine, err := svc.ListMine(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestPlanService_Update(t *testing.T) {
	plans := newFakePlans(models.Plan{ID: "a", Name: "Pro", Price: 30, Active: true})
	svc := newPlanService(advisorUser, plans, &fakeBlobs{})
	ctx := context.Background()

	price := 25.0
	require.NoError(t, svc.Update(ctx, "a", models.PlanPatch{Price: &price}))
	assert.Equal(t, 25.0, plans.rows["a"].Price)

	negative := -1.0
	assert.ErrorIs(t, svc.Update(ctx, "a", models.PlanPatch{Price: &negative}), ErrInvalid)
	assert.ErrorIs(t, svc.Update(ctx, "missing", models.PlanPatch{Price: &price}), ErrNotFound)
}

func TestPlanService_DeleteIsSoftAndRemovesImage(t *testing.T) {
	plans := newFakePlans(models.Plan{
		ID:       "a",
		Name:     "Pro",
		Price:    30,
		Active:   true,
		ImageURL: "https://cdn.test/storage/v1/object/public/planes-imagenes/planes/1699.png",
	})
	blobs := &fakeBlobs{}
	svc := newPlanService(advisorUser, plans, blobs)

	require.NoError(t, svc.Delete(context.Background(), "a"))

	p, ok := plans.rows["a"]
	require.True(t, ok, "row is kept")
	assert.False(t, p.Active)
	assert.Equal(t, []string{"planes-imagenes/planes/1699.png"}, blobs.removed)
}

func TestPlanService_DeleteSurvivesImageFailure(t *testing.T) {
	plans := newFakePlans(models.Plan{ID: "a", Name: "Pro", Price: 30, Active: true, ImageURL: "https://x/planes/1.jpg"})
	svc := newPlanService(advisorUser, plans, &fakeBlobs{failRm: errors.New("storage down")})

	require.NoError(t, svc.Delete(context.Background(), "a"))
	assert.False(t, plans.rows["a"].Active)
}

func TestPlanService_UploadImage(t *testing.T) {
	blobs := &fakeBlobs{}
	svc := newPlanService(advisorUser, newFakePlans(), blobs)
	ctx := context.Background()

	url, err := svc.UploadImage(ctx, "/tmp/Photo.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/storage/v1/object/public/planes-imagenes/planes/1700000000123.png", url)
	assert.Equal(t, "image/png:png-bytes", blobs.uploads["planes-imagenes/planes/1700000000123.png"])

	url, err = svc.UploadImage(ctx, "noext", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/planes/1700000000123.jpg"))

	_, err = svc.UploadImage(ctx, "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestImageObject(t *testing.T) {
	assert.Equal(t, "", imageObject(""))
	assert.Equal(t, "planes/1.png", imageObject("https://x/a/b/planes/1.png"))
	assert.Equal(t, "planes/1.png", imageObject("https://x/planes/1.png?t=2"))
	assert.Equal(t, "", imageObject("https://x/planes/"))
}
