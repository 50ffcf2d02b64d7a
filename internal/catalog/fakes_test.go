package catalog

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/brizzai/tigoplanes/internal/auth"
	authmodels "github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/models"
	"github.com/brizzai/tigoplanes/internal/requester"
	"github.com/brizzai/tigoplanes/internal/store"
)

type fakeIdentity struct {
	user *authmodels.User
}

func (f *fakeIdentity) CurrentUser(context.Context) (*authmodels.User, error) {
	return f.user, nil
}

func (f *fakeIdentity) AccessToken(context.Context) (string, error) {
	if f.user == nil {
		return "", auth.ErrNotAuthenticated
	}
	return "token-" + f.user.ID, nil
}

var (
	advisorUser  = &authmodels.User{ID: "adv", Email: "asesor@tigo.test", Role: authmodels.RoleAdvisor}
	customerUser = &authmodels.User{ID: "cus", Email: "cliente@tigo.test", Role: authmodels.RoleCustomer}
)

type fakePlans struct {
	mu     sync.Mutex
	rows   map[string]models.Plan
	tokens []string
	nextID int
}

func newFakePlans(plans ...models.Plan) *fakePlans {
	f := &fakePlans{rows: map[string]models.Plan{}}
	for _, p := range plans {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakePlans) seen(ctx context.Context) {
	f.tokens = append(f.tokens, requester.TokenFromContext(ctx))
}

func (f *fakePlans) ListActive(ctx context.Context) ([]models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen(ctx)
	var out []models.Plan
	for _, p := range f.rows {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (f *fakePlans) ListByAdvisor(ctx context.Context, advisorID string) ([]models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen(ctx)
	var out []models.Plan
	for _, p := range f.rows {
		if p.AdvisorID == advisorID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePlans) Get(ctx context.Context, id string) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen(ctx)
	p, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakePlans) Insert(ctx context.Context, plan *models.Plan) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen(ctx)
	f.nextID++
	p := *plan
	p.ID = fmt.Sprintf("p%d", f.nextID)
	f.rows[p.ID] = p
	return &p, nil
}

func (f *fakePlans) Update(ctx context.Context, id string, patch *models.PlanPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen(ctx)
	p, ok := f.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	f.rows[id] = p
	return nil
}

type fakeBlobs struct {
	uploads map[string]string
	removed []string
	failRm  error
}

func (f *fakeBlobs) Upload(_ context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = map[string]string{}
	}
	f.uploads[bucket+"/"+objectPath] = contentType + ":" + string(data)
	return nil
}

func (f *fakeBlobs) Remove(_ context.Context, bucket string, objectPaths ...string) error {
	for _, p := range objectPaths {
		f.removed = append(f.removed, bucket+"/"+p)
	}
	return f.failRm
}

func (f *fakeBlobs) PublicURL(bucket, objectPath string) string {
	return "https://cdn.test/storage/v1/object/public/" + bucket + "/" + objectPath
}

type fakeHirings struct {
	mu      sync.Mutex
	rows    map[string]models.Hiring
	patches []any
	nextID  int
}

func newFakeHirings(hs ...models.Hiring) *fakeHirings {
	f := &fakeHirings{rows: map[string]models.Hiring{}}
	for _, h := range hs {
		f.rows[h.ID] = h
	}
	return f
}

func (f *fakeHirings) Insert(_ context.Context, h *models.Hiring) (*models.Hiring, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := *h
	c.ID = fmt.Sprintf("h%d", f.nextID)
	f.rows[c.ID] = c
	return &c, nil
}

func (f *fakeHirings) Get(_ context.Context, id string) (*models.Hiring, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &h, nil
}

func (f *fakeHirings) filter(keep func(models.Hiring) bool) []models.Hiring {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Hiring
	for _, h := range f.rows {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeHirings) ListByUser(_ context.Context, userID string) ([]models.Hiring, error) {
	return f.filter(func(h models.Hiring) bool { return h.UserID == userID }), nil
}

func (f *fakeHirings) ListAll(context.Context) ([]models.Hiring, error) {
	return f.filter(func(models.Hiring) bool { return true }), nil
}

func (f *fakeHirings) ListPending(context.Context) ([]models.Hiring, error) {
	return f.filter(func(h models.Hiring) bool { return h.Status == models.HiringPending }), nil
}

func (f *fakeHirings) UpdatePending(_ context.Context, id string, patch any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.rows[id]
	if !ok || h.Status != models.HiringPending {
		return store.ErrNotFound
	}
	p := patch.(hiringPatch)
	h.Status = p.Status
	if p.AdvisorID != "" {
		h.AdvisorID = p.AdvisorID
	}
	h.RespondedAt = p.RespondedAt
	h.AdvisorNotes = p.AdvisorNotes
	f.rows[id] = h
	f.patches = append(f.patches, patch)
	return nil
}
