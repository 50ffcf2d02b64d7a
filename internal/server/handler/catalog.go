package handler

import (
	"net/http"
	"path"

	"github.com/brizzai/tigoplanes/internal/catalog"
	"github.com/brizzai/tigoplanes/internal/models"
	"github.com/brizzai/tigoplanes/internal/utils"
	"github.com/go-chi/chi/v5"
)

// maxImageSize bounds plan image uploads.
const maxImageSize = 10 << 20

// CatalogHandler serves plans and hiring requests.
type CatalogHandler struct {
	plans   *catalog.PlanService
	hirings *catalog.HiringService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(plans *catalog.PlanService, hirings *catalog.HiringService) *CatalogHandler {
	return &CatalogHandler{plans: plans, hirings: hirings}
}

// Routes mounts the catalog endpoints on r.
func (h *CatalogHandler) Routes(r chi.Router) {
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.HandleListPlans)
		r.Post("/", h.HandleCreatePlan)
		r.Post("/images", h.HandleUploadImage)
		r.Get("/{id}", h.HandleGetPlan)
		r.Put("/{id}", h.HandleUpdatePlan)
		r.Delete("/{id}", h.HandleDeletePlan)
	})
	r.Route("/hirings", func(r chi.Router) {
		r.Get("/", h.HandleListHirings)
		r.Post("/", h.HandleCreateHiring)
		r.Post("/{id}/approve", h.handleDecide(models.HiringApproved))
		r.Post("/{id}/reject", h.handleDecide(models.HiringRejected))
		r.Post("/{id}/cancel", h.HandleCancelHiring)
	})
}

// HandleListPlans lists active plans; ?mine=true lists the advisor's own.
func (h *CatalogHandler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	list := h.plans.ListActive
	if r.URL.Query().Get("mine") == "true" {
		list = h.plans.ListMine
	}
	plans, err := list(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	utils.WriteJSON(w, http.StatusOK, plans)
}

func (h *CatalogHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, plan)
}

func (h *CatalogHandler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var plan models.Plan
	if err := utils.DecodeJSON(r, &plan); err != nil {
		utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.plans.Create(r.Context(), plan)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) HandleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var patch models.PlanPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.plans.Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadImage takes a multipart "file" field and returns its public URL.
func (h *CatalogHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, "invalid_request", "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.plans.UploadImage(r.Context(), path.Base(header.Filename), file)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// HandleListHirings lists the caller's requests; advisors may pass
// ?scope=all or ?scope=pending.
func (h *CatalogHandler) HandleListHirings(w http.ResponseWriter, r *http.Request) {
	list := h.hirings.ListMine
	switch r.URL.Query().Get("scope") {
	case "", "mine":
	case "all":
		list = h.hirings.ListAll
	case "pending":
		list = h.hirings.ListPending
	default:
		utils.WriteError(w, "invalid_request", "scope must be mine, all or pending", http.StatusBadRequest)
		return
	}
	hirings, err := list(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	if hirings == nil {
		hirings = []models.Hiring{}
	}
	utils.WriteJSON(w, http.StatusOK, hirings)
}

type hiringRequest struct {
	PlanID string `json:"plan_id"`
	Notes  string `json:"notas_usuario"`
}

type decisionRequest struct {
	Notes string `json:"notas_asesor"`
}

func (h *CatalogHandler) HandleCreateHiring(w http.ResponseWriter, r *http.Request) {
	var req hiringRequest
	if err := utils.DecodeJSON(r, &req); err != nil || req.PlanID == "" {
		utils.WriteError(w, "invalid_request", "plan_id is required", http.StatusBadRequest)
		return
	}
	created, err := h.hirings.Create(r.Context(), req.PlanID, req.Notes)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleDecide(status models.HiringStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req decisionRequest
		if r.ContentLength != 0 {
			if err := utils.DecodeJSON(r, &req); err != nil {
				utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
				return
			}
		}
		if err := h.hirings.Decide(r.Context(), chi.URLParam(r, "id"), status, req.Notes); err != nil {
			utils.WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *CatalogHandler) HandleCancelHiring(w http.ResponseWriter, r *http.Request) {
	if err := h.hirings.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
