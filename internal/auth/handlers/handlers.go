package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/utils"
	"go.uber.org/zap"
)

// keepAliveInterval spaces the comments that keep idle event streams open.
const keepAliveInterval = 25 * time.Second

// Handler serves the session endpoints
type Handler struct {
	auth *auth.Service
}

// NewHandler creates a new Handler instance
func NewHandler(svc *auth.Service) *Handler {
	return &Handler{auth: svc}
}

type sessionResponse struct {
	User *models.User `json:"user"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"nombre"`
	Phone       string `json:"telefono"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type passwordRequest struct {
	Current  string `json:"current_password"`
	Password string `json:"password"`
}

type profileRequest struct {
	DisplayName string `json:"nombre"`
	Phone       string `json:"telefono"`
}

// HandleSession returns the signed-in user, or null.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, sessionResponse{User: user})
}

// HandleSignIn handles email and password sign-in
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.WriteError(w, "invalid_request", "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, sessionResponse{User: user})
}

// HandleSignUp registers a customer account
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.WriteError(w, "invalid_request", "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.auth.SignUp(r.Context(), auth.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, sessionResponse{User: user})
}

// HandleSignOut ends the session
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePasswordReset sends the recovery email
func (h *Handler) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := utils.DecodeJSON(r, &req); err != nil || req.Email == "" {
		utils.WriteError(w, "invalid_request", "Email is required", http.StatusBadRequest)
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandlePassword sets a new password. With current_password the old one is
// checked first; without it the call completes a recovery.
func (h *Handler) HandlePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := utils.DecodeJSON(r, &req); err != nil || req.Password == "" {
		utils.WriteError(w, "invalid_request", "Password is required", http.StatusBadRequest)
		return
	}

	var err error
	if req.Current != "" {
		err = h.auth.ChangePassword(r.Context(), req.Current, req.Password)
	} else {
		err = h.auth.UpdatePassword(r.Context(), req.Password)
	}
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleProfile updates the display name and phone
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.auth.UpdateProfile(r.Context(), req.DisplayName, req.Phone); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents streams session transitions as server-sent events until the
// client goes away.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, "unsupported", "Streaming not supported", http.StatusInternalServerError)
		return
	}

	type change struct {
		event auth.Event
		user  *models.User
	}
	changes := make(chan change, 16)
	unsubscribe := h.auth.Subscribe(func(event auth.Event, user *models.User) {
		select {
		case changes <- change{event, user}:
		default:
			logger.Warn("Dropping session event for slow client", zap.String("event", string(event)))
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case c := <-changes:
			data, err := json.Marshal(sessionResponse{User: c.user})
			if err != nil {
				logger.Error("Failed to encode session event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.event, data)
			flusher.Flush()
		}
	}
}
