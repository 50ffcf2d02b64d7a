// Package handler provides the HTTP handlers of the app shell.
package handler

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/reconcile"
	"github.com/brizzai/tigoplanes/internal/utils"
	"go.uber.org/zap"
)

// LinkHandler feeds delivered links to callback screens.
type LinkHandler struct {
	router *reconcile.Router
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(router *reconcile.Router) *LinkHandler {
	return &LinkHandler{router: router}
}

type linkRequest struct {
	URL string `json:"url"`
}

type linkResponse struct {
	Delivery  string              `json:"delivery"`
	State     reconcile.State     `json:"state,omitempty"`
	Redirect  *reconcile.Redirect `json:"redirect,omitempty"`
	Navigated bool                `json:"navigated"`
}

// HandleDeliver takes a link the OS delivered, either at launch or as a URL
// event, and answers once the screen navigated.
func (h *LinkHandler) HandleDeliver(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := utils.DecodeJSON(r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		utils.WriteError(w, "invalid_request", "url is required", http.StatusBadRequest)
		return
	}
	h.deliver(r.Context(), w, req.URL)
}

// HandleCallback is the landing page of hosted callback URLs. Only the query
// reaches the server; fragments stay in the browser.
func (h *LinkHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	h.deliver(r.Context(), w, scheme+"://"+r.Host+r.URL.RequestURI())
}

func (h *LinkHandler) deliver(ctx context.Context, w http.ResponseWriter, raw string) {
	var navigated atomic.Bool
	screen := h.router.Mount(reconcile.NavigatorFunc(func(reconcile.Redirect) {
		navigated.Store(true)
	}))
	// A client that hangs up takes its screen with it.
	stop := context.AfterFunc(ctx, screen.Unmount)
	defer stop()

	outcome, delivery := screen.Deliver(ctx, raw)
	resp := linkResponse{Delivery: delivery.String()}

	switch delivery {
	case reconcile.Ignored:
		utils.WriteJSON(w, http.StatusOK, resp)
		return
	case reconcile.Duplicate:
		utils.WriteJSON(w, http.StatusConflict, resp)
		return
	}

	<-screen.Done()
	if ctx.Err() != nil {
		logger.Debug("Client left before navigation", zap.String("screen", screen.ID))
	}

	resp.State = outcome.State
	resp.Redirect = &outcome.Redirect
	resp.Navigated = navigated.Load()
	utils.WriteJSON(w, http.StatusOK, resp)
}
