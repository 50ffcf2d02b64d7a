package handler

import (
	"net/http"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/utils"
)

// AppLinksHandler serves the association files that let the operating
// systems open hosted callback URLs in the app.
type AppLinksHandler struct {
	cfg *config.AppLinksConfig
}

// NewAppLinksHandler creates a new AppLinksHandler.
func NewAppLinksHandler(cfg *config.AppLinksConfig) *AppLinksHandler {
	return &AppLinksHandler{cfg: cfg}
}

type appleDetail struct {
	AppID string   `json:"appID"`
	Paths []string `json:"paths"`
}

type appleAssociation struct {
	AppLinks struct {
		Apps    []string      `json:"apps"`
		Details []appleDetail `json:"details"`
	} `json:"applinks"`
}

type androidTarget struct {
	Namespace    string   `json:"namespace"`
	PackageName  string   `json:"package_name"`
	Fingerprints []string `json:"sha256_cert_fingerprints"`
}

type androidStatement struct {
	Relation []string      `json:"relation"`
	Target   androidTarget `json:"target"`
}

// HandleAppleAssociation serves apple-app-site-association.
func (h *AppLinksHandler) HandleAppleAssociation(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AppleAppID == "" {
		http.NotFound(w, r)
		return
	}
	var doc appleAssociation
	doc.AppLinks.Apps = []string{}
	doc.AppLinks.Details = []appleDetail{{AppID: h.cfg.AppleAppID, Paths: h.cfg.Paths}}
	utils.WriteJSON(w, http.StatusOK, doc)
}

// HandleAssetLinks serves assetlinks.json.
func (h *AppLinksHandler) HandleAssetLinks(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AndroidPackage == "" {
		http.NotFound(w, r)
		return
	}
	utils.WriteJSON(w, http.StatusOK, []androidStatement{{
		Relation: []string{"delegate_permission/common.handle_all_urls"},
		Target: androidTarget{
			Namespace:    "android_app",
			PackageName:  h.cfg.AndroidPackage,
			Fingerprints: h.cfg.AndroidFingerprints,
		},
	}})
}
