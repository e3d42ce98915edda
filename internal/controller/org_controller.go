// internal/controller/org_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/repository"
)

type OrgController struct {
	Orgs   repository.OrgRepositoryInterface
	Logger zerolog.Logger
}

// GetOrg returns one org by domain. Credentials never leave the server:
// the API key and the decrypted secret are not serialized.
func (c *OrgController) GetOrg(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	org, err := c.Orgs.GetByDomain(domain)
	if err != nil {
		c.Logger.Error().Err(err).Str("domain", domain).Msg("org lookup failed")
		http.Error(w, "failed to fetch org", http.StatusInternalServerError)
		return
	}
	if org == nil {
		http.Error(w, "org not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(org)
}

// UpdateOrg patches an org's mutable fields. The API key cannot be changed
// through this path.
func (c *OrgController) UpdateOrg(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	var body struct {
		Fields model.OrgUpdate `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.Orgs.UpdateByDomain(domain, body.Fields); err != nil {
		c.Logger.Error().Err(err).Str("domain", domain).Msg("org update failed")
		http.Error(w, "failed to update org", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
