// Package api serves the organization endpoints as JSON over net/http.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/organizations"
)

// OrganizationService is the part of organizations.Service the API uses.
type OrganizationService interface {
	FetchForUser(ctx context.Context, profileID uuid.UUID) ([]*models.OrganizationWithRole, error)
	Create(ctx context.Context, name string, profileID uuid.UUID) (uuid.UUID, error)
	ValidateAccess(ctx context.Context, profileID, orgID uuid.UUID) bool
	Members(ctx context.Context, profileID, orgID uuid.UUID) ([]*models.Membership, error)
}

// Handler serves the API.
type Handler struct {
	svc OrganizationService
}

// NewHandler returns the API routes. authn must place a complete
// identity.Context on the request context; every route except /healthz
// runs behind it.
func NewHandler(svc OrganizationService, authn func(http.Handler) http.Handler) http.Handler {
	h := &Handler{svc: svc}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/me", h.me)
	api.HandleFunc("GET /api/organizations", h.listOrganizations)
	api.HandleFunc("POST /api/organizations", h.createOrganization)
	api.HandleFunc("GET /api/organizations/{id}/access", h.checkAccess)
	api.HandleFunc("GET /api/organizations/{id}/members", h.listMembers)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("/api/", authn(api))

	return mux
}

type organizationResponse struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type memberResponse struct {
	UserID    uuid.UUID   `json:"user_id"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

type profileResponse struct {
	ID          uuid.UUID `json:"id"`
	ExternalUID string    `json:"external_uid"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:          id.Profile.ProfileID,
		ExternalUID: id.Profile.ExternalUID,
		Email:       id.Profile.Email,
		Name:        id.Profile.Name,
	})
}

func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orgs, err := h.svc.FetchForUser(r.Context(), id.ProfileID())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]organizationResponse, 0, len(orgs))
	for _, o := range orgs {
		resp = append(resp, organizationResponse{
			ID:        o.OrgID,
			Name:      o.Name,
			OwnerID:   o.OwnerID,
			Role:      o.Role,
			CreatedAt: o.CreatedAt,
			UpdatedAt: o.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"organizations": resp})
}

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orgID, err := h.svc.Create(r.Context(), req.Name, id.ProfileID())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"organization_id": orgID})
}

func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orgID, ok := pathOrgID(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"allowed": h.svc.ValidateAccess(r.Context(), id.ProfileID(), orgID)})
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orgID, ok := pathOrgID(w, r)
	if !ok {
		return
	}

	members, err := h.svc.Members(r.Context(), id.ProfileID(), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt})
	}

	writeJSON(w, http.StatusOK, map[string]any{"members": resp})
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (identity.Context, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok || !id.Complete() {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return identity.Context{}, false
	}
	return id, true
}

func pathOrgID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid organization id")
		return uuid.Nil, false
	}
	return orgID, true
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, organizations.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, organizations.ErrAccessPolicy):
		return http.StatusForbidden
	case errors.Is(err, organizations.ErrUniqueness):
		return http.StatusConflict
	case errors.Is(err, organizations.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes the user-facing message only; the cause is logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeError(w, status, organizations.MessageOf(err, organizations.UnexpectedMessage))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
