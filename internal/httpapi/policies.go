package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
)

type policyDTO struct {
	PolicyID          string          `json:"policy_id"`
	Type              string          `json:"type"`
	TargetEnvironment string          `json:"target_environment"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Content           json.RawMessage `json:"content"`
}

// handleCreatePolicy serves POST /policies, always creating a new DRAFT
// version (spec.md §3 lifecycle: every update is a new version, never a
// mutation of an existing row).
func (a *API) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var dto policyDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	existing, err := a.Store.ListPolicyVersions(r.Context(), dto.PolicyID)
	if err != nil {
		writeError(w, err)
		return
	}
	nextVersion := 1
	for _, p := range existing {
		if p.Version >= nextVersion {
			nextVersion = p.Version + 1
		}
	}

	policy, err := domain.NewPolicy(domain.Policy{
		PolicyID: dto.PolicyID, Type: domain.PolicyType(dto.Type), Version: nextVersion,
		TargetEnvironment: dto.TargetEnvironment, Name: dto.Name, Description: dto.Description,
		Content: dto.Content, CreatedBy: actorOf(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Store.CreatePolicy(r.Context(), policy); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, policy)
}

func (a *API) handleListPolicyVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := a.Store.ListPolicyVersions(r.Context(), chi.URLParam(r, "policyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func policyVersionParam(r *http.Request) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		return 0, apperrors.Invariant("invalid policy version %q", chi.URLParam(r, "version"))
	}
	return v, nil
}

func (a *API) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	version, err := policyVersionParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	policy, err := a.Store.GetPolicy(r.Context(), chi.URLParam(r, "policyID"), version)
	if err != nil {
		writeError(w, err)
		return
	}
	if policy == nil {
		writeError(w, apperrors.NotFound("policy version", chi.URLParam(r, "policyID")))
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (a *API) handleActivatePolicy(w http.ResponseWriter, r *http.Request) {
	version, err := policyVersionParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Store.ActivatePolicy(r.Context(), chi.URLParam(r, "policyID"), version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleArchivePolicy(w http.ResponseWriter, r *http.Request) {
	version, err := policyVersionParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Store.ArchivePolicy(r.Context(), chi.URLParam(r, "policyID"), version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRollbackPolicy reactivates an older, archived version: identical to
// activate, since ActivatePolicy already archives whichever version is
// currently active for that (type, target_environment) pair.
func (a *API) handleRollbackPolicy(w http.ResponseWriter, r *http.Request) {
	a.handleActivatePolicy(w, r)
}

func (a *API) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	version, err := policyVersionParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Store.DeletePolicy(r.Context(), chi.URLParam(r, "policyID"), version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
