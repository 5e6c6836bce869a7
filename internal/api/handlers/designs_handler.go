package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stackcanvas/engine/internal/api/types"
	"github.com/stackcanvas/engine/internal/services"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

type DesignsHandler struct {
	svc      services.DesignService
	validate interface{ Struct(any) error }
}

func NewDesignsHandler(svc services.DesignService, v interface{ Struct(any) error }) *DesignsHandler {
	return &DesignsHandler{svc: svc, validate: v}
}

func (h *DesignsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDesigns(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{Total: int64(len(items))}})
}

func (h *DesignsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.DesignCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	d, err := h.svc.CreateDesign(r.Context(), &services.CreateDesignInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: d})
}

func (h *DesignsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := designID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetDesign(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: d})
}

func (h *DesignsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := designID(w, r)
	if !ok {
		return
	}
	var req types.DesignUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := h.svc.UpdateDesign(r.Context(), id, &services.UpdateDesignInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: d})
}

func (h *DesignsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := designID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ArchiveDesign(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func (h *DesignsHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id, ok := designID(w, r)
	if !ok {
		return
	}
	revs, err := h.svc.ListRevisions(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: revs, Meta: &types.Meta{Total: int64(len(revs))}})
}

func (h *DesignsHandler) GetCurrentRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := designID(w, r)
	if !ok {
		return
	}
	rev, err := h.svc.GetCurrentRevision(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rev})
}

func (h *DesignsHandler) GetRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := designID(w, r)
	if !ok {
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeInvalid(w, "invalid revision version")
		return
	}
	rev, err := h.svc.GetRevision(r.Context(), id, version)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rev})
}

func (h *DesignsHandler) SetCurrentRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := designID(w, r)
	if !ok {
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeInvalid(w, "invalid revision version")
		return
	}
	if err := h.svc.SetCurrentRevision(r.Context(), id, version); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func designID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, appErr.New(appErr.CodeInvalid, "invalid design id"))
		return uuid.Nil, false
	}
	return id, true
}
