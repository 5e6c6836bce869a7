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

type ExportsHandler struct {
	svc      services.ExportService
	validate interface{ Struct(any) error }
}

func NewExportsHandler(svc services.ExportService, v interface{ Struct(any) error }) *ExportsHandler {
	return &ExportsHandler{svc: svc, validate: v}
}

// Create requests an export of the design's current revision.
func (h *ExportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	designID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalid(w, "invalid design id")
		return
	}
	var req types.ExportCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	artifact, err := h.svc.RequestExport(r.Context(), designID, &services.ExportInput{
		Target:   req.Target,
		Language: req.Language,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: artifact})
}

func (h *ExportsHandler) List(w http.ResponseWriter, r *http.Request) {
	designID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalid(w, "invalid design id")
		return
	}
	items, err := h.svc.ListArtifacts(r.Context(), designID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{Total: int64(len(items))}})
}

func (h *ExportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "artifactID"))
	if err != nil {
		writeInvalid(w, "invalid artifact id")
		return
	}
	artifact, err := h.svc.GetArtifact(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: artifact})
}

// Download streams the zip archive of a completed artifact.
func (h *ExportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "artifactID"))
	if err != nil {
		writeInvalid(w, "invalid artifact id")
		return
	}
	filename, archive, err := h.svc.DownloadArtifact(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if len(archive) == 0 {
		writeAppError(w, appErr.New(appErr.CodeInternal, "artifact archive is empty"))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
