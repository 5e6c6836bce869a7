package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stackcanvas/engine/internal/api/types"
	"github.com/stackcanvas/engine/internal/preview"
	"github.com/stackcanvas/engine/internal/services"
)

// PreviewHandler validates the canvas's generated Terraform without
// touching any cloud account.
type PreviewHandler struct {
	svc       services.DesignService
	exportSvc services.ExportService
	previewer preview.Previewer
}

func NewPreviewHandler(svc services.DesignService, exportSvc services.ExportService, p preview.Previewer) *PreviewHandler {
	return &PreviewHandler{svc: svc, exportSvc: exportSvc, previewer: p}
}

func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	files, err := h.exportSvc.GenerateFromGraph(sess.Controller.Store().Graph(), "terraform", "", "")
	if err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.previewer.Preview(r.Context(), files)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: result})
}
