package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stackcanvas/engine/internal/api/types"
	"github.com/stackcanvas/engine/internal/catalog"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

// CatalogHandler serves the service palette.
type CatalogHandler struct {
	cat *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{cat: cat}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: h.cat.Services()})
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "serviceID")
	def, ok := h.cat.Get(id)
	if !ok {
		writeAppError(w, appErr.Newf(appErr.CodeNotFound, "service %q not in catalog", id))
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: def})
}
