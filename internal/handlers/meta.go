package handlers

import (
	"net/http"

	"github.com/farmsight/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// MetaHandler serves the small lookup endpoints backing frontend dropdowns.
type MetaHandler struct {
	fieldService *services.FieldService
}

func NewMetaHandler(fieldService *services.FieldService) *MetaHandler {
	return &MetaHandler{fieldService: fieldService}
}

// MetaRouter registers the lookup routes on the given router.
func MetaRouter(r chi.Router, fieldService *services.FieldService) {
	handler := NewMetaHandler(fieldService)

	r.Get("/crop-types", handler.CropTypes)
	r.Get("/fields-dropdown", handler.FieldsDropdown)
}

func (h *MetaHandler) CropTypes(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	cropTypes, err := h.fieldService.CropTypes(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "crop types")
		return
	}
	writeJSON(w, http.StatusOK, cropTypes)
}

func (h *MetaHandler) FieldsDropdown(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	options, err := h.fieldService.ListOptions(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "fields")
		return
	}
	writeJSON(w, http.StatusOK, options)
}
