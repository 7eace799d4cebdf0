package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/farmsight/apiserver/internal/services"
	"github.com/farmsight/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// FieldHandler provides HTTP handlers for fields.
type FieldHandler struct {
	fieldService *services.FieldService
}

// NewFieldHandler constructs a handler with the provided service.
func NewFieldHandler(fieldService *services.FieldService) *FieldHandler {
	return &FieldHandler{fieldService: fieldService}
}

// FieldRouter registers field routes on the given router. Reads are open to
// any authenticated user; writes require the farmer role.
func FieldRouter(r chi.Router, fieldService *services.FieldService, requireFarmer func(http.Handler) http.Handler) {
	handler := NewFieldHandler(fieldService)

	r.Get("/fields", handler.ListFields)
	r.With(requireFarmer).Post("/fields", handler.CreateField)
	r.Route("/fields/{fieldID}", func(r chi.Router) {
		r.Get("/", handler.GetField)
		r.With(requireFarmer).Put("/", handler.UpdateField)
		r.With(requireFarmer).Delete("/", handler.DeleteField)
	})
}

func (h *FieldHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	fields, err := h.fieldService.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "fields")
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (h *FieldHandler) GetField(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "fieldID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	field, devices, err := h.fieldService.Get(r.Context(), id, identity.UserID)
	if err != nil {
		writeServiceError(w, err, "field")
		return
	}
	writeJSON(w, http.StatusOK, FieldResponse{Field: field, Devices: devices})
}

func (h *FieldHandler) CreateField(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	var req FieldCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	missing := map[string]bool{}
	if req.FieldName == "" {
		missing["fieldname"] = true
	}
	if req.Location == "" {
		missing["location"] = true
	}
	if req.Area == nil {
		missing["area"] = true
	}
	if req.CropType == "" {
		missing["croptype"] = true
	}
	if req.Status == "" {
		missing["status"] = true
	}
	if req.SoilType == "" {
		missing["soiltype"] = true
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, MissingFieldsResponse{Error: "missing required fields", Missing: missing})
		return
	}

	field, err := h.fieldService.Create(r.Context(), identity.UserID, services.FieldInput{
		FieldName:      req.FieldName,
		Location:       req.Location,
		Area:           *req.Area,
		CropType:       req.CropType,
		Status:         req.Status,
		SoilType:       req.SoilType,
		Drainage:       req.Drainage,
		LastIrrigation: req.LastIrrigation,
		NextIrrigation: req.NextIrrigation,
	})
	if err != nil {
		writeServiceError(w, err, "field")
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

func (h *FieldHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "fieldID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req FieldUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	field, err := h.fieldService.Update(r.Context(), id, identity.UserID, services.FieldPatch{
		FieldName:      req.FieldName,
		Location:       req.Location,
		Area:           req.Area,
		CropType:       req.CropType,
		Status:         req.Status,
		SoilType:       req.SoilType,
		Drainage:       req.Drainage,
		LastIrrigation: req.LastIrrigation,
		NextIrrigation: req.NextIrrigation,
	})
	if err != nil {
		writeServiceError(w, err, "field")
		return
	}
	writeJSON(w, http.StatusOK, field)
}

func (h *FieldHandler) DeleteField(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "fieldID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.fieldService.Delete(r.Context(), id, identity.UserID); err != nil {
		writeServiceError(w, err, "field")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Message: "field deleted"})
}

// FieldCreateRequest is the create payload. Area is a pointer so a missing
// value is distinguishable from zero.
type FieldCreateRequest struct {
	FieldName      string     `json:"fieldname"`
	Location       string     `json:"location"`
	Area           *float64   `json:"area"`
	CropType       string     `json:"croptype"`
	Status         string     `json:"status"`
	SoilType       string     `json:"soiltype"`
	Drainage       string     `json:"drainage"`
	LastIrrigation *time.Time `json:"last_irrigation"`
	NextIrrigation *time.Time `json:"next_irrigation"`
}

// FieldUpdateRequest is the partial-update payload; absent fields stay nil.
type FieldUpdateRequest struct {
	FieldName      *string    `json:"fieldname"`
	Location       *string    `json:"location"`
	Area           *float64   `json:"area"`
	CropType       *string    `json:"croptype"`
	Status         *string    `json:"status"`
	SoilType       *string    `json:"soiltype"`
	Drainage       *string    `json:"drainage"`
	LastIrrigation *time.Time `json:"last_irrigation"`
	NextIrrigation *time.Time `json:"next_irrigation"`
}

// FieldResponse is a field with its assigned devices inlined.
type FieldResponse struct {
	types.Field
	Devices []types.Device `json:"devices"`
}

// StatusResponse acknowledges an operation with no body payload.
type StatusResponse struct {
	Message string `json:"message"`
}
