package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/farmsight/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// FieldDataHandler provides HTTP handlers for yield records.
type FieldDataHandler struct {
	fieldDataService *services.FieldDataService
}

// NewFieldDataHandler constructs a handler with the provided service.
func NewFieldDataHandler(fieldDataService *services.FieldDataService) *FieldDataHandler {
	return &FieldDataHandler{fieldDataService: fieldDataService}
}

// FieldDataRouter registers field-data routes on the given router. All
// operations are open to any authenticated role; access control is the
// dual-ownership check in the service/store.
func FieldDataRouter(r chi.Router, fieldDataService *services.FieldDataService) {
	handler := NewFieldDataHandler(fieldDataService)

	r.Get("/field-data", handler.ListFieldData)
	r.Get("/field-data/statistics", handler.Statistics)
	r.Post("/field-data", handler.CreateFieldData)
	r.Route("/field-data/{recordID}", func(r chi.Router) {
		r.Get("/", handler.GetFieldData)
		r.Put("/", handler.UpdateFieldData)
		r.Delete("/", handler.DeleteFieldData)
	})
}

func (h *FieldDataHandler) ListFieldData(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	records, err := h.fieldDataService.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "field data")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *FieldDataHandler) GetFieldData(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "recordID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.fieldDataService.Get(r.Context(), id, identity.UserID)
	if err != nil {
		writeServiceError(w, err, "field data")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *FieldDataHandler) CreateFieldData(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	var req FieldDataCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	missing := map[string]bool{}
	if req.FieldID == nil {
		missing["field_id"] = true
	}
	if strings.TrimSpace(req.CropType) == "" {
		missing["crop_type"] = true
	}
	if req.YieldAmount == nil {
		missing["yield_amount"] = true
	}
	if strings.TrimSpace(req.Unit) == "" {
		missing["unit"] = true
	}
	if req.MeasurementDate == nil {
		missing["measurement_date"] = true
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, MissingFieldsResponse{Error: "missing required fields", Missing: missing})
		return
	}

	record, err := h.fieldDataService.Create(r.Context(), identity.UserID, services.FieldDataInput{
		FieldID:         *req.FieldID,
		CropType:        req.CropType,
		YieldAmount:     *req.YieldAmount,
		Unit:            req.Unit,
		MeasurementDate: *req.MeasurementDate,
		Notes:           req.Notes,
	})
	if err != nil {
		writeServiceError(w, err, "field data")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *FieldDataHandler) UpdateFieldData(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "recordID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req FieldDataUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	record, err := h.fieldDataService.Update(r.Context(), id, identity.UserID, services.FieldDataPatch{
		FieldID:         req.FieldID,
		CropType:        req.CropType,
		YieldAmount:     req.YieldAmount,
		Unit:            req.Unit,
		MeasurementDate: req.MeasurementDate,
		Notes:           req.Notes,
	})
	if err != nil {
		writeServiceError(w, err, "field data")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *FieldDataHandler) DeleteFieldData(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "recordID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.fieldDataService.Delete(r.Context(), id, identity.UserID); err != nil {
		writeServiceError(w, err, "field data")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Message: "field data deleted"})
}

func (h *FieldDataHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	stats, err := h.fieldDataService.Stats(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type FieldDataCreateRequest struct {
	FieldID         *int       `json:"field_id"`
	CropType        string     `json:"crop_type"`
	YieldAmount     *float64   `json:"yield_amount"`
	Unit            string     `json:"unit"`
	MeasurementDate *time.Time `json:"measurement_date"`
	Notes           *string    `json:"notes"`
}

type FieldDataUpdateRequest struct {
	FieldID         *int       `json:"field_id"`
	CropType        *string    `json:"crop_type"`
	YieldAmount     *float64   `json:"yield_amount"`
	Unit            *string    `json:"unit"`
	MeasurementDate *time.Time `json:"measurement_date"`
	Notes           *string    `json:"notes"`
}
