package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/farmsight/apiserver/internal/services"
	"github.com/farmsight/apiserver/internal/storage"
	"github.com/farmsight/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const maxFirmwareBytes = 64 << 20

// DeviceHandler provides HTTP handlers for devices.
type DeviceHandler struct {
	deviceService *services.DeviceService
	firmware      *storage.Storage
}

// NewDeviceHandler constructs a handler with the provided dependencies.
// firmware may be nil, in which case the firmware routes report the feature
// as unavailable.
func NewDeviceHandler(deviceService *services.DeviceService, firmware *storage.Storage) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService, firmware: firmware}
}

// DeviceRouter registers device routes on the given router.
func DeviceRouter(r chi.Router, deviceService *services.DeviceService, firmware *storage.Storage, requireFarmer func(http.Handler) http.Handler) {
	handler := NewDeviceHandler(deviceService, firmware)

	r.Get("/devices", handler.ListDevices)
	r.With(requireFarmer).Post("/devices", handler.CreateDevice)
	r.Route("/devices/{deviceID}", func(r chi.Router) {
		r.Get("/", handler.GetDevice)
		r.With(requireFarmer).Put("/", handler.UpdateDevice)
		r.With(requireFarmer).Delete("/", handler.DeleteDevice)
		r.With(requireFarmer).Post("/firmware", handler.UploadFirmware)
		r.With(requireFarmer).Get("/firmware", handler.DownloadFirmware)
	})
}

func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	devices, err := h.deviceService.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "deviceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, readings, err := h.deviceService.Get(r.Context(), id, identity.UserID)
	if err != nil {
		writeServiceError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusOK, DeviceResponse{Device: device, Readings: readings})
}

func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	var req DeviceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	missing := map[string]bool{}
	if strings.TrimSpace(req.DeviceName) == "" {
		missing["name"] = true
	}
	if strings.TrimSpace(req.MACAddress) == "" {
		missing["mac_address"] = true
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, MissingFieldsResponse{Error: "missing required fields", Missing: missing})
		return
	}

	device, err := h.deviceService.Create(r.Context(), identity.UserID, services.DeviceInput{
		DeviceName:      req.DeviceName,
		MACAddress:      req.MACAddress,
		DeviceType:      req.DeviceType,
		Status:          req.Status,
		FieldID:         req.FieldID,
		BatteryLevel:    req.BatteryLevel,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		writeServiceError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "deviceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req DeviceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	patch := services.DevicePatch{
		DeviceName:      req.DeviceName,
		MACAddress:      req.MACAddress,
		DeviceType:      req.DeviceType,
		Status:          req.Status,
		BatteryLevel:    req.BatteryLevel,
		FirmwareVersion: req.FirmwareVersion,
	}
	if len(req.FieldID) > 0 {
		if string(req.FieldID) == "null" {
			patch.DetachField = true
		} else {
			var fieldID int
			if err := json.Unmarshal(req.FieldID, &fieldID); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request")
				return
			}
			patch.FieldID = &fieldID
		}
	}

	device, err := h.deviceService.Update(r.Context(), id, identity.UserID, patch)
	if err != nil {
		writeServiceError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "deviceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.deviceService.Delete(r.Context(), id, identity.UserID); err != nil {
		writeServiceError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Message: "device deleted"})
}

// UploadFirmware stores a firmware image for an owned device and records the
// object key and version on the row.
func (h *DeviceHandler) UploadFirmware(w http.ResponseWriter, r *http.Request) {
	if h.firmware == nil {
		writeError(w, http.StatusServiceUnavailable, "firmware storage not configured")
		return
	}
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "deviceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Ownership first, before touching the body or the bucket.
	device, _, err := h.deviceService.Get(r.Context(), id, identity.UserID)
	if err != nil {
		writeServiceError(w, err, "device")
		return
	}

	version := strings.TrimSpace(r.URL.Query().Get("version"))
	if version == "" {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxFirmwareBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "firmware image is required")
		return
	}
	if int64(len(data)) > maxFirmwareBytes {
		writeError(w, http.StatusBadRequest, "firmware image too large")
		return
	}

	key := firmwareKey(device.ID, version)
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.firmware.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeServiceError(w, err, "firmware")
		return
	}

	updated, err := h.deviceService.SetFirmware(r.Context(), id, identity.UserID, version, key)
	if err != nil {
		writeServiceError(w, err, "device")
		return
	}

	// Replaced images are removed best-effort; the new object is already
	// recorded on the device either way.
	if previous := device.FirmwareObject; previous != "" && previous != key {
		if err := h.firmware.Delete(r.Context(), previous); err != nil {
			log.Printf("failed to delete replaced firmware %s: %v", previous, err)
		}
	}

	writeJSON(w, http.StatusOK, updated)
}

// DownloadFirmware streams the stored firmware image for an owned device.
func (h *DeviceHandler) DownloadFirmware(w http.ResponseWriter, r *http.Request) {
	if h.firmware == nil {
		writeError(w, http.StatusServiceUnavailable, "firmware storage not configured")
		return
	}
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token provided")
		return
	}
	id, err := parseIDParam(r, "deviceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, _, err := h.deviceService.Get(r.Context(), id, identity.UserID)
	if err != nil {
		writeServiceError(w, err, "device")
		return
	}
	if device.FirmwareObject == "" {
		writeError(w, http.StatusNotFound, "firmware not found")
		return
	}

	object, err := h.firmware.Get(r.Context(), device.FirmwareObject)
	if err != nil {
		writeServiceError(w, err, "firmware")
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, object); err != nil && !errors.Is(err, io.EOF) {
		// Headers are already out; nothing left to report to the client.
		return
	}
}

func firmwareKey(deviceID int, version string) string {
	return fmt.Sprintf("firmware/%d/%s.bin", deviceID, version)
}

type DeviceCreateRequest struct {
	DeviceName      string   `json:"name"`
	MACAddress      string   `json:"mac_address"`
	DeviceType      string   `json:"device_type"`
	Status          string   `json:"status"`
	FieldID         *int     `json:"field_id"`
	BatteryLevel    *float64 `json:"battery_level"`
	FirmwareVersion string   `json:"firmware_version"`
}

// DeviceUpdateRequest is the partial-update payload; absent fields stay nil.
// FieldID is kept raw so an explicit null (detach from field) is
// distinguishable from the key being absent.
type DeviceUpdateRequest struct {
	DeviceName      *string         `json:"name"`
	MACAddress      *string         `json:"mac_address"`
	DeviceType      *string         `json:"device_type"`
	Status          *string         `json:"status"`
	FieldID         json.RawMessage `json:"field_id"`
	BatteryLevel    *float64        `json:"battery_level"`
	FirmwareVersion *string         `json:"firmware_version"`
}

// DeviceResponse is a device with its most recent sensor readings inlined.
type DeviceResponse struct {
	types.Device
	Readings []types.SensorReading `json:"readings"`
}
