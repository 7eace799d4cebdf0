package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
)

const (
	defaultDeviceType   = "sensor"
	defaultDeviceStatus = "active"
	deviceReadingLimit  = 20
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// NormalizeMAC validates the six-octet colon-separated hex format and
// returns the canonical uppercase form.
func NormalizeMAC(raw string) (string, error) {
	mac := strings.TrimSpace(raw)
	if !macPattern.MatchString(mac) {
		return "", invalidf("invalid MAC address %q: expected format XX:XX:XX:XX:XX:XX", raw)
	}
	return strings.ToUpper(mac), nil
}

// DeviceRepository defines persistence operations for devices.
type DeviceRepository interface {
	ListByOwner(ctx context.Context, userID int) ([]types.Device, error)
	ListByField(ctx context.Context, fieldID int) ([]types.Device, error)
	GetByOwner(ctx context.Context, id, userID int) (types.Device, error)
	GetByMAC(ctx context.Context, mac string) (types.Device, error)
	Create(ctx context.Context, device types.Device) (types.Device, error)
	Update(ctx context.Context, id, userID int, patch *store.Patch) (types.Device, error)
	Delete(ctx context.Context, id, userID int) error
}

// FieldOwnershipChecker verifies a field exists and belongs to a user.
type FieldOwnershipChecker interface {
	GetByOwner(ctx context.Context, id, userID int) (types.Field, error)
}

// ReadingLister lists recent sensor readings for a device.
type ReadingLister interface {
	ListLatestByDevice(ctx context.Context, deviceID, limit int) ([]types.SensorReading, error)
}

// DeviceService encapsulates device use-cases.
type DeviceService struct {
	repo     DeviceRepository
	fields   FieldOwnershipChecker
	readings ReadingLister
}

func NewDeviceService(repo DeviceRepository, fields FieldOwnershipChecker, readings ReadingLister) *DeviceService {
	return &DeviceService{repo: repo, fields: fields, readings: readings}
}

// DeviceInput is the validated payload for creating a device.
type DeviceInput struct {
	DeviceName      string
	MACAddress      string
	DeviceType      string
	Status          string
	FieldID         *int
	BatteryLevel    *float64
	FirmwareVersion string
}

// DevicePatch carries the subset of mutable columns present in an update
// request. DetachField clears the field assignment; it wins over FieldID.
type DevicePatch struct {
	DeviceName      *string
	MACAddress      *string
	DeviceType      *string
	Status          *string
	FieldID         *int
	DetachField     bool
	BatteryLevel    *float64
	FirmwareVersion *string
}

func (s *DeviceService) List(ctx context.Context, userID int) ([]types.Device, error) {
	return s.repo.ListByOwner(ctx, userID)
}

// Get returns an owned device together with its most recent readings.
func (s *DeviceService) Get(ctx context.Context, id, userID int) (types.Device, []types.SensorReading, error) {
	device, err := s.repo.GetByOwner(ctx, id, userID)
	if err != nil {
		return types.Device{}, nil, err
	}
	readings, err := s.readings.ListLatestByDevice(ctx, device.ID, deviceReadingLimit)
	if err != nil {
		return types.Device{}, nil, err
	}
	return device, readings, nil
}

func (s *DeviceService) Create(ctx context.Context, userID int, input DeviceInput) (types.Device, error) {
	mac, err := NormalizeMAC(input.MACAddress)
	if err != nil {
		return types.Device{}, err
	}
	if err := s.ensureMACAvailable(ctx, mac, 0); err != nil {
		return types.Device{}, err
	}
	if input.FieldID != nil {
		if err := s.checkFieldOwnership(ctx, *input.FieldID, userID); err != nil {
			return types.Device{}, err
		}
	}

	deviceType := strings.TrimSpace(input.DeviceType)
	if deviceType == "" {
		deviceType = defaultDeviceType
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = defaultDeviceStatus
	}
	batteryLevel := 100.0
	if input.BatteryLevel != nil {
		batteryLevel = *input.BatteryLevel
	}

	return s.repo.Create(ctx, types.Device{
		UserID:          userID,
		DeviceName:      strings.TrimSpace(input.DeviceName),
		MACAddress:      mac,
		DeviceType:      deviceType,
		Status:          status,
		FieldID:         input.FieldID,
		BatteryLevel:    batteryLevel,
		FirmwareVersion: strings.TrimSpace(input.FirmwareVersion),
	})
}

// Update applies a partial patch. MAC format and uniqueness are re-validated
// on update just as on create, and a changed field reference is
// ownership-checked again.
func (s *DeviceService) Update(ctx context.Context, id, userID int, patch DevicePatch) (types.Device, error) {
	assignments := &store.Patch{}

	if patch.DeviceName != nil {
		assignments.Set("device_name", strings.TrimSpace(*patch.DeviceName))
	}
	if patch.MACAddress != nil {
		mac, err := NormalizeMAC(*patch.MACAddress)
		if err != nil {
			return types.Device{}, err
		}
		if err := s.ensureMACAvailable(ctx, mac, id); err != nil {
			return types.Device{}, err
		}
		assignments.Set("mac_address", mac)
	}
	if patch.DeviceType != nil {
		assignments.Set("device_type", strings.TrimSpace(*patch.DeviceType))
	}
	if patch.Status != nil {
		assignments.Set("status", strings.TrimSpace(*patch.Status))
	}
	switch {
	case patch.DetachField:
		assignments.Set("field_id", nil)
	case patch.FieldID != nil:
		if err := s.checkFieldOwnership(ctx, *patch.FieldID, userID); err != nil {
			return types.Device{}, err
		}
		assignments.Set("field_id", *patch.FieldID)
	}
	if patch.BatteryLevel != nil {
		assignments.Set("battery_level", *patch.BatteryLevel)
	}
	if patch.FirmwareVersion != nil {
		assignments.Set("firmware_version", strings.TrimSpace(*patch.FirmwareVersion))
	}

	if assignments.Empty() {
		return types.Device{}, invalidf("no fields provided for update")
	}

	return s.repo.Update(ctx, id, userID, assignments)
}

func (s *DeviceService) Delete(ctx context.Context, id, userID int) error {
	return s.repo.Delete(ctx, id, userID)
}

// SetFirmware records the uploaded firmware object key and version on an
// owned device.
func (s *DeviceService) SetFirmware(ctx context.Context, id, userID int, version, objectKey string) (types.Device, error) {
	assignments := &store.Patch{}
	assignments.Set("firmware_version", strings.TrimSpace(version))
	assignments.Set("firmware_object", objectKey)
	return s.repo.Update(ctx, id, userID, assignments)
}

func (s *DeviceService) ensureMACAvailable(ctx context.Context, mac string, selfID int) error {
	existing, err := s.repo.GetByMAC(ctx, mac)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return store.ErrDuplicate
}

func (s *DeviceService) checkFieldOwnership(ctx context.Context, fieldID, userID int) error {
	if _, err := s.fields.GetByOwner(ctx, fieldID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFieldNotOwned
		}
		return err
	}
	return nil
}
