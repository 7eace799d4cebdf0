// Package ingest consumes device telemetry from the message queue and
// persists it as sensor readings.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/farmsight/apiserver/internal/mq"
	"github.com/farmsight/apiserver/internal/services"
	"github.com/farmsight/apiserver/internal/store"
	"github.com/farmsight/apiserver/types"
)

// ReadingMessage is the wire shape published by devices (or their gateways).
type ReadingMessage struct {
	MACAddress   string    `json:"mac_address"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	SoilMoisture float64   `json:"soil_moisture"`
	BatteryLevel float64   `json:"battery_level"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// DeviceResolver resolves a device by its MAC address.
type DeviceResolver interface {
	GetByMAC(ctx context.Context, mac string) (types.Device, error)
}

// ReadingWriter persists a sensor reading.
type ReadingWriter interface {
	Insert(ctx context.Context, reading types.SensorReading) (types.SensorReading, error)
}

// Worker subscribes to the readings channel and stores each sample against
// its device.
type Worker struct {
	queue   *mq.MQ
	devices DeviceResolver
	writer  ReadingWriter
	channel string
}

func NewWorker(queue *mq.MQ, devices DeviceResolver, writer ReadingWriter, channel string) *Worker {
	return &Worker{
		queue:   queue,
		devices: devices,
		writer:  writer,
		channel: channel,
	}
}

// Run blocks consuming messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("ingest worker consuming channel %q", w.channel)
	return w.queue.Subscribe(ctx, w.channel, w.handle)
}

// handle decides the fate of one message: malformed payloads and unknown
// devices are dropped (acked) with a log line, store failures are returned
// so the broker redelivers.
func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var reading ReadingMessage
	if err := json.Unmarshal(msg.Data, &reading); err != nil {
		log.Printf("dropping malformed reading %s: %v", msg.ID, err)
		return nil
	}

	mac, err := services.NormalizeMAC(reading.MACAddress)
	if err != nil {
		log.Printf("dropping reading %s: %v", msg.ID, err)
		return nil
	}

	device, err := w.devices.GetByMAC(ctx, mac)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("dropping reading %s for unknown device %s", msg.ID, mac)
			return nil
		}
		return err
	}

	recordedAt := reading.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	if _, err := w.writer.Insert(ctx, types.SensorReading{
		DeviceID:     device.ID,
		Temperature:  reading.Temperature,
		Humidity:     reading.Humidity,
		SoilMoisture: reading.SoilMoisture,
		BatteryLevel: reading.BatteryLevel,
		RecordedAt:   recordedAt,
	}); err != nil {
		return err
	}
	return nil
}
