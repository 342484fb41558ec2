package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/urbansense/canopysim/pkg/sim"
)

const publishTimeout = 5 * time.Second

// CanopyReading is the per-canopy MQTT payload.
type CanopyReading struct {
	SnapshotID string     `json:"snapshotId"`
	Site       string     `json:"site"`
	CanopyID   string     `json:"canopyId"`
	Name       string     `json:"name"`
	Occupancy  int        `json:"occupancy"`
	AQI        int        `json:"aqi"`
	Status     sim.Status `json:"status"`
	Timestamp  time.Time  `json:"timestamp"`
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes one reading per canopy on <prefix>/<site>/<canopy>.
type MQTT struct {
	client     publisher
	disconnect func()
	prefix     string
	log        *slog.Logger
}

// NewMQTT connects to broker and returns a sink publishing under prefix.
func NewMQTT(broker, clientID, prefix string, log *slog.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(publishTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "broker", broker, "err", err)
	})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	log.Info("mqtt connected", "broker", broker, "clientId", clientID)
	return &MQTT{
		client:     client,
		disconnect: func() { client.Disconnect(250) },
		prefix:     prefix,
		log:        log,
	}, nil
}

// Name implements Sink.
func (m *MQTT) Name() string { return "mqtt" }

// Topic returns the topic a canopy's readings go to.
func (m *MQTT) Topic(siteID, canopyID string) string {
	return m.prefix + "/" + siteID + "/" + canopyID
}

// Publish implements Sink. Every canopy is attempted; failures are joined.
func (m *MQTT) Publish(ctx context.Context, snapshotID, siteID string, snap *sim.Snapshot) error {
	var errs []error
	for _, c := range snap.Canopies {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(CanopyReading{
			SnapshotID: snapshotID,
			Site:       siteID,
			CanopyID:   c.ID,
			Name:       c.Name,
			Occupancy:  c.Occupancy,
			AQI:        c.AQI,
			Status:     c.Status,
			Timestamp:  snap.GeneratedAt,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		topic := m.Topic(siteID, c.ID)
		token := m.client.Publish(topic, 0, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			errs = append(errs, fmt.Errorf("%s: publish timed out", topic))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
		}
	}
	if len(errs) == 0 {
		m.log.Debug("published canopies", "sink", "mqtt", "site", siteID, "count", len(snap.Canopies))
	}
	return errors.Join(errs...)
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	if m.disconnect != nil {
		m.disconnect()
	}
	return nil
}
