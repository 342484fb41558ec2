// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/urbansense/canopysim/pkg/history"
	"github.com/urbansense/canopysim/pkg/sim"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "canopysim.yaml"

// Config is the service configuration.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Hours           int           `yaml:"hours"`
	HistorySize     int           `yaml:"history_size"`
	Seed            uint64        `yaml:"seed"`
	SitesFile       string        `yaml:"sites_file"`
	Sites           []string      `yaml:"sites"`
	Log             LogConfig     `yaml:"log"`
	Kafka           KafkaConfig   `yaml:"kafka"`
	MQTT            MQTTConfig    `yaml:"mqtt"`
}

// LogConfig selects the log level, handler format and optional file tee.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// KafkaConfig configures the snapshot sink.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// MQTTConfig configures the per-canopy reading sink.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		RefreshInterval: 6 * time.Second,
		Hours:           sim.HoursDay,
		HistorySize:     history.DefaultSize,
		Log:             LogConfig{Level: "info", Format: "text"},
		Kafka:           KafkaConfig{Topic: "canopy.snapshots"},
		MQTT:            MQTTConfig{ClientID: "canopysim", TopicPrefix: "canopies"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path falls back to DefaultFile if it exists.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("CANOPYSIM_LISTEN_ADDR", c.ListenAddr)
	c.Log.Level = getEnv("CANOPYSIM_LOG_LEVEL", c.Log.Level)
	if brokers := splitAndTrim(os.Getenv("CANOPYSIM_KAFKA_BROKERS"), ","); len(brokers) > 0 {
		c.Kafka.Brokers = brokers
		c.Kafka.Enabled = true
	}
	if broker := os.Getenv("CANOPYSIM_MQTT_BROKER"); broker != "" {
		c.MQTT.Broker = broker
		c.MQTT.Enabled = true
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval))
	}
	if !sim.ValidHorizon(c.Hours) {
		errs = append(errs, fmt.Errorf("hours must be %d or %d, got %d", sim.HoursDay, sim.HoursWeek, c.Hours))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("history_size must be positive, got %d", c.HistorySize))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka.topic is required when kafka is enabled"))
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
