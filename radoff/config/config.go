package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/alepar/radoff/radoff/index"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultListenAddress   = ":8080"
	DefaultRefreshInterval = 30 * time.Second
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultStatePrefix     = "radoff"
	DefaultClientID        = "radoff"
	DefaultMQTTTimeout     = 5 * time.Second
)

type Config struct {
	// ListenAddress serves /metrics and the JSON API.
	ListenAddress string `yaml:"listen_address"`

	// SnapshotPath is the YAML device snapshot the coordinator serves.
	SnapshotPath string `yaml:"snapshot_path"`

	// RefreshInterval controls how often the snapshot is reloaded.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// GenerateIndex adds an index entity for every classified metric.
	GenerateIndex bool `yaml:"generate_index"`

	// IndexRules replaces or adds classification rules per metric.
	IndexRules index.Table `yaml:"index_rules"`

	MQTT  MQTTConfig  `yaml:"mqtt"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// MQTTConfig enables Home Assistant discovery when Broker is set.
type MQTTConfig struct {
	Broker          string        `yaml:"broker"`
	ClientID        string        `yaml:"client_id"`
	DiscoveryPrefix string        `yaml:"discovery_prefix"`
	StatePrefix     string        `yaml:"state_prefix"`
	QoS             byte          `yaml:"qos"`
	Timeout         time.Duration `yaml:"timeout"`
}

func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// KafkaConfig enables the state event stream when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read file")
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse yaml")
	}
	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		ListenAddress:   DefaultListenAddress,
		RefreshInterval: DefaultRefreshInterval,
		GenerateIndex:   true,
		MQTT: MQTTConfig{
			ClientID:        DefaultClientID,
			DiscoveryPrefix: DefaultDiscoveryPrefix,
			StatePrefix:     DefaultStatePrefix,
			Timeout:         DefaultMQTTTimeout,
		},
	}
}

// Table returns the built-in rules with IndexRules applied.
func (c *Config) Table() index.Table {
	return index.DefaultTable().Merge(c.IndexRules)
}

func validate(cfg *Config) error {
	if cfg.SnapshotPath == "" {
		return errors.New("snapshot_path is required")
	}
	if cfg.RefreshInterval <= 0 {
		return errors.New("refresh_interval must be positive")
	}
	if err := cfg.IndexRules.Validate(); err != nil {
		return errors.Wrap(err, "index_rules")
	}
	if cfg.MQTT.QoS > 2 {
		return errors.New("mqtt.qos must be 0, 1 or 2")
	}
	if cfg.Kafka.Enabled() && cfg.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	return nil
}
