// Package config provides the common options of the task panel binaries.
package config

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/taskpanel/pkg/link"
	"github.com/robotalks/taskpanel/pkg/tasks"
	"github.com/robotalks/taskpanel/pkg/transport"
	"github.com/robotalks/taskpanel/pkg/transport/mqtt"
)

// Environment variables overriding the defaults.
const (
	EnvLink     = "TASKPANEL_LINK"
	EnvMQTTURL  = "TASKPANEL_MQTT_URL"
	EnvDeviceID = "TASKPANEL_DEVICE_ID"
	EnvConfig   = "TASKPANEL_CONFIG"
)

// Config provides common options to setup a panel.
type Config struct {
	// Link is the URL of the companion device link.
	// e.g. serial:///dev/ttyUSB0?baud=115200, tcp://host:port
	Link string `yaml:"link"`
	// MQTTBrokerURL enables telemetry when set.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// DeviceID names the panel in MQTT topics.
	DeviceID string `yaml:"device"`

	Capacity        int           `yaml:"capacity"`
	QueueSize       int           `yaml:"queue_size"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RefreshOnResult bool          `yaml:"refresh_on_result"`
}

var defaultConfig = Config{
	Link:            "serial:///dev/ttyUSB0?baud=115200",
	Capacity:        tasks.MaxTasks,
	QueueSize:       link.QueueSize,
	RefreshInterval: 100 * time.Millisecond,
}

func init() {
	if fn := os.Getenv(EnvConfig); fn != "" {
		if err := defaultConfig.LoadFile(fn); err != nil {
			glog.Warningf("load %s failed: %v", fn, err)
		}
	}
	defaultConfig.applyEnv()
}

func (c *Config) applyEnv() {
	if val := os.Getenv(EnvLink); val != "" {
		c.Link = val
	}
	if val := os.Getenv(EnvMQTTURL); val != "" {
		c.MQTTBrokerURL = val
	}
	if val := os.Getenv(EnvDeviceID); val != "" {
		c.DeviceID = val
	}
}

// SetupFlags sets command line flags.
// Flags following -config override values from the file.
func SetupFlags() {
	flag.Func("config", "Load options from a YAML file.", defaultConfig.LoadFile)
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Companion device link URL.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for telemetry.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID.")
	flag.IntVar(&defaultConfig.Capacity, "capacity", defaultConfig.Capacity, "Maximum number of tasks.")
	flag.DurationVar(&defaultConfig.RefreshInterval, "refresh", defaultConfig.RefreshInterval, "Display refresh interval.")
	flag.BoolVar(&defaultConfig.RefreshOnResult, "refresh-on-result", defaultConfig.RefreshOnResult, "Reload tasks after an operation result.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile merges options from a YAML file.
func (c *Config) LoadFile(fn string) error {
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Load(f)
}

// Load merges options from YAML. Unknown keys are rejected.
func (c *Config) Load(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks the options.
func (c *Config) Validate() error {
	if c.Link == "" {
		return fmt.Errorf("link must be specified")
	}
	if c.Capacity < 1 {
		return fmt.Errorf("invalid capacity %d", c.Capacity)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("invalid queue size %d", c.QueueSize)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("invalid refresh interval %v", c.RefreshInterval)
	}
	return nil
}

// Device returns DeviceID, or the default device ID of the machine.
func (c *Config) Device() string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	return mqtt.DefaultDeviceID()
}

// String returns the options in YAML.
func (c *Config) String() string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.Encode(c)
	enc.Close()
	return buf.String()
}

// NewStore creates the task store.
func (c *Config) NewStore() *tasks.Store {
	return tasks.NewStore(c.Capacity)
}

// NewFrameQueue creates the frame queue.
func (c *Config) NewFrameQueue() *link.FrameQueue {
	return link.NewFrameQueue(c.QueueSize)
}

// OpenLink opens the companion device link.
func (c *Config) OpenLink() (io.ReadWriteCloser, error) {
	return transport.Open(c.Link)
}
