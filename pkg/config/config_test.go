package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/taskpanel/pkg/tasks"
)

func TestLoad(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Load(strings.NewReader(`
link: tcp://localhost:7000
mqtt: mqtt://broker:1883/panels/
device: desk
refresh_interval: 250ms
refresh_on_result: true
`)))
	require.Equal(t, "tcp://localhost:7000", conf.Link)
	require.Equal(t, "mqtt://broker:1883/panels/", conf.MQTTBrokerURL)
	require.Equal(t, "desk", conf.Device())
	require.Equal(t, 250*time.Millisecond, conf.RefreshInterval)
	require.True(t, conf.RefreshOnResult)
	require.Equal(t, tasks.MaxTasks, conf.Capacity, "keys not in the file keep their values")
	require.NoError(t, conf.Validate())

	require.NoError(t, conf.Load(strings.NewReader("")))
	require.Error(t, conf.Load(strings.NewReader("colour: blue\n")))
	require.Error(t, conf.Load(strings.NewReader("capacity: many\n")))
}

func TestLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "panel.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("capacity: 5\nqueue_size: 2\n"), 0644))
	conf := NewConfig()
	require.NoError(t, conf.LoadFile(fn))
	require.Equal(t, 5, conf.Capacity)
	require.Equal(t, 5, conf.NewStore().Lock().Capacity())
	require.Equal(t, 2, conf.NewFrameQueue().Cap())

	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"no link", func(c *Config) { c.Link = "" }},
		{"capacity", func(c *Config) { c.Capacity = 0 }},
		{"queue", func(c *Config) { c.QueueSize = -1 }},
		{"refresh", func(c *Config) { c.RefreshInterval = 0 }},
	}
	require.NoError(t, NewConfig().Validate())
	for _, tc := range testCases {
		conf := NewConfig()
		tc.modify(conf)
		require.Error(t, conf.Validate(), tc.name)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLink, "ws://localhost:8080/link")
	t.Setenv(EnvDeviceID, "kitchen")
	conf := &Config{Link: "tcp://x:1", MQTTBrokerURL: "mqtt://keep:1883/"}
	conf.applyEnv()
	require.Equal(t, "ws://localhost:8080/link", conf.Link)
	require.Equal(t, "mqtt://keep:1883/", conf.MQTTBrokerURL)
	require.Equal(t, "kitchen", conf.DeviceID)
}

func TestString(t *testing.T) {
	conf := NewConfig()
	conf.Link = "tcp://localhost:7000"
	out := conf.String()
	require.Contains(t, out, "link: tcp://localhost:7000")
	require.Contains(t, out, "refresh_interval: 100ms")

	parsed := &Config{}
	require.NoError(t, parsed.Load(strings.NewReader(out)))
	require.Equal(t, conf, parsed)
}
