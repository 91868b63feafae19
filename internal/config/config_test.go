package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
# gyroscope on the main SPI bus
SENSOR_LINK=spi
GYRO_SPI_DEVICE = /dev/spidev1.0
SAMPLE_PERIOD_MS=10
BUFFER_SIZE=150
UNLOCK_THRESHOLD=850.5
DISPLAY=oled, terminal
LED_RECORDED_PIN=GPIO17
LED_ATTEMPT_PIN=GPIO27
WEB_SERVER_PORT=8080
`))
	require.NoError(t, err)

	assert.Equal(t, LinkSPI, cfg.SensorLink)
	assert.Equal(t, "/dev/spidev1.0", cfg.GyroSPIDevice)
	assert.Equal(t, 10*time.Millisecond, cfg.SamplePeriod())
	assert.Equal(t, 150, cfg.BufferSize)
	assert.Equal(t, 850.5, cfg.UnlockThreshold)
	assert.Equal(t, []string{DisplayOLED, DisplayTerminal}, cfg.Displays)
	assert.True(t, cfg.HasDisplay(DisplayTerminal))
	assert.False(t, cfg.HasDisplay(DisplayLog))
	assert.Equal(t, 8080, cfg.WebServerPort)

	// untouched keys keep their defaults
	assert.Equal(t, 0.1, cfg.FilterCoefficient)
	assert.Equal(t, 500*time.Millisecond, cfg.SensorTimeout())
	assert.Equal(t, "gesture/decision", cfg.TopicDecision)
}

func TestParseEmptyIsDefault(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing equals", "SENSOR_LINK spi", "invalid config line 1"},
		{"unknown key", "\nCOLOR=blue", "config line 2: unknown config key"},
		{"bad link", "SENSOR_LINK=usb", "SENSOR_LINK must be"},
		{"bad int", "BUFFER_SIZE=lots", "invalid BUFFER_SIZE"},
		{"out of range", "BUFFER_SIZE=1", "BUFFER_SIZE must be 2-5000"},
		{"coefficient above one", "FILTER_COEFFICIENT=1.5", "FILTER_COEFFICIENT must be in (0, 1]"},
		{"negative threshold", "UNLOCK_THRESHOLD=-3", "UNLOCK_THRESHOLD must be positive"},
		{"unknown display", "DISPLAY=log,lcd", "unknown DISPLAY"},
		{"empty display", "DISPLAY=", "DISPLAY must name"},
		{"replay without file", "SENSOR_LINK=replay", "REPLAY_FILE is required"},
		{"one LED", "LED_RECORDED_PIN=GPIO17", "must be set together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAndGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gesture_config.txt")
	require.NoError(t, os.WriteFile(path, []byte("BUFFER_SIZE=64\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.BufferSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, 64, Get().BufferSize)
}
