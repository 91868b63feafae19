package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sensor link kinds accepted by SENSOR_LINK.
const (
	LinkSPI    = "spi"
	LinkSerial = "serial"
	LinkReplay = "replay"
	LinkMock   = "mock"
)

// Display kinds accepted in the DISPLAY list.
const (
	DisplayOLED     = "oled"
	DisplayTerminal = "terminal"
	DisplayLog      = "log"
)

// Config holds all application configuration values.
type Config struct {
	// Sensor link
	SensorLink     string // spi, serial, replay or mock
	GyroSPIDevice  string
	GyroSPISpeedHz int64
	SerialPort     string
	SerialBaudRate uint
	ReplayFile     string

	// Sampling and matching
	SamplePeriodMS    int
	BufferSize        int
	FilterCoefficient float64
	DPSPerDigit       float64 // degrees per second per raw digit
	UnlockThreshold   float64
	SensorTimeoutMS   int // 0 waits forever

	// Front panel
	ButtonPin        string // empty uses ENTER on stdin
	ButtonDebounceMS int
	LEDRecordedPin   string
	LEDAttemptPin    string
	Displays         []string
	OLEDI2CBus       string

	// MQTT
	MQTTBroker          string // empty disables MQTT
	MQTTClientID        string
	MQTTClientIDConsole string

	// Topics
	TopicState    string
	TopicDecision string
	TopicPrompt   string

	// Web Server
	WebServerPort int // 0 disables the server

	// Audit log
	AuditDBPath string // empty disables the audit log
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex; write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for every key the file omits.
func Default() *Config {
	return &Config{
		SensorLink:     LinkMock,
		GyroSPIDevice:  "/dev/spidev0.0",
		GyroSPISpeedHz: 1_000_000,
		SerialPort:     "/dev/ttyACM0",
		SerialBaudRate: 115200,

		SamplePeriodMS:    20,
		BufferSize:        200,
		FilterCoefficient: 0.1,
		DPSPerDigit:       17.5 / 1000,
		UnlockThreshold:   1000,
		SensorTimeoutMS:   500,

		ButtonDebounceMS: 50,
		Displays:         []string{DisplayLog},
		OLEDI2CBus:       "",

		MQTTClientID:        "gesture-lock",
		MQTTClientIDConsole: "gesture-lock-console",

		TopicState:    "gesture/state",
		TopicDecision: "gesture/decision",
		TopicPrompt:   "gesture/prompt",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default(). Blank lines and lines
// starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, min, max int) (int, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val < min || val > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, val)
	}
	return val, nil
}

func parsePositiveFloat(key, value string) (float64, error) {
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %g", key, val)
	}
	return val, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Sensor link
	case "SENSOR_LINK":
		switch value {
		case LinkSPI, LinkSerial, LinkReplay, LinkMock:
			c.SensorLink = value
		default:
			return fmt.Errorf("SENSOR_LINK must be spi, serial, replay or mock, got %q", value)
		}
	case "GYRO_SPI_DEVICE":
		c.GyroSPIDevice = value
	case "GYRO_SPI_SPEED_HZ":
		var hz int
		hz, err = parseInt(key, value, 100_000, 10_000_000)
		c.GyroSPISpeedHz = int64(hz)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		var baud int
		baud, err = parseInt(key, value, 1200, 4_000_000)
		c.SerialBaudRate = uint(baud)
	case "REPLAY_FILE":
		c.ReplayFile = value

	// Sampling and matching
	case "SAMPLE_PERIOD_MS":
		c.SamplePeriodMS, err = parseInt(key, value, 1, 1000)
	case "BUFFER_SIZE":
		c.BufferSize, err = parseInt(key, value, 2, 5000)
	case "FILTER_COEFFICIENT":
		c.FilterCoefficient, err = parsePositiveFloat(key, value)
		if err == nil && c.FilterCoefficient > 1 {
			err = fmt.Errorf("FILTER_COEFFICIENT must be in (0, 1], got %g", c.FilterCoefficient)
		}
	case "DPS_PER_DIGIT":
		c.DPSPerDigit, err = parsePositiveFloat(key, value)
	case "UNLOCK_THRESHOLD":
		c.UnlockThreshold, err = parsePositiveFloat(key, value)
	case "SENSOR_TIMEOUT_MS":
		c.SensorTimeoutMS, err = parseInt(key, value, 0, 60_000)

	// Front panel
	case "BUTTON_PIN":
		c.ButtonPin = value
	case "BUTTON_DEBOUNCE_MS":
		c.ButtonDebounceMS, err = parseInt(key, value, 0, 1000)
	case "LED_RECORDED_PIN":
		c.LEDRecordedPin = value
	case "LED_ATTEMPT_PIN":
		c.LEDAttemptPin = value
	case "DISPLAY":
		c.Displays = nil
		for _, d := range strings.Split(value, ",") {
			d = strings.TrimSpace(d)
			switch d {
			case "":
			case DisplayOLED, DisplayTerminal, DisplayLog:
				c.Displays = append(c.Displays, d)
			default:
				return fmt.Errorf("unknown DISPLAY %q (want oled, terminal or log)", d)
			}
		}
	case "OLED_I2C_BUS":
		c.OLEDI2CBus = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_DECISION":
		c.TopicDecision = value
	case "TOPIC_PROMPT":
		c.TopicPrompt = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 0, 65535)

	// Audit log
	case "AUDIT_DB_PATH":
		c.AuditDBPath = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks the combinations single keys cannot.
func (c *Config) validate() error {
	switch c.SensorLink {
	case LinkSPI:
		if c.GyroSPIDevice == "" {
			return fmt.Errorf("GYRO_SPI_DEVICE is required for SENSOR_LINK=spi")
		}
	case LinkSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SENSOR_LINK=serial")
		}
	case LinkReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required for SENSOR_LINK=replay")
		}
	}
	if (c.LEDRecordedPin == "") != (c.LEDAttemptPin == "") {
		return fmt.Errorf("LED_RECORDED_PIN and LED_ATTEMPT_PIN must be set together")
	}
	if c.MQTTBroker != "" && c.MQTTClientID == "" {
		return fmt.Errorf("MQTT_CLIENT_ID is required when MQTT_BROKER is set")
	}
	if len(c.Displays) == 0 {
		return fmt.Errorf("DISPLAY must name at least one display")
	}
	return nil
}

// SamplePeriod is the capture tick period.
func (c *Config) SamplePeriod() time.Duration {
	return time.Duration(c.SamplePeriodMS) * time.Millisecond
}

// SensorTimeout bounds one sensor transfer; zero waits forever.
func (c *Config) SensorTimeout() time.Duration {
	return time.Duration(c.SensorTimeoutMS) * time.Millisecond
}

// ButtonDebounce is the minimum time between accepted button edges.
func (c *Config) ButtonDebounce() time.Duration {
	return time.Duration(c.ButtonDebounceMS) * time.Millisecond
}

// HasDisplay reports whether kind is in the DISPLAY list.
func (c *Config) HasDisplay(kind string) bool {
	for _, d := range c.Displays {
		if d == kind {
			return true
		}
	}
	return false
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
