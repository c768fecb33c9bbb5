package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Pose sources.
const (
	PoseSourceMock   = "mock"
	PoseSourceReplay = "replay"
)

// Key sinks.
const (
	KeySinkLog    = "log"
	KeySinkUinput = "uinput"
)

// Config holds all application configuration values.
type Config struct {
	// Game
	GameDir       string
	HolsterCutoff float64

	// Gestures
	PosTolerance float64 // metres
	RotTolerance float64 // degrees
	TargetsFile  string

	// Timing
	SampleIntervalMS int

	// Tracking
	PoseSource string
	ReplayFile string

	// Keys
	KeySink        string
	ModifierDevice string // evdev node watched for the drag key, empty disables

	// MQTT mirror, disabled when MQTTBroker is empty
	MQTTBroker       string
	MQTTClientID     string
	TopicFrame       string
	TopicStatus      string
	MirrorIntervalMS int

	// Web Server, disabled when 0
	WebServerPort int
}

// Default returns the compiled-in configuration. Every key in the file
// is optional and falls back to these values.
func Default() *Config {
	return &Config{
		GameDir:          ".",
		HolsterCutoff:    -0.55,
		PosTolerance:     0.15,
		RotTolerance:     40.0,
		TargetsFile:      "pose_bridge_targets.json",
		SampleIntervalMS: 10,
		PoseSource:       PoseSourceMock,
		KeySink:          KeySinkLog,
		MQTTClientID:     "pose-bridge",
		TopicFrame:       "pose_bridge/frame",
		TopicStatus:      "pose_bridge/status",
		MirrorIntervalMS: 100,
	}
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file. The returned Config is never nil:
// if the file cannot be read the defaults are returned with the error.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return Default(), fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines. A malformed line or value is logged and
// the default for that key is kept.
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			log.Printf("config: ignoring invalid line %d: %q", lineNum, line)
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			log.Printf("config: line %d: %v, keeping default", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	return cfg, nil
}

var errUnknownKey = errors.New("unknown config key")

// setValue sets a config value based on the key. On error the field is untouched.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Game
	case "GAME_DIR":
		if value == "" {
			return fmt.Errorf("GAME_DIR is empty")
		}
		c.GameDir = value
	case "HOLSTER_CUTOFF":
		return parseFloat(key, value, &c.HolsterCutoff)

	// Gestures
	case "POS_TOLERANCE":
		return parsePositiveFloat(key, value, &c.PosTolerance)
	case "ROT_TOLERANCE":
		return parsePositiveFloat(key, value, &c.RotTolerance)
	case "TARGETS_FILE":
		c.TargetsFile = value

	// Timing
	case "SAMPLE_INTERVAL_MS":
		return parsePositiveInt(key, value, &c.SampleIntervalMS)

	// Tracking
	case "POSE_SOURCE":
		if value != PoseSourceMock && value != PoseSourceReplay {
			return fmt.Errorf("POSE_SOURCE must be %q or %q, got %q", PoseSourceMock, PoseSourceReplay, value)
		}
		c.PoseSource = value
	case "REPLAY_FILE":
		c.ReplayFile = value

	// Keys
	case "KEY_SINK":
		if value != KeySinkLog && value != KeySinkUinput {
			return fmt.Errorf("KEY_SINK must be %q or %q, got %q", KeySinkLog, KeySinkUinput, value)
		}
		c.KeySink = value
	case "MODIFIER_DEVICE":
		c.ModifierDevice = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_FRAME":
		c.TopicFrame = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "MIRROR_INTERVAL_MS":
		return parsePositiveInt(key, value, &c.MirrorIntervalMS)

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", port)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("%w: %q", errUnknownKey, key)
	}

	return nil
}

func parseFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func parsePositiveFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %v", key, v)
	}
	*dst = v
	return nil
}

func parsePositiveInt(key, value string, dst *int) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", key, v)
	}
	*dst = v
	return nil
}

// InitGlobal initializes the global configuration from file.
// A missing or unreadable file is logged and the defaults are used, so
// startup never fails on configuration.
func InitGlobal(configPath string) {
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		cfg, err := Load(configPath)
		if err != nil {
			log.Printf("config: %v, using defaults", err)
		}
		globalConfig = cfg
	})
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
