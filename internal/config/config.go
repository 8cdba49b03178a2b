package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cjeanneret/TorchGo/internal/hw/flash"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 64 << 10

// Backend names accepted in flash.backend.
const (
	BackendGPIO  = "gpio"
	BackendSysfs = "sysfs"
)

// FlashConfig selects and parameterizes the flash backend.
type FlashConfig struct {
	Backend   string   `yaml:"backend"`    // "gpio" or "sysfs"
	Driver    string   `yaml:"driver"`     // gpio driver: "mock", "rpio" or "cdev"
	Chip      string   `yaml:"chip"`       // gpiochip for the cdev driver
	Pin       int      `yaml:"pin"`        // LED pin (BCM or line offset)
	ActiveLow bool     `yaml:"active_low"` // LED lit when the pin is LOW
	LEDName   string   `yaml:"led_name"`   // sysfs LED class device, e.g. "flash0"
	SysfsRoot string   `yaml:"sysfs_root"` // defaults to /sys/class/leds
	Modes     []string `yaml:"modes"`      // modes advertised by the gpio backend
}

// WebConfig configures the HTTP surface.
type WebConfig struct {
	Port     int    `yaml:"port"`     // 0 = web UI disabled unless -web is passed
	MDNS     bool   `yaml:"mdns"`     // advertise the web UI on the local network
	Instance string `yaml:"instance"` // mDNS instance name, defaults to TorchGo-<host>
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel    int    `yaml:"debug_level"`    // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	Locale        string `yaml:"locale"`         // dialog language, e.g. "en" or "ru"; empty = $LANG
	StrobeEnabled bool   `yaml:"strobe_enabled"` // strobe switch position at startup
	WatchSleep    bool   `yaml:"watch_sleep"`    // release the flash on system suspend
}

// Config aggregates all application configuration.
type Config struct {
	Flash    FlashConfig    `yaml:"flash"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath rejects paths that are not .yaml files directly inside
// a configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	switch c.Flash.Backend {
	case "":
		c.Flash.Backend = BackendGPIO
	case BackendGPIO, BackendSysfs:
	default:
		return fmt.Errorf("flash.backend must be %q or %q, got %q", BackendGPIO, BackendSysfs, c.Flash.Backend)
	}

	if c.Flash.Backend == BackendGPIO {
		if c.Flash.Driver == "" {
			c.Flash.Driver = "mock"
		}
		if c.Flash.Pin < 0 {
			return fmt.Errorf("flash.pin must be >= 0, got %d", c.Flash.Pin)
		}
		if len(c.Flash.Modes) == 0 {
			c.Flash.Modes = []string{flash.Torch.String()}
		}
		if _, err := c.ModeSet(); err != nil {
			return err
		}
	}
	if c.Flash.Backend == BackendSysfs && c.Flash.LEDName == "" {
		return errors.New("flash.led_name is required for the sysfs backend")
	}
	if c.Flash.SysfsRoot == "" {
		c.Flash.SysfsRoot = flash.DefaultLEDRoot
	}

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be between 0 and 65535, got %d", c.Web.Port)
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// ModeSet parses flash.modes. Off entries are rejected since off is always
// available.
func (c *Config) ModeSet() (flash.ModeSet, error) {
	var set flash.ModeSet
	for _, s := range c.Flash.Modes {
		m, err := flash.ParseMode(s)
		if err != nil {
			return 0, fmt.Errorf("flash.modes: %w", err)
		}
		if m == flash.Off {
			return 0, errors.New("flash.modes: \"off\" is implicit and must not be listed")
		}
		set = set.With(m)
	}
	return set, nil
}
