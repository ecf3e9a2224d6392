// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Serial   SerialConfig  `yaml:"serial"`
	GPIO     GPIOConfig    `yaml:"gpio"`
	Timing   TimingConfig  `yaml:"timing"`
	LoRaWAN  LoRaWANConfig `yaml:"lorawan"`
	Join     JoinConfig    `yaml:"join"`
}

// ---- TRANSPORT ----

type SerialConfig struct {
	Driver string `yaml:"driver"` // gpio | usb
	Port   string `yaml:"port"`   // usb: empty = auto detect
	Baud   int    `yaml:"baud"`
}

// GPIOConfig is used by the gpio driver only
type GPIOConfig struct {
	Chip     string `yaml:"chip"`
	ResetPin int    `yaml:"reset_pin"`
	LEDPin   int    `yaml:"led_pin"`
}

// ---- TIMING ----

type TimingConfig struct {
	WatchdogIntervalMs int `yaml:"watchdog_interval_ms"`
	ReplyTimeoutMs     int `yaml:"reply_timeout_ms"`
	ResetSettleMs      int `yaml:"reset_settle_ms"`
	HardResetHoldMs    int `yaml:"hard_reset_hold_ms"`
}

// ---- LORAWAN ----

type LoRaWANConfig struct {
	Activation string `yaml:"activation"` // otaa | abp | none
	Band       *int   `yaml:"band"`       // nil = EU868, 0 is EU433
	Class      string `yaml:"class"`

	// otaa
	DevEUI string `yaml:"dev_eui"`
	AppEUI string `yaml:"app_eui"`
	AppKey string `yaml:"app_key"`

	// abp
	DevAddr string `yaml:"dev_addr"`
	AppSKey string `yaml:"apps_key"`
	NwkSKey string `yaml:"nwks_key"`
}

type JoinConfig struct {
	Enable    bool `yaml:"enable"`
	AutoJoin  bool `yaml:"auto_join"`
	IntervalS int  `yaml:"interval_s"`
	Attempts  int  `yaml:"attempts"`
}

// Load reads and decodes a YAML file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return &cfg, nil
}
