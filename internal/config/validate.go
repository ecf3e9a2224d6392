// internal/config/validate.go
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks configuration correctness.
// Empty optional fields are accepted, Normalize fills them.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("log_level %q: %w", cfg.LogLevel, err)
		}
	}

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	driver := strings.ToLower(cfg.Serial.Driver)
	switch driver {
	case "", "gpio":
		if cfg.Serial.Port == "" {
			return fmt.Errorf("serial.port is required for the gpio driver")
		}
		if cfg.GPIO.ResetPin < 0 || cfg.GPIO.LEDPin < 0 {
			return fmt.Errorf("gpio pins must not be negative")
		}
		if cfg.GPIO.ResetPin == cfg.GPIO.LEDPin {
			return fmt.Errorf("gpio.reset_pin and gpio.led_pin must differ, both are %d", cfg.GPIO.ResetPin)
		}
	case "usb":
	default:
		return fmt.Errorf("serial.driver %q: expected gpio or usb", cfg.Serial.Driver)
	}
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud must not be negative")
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	for name, v := range map[string]int{
		"timing.watchdog_interval_ms": cfg.Timing.WatchdogIntervalMs,
		"timing.reply_timeout_ms":     cfg.Timing.ReplyTimeoutMs,
		"timing.reset_settle_ms":      cfg.Timing.ResetSettleMs,
		"timing.hard_reset_hold_ms":   cfg.Timing.HardResetHoldMs,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	// ------------------------------------------------------------
	// LORAWAN
	// ------------------------------------------------------------

	lw := cfg.LoRaWAN
	if lw.Band != nil && (*lw.Band < 0 || *lw.Band > 12) {
		return fmt.Errorf("lorawan.band %d: expected 0..12", *lw.Band)
	}
	switch strings.ToUpper(lw.Class) {
	case "", "A", "B", "C":
	default:
		return fmt.Errorf("lorawan.class %q: expected A, B or C", lw.Class)
	}

	switch strings.ToLower(lw.Activation) {
	case "", "none":
	case "otaa":
		if err := checkHex("lorawan.dev_eui", lw.DevEUI, 8); err != nil {
			return err
		}
		if err := checkHex("lorawan.app_eui", lw.AppEUI, 8); err != nil {
			return err
		}
		if err := checkHex("lorawan.app_key", lw.AppKey, 16); err != nil {
			return err
		}
	case "abp":
		if err := checkHex("lorawan.dev_addr", lw.DevAddr, 4); err != nil {
			return err
		}
		if err := checkHex("lorawan.apps_key", lw.AppSKey, 16); err != nil {
			return err
		}
		if err := checkHex("lorawan.nwks_key", lw.NwkSKey, 16); err != nil {
			return err
		}
	default:
		return fmt.Errorf("lorawan.activation %q: expected otaa, abp or none", lw.Activation)
	}

	// ------------------------------------------------------------
	// JOIN
	// ------------------------------------------------------------

	if cfg.Join.IntervalS < 0 || cfg.Join.IntervalS > 255 {
		return fmt.Errorf("join.interval_s %d: expected 0..255", cfg.Join.IntervalS)
	}
	if cfg.Join.Attempts < 0 || cfg.Join.Attempts > 255 {
		return fmt.Errorf("join.attempts %d: expected 0..255", cfg.Join.Attempts)
	}

	return nil
}

// checkHex requires exactly size bytes written as hex
func checkHex(field, value string, size int) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) != 2*size {
		return fmt.Errorf("%s: expected %d hex characters, got %d", field, 2*size, len(value))
	}
	if _, err := hex.DecodeString(value); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}
