// internal/config/normalize.go
package config

import "strings"

const (
	DefaultBaud               = 115200
	DefaultDriver             = "gpio"
	DefaultGPIOChip           = "gpiochip0"
	DefaultWatchdogIntervalMs = 1500
	DefaultReplyTimeoutMs     = 1000
	DefaultResetSettleMs      = 300
	DefaultHardResetHoldMs    = 100
	DefaultBand               = 4 // EU868
	DefaultClass              = "A"
	DefaultJoinIntervalS      = 10
	DefaultJoinAttempts       = 8
)

// Normalize fills defaults and canonical letter case.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// ---- transport ----
	cfg.Serial.Driver = strings.ToLower(cfg.Serial.Driver)
	if cfg.Serial.Driver == "" {
		cfg.Serial.Driver = DefaultDriver
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = DefaultBaud
	}
	if cfg.GPIO.Chip == "" {
		cfg.GPIO.Chip = DefaultGPIOChip
	}

	// ---- timing ----
	setDefault(&cfg.Timing.WatchdogIntervalMs, DefaultWatchdogIntervalMs)
	setDefault(&cfg.Timing.ReplyTimeoutMs, DefaultReplyTimeoutMs)
	setDefault(&cfg.Timing.ResetSettleMs, DefaultResetSettleMs)
	setDefault(&cfg.Timing.HardResetHoldMs, DefaultHardResetHoldMs)

	// ---- lorawan ----
	cfg.LoRaWAN.Activation = strings.ToLower(cfg.LoRaWAN.Activation)
	if cfg.LoRaWAN.Activation == "" {
		cfg.LoRaWAN.Activation = "none"
	}
	if cfg.LoRaWAN.Band == nil {
		band := DefaultBand
		cfg.LoRaWAN.Band = &band
	}
	cfg.LoRaWAN.Class = strings.ToUpper(cfg.LoRaWAN.Class)
	if cfg.LoRaWAN.Class == "" {
		cfg.LoRaWAN.Class = DefaultClass
	}
	// the module echoes keys in upper case, setup compares the read back verbatim
	for _, key := range []*string{
		&cfg.LoRaWAN.DevEUI, &cfg.LoRaWAN.AppEUI, &cfg.LoRaWAN.AppKey,
		&cfg.LoRaWAN.DevAddr, &cfg.LoRaWAN.AppSKey, &cfg.LoRaWAN.NwkSKey,
	} {
		*key = strings.ToUpper(*key)
	}

	// ---- join ----
	setDefault(&cfg.Join.IntervalS, DefaultJoinIntervalS)
	setDefault(&cfg.Join.Attempts, DefaultJoinAttempts)
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
