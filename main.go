package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbalug7/go-rak-lora/internal/config"
	"github.com/mbalug7/go-rak-lora/pkg/common"
	"github.com/mbalug7/go-rak-lora/pkg/hal"
	"github.com/mbalug7/go-rak-lora/pkg/rak"
	"github.com/mbalug7/go-rak-lora/pkg/usb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// downlinkEvent is called for every RX window that carried data
func downlinkEvent(dl rak.Downlink) {
	log.Info().
		Int("window", dl.Window).
		Int("rssi", dl.RSSI).
		Int("snr", dl.SNR).
		Int("port", dl.Port).
		Str("payload", hex.EncodeToString(dl.Payload)).
		Msg("downlink received")
}

func openHandler(cfg *config.Config) (hal.HWHandler, error) {
	switch cfg.Serial.Driver {
	case "usb":
		hw, err := usb.NewHWHandler(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return nil, err
		}
		log.Info().Str("port", hw.PortName()).Msg("usb serial opened")
		return hw, nil
	default:
		// reset and LED wired to the board GPIO header
		hw, err := common.NewHWHandler(cfg.GPIO.ResetPin, cfg.GPIO.LEDPin, cfg.Serial.Port, cfg.Serial.Baud, cfg.GPIO.Chip)
		if err != nil {
			return nil, err
		}
		return hw, nil
	}
}

func options(t config.TimingConfig) rak.Options {
	return rak.Options{
		ReplyTimeout:     time.Duration(t.ReplyTimeoutMs) * time.Millisecond,
		ResetSettle:      time.Duration(t.ResetSettleMs) * time.Millisecond,
		HardResetHold:    time.Duration(t.HardResetHoldMs) * time.Millisecond,
		WatchdogInterval: time.Duration(t.WatchdogIntervalMs) * time.Millisecond,
	}
}

// setup writes the configured activation, it is skipped for activation none
func setup(ctx context.Context, module *rak.Module, lw config.LoRaWANConfig) error {
	b := rak.NewSetupBuilder(module).Band(rak.Band(*lw.Band)).Class(rak.Class(lw.Class))
	switch lw.Activation {
	case "otaa":
		return b.OTAA(ctx, lw.AppEUI, lw.DevEUI, lw.AppKey)
	case "abp":
		return b.ABP(ctx, lw.DevAddr, lw.AppSKey, lw.NwkSKey)
	}
	return nil
}

// setupWarning keeps running when the write went through but the read back differs,
// the module is still usable with whatever it reported
func setupWarning(err error) error {
	if errors.Is(err, rak.ErrSetupVerify) {
		log.Warn().Err(err).Msg("module setup could not be verified")
		return nil
	}
	return err
}

func run(cfg *config.Config) error {
	hw, err := openHandler(cfg)
	if err != nil {
		return fmt.Errorf("failed to open module interface: %w", err)
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close communication with the module")
		}
	}()

	module, err := rak.NewModule(hw, options(cfg.Timing), downlinkEvent)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = setupWarning(setup(ctx, module, cfg.LoRaWAN))
	if err != nil {
		return fmt.Errorf("failed to set up module: %w", err)
	}
	if module.CheckEvent(rak.EventSetupSuccess) {
		log.Info().Str("activation", cfg.LoRaWAN.Activation).Msg("module set up")
	}

	go module.Run(ctx)

	if cfg.Join.Enable {
		err = module.Join(ctx, rak.JoinConfig{
			Enable:   true,
			AutoJoin: cfg.Join.AutoJoin,
			Interval: cfg.Join.IntervalS,
			Attempts: cfg.Join.Attempts,
		})
		if err != nil {
			return fmt.Errorf("failed to request join: %w", err)
		}
	}

	<-ctx.Done()
	log.Info().Str("status", module.StatusReport()).Msg("shutting down")
	return nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: rak-lora <config.yaml>")
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validation failed")
	}
	config.Normalize(cfg)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	err = run(cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("rak-lora stopped")
	}
}
