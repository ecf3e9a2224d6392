package rak

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mbalug7/go-rak-lora/pkg/hal"
	"github.com/rs/zerolog/log"
)

// Indicator is the state shown on the status LED
type Indicator int

const (
	IndicatorOff Indicator = iota
	IndicatorOn
	IndicatorBlink
)

// IndicatorFor derives the LED state from the status set. Sleep always wins.
func IndicatorFor(s Status) Indicator {
	switch {
	case s&StatusSleep != 0:
		return IndicatorOff
	case s&StatusJoined != 0:
		return IndicatorOn
	case s&StatusConnect != 0:
		return IndicatorBlink
	}
	return IndicatorOff
}

// Run calls Tick on every watchdog interval until ctx is done
func (obj *Module) Run(ctx context.Context) {
	ticker := time.NewTicker(obj.opts.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := obj.Tick(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("watchdog tick failed")
			}
		}
	}
}

// Tick advances the lifecycle: first it reads back the join configuration,
// afterwards it tracks the join status and drives the status LED
func (obj *Module) Tick(ctx context.Context) error {
	obj.muTick.Lock()
	defer obj.muTick.Unlock()

	if obj.register.GetStatus(StatusSetup) {
		return nil
	}
	if !obj.register.GetStatus(StatusInit) {
		return obj.initialize(ctx)
	}

	if !obj.register.GetStatus(StatusJoined) {
		joined, err := obj.readFlag(ctx, ParamNJS)
		if err != nil {
			log.Debug().Err(err).Msg("join status check failed")
		} else {
			obj.register.SetStatus(StatusJoined, joined)
		}
	}
	if obj.register.GetStatus(StatusJoined) && obj.register.GetStatus(StatusConnect) {
		obj.register.SetStatus(StatusConnect, false)
	}
	obj.showIndicator(IndicatorFor(obj.register.Snapshot()))
	return nil
}

// initialize mirrors the module configuration into the status set.
// INIT stays clear on failure, so the next tick tries again.
func (obj *Module) initialize(ctx context.Context) error {
	njm, err := obj.readFlag(ctx, ParamNJM)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	njs, err := obj.readFlag(ctx, ParamNJS)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	value, err := obj.GetParameter(ctx, ParamJoin)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	join, err := ParseJoinConfig(value)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	obj.register.SetStatus(StatusNJM, njm)
	obj.register.SetStatus(StatusJoined, njs)
	obj.register.SetStatus(StatusAutoJoin, join.AutoJoin)
	obj.register.SetStatus(StatusInit, true)
	obj.register.SetStatus(StatusReady, true)
	if join.AutoJoin {
		obj.register.SetStatus(StatusConnect, true)
	}
	log.Info().Bool("otaa", njm).Bool("joined", njs).Bool("auto_join", join.AutoJoin).Msg("module initialized")
	return nil
}

func (obj *Module) readFlag(ctx context.Context, param Param) (bool, error) {
	value, err := obj.GetParameter(ctx, param)
	if err != nil {
		return false, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", param, value, err)
	}
	return v != 0, nil
}

func (obj *Module) showIndicator(ind Indicator) {
	var err error
	switch ind {
	case IndicatorOn:
		err = obj.hw.SetPin(hal.PinLED, true)
	case IndicatorBlink:
		err = obj.hw.TogglePin(hal.PinLED)
	default:
		err = obj.hw.SetPin(hal.PinLED, false)
	}
	if err == nil {
		return
	}
	if errors.Is(err, hal.ErrPinUnsupported) {
		log.Debug().Err(err).Msg("status LED not wired")
		return
	}
	log.Warn().Err(err).Msg("failed to update status LED")
}
