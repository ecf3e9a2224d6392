package rak

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

type paramWrite struct {
	param Param
	value string
}

// SetupBuilder collects the LoRaWAN parameters of one activation.
// Band and class keep their defaults (EU868, class A) unless set.
type SetupBuilder struct {
	module *Module
	band   Band
	class  Class
}

// NewSetupBuilder constructs SetupBuilder
func NewSetupBuilder(module *Module) *SetupBuilder {
	return &SetupBuilder{
		module: module,
		band:   BandEU868,
		class:  ClassA,
	}
}

// Band sets the regional frequency plan
func (obj *SetupBuilder) Band(b Band) *SetupBuilder {
	obj.band = b
	return obj
}

// Class sets the LoRaWAN device class
func (obj *SetupBuilder) Class(c Class) *SetupBuilder {
	obj.class = c
	return obj
}

// OTAA writes an over-the-air activation setup, DevEUI is read back to verify it
func (obj *SetupBuilder) OTAA(ctx context.Context, appEUI, devEUI, appKey string) error {
	return obj.module.runSetup(ctx, obj.plan("1",
		paramWrite{ParamDevEUI, devEUI},
		paramWrite{ParamAppEUI, appEUI},
		paramWrite{ParamAppKey, appKey},
	))
}

// ABP writes an activation-by-personalization setup, DevAddr is read back to verify it
func (obj *SetupBuilder) ABP(ctx context.Context, devAddr, appSKey, nwkSKey string) error {
	return obj.module.runSetup(ctx, obj.plan("0",
		paramWrite{ParamDevAddr, devAddr},
		paramWrite{ParamAppSKey, appSKey},
		paramWrite{ParamNwkSKey, nwkSKey},
	))
}

// plan orders the common writes before the activation specific ones.
// The first activation write is the identity that gets verified.
func (obj *SetupBuilder) plan(joinMode string, activation ...paramWrite) []paramWrite {
	writes := []paramWrite{
		{ParamNWM, "1"},
		{ParamNJM, joinMode},
		{ParamClass, string(obj.class)},
		{ParamBand, strconv.Itoa(int(obj.band))},
	}
	return append(writes, activation...)
}

func (obj *Module) runSetup(ctx context.Context, writes []paramWrite) error {
	obj.register.SetStatus(StatusSetup, true)
	defer obj.register.SetStatus(StatusSetup, false)

	for _, w := range writes {
		err := obj.SetParameter(ctx, w.param, w.value)
		if err != nil {
			return fmt.Errorf("failed to write setup parameter %s: %w", w.param, err)
		}
	}
	// reset clears every status bit, SETUP must stay up until verification is done
	err := obj.Reset(ctx, false)
	obj.register.SetStatus(StatusSetup, true)
	if err != nil {
		return fmt.Errorf("failed to reset after setup: %w", err)
	}
	err = sleepCtx(ctx, obj.opts.ResetSettle)
	if err != nil {
		return err
	}

	identity := writes[4]
	got, err := obj.GetParameter(ctx, identity.param)
	if err != nil {
		return fmt.Errorf("failed to verify setup: %w", err)
	}
	if got != identity.value {
		log.Warn().Str("param", string(identity.param)).Str("written", identity.value).Str("read", got).Msg("setup verification mismatch")
		return fmt.Errorf("%s written %q, read %q: %w", identity.param, identity.value, got, ErrSetupVerify)
	}
	obj.register.RaiseEvent(EventSetupSuccess)
	log.Info().Str("param", string(identity.param)).Msg("setup verified")
	return nil
}
