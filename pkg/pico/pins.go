package pico

import (
	"fmt"

	"github.com/mbalug7/go-rak-lora/pkg/hal"
)

// outputPin is the part of machine.Pin the handler drives
type outputPin interface {
	Set(high bool)
	Get() bool
}

func setPin(pins map[hal.Pin]outputPin, pin hal.Pin, level bool) error {
	p, ok := pins[pin]
	if !ok {
		return fmt.Errorf("failed to set %s pin: %w", pin, hal.ErrPinUnsupported)
	}
	p.Set(level)
	return nil
}

func togglePin(pins map[hal.Pin]outputPin, pin hal.Pin) error {
	p, ok := pins[pin]
	if !ok {
		return fmt.Errorf("failed to toggle %s pin: %w", pin, hal.ErrPinUnsupported)
	}
	p.Set(!p.Get())
	return nil
}
