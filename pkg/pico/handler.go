//go:build pico
// +build pico

package pico

import (
	"fmt"
	"machine"
	"sync"
	"time"

	"github.com/mbalug7/go-rak-lora/pkg/hal"
)

// pollInterval is how long the reader sleeps on an empty UART buffer
const pollInterval = 5 * time.Millisecond

type HWHandler struct {
	ResetLine    machine.Pin   // module reset GPIO pin
	LEDLine      machine.Pin   // status LED GPIO pin
	serialStream *machine.UART // serial port needed to communicate with the module
	pins         map[hal.Pin]outputPin
	muWrite      sync.Mutex // one command on the wire at a time
	muCb         sync.Mutex // callback registration protection
	onLineCb     hal.OnLineCb
	done         chan struct{} // closed on Close, stops the reader goroutine
}

// NewHWHandler configures the UART on the UART1 pins and both output pins.
// Reset pin starts low (module running), LED pin low (off).
func NewHWHandler(resetPin machine.Pin, ledPin machine.Pin, uart *machine.UART, baud uint32) (*HWHandler, error) {
	handler := &HWHandler{
		ResetLine:    resetPin,
		LEDLine:      ledPin,
		serialStream: uart,
		done:         make(chan struct{}),
	}
	err := uart.Configure(machine.UARTConfig{
		BaudRate: baud,
		TX:       machine.UART1_TX_PIN,
		RX:       machine.UART1_RX_PIN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure uart: %w", err)
	}

	resetPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	resetPin.Low()
	ledPin.Low()
	handler.pins = map[hal.Pin]outputPin{
		hal.PinReset: resetPin,
		hal.PinLED:   ledPin,
	}

	uart.Buffer.Clear()
	reader := &idleReader{
		src:  uart,
		wait: func() { time.Sleep(pollInterval) },
	}
	go hal.PumpLines(reader, handler.done, handler.onLine)
	return handler, nil
}

// Close stops the reader, the UART itself stays configured
func (obj *HWHandler) Close() error {
	close(obj.done)
	return nil
}

func (obj *HWHandler) RegisterOnLineCb(cb hal.OnLineCb) error {
	obj.muCb.Lock()
	defer obj.muCb.Unlock()
	if obj.onLineCb != nil {
		return hal.ErrCallbackRegistered
	}
	obj.onLineCb = cb
	return nil
}

func (obj *HWHandler) onLine(line string, err error) {
	obj.muCb.Lock()
	cb := obj.onLineCb
	obj.muCb.Unlock()
	if cb == nil {
		println("no line callback registered, dropping line", line)
		return
	}
	cb(line, err)
}

func (obj *HWHandler) WriteSerial(msg []byte) error {
	obj.muWrite.Lock()
	defer obj.muWrite.Unlock()

	_, err := obj.serialStream.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to send data, err: %w", err)
	}
	return nil
}

func (obj *HWHandler) SetPin(pin hal.Pin, level bool) error {
	return setPin(obj.pins, pin, level)
}

func (obj *HWHandler) TogglePin(pin hal.Pin) error {
	return togglePin(obj.pins, pin)
}
