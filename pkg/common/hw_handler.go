package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/mbalug7/go-rak-lora/pkg/hal"
	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"
	"github.com/warthog618/gpiod"
)

// lineWriter is the part of gpiod.Line the handler drives
type lineWriter interface {
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

type HWHandler struct {
	tty          string       // serial port name
	ResetLine    *gpiod.Line  // module reset GPIO line
	LEDLine      *gpiod.Line  // status LED GPIO line
	chip         *gpiod.Chip  // chip that owns both lines
	serialStream *serial.Port // serial port needed to communicate with the module
	pins         map[hal.Pin]lineWriter
	muWrite      sync.Mutex // one command on the wire at a time
	muCb         sync.Mutex // callback registration protection
	onLineCb     hal.OnLineCb
	done         chan struct{} // closed on Close, stops the reader goroutine
	readerDone   sync.WaitGroup
}

// NewHWHandler opens the serial port and requests the reset and LED lines.
// Reset line is requested low (module running), LED line low (off).
func NewHWHandler(resetPin int, ledPin int, ttyName string, baud int, gpioChip string) (*HWHandler, error) {
	handler := &HWHandler{
		tty:  ttyName,
		done: make(chan struct{}),
	}
	config := &serial.Config{
		Name:        ttyName,
		Baud:        baud,
		Size:        8,
		ReadTimeout: 500 * time.Millisecond,
	}
	var err error
	handler.chip, err = gpiod.NewChip(gpioChip, gpiod.WithConsumer("rak-lora"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GPIO chip: %w", err)
	}

	handler.ResetLine, err = handler.chip.RequestLine(resetPin, gpiod.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("failed to request reset GPIO line: %w", err)
	}

	handler.LEDLine, err = handler.chip.RequestLine(ledPin, gpiod.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("failed to request LED GPIO line: %w", err)
	}
	handler.pins = map[hal.Pin]lineWriter{
		hal.PinReset: handler.ResetLine,
		hal.PinLED:   handler.LEDLine,
	}

	handler.serialStream, err = serial.OpenPort(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port, err: %w", err)
	}

	handler.readerDone.Add(1)
	go func() {
		defer handler.readerDone.Done()
		hal.PumpLines(handler.serialStream, handler.done, handler.onLine)
	}()
	log.Debug().Str("tty", ttyName).Int("baud", baud).Msg("serial port opened")
	return handler, nil
}

func (obj *HWHandler) Close() (err error) {
	close(obj.done)
	err = obj.serialStream.Close()
	if err != nil {
		return fmt.Errorf("failed to close serial stream: %w", err)
	}
	obj.readerDone.Wait()

	err = obj.ResetLine.Close()
	if err != nil {
		return fmt.Errorf("failed to close reset line: %w", err)
	}
	err = obj.LEDLine.Close()
	if err != nil {
		return fmt.Errorf("failed to close LED line: %w", err)
	}
	err = obj.chip.Close()
	if err != nil {
		return fmt.Errorf("failed to close GPIO chip: %w", err)
	}
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
		log.Debug().Str("line", line).Msg("no line callback registered, dropping line")
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

func setPin(pins map[hal.Pin]lineWriter, pin hal.Pin, level bool) error {
	line, ok := pins[pin]
	if !ok {
		return fmt.Errorf("failed to set %s line: %w", pin, hal.ErrPinUnsupported)
	}
	value := 0
	if level {
		value = 1
	}
	err := line.SetValue(value)
	if err != nil {
		return fmt.Errorf("failed to set %s line to %d, err: %w", pin, value, err)
	}
	return nil
}

func togglePin(pins map[hal.Pin]lineWriter, pin hal.Pin) error {
	line, ok := pins[pin]
	if !ok {
		return fmt.Errorf("failed to toggle %s line: %w", pin, hal.ErrPinUnsupported)
	}
	value, err := line.Value()
	if err != nil {
		return fmt.Errorf("failed to get %s line value, err: %w", pin, err)
	}
	err = line.SetValue(value ^ 1)
	if err != nil {
		return fmt.Errorf("failed to toggle %s line, err: %w", pin, err)
	}
	return nil
}
