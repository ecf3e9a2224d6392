// Package usb drives RAK modules attached through a USB-CDC bridge.
// Such boards expose no reset or LED line to the host, pin requests are rejected.
package usb

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mbalug7/go-rak-lora/pkg/hal"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

var ErrNoPort = errors.New("no serial port detected")

type HWHandler struct {
	portName   string
	port       serial.Port
	muWrite    sync.Mutex
	muCb       sync.Mutex
	onLineCb   hal.OnLineCb
	done       chan struct{}
	readerDone sync.WaitGroup
}

// NewHWHandler opens portName, or the first detected port when portName is empty
func NewHWHandler(portName string, baud int) (*HWHandler, error) {
	if portName == "" {
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", err)
		}
		portName, err = pickPort(ports)
		if err != nil {
			return nil, err
		}
		log.Info().Str("port", portName).Int("port_count", len(ports)).Msg("serial port detected")
	}
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	err = port.SetReadTimeout(500 * time.Millisecond)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	handler := &HWHandler{
		portName: portName,
		port:     port,
		done:     make(chan struct{}),
	}
	handler.readerDone.Add(1)
	go func() {
		defer handler.readerDone.Done()
		hal.PumpLines(handler.port, handler.done, handler.onLine)
	}()
	return handler, nil
}

// pickPort prefers USB-CDC device names over on-board UARTs
func pickPort(ports []string) (string, error) {
	if len(ports) == 0 {
		return "", ErrNoPort
	}
	for _, name := range ports {
		if strings.Contains(name, "ttyUSB") || strings.Contains(name, "ttyACM") || strings.Contains(name, "usbserial") {
			return name, nil
		}
	}
	return ports[0], nil
}

func (obj *HWHandler) PortName() string {
	return obj.portName
}

func (obj *HWHandler) Close() error {
	close(obj.done)
	err := obj.port.Close()
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	obj.readerDone.Wait()
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
	if cb != nil {
		cb(line, err)
	}
}

func (obj *HWHandler) WriteSerial(msg []byte) error {
	obj.muWrite.Lock()
	defer obj.muWrite.Unlock()
	_, err := obj.port.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	return nil
}

func (obj *HWHandler) SetPin(pin hal.Pin, level bool) error {
	return fmt.Errorf("failed to set %s line: %w", pin, hal.ErrPinUnsupported)
}

func (obj *HWHandler) TogglePin(pin hal.Pin) error {
	return fmt.Errorf("failed to toggle %s line: %w", pin, hal.ErrPinUnsupported)
}
