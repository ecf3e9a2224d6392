package hal

import "errors"

// Pin is a logical output line driven by the host
type Pin int

// OnLineCb is called for every complete line received from the module, without the CR LF terminator
type OnLineCb func(line string, err error)

const (
	PinReset Pin = iota
	PinLED
)

var (
	ErrPinUnsupported     = errors.New("pin is not wired on this handler")
	ErrCallbackRegistered = errors.New("on line callback already registered")
)

func (p Pin) String() string {
	switch p {
	case PinReset:
		return "reset"
	case PinLED:
		return "led"
	}
	return "unknown"
}

// Transport moves AT command text between the host and the module
type Transport interface {
	WriteSerial(msg []byte) error
	RegisterOnLineCb(OnLineCb) error
}

// PinDriver toggles the reset line and the status LED
type PinDriver interface {
	SetPin(pin Pin, level bool) error
	TogglePin(pin Pin) error
}

type HWHandler interface {
	Transport
	PinDriver
	Close() error
}
