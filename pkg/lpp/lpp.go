// Package lpp packs sensor readings into a Cayenne Low Power Payload.
//
// Every record is [channel][type code][data...], multi byte fields are big endian
// and fixed point. The buffer holds at most Capacity bytes, the smallest uplink
// payload ceiling across the regional plans.
package lpp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
)

const Capacity = 51

// full analog input scale for ScaleAnalog
const (
	analogInMax  = 1023
	analogOutMax = 327
)

var (
	ErrBufferFull = errors.New("lpp buffer full")
	ErrOutOfRange = errors.New("value out of range for lpp field")
)

// Type is one entry of the measurement catalog. Size counts the channel and type bytes.
type Type struct {
	Name   string
	Code   byte
	Size   int
	Factor float64
}

var (
	DigitalInput  = Type{Name: "digital_input", Code: 0x00, Size: 3, Factor: 1}
	DigitalOutput = Type{Name: "digital_output", Code: 0x01, Size: 3, Factor: 1}
	AnalogInput   = Type{Name: "analog_input", Code: 0x02, Size: 4, Factor: 100}
	AnalogOutput  = Type{Name: "analog_output", Code: 0x03, Size: 4, Factor: 100}
	Illuminance   = Type{Name: "illuminance", Code: 0x65, Size: 4, Factor: 1}
	Presence      = Type{Name: "presence", Code: 0x66, Size: 3, Factor: 1}
	Temperature   = Type{Name: "temperature", Code: 0x67, Size: 4, Factor: 10}
	Humidity      = Type{Name: "humidity", Code: 0x68, Size: 3, Factor: 2}
	Accelerometer = Type{Name: "accelerometer", Code: 0x71, Size: 8, Factor: 1000}
	Barometer     = Type{Name: "barometer", Code: 0x73, Size: 4, Factor: 10}
	GPS           = Type{Name: "gps", Code: 0x88, Size: 11, Factor: 10000}
)

// altitude uses its own factor, latitude and longitude use GPS.Factor
const gpsAltitudeFactor = 100

// FullIndicator is told whether the last record was rejected for lack of space,
// rak.Register satisfies it
type FullIndicator interface {
	SetBufferFull(full bool)
}

type Encoder struct {
	mu     sync.Mutex
	buf    [Capacity]byte
	cursor int
	full   FullIndicator
}

// NewEncoder constructs an empty Encoder. full may be nil.
func NewEncoder(full FullIndicator) *Encoder {
	return &Encoder{full: full}
}

// ScaleAnalog maps a raw 10 bit ADC reading onto the analog field range
func ScaleAnalog(v float64) float64 {
	return v * analogOutMax / analogInMax
}

func (obj *Encoder) AddDigitalInput(channel uint8, v int) error {
	return obj.addByte(channel, DigitalInput, v)
}

func (obj *Encoder) AddDigitalOutput(channel uint8, v int) error {
	return obj.addByte(channel, DigitalOutput, v)
}

func (obj *Encoder) AddPresence(channel uint8, v int) error {
	return obj.addByte(channel, Presence, v)
}

// AddAnalogInput encodes v with 0.01 resolution, -327.68..327.67
func (obj *Encoder) AddAnalogInput(channel uint8, v float64) error {
	return obj.addInt16(channel, AnalogInput, v)
}

func (obj *Encoder) AddAnalogOutput(channel uint8, v float64) error {
	return obj.addInt16(channel, AnalogOutput, v)
}

// AddTemperature encodes degrees Celsius with 0.1 resolution
func (obj *Encoder) AddTemperature(channel uint8, celsius float64) error {
	return obj.addInt16(channel, Temperature, celsius)
}

// AddIlluminance encodes lux, 0..65535
func (obj *Encoder) AddIlluminance(channel uint8, lux float64) error {
	return obj.addUint16(channel, Illuminance, lux)
}

// AddBarometer encodes hPa with 0.1 resolution
func (obj *Encoder) AddBarometer(channel uint8, hPa float64) error {
	return obj.addUint16(channel, Barometer, hPa)
}

// AddHumidity encodes relative humidity with 0.5 % resolution
func (obj *Encoder) AddHumidity(channel uint8, percent float64) error {
	scaled, err := scale(Humidity, percent, 0, math.MaxUint8)
	if err != nil {
		return err
	}
	return obj.put(channel, Humidity, []byte{byte(scaled)})
}

// AddAccelerometer encodes g on three axes with 0.001 resolution
func (obj *Encoder) AddAccelerometer(channel uint8, x, y, z float64) error {
	data := make([]byte, 0, 6)
	for _, axis := range []float64{x, y, z} {
		scaled, err := scale(Accelerometer, axis, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		data = binary.BigEndian.AppendUint16(data, uint16(int16(scaled)))
	}
	return obj.put(channel, Accelerometer, data)
}

// AddGPS encodes a fix: latitude and longitude in degrees with 0.0001 resolution,
// altitude in meters with 0.01 resolution
func (obj *Encoder) AddGPS(channel uint8, latitude, longitude, meters float64) error {
	const min24, max24 = -1 << 23, 1<<23 - 1
	lat, err := scale(GPS, latitude, min24, max24)
	if err != nil {
		return err
	}
	lon, err := scale(GPS, longitude, min24, max24)
	if err != nil {
		return err
	}
	alt := math.Round(meters * gpsAltitudeFactor)
	if alt < min24 || alt > max24 || math.IsNaN(alt) {
		return fmt.Errorf("%s altitude %v: %w", GPS.Name, meters, ErrOutOfRange)
	}
	data := make([]byte, 0, 9)
	for _, v := range []int64{lat, lon, int64(alt)} {
		data = append(data, byte(v>>16), byte(v>>8), byte(v))
	}
	return obj.put(channel, GPS, data)
}

func (obj *Encoder) addByte(channel uint8, t Type, v int) error {
	if v < 0 || v > math.MaxUint8 {
		return fmt.Errorf("%s value %d: %w", t.Name, v, ErrOutOfRange)
	}
	return obj.put(channel, t, []byte{byte(v)})
}

func (obj *Encoder) addInt16(channel uint8, t Type, v float64) error {
	scaled, err := scale(t, v, math.MinInt16, math.MaxInt16)
	if err != nil {
		return err
	}
	return obj.put(channel, t, binary.BigEndian.AppendUint16(nil, uint16(int16(scaled))))
}

func (obj *Encoder) addUint16(channel uint8, t Type, v float64) error {
	scaled, err := scale(t, v, 0, math.MaxUint16)
	if err != nil {
		return err
	}
	return obj.put(channel, t, binary.BigEndian.AppendUint16(nil, uint16(scaled)))
}

// scale rounds v*factor and checks it fits [lo, hi]
func scale(t Type, v float64, lo, hi int64) (int64, error) {
	scaled := math.Round(v * t.Factor)
	if math.IsNaN(scaled) || scaled < float64(lo) || scaled > float64(hi) {
		return 0, fmt.Errorf("%s value %v: %w", t.Name, v, ErrOutOfRange)
	}
	return int64(scaled), nil
}

// put writes a whole record or nothing. The full indicator follows every attempt.
func (obj *Encoder) put(channel uint8, t Type, data []byte) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	if Capacity-obj.cursor < t.Size {
		obj.setFull(true)
		return fmt.Errorf("%s needs %d bytes, %d free: %w", t.Name, t.Size, Capacity-obj.cursor, ErrBufferFull)
	}
	obj.buf[obj.cursor] = channel
	obj.buf[obj.cursor+1] = t.Code
	copy(obj.buf[obj.cursor+2:], data)
	obj.cursor += t.Size
	obj.setFull(false)
	return nil
}

func (obj *Encoder) setFull(full bool) {
	if obj.full != nil {
		obj.full.SetBufferFull(full)
	}
}

// Bytes returns a copy of the encoded records without consuming them
func (obj *Encoder) Bytes() []byte {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return append([]byte(nil), obj.buf[:obj.cursor]...)
}

// Drain returns the encoded records and clears the buffer, so nothing is sent twice
func (obj *Encoder) Drain() []byte {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	out := append([]byte(nil), obj.buf[:obj.cursor]...)
	obj.clear()
	return out
}

func (obj *Encoder) Clear() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.clear()
}

func (obj *Encoder) clear() {
	obj.buf = [Capacity]byte{}
	obj.cursor = 0
}

func (obj *Encoder) Len() int {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.cursor
}

// Free is the number of bytes still available
func (obj *Encoder) Free() int {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return Capacity - obj.cursor
}
