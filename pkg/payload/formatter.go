// Package payload implements the plain type+value uplink format.
// Records carry no channel and no fixed point scaling, so it does not mix with lpp.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
)

// TypeInteger marks a 4 byte big endian two's complement integer
const TypeInteger byte = 0x01

var ErrOutOfRange = errors.New("value does not fit a signed 32 bit integer")

type Formatter struct {
	mu      sync.Mutex
	payload []byte
}

func NewFormatter() *Formatter {
	return &Formatter{}
}

// AddInteger appends [TypeInteger][4 bytes], values outside int32 are rejected
func (obj *Formatter) AddInteger(v int64) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("integer %d: %w", v, ErrOutOfRange)
	}
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.payload = append(obj.payload, TypeInteger)
	obj.payload = binary.BigEndian.AppendUint32(obj.payload, uint32(int32(v)))
	return nil
}

// Bytes returns a copy of the payload without consuming it
func (obj *Formatter) Bytes() []byte {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return append([]byte(nil), obj.payload...)
}

// Drain returns the payload and clears it
func (obj *Formatter) Drain() []byte {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	out := obj.payload
	obj.payload = nil
	return out
}

func (obj *Formatter) Clear() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.payload = nil
}
