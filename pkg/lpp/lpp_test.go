package lpp

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

type fullFlag struct {
	set   bool
	calls int
}

func (f *fullFlag) SetBufferFull(full bool) {
	f.set = full
	f.calls++
}

func TestEncoder_Records(t *testing.T) {
	testCases := []struct {
		desc string
		add  func(e *Encoder) error
		want []byte
	}{
		{
			desc: "temperature",
			add:  func(e *Encoder) error { return e.AddTemperature(1, 23.4) },
			want: []byte{0x01, 0x67, 0x00, 0xEA},
		},
		{
			desc: "negative temperature",
			add:  func(e *Encoder) error { return e.AddTemperature(2, -12.5) },
			want: []byte{0x02, 0x67, 0xFF, 0x83},
		},
		{
			desc: "humidity",
			add:  func(e *Encoder) error { return e.AddHumidity(4, 55.5) },
			want: []byte{0x04, 0x68, 0x6F},
		},
		{
			desc: "digital input",
			add:  func(e *Encoder) error { return e.AddDigitalInput(5, 1) },
			want: []byte{0x05, 0x00, 0x01},
		},
		{
			desc: "digital output",
			add:  func(e *Encoder) error { return e.AddDigitalOutput(6, 0) },
			want: []byte{0x06, 0x01, 0x00},
		},
		{
			desc: "presence",
			add:  func(e *Encoder) error { return e.AddPresence(7, 1) },
			want: []byte{0x07, 0x66, 0x01},
		},
		{
			desc: "analog input",
			add:  func(e *Encoder) error { return e.AddAnalogInput(8, 3.3) },
			want: []byte{0x08, 0x02, 0x01, 0x4A},
		},
		{
			desc: "analog output",
			add:  func(e *Encoder) error { return e.AddAnalogOutput(9, -1) },
			want: []byte{0x09, 0x03, 0xFF, 0x9C},
		},
		{
			desc: "illuminance",
			add:  func(e *Encoder) error { return e.AddIlluminance(10, 1000) },
			want: []byte{0x0A, 0x65, 0x03, 0xE8},
		},
		{
			desc: "barometer",
			add:  func(e *Encoder) error { return e.AddBarometer(11, 1013.2) },
			want: []byte{0x0B, 0x73, 0x27, 0x94},
		},
		{
			desc: "accelerometer",
			add:  func(e *Encoder) error { return e.AddAccelerometer(12, 1.013, -1, 0) },
			want: []byte{0x0C, 0x71, 0x03, 0xF5, 0xFC, 0x18, 0x00, 0x00},
		},
		{
			desc: "gps",
			add:  func(e *Encoder) error { return e.AddGPS(3, 47.4239, 9.3748, 500) },
			want: []byte{0x03, 0x88, 0x07, 0x3C, 0x7F, 0x01, 0x6E, 0x34, 0x00, 0xC3, 0x50},
		},
		{
			desc: "gps southern hemisphere",
			add:  func(e *Encoder) error { return e.AddGPS(1, -33.8688, 151.2093, -10) },
			want: []byte{0x01, 0x88, 0xFA, 0xD5, 0x00, 0x17, 0x12, 0x9D, 0xFF, 0xFC, 0x18},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			flag := &fullFlag{set: true}
			e := NewEncoder(flag)
			err := tC.add(e)
			if err != nil {
				t.Fatal(err)
			}
			got := e.Drain()
			if !bytes.Equal(got, tC.want) {
				t.Fatalf("got % X, want % X", got, tC.want)
			}
			if flag.set {
				t.Fatal("BUFFER_FULL not cleared on success")
			}
		})
	}
}

func TestEncoder_OutOfRange(t *testing.T) {
	testCases := []struct {
		desc string
		add  func(e *Encoder) error
	}{
		{"temperature high", func(e *Encoder) error { return e.AddTemperature(1, 3276.8) }},
		{"temperature low", func(e *Encoder) error { return e.AddTemperature(1, -3276.9) }},
		{"analog", func(e *Encoder) error { return e.AddAnalogInput(1, 400) }},
		{"humidity", func(e *Encoder) error { return e.AddHumidity(1, 128) }},
		{"humidity negative", func(e *Encoder) error { return e.AddHumidity(1, -1) }},
		{"illuminance negative", func(e *Encoder) error { return e.AddIlluminance(1, -1) }},
		{"barometer", func(e *Encoder) error { return e.AddBarometer(1, 6553.6) }},
		{"digital", func(e *Encoder) error { return e.AddDigitalInput(1, 256) }},
		{"presence negative", func(e *Encoder) error { return e.AddPresence(1, -1) }},
		{"accelerometer", func(e *Encoder) error { return e.AddAccelerometer(1, 0, 0, 33) }},
		{"gps latitude", func(e *Encoder) error { return e.AddGPS(1, 900, 0, 0) }},
		{"gps altitude", func(e *Encoder) error { return e.AddGPS(1, 0, 0, 90000) }},
		{"nan", func(e *Encoder) error { return e.AddTemperature(1, math.NaN()) }},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			flag := &fullFlag{}
			e := NewEncoder(flag)
			err := e.AddPresence(9, 1)
			if err != nil {
				t.Fatal(err)
			}
			before := e.Bytes()
			calls := flag.calls

			err = tC.add(e)
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("expected ErrOutOfRange, got %v", err)
			}
			if !bytes.Equal(e.Bytes(), before) {
				t.Fatal("buffer changed by a rejected value")
			}
			if flag.calls != calls {
				t.Fatal("BUFFER_FULL touched by a rejected value")
			}
		})
	}
}

func TestEncoder_Overflow(t *testing.T) {
	flag := &fullFlag{}
	e := NewEncoder(flag)
	for i := 0; i < 12; i++ {
		err := e.AddTemperature(uint8(i), 20)
		if err != nil {
			t.Fatal(err)
		}
	}
	if e.Free() != 3 {
		t.Fatalf("free: got %d, want 3", e.Free())
	}
	before := e.Bytes()

	err := e.AddTemperature(12, 20)
	if !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if !flag.set {
		t.Fatal("BUFFER_FULL not set on overflow")
	}
	if !bytes.Equal(e.Bytes(), before) {
		t.Fatal("buffer changed by an overflowing record")
	}

	// exactly size bytes free
	err = e.AddHumidity(13, 50)
	if err != nil {
		t.Fatal(err)
	}
	if flag.set {
		t.Fatal("BUFFER_FULL not cleared by a fitting record")
	}
	if e.Free() != 0 || e.Len() != Capacity {
		t.Fatalf("unexpected fill: len %d, free %d", e.Len(), e.Free())
	}
}

func TestEncoder_DrainTwice(t *testing.T) {
	e := NewEncoder(nil)
	err := e.AddTemperature(1, 23.4)
	if err != nil {
		t.Fatal(err)
	}
	first := e.Drain()
	if len(first) != Temperature.Size {
		t.Fatalf("got %d bytes", len(first))
	}
	second := e.Drain()
	if len(second) != 0 {
		t.Fatalf("second drain returned % X", second)
	}
	if e.Free() != Capacity {
		t.Fatal("buffer not emptied")
	}
}

func TestEncoder_Clear(t *testing.T) {
	e := NewEncoder(nil)
	_ = e.AddGPS(1, 1, 1, 1)
	e.Clear()
	if e.Len() != 0 || len(e.Bytes()) != 0 {
		t.Fatal("clear left data behind")
	}
}

func TestScaleAnalog(t *testing.T) {
	if got := ScaleAnalog(0); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := ScaleAnalog(1023); got != 327 {
		t.Fatalf("got %v", got)
	}
	e := NewEncoder(nil)
	if err := e.AddAnalogInput(1, ScaleAnalog(1023)); err != nil {
		t.Fatalf("full scale reading must fit the analog field: %v", err)
	}
}
