package payload

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestFormatter_AddInteger(t *testing.T) {
	testCases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x01, 0x00, 0x00, 0x00, 0x00}},
		{1, []byte{0x01, 0x00, 0x00, 0x00, 0x01}},
		{-1, []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF}},
		{258, []byte{0x01, 0x00, 0x00, 0x01, 0x02}},
		{-300, []byte{0x01, 0xFF, 0xFF, 0xFE, 0xD4}},
		{math.MaxInt32, []byte{0x01, 0x7F, 0xFF, 0xFF, 0xFF}},
		{math.MinInt32, []byte{0x01, 0x80, 0x00, 0x00, 0x00}},
	}
	for _, tC := range testCases {
		f := NewFormatter()
		err := f.AddInteger(tC.v)
		if err != nil {
			t.Fatalf("%d: %v", tC.v, err)
		}
		if got := f.Drain(); !bytes.Equal(got, tC.want) {
			t.Fatalf("%d: got % X, want % X", tC.v, got, tC.want)
		}
	}
}

func TestFormatter_OutOfRange(t *testing.T) {
	f := NewFormatter()
	for _, v := range []int64{math.MaxInt32 + 1, math.MinInt32 - 1} {
		err := f.AddInteger(v)
		if !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("%d: expected ErrOutOfRange, got %v", v, err)
		}
	}
	if len(f.Bytes()) != 0 {
		t.Fatal("rejected value was written")
	}
}

func TestFormatter_DrainAndClear(t *testing.T) {
	f := NewFormatter()
	_ = f.AddInteger(7)
	_ = f.AddInteger(8)
	if got := f.Bytes(); len(got) != 10 {
		t.Fatalf("got %d bytes", len(got))
	}
	if got := f.Drain(); len(got) != 10 {
		t.Fatalf("drain returned %d bytes", len(got))
	}
	if got := f.Drain(); len(got) != 0 {
		t.Fatalf("second drain returned % X", got)
	}

	_ = f.AddInteger(9)
	f.Clear()
	if len(f.Bytes()) != 0 {
		t.Fatal("clear left data behind")
	}
}
