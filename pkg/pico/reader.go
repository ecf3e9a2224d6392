package pico

import "io"

// bufferedReader is the part of machine.UART the reader goroutine uses
type bufferedReader interface {
	io.Reader
	Buffered() int
}

// idleReader parks the reader goroutine while the UART ring buffer is empty.
// An empty read returns (0, nil) so the caller gets a chance to stop.
type idleReader struct {
	src  bufferedReader
	wait func()
}

func (obj *idleReader) Read(p []byte) (int, error) {
	if obj.src.Buffered() == 0 {
		obj.wait()
		return 0, nil
	}
	return obj.src.Read(p)
}
