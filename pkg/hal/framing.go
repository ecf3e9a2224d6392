package hal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

const lineTerminator = "\r\n"

// MaxLineLength bounds a partial line, longer unterminated input is dropped
const MaxLineLength = 4096

// LineBuffer collects raw serial chunks and hands out complete CR LF terminated lines.
// Partial lines stay buffered until the terminator arrives.
type LineBuffer struct {
	pending []byte
}

// Write appends a raw chunk and returns every line completed by it
func (obj *LineBuffer) Write(chunk []byte) []string {
	obj.pending = append(obj.pending, chunk...)
	var lines []string
	for {
		idx := bytes.Index(obj.pending, []byte(lineTerminator))
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(string(obj.pending[:idx]))
		obj.pending = obj.pending[idx+len(lineTerminator):]
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(obj.pending) > MaxLineLength {
		log.Warn().Int("bytes", len(obj.pending)).Msg("unterminated serial input dropped")
		obj.pending = obj.pending[:0]
	}
	return lines
}

// Reset drops any buffered partial line
func (obj *LineBuffer) Reset() {
	obj.pending = obj.pending[:0]
}

// Frame terminates an AT command for the wire
func Frame(command string) []byte {
	return []byte(command + lineTerminator)
}

// PumpLines reads r until done is closed or a read fails, delivering every complete line to cb.
// Serial ports opened with a read timeout report idle periods as (0, nil) or io.EOF, both are skipped.
func PumpLines(r io.Reader, done <-chan struct{}, cb OnLineCb) {
	var lb LineBuffer
	buf := make([]byte, 512)
	for {
		select {
		case <-done:
			return
		default:
		}
		n, err := r.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			select {
			case <-done:
			default:
				cb("", fmt.Errorf("failed to receive data: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		for _, line := range lb.Write(buf[:n]) {
			cb(line, nil)
		}
	}
}
