package rak

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// LineKind tells how a received line is handled
type LineKind int

const (
	LineIgnored LineKind = iota
	LineReturnCode
	LineEvent
	LineMessage
)

// Downlink is the data carried by an RX_1/RX_2 notification
type Downlink struct {
	Window  int // 1 or 2
	RSSI    int
	SNR     int
	Kind    string // UNICAST or MULTICAST
	Port    int
	Payload []byte
}

type Classification struct {
	Kind     LineKind
	Code     ReturnCode // LineReturnCode only
	Event    Event      // LineEvent only
	Downlink *Downlink  // RX events with a parsable payload
}

// eventSuffixes is an ordered chain, the first match wins
var eventSuffixes = []struct {
	token string
	event Event
}{
	{"JOINED", EventJoined},
	{"JOIN_FAILED", EventJoinFailed},
	{"SEND_CONFIRMED_OK", EventSendConfirmedOK},
	{"SEND_CONFIRMED_FAILED", EventSendConfirmedFailed},
	{"RX_1", EventRX1},
	{"RX_2", EventRX2},
}

// Classify sorts one received line into a return code, an event notification or a plain message.
// Return codes must make up the whole line, so event lines ending in OK are not mistaken for one.
func Classify(line string) Classification {
	line = strings.TrimSpace(line)
	if line == "" {
		return Classification{Kind: LineIgnored}
	}
	for _, rc := range returnCodes {
		if line == rc.token {
			return Classification{Kind: LineReturnCode, Code: rc.code}
		}
	}
	idx := strings.Index(line, evtMarker)
	if idx < 0 {
		return Classification{Kind: LineMessage}
	}
	notification := line[idx+len(evtMarker):]
	for _, suffix := range eventSuffixes {
		if !strings.HasPrefix(notification, suffix.token) {
			continue
		}
		c := Classification{Kind: LineEvent, Event: suffix.event}
		if suffix.event == EventRX1 || suffix.event == EventRX2 {
			c.Downlink = parseDownlink(suffix.event, notification[len(suffix.token):])
		}
		return c
	}
	return Classification{Kind: LineIgnored}
}

// parseDownlink reads :<rssi>:<snr>:<UNICAST|MULTICAST>:<port>[:<hex payload>]
func parseDownlink(e Event, rest string) *Downlink {
	rest, ok := strings.CutPrefix(rest, ":")
	if !ok {
		return nil
	}
	fields := strings.Split(rest, ":")
	if len(fields) < 4 || len(fields) > 5 {
		return nil
	}
	rssi, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil
	}
	snr, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil
	}
	port, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil
	}
	dl := &Downlink{
		Window: 1,
		RSSI:   rssi,
		SNR:    snr,
		Kind:   fields[2],
		Port:   port,
	}
	if e == EventRX2 {
		dl.Window = 2
	}
	if len(fields) == 5 && fields[4] != "" {
		dl.Payload, err = hex.DecodeString(fields[4])
		if err != nil {
			return nil
		}
	}
	return dl
}
