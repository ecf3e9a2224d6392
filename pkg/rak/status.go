package rak

import "sync"

// Status is a persistent, level-triggered device condition
type Status uint16

const (
	StatusInit Status = 1 << iota
	StatusReady
	StatusSetup
	StatusConnect
	StatusJoined
	StatusSleep
	StatusAutoJoin
	StatusNJM // mirrors the network join mode, set means OTAA
	StatusBufferFull

	StatusAll = StatusInit | StatusReady | StatusSetup | StatusConnect | StatusJoined |
		StatusSleep | StatusAutoJoin | StatusNJM | StatusBufferFull
)

var statusNames = map[Status]string{
	StatusInit:       "INIT",
	StatusReady:      "READY",
	StatusSetup:      "SETUP",
	StatusConnect:    "CONNECT",
	StatusJoined:     "JOINED",
	StatusSleep:      "SLEEP",
	StatusAutoJoin:   "AUTOJOIN",
	StatusNJM:        "NJM",
	StatusBufferFull: "BUFFER_FULL",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "MULTIPLE"
}

// Event is a one-shot notification, observed at most once through Register.CheckEvent
type Event uint8

const (
	EventSetupSuccess Event = iota
	EventJoined
	EventJoinFailed
	EventSendConfirmedOK
	EventSendConfirmedFailed
	EventRX1
	EventRX2
	eventCount
)

var eventNames = [eventCount]string{
	"SETUP_SUCCESS",
	"JOINED",
	"JOIN_FAILED",
	"SEND_CONFIRMED_OK",
	"SEND_CONFIRMED_FAILED",
	"RX_1",
	"RX_2",
}

func (e Event) String() string {
	if e < eventCount {
		return eventNames[e]
	}
	return "UNKNOWN"
}

// Register holds the status set and the pending event set of one module.
// It is shared by the line handler and the watchdog goroutine.
type Register struct {
	mu     sync.Mutex
	status Status
	events uint8
}

func (r *Register) SetStatus(flag Status, state bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state {
		r.status |= flag
	} else {
		r.status &^= flag
	}
}

// GetStatus reports whether every bit of flag is set
func (r *Register) GetStatus(flag Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status&flag == flag && flag != 0
}

// Snapshot returns the whole status set
func (r *Register) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SetBufferFull lets a payload encoder report overflow
func (r *Register) SetBufferFull(full bool) {
	r.SetStatus(StatusBufferFull, full)
}

func (r *Register) RaiseEvent(e Event) {
	if e >= eventCount {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events |= 1 << e
}

// CheckEvent takes the event: it returns true and clears it when raised
func (r *Register) CheckEvent(e Event) bool {
	if e >= eventCount {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events&(1<<e) == 0 {
		return false
	}
	r.events &^= 1 << e
	return true
}

// ResetAll clears every status bit, pending events are kept
func (r *Register) ResetAll() {
	r.SetStatus(StatusAll, false)
}
