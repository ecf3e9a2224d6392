package rak

import (
	"math/rand"
	"testing"
)

var allStatus = []Status{
	StatusInit, StatusReady, StatusSetup, StatusConnect, StatusJoined,
	StatusSleep, StatusAutoJoin, StatusNJM, StatusBufferFull,
}

func TestRegister_StatusBitsIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var r Register
	model := map[Status]bool{}

	for i := 0; i < 2000; i++ {
		flag := allStatus[rng.Intn(len(allStatus))]
		state := rng.Intn(2) == 1
		r.SetStatus(flag, state)
		model[flag] = state

		for _, f := range allStatus {
			if got := r.GetStatus(f); got != model[f] {
				t.Fatalf("step %d: %s = %v, want %v", i, f, got, model[f])
			}
		}
	}
}

func TestRegister_CheckEventTakesOnce(t *testing.T) {
	var r Register
	for e := EventSetupSuccess; e < eventCount; e++ {
		if r.CheckEvent(e) {
			t.Fatalf("%s reported without being raised", e)
		}
		r.RaiseEvent(e)
		if !r.CheckEvent(e) {
			t.Fatalf("%s not reported after raise", e)
		}
		if r.CheckEvent(e) {
			t.Fatalf("%s reported twice", e)
		}
	}
}

func TestRegister_EventsDoNotTouchStatus(t *testing.T) {
	var r Register
	r.RaiseEvent(EventJoined)
	r.RaiseEvent(EventRX2)
	if r.Snapshot() != 0 {
		t.Fatalf("events leaked into status: %b", r.Snapshot())
	}
	r.SetStatus(StatusJoined, true)
	if !r.CheckEvent(EventJoined) {
		t.Fatal("JOINED event lost after status write")
	}
}

func TestRegister_ResetAllKeepsEvents(t *testing.T) {
	var r Register
	r.SetStatus(StatusInit|StatusReady|StatusJoined, true)
	r.RaiseEvent(EventJoinFailed)
	r.ResetAll()

	if r.Snapshot() != 0 {
		t.Fatalf("status not cleared: %b", r.Snapshot())
	}
	if !r.CheckEvent(EventJoinFailed) {
		t.Fatal("pending event dropped by ResetAll")
	}
}

func TestRegister_OutOfRangeEventIgnored(t *testing.T) {
	var r Register
	r.RaiseEvent(Event(42))
	if r.CheckEvent(Event(42)) {
		t.Fatal("unknown event reported")
	}
}

func TestStatusAndEventNames(t *testing.T) {
	if StatusBufferFull.String() != "BUFFER_FULL" || EventRX1.String() != "RX_1" {
		t.Fatal("unexpected names")
	}
	if (StatusInit | StatusReady).String() != "MULTIPLE" || Event(99).String() != "UNKNOWN" {
		t.Fatal("unexpected fallback names")
	}
}
