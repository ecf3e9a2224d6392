package rak

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

const (
	testDevEUI = "AC1F09FFFE000001"
	testAppEUI = "AC1F09FFF8680811"
	testAppKey = "2B7E151628AED2A6ABF7158809CF4F3C"
)

func TestSetupBuilder_OTAA(t *testing.T) {
	hw := &fakeHW{respond: params(map[Param]string{ParamDevEUI: testDevEUI})}
	m := newTestModule(t, hw, nil)

	err := NewSetupBuilder(m).Band(BandUS915).Class(ClassC).OTAA(context.Background(), testAppEUI, testDevEUI, testAppKey)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"AT+NWM=1",
		"AT+NJM=1",
		"AT+CLASS=C",
		"AT+BAND=5",
		"AT+DEVEUI=" + testDevEUI,
		"AT+APPEUI=" + testAppEUI,
		"AT+APPKEY=" + testAppKey,
		"ATZ",
		"AT+DEVEUI=?",
	}
	if got := hw.commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	if !m.CheckEvent(EventSetupSuccess) {
		t.Fatal("SETUP_SUCCESS not raised")
	}
	if m.Status(StatusSetup) {
		t.Fatal("SETUP still set after completion")
	}
}

func TestSetupBuilder_ABP(t *testing.T) {
	const devAddr = "26011D2A"
	hw := &fakeHW{respond: params(map[Param]string{ParamDevAddr: devAddr})}
	m := newTestModule(t, hw, nil)

	err := NewSetupBuilder(m).ABP(context.Background(), devAddr, testAppKey, testAppKey)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"AT+NWM=1",
		"AT+NJM=0",
		"AT+CLASS=A",
		"AT+BAND=4",
		"AT+DEVADDR=" + devAddr,
		"AT+APPSKEY=" + testAppKey,
		"AT+NWKSKEY=" + testAppKey,
		"ATZ",
		"AT+DEVADDR=?",
	}
	if got := hw.commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	if !m.CheckEvent(EventSetupSuccess) {
		t.Fatal("SETUP_SUCCESS not raised")
	}
}

func TestSetupBuilder_VerifyMismatch(t *testing.T) {
	hw := &fakeHW{respond: params(map[Param]string{ParamDevEUI: "0000000000000000"})}
	m := newTestModule(t, hw, nil)

	err := NewSetupBuilder(m).OTAA(context.Background(), testAppEUI, testDevEUI, testAppKey)
	if !errors.Is(err, ErrSetupVerify) {
		t.Fatalf("expected ErrSetupVerify, got %v", err)
	}
	if m.CheckEvent(EventSetupSuccess) {
		t.Fatal("SETUP_SUCCESS raised on mismatch")
	}
	if m.Status(StatusSetup) {
		t.Fatal("SETUP still set after failure")
	}
}

func TestSetupBuilder_WriteRejected(t *testing.T) {
	hw := &fakeHW{respond: func(cmd string) []string {
		if cmd == "AT+APPKEY="+testAppKey {
			return []string{"AT_PARAM_ERROR"}
		}
		return []string{"OK"}
	}}
	m := newTestModule(t, hw, nil)

	err := NewSetupBuilder(m).OTAA(context.Background(), testAppEUI, testDevEUI, testAppKey)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != RCParamError {
		t.Fatalf("expected AT_PARAM_ERROR, got %v", err)
	}
	cmds := hw.commands()
	if cmds[len(cmds)-1] != "AT+APPKEY="+testAppKey {
		t.Fatalf("setup continued after a rejected write: %v", cmds)
	}
}

func TestSetupBuilder_TickSkippedDuringSetup(t *testing.T) {
	hw := &fakeHW{}
	m := newTestModule(t, hw, nil)
	m.register.SetStatus(StatusSetup, true)

	err := m.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(hw.commands()) != 0 {
		t.Fatal("tick talked to the module during setup")
	}
}
