package rak

import (
	"fmt"
	"strconv"
	"strings"
)

// Param is a RUI3 AT command parameter name, used as AT+<Param>
type Param string

const (
	ParamNWM     Param = "NWM"     // work mode, 1 = LoRaWAN
	ParamNJM     Param = "NJM"     // network join mode, 0 = ABP, 1 = OTAA
	ParamNJS     Param = "NJS"     // network join status
	ParamClass   Param = "CLASS"   // LoRaWAN device class
	ParamBand    Param = "BAND"    // regional frequency plan
	ParamDevEUI  Param = "DEVEUI"  // OTAA
	ParamAppEUI  Param = "APPEUI"  // OTAA
	ParamAppKey  Param = "APPKEY"  // OTAA
	ParamDevAddr Param = "DEVADDR" // ABP
	ParamAppSKey Param = "APPSKEY" // ABP
	ParamNwkSKey Param = "NWKSKEY" // ABP
	ParamJoin    Param = "JOIN"
	ParamSend    Param = "SEND"
	ParamSleep   Param = "SLEEP"
	ParamADR     Param = "ADR"
	ParamDR      Param = "DR"
	ParamTxPower Param = "TXP"
)

const (
	cmdPrefix    = "AT+"
	cmdSoftReset = "ATZ"
	evtMarker    = "+EVT:"
)

// WriteCommand formats AT+<P>=<value>
func (p Param) WriteCommand(value string) string {
	return cmdPrefix + string(p) + "=" + value
}

// ReadCommand formats AT+<P>=?
func (p Param) ReadCommand() string {
	return cmdPrefix + string(p) + "=?"
}

// replyPrefix is the echo that precedes a parameter value in a read reply
func (p Param) replyPrefix() string {
	return cmdPrefix + string(p) + "="
}

// ReturnCode is a final reply token of the module
type ReturnCode int

const (
	RCOK ReturnCode = iota
	RCError
	RCParamError
	RCBusyError
	RCTestParamOverflow
	RCNoClassBEnable
	RCNoNetworkJoined
	RCRxError
)

// returnCodes is scanned in order, the first matching token wins
var returnCodes = []struct {
	code  ReturnCode
	token string
}{
	{RCOK, "OK"},
	{RCError, "AT_ERROR"},
	{RCParamError, "AT_PARAM_ERROR"},
	{RCBusyError, "AT_BUSY_ERROR"},
	{RCTestParamOverflow, "AT_TEST_PARAM_OVERFLOW"},
	{RCNoClassBEnable, "AT_NO_CLASSB_ENABLE"},
	{RCNoNetworkJoined, "AT_NO_NETWORK_JOINED"},
	{RCRxError, "AT_RX_ERROR"},
}

func (rc ReturnCode) String() string {
	for _, entry := range returnCodes {
		if entry.code == rc {
			return entry.token
		}
	}
	return "RC(" + strconv.Itoa(int(rc)) + ")"
}

// Band is a RUI3 regional frequency plan index
type Band int

const (
	BandEU433 Band = iota
	BandCN470
	BandRU864
	BandIN865
	BandEU868
	BandUS915
	BandAU915
	BandKR920
	BandAS923_1
	BandAS923_2
	BandAS923_3
	BandAS923_4
	BandLA915
)

func (b Band) Valid() bool {
	return b >= BandEU433 && b <= BandLA915
}

// Class is the LoRaWAN device class letter
type Class string

const (
	ClassA Class = "A"
	ClassB Class = "B"
	ClassC Class = "C"
)

func (c Class) Valid() bool {
	return c == ClassA || c == ClassB || c == ClassC
}

// JoinConfig is the payload of AT+JOIN, <enable>:<auto_join>:<interval s>:<attempts>
type JoinConfig struct {
	Enable   bool
	AutoJoin bool
	Interval int
	Attempts int
}

func (j JoinConfig) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", b2i(j.Enable), b2i(j.AutoJoin), j.Interval, j.Attempts)
}

// ParseJoinConfig reads the colon separated reply of AT+JOIN=?
func ParseJoinConfig(value string) (JoinConfig, error) {
	fields := strings.Split(strings.TrimSpace(value), ":")
	if len(fields) != 4 {
		return JoinConfig{}, fmt.Errorf("invalid join config %q, expected 4 fields", value)
	}
	ints := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return JoinConfig{}, fmt.Errorf("invalid join config field %d %q: %w", i, field, err)
		}
		ints[i] = v
	}
	return JoinConfig{
		Enable:   ints[0] != 0,
		AutoJoin: ints[1] != 0,
		Interval: ints[2],
		Attempts: ints[3],
	}, nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
