package rak

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mazen160/go-random"
	"github.com/mbalug7/go-rak-lora/pkg/hal"
	"github.com/rs/zerolog/log"
)

var (
	ErrReplyTimeout = errors.New("no reply from module")
	ErrSetupVerify  = errors.New("setup read-back does not match written value")
	ErrInvalidPort  = errors.New("f-port out of range 1..223")
)

// CommandError is returned when the module answers a command with a non-OK return code
type CommandError struct {
	Command string
	Code    ReturnCode
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.Command, e.Code)
}

type Options struct {
	ReplyTimeout     time.Duration // upper bound for every awaited reply
	ResetSettle      time.Duration // soft reset sends no reply, setup waits this long before reading back
	HardResetHold    time.Duration // reset line assertion time
	WatchdogInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		ReplyTimeout:     time.Second,
		ResetSettle:      300 * time.Millisecond,
		HardResetHold:    100 * time.Millisecond,
		WatchdogInterval: 1500 * time.Millisecond,
	}
}

// OnDownlinkCb receives data delivered in an RX window.
// It runs on its own goroutine, so it may send or query the module.
type OnDownlinkCb func(Downlink)

// Drainer is a payload buffer that is emptied when read, see lpp.Encoder and payload.Formatter
type Drainer interface {
	Drain() []byte
}

// reply is a received line handed to a waiter
type reply struct {
	line string
	c    Classification
}

type waiter struct {
	match func(reply) bool
	ch    chan reply
}

type Module struct {
	hw           hal.HWHandler
	opts         Options
	register     Register
	muMsg        sync.Mutex // pending message protection
	message      string
	muWaiters    sync.Mutex // waiters map protection
	waiters      map[string]*waiter
	muCmd        sync.Mutex // one command exchange on the wire at a time
	muTick       sync.Mutex // one watchdog tick at a time
	onDownlinkCb OnDownlinkCb
}

// NewModule registers the line handler on hw. cb may be nil.
func NewModule(hw hal.HWHandler, opts Options, cb OnDownlinkCb) (*Module, error) {
	m := &Module{
		hw:           hw,
		opts:         opts,
		waiters:      make(map[string]*waiter),
		onDownlinkCb: cb,
	}
	err := hw.RegisterOnLineCb(m.HandleLine)
	if err != nil {
		return nil, fmt.Errorf("failed to register OnLineCb: %w", err)
	}
	return m, nil
}

// Register exposes the status/event register, e.g. as the overflow sink of a payload encoder
func (obj *Module) Register() *Register {
	return &obj.register
}

func (obj *Module) Status(flag Status) bool {
	return obj.register.GetStatus(flag)
}

func (obj *Module) CheckEvent(e Event) bool {
	return obj.register.CheckEvent(e)
}

// PendingMessage returns the last plain line received from the module
func (obj *Module) PendingMessage() string {
	obj.muMsg.Lock()
	defer obj.muMsg.Unlock()
	return obj.message
}

func (obj *Module) StatusReport() string {
	snap := obj.register.Snapshot()
	var set []string
	for flag := StatusInit; flag <= StatusBufferFull; flag <<= 1 {
		if snap&flag != 0 {
			set = append(set, flag.String())
		}
	}
	if len(set) == 0 {
		return "UNINIT"
	}
	return strings.Join(set, "|")
}

// HandleLine is the transport callback, it classifies the line and applies its effect
func (obj *Module) HandleLine(line string, err error) {
	if err != nil {
		log.Error().Err(err).Msg("serial receive failed")
		return
	}
	c := Classify(line)
	switch c.Kind {
	case LineIgnored:
		log.Debug().Str("line", line).Msg("line dropped")
		return
	case LineReturnCode:
		log.Debug().Str("rc", c.Code.String()).Msg("return code received")
		if c.Code == RCOK && obj.register.GetStatus(StatusSleep) {
			obj.register.SetStatus(StatusSleep, false)
			obj.register.SetStatus(StatusReady, true)
			log.Info().Msg("module woke up")
		}
	case LineEvent:
		obj.applyEvent(c)
	case LineMessage:
		log.Debug().Str("line", line).Msg("message received")
		obj.muMsg.Lock()
		obj.message = line
		obj.muMsg.Unlock()
	}
	obj.notifyWaiters(reply{line: strings.TrimSpace(line), c: c})
}

func (obj *Module) applyEvent(c Classification) {
	log.Debug().Str("event", c.Event.String()).Msg("event received")
	obj.register.RaiseEvent(c.Event)
	switch c.Event {
	case EventJoined:
		obj.register.SetStatus(StatusConnect, false)
		obj.register.SetStatus(StatusJoined, true)
		log.Info().Msg("network joined")
	case EventJoinFailed:
		obj.register.SetStatus(StatusConnect, true)
		obj.register.SetStatus(StatusJoined, false)
		log.Warn().Msg("network join failed")
	case EventRX1, EventRX2:
		if c.Downlink != nil && obj.onDownlinkCb != nil {
			// replies to commands issued by the callback arrive on this goroutine
			go obj.onDownlinkCb(*c.Downlink)
		}
	}
}

func (obj *Module) notifyWaiters(r reply) {
	obj.muWaiters.Lock()
	defer obj.muWaiters.Unlock()
	for id, w := range obj.waiters {
		if !w.match(r) {
			continue
		}
		w.ch <- r
		delete(obj.waiters, id)
	}
}

// registerWaiter must be called before the command is written, so a fast reply is not missed
func (obj *Module) registerWaiter(match func(reply) bool) (string, chan reply, error) {
	id, err := random.String(16)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate random id: %w", err)
	}
	ch := make(chan reply, 1)
	obj.muWaiters.Lock()
	obj.waiters[id] = &waiter{match: match, ch: ch}
	obj.muWaiters.Unlock()
	return id, ch, nil
}

func (obj *Module) dropWaiter(id string) {
	obj.muWaiters.Lock()
	defer obj.muWaiters.Unlock()
	delete(obj.waiters, id)
}

func (obj *Module) await(ctx context.Context, id string, ch chan reply) (reply, error) {
	defer obj.dropWaiter(id)
	timer := time.NewTimer(obj.opts.ReplyTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r, nil
	case <-timer.C:
		return reply{}, ErrReplyTimeout
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (obj *Module) write(command string) error {
	log.Debug().Str("cmd", command).Msg("sending command")
	err := obj.hw.WriteSerial(hal.Frame(command))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", command, err)
	}
	return nil
}

// WriteATCommand sends AT+<param>=<value> without waiting for a reply
func (obj *Module) WriteATCommand(param Param, value string) error {
	obj.muCmd.Lock()
	defer obj.muCmd.Unlock()
	return obj.write(param.WriteCommand(value))
}

// SetParameter writes a parameter and waits for its return code
func (obj *Module) SetParameter(ctx context.Context, param Param, value string) error {
	return obj.command(ctx, param.WriteCommand(value))
}

func (obj *Module) command(ctx context.Context, command string) error {
	obj.muCmd.Lock()
	defer obj.muCmd.Unlock()

	id, ch, err := obj.registerWaiter(isReturnCode)
	if err != nil {
		return err
	}
	err = obj.write(command)
	if err != nil {
		obj.dropWaiter(id)
		return err
	}
	r, err := obj.await(ctx, id, ch)
	if err != nil {
		return fmt.Errorf("failed to get reply to %s: %w", command, err)
	}
	if r.c.Code != RCOK {
		return &CommandError{Command: command, Code: r.c.Code}
	}
	return nil
}

// GetParameter reads a parameter and returns its value without the AT+<param>= echo.
// The value line is followed by a closing return code, which is consumed here as well.
func (obj *Module) GetParameter(ctx context.Context, param Param) (string, error) {
	obj.muCmd.Lock()
	defer obj.muCmd.Unlock()

	prefix := param.replyPrefix()
	valueID, valueCh, err := obj.registerWaiter(func(r reply) bool {
		if r.c.Kind == LineReturnCode {
			return r.c.Code != RCOK
		}
		return r.c.Kind == LineMessage && strings.HasPrefix(r.line, prefix)
	})
	if err != nil {
		return "", err
	}
	rcID, rcCh, err := obj.registerWaiter(isReturnCode)
	if err != nil {
		obj.dropWaiter(valueID)
		return "", err
	}
	defer obj.dropWaiter(rcID)

	command := param.ReadCommand()
	err = obj.write(command)
	if err != nil {
		obj.dropWaiter(valueID)
		return "", err
	}
	r, err := obj.await(ctx, valueID, valueCh)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", param, err)
	}
	if r.c.Kind == LineReturnCode {
		return "", &CommandError{Command: command, Code: r.c.Code}
	}
	_, err = obj.await(ctx, rcID, rcCh)
	if err != nil {
		log.Debug().Err(err).Str("cmd", command).Msg("no closing return code after value")
	}
	return strings.TrimPrefix(r.line, prefix), nil
}

func isReturnCode(r reply) bool {
	return r.c.Kind == LineReturnCode
}

// Join requests a network join and waits for the module to accept the request.
// The outcome arrives later as a JOINED or JOIN_FAILED event.
func (obj *Module) Join(ctx context.Context, cfg JoinConfig) error {
	err := obj.command(ctx, ParamJoin.WriteCommand(cfg.String()))
	if err != nil {
		return err
	}
	obj.register.SetStatus(StatusConnect, true)
	return nil
}

// Sleep puts the module to sleep for d. It is a no-op while already sleeping.
// The module acknowledges the wake up with OK, which clears SLEEP again.
func (obj *Module) Sleep(d time.Duration) error {
	if obj.register.GetStatus(StatusSleep) {
		return nil
	}
	err := obj.WriteATCommand(ParamSleep, strconv.FormatInt(d.Milliseconds(), 10))
	if err != nil {
		return err
	}
	obj.register.SetStatus(StatusSleep, true)
	obj.register.SetStatus(StatusReady, false)
	return nil
}

// Reset restarts the module through the reset line or with ATZ, then clears every status bit
func (obj *Module) Reset(ctx context.Context, hard bool) error {
	defer obj.register.ResetAll()
	if !hard {
		obj.muCmd.Lock()
		defer obj.muCmd.Unlock()
		return obj.write(cmdSoftReset)
	}
	err := obj.hw.SetPin(hal.PinReset, true)
	if err != nil {
		return fmt.Errorf("failed to assert reset: %w", err)
	}
	sleepErr := sleepCtx(ctx, obj.opts.HardResetHold)
	err = obj.hw.SetPin(hal.PinReset, false)
	if err != nil {
		return fmt.Errorf("failed to release reset: %w", err)
	}
	return sleepErr
}

// Send transmits data as upper-case hex on fport, and waits for the module to accept it
func (obj *Module) Send(ctx context.Context, fport int, data []byte) error {
	return obj.sendRaw(ctx, fport, strings.ToUpper(hex.EncodeToString(data)))
}

// SendString transmits s verbatim
func (obj *Module) SendString(ctx context.Context, fport int, s string) error {
	return obj.sendRaw(ctx, fport, s)
}

// SendBuffer drains buf and transmits its content
func (obj *Module) SendBuffer(ctx context.Context, fport int, buf Drainer) error {
	if fport < 1 || fport > 223 {
		return fmt.Errorf("failed to send on port %d: %w", fport, ErrInvalidPort)
	}
	return obj.Send(ctx, fport, buf.Drain())
}

func (obj *Module) sendRaw(ctx context.Context, fport int, data string) error {
	if fport < 1 || fport > 223 {
		return fmt.Errorf("failed to send on port %d: %w", fport, ErrInvalidPort)
	}
	return obj.SetParameter(ctx, ParamSend, strconv.Itoa(fport)+":"+data)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
