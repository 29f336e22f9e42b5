// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package sx127x implements the core of a driver for Semtech SX1272 and
// SX1276 LoRa transceivers, over an injected register bus.
//
// Interrupts are modeled by [Device.ISR], which may be called from any
// goroutine, and which defers the actual handling to the owner of an
// [eventqueue.Queue]. All other methods must only be called by that owner.
// TX and RX timeouts are implemented using [eventqueue.Timeout], targeting
// the same queue, so every [Event] is delivered on the owner.
package sx127x

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-eventqueue"
	"github.com/joeycumines/logiface"
)

const (
	// DefaultTxTimeout is used if Params.TxTimeout is zero.
	DefaultTxTimeout = 30 * time.Second
)

const (
	EventTxComplete Event = iota + 1
	EventRxComplete
	EventCRCError
	EventTxTimeout
	EventRxTimeout
	EventCADDone
)

const (
	DIO0 DIO = 1 << iota
	DIO1
	DIO2
	DIO3
	// DIOMulti models boards with all DIO lines or'ed to a single pin.
	DIOMulti
)

const (
	StateIdle State = iota
	StateTx
	StateRx
)

var (
	ErrPayloadSize = errors.New(`sx127x: invalid payload size`)
)

type (
	// Bus models register access to the transceiver, e.g. via SPI.
	Bus interface {
		ReadReg(addr uint8) (uint8, error)
		WriteReg(addr, value uint8) error
		// ReadBurst reads len(buf) bytes from a single address, e.g. RegFifo.
		ReadBurst(addr uint8, buf []byte) error
		// WriteBurst writes buf to a single address, e.g. RegFifo.
		WriteBurst(addr uint8, buf []byte) error
	}

	// Resetter may be implemented by a Bus, if it controls the transceiver's
	// reset line. It should hold reset for at least 100us, then release it,
	// and wait at least 5ms.
	Resetter interface {
		Reset() error
	}

	// EventCallback receives events, on the owner. The payload is only set
	// for EventRxComplete, and is owned by the callee.
	EventCallback func(event Event, payload []byte)

	// Params configures a Device.
	Params struct {
		// OnEvent receives driver events, and is optional.
		OnEvent EventCallback

		// Logger is optional.
		Logger *logiface.Logger[logiface.Event]

		// TxTimeout bounds the time spent in TX, defaults to
		// DefaultTxTimeout.
		TxTimeout time.Duration
	}

	// Device is a transceiver. The zero value must be initialized using
	// [Device.Setup], then [Device.Init]. Devices must not be copied.
	Device struct {
		bus    Bus
		queue  *eventqueue.Queue
		params Params
		sleep  func(time.Duration)

		// irq accumulates DIO flags, until the isr event is handled
		irq atomic.Uint32

		isr            eventqueue.Event
		txTimeoutEvent eventqueue.Event
		rxTimeoutEvent eventqueue.Event
		txTimeout      eventqueue.Timeout
		rxTimeout      eventqueue.Timeout

		state   State
		version uint8
	}

	// Event is a driver event, see [EventCallback].
	Event int

	// DIO identifies one of the transceiver's digital IO (interrupt) lines.
	DIO uint32

	// State is the driver's view of the transceiver.
	State int

	// VersionError indicates an unrecognized (or absent) transceiver.
	VersionError struct {
		Version uint8
	}
)

var (
	// compile time assertions

	_ eventqueue.Handler = (*isrHandler)(nil)
)

func (e *VersionError) Error() string {
	return fmt.Sprintf(`sx127x: unsupported version 0x%02x`, e.Version)
}

func (x Event) String() string {
	switch x {
	case EventTxComplete:
		return `tx complete`
	case EventRxComplete:
		return `rx complete`
	case EventCRCError:
		return `crc error`
	case EventTxTimeout:
		return `tx timeout`
	case EventRxTimeout:
		return `rx timeout`
	case EventCADDone:
		return `cad done`
	default:
		return fmt.Sprintf(`event(%d)`, int(x))
	}
}

func (x State) String() string {
	switch x {
	case StateIdle:
		return `idle`
	case StateTx:
		return `tx`
	case StateRx:
		return `rx`
	default:
		return fmt.Sprintf(`state(%d)`, int(x))
	}
}

// Setup binds the bus, queue and params, without touching the hardware.
func (x *Device) Setup(bus Bus, queue *eventqueue.Queue, params Params) {
	if bus == nil {
		panic(`sx127x: nil bus`)
	}
	if queue == nil {
		panic(`sx127x: nil queue`)
	}
	if params.TxTimeout <= 0 {
		params.TxTimeout = DefaultTxTimeout
	}

	x.bus = bus
	x.queue = queue
	x.params = params
	x.sleep = time.Sleep
	x.state = StateIdle
	x.version = 0
	x.irq.Store(0)

	x.isr.Init((*isrHandler)(x))
	x.txTimeoutEvent.Init(eventqueue.HandlerFunc(func(*eventqueue.Event) { x.onTimeout(StateTx, EventTxTimeout) }))
	x.rxTimeoutEvent.Init(eventqueue.HandlerFunc(func(*eventqueue.Event) { x.onTimeout(StateRx, EventRxTimeout) }))
	x.txTimeout.Init(queue, &x.txTimeoutEvent)
	x.rxTimeout.Init(queue, &x.rxTimeoutEvent)
}

// Init probes the transceiver, resets it (if the bus is a [Resetter]), and
// puts it to sleep, in LoRa mode. Returns a *VersionError if the version
// register holds an unsupported value.
func (x *Device) Init() error {
	version, err := x.readReg(RegVersion)
	if err != nil {
		return err
	}
	switch version {
	case VersionSX1276, VersionSX1272:
	default:
		x.params.Logger.Err().
			Str(`version`, fmt.Sprintf(`0x%02x`, version)).
			Log(`sx127x test failed`)
		return &VersionError{Version: version}
	}
	x.version = version

	if r, ok := x.bus.(Resetter); ok {
		if err := r.Reset(); err != nil {
			return fmt.Errorf(`sx127x: reset: %w`, err)
		}
	}

	// the LoRa bit may only be changed in sleep mode
	if err := x.writeReg(RegOpMode, OpModeSleep); err != nil {
		return err
	}
	if err := x.SetOpMode(OpModeSleep); err != nil {
		return err
	}
	if err := x.writeReg(RegIrqFlagsMask, 0); err != nil {
		return err
	}
	if err := x.writeReg(RegIrqFlags, 0xff); err != nil {
		return err
	}

	x.params.Logger.Debug().
		Str(`model`, x.Model()).
		Log(`sx127x initialized`)

	return nil
}

// Version returns the value of the version register, as read by Init.
func (x *Device) Version() uint8 { return x.version }

// Model returns the transceiver's part number, or "unknown".
func (x *Device) Model() string {
	switch x.version {
	case VersionSX1276:
		return `SX1276`
	case VersionSX1272:
		return `SX1272`
	default:
		return `unknown`
	}
}

// State returns the driver's current state.
func (x *Device) State() State { return x.state }

// OpMode returns the current operating mode, without the LoRa bit.
func (x *Device) OpMode() (uint8, error) {
	v, err := x.readReg(RegOpMode)
	return v & OpModeMask, err
}

// SetOpMode sets the operating mode, in LoRa mode.
func (x *Device) SetOpMode(mode uint8) error {
	return x.writeReg(RegOpMode, OpModeLongRange|(mode&OpModeMask))
}

// Sleep puts the transceiver to sleep, abandoning any TX or RX.
func (x *Device) Sleep() error { return x.idle(OpModeSleep) }

// Standby puts the transceiver in standby, abandoning any TX or RX.
func (x *Device) Standby() error { return x.idle(OpModeStandby) }

func (x *Device) idle(mode uint8) error {
	x.clearTimeouts()
	x.state = StateIdle
	return x.SetOpMode(mode)
}

func (x *Device) clearTimeouts() {
	x.txTimeout.Clear()
	x.rxTimeout.Clear()
	x.queue.Cancel(&x.txTimeoutEvent)
	x.queue.Cancel(&x.rxTimeoutEvent)
}

// Send transmits a payload, of 1 to 255 bytes, arming the TX timeout.
// Completion is reported as EventTxComplete or EventTxTimeout.
func (x *Device) Send(payload []byte) error {
	if len(payload) == 0 || len(payload) > maxPayloadLength {
		return fmt.Errorf(`%w: %d`, ErrPayloadSize, len(payload))
	}

	if err := x.Standby(); err != nil {
		return err
	}

	for _, v := range [...]struct{ addr, value uint8 }{
		{RegFifoTxBaseAddr, 0},
		{RegFifoAddrPtr, 0},
		{RegPayloadLength, uint8(len(payload))},
		{RegDioMapping1, DioMapping1TxDone},
	} {
		if err := x.writeReg(v.addr, v.value); err != nil {
			return err
		}
	}
	if err := x.bus.WriteBurst(RegFifo, payload); err != nil {
		return fmt.Errorf(`sx127x: write fifo: %w`, err)
	}

	if err := x.SetOpMode(OpModeTransmitter); err != nil {
		return err
	}
	x.state = StateTx
	x.txTimeout.Set(x.params.TxTimeout)

	x.params.Logger.Debug().
		Int(`len`, len(payload)).
		Dur(`timeout`, x.params.TxTimeout).
		Log(`sx127x tx`)

	return nil
}

// SetRX enters continuous receive mode. If timeout is positive, reception
// is abandoned with EventRxTimeout, unless a packet is received first.
func (x *Device) SetRX(timeout time.Duration) error {
	if err := x.Standby(); err != nil {
		return err
	}

	for _, v := range [...]struct{ addr, value uint8 }{
		{RegFifoRxBaseAddr, 0},
		{RegFifoAddrPtr, 0},
		{RegDioMapping1, DioMapping1RxDone},
	} {
		if err := x.writeReg(v.addr, v.value); err != nil {
			return err
		}
	}

	if err := x.SetOpMode(OpModeReceiver); err != nil {
		return err
	}
	x.state = StateRx
	if timeout > 0 {
		x.rxTimeout.Set(timeout)
	}

	x.params.Logger.Debug().
		Dur(`timeout`, timeout).
		Log(`sx127x rx`)

	return nil
}

// Random generates 32 random bits from wideband RSSI noise, leaving the
// transceiver asleep.
func (x *Device) Random() (uint32, error) {
	if err := x.Standby(); err != nil {
		return 0, err
	}
	// all interrupts masked
	if err := x.writeReg(RegIrqFlagsMask, 0xff); err != nil {
		return 0, err
	}
	if err := x.SetOpMode(OpModeReceiver); err != nil {
		return 0, err
	}

	var rnd uint32
	for i := range 32 {
		x.sleep(time.Millisecond)
		v, err := x.readReg(RegRssiWideband)
		if err != nil {
			return 0, err
		}
		rnd |= uint32(v&1) << i
	}

	if err := x.writeReg(RegIrqFlagsMask, 0); err != nil {
		return 0, err
	}
	return rnd, x.Sleep()
}

// ISR signals an interrupt on the given DIO line(s). It is safe to call from
// any goroutine, and never blocks, handling is deferred to the queue's owner.
func (x *Device) ISR(dio DIO) {
	x.irq.Or(uint32(dio))
	x.queue.Post(&x.isr)
}

// isrHandler handles the isr event, on the owner.
type isrHandler Device

func (h *isrHandler) HandleEvent(*eventqueue.Event) {
	x := (*Device)(h)

	dio := DIO(x.irq.Swap(0))

	flags, err := x.readReg(RegIrqFlags)
	if err == nil {
		err = x.writeReg(RegIrqFlags, flags)
	}
	if err != nil {
		x.params.Logger.Err().
			Err(err).
			Log(`sx127x isr failed`)
		return
	}

	x.params.Logger.Debug().
		Uint64(`dio`, uint64(dio)).
		Int(`flags`, int(flags)).
		Log(`sx127x isr`)

	switch {
	case flags&IrqTxDone != 0 && x.state == StateTx:
		x.txTimeout.Clear()
		x.queue.Cancel(&x.txTimeoutEvent)
		x.state = StateIdle
		if err := x.SetOpMode(OpModeStandby); err != nil {
			x.logBusError(err)
		}
		x.emit(EventTxComplete, nil)

	case flags&IrqRxDone != 0 && x.state == StateRx:
		if flags&IrqPayloadCRCError != 0 {
			x.emit(EventCRCError, nil)
			return
		}
		payload, err := x.readPayload()
		if err != nil {
			x.logBusError(err)
			return
		}
		x.rxTimeout.Clear()
		x.queue.Cancel(&x.rxTimeoutEvent)
		x.emit(EventRxComplete, payload)

	case flags&IrqRxTimeout != 0 && x.state == StateRx:
		x.onTimeout(StateRx, EventRxTimeout)

	case flags&IrqCADDone != 0:
		x.emit(EventCADDone, nil)
	}
}

func (x *Device) readPayload() ([]byte, error) {
	n, err := x.readReg(RegRxNbBytes)
	if err != nil {
		return nil, err
	}
	addr, err := x.readReg(RegFifoRxCurrentAddr)
	if err != nil {
		return nil, err
	}
	if err := x.writeReg(RegFifoAddrPtr, addr); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := x.bus.ReadBurst(RegFifo, payload); err != nil {
		return nil, fmt.Errorf(`sx127x: read fifo: %w`, err)
	}
	return payload, nil
}

// onTimeout handles a TX or RX timeout, which is ignored if the state has
// since changed.
func (x *Device) onTimeout(state State, event Event) {
	if x.state != state {
		return
	}
	if err := x.Standby(); err != nil {
		x.logBusError(err)
	}
	x.emit(event, nil)
}

func (x *Device) emit(event Event, payload []byte) {
	x.params.Logger.Debug().
		Str(`event`, event.String()).
		Log(`sx127x event`)
	if x.params.OnEvent != nil {
		x.params.OnEvent(event, payload)
	}
}

func (x *Device) logBusError(err error) {
	x.params.Logger.Err().
		Err(err).
		Log(`sx127x bus error`)
}

func (x *Device) readReg(addr uint8) (uint8, error) {
	v, err := x.bus.ReadReg(addr)
	if err != nil {
		return 0, fmt.Errorf(`sx127x: read reg 0x%02x: %w`, addr, err)
	}
	return v, nil
}

func (x *Device) writeReg(addr, value uint8) error {
	if err := x.bus.WriteReg(addr, value); err != nil {
		return fmt.Errorf(`sx127x: write reg 0x%02x: %w`, addr, err)
	}
	return nil
}
