// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package sx127x

// LoRa mode register map, shared by the SX1272 and SX1276.
const (
	RegFifo              uint8 = 0x00
	RegOpMode            uint8 = 0x01
	RegFifoAddrPtr       uint8 = 0x0d
	RegFifoTxBaseAddr    uint8 = 0x0e
	RegFifoRxBaseAddr    uint8 = 0x0f
	RegFifoRxCurrentAddr uint8 = 0x10
	RegIrqFlagsMask      uint8 = 0x11
	RegIrqFlags          uint8 = 0x12
	RegRxNbBytes         uint8 = 0x13
	RegPayloadLength     uint8 = 0x22
	RegRssiWideband      uint8 = 0x2c
	RegDioMapping1       uint8 = 0x40
	RegVersion           uint8 = 0x42
)

// RegOpMode fields.
const (
	OpModeLongRange uint8 = 0x80
	OpModeMask      uint8 = 0x07

	OpModeSleep        uint8 = 0x00
	OpModeStandby      uint8 = 0x01
	OpModeTransmitter  uint8 = 0x03
	OpModeReceiver     uint8 = 0x05
	OpModeReceiverOnce uint8 = 0x06
	OpModeCAD          uint8 = 0x07
)

// RegIrqFlags and RegIrqFlagsMask bits. Flags are cleared by writing 1.
const (
	IrqRxTimeout          uint8 = 0x80
	IrqRxDone             uint8 = 0x40
	IrqPayloadCRCError    uint8 = 0x20
	IrqValidHeader        uint8 = 0x10
	IrqTxDone             uint8 = 0x08
	IrqCADDone            uint8 = 0x04
	IrqFHSSChangedChannel uint8 = 0x02
	IrqCADDetected        uint8 = 0x01
)

// RegDioMapping1 values, DIO0 is bits 7-6.
const (
	DioMapping1RxDone uint8 = 0x00
	DioMapping1TxDone uint8 = 0x40
)

// RegVersion values.
const (
	VersionSX1276 uint8 = 0x12
	VersionSX1272 uint8 = 0x22
)

const (
	maxPayloadLength = 0xff
)
