// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package boards provides peripheral descriptor tables for supported boards.
package boards

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownBoard is returned by Lookup for names with no descriptor.
var ErrUnknownBoard = errors.New(`boards: unknown board`)

type (
	// Board is the peripheral configuration of a single board.
	Board struct {
		Name     string `yaml:"name"`
		CPU      string `yaml:"cpu"`
		CPUModel string `yaml:"cpu_model"`
		Clock    Clock  `yaml:"clock"`
		Timers   Timers `yaml:"timers"`
		RTT      int    `yaml:"rtt"`
		RTC      int    `yaml:"rtc"`
		UART     []UART `yaml:"uart"`
		ADC      []ADC  `yaml:"adc"`
		PWM      []PWM  `yaml:"pwm"`
		SPI      []SPI  `yaml:"spi"`
		I2C      []I2C  `yaml:"i2c"`
	}

	// Clock is the clock configuration.
	Clock struct {
		// Core is the core clock frequency, in Hz.
		Core uint32 `yaml:"core"`
		// Bus is the bus clock frequency, in Hz.
		Bus uint32 `yaml:"bus"`
		// MCGMode is the multipurpose clock generator mode, e.g. FEE.
		MCGMode string `yaml:"mcg_mode"`
	}

	// Timers are the counts of each timer type.
	Timers struct {
		PIT   int `yaml:"pit"`
		LPTMR int `yaml:"lptmr"`
	}

	// UART is a UART device and its pins.
	UART struct {
		Dev  string `yaml:"dev"`
		RX   Pin    `yaml:"rx"`
		TX   Pin    `yaml:"tx"`
		ISR  string `yaml:"isr"`
		Mode string `yaml:"mode"`
	}

	// ADC is an ADC line. Internal channels have no pin.
	ADC struct {
		Dev  string `yaml:"dev"`
		Pin  Pin    `yaml:"pin"`
		Chan int    `yaml:"chan"`
		// Diff indicates a differential channel.
		Diff bool `yaml:"diff"`
		// NoAvg disables hardware averaging, which is required by the
		// temperature sensor.
		NoAvg bool `yaml:"no_avg"`
	}

	// PWM is a PWM device and its channels.
	PWM struct {
		Dev      string       `yaml:"dev"`
		Channels []PWMChannel `yaml:"channels"`
	}

	// PWMChannel is a single PWM output.
	PWMChannel struct {
		Pin  Pin `yaml:"pin"`
		Chan int `yaml:"chan"`
	}

	// SPI is an SPI bus, with its chip select lines.
	SPI struct {
		Dev  string `yaml:"dev"`
		MISO Pin    `yaml:"miso"`
		MOSI Pin    `yaml:"mosi"`
		CLK  Pin    `yaml:"clk"`
		CS   []Pin  `yaml:"cs"`
		// ClockSteps are the achievable bus clocks, in Hz, ascending.
		ClockSteps []uint32 `yaml:"clock_steps"`
	}

	// I2C is an I2C bus, with a timing per named speed.
	I2C struct {
		Dev    string               `yaml:"dev"`
		Port   string               `yaml:"port"`
		AF     int                  `yaml:"af"`
		SDA    int                  `yaml:"sda"`
		SCL    int                  `yaml:"scl"`
		Speeds map[string]I2CTiming `yaml:"speeds"`
	}

	// I2CTiming is the I2C frequency divider register configuration.
	I2CTiming struct {
		ICR  uint8 `yaml:"icr"`
		Mult uint8 `yaml:"mult"`
	}

	// Pin is a GPIO pin name, e.g. PTB16.
	Pin string
)

//go:embed boards.yaml
var boardsYAML []byte

var loadBoards = sync.OnceValues(func() (map[string]*Board, error) {
	return decode(boardsYAML)
})

func decode(b []byte) (map[string]*Board, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var list []*Board
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf(`boards: decode: %w`, err)
	}
	boards := make(map[string]*Board, len(list))
	for _, board := range list {
		if board.Name == `` {
			return nil, errors.New(`boards: decode: missing name`)
		}
		if _, ok := boards[board.Name]; ok {
			return nil, fmt.Errorf(`boards: decode: duplicate board %q`, board.Name)
		}
		boards[board.Name] = board
	}
	return boards, nil
}

// Lookup returns the descriptor for the named board, e.g. "frdm-k64f". The
// result must not be modified.
func Lookup(name string) (*Board, error) {
	boards, err := loadBoards()
	if err != nil {
		return nil, err
	}
	if board := boards[name]; board != nil {
		return board, nil
	}
	return nil, fmt.Errorf(`%w: %q`, ErrUnknownBoard, name)
}

// Names returns the names of all boards, sorted.
func Names() ([]string, error) {
	boards, err := loadBoards()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Port returns the port letter, e.g. 'B' for PTB16, or 0 if the pin is
// unset or malformed.
func (x Pin) Port() byte {
	if _, ok := x.Number(); !ok {
		return 0
	}
	return x[2]
}

// Number returns the pin number within its port, e.g. 16 for PTB16.
func (x Pin) Number() (int, bool) {
	if len(x) < 4 || x[:2] != `PT` || x[2] < 'A' || x[2] > 'Z' {
		return 0, false
	}
	n, err := strconv.Atoi(string(x[3:]))
	if err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return n, true
}

// MaxSPIClock returns the highest SPI clock step not exceeding limit, in Hz,
// or false if there is none.
func (x *SPI) MaxSPIClock(limit uint32) (uint32, bool) {
	for i := len(x.ClockSteps) - 1; i >= 0; i-- {
		if x.ClockSteps[i] <= limit {
			return x.ClockSteps[i], true
		}
	}
	return 0, false
}
