// Package transport sends codec payloads over a MONO-style serial bus: a
// QUERY/PRE_BITMAP/COLUMN_DATA*/QUERY batching sequence written to a Bus,
// which does its own framing, with a configurable delay between commands
// (spec §6, calibrator backend's Transport).
package transport

import (
	"fmt"
	"time"

	"golang.org/x/xerrors"
)

// Bus command codes, matching lawo.mono_protocol's CMD_* constants as
// imported (with fallback values) by the calibrator backend.
const (
	CmdQuery             = 0x02
	CmdPreBitmapFlipdot  = 0x20
	CmdColumnDataFlipdot = 0x10
)

// Bus is the minimal serial transport a Transport drives. A real
// implementation frames, writes and waits for the bus's own ack/echo
// handling; SimulatedBus below records what would have been sent.
type Bus interface {
	SendCommand(displayAddress byte, command byte, payload []byte) error
}

// ErrNotConnected is returned by SendBatch when no Bus has been attached
// and the Transport is not in simulation mode.
var ErrNotConnected = xerrors.New("transport: not connected")

// Transport sequences payload batches onto a Bus, matching
// Transport.send_payload_batch's QUERY -> PRE_BITMAP -> COLUMN_DATA* ->
// QUERY shape.
type Transport struct {
	Bus             Bus
	Simulation      bool
	DisplayAddress  byte
	PreBitmapWidth  byte
	PreBitmapHeight byte
	CommandDelay    time.Duration

	// Log, when set, receives one line per bus command attempted — the
	// Go analogue of the Python logger.info/debug/error calls.
	Log func(format string, args ...interface{})
}

// New returns a Transport with the calibrator backend's defaults:
// display address 0x05, an 8x4 PRE_BITMAP cell and a 200ms command delay.
func New(bus Bus) *Transport {
	return &Transport{
		Bus:             bus,
		DisplayAddress:  0x05,
		PreBitmapWidth:  0x08,
		PreBitmapHeight: 0x04,
		CommandDelay:    200 * time.Millisecond,
	}
}

func (t *Transport) logf(format string, args ...interface{}) {
	if t.Log != nil {
		t.Log(format, args...)
	}
}

// SendCommand sends a single payload via SendBatch, for callers that have
// just one command (send_command's compatibility wrapper).
func (t *Transport) SendCommand(payload []byte) error {
	return t.SendBatch([][]byte{payload})
}

// SendBatch sends a batch of payloads as one QUERY/PRE_BITMAP/COLUMN_DATA
// sequence, sleeping CommandDelay after every bus command. It returns
// ErrNotConnected if not in simulation and no Bus is attached, and wraps
// the first Bus error encountered.
func (t *Transport) SendBatch(payloads [][]byte) error {
	if len(payloads) == 0 {
		t.logf("transport: no payloads to send")
		return nil
	}

	if t.Simulation {
		t.logSimulatedBatch(payloads)
		return nil
	}
	if t.Bus == nil {
		return ErrNotConnected
	}

	if err := t.sendBusCommand(CmdQuery, nil, "initial QUERY"); err != nil {
		return err
	}
	if err := t.sendBusCommand(CmdPreBitmapFlipdot, []byte{t.PreBitmapWidth, t.PreBitmapHeight}, "PRE_BITMAP"); err != nil {
		return err
	}
	for idx, payload := range payloads {
		label := fmt.Sprintf("COLUMN_DATA[%d]", idx)
		if err := t.sendBusCommand(CmdColumnDataFlipdot, payload, label); err != nil {
			return err
		}
	}
	return t.sendBusCommand(CmdQuery, nil, "final QUERY")
}

func (t *Transport) sendBusCommand(command byte, payload []byte, label string) error {
	if err := t.Bus.SendCommand(t.DisplayAddress&0x0F, command, payload); err != nil {
		t.logf("transport: %s failed: %v", label, err)
		return xerrors.Errorf("transport: %s: %w", label, err)
	}
	t.sleepAfterCommand()
	t.logf("transport: sent %s (cmd=0x%02X, len=%d)", label, command, len(payload))
	return nil
}

func (t *Transport) sleepAfterCommand() {
	if t.CommandDelay > 0 {
		time.Sleep(t.CommandDelay)
	}
}

func (t *Transport) logSimulatedBatch(payloads [][]byte) {
	payloadLogs := ""
	for i, p := range payloads {
		if i > 0 {
			payloadLogs += "; "
		}
		payloadLogs += formatBytes(p)
	}
	t.logf("transport [sim]: QUERY(-) -> PRE_BITMAP(%s) -> COLUMN_DATA_BATCH[%s] -> QUERY(-)",
		formatBytes([]byte{t.PreBitmapWidth, t.PreBitmapHeight}), payloadLogs)
}

func formatBytes(data []byte) string {
	if len(data) == 0 {
		return "-"
	}
	out := ""
	for i, b := range data {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("0x%02X", b)
	}
	return out
}

// RecordedCommand is one SendCommand call captured by SimulatedBus.
type RecordedCommand struct {
	DisplayAddress byte
	Command        byte
	Payload        []byte
}

// SimulatedBus is a Bus that records every command instead of writing to
// a serial port, for tests and for the calibrator's simulation mode when
// driven directly (rather than through Transport.Simulation).
type SimulatedBus struct {
	Commands []RecordedCommand
	Err      error
}

// SendCommand appends the command to Commands, or returns Err if set.
func (b *SimulatedBus) SendCommand(displayAddress, command byte, payload []byte) error {
	if b.Err != nil {
		return b.Err
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.Commands = append(b.Commands, RecordedCommand{displayAddress, command, cp})
	return nil
}
