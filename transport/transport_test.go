package transport_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/voronfis/flipdot/transport"
)

func TestSendBatchSequence(t *testing.T) {
	c := qt.New(t)
	bus := &transport.SimulatedBus{}
	tr := transport.New(bus)
	tr.CommandDelay = 0

	err := tr.SendBatch([][]byte{{0x01, 0x02}, {0x03, 0x04}})
	c.Assert(err, qt.IsNil)

	c.Assert(len(bus.Commands), qt.Equals, 5)
	c.Assert(bus.Commands[0].Command, qt.Equals, byte(transport.CmdQuery))
	c.Assert(bus.Commands[1].Command, qt.Equals, byte(transport.CmdPreBitmapFlipdot))
	c.Assert(bus.Commands[1].Payload, qt.DeepEquals, []byte{0x08, 0x04})
	c.Assert(bus.Commands[2].Command, qt.Equals, byte(transport.CmdColumnDataFlipdot))
	c.Assert(bus.Commands[2].Payload, qt.DeepEquals, []byte{0x01, 0x02})
	c.Assert(bus.Commands[3].Command, qt.Equals, byte(transport.CmdColumnDataFlipdot))
	c.Assert(bus.Commands[3].Payload, qt.DeepEquals, []byte{0x03, 0x04})

	for _, cmd := range bus.Commands {
		c.Assert(cmd.DisplayAddress, qt.Equals, byte(0x05))
	}
}

func TestSendBatchEmptyIsNoop(t *testing.T) {
	c := qt.New(t)
	bus := &transport.SimulatedBus{}
	tr := transport.New(bus)
	c.Assert(tr.SendBatch(nil), qt.IsNil)
	c.Assert(len(bus.Commands), qt.Equals, 0)
}

func TestSendBatchNotConnected(t *testing.T) {
	c := qt.New(t)
	tr := transport.New(nil)
	tr.CommandDelay = 0
	err := tr.SendBatch([][]byte{{0x01}})
	c.Assert(err, qt.Equals, transport.ErrNotConnected)
}

func TestSendBatchSimulationSkipsBus(t *testing.T) {
	c := qt.New(t)
	tr := transport.New(nil)
	tr.Simulation = true
	var logged string
	tr.Log = func(format string, args ...interface{}) {
		logged = format
		_ = args
	}
	err := tr.SendBatch([][]byte{{0x01}})
	c.Assert(err, qt.IsNil)
	c.Assert(logged != "", qt.IsTrue)
}

func TestSendBatchStopsOnBusError(t *testing.T) {
	c := qt.New(t)
	bus := &transport.SimulatedBus{Err: errBoom{}}
	tr := transport.New(bus)
	tr.CommandDelay = 0
	err := tr.SendBatch([][]byte{{0x01}})
	c.Assert(err, qt.ErrorIs, errBoom{})
}

func TestSendCommandWrapsSingle(t *testing.T) {
	c := qt.New(t)
	bus := &transport.SimulatedBus{}
	tr := transport.New(bus)
	tr.CommandDelay = 0
	c.Assert(tr.SendCommand([]byte{0xAA}), qt.IsNil)
	c.Assert(len(bus.Commands), qt.Equals, 4)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestCommandDelayElapses(t *testing.T) {
	c := qt.New(t)
	bus := &transport.SimulatedBus{}
	tr := transport.New(bus)
	tr.CommandDelay = 5 * time.Millisecond
	start := time.Now()
	c.Assert(tr.SendCommand([]byte{0x01}), qt.IsNil)
	c.Assert(time.Since(start) >= 10*time.Millisecond, qt.IsTrue)
}
