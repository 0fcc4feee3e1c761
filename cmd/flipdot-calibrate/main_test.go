package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/voronfis/flipdot/geometry"
	"github.com/voronfis/flipdot/store"
	"github.com/voronfis/flipdot/transport"
)

func newTestSession(c *qt.C) *session {
	model, err := geometry.New(geometry.Config{EnableHole: true})
	c.Assert(err, qt.IsNil)
	bus := &transport.SimulatedBus{}
	tr := transport.New(bus)
	tr.Simulation = true
	tr.CommandDelay = 0
	return &session{model: model, tr: tr, mapping: store.NewSegmentMapping("top-left")}
}

func TestLightThenStatusThenSave(t *testing.T) {
	c := qt.New(t)
	s := newTestSession(c)
	savePath := filepath.Join(c.TempDir(), "mapping.json")

	script := "light top-left 0 0\nstatus ok\nsave " + savePath + "\n"
	var out bytes.Buffer
	c.Assert(runREPL(s, strings.NewReader(script), &out), qt.IsNil)

	c.Assert(len(s.mapping.Pixels), qt.Equals, 1)
	c.Assert(s.mapping.Pixels[0].Status, qt.Equals, store.StatusTestedOK)

	loaded, err := store.Load(savePath)
	c.Assert(err, qt.IsNil)
	c.Assert(len(loaded.Pixels), qt.Equals, 1)
}

func TestBlankSendsPayloads(t *testing.T) {
	c := qt.New(t)
	s := newTestSession(c)
	var out bytes.Buffer
	c.Assert(runREPL(s, strings.NewReader("blank\n"), &out), qt.IsNil)
}

func TestUnknownSegmentReportsError(t *testing.T) {
	c := qt.New(t)
	s := newTestSession(c)
	var out bytes.Buffer
	c.Assert(runREPL(s, strings.NewReader("light nowhere 0 0\n"), &out), qt.IsNil)
	c.Assert(strings.Contains(out.String(), "error:"), qt.IsTrue)
}

func TestQuitStopsLoop(t *testing.T) {
	c := qt.New(t)
	s := newTestSession(c)
	var out bytes.Buffer
	c.Assert(runREPL(s, strings.NewReader("quit\nlight top-left 0 0\n"), &out), qt.IsNil)
	c.Assert(len(s.mapping.Pixels), qt.Equals, 0)
}
