package geometry_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/voronfis/flipdot/geometry"
)

func TestTypeAtAlternatesByRow(t *testing.T) {
	c := qt.New(t)
	m, err := geometry.New(geometry.Config{EnableHole: false})
	c.Assert(err, qt.IsNil)

	c.Assert(m.TypeAt(0, 0), qt.Equals, geometry.T90)
	c.Assert(m.TypeAt(1, 0), qt.Equals, geometry.T10)
	c.Assert(m.TypeAt(11, 5), qt.Equals, geometry.T10)
}

func TestTypeAtLastRowAlternatesByColumn(t *testing.T) {
	c := qt.New(t)
	m, err := geometry.New(geometry.Config{EnableHole: false})
	c.Assert(err, qt.IsNil)

	c.Assert(m.TypeAt(12, 0), qt.Equals, geometry.T90)
	c.Assert(m.TypeAt(12, 1), qt.Equals, geometry.T10)
	c.Assert(m.TypeAt(12, 22), qt.Equals, geometry.T90)
	c.Assert(m.TypeAt(12, 23), qt.Equals, geometry.T10) // hole disabled
}

func TestTypeAtHoleWhenEnabled(t *testing.T) {
	c := qt.New(t)
	m, err := geometry.New(geometry.Config{EnableHole: true})
	c.Assert(err, qt.IsNil)

	c.Assert(m.TypeAt(12, 23), qt.Equals, geometry.Hole)
	c.Assert(m.TypeAt(12, 22), qt.Equals, geometry.T90)
}

func TestScanOrderTopSegment(t *testing.T) {
	c := qt.New(t)
	seg, ok := geometry.SegmentByName("top-left")
	c.Assert(ok, qt.IsTrue)

	order := geometry.ScanOrder(seg)
	c.Assert(order[0], qt.Equals, geometry.Coord{Row: 0, Col: 0})
	c.Assert(order[1], qt.Equals, geometry.Coord{Row: 0, Col: 1})
	c.Assert(order[len(order)-1], qt.Equals, geometry.Coord{Row: 12, Col: 23})
	c.Assert(len(order), qt.Equals, 13*24)
}

func TestScanOrderBottomSegment(t *testing.T) {
	c := qt.New(t)
	seg, ok := geometry.SegmentByName("bottom-right")
	c.Assert(ok, qt.IsTrue)

	order := geometry.ScanOrder(seg)
	c.Assert(order[0], qt.Equals, geometry.Coord{Row: 25, Col: 47})
	c.Assert(order[1], qt.Equals, geometry.Coord{Row: 25, Col: 46})
	c.Assert(order[len(order)-1], qt.Equals, geometry.Coord{Row: 13, Col: 24})
}

func TestSegmentAddresses(t *testing.T) {
	c := qt.New(t)
	tl, _ := geometry.SegmentByName("top-left")
	c.Assert(tl.AddrT90, qt.Equals, byte(0x7))
	c.Assert(tl.AddrT10, qt.Equals, byte(0x3))

	tr, _ := geometry.SegmentByName("top-right")
	c.Assert(tr.AddrT90, qt.Equals, byte(0x8))
	c.Assert(tr.AddrT10, qt.Equals, byte(0x4))

	bl, _ := geometry.SegmentByName("bottom-left")
	c.Assert(bl.AddrT90, qt.Equals, byte(0x6))
	c.Assert(bl.AddrT10, qt.Equals, byte(0x2))

	br, _ := geometry.SegmentByName("bottom-right")
	c.Assert(br.AddrT90, qt.Equals, byte(0x5))
	c.Assert(br.AddrT10, qt.Equals, byte(0x1))
}
