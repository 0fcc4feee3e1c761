package bitops_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/voronfis/flipdot/bitops"
)

func TestReverseByteInvolution(t *testing.T) {
	c := qt.New(t)
	for b := 0; b < 256; b++ {
		got := bitops.ReverseByte(bitops.ReverseByte(byte(b)))
		c.Assert(got, qt.Equals, byte(b))
	}
}

func TestReverseByteKnownValues(t *testing.T) {
	c := qt.New(t)
	c.Assert(bitops.ReverseByte(0b00000001), qt.Equals, byte(0b10000000))
	c.Assert(bitops.ReverseByte(0b11110000), qt.Equals, byte(0b00001111))
	c.Assert(bitops.ReverseByte(0x00), qt.Equals, byte(0x00))
	c.Assert(bitops.ReverseByte(0xFF), qt.Equals, byte(0xFF))
}

func TestPackBitsToBytesExactMultiple(t *testing.T) {
	c := qt.New(t)
	bits := []int{1, 0, 0, 0, 0, 0, 0, 0} // MSB-first -> 0x80 before reversal -> reversed 0x01
	out := bitops.PackBitsToBytes(bits)
	c.Assert(out, qt.DeepEquals, []byte{0x01})
}

func TestPackBitsToBytesPadsLastByte(t *testing.T) {
	c := qt.New(t)
	bits := []int{1, 1} // chunk becomes 1,1,0,0,0,0,0,0 -> 0xC0 -> reversed 0x03
	out := bitops.PackBitsToBytes(bits)
	c.Assert(out, qt.DeepEquals, []byte{0x03})
}

func TestPackThenUnpackRoundTrips(t *testing.T) {
	c := qt.New(t)
	bits := []int{1, 0, 1, 1, 0, 0, 1, 0}
	packed := bitops.PackBitsToBytes(bits)
	c.Assert(packed, qt.HasLen, 1)

	got := bitops.UnpackByteToBits(packed[0])
	for i, b := range bits {
		c.Assert(got[i], qt.Equals, b)
	}
}

func TestUnpackByteToBitsKnown(t *testing.T) {
	c := qt.New(t)
	got := bitops.UnpackByteToBits(0x01)
	c.Assert(got, qt.DeepEquals, [8]int{1, 0, 0, 0, 0, 0, 0, 0})
}
