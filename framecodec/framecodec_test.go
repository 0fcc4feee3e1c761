package framecodec_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/voronfis/flipdot/framecodec"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	c := qt.New(t)
	payload := []byte{0x07, 0x90, 1, 2, 3, 4, 5}
	frame := framecodec.Wrap(0x05, payload)

	c.Assert(frame[0], qt.Equals, byte(0x7E))
	c.Assert(frame[len(frame)-1], qt.Equals, byte(0x7E))
	c.Assert(frame[1], qt.Equals, byte(0xA5)) // 0xA0 | 0x05

	addr, got, err := framecodec.Unwrap(frame)
	c.Assert(err, qt.IsNil)
	c.Assert(addr, qt.Equals, byte(0x05))
	c.Assert(got, qt.DeepEquals, payload)
}

func TestUnwrapRejectsChecksumMismatch(t *testing.T) {
	c := qt.New(t)
	frame := framecodec.Wrap(0x05, []byte{0x07, 0x90, 1, 2, 3, 4, 5})
	frame[3] ^= 0xFF // corrupt a payload byte without fixing the checksum

	_, _, err := framecodec.Unwrap(frame)
	c.Assert(err, qt.ErrorIs, framecodec.ErrInvalidFrame)
}

func TestUnwrapRejectsMissingDelimiters(t *testing.T) {
	c := qt.New(t)
	_, _, err := framecodec.Unwrap([]byte{0xA5, 0x07, 0x90})
	c.Assert(err, qt.ErrorIs, framecodec.ErrInvalidFrame)
}

func TestWrapLegacyUnwrapLegacyRoundTrip(t *testing.T) {
	c := qt.New(t)
	payload := []byte{0x90, 1, 2, 3, 4, 5}
	frame := framecodec.WrapLegacy(0x07, payload)

	addr, got, err := framecodec.UnwrapLegacy(frame)
	c.Assert(err, qt.IsNil)
	c.Assert(addr, qt.Equals, byte(0x07))
	c.Assert(got, qt.DeepEquals, payload)
}

func TestParseHexLine(t *testing.T) {
	c := qt.New(t)
	c.Assert(framecodec.ParseHexLine("0x7E, 7E, 0x07"), qt.DeepEquals, []byte{0x7E, 0x7E, 0x07})
	c.Assert(framecodec.ParseHexLine("70x7E, 0x07"), qt.IsNil)
	c.Assert(framecodec.ParseHexLine(""), qt.IsNil)
}

func TestSplitFramesAndPayloads(t *testing.T) {
	c := qt.New(t)
	lines := []string{
		"0x7E, 0xA5, 0x07, 0x90, 1, 2, 3, 4, 5, 0x96, 0x7E",
		"0x07, 0x90, 1, 2, 3, 4, 5",
		"",
		"not hex at all",
	}
	frames, payloads := framecodec.SplitFramesAndPayloads(lines)
	c.Assert(len(frames), qt.Equals, 1)
	c.Assert(len(payloads), qt.Equals, 1)
}
