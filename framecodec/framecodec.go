// Package framecodec wraps and unwraps the HDLC-ish 0x7E-delimited framing
// around a COLUMN_DATA_FLIPDOT payload, and splits raw hex-dump input into
// frames vs bare payload lines. It is a stateless collaborator: the wire
// framing is specified only by its interface to the codec core (spec §6).
package framecodec

import (
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// FrameDelimiter marks the start and end of every frame.
const FrameDelimiter = 0x7E

// LegacyCommand is the command byte used by legacy 0xA5 frames, as
// produced by the dump/CSV capture tooling.
const LegacyCommand = 0xA5

// ErrInvalidFrame reports missing/mismatched HDLC boundaries. Per spec
// §7, an invalid frame is discarded and the batch continues.
var ErrInvalidFrame = xerrors.New("framecodec: invalid frame")

// Wrap builds a new-style single-display frame:
// [0x7E, 0xA0|displayAddr, payload..., checksum, 0x7E]
// where checksum is the XOR of the command byte and every payload byte.
func Wrap(displayAddr byte, payload []byte) []byte {
	command := 0xA0 | (displayAddr & 0x0F)
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, FrameDelimiter, command)
	frame = append(frame, payload...)

	checksum := command
	for _, b := range payload {
		checksum ^= b
	}
	frame = append(frame, checksum, FrameDelimiter)
	return frame
}

// Unwrap parses a new-style frame, validating both delimiters and the
// checksum, and returns the display address and the payload it carries.
func Unwrap(frame []byte) (displayAddr byte, payload []byte, err error) {
	if len(frame) < 4 || frame[0] != FrameDelimiter || frame[len(frame)-1] != FrameDelimiter {
		return 0, nil, xerrors.Errorf("%w: missing delimiters", ErrInvalidFrame)
	}
	command := frame[1]
	body := frame[2 : len(frame)-2]
	checksum := frame[len(frame)-2]

	want := command
	for _, b := range body {
		want ^= b
	}
	if want != checksum {
		return 0, nil, xerrors.Errorf("%w: checksum mismatch", ErrInvalidFrame)
	}
	return command & 0x0F, append([]byte(nil), body...), nil
}

// WrapLegacy builds a legacy 0xA5 frame as produced by the dump/CSV
// capture format: [0x7E, 0xA5, addr, payload..., checksum, 0x7E]. Here
// addr is the payload's bus address (0x1..0x8), not a display address.
func WrapLegacy(addr byte, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+5)
	frame = append(frame, FrameDelimiter, LegacyCommand, addr)
	frame = append(frame, payload...)

	checksum := byte(LegacyCommand) ^ addr
	for _, b := range payload {
		checksum ^= b
	}
	frame = append(frame, checksum, FrameDelimiter)
	return frame
}

// UnwrapLegacy parses a legacy 0xA5 frame and returns its bus address and
// payload.
func UnwrapLegacy(frame []byte) (addr byte, payload []byte, err error) {
	if len(frame) < 5 || frame[0] != FrameDelimiter || frame[1] != LegacyCommand || frame[len(frame)-1] != FrameDelimiter {
		return 0, nil, xerrors.Errorf("%w: missing delimiters or wrong command", ErrInvalidFrame)
	}
	addr = frame[2]
	body := frame[3 : len(frame)-2]
	checksum := frame[len(frame)-2]

	want := byte(LegacyCommand) ^ addr
	for _, b := range body {
		want ^= b
	}
	if want != checksum {
		return 0, nil, xerrors.Errorf("%w: checksum mismatch", ErrInvalidFrame)
	}
	return addr, append([]byte(nil), body...), nil
}

// ParseHexLine parses a single comma-separated line of hex byte tokens
// ("0x7E", "7E", "7e", ...) into a byte slice. A malformed token discards
// the whole line, returning nil — mirroring the source's
// parse_hex_line, which skips lines it cannot fully parse rather than
// partially decoding them.
func ParseHexLine(line string) []byte {
	var out []byte
	for _, tok := range strings.Split(line, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if len(tok) >= 2 && (tok[:2] == "0x" || tok[:2] == "0X") {
			tok = tok[2:]
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil
		}
		out = append(out, byte(v))
	}
	return out
}

// SplitFramesAndPayloads classifies each non-empty, successfully-parsed
// line as either a full legacy frame ([0x7E, 0xA5, addr, ..., checksum,
// 0x7E]) or a bare payload line ([addr, header, d0..d4, ...]).
func SplitFramesAndPayloads(lines []string) (frames, payloads [][]byte) {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		b := ParseHexLine(line)
		if len(b) < 2 {
			continue
		}
		if b[0] == FrameDelimiter && b[len(b)-1] == FrameDelimiter && len(b) >= 5 && b[1] == LegacyCommand {
			frames = append(frames, b)
		} else {
			payloads = append(payloads, b)
		}
	}
	return frames, payloads
}
