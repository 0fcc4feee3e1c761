// Package calibration implements the single-pixel calibration primitives
// built on top of codec: generating the payload that lights exactly one
// pixel, computing where that pixel's bit falls within its (address,
// type) queue, and converting between full wire payloads and the compact
// data-byte records the calibration store persists.
package calibration

import (
	"github.com/samber/lo"

	"github.com/voronfis/flipdot/codec"
	"github.com/voronfis/flipdot/geometry"
)

// chunkSize is the number of data bytes following one group header — the
// unit compact records are built from (command_codec.py's CHUNK_SIZE).
const chunkSize = codec.DataBytesPerGroup

// Info describes a single pixel's place in the wire protocol.
type Info struct {
	Type     geometry.PixelType
	Address  byte
	BitIndex int // -1 for Hole or out-of-range coordinates
}

// IsHole reports whether the pixel has no electrical lane.
func (i Info) IsHole() bool { return i.Type == geometry.Hole }

// PixelInfo reports the type, bus address and bit index of the pixel at
// segment-local (segRow, segCol) within segmentName. It returns a zero
// Info with BitIndex -1 for an out-of-range coordinate or a hole pixel —
// calibration ops return empty/zero results on invalid coordinates rather
// than raising (spec §7).
func PixelInfo(m *geometry.Model, segmentName string, segRow, segCol int) Info {
	seg, ok := geometry.SegmentByName(segmentName)
	if !ok {
		return Info{BitIndex: -1}
	}
	if segRow < 0 || segRow >= seg.RowEnd-seg.RowStart || segCol < 0 || segCol >= seg.ColEnd-seg.ColStart {
		return Info{BitIndex: -1}
	}

	t := m.TypeAt(segRow, segCol)
	if t == geometry.Hole {
		return Info{Type: geometry.Hole, BitIndex: -1}
	}

	return Info{
		Type:     t,
		Address:  seg.AddrFor(t),
		BitIndex: BitIndex(m, seg, segRow, segCol),
	}
}

// BitIndex returns the 0-based position at which the pixel at
// (targetSegRow, targetSegCol) appears in its (address, type) queue, by
// walking the segment's scan order and counting cells of the same type
// seen before it. It deliberately uses the encoder's outer=row, inner=col
// order (see spec §9's open question: the source's calculate_bit_index
// scans outer=col, which does not agree with the encoder and is treated
// here as a bug, not a behavior to preserve) so that encode/decode and
// bit-index stay consistent (spec §8 property 7).
func BitIndex(m *geometry.Model, seg geometry.Segment, targetSegRow, targetSegCol int) int {
	targetType := m.TypeAt(targetSegRow, targetSegCol)
	if targetType == geometry.Hole {
		return -1
	}

	counter := 0
	for _, c := range geometry.ScanOrder(seg) {
		segRow, segCol := c.Row-seg.RowStart, c.Col-seg.ColStart
		if segRow == targetSegRow && segCol == targetSegCol {
			return counter
		}
		if m.TypeAt(segRow, segCol) == targetType {
			counter++
		}
	}
	return -1
}

// SinglePixelPayload builds the payload that lights exactly the pixel at
// segment-local (segRow, segCol) within segmentName, leaving every other
// pixel off. It returns a zero Payload and false for a hole pixel or
// out-of-range coordinates. Because one segment's queue never exceeds one
// payload (spec §4.7: ⌈156/40⌉·6 = 24 bytes, i.e. 4 groups, within one
// GroupsPerPayload-sized payload), exactly one payload carries the target
// address.
func SinglePixelPayload(m *geometry.Model, segmentName string, segRow, segCol int) (codec.Payload, bool) {
	seg, ok := geometry.SegmentByName(segmentName)
	if !ok {
		return codec.Payload{}, false
	}
	info := PixelInfo(m, segmentName, segRow, segCol)
	if info.IsHole() || info.BitIndex < 0 {
		return codec.Payload{}, false
	}

	var matrix codec.Matrix
	globalRow := seg.RowStart + segRow
	globalCol := seg.ColStart + segCol
	matrix[globalRow][globalCol] = 1

	queues := codec.MatrixToQueues(m, matrix)
	payloads, err := codec.QueuesToPayloads(queues, codec.Options{})
	if err != nil {
		return codec.Payload{}, false
	}
	for _, p := range payloads {
		if p.Addr == info.Address {
			return p, true
		}
	}
	return codec.Payload{}, false
}

// PayloadFromBitIndex builds the payload for a queue of the given
// (address, type) with only the bit at bitIndex set. The queue is
// allocated at least 160 bits long (4 groups), rounded up to a multiple
// of 40, mirroring generate_command_from_bit_index's sizing.
func PayloadFromBitIndex(address byte, t geometry.PixelType, bitIndex int) (codec.Payload, bool) {
	if bitIndex < 0 {
		return codec.Payload{}, false
	}

	length := bitIndex + 1
	if length < 160 {
		length = 160
	}
	if rem := length % codec.GroupBits; rem != 0 {
		length += codec.GroupBits - rem
	}

	bits := make([]int, length)
	bits[bitIndex] = 1

	queues := codec.Queues{codec.Key{Addr: address, Type: t}: codec.NewBitQueue(bits)}
	payloads, err := codec.QueuesToPayloads(queues, codec.Options{})
	if err != nil {
		return codec.Payload{}, false
	}
	for _, p := range payloads {
		if p.Addr == address {
			return p, true
		}
	}
	return codec.Payload{}, false
}

// BlankPayloads encodes the all-zero matrix, producing one payload per
// (address, type) group the panel's full geometry uses.
func BlankPayloads(m *geometry.Model) []codec.Payload {
	var matrix codec.Matrix
	queues := codec.MatrixToQueues(m, matrix)
	payloads, err := codec.QueuesToPayloads(queues, codec.Options{})
	if err != nil {
		// bitsToGroups zero-pads every chunk to GroupBits before packing, so
		// it always yields DataBytesPerGroup bytes; an error here would
		// indicate a codec invariant violation.
		panic(err)
	}
	return payloads
}

// ExtractDataBytes strips the service bytes (address, group headers) from
// a full wire payload, leaving only the concatenated data bytes — the
// compact form the calibration store persists (command_codec.py's
// extract_data_bytes).
func ExtractDataBytes(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	var data []byte
	idx := 1
	for idx < len(payload) {
		start := idx + 1
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		data = append(data, payload[start:end]...)
		idx += 1 + chunkSize
	}
	return data
}

// BuildFullPayload rebuilds a full wire payload from an address, a fixed
// group header type and compact data bytes, re-chunking into groups of
// chunkSize (zero-padding the last group), mirroring
// command_codec.py's build_full_payload.
func BuildFullPayload(address byte, t geometry.PixelType, data []byte) []byte {
	payload := []byte{address}
	if len(data) == 0 {
		payload = append(payload, byte(t))
		payload = append(payload, make([]byte, chunkSize)...)
		return payload
	}
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		chunk := make([]byte, chunkSize)
		if end > len(data) {
			end = len(data)
		}
		copy(chunk, data[i:end])
		payload = append(payload, byte(t))
		payload = append(payload, chunk...)
	}
	return payload
}

// CompactRecord is a payload reduced to its address, type and compact
// data bytes — command_codec.py's full_to_compact_record.
type CompactRecord struct {
	Address byte
	Type    geometry.PixelType
	Data    []byte
}

// FullToCompactRecord converts a legacy full payload into a CompactRecord.
func FullToCompactRecord(payload []byte) CompactRecord {
	if len(payload) == 0 {
		return CompactRecord{}
	}
	rec := CompactRecord{Address: payload[0]}
	if len(payload) > 1 {
		rec.Type = geometry.PixelType(payload[1])
	}
	rec.Data = ExtractDataBytes(payload)
	return rec
}

// looksLikeFullPayload reports whether payload has the shape of a legacy
// full payload for the given address: its length minus the address byte
// is a multiple of (1 header + chunkSize data) bytes, and its first byte
// matches address when address is known.
func looksLikeFullPayload(payload []byte, address *byte) bool {
	if len(payload) == 0 {
		return false
	}
	if address != nil && payload[0] != *address {
		return false
	}
	return (len(payload)-1)%(1+chunkSize) == 0
}

// LooksLikeFullPayload is the exported form of looksLikeFullPayload, used
// by package store to decide whether a persisted command needs
// normalizing to compact form.
func LooksLikeFullPayload(payload []byte, address *byte) bool {
	return looksLikeFullPayload(payload, address)
}

// FilterNonEmpty drops empty byte slices from a list of compact commands,
// using the same generic filtering idiom as the rest of this package.
func FilterNonEmpty(commands [][]byte) [][]byte {
	return lo.Filter(commands, func(c []byte, _ int) bool { return len(c) > 0 })
}
