// Package codec converts between the logical 26x48 panel matrix, the
// per-(address, type) bit queues that scan order produces, and the wire
// payloads for the COLUMN_DATA_FLIPDOT command. It is the central module
// of the flipdot core: a pure, synchronous value transformer with no
// shared mutable state (spec §5).
package codec

import (
	"sort"

	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/voronfis/flipdot/bitops"
	"github.com/voronfis/flipdot/geometry"
)

// GroupBits is the size, in bits, of one queue chunk: one group on the
// wire is a header byte plus 5 data bytes, i.e. 40 payload bits.
const GroupBits = 40

// DataBytesPerGroup is the number of data bytes following a group header.
const DataBytesPerGroup = GroupBits / 8

// DefaultGroupsPerPayload is the number of groups packed into one payload
// when Options.GroupsPerPayload is left at zero.
const DefaultGroupsPerPayload = 4

// Matrix is the logical 26x48 bit matrix. Hole cells are always 0.
type Matrix [geometry.Rows][geometry.Cols]int

// TypeMap records, per cell, which pixel type (or Hole) produced it. It is
// a side product of QueuesToMatrix, useful for rendering/diagnostics.
type TypeMap [geometry.Rows][geometry.Cols]geometry.PixelType

// Key identifies one bit queue: a (bus address, pixel type) pair. Spec
// invariant: each segment contributes to exactly two queues, and no queue
// is shared across segments.
type Key struct {
	Addr byte
	Type geometry.PixelType
}

// BitQueue is an ordered, poppable sequence of bits for one Key.
type BitQueue struct {
	bits []int
	head int
}

// NewBitQueue wraps an existing bit sequence (e.g. loaded from calibration
// storage) as a queue ready for popping.
func NewBitQueue(bits []int) *BitQueue {
	return &BitQueue{bits: bits}
}

// Len returns the number of bits not yet popped.
func (q *BitQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.bits) - q.head
}

// PushBack appends a bit to the queue.
func (q *BitQueue) PushBack(bit int) {
	q.bits = append(q.bits, bit)
}

// PopFront removes and returns the first unpopped bit, or 0 if the queue is
// exhausted (spec §4.6: "decoding a queue shorter than the segment's bit
// demand: remaining cells default to 0, not an error").
func (q *BitQueue) PopFront() int {
	if q == nil || q.head >= len(q.bits) {
		return 0
	}
	b := q.bits[q.head]
	q.head++
	return b
}

// Bits returns the unpopped bits, in order, as a fresh slice.
func (q *BitQueue) Bits() []int {
	if q == nil {
		return nil
	}
	out := make([]int, len(q.bits)-q.head)
	copy(out, q.bits[q.head:])
	return out
}

// Queues maps each (address, type) to its bit queue. Queues are
// constructed per encode call and consumed per decode call; there is no
// long-lived mutable state here.
type Queues map[Key]*BitQueue

// getOrCreate returns the queue for key, creating an empty one if absent.
func (q Queues) getOrCreate(key Key) *BitQueue {
	if bq, ok := q[key]; ok {
		return bq
	}
	bq := &BitQueue{}
	q[key] = bq
	return bq
}

// Group is one 40-bit slice of a queue: a header byte identifying the
// pixel type, followed by 5 data bytes.
type Group struct {
	Header byte
	Data   [DataBytesPerGroup]byte
}

// Payload is a single COLUMN_DATA_FLIPDOT body: a bus address followed by
// up to Options.GroupsPerPayload groups.
type Payload struct {
	Addr   byte
	Groups []Group
}

// Bytes renders the payload in its wire form: [addr, header, d0..d4, header, d0..d4, ...].
func (p Payload) Bytes() []byte {
	out := make([]byte, 0, 1+len(p.Groups)*(1+DataBytesPerGroup))
	out = append(out, p.Addr)
	for _, g := range p.Groups {
		out = append(out, g.Header)
		out = append(out, g.Data[:]...)
	}
	return out
}

// Options configures the encode side of the codec. The zero value uses the
// spec's defaults.
type Options struct {
	GroupsPerPayload int
}

func (o Options) groupsPerPayload() int {
	if o.GroupsPerPayload <= 0 {
		return DefaultGroupsPerPayload
	}
	return o.GroupsPerPayload
}

// Fatal error kinds: invariant violations inside the codec itself. These
// are never expected in normal operation and indicate a bug.
var ErrInternal = xerrors.New("codec: internal invariant violation")

// Soft error kinds: corrupt or truncated input. Codec decode functions
// recover from these locally — they stop parsing the current payload and
// keep whatever bits were collected, rather than failing the whole batch
// (spec §7).
var (
	ErrMalformedGroup   = xerrors.New("codec: unknown group header")
	ErrTruncatedPayload = xerrors.New("codec: truncated group at payload boundary")
)

// MatrixToQueues walks each segment's scan order and appends each
// non-Hole cell's bit to the queue keyed by (segment's address for that
// cell's type, type). Hole cells contribute no bit to any queue.
func MatrixToQueues(m *geometry.Model, matrix Matrix) Queues {
	q := make(Queues)
	for _, seg := range m.Segments() {
		for _, c := range geometry.ScanOrder(seg) {
			segRow, segCol := c.Row-seg.RowStart, c.Col-seg.ColStart
			t := m.TypeAt(segRow, segCol)
			if t == geometry.Hole {
				continue
			}
			key := Key{Addr: seg.AddrFor(t), Type: t}
			q.getOrCreate(key).PushBack(matrix[c.Row][c.Col])
		}
	}
	return q
}

// QueuesToMatrix is the inverse of MatrixToQueues: it walks the same scan
// order, popping one bit per non-Hole cell (0 if the queue has run dry)
// and writing it into the matrix. Hole cells are written as 0 and consume
// nothing.
func QueuesToMatrix(m *geometry.Model, q Queues) (Matrix, TypeMap) {
	var matrix Matrix
	var types TypeMap
	for _, seg := range m.Segments() {
		for _, c := range geometry.ScanOrder(seg) {
			segRow, segCol := c.Row-seg.RowStart, c.Col-seg.ColStart
			t := m.TypeAt(segRow, segCol)
			if t == geometry.Hole {
				matrix[c.Row][c.Col] = 0
				types[c.Row][c.Col] = geometry.Hole
				continue
			}
			key := Key{Addr: seg.AddrFor(t), Type: t}
			matrix[c.Row][c.Col] = q.getOrCreate(key).PopFront()
			types[c.Row][c.Col] = t
		}
	}
	return matrix, types
}

// fixedTypeOrder is the order in which types are emitted within one
// address's payload stream: all T90 groups before all T10 groups.
var fixedTypeOrder = [2]geometry.PixelType{geometry.T90, geometry.T10}

// QueuesToPayloads packs queues into payloads. Addresses are visited in
// descending order; within an address, T90 groups precede T10 groups.
// Each queue's bits are split into GroupBits-sized chunks (zero-padded in
// the last chunk), and up to opts.GroupsPerPayload groups are packed per
// payload.
func QueuesToPayloads(q Queues, opts Options) ([]Payload, error) {
	addrs := lo.Uniq(lo.Map(lo.Keys(q), func(k Key, _ int) byte { return k.Addr }))
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] > addrs[j] })

	groupsPerPayload := opts.groupsPerPayload()
	var payloads []Payload

	for _, addr := range addrs {
		var groups []Group
		for _, t := range fixedTypeOrder {
			bq, ok := q[Key{Addr: addr, Type: t}]
			if !ok {
				continue
			}
			gs, err := bitsToGroups(byte(t), bq.Bits())
			if err != nil {
				return nil, err
			}
			groups = append(groups, gs...)
		}
		for i := 0; i < len(groups); i += groupsPerPayload {
			end := i + groupsPerPayload
			if end > len(groups) {
				end = len(groups)
			}
			payloads = append(payloads, Payload{Addr: addr, Groups: append([]Group(nil), groups[i:end]...)})
		}
	}
	return payloads, nil
}

func bitsToGroups(header byte, bits []int) ([]Group, error) {
	var groups []Group
	for i := 0; i < len(bits); i += GroupBits {
		end := i + GroupBits
		if end > len(bits) {
			end = len(bits)
		}
		chunk := bits[i:end]
		if len(chunk) < GroupBits {
			padded := make([]int, GroupBits)
			copy(padded, chunk)
			chunk = padded
		}
		dataBytes := bitops.PackBitsToBytes(chunk)
		if len(dataBytes) != DataBytesPerGroup {
			return nil, xerrors.Errorf("%w: expected %d data bytes, got %d", ErrInternal, DataBytesPerGroup, len(dataBytes))
		}
		var g Group
		g.Header = header
		copy(g.Data[:], dataBytes)
		groups = append(groups, g)
	}
	return groups, nil
}

// ExtendFromPayload parses a raw payload [addr, header, d0..d4, header,
// ...] and appends its bits to q, in place. Parsing stops (without
// failing) at the first unknown header or at a truncated trailing group;
// whatever groups were already accepted remain in q. It reports the soft
// error encountered, if any, for diagnostics — callers are not required to
// treat it as fatal.
func ExtendFromPayload(q Queues, payload []byte) error {
	if len(payload) == 0 {
		return xerrors.Errorf("%w: empty payload", ErrTruncatedPayload)
	}
	addr := payload[0]
	body := payload[1:]
	return extendFromBody(q, addr, body)
}

// ExtendFromFrame parses a legacy 0xA5 frame
// [0x7E, 0xA5, addr, body..., checksum, 0x7E] and appends its bits to q.
func ExtendFromFrame(q Queues, frame []byte) error {
	if len(frame) < 5 || frame[0] != 0x7E || frame[1] != 0xA5 || frame[len(frame)-1] != 0x7E {
		return xerrors.Errorf("%w: malformed frame boundaries", ErrTruncatedPayload)
	}
	addr := frame[2]
	body := frame[3 : len(frame)-2]
	return extendFromBody(q, addr, body)
}

func extendFromBody(q Queues, addr byte, body []byte) error {
	i := 0
	for i+1+DataBytesPerGroup <= len(body) {
		header := body[i]
		if header != byte(geometry.T90) && header != byte(geometry.T10) {
			return ErrMalformedGroup
		}
		dataBytes := body[i+1 : i+1+DataBytesPerGroup]
		key := Key{Addr: addr, Type: geometry.PixelType(header)}
		bq := q.getOrCreate(key)
		for _, b := range dataBytes {
			bits := bitops.UnpackByteToBits(b)
			for _, bit := range bits {
				bq.PushBack(bit)
			}
		}
		i += 1 + DataBytesPerGroup
	}
	if i < len(body) {
		return ErrTruncatedPayload
	}
	return nil
}
