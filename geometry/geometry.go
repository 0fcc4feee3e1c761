// Package geometry models the physical layout of a 26x48 flip-dot panel:
// four 13x24 segments, each wired to two bus addresses, with a pixel type
// (T90/T10) alternating across rows (or, on the segment's last row, across
// columns) and an optional "hole" pixel that is physically absent.
package geometry

import "golang.org/x/xerrors"

// Rows and Cols are the panel's logical dimensions. They are compile-time
// constants: the geometry is fixed hardware, never discovered at runtime.
const (
	Rows = 26
	Cols = 48
)

// segRows and segCols are the dimensions of a single segment.
const (
	segRows = 13
	segCols = 24
)

// holeRow and holeCol are the segment-local coordinates of the hole pixel,
// when enabled.
const (
	holeRow = 12
	holeCol = 23
)

// PixelType identifies the electrical lane a pixel belongs to, or marks it
// as a hole that consumes neither a bit nor a wire slot.
type PixelType uint8

const (
	// T90 is the pixel type sent under header byte 0x90.
	T90 PixelType = 0x90
	// T10 is the pixel type sent under header byte 0x10.
	T10 PixelType = 0x10
	// Hole marks a segment-local cell with no electrical lane.
	Hole PixelType = 0x00
)

func (t PixelType) String() string {
	switch t {
	case T90:
		return "T90"
	case T10:
		return "T10"
	case Hole:
		return "HOLE"
	default:
		return "unknown"
	}
}

// Segment is one of the four fixed 13x24 physical regions of the panel.
// RowEnd and ColEnd are exclusive.
type Segment struct {
	Name              string
	RowStart, RowEnd  int
	ColStart, ColEnd  int
	AddrT90, AddrT10  byte
}

// IsTop reports whether the segment is one of the two top segments, which
// scan top-to-bottom/left-to-right. Bottom segments scan the reverse way.
func (s Segment) IsTop() bool { return s.RowStart == 0 }

// AddrFor returns the bus address this segment routes the given type to.
// It panics on Hole, which has no address; callers must check TypeAt first.
func (s Segment) AddrFor(t PixelType) byte {
	switch t {
	case T90:
		return s.AddrT90
	case T10:
		return s.AddrT10
	default:
		panic("geometry: AddrFor called with a non-wire pixel type")
	}
}

// segments is the fixed segment table. Row/col ranges and bus addresses are
// the panel's wiring; they never change at runtime.
var segments = [4]Segment{
	{Name: "top-left", RowStart: 0, RowEnd: segRows, ColStart: 0, ColEnd: segCols, AddrT90: 0x7, AddrT10: 0x3},
	{Name: "top-right", RowStart: 0, RowEnd: segRows, ColStart: segCols, ColEnd: 2 * segCols, AddrT90: 0x8, AddrT10: 0x4},
	{Name: "bottom-left", RowStart: segRows, RowEnd: 2 * segRows, ColStart: 0, ColEnd: segCols, AddrT90: 0x6, AddrT10: 0x2},
	{Name: "bottom-right", RowStart: segRows, RowEnd: 2 * segRows, ColStart: segCols, ColEnd: 2 * segCols, AddrT90: 0x5, AddrT10: 0x1},
}

// ErrConfiguration reports an inconsistent segment table, detected once at
// construction rather than on every lookup.
var ErrConfiguration = xerrors.New("geometry: inconsistent segment table")

// Config carries the one runtime knob the geometry model exposes: whether
// the hole pixel is present. The source ships with it disabled; both modes
// are supported as a configuration, not a fork (spec §9).
type Config struct {
	EnableHole bool
}

// Model is a validated, immutable view of the panel geometry for a given
// Config. Construct it once with New and share it; it holds no mutable
// state.
type Model struct {
	cfg Config
}

// New validates the fixed segment table against Rows/Cols and returns a
// Model. The table is a compile-time constant, so this can only fail if the
// constants above are edited inconsistently — but the check is kept because
// spec §7 requires ConfigurationError to be detected at construction, not
// discovered later as a silently wrong encode.
func New(cfg Config) (*Model, error) {
	if err := validateSegments(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

func validateSegments() error {
	seenRows, seenCols := 0, 0
	for _, s := range segments {
		if s.RowEnd-s.RowStart != segRows || s.ColEnd-s.ColStart != segCols {
			return xerrors.Errorf("%w: segment %q has wrong dimensions", ErrConfiguration, s.Name)
		}
		if s.RowStart < 0 || s.RowEnd > Rows || s.ColStart < 0 || s.ColEnd > Cols {
			return xerrors.Errorf("%w: segment %q out of panel bounds", ErrConfiguration, s.Name)
		}
		if s.AddrT90 == s.AddrT10 {
			return xerrors.Errorf("%w: segment %q reuses one address for both types", ErrConfiguration, s.Name)
		}
	}
	for _, s := range segments {
		if s.IsTop() {
			seenRows += s.RowEnd - s.RowStart
		}
	}
	if seenRows != Rows {
		return xerrors.Errorf("%w: top segments do not cover all %d rows", ErrConfiguration, Rows)
	}
	for _, s := range segments[:2] {
		seenCols += s.ColEnd - s.ColStart
	}
	if seenCols != Cols {
		return xerrors.Errorf("%w: segments do not cover all %d columns", ErrConfiguration, Cols)
	}
	return nil
}

// Segments returns the fixed segment table.
func (m *Model) Segments() []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments[:])
	return out
}

// TypeAt returns the pixel type for segment-local coordinates (segRow,
// segCol). segRow is 0..12, segCol is 0..23.
//
// Rules:
//   - if the hole is enabled and (segRow, segCol) == (12, 23): Hole.
//   - if segRow < 12: T90 on even rows, T10 on odd rows.
//   - else (segRow == 12): T90 on even columns, T10 on odd columns.
func (m *Model) TypeAt(segRow, segCol int) PixelType {
	if m.cfg.EnableHole && segRow == holeRow && segCol == holeCol {
		return Hole
	}
	if segRow < holeRow {
		if segRow%2 == 0 {
			return T90
		}
		return T10
	}
	if segCol%2 == 0 {
		return T90
	}
	return T10
}

// Coord is a single (row, col) cell in global panel coordinates.
type Coord struct {
	Row, Col int
}

// ScanOrder returns the segment's cells in encode/decode scan order: top
// segments row-ascending/col-ascending from the top-left corner, bottom
// segments row-descending/col-descending from the bottom-right corner.
// Outer loop is always rows, inner loop is always columns (spec §4.1,
// §9 "scan outer/inner axis" — this order is normative and MUST be used
// identically by encode and decode so they remain exact inverses).
func ScanOrder(s Segment) []Coord {
	out := make([]Coord, 0, (s.RowEnd-s.RowStart)*(s.ColEnd-s.ColStart))
	if s.IsTop() {
		for row := s.RowStart; row < s.RowEnd; row++ {
			for col := s.ColStart; col < s.ColEnd; col++ {
				out = append(out, Coord{Row: row, Col: col})
			}
		}
		return out
	}
	for row := s.RowEnd - 1; row >= s.RowStart; row-- {
		for col := s.ColEnd - 1; col >= s.ColStart; col-- {
			out = append(out, Coord{Row: row, Col: col})
		}
	}
	return out
}

// SegmentByName looks up a segment by its name ("top-left", "top-right",
// "bottom-left", "bottom-right").
func SegmentByName(name string) (Segment, bool) {
	for _, s := range segments {
		if s.Name == name {
			return s, true
		}
	}
	return Segment{}, false
}
