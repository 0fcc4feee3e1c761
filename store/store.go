// Package store persists calibration results to JSON: which pixel maps
// to which (address, type, bit index), the command last generated and
// assigned for it, its tested status, and any remap overrides. This is
// the external collaborator named in spec §6; the core never reads or
// writes it directly.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"

	"github.com/voronfis/flipdot/calibration"
	"github.com/voronfis/flipdot/geometry"
)

// PixelStatus is the operator's confirmation state for one pixel.
type PixelStatus string

const (
	StatusUnknown    PixelStatus = "unknown"
	StatusTestedOK   PixelStatus = "tested_ok"
	StatusTestedFail PixelStatus = "tested_fail"
)

// AlternateCommand overrides the generated command for a pixel with an
// explicitly assigned (address, type, data) triple, optionally recording
// the source pixel it was borrowed from.
type AlternateCommand struct {
	Address   byte   `json:"address"`
	TypeCode  byte   `json:"type_code"`
	Data      []byte `json:"data"`
	SourceRow *int   `json:"source_row,omitempty"`
	SourceCol *int   `json:"source_col,omitempty"`
}

// MarshalJSON writes Data as a JSON array of small integers, matching
// model.py's AlternateCommand.data: List[int] — not the base64 string
// encoding/json would otherwise give a bare []byte field.
func (a AlternateCommand) MarshalJSON() ([]byte, error) {
	type alias AlternateCommand
	return json.Marshal(struct {
		alias
		Data []int `json:"data"`
	}{
		alias: alias(a),
		Data:  bytesToInts(a.Data),
	})
}

// PixelData is one pixel's calibration record.
type PixelData struct {
	Row              int                `json:"row"`
	Col              int                `json:"col"`
	TypeCode         byte               `json:"type_code"`
	Address          byte               `json:"address"`
	BitIndex         int                `json:"bit_index"`
	GeneratedCommand []byte             `json:"generated_command"`
	AssignedCommand  []byte             `json:"assigned_command"`
	Status           PixelStatus        `json:"status"`
	LastTestedAt     *string            `json:"last_tested_at,omitempty"`
	Notes            string             `json:"notes"`
	RemapCommands    []AlternateCommand `json:"remap_commands"`
	RemapActive      bool               `json:"remap_active"`
}

// MarshalJSON writes GeneratedCommand/AssignedCommand as JSON arrays of
// small integers, matching model.py's PixelData.generated_command /
// assigned_command: List[int] — not the base64 string encoding/json would
// otherwise give a bare []byte field.
func (p PixelData) MarshalJSON() ([]byte, error) {
	type alias PixelData
	return json.Marshal(struct {
		alias
		GeneratedCommand []int `json:"generated_command"`
		AssignedCommand  []int `json:"assigned_command"`
	}{
		alias:            alias(p),
		GeneratedCommand: bytesToInts(p.GeneratedCommand),
		AssignedCommand:  bytesToInts(p.AssignedCommand),
	})
}

// SegmentMapping is the full calibration record for one segment.
type SegmentMapping struct {
	Version     int         `json:"version"`
	SegmentName string      `json:"segment_name"`
	CreatedAt   string      `json:"created_at"`
	Pixels      []PixelData `json:"pixels"`
}

// NewSegmentMapping creates an empty mapping stamped with the current
// time, matching model.py's SegmentMapping default factory.
func NewSegmentMapping(segmentName string) SegmentMapping {
	return SegmentMapping{
		Version:     1,
		SegmentName: segmentName,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}
}

// rawPixel mirrors the on-disk shape loosely: commands and remap entries
// may arrive as either compact or legacy-full encodings, so they are
// decoded into json.RawMessage first and normalized before converting to
// PixelData.
type rawMapping struct {
	Version     int               `json:"version"`
	SegmentName string            `json:"segment_name"`
	CreatedAt   string            `json:"created_at"`
	Pixels      []json.RawMessage `json:"pixels"`
}

type rawPixel struct {
	Row              int             `json:"row"`
	Col              int             `json:"col"`
	TypeCode         byte            `json:"type_code"`
	Address          byte            `json:"address"`
	BitIndex         int             `json:"bit_index"`
	GeneratedCommand json.RawMessage `json:"generated_command"`
	AssignedCommand  json.RawMessage `json:"assigned_command"`
	Status           PixelStatus     `json:"status"`
	LastTestedAt     *string         `json:"last_tested_at"`
	Notes            string          `json:"notes"`
	RemapCommands    json.RawMessage `json:"remap_commands"`
	RemapActive      bool            `json:"remap_active"`
}

// Load reads a SegmentMapping from path, normalizing legacy
// full-payload-encoded commands into the compact data-byte form
// (persistence.py's _normalize_mapping_payloads / _looks_like_full).
func Load(path string) (SegmentMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SegmentMapping{}, err
	}

	var rm rawMapping
	if err := json.Unmarshal(raw, &rm); err != nil {
		return SegmentMapping{}, fmt.Errorf("store: parsing %s: %w", path, err)
	}

	out := SegmentMapping{
		Version:     rm.Version,
		SegmentName: rm.SegmentName,
		CreatedAt:   rm.CreatedAt,
	}

	for _, rawPix := range rm.Pixels {
		var rp rawPixel
		if err := json.Unmarshal(rawPix, &rp); err != nil {
			return SegmentMapping{}, fmt.Errorf("store: parsing pixel record: %w", err)
		}
		out.Pixels = append(out.Pixels, normalizePixel(rp))
	}
	return out, nil
}

// Save writes mapping to path as indented JSON.
func Save(path string, mapping SegmentMapping) error {
	raw, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func normalizePixel(rp rawPixel) PixelData {
	addr := rp.Address
	pd := PixelData{
		Row:          rp.Row,
		Col:          rp.Col,
		TypeCode:     rp.TypeCode,
		Address:      rp.Address,
		BitIndex:     rp.BitIndex,
		Status:       rp.Status,
		LastTestedAt: rp.LastTestedAt,
		Notes:        rp.Notes,
		RemapActive:  rp.RemapActive,
	}
	if pd.Status == "" {
		pd.Status = StatusUnknown
	}

	pd.GeneratedCommand = normalizeCommandField(rp.GeneratedCommand, &addr)
	pd.AssignedCommand = normalizeCommandField(rp.AssignedCommand, &addr)
	pd.RemapCommands = normalizeRemapCommands(rp.RemapCommands)
	return pd
}

// normalizeCommandField accepts either a compact []byte array or a legacy
// full-payload []int array (old persisted data), and returns the compact
// form.
func normalizeCommandField(raw json.RawMessage, address *byte) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil
	}
	payload := intsToBytes(ints)
	if calibration.LooksLikeFullPayload(payload, address) {
		return calibration.ExtractDataBytes(payload)
	}
	return payload
}

func normalizeRemapCommands(raw json.RawMessage) []AlternateCommand {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	// Try the modern shape first: a list of {address,type_code,data,...}.
	var modern []AlternateCommand
	if err := json.Unmarshal(raw, &modern); err == nil && looksLikeModernRemaps(raw) {
		return lo.Filter(modern, func(a AlternateCommand, _ int) bool { return len(a.Data) > 0 })
	}

	// Fall back to the legacy shape: a list of full payload byte arrays.
	var legacy [][]int
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil
	}
	var payloads [][]byte
	for _, ints := range legacy {
		payloads = append(payloads, intsToBytes(ints))
	}

	var out []AlternateCommand
	for _, payload := range calibration.FilterNonEmpty(payloads) {
		rec := calibration.FullToCompactRecord(payload)
		if rec.Data == nil && rec.Address == 0 && rec.Type == 0 {
			continue
		}
		out = append(out, AlternateCommand{
			Address:  rec.Address,
			TypeCode: byte(rec.Type),
			Data:     rec.Data,
		})
	}
	return out
}

// looksLikeModernRemaps does a cheap structural check (does every element
// decode as an object with a "data" key) before trusting the modern
// unmarshal, mirroring persistence.py's isinstance(item, dict) branch.
func looksLikeModernRemaps(raw json.RawMessage) bool {
	var generic []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return false
	}
	for _, item := range generic {
		if _, ok := item["data"]; !ok {
			return false
		}
	}
	return true
}

func intsToBytes(ints []int) []byte {
	out := make([]byte, len(ints))
	for i, v := range ints {
		out[i] = byte(v)
	}
	return out
}

// bytesToInts is intsToBytes' inverse, used by MarshalJSON to emit the
// [u8]-shaped arrays the on-disk schema expects. It always returns a
// non-nil slice so an empty command marshals as [] rather than null,
// matching pydantic's default_factory=list.
func bytesToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

// TypeOf converts a persisted type_code byte back to a geometry.PixelType
// for callers that want to re-encode a pixel's command.
func TypeOf(code byte) geometry.PixelType {
	return geometry.PixelType(code)
}
