// Package ansi reads a 26x48 logical matrix from ANSI-art text, the
// format used to author panel content by hand (spec §6).
package ansi

import (
	"bufio"
	"fmt"
	"io"

	"github.com/voronfis/flipdot/codec"
	"github.com/voronfis/flipdot/geometry"
)

// Warning records a non-fatal deviation from the expected 26x48 shape,
// mirroring the stderr prints of the source's read_ansi_matrix_from_file
// as structured values instead (the core has no notion of stderr).
type Warning struct {
	Line    int // 1-based; 0 for whole-file warnings
	Message string
}

// onPixel is the set of characters that mark a pixel ON.
func onPixel(ch rune) bool {
	return ch == 'X' || ch == 'x' || ch == '█'
}

// ReadMatrix reads all lines from r and builds a Rows x Cols matrix:
//   - 'X', 'x', '█'  -> 1 (on); everything else -> 0 (off)
//   - short lines are right-padded with off pixels; long lines truncated
//   - fewer than Rows lines are padded with all-off rows at the bottom
//   - more than Rows lines: the extras are ignored for the matrix
//
// Every shape deviation produces a Warning rather than failing the read.
func ReadMatrix(r io.Reader) (codec.Matrix, []Warning, error) {
	var matrix codec.Matrix
	var warnings []Warning

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	row := 0
	totalLines := 0
	for scanner.Scan() {
		totalLines++
		lineNo := totalLines
		line := scanner.Text()

		if row >= geometry.Rows {
			continue
		}

		runes := []rune(line)
		if len(runes) < geometry.Cols {
			warnings = append(warnings, Warning{
				Line:    lineNo,
				Message: fmt.Sprintf("line %d has length %d, expected %d (padded with OFF pixels)", lineNo, len(runes), geometry.Cols),
			})
		} else if len(runes) > geometry.Cols {
			warnings = append(warnings, Warning{
				Line:    lineNo,
				Message: fmt.Sprintf("line %d has length %d, expected %d (truncated)", lineNo, len(runes), geometry.Cols),
			})
		}

		for col := 0; col < geometry.Cols; col++ {
			if col < len(runes) && onPixel(runes[col]) {
				matrix[row][col] = 1
			} else {
				matrix[row][col] = 0
			}
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return matrix, warnings, err
	}

	if totalLines < geometry.Rows {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("file has only %d lines, expected %d (missing rows filled with OFF pixels)", totalLines, geometry.Rows),
		})
	} else if totalLines > geometry.Rows {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("file has %d lines, expected %d (extra lines ignored)", totalLines, geometry.Rows),
		})
	}

	// Rows beyond what was read are already zero-valued by Go's zero
	// value for codec.Matrix; nothing further to pad.
	return matrix, warnings, nil
}
