// Command flipdot-calibrate is an interactive line-oriented replacement
// for the original Qt calibration GUI: an operator lights one pixel at a
// time, confirms or remaps it, and the result is persisted to a
// per-segment calibration_store mapping file.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/voronfis/flipdot/calibration"
	"github.com/voronfis/flipdot/geometry"
	"github.com/voronfis/flipdot/store"
	"github.com/voronfis/flipdot/transport"
)

// session holds the REPL's live state across commands.
type session struct {
	model   *geometry.Model
	tr      *transport.Transport
	mapping store.SegmentMapping
	path    string
	lastSeg string
	lastRow int
	lastCol int
}

func main() {
	model, err := geometry.New(geometry.Config{EnableHole: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bus := &transport.SimulatedBus{}
	tr := transport.New(bus)
	tr.Simulation = true
	tr.CommandDelay = 0

	s := &session{
		model:   model,
		tr:      tr,
		mapping: store.NewSegmentMapping(""),
	}

	if err := runREPL(s, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runREPL(s *session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "flipdot-calibrate ready; type 'help' for commands")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0] == "quit" || tokens[0] == "exit" {
			return nil
		}

		cmd := newSessionCmd(s, out)
		cmd.SetArgs(tokens)
		cmd.SetOut(out)
		cmd.SetErr(out)
		if err := cmd.Execute(); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func newSessionCmd(s *session, out io.Writer) *cobra.Command {
	root := &cobra.Command{Use: "flipdot-calibrate", SilenceUsage: true}

	lightCmd := &cobra.Command{
		Use:   "light <segment> <row> <col>",
		Short: "Light a single pixel and send its payload",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.light(cmd.OutOrStdout(), args[0], args[1], args[2])
		},
	}

	blankCmd := &cobra.Command{
		Use:   "blank",
		Short: "Send the all-zero payloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads := calibration.BlankPayloads(s.model)
			raw := make([][]byte, len(payloads))
			for i, p := range payloads {
				raw[i] = p.Bytes()
			}
			return s.tr.SendBatch(raw)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Mark the last lit pixel tested ok/fail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.setStatus(args[0])
		},
	}

	saveCmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Persist the calibration mapping as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s.path = args[0]
			return store.Save(s.path, s.mapping)
		},
	}

	loadCmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Load a previously saved calibration mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := store.Load(args[0])
			if err != nil {
				return err
			}
			s.mapping = m
			s.path = args[0]
			return nil
		},
	}

	helpCmd := &cobra.Command{
		Use:   "help",
		Short: "List commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(out, "commands: light, blank, status, save, load, quit")
			return nil
		},
	}

	root.AddCommand(lightCmd, blankCmd, statusCmd, saveCmd, loadCmd, helpCmd)
	return root
}

func (s *session) light(out io.Writer, segName, rowArg, colArg string) error {
	row, err := parseIndex(rowArg)
	if err != nil {
		return err
	}
	col, err := parseIndex(colArg)
	if err != nil {
		return err
	}

	info := calibration.PixelInfo(s.model, segName, row, col)
	// PixelInfo returns a zero Info (whose Type equals Hole) for an unknown
	// segment or out-of-range coordinate, so rule those out first.
	seg, ok := geometry.SegmentByName(segName)
	if !ok || row < 0 || row >= seg.RowEnd-seg.RowStart || col < 0 || col >= seg.ColEnd-seg.ColStart {
		return fmt.Errorf("no such pixel: %s (%d,%d)", segName, row, col)
	}
	if info.IsHole() {
		fmt.Fprintln(out, "pixel is a hole; nothing to send")
		return nil
	}
	if info.BitIndex < 0 {
		return fmt.Errorf("no such pixel: %s (%d,%d)", segName, row, col)
	}

	payload, ok := calibration.SinglePixelPayload(s.model, segName, row, col)
	if !ok {
		return fmt.Errorf("could not build payload for %s (%d,%d)", segName, row, col)
	}
	if err := s.tr.SendCommand(payload.Bytes()); err != nil {
		return err
	}

	s.lastSeg, s.lastRow, s.lastCol = segName, row, col
	s.mapping.Pixels = append(s.mapping.Pixels, store.PixelData{
		Row:              row,
		Col:              col,
		TypeCode:         byte(info.Type),
		Address:          info.Address,
		BitIndex:         info.BitIndex,
		GeneratedCommand: payload.Bytes(),
		Status:           store.StatusUnknown,
	})
	fmt.Fprintf(out, "lit %s (%d,%d): addr=0x%02X type=0x%02X bit=%d\n", segName, row, col, info.Address, byte(info.Type), info.BitIndex)
	return nil
}

func (s *session) setStatus(raw string) error {
	if len(s.mapping.Pixels) == 0 {
		return fmt.Errorf("no pixel has been lit yet")
	}
	var status store.PixelStatus
	switch raw {
	case "ok":
		status = store.StatusTestedOK
	case "fail":
		status = store.StatusTestedFail
	default:
		return fmt.Errorf("unknown status %q (want ok or fail)", raw)
	}
	s.mapping.Pixels[len(s.mapping.Pixels)-1].Status = status
	return nil
}

func parseIndex(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}
