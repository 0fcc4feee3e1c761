// Command flipdot-render converts an ANSI-art matrix file into the wire
// payloads or HDLC frames that drive the panel, without opening a bus —
// a dry-run tool for authoring content and inspecting what would be sent.
// With --dump it instead splits a captured hex-line bus dump into its
// framed and bare-payload lines.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/voronfis/flipdot/ansi"
	"github.com/voronfis/flipdot/codec"
	"github.com/voronfis/flipdot/framecodec"
	"github.com/voronfis/flipdot/geometry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		enableHole bool
		legacy     bool
		asFrames   bool
		dumpMode   bool
		addr       uint8
	)

	root := &cobra.Command{
		Use:   "flipdot-render <file>",
		Short: "Render an ANSI-art matrix, or split a hex-line dump, to wire payloads or frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()

			if dumpMode {
				return runDump(out, f)
			}

			matrix, warnings, err := ansi.ReadMatrix(f)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.Message)
			}

			model, err := geometry.New(geometry.Config{EnableHole: enableHole})
			if err != nil {
				return err
			}

			queues := codec.MatrixToQueues(model, matrix)
			payloads, err := codec.QueuesToPayloads(queues, codec.Options{})
			if err != nil {
				return err
			}

			for _, p := range payloads {
				raw := p.Bytes()
				if asFrames {
					var frame []byte
					if legacy {
						frame = framecodec.WrapLegacy(addr, raw)
					} else {
						frame = framecodec.Wrap(p.Addr, raw)
					}
					fmt.Fprintln(out, hex.EncodeToString(frame))
				} else {
					fmt.Fprintln(out, hex.EncodeToString(raw))
				}
			}
			return nil
		},
	}

	// root.Flags() is a *pflag.FlagSet; typing it explicitly here (rather
	// than chaining off Command) keeps pflag's richer Var API in view for
	// the uint8 bus-address flag below.
	var flags *pflag.FlagSet = root.Flags()
	flags.BoolVar(&enableHole, "enable-hole", false, "treat each segment's last pixel as an unwired hole")
	flags.BoolVar(&asFrames, "frames", false, "wrap each payload in an HDLC frame instead of printing the bare payload")
	flags.BoolVar(&legacy, "legacy-frame", false, "use the legacy 0xA5 frame command instead of the 0xA0|addr form")
	flags.Uint8VarP(&addr, "bus-address", "a", 0x05, "bus address used when --legacy-frame is set")
	flags.BoolVar(&dumpMode, "dump", false, "treat the input as a captured hex-line dump instead of ANSI art, splitting it into frames and bare payloads")

	return root
}

// runDump reads a captured hex-line dump (one comma-separated byte list per
// line) and echoes it back split into its legacy-framed lines and its bare
// payload lines, mirroring parse_dump.py's two-bucket split. It performs no
// reconstruction of the original matrix from the dump.
func runDump(out io.Writer, f *os.File) error {
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	frames, payloads := framecodec.SplitFramesAndPayloads(lines)
	for _, frame := range frames {
		fmt.Fprintf(out, "frame  %s\n", hex.EncodeToString(frame))
	}
	for _, payload := range payloads {
		fmt.Fprintf(out, "payload %s\n", hex.EncodeToString(payload))
	}
	return nil
}
