// Command flipdot-embed-relay is a minimal process that reads
// newline-delimited hex payloads from stdin (as produced by
// flipdot-render) and republishes each one over MQTT using the
// low-level embedded client, standing in for the microcontroller-class
// relay described in the teacher's tinygo-drivers lineage.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voronfis/flipdot/mqttrelay"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		broker   string
		topic    string
		clientID string
	)

	root := &cobra.Command{
		Use:   "flipdot-embed-relay",
		Short: "Relay hex payloads from stdin to an MQTT broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.Dial("tcp", broker)
			if err != nil {
				return fmt.Errorf("flipdot-embed-relay: dial %s: %w", broker, err)
			}
			defer conn.Close()

			relay := mqttrelay.NewEmbeddedRelay(conn, topic)
			ctx := context.Background()
			if err := relay.Connect(ctx, clientID); err != nil {
				return err
			}
			defer relay.Disconnect(ctx)

			return relayPayloads(ctx, cmd.InOrStdin(), relay)
		},
	}

	root.Flags().StringVar(&broker, "broker", "127.0.0.1:1883", "MQTT broker host:port")
	root.Flags().StringVar(&topic, "topic", "flipdot/payloads", "MQTT topic to publish to")
	root.Flags().StringVar(&clientID, "client-id", "flipdot-embed-relay", "MQTT client identifier")

	return root
}

func relayPayloads(ctx context.Context, in io.Reader, relay *mqttrelay.EmbeddedRelay) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload, err := hex.DecodeString(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping malformed line: %v\n", err)
			continue
		}
		if err := relay.PublishBatch(ctx, [][]byte{payload}); err != nil {
			return err
		}
	}
	return scanner.Err()
}
