package debugweb_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"golang.org/x/net/websocket"

	"github.com/voronfis/flipdot/codec"
	"github.com/voronfis/flipdot/debugweb"
)

func TestBroadcastDeliversToClient(t *testing.T) {
	c := qt.New(t)

	srv := debugweb.NewServer()
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	ws, err := websocket.Dial(wsURL, "", httpSrv.URL)
	c.Assert(err, qt.IsNil)
	defer ws.Close()

	// Give the server goroutine a moment to register the connection.
	deadline := time.Now().Add(time.Second)
	for srv.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Assert(srv.ClientCount(), qt.Equals, 1)

	var matrix codec.Matrix
	matrix[0][0] = 1
	srv.Broadcast(debugweb.Dump{Matrix: matrix, Payloads: [][]byte{{0x01, 0x02}}})

	var got debugweb.Dump
	ws.SetReadDeadline(time.Now().Add(time.Second))
	err = websocket.JSON.Receive(ws, &got)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Matrix[0][0], qt.Equals, 1)
	c.Assert(got.Payloads, qt.DeepEquals, [][]byte{{0x01, 0x02}})
}

func TestEncodeDump(t *testing.T) {
	c := qt.New(t)
	var matrix codec.Matrix
	payloads := []codec.Payload{{Addr: 0x07, Groups: nil}}
	dump := debugweb.EncodeDump(matrix, payloads)
	c.Assert(len(dump.Payloads), qt.Equals, 1)
	c.Assert(dump.Payloads[0], qt.DeepEquals, payloads[0].Bytes())
}

func TestClientCountZeroWithoutConnections(t *testing.T) {
	c := qt.New(t)
	srv := debugweb.NewServer()
	c.Assert(srv.ClientCount(), qt.Equals, 0)
}
