// Package debugweb serves a websocket endpoint that streams matrix dumps
// as they are produced, for a browser-side live view during calibration
// or bring-up (spec §6's "debug dump" collaborator). It owns no codec
// state itself: callers push frames in via Server.Broadcast.
package debugweb

import (
	"log"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/voronfis/flipdot/codec"
)

// Dump is one broadcast unit: a logical matrix plus the wire payloads
// encoded from it, serialized as JSON over the websocket.
type Dump struct {
	Matrix   codec.Matrix `json:"matrix"`
	Payloads [][]byte     `json:"payloads"`
}

// Server fans a stream of Dumps out to every connected websocket client.
type Server struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Dump
	Logger  *log.Logger
}

// NewServer returns an empty Server ready to accept connections.
func NewServer() *Server {
	return &Server{clients: make(map[*websocket.Conn]chan Dump)}
}

// Handler returns an http.Handler serving the websocket endpoint, suitable
// for mounting at any path with http.Handle.
func (s *Server) Handler() http.Handler {
	return websocket.Handler(s.serveConn)
}

func (s *Server) serveConn(ws *websocket.Conn) {
	ch := make(chan Dump, 8)
	s.mu.Lock()
	s.clients[ws] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, ws)
		s.mu.Unlock()
		ws.Close()
	}()

	for dump := range ch {
		if err := websocket.JSON.Send(ws, dump); err != nil {
			s.logf("debugweb: send failed: %v", err)
			return
		}
	}
}

// Broadcast pushes dump to every connected client, dropping it for any
// client whose buffer is full rather than blocking the producer.
func (s *Server) Broadcast(dump Dump) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ws, ch := range s.clients {
		select {
		case ch <- dump:
		default:
			s.logf("debugweb: dropping dump for slow client %v", ws.RemoteAddr())
		}
	}
}

// ClientCount reports the number of currently connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// EncodeDump builds a Dump from a matrix and its already-encoded payload
// bytes, for callers that just want a one-line call into Broadcast.
func EncodeDump(matrix codec.Matrix, payloads []codec.Payload) Dump {
	raw := make([][]byte, len(payloads))
	for i, p := range payloads {
		raw[i] = p.Bytes()
	}
	return Dump{Matrix: matrix, Payloads: raw}
}

