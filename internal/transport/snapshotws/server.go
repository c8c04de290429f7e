// Package snapshotws streams interpreter snapshots over a websocket: one
// JSON header frame (tick, legend, dimensions; status and error code only
// on the terminal DONE header) immediately
// followed by a binary frame carrying the raw grid state bytes. Grounded
// in the teacher's internal/transport/observer (upgrade + writer-goroutine
// pattern, loopback-only dev guard) and internal/transport/ws (handshake
// shape), generalized from block/chunk streaming to whole-grid snapshot
// streaming since this engine's grids are small enough to send in full.
package snapshotws

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"rewriteengine/internal/errcode"
	"rewriteengine/internal/interp"
	"rewriteengine/internal/node"
)

// Header is the JSON metadata frame sent immediately before each
// snapshot's binary state frame. Code is only set on the terminal DONE
// header, and only when Status is FAIL; it is one of the errcode
// constants so a client can branch on failure class without parsing Status.
type Header struct {
	Type   string `json:"type"`
	RunID  string `json:"run_id"`
	Tick   int    `json:"tick"`
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Legend string `json:"legend"`
	FX     int    `json:"fx"`
	FY     int    `json:"fy"`
	FZ     int    `json:"fz"`
}

// RunFunc drives one interpreter run to completion, invoking emit for
// every produced Snapshot, and returns the terminal status plus an
// errcode constant (empty on SUCCESS) describing a FAIL's cause.
type RunFunc func(emit func(interp.Snapshot)) (node.Status, string)

// Server upgrades HTTP connections to websockets and streams the
// snapshots of a single interpreter run to each connected client.
type Server struct {
	log *log.Logger

	upgrader     websocket.Upgrader
	loopbackOnly bool
}

// NewServer builds a Server. loopbackOnly mirrors the teacher's dev-time
// guard restricting connections to 127.0.0.1/::1.
func NewServer(logger *log.Logger, loopbackOnly bool) *Server {
	if logger == nil {
		logger = log.New(logDiscard{}, "", 0)
	}
	return &Server{
		log:          logger,
		loopbackOnly: loopbackOnly,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type logDiscard struct{}

func (logDiscard) Write(p []byte) (int, error) { return len(p), nil }

// Handler returns an http.HandlerFunc that, per connection, drives run
// and streams every emitted snapshot as a header+binary frame pair. The
// connection is closed once the run reaches SUCCESS/FAIL or the peer
// disconnects, whichever comes first.
func (s *Server) Handler(runID string, run RunFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if s.loopbackOnly && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Reader goroutine: the only inbound message expected is a
		// close; this drains it so the peer's close handshake completes.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		tick := 0
		status, code := run(func(snap interp.Snapshot) {
			select {
			case <-ctx.Done():
				return
			default:
			}
			hdr := Header{
				Type:   "SNAPSHOT",
				RunID:  runID,
				Tick:   tick,
				Legend: snap.Legend,
				FX:     snap.FX, FY: snap.FY, FZ: snap.FZ,
			}
			if err := s.writeFrame(conn, hdr, snap.State); err != nil {
				cancel()
				return
			}
			tick++
		})

		select {
		case <-ctx.Done():
			return
		default:
		}
		if !errcode.IsKnownCode(code) {
			code = errcode.ErrInternal
		}
		final := Header{Type: "DONE", RunID: runID, Tick: tick, Status: status.String(), Code: code}
		b, _ := json.Marshal(final)
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_ = conn.WriteMessage(websocket.TextMessage, b)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run complete"), time.Now().Add(time.Second))
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, hdr Header, state []byte) error {
	b, err := json.Marshal(hdr)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.BinaryMessage, state)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
