// Package transport implements the duplex message stream spec §5 treats
// as an external collaborator: a gorilla/websocket upgrade per
// connection, and a read-pump/write-pump goroutine pair that decodes
// wire.ClientMessage frames and encodes wire.Frame replies, bridging
// each connection to its own internal/peer.Peer.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nugget/serial-keel/internal/controlcenter"
	"github.com/nugget/serial-keel/internal/peer"
	"github.com/nugget/serial-keel/internal/wire"
)

// Server upgrades HTTP connections to websockets and runs one Peer per
// connection. Authentication is explicitly out of scope (spec §1): the
// connecting user's identity is whatever the `user` query parameter
// says, or a generated one if absent.
type Server struct {
	addr string
	cc   *controlcenter.Handle
	log  *slog.Logger

	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewServer builds a transport Server listening on addr ("host:port")
// that dispatches every accepted connection against cc.
func NewServer(addr string, cc *controlcenter.Handle, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		addr: addr,
		cc:   cc,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Start runs the HTTP server until ctx is cancelled or Shutdown is
// called. Blocks like http.Server.ListenAndServe.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  0, // long-lived websocket connections
		WriteTimeout: 0,
	}

	s.log.Info("starting transport server", "addr", s.addr)
	go func() {
		<-ctx.Done()
		_ = s.srv.Shutdown(context.Background())
	}()
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops accepting connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err, "user", user)
		return
	}

	log := s.log.With("user", user)
	log.Info("client connected")

	p := peer.New(user, s.cc, log)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go s.writePump(conn, p, log, done)
	s.readPump(ctx, conn, p, log)

	cancel()
	p.Close()
	<-done
	conn.Close()
	log.Info("client disconnected")
}

// readPump decodes one client frame per message, dispatches it to the
// Peer, and writes the sync reply (if any) straight onto the Peer's
// Outbound so every reply, sync or async, funnels through one writer.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, p *peer.Peer, log *slog.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wire.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			frame := wire.Frame{Err: errPtr(wire.BadJSON(string(data), err))}
			select {
			case p.Outbound <- frame:
			default:
				log.Warn("dropped BadJson reply: outbound buffer full")
			}
			continue
		}

		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		reply := p.Handle(reqCtx, msg)
		cancel()

		if reply == nil {
			// Every Handle branch returns a frame; a queued
			// Control/ControlAny answers with ControlQueue, and its grant
			// arrives later on Outbound via peer.awaitQueuedGrant.
			continue
		}

		select {
		case p.Outbound <- *reply:
		default:
			log.Warn("dropped reply: outbound buffer full")
		}
	}
}

// writePump drains Peer.Outbound and writes each frame as a text
// message, until the channel is closed by Peer.Close.
func (s *Server) writePump(conn *websocket.Conn, p *peer.Peer, log *slog.Logger, done chan<- struct{}) {
	defer close(done)

	for frame := range p.Outbound {
		data, err := json.Marshal(frame)
		if err != nil {
			log.Error("failed to marshal frame", "error", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func errPtr(e wire.Error) *wire.Error { return &e }
