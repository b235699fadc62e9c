package ws

import (
	"context"
	"log"
	"net"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"drop-and-dodge/server"
	"drop-and-dodge/server/internal/net/proto"
)

type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades live telemetry connections and runs their read loops.
type Handler struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	ctx := context.Background()
	remote := r.RemoteAddr
	h.hub.RecordSocketOpened(ctx, remote)

	closeReason := "client closed"
	defer func() {
		h.hub.RecordSocketClosed(ctx, remote, closeReason)
		conn.Close()
	}()

	live := &liveSession{
		hub:       h.hub,
		logger:    h.logger,
		conn:      conn,
		remote:    remote,
		clientKey: clientKey(remote),
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = "read error"
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				closeReason = "client closed"
			}
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed frame from %s: %v", remote, err)
			h.hub.RecordMalformed(ctx, remote, err)
			if !live.writeReject(server.SubmitRejectMalformedPayload, false) {
				closeReason = "write error"
				return
			}
			continue
		}

		if !live.handle(ctx, msg) {
			closeReason = "write error"
			return
		}
	}
}

// clientKey collapses a remote address onto its host so throttling follows
// the client, not the ephemeral port.
func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
