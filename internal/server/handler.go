package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/san-kum/pendlab/internal/proto"
)

type Handler struct {
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the connection, sends the current snapshot immediately and
// then serves mutation commands until the peer goes away. A rejected command
// never terminates the connection; only transport errors do.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed: %v", err)
		return
	}

	s := newSession(conn)
	initial, err := h.hub.Attach(s)
	if err != nil {
		h.logger.Printf("[ws] failed to marshal initial state: %v", err)
		s.close()
		return
	}
	if err := s.write(initial); err != nil {
		h.hub.Detach(s)
		return
	}

	defer h.hub.Detach(s)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.Decode(payload)
		if err != nil {
			h.logger.Printf("[ws] discarding malformed message: %v", err)
			continue
		}

		var env proto.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue
		}

		switch msg.(type) {
		case *proto.AddBobCommand, *proto.RemoveBobCommand, *proto.ModifyBobCommand:
			var reply any
			if err := h.hub.Apply(msg); err != nil {
				reply = proto.RejectMessage{Type: proto.TypeReject, Seq: env.Seq, Reason: err.Error()}
			} else {
				reply = proto.AckMessage{Type: proto.TypeAck, Seq: env.Seq}
			}
			data, err := json.Marshal(reply)
			if err != nil {
				h.logger.Printf("[ws] failed to marshal reply: %v", err)
				continue
			}
			if err := s.write(data); err != nil {
				return
			}
		default:
			h.logger.Printf("[ws] unexpected message type %T from client", msg)
		}
	}
}
