package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// session serializes writes to one websocket connection. Snapshots arrive
// from the hub's tick goroutine while acks come from the connection's own
// read loop, so every write goes through writeMu.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
}

func newSession(conn *websocket.Conn) *session {
	return &session{conn: conn}
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) close() {
	s.once.Do(func() { s.conn.Close() })
}
