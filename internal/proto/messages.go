// Package proto defines the JSON messages crossing the client/backend
// boundary. Field names are snake_case; the backend contract fixes them, so
// renaming a Go field must never change a tag.
package proto

import (
	"encoding/json"
	"fmt"
)

// Message types. The snapshot stream and the command channel share one
// websocket connection, discriminated by "type".
const (
	TypeState     = "pendulum_state"
	TypeAddBob    = "add_bob"
	TypeRemoveBob = "remove_bob"
	TypeModifyBob = "modify_bob"
	TypeAck       = "ack"
	TypeReject    = "reject"
)

// BobState is one bob inside a snapshot.
type BobState struct {
	ID        string  `json:"id"`
	LengthRod float64 `json:"length_rod"`
	Mass      float64 `json:"mass"`
	Theta     float64 `json:"theta"`
	Omega     float64 `json:"omega"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// StateMessage is a complete replacement snapshot, never a diff. Bob order
// is chain order: index 0 hangs from the fixed pivot.
type StateMessage struct {
	Type   string     `json:"type"`
	Time   float64    `json:"time"`
	Energy float64    `json:"energy"`
	Bobs   []BobState `json:"bobs"`
}

// AddBobCommand requests a bob appended to the free end of the chain. All
// four parameters are required.
type AddBobCommand struct {
	Type      string  `json:"type"`
	Seq       uint64  `json:"seq"`
	LengthRod float64 `json:"length_rod"`
	Mass      float64 `json:"mass"`
	Theta     float64 `json:"theta"`
	Omega     float64 `json:"omega"`
}

// RemoveBobCommand requests removal by 0-based chain position. Bounds are
// checked by the backend, not the sender.
type RemoveBobCommand struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq"`
	Index int    `json:"index"`
}

// ModifyBobCommand overwrites individual fields of one bob. A null field
// means "leave unchanged", so the pointers marshal without omitempty.
type ModifyBobCommand struct {
	Type   string   `json:"type"`
	Seq    uint64   `json:"seq"`
	Index  int      `json:"index"`
	Length *float64 `json:"length"`
	Mass   *float64 `json:"mass"`
	Theta  *float64 `json:"theta"`
	Omega  *float64 `json:"omega"`
}

// AckMessage confirms the command carrying the same seq succeeded.
type AckMessage struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

// RejectMessage reports why the command carrying the same seq failed.
type RejectMessage struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
}

// Envelope carries just enough to route an inbound frame.
type Envelope struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

// Decode peeks at the type discriminator and unmarshals the payload into
// the matching message struct.
func Decode(data []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("proto: malformed frame: %w", err)
	}

	var msg any
	switch env.Type {
	case TypeState:
		msg = &StateMessage{}
	case TypeAddBob:
		msg = &AddBobCommand{}
	case TypeRemoveBob:
		msg = &RemoveBobCommand{}
	case TypeModifyBob:
		msg = &ModifyBobCommand{}
	case TypeAck:
		msg = &AckMessage{}
	case TypeReject:
		msg = &RejectMessage{}
	default:
		return nil, fmt.Errorf("proto: unknown message type %q", env.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("proto: malformed %s: %w", env.Type, err)
	}
	return msg, nil
}
