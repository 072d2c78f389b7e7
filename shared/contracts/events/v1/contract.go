// Package v1 defines the TaskFlow task event protocol v1.
//
// It is shared by the server and clients (including tools/scripts/ws-smoke.go)
// and imports nothing outside the standard library.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is embedded into every envelope.
const Version = "v1"

// Subprotocol is the websocket subprotocol negotiated for this version.
const Subprotocol = "taskflow.events.v1"

// Type constants (wire-stable).
const (
	// TypeHello authenticates the session (client -> server).
	TypeHello = "hello"
	// TypeHelloAck confirms the session (server -> client).
	TypeHelloAck = "hello_ack"

	TypeTaskCreated = "task.created"
	TypeTaskUpdated = "task.updated"
	TypeTaskDeleted = "task.deleted"

	// TypeError reports a protocol or auth failure (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs structural validation.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	switch e.Type {
	case TypeHello, TypeHelloAck, TypeTaskCreated, TypeTaskUpdated, TypeTaskDeleted, TypeError:
		return nil
	case "":
		return errors.New("missing field: type")
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// HelloPayload carries the bearer token issued by /auth/login.
type HelloPayload struct {
	Token string `json:"token"`
}

// HelloAckPayload identifies the authenticated session.
type HelloAckPayload struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
}

// Tag mirrors the REST tag representation.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Task mirrors the REST task representation.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	Priority    int       `json:"priority"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tags        []Tag     `json:"tags"`
}

// TaskEventPayload is sent for task.created, task.updated and task.deleted.
// Task is omitted for deletions.
type TaskEventPayload struct {
	EventID string `json:"event_id"`
	TaskID  int64  `json:"task_id"`
	Task    *Task  `json:"task,omitempty"`
}

// ErrorPayload is a generic error payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
