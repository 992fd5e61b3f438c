// Package events contains event contract definitions for WebSocket
// communication with pipeline clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Core run message - the primary event type
	MessageTypeRunSnapshot MessageType = "run:snapshot"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// RunSnapshot is the primary message type for pipeline run updates. One
// snapshot is broadcast when a run starts, after every stage, and when the
// run finishes.
type RunSnapshot struct {
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"` // pending|running|completed|failed
	Progress     int             `json:"progress"`
	CurrentStage string          `json:"current_stage,omitempty"`
	Stages       []StageSnapshot `json:"stages"`
	StartedAt    time.Time       `json:"started_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Error        string          `json:"error,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// StageSnapshot represents the state of a single pipeline stage within a run
type StageSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"` // pending|active|completed|failed|skipped
	RecordsIn  int    `json:"records_in"`
	RecordsOut int    `json:"records_out"`
	Audited    int    `json:"audited"`
	Rejected   int    `json:"rejected"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	BaseMessage
	Data struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
		Retry   bool        `json:"retry"`
		Fatal   bool        `json:"fatal"`
	} `json:"data"`
}

// SystemStatusEvent represents a system status event
type SystemStatusEvent struct {
	BaseMessage
	Data struct {
		Status     string            `json:"status"` // healthy|degraded|unhealthy
		Components map[string]string `json:"components"`
		Uptime     string            `json:"uptime"`
		Version    string            `json:"version"`
	} `json:"data"`
}
