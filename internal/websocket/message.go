package websocket

import (
	"encoding/json"
	"time"
)

// Message types pushed to clients.
const (
	TypeConnection      = "connection"
	TypeCampaignsUpdate = "campaigns:update"
	TypeHeartbeat       = "heartbeat"
)

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
}

func encodeMessage(msgType string, data any, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
	})
}
