package domain

import "time"

type EventType string

const (
	EventConnected     EventType = "connected"
	EventDisconnected  EventType = "disconnected"
	EventCommandDone   EventType = "command_done"
	EventCommandFailed EventType = "command_failed"
	EventProgress      EventType = "progress"
	EventStoreChanged  EventType = "store_changed"
	EventConnections   EventType = "connections"
)

type Event struct {
	Type     EventType `json:"type"`
	ConnID   string    `json:"conn_id,omitempty"`
	Remote   string    `json:"remote,omitempty"`
	Command  string    `json:"command,omitempty"`
	File     string    `json:"file,omitempty"`
	Progress float64   `json:"progress,omitempty"`
	Count    int       `json:"count"`
	Files    []string  `json:"files,omitempty"`
	Message  string    `json:"message,omitempty"`
	Time     time.Time `json:"time"`
}

type Observer interface {
	Notify(event Event)
}

type ObserverFunc func(event Event)

func (f ObserverFunc) Notify(event Event) { f(event) }
