package sse

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is one server-sent event.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage encodes detail as the message data.
func NewMessage(event string, detail any) (*Message, error) {
	data, err := json.Marshal(detail)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Client is one connected stream subscriber for a match.
type Client struct {
	ClientID    string
	MatchID     uuid.UUID
	ConnectedAt time.Time
	MessageChan chan *Message
}

// NewClient creates a client with a buffered message channel.
func NewClient(matchID uuid.UUID) *Client {
	return &Client{
		ClientID:    uuid.New().String(),
		MatchID:     matchID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *Message, 100),
	}
}
