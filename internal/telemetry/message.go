package telemetry

import (
	"errors"
	"fmt"

	"deliverysim/internal/model"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
)

// MessageType tells the receiver whether to add/update an entity or delete it
type MessageType int

const (
	MessageTypeAdd MessageType = iota
	MessageTypeDelete
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeAdd:
		return "Add"
	case MessageTypeDelete:
		return "Delete"
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

var ErrInvalidMessage = errors.New("invalid location message")

// LocationMessage is the datagram payload shared by the simulator and the dashboard.
// Field names are part of the wire format.
type LocationMessage struct {
	MessageType   MessageType   `json:"MessageType"`
	EntityID      string        `json:"EntityId"`
	Company       model.Company `json:"Company"`
	Name          string        `json:"Name"`
	PayloadWeight float64       `json:"PayloadWeight"`
	Speed         float64       `json:"Speed"`
	X             float64       `json:"X"`
	Y             float64       `json:"Y"`
	Heading       float64       `json:"Heading"`
}

// Encode serializes a message as a single UTF-8 JSON object
func Encode(msg LocationMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode location message %q: %w", msg.EntityID, err)
	}
	return data, nil
}

// Decode parses one datagram. Unknown message types and messages without an
// entity id are rejected with ErrInvalidMessage.
func Decode(data []byte) (LocationMessage, error) {
	var msg LocationMessage
	if len(data) == 0 {
		return msg, fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return LocationMessage{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.MessageType {
	case MessageTypeAdd, MessageTypeDelete:
	default:
		return LocationMessage{}, fmt.Errorf("%w: unknown message type %d", ErrInvalidMessage, int(msg.MessageType))
	}
	if msg.EntityID == "" {
		return LocationMessage{}, fmt.Errorf("%w: missing EntityId", ErrInvalidMessage)
	}

	return msg, nil
}

// Observation converts the wire message into the aggregator's representation
func (m LocationMessage) Observation() model.Observation {
	return model.Observation{
		EntityID:      m.EntityID,
		Company:       m.Company,
		Name:          m.Name,
		PayloadWeight: m.PayloadWeight,
		Speed:         m.Speed,
		Position:      orb.Point{m.X, m.Y},
		Heading:       m.Heading,
	}
}
