package server

import "encoding/json"

// Command represents an incoming JSON command from a WebSocket client.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message represents an outgoing JSON message sent to WebSocket clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NewMessage creates a new structured Message for broadcasting to clients.
func NewMessage(msgType string, payload interface{}) Message {
	return Message{Type: msgType, Payload: payload}
}

// DeviceState is the payload of "device_state" messages.
type DeviceState struct {
	IsOn            bool   `json:"isOn"`
	Auto            bool   `json:"auto"`
	R               uint8  `json:"r"`
	G               uint8  `json:"g"`
	B               uint8  `json:"b"`
	Hex             string `json:"hex"`
	Brightness      uint8  `json:"brightness"`
	BrokerConnected bool   `json:"brokerConnected"`
}
