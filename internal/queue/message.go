package queue

import "encoding/json"

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message is one campaign email addressed to a single lead.
type Message struct {
	LeadID      string `json:"leadId"`
	To          string `json:"to"`
	ContactName string `json:"contactName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	SentBy      string `json:"sentBy,omitempty"`
	RequestID   string `json:"requestId"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
