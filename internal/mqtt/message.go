package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// LogMessage is one sensor log file published by a gateway.
type LogMessage struct {
	Source   string    `json:"source"`
	Filename string    `json:"filename"`
	SentAt   time.Time `json:"sent_at"`
	Content  string    `json:"content"`
}

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidMessage  = errors.New("invalid log message")
)

// DecodeLogMessage unmarshals and validates a payload no larger than maxBytes.
// A zero maxBytes disables the size check.
func DecodeLogMessage(payload []byte, maxBytes int64) (LogMessage, error) {
	if maxBytes > 0 && int64(len(payload)) > maxBytes {
		return LogMessage{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrPayloadTooLarge, len(payload), maxBytes)
	}
	var msg LogMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return LogMessage{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return LogMessage{}, err
	}
	msg.Source = strings.TrimSpace(msg.Source)
	msg.Filename = strings.TrimSpace(msg.Filename)
	return msg, nil
}

func (m LogMessage) Validate() error {
	if strings.TrimSpace(m.Source) == "" {
		return fmt.Errorf("%w: source is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidMessage)
	}
	if !utf8.ValidString(m.Content) {
		return fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidMessage)
	}
	return nil
}
