package session

import (
	"sync"
	"time"
)

// Sender classifies who a message came from
type Sender int

const (
	SenderUser Sender = iota
	SenderBot
)

func (s Sender) String() string {
	if s == SenderUser {
		return "user"
	}
	return "bot"
}

// Message represents a single rendered chat bubble
type Message struct {
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with the current time
func NewMessage(text string, sender Sender) Message {
	return Message{
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// Transcript is the append-only list of messages shown for the life of the
// process. It is never persisted.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// Append adds msg to the end of the transcript
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
}

// Messages returns a copy of all messages in display order
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the newest message from sender, if any
func (t *Transcript) Last(sender Sender) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Sender == sender {
			return t.messages[i], true
		}
	}
	return Message{}, false
}
