package buffer

import (
	"time"

	"github.com/google/uuid"

	"github.com/bancozim/origination/internal/infrastructure/notify"
)

// Notification is one outbound message parked in the outbox until the
// messaging gateway accepts it.
type Notification struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Recipient string    `json:"recipient"`
	Channel   string    `json:"channel"`
	Body      string    `json:"body"`
	Priority  int       `json:"priority"`
	Retries   int       `json:"retries"`
	Timestamp time.Time `json:"timestamp"`

	bucketKey []byte
}

// Message converts the stored notification back into gateway form.
func (n Notification) Message() notify.Message {
	return notify.Message{
		To:      n.Recipient,
		Channel: n.Channel,
		Body:    n.Body,
	}
}

func (n *Notification) normalize() {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority <= 0 || n.Priority > 5 {
		// SMS reminders are time-sensitive, chat confirmations less so.
		if n.Channel == notify.ChannelSMS {
			n.Priority = 2
		} else {
			n.Priority = 3
		}
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
}
