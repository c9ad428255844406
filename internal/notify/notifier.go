package notify

import (
	"context"
	"io"
	"log"
)

// Message is a fire-and-forget notification to a user. Delivery is an
// external concern; failures must never affect the transaction that
// produced the message.
type Message struct {
	ID      string
	UserID  string
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the process log. It stands in for
// the real delivery collaborator.
type LogNotifier struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Printf("notify: id=%s user=%s subject=%q", msg.ID, msg.UserID, msg.Subject)
	return nil
}
