package pipeline

import (
	"encoding/json"
	"log/slog"

	"paperbase/internal/config"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// EventNotifier forwards progress events to NSQ so external observers (UIs,
// log tails) can follow a running batch. Delivery is best effort.
type EventNotifier struct {
	pub    EventPublisher
	logger *slog.Logger
}

func NewEventNotifier(pub EventPublisher, logger *slog.Logger) *EventNotifier {
	return &EventNotifier{pub: pub, logger: logger}
}

func (n *EventNotifier) Notify(event ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to marshal progress event", "error", err)
		return
	}
	if err := n.pub.Publish(config.TopicPipelineProgress, payload); err != nil {
		n.logger.Warn("failed to publish progress event", "job_id", event.JobID, "error", err)
	}
}
