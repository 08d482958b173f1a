package eventbus

import "time"

// Delivery outcome event types published by the dispatch engine.
const (
	EventDeliverySent         = "restock.delivery.sent"
	EventDeliverySendFailed   = "restock.delivery.send_failed"
	EventDeliveryDeleteFailed = "restock.delivery.delete_failed"
	EventDeliveryRenderFailed = "restock.delivery.render_failed"
	EventBatchCompleted       = "restock.batch.completed"
)

// Event represents an application event published to the bus.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Listener is a function that handles an event.
type Listener func(Event)
