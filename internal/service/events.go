package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventPassCompleted  EventType = "pass.completed"
	EventDeviceAdded    EventType = "device.added"
	EventDeviceChanged  EventType = "device.changed"
	EventDeviceReturned EventType = "device.returned"
	EventDeviceDeparted EventType = "device.departed"
	EventDeviceLabeled  EventType = "device.labeled"
)

// Event represents something that happened after a commit
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// publishPass emits one event per transition followed by the pass summary
func (eb *EventBus) publishPass(result *PassResult) {
	for _, tr := range result.Transitions {
		eb.Publish(Event{Type: transitionEvent(tr.Kind), Payload: tr})
	}
	eb.Publish(Event{Type: EventPassCompleted, Payload: result})
}

func transitionEvent(kind TransitionKind) EventType {
	switch kind {
	case TransitionAdded:
		return EventDeviceAdded
	case TransitionChanged:
		return EventDeviceChanged
	case TransitionReturned:
		return EventDeviceReturned
	default:
		return EventDeviceDeparted
	}
}
