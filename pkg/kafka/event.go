package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TopicPrefix is the namespace shared by every topic this service writes.
const TopicPrefix = "contacts"

// SchemaVersion is bumped when an event payload changes incompatibly.
const SchemaVersion = 1

// Topic builds "contacts.<aggregate>.<action>".
func Topic(aggregate, action string) string {
	return TopicPrefix + "." + aggregate + "." + action
}

// ParseTopic splits a topic produced by Topic back into its parts.
func ParseTopic(topic string) (aggregate, action string, err error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+".")
	if !ok {
		return "", "", fmt.Errorf("topic %q is outside the %s namespace", topic, TopicPrefix)
	}
	aggregate, action, ok = strings.Cut(rest, ".")
	if !ok || aggregate == "" || action == "" || strings.Contains(action, ".") {
		return "", "", fmt.Errorf("topic %q is not <aggregate>.<action>", topic)
	}
	return aggregate, action, nil
}

// Event is the envelope every domain event travels in. EventType is the
// topic without its namespace, e.g. "contact.updated".
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope for topic. Event ids are UUIDv7 so
// they sort by creation time.
func NewEvent(topic string, aggregateID int64, source string, data any) (*Event, error) {
	aggregate, action, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("event id: %w", err)
	}

	return &Event{
		EventID:       id.String(),
		EventType:     aggregate + "." + action,
		AggregateType: aggregate,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}, nil
}

// WithCorrelationID tags the event with the request that caused it.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Topic returns the topic the event belongs on.
func (e *Event) Topic() string {
	aggregate, action, _ := strings.Cut(e.EventType, ".")
	return Topic(aggregate, action)
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes an envelope read off the wire.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
