package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		topic     string
		aggregate string
		action    string
		wantErr   bool
	}{
		{topic: "contacts.user.password_reset", aggregate: "user", action: "password_reset"},
		{topic: Topic("contact", "deleted"), aggregate: "contact", action: "deleted"},
		{topic: "orders.user.registered", wantErr: true},
		{topic: "contacts.user", wantErr: true},
		{topic: "contacts..created", wantErr: true},
		{topic: "contacts.user.a.b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			aggregate, action, err := ParseTopic(tt.topic)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.aggregate, aggregate)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestNewEvent_DerivesTypeFromTopic(t *testing.T) {
	event, err := NewEvent(Topic("contact", "created"), 12, "contacts-service",
		map[string]int64{"id": 12, "owner_id": 3})
	require.NoError(t, err)

	id, err := uuid.Parse(event.EventID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	assert.Equal(t, "contact.created", event.EventType)
	assert.Equal(t, "contact", event.AggregateType)
	assert.Equal(t, "12", event.AggregateID)
	assert.Equal(t, SchemaVersion, event.SchemaVersion)
	assert.WithinDuration(t, time.Now(), event.OccurredAt, 2*time.Second)
	assert.JSONEq(t, `{"id":12,"owner_id":3}`, string(event.Data))
	assert.Equal(t, "contacts.contact.created", event.Topic())
}

func TestNewEvent_Rejections(t *testing.T) {
	_, err := NewEvent("contact.created", 1, "svc", nil)
	require.Error(t, err, "topic without namespace")

	_, err = NewEvent(Topic("user", "verified"), 1, "svc", make(chan int))
	require.Error(t, err, "payload that cannot be encoded")
}

func TestEvent_WireRoundTrip(t *testing.T) {
	original, err := NewEvent(Topic("user", "registered"), 5, "contacts-service", map[string]string{"email": "ann@example.com"})
	require.NoError(t, err)
	assert.Same(t, original, original.WithCorrelationID("corr-abc"))

	raw, err := original.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, original.EventType, restored.EventType)
	assert.Equal(t, "corr-abc", restored.CorrelationID)
	assert.True(t, original.OccurredAt.Equal(restored.OccurredAt))

	var payload map[string]string
	require.NoError(t, restored.UnmarshalData(&payload))
	assert.Equal(t, "ann@example.com", payload["email"])
}

func TestUnmarshal_Malformed(t *testing.T) {
	_, err := UnmarshalEvent(nil)
	require.Error(t, err)

	event := &Event{Data: json.RawMessage(`{`)}
	require.Error(t, event.UnmarshalData(&map[string]any{}))
}
