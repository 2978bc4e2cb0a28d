// Package mqtt bridges controller events to a home-automation broker and
// accepts operator commands from it.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "icemaker"

// Topic suffixes under the prefix.
const (
	TopicState        = "state"
	TopicTemperature  = "temperature"
	TopicRelay        = "relay"
	TopicFault        = "fault"
	TopicCommand      = "command"
	TopicAvailability = "availability"
)

// Availability payloads. Offline is also the broker's last-will message.
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// MessageHandler receives an inbound message.
type MessageHandler func(topic string, payload []byte)

// Publisher talks to a broker.
type Publisher interface {
	// Publish sends payload to topic. Errors are reported, never fatal.
	Publish(topic string, payload []byte, retained bool) error

	// Subscribe registers handler for topic. Subscriptions survive reconnects.
	Subscribe(topic string, handler MessageHandler) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Topic joins the prefix and a suffix path.
func Topic(prefix string, parts ...string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// StatePayload is published, retained, on every state change.
type StatePayload struct {
	Timestamp     string `json:"timestamp"`
	State         string `json:"state"`
	PreviousState string `json:"previous_state"`
	Reason        string `json:"reason,omitempty"`
	CycleCount    int64  `json:"cycle_count"`
}

// TemperaturePayload carries one sensor sample in °F.
type TemperaturePayload struct {
	Timestamp string   `json:"timestamp"`
	PlateF    float64  `json:"plate_temp_f"`
	BinF      float64  `json:"bin_temp_f"`
	WaterF    *float64 `json:"water_temp_f,omitempty"`
}

// RelayPayload is published on <prefix>/relay/<name>.
type RelayPayload struct {
	Timestamp string `json:"timestamp"`
	Relay     string `json:"relay"`
	On        bool   `json:"on"`
}

// FaultPayload describes a fault that forced ERROR.
type FaultPayload struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	State     string `json:"state"`
}

// Message is one outbound publication.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatEvent maps a controller event to its topic and JSON payload. ok is
// false for events that are not bridged.
func FormatEvent(prefix string, ev models.Event, cycleCount int64) (msg Message, ok bool, err error) {
	var payload any
	switch ev.Type {
	case models.EventStateChanged:
		if ev.State == nil {
			return Message{}, false, nil
		}
		msg = Message{Topic: Topic(prefix, TopicState), Retained: true}
		payload = StatePayload{
			Timestamp:     timestamp(ev.At),
			State:         ev.State.To.String(),
			PreviousState: ev.State.From.String(),
			Reason:        ev.State.Reason,
			CycleCount:    cycleCount,
		}
	case models.EventTemperatureSampled:
		if ev.Reading == nil {
			return Message{}, false, nil
		}
		msg = Message{Topic: Topic(prefix, TopicTemperature)}
		payload = TemperaturePayload{
			Timestamp: timestamp(ev.At),
			PlateF:    ev.Reading.PlateTemp,
			BinF:      ev.Reading.BinTemp,
			WaterF:    ev.Reading.WaterTemp,
		}
	case models.EventRelayChanged:
		if ev.Relay == nil {
			return Message{}, false, nil
		}
		msg = Message{Topic: Topic(prefix, TopicRelay, string(ev.Relay.Relay)), Retained: true}
		payload = RelayPayload{
			Timestamp: timestamp(ev.At),
			Relay:     string(ev.Relay.Relay),
			On:        ev.Relay.On,
		}
	case models.EventFaultRaised:
		if ev.Fault == nil {
			return Message{}, false, nil
		}
		msg = Message{Topic: Topic(prefix, TopicFault)}
		payload = FaultPayload{
			Timestamp: timestamp(ev.At),
			Kind:      ev.Fault.Kind,
			Message:   ev.Fault.Message,
			State:     ev.Fault.State.String(),
		}
	default:
		return Message{}, false, nil
	}
	msg.Payload, err = json.Marshal(payload)
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// ParseCommand accepts a bare command name ("start") or a JSON object
// ({"command":"start"}).
func ParseCommand(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if strings.HasPrefix(s, "{") {
		var body struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal([]byte(s), &body); err != nil {
			return ""
		}
		s = body.Command
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
