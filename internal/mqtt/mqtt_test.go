package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apophisnow/icemaker/internal/models"
)

var at = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func TestTopic(t *testing.T) {
	assert.Equal(t, "icemaker/state", Topic("", TopicState))
	assert.Equal(t, "home/ice/relay/led", Topic("home/ice/", TopicRelay, "led"))
}

func TestFormatEvent_StateChanged(t *testing.T) {
	msg, ok, err := FormatEvent("icemaker", models.Event{
		Type:  models.EventStateChanged,
		At:    at,
		State: &models.StateChange{From: models.StateIce, To: models.StateHeat, Reason: "ice target reached"},
	}, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "icemaker/state", msg.Topic)
	assert.True(t, msg.Retained)

	var p StatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, StatePayload{
		Timestamp:     "2026-02-02T22:18:12Z",
		State:         "HEAT",
		PreviousState: "ICE",
		Reason:        "ice target reached",
		CycleCount:    42,
	}, p)
}

func TestFormatEvent_ChillStateKeepsMode(t *testing.T) {
	msg, ok, err := FormatEvent("icemaker", models.Event{
		Type:  models.EventStateChanged,
		At:    at,
		State: &models.StateChange{From: models.StateHeat, To: models.Chill(models.Rechill)},
	}, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(msg.Payload), `"state":"CHILL:RECHILL"`)
}

func TestFormatEvent_TemperatureRelayFault(t *testing.T) {
	water := 45.0
	tests := []struct {
		name     string
		ev       models.Event
		topic    string
		retained bool
		contains string
	}{
		{
			name:     "temperature",
			ev:       models.Event{Type: models.EventTemperatureSampled, At: at, Reading: &models.SensorReading{PlateTemp: 12.5, BinTemp: 40, WaterTemp: &water}},
			topic:    "icemaker/temperature",
			contains: `"plate_temp_f":12.5`,
		},
		{
			name:     "relay",
			ev:       models.Event{Type: models.EventRelayChanged, At: at, Relay: &models.RelayChange{Relay: models.RelayHotGasSolenoid, On: true}},
			topic:    "icemaker/relay/hot_gas_solenoid",
			retained: true,
			contains: `"on":true`,
		},
		{
			name:     "fault",
			ev:       models.Event{Type: models.EventFaultRaised, At: at, Fault: &models.Fault{Kind: models.FaultPhaseTimeout, Message: "ice exceeded 1500s", State: models.StateIce}},
			topic:    "icemaker/fault",
			contains: `"kind":"PHASE_TIMEOUT"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok, err := FormatEvent("icemaker", tt.ev, 0)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.topic, msg.Topic)
			assert.Equal(t, tt.retained, msg.Retained)
			assert.Contains(t, string(msg.Payload), tt.contains)
		})
	}
}

func TestFormatEvent_MissingPayloadIsSkipped(t *testing.T) {
	for _, typ := range []models.EventType{
		models.EventStateChanged,
		models.EventTemperatureSampled,
		models.EventRelayChanged,
		models.EventFaultRaised,
		"UNKNOWN",
	} {
		_, ok, err := FormatEvent("icemaker", models.Event{Type: typ, At: at}, 0)
		assert.NoError(t, err)
		assert.False(t, ok, typ)
	}
}

func TestParseCommand(t *testing.T) {
	cases := map[string]string{
		"start":                        "start",
		"  STOP\n":                     "stop",
		"emergency-stop":               "emergency_stop",
		`{"command":"shutdown"}`:       "shutdown",
		`{"command":"Emergency_Stop"}`: "emergency_stop",
		`{"command":`:                  "",
		`{"action":"start"}`:           "",
		"":                             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCommand([]byte(in)), "payload %q", in)
	}
}
