package handlers

import (
	"context"
	"sync"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockIcemaker struct {
	err   error
	calls []string

	lastRelay models.RelayName
	lastOn    bool
}

func (m *mockIcemaker) record(cmd string) error {
	m.calls = append(m.calls, cmd)
	return m.err
}

func (m *mockIcemaker) Start(ctx context.Context) error         { return m.record("start") }
func (m *mockIcemaker) Stop(ctx context.Context) error          { return m.record("stop") }
func (m *mockIcemaker) EmergencyStop(ctx context.Context) error { return m.record("emergency_stop") }
func (m *mockIcemaker) Shutdown(ctx context.Context) error      { return m.record("shutdown") }
func (m *mockIcemaker) EnterDiagnostic(ctx context.Context) error {
	return m.record("enter_diagnostic")
}
func (m *mockIcemaker) ExitDiagnostic(ctx context.Context) error {
	return m.record("exit_diagnostic")
}
func (m *mockIcemaker) SetRelay(ctx context.Context, name models.RelayName, on bool) error {
	m.lastRelay = name
	m.lastOn = on
	return m.record("set_relay")
}
func (m *mockIcemaker) Execute(ctx context.Context, cmd string) error { return m.record(cmd) }

type mockMonitoring struct {
	mu        sync.Mutex
	snap      models.Snapshot
	reading   models.SensorReading
	readErr   error
	events    chan models.Event
	subscribe int
	cancelled int
}

func (m *mockMonitoring) Snapshot(ctx context.Context) models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockMonitoring) Sensors(ctx context.Context) (models.SensorReading, error) {
	return m.reading, m.readErr
}

func (m *mockMonitoring) Subscribe(buf int) (<-chan models.Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribe++
	if m.events == nil {
		m.events = make(chan models.Event, buf)
	}
	return m.events, func() {
		m.mu.Lock()
		m.cancelled++
		m.mu.Unlock()
	}
}

func (m *mockMonitoring) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribe - m.cancelled
}

type mockConfiguration struct {
	cfg        models.CycleConfig
	err        error
	resetErr   error
	lastUpdate map[string]any
	resets     int
}

func (m *mockConfiguration) Get(ctx context.Context) models.CycleConfig { return m.cfg }

func (m *mockConfiguration) Update(ctx context.Context, update map[string]any) (models.CycleConfig, error) {
	m.lastUpdate = update
	return m.cfg, m.err
}

func (m *mockConfiguration) Reset(ctx context.Context) (models.CycleConfig, error) {
	m.resets++
	return models.DefaultCycleConfig(), m.resetErr
}

func (m *mockConfiguration) Schema() []models.ConfigField { return models.ConfigSchema() }

type mockEventLog struct {
	resp  []models.LogEvent
	err   error
	calls int
	last  service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.LogEvent, error) {
	m.calls++
	m.last = f
	return m.resp, m.err
}

type mockSimulation struct {
	status    service.SimulationStatus
	err       error
	lastSpeed float64
	resets    int
}

func (m *mockSimulation) Status(ctx context.Context) (service.SimulationStatus, error) {
	return m.status, m.err
}

func (m *mockSimulation) SetSpeed(ctx context.Context, multiplier float64) (service.SimulationStatus, error) {
	m.lastSpeed = multiplier
	st := m.status
	st.Speed = multiplier
	return st, m.err
}

func (m *mockSimulation) Reset(ctx context.Context) (service.SimulationStatus, error) {
	m.resets++
	return m.status, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
