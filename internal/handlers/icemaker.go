package handlers

import (
	"errors"
	"net/http"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK                = "ok"
	statusStarted           = "started"
	statusStopped           = "stopped"
	statusEmergencyStopped  = "emergency_stopped"
	statusShutdownRequested = "shutdown_requested"
	statusDiagnosticEntered = "diagnostic_entered"
	statusDiagnosticExited  = "diagnostic_exited"
	statusRelaySet          = "relay_set"

	errStart           = "failed to start icemaker"
	errStop            = "failed to stop icemaker"
	errEmergencyStop   = "failed to emergency stop icemaker"
	errShutdown        = "failed to shut down icemaker"
	errEnterDiagnostic = "failed to enter diagnostic mode"
	errExitDiagnostic  = "failed to exit diagnostic mode"
	errSetRelay        = "failed to set relay"
	errReadSensors     = "failed to read sensors"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// commandError maps service errors to HTTP codes. Rejections carry the
// service message, since it names the state that refused the command.
func (h *Handler) commandError(c *gin.Context, userMsg, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logAndJSONError(c, code, userMsg, logKey, err, kv...)
		return
	}
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Warnw(logKey, fields...)
	}
	resp := gin.H{"error": err.Error()}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		resp["fields"] = verr.Fields
	}
	c.JSON(code, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidCommand), errors.Is(err, models.ErrHardwareConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSimulatorUnavailable), errors.Is(err, service.ErrNoReading):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Respond with a status and include the current controller status.
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	resp["state"] = h.services.Monitoring.Snapshot(ctx).Status
	c.JSON(http.StatusOK, resp)
}

// SetRelayRequest is the payload of a direct relay command.
type SetRelayRequest struct {
	// Desired relay state
	On *bool `json:"on" binding:"required" example:"true"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get controller status
// @Description  State, previous state, time in state, cycle counts, target temperature, relays and the latest reading
// @Tags         icemaker
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Router       /api/v1/icemaker/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Snapshot(c.Request.Context()))
}

// @Summary      Start icemaker
// @Description  From OFF primes or enters STANDBY; from STANDBY or IDLE starts a cycle
// @Tags         icemaker
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/icemaker/start [post]
func (h *Handler) start(c *gin.Context) {
	if err := h.services.Icemaker.Start(c.Request.Context()); err != nil {
		h.commandError(c, errStart, "icemaker_start_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStarted, gin.H{})
}

// @Summary      Stop icemaker
// @Tags         icemaker
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/icemaker/stop [post]
func (h *Handler) stop(c *gin.Context) {
	if err := h.services.Icemaker.Stop(c.Request.Context()); err != nil {
		h.commandError(c, errStop, "icemaker_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped, gin.H{})
}

// @Summary      Emergency stop
// @Description  Releases every relay and returns to OFF from any state
// @Tags         icemaker
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/icemaker/emergency-stop [post]
func (h *Handler) emergencyStop(c *gin.Context) {
	if err := h.services.Icemaker.EmergencyStop(c.Request.Context()); err != nil {
		h.commandError(c, errEmergencyStop, "icemaker_emergency_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusEmergencyStopped, gin.H{})
}

// @Summary      Request shutdown
// @Description  Immediate at rest; during a cycle the machine finishes through rechill first
// @Tags         icemaker
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/icemaker/shutdown [post]
func (h *Handler) shutdown(c *gin.Context) {
	if err := h.services.Icemaker.Shutdown(c.Request.Context()); err != nil {
		h.commandError(c, errShutdown, "icemaker_shutdown_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusShutdownRequested, gin.H{})
}

// @Summary      Enter diagnostic mode
// @Tags         icemaker
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/icemaker/diagnostic/enter [post]
func (h *Handler) enterDiagnostic(c *gin.Context) {
	if err := h.services.Icemaker.EnterDiagnostic(c.Request.Context()); err != nil {
		h.commandError(c, errEnterDiagnostic, "icemaker_enter_diagnostic_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusDiagnosticEntered, gin.H{})
}

// @Summary      Exit diagnostic mode
// @Tags         icemaker
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/icemaker/diagnostic/exit [post]
func (h *Handler) exitDiagnostic(c *gin.Context) {
	if err := h.services.Icemaker.ExitDiagnostic(c.Request.Context()); err != nil {
		h.commandError(c, errExitDiagnostic, "icemaker_exit_diagnostic_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusDiagnosticExited, gin.H{})
}

// @Summary      Get relay states
// @Tags         relays
// @Produce      json
// @Success      200  {object}  models.RelayBank
// @Router       /api/v1/relays [get]
func (h *Handler) getRelays(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Snapshot(c.Request.Context()).Relays)
}

// @Summary      Set one relay
// @Description  Only accepted in DIAGNOSTIC. Heat plus cool is refused and forces ERROR.
// @Tags         relays
// @Accept       json
// @Produce      json
// @Param        name  path   string           true  "Relay name"  Enums(water_valve,hot_gas_solenoid,recirculating_pump,compressor_1,compressor_2,condenser_fan,led,ice_cutter)
// @Param        body  body   SetRelayRequest  true  "Relay payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/relays/{name} [put]
func (h *Handler) setRelay(c *gin.Context) {
	name, err := models.ParseRelayName(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req SetRelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Icemaker.SetRelay(c.Request.Context(), name, *req.On); err != nil {
		h.commandError(c, errSetRelay, "relay_set_failed", err, "relay", name, "on", *req.On)
		return
	}
	h.respondWithStatusAndState(c, statusRelaySet, gin.H{
		"relay":  name,
		"on":     *req.On,
		"relays": h.services.Monitoring.Snapshot(c.Request.Context()).Relays,
	})
}

// @Summary      Latest sensor reading
// @Tags         sensors
// @Produce      json
// @Success      200  {object}  models.SensorReading
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/sensors [get]
func (h *Handler) getSensors(c *gin.Context) {
	r, err := h.services.Monitoring.Sensors(c.Request.Context())
	if err != nil {
		h.commandError(c, errReadSensors, "sensors_read_failed", err)
		return
	}
	c.JSON(http.StatusOK, r)
}
