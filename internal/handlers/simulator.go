package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	errSimulatorStatus = "failed to load simulator status"
	errSimulatorSpeed  = "failed to set simulator speed"
	errSimulatorReset  = "failed to reset simulator"
)

// SimulatorSpeedRequest changes how fast simulated time runs.
type SimulatorSpeedRequest struct {
	// Simulated seconds per wall second, clamped to [0.1, 1000]
	SpeedMultiplier *float64 `json:"speed_multiplier" binding:"required" example:"60"`
}

// @Summary      Simulator status
// @Description  enabled is false on real hardware
// @Tags         simulator
// @Produce      json
// @Success      200  {object}  service.SimulationStatus
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/simulator [get]
func (h *Handler) getSimulator(c *gin.Context) {
	st, err := h.services.Simulation.Status(c.Request.Context())
	if err != nil {
		h.commandError(c, errSimulatorStatus, "simulator_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Set simulator speed
// @Tags         simulator
// @Accept       json
// @Produce      json
// @Param        body  body   SimulatorSpeedRequest  true  "Speed payload"
// @Success      200   {object}  service.SimulationStatus
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/simulator [put]
func (h *Handler) setSimulatorSpeed(c *gin.Context) {
	var req SimulatorSpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	st, err := h.services.Simulation.SetSpeed(c.Request.Context(), *req.SpeedMultiplier)
	if err != nil {
		h.commandError(c, errSimulatorSpeed, "simulator_speed_failed", err, "speed", *req.SpeedMultiplier)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Reset the thermal model
// @Description  Restores the initial plate, water and bin conditions and empties the bin
// @Tags         simulator
// @Produce      json
// @Success      200  {object}  service.SimulationStatus
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/simulator/reset [post]
func (h *Handler) resetSimulator(c *gin.Context) {
	st, err := h.services.Simulation.Reset(c.Request.Context())
	if err != nil {
		h.commandError(c, errSimulatorReset, "simulator_reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
