package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	errUpdateConfig = "failed to update config"
	errResetConfig  = "failed to reset config"
	errEmptyUpdate  = "empty update"
)

// @Summary      Get cycle configuration
// @Tags         config
// @Produce      json
// @Success      200  {object}  models.CycleConfig
// @Router       /api/v1/config [get]
func (h *Handler) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Configuration.Get(c.Request.Context()))
}

// @Summary      Update cycle configuration
// @Description  Accepts dotted keys ({"ice.target_temp_f":-4}) or nested objects. All fields are validated before any is applied.
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        body  body   map[string]interface{}  true  "Fields to change"
// @Success      200   {object}  models.CycleConfig
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]interface{}  "error, fields"
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/config [patch]
func (h *Handler) updateConfig(c *gin.Context) {
	var update map[string]any
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if len(update) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmptyUpdate})
		return
	}
	cfg, err := h.services.Configuration.Update(c.Request.Context(), update)
	if err != nil {
		h.commandError(c, errUpdateConfig, "config_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      Reset configuration to factory defaults
// @Tags         config
// @Produce      json
// @Success      200  {object}  models.CycleConfig
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/config/reset [post]
func (h *Handler) resetConfig(c *gin.Context) {
	cfg, err := h.services.Configuration.Reset(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResetConfig, "config_reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      Configuration schema
// @Description  Every tunable field with its type, bounds and factory default
// @Tags         config
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, fields"
// @Router       /api/v1/config/schema [get]
func (h *Handler) getConfigSchema(c *gin.Context) {
	fields := h.services.Configuration.Schema()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(fields),
		"fields": fields,
	})
}
